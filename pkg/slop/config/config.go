package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/slopfx/pkg/slop/baseline"
	"github.com/cognicore/slopfx/pkg/slop/canon"
	"github.com/cognicore/slopfx/pkg/slop/internalerr"
	"github.com/cognicore/slopfx/pkg/slop/phylo"
	"github.com/cognicore/slopfx/pkg/slop/profile"
	"github.com/cognicore/slopfx/pkg/slop/score"
)

// Config is the analysis configuration file.
type Config struct {
	Profile ProfileConfig  `yaml:"profile"`
	Score   score.Weighted `yaml:"score"`
	Canon   canon.Options  `yaml:"canon"`
	Phylo   PhyloConfig    `yaml:"phylo"`
	Workers int            `yaml:"workers"`
	Store   StoreConfig    `yaml:"store"`
}

// ProfileConfig controls tokenization and ranking.
type ProfileConfig struct {
	TopK              int      `yaml:"top_k"`
	MinCount          int64    `yaml:"min_count"`
	MinLength         int      `yaml:"min_length"`
	DropNumeric       bool     `yaml:"drop_numeric"`
	SplitContractions bool     `yaml:"split_contractions"`
	Stopwords         []string `yaml:"stopwords"`

	// Stoplist is a YAML file with a terms: list, merged with Stopwords.
	Stoplist string `yaml:"stoplist"`

	// Baseline is a YAML frequency table. BaselineCorpus is a plain-text
	// reference corpus; it is used when Baseline is unset.
	Baseline          string  `yaml:"baseline"`
	BaselineCorpus    string  `yaml:"baseline_corpus"`
	BaselineSmoothing float64 `yaml:"baseline_smoothing"`
}

// PhyloConfig controls tree construction.
type PhyloConfig struct {
	Enabled      bool     `yaml:"enabled"`
	TopNFeatures int      `yaml:"top_n_features"`
	Distance     string   `yaml:"distance"`
	Linkage      string   `yaml:"linkage"`
	Features     string   `yaml:"features"`
	Ignore       []string `yaml:"ignore"`
}

// StoreConfig selects run persistence. An empty driver disables it.
type StoreConfig struct {
	Driver string `yaml:"driver"` // "", "memory" or "sqlite"
	Path   string `yaml:"path"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Profile: ProfileConfig{
			TopK:      profile.DefaultTopK,
			MinCount:  profile.DefaultMinCount,
			MinLength: 1,
		},
		Score: score.DefaultWeights(),
		Phylo: PhyloConfig{
			Enabled:      true,
			TopNFeatures: phylo.DefaultTopNFeatures,
			Distance:     string(phylo.Euclidean),
			Linkage:      string(phylo.Average),
			Features:     string(phylo.FeaturesGlobal),
		},
	}
}

// Load reads a YAML configuration file on top of Default. Relative file
// references inside it are resolved against the file's directory.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %s: %v", internalerr.ErrInvalidConfig, path, err)
	}

	dir := filepath.Dir(path)
	cfg.Profile.Stoplist = resolve(dir, cfg.Profile.Stoplist)
	cfg.Profile.Baseline = resolve(dir, cfg.Profile.Baseline)
	cfg.Profile.BaselineCorpus = resolve(dir, cfg.Profile.BaselineCorpus)
	if cfg.Store.Driver == "sqlite" {
		cfg.Store.Path = resolve(dir, cfg.Store.Path)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func resolve(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

// Validate rejects values no component accepts.
func (c Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", internalerr.ErrInvalidConfig, fmt.Sprintf(format, args...))
	}

	if c.Profile.TopK < 0 {
		return invalid("profile.top_k must be >= 0, got %d", c.Profile.TopK)
	}
	if c.Profile.MinCount < 0 {
		return invalid("profile.min_count must be >= 0, got %d", c.Profile.MinCount)
	}
	if c.Profile.MinLength < 0 {
		return invalid("profile.min_length must be >= 0, got %d", c.Profile.MinLength)
	}
	if c.Profile.BaselineSmoothing < 0 {
		return invalid("profile.baseline_smoothing must be >= 0, got %v", c.Profile.BaselineSmoothing)
	}
	if err := c.Score.Validate(); err != nil {
		return err
	}
	if c.Canon.MaxItemsPerSource < 0 || c.Canon.Limit < 0 {
		return invalid("canon limits must be >= 0")
	}

	switch phylo.Distance(c.Phylo.Distance) {
	case "", phylo.Euclidean, phylo.Cosine:
	default:
		return invalid("phylo.distance %q", c.Phylo.Distance)
	}
	switch phylo.Linkage(c.Phylo.Linkage) {
	case "", phylo.Average, phylo.Single, phylo.Complete:
	default:
		return invalid("phylo.linkage %q", c.Phylo.Linkage)
	}
	switch phylo.FeatureMode(c.Phylo.Features) {
	case "", phylo.FeaturesGlobal, phylo.FeaturesPerSource:
	default:
		return invalid("phylo.features %q", c.Phylo.Features)
	}

	if c.Workers < 0 {
		return invalid("workers must be >= 0, got %d", c.Workers)
	}
	switch c.Store.Driver {
	case "", "memory":
	case "sqlite":
		if c.Store.Path == "" {
			return invalid("store.path is required for the sqlite driver")
		}
	default:
		return invalid("store.driver %q", c.Store.Driver)
	}
	return nil
}

// Stoplist represents the stopword list configuration
type Stoplist struct {
	Terms []string `yaml:"terms"`
}

// LoadStoplist loads stopwords from a YAML file
func LoadStoplist(path string) (*Stoplist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var sl Stoplist
	if err := yaml.Unmarshal(data, &sl); err != nil {
		return nil, err
	}

	return &sl, nil
}

// BaselineFile is the on-disk form of a reference frequency table.
//
//	floor: 1e-6
//	fallback: uniform
//	terms:
//	  the: 0.05
//	  of the: 0.004
type BaselineFile struct {
	Floor    float64            `yaml:"floor"`
	Fallback string             `yaml:"fallback"` // "" or "uniform"
	Terms    map[string]float64 `yaml:"terms"`
}

// LoadBaseline loads and validates a frequency table.
func LoadBaseline(path string) (*baseline.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var bf BaselineFile
	if err := yaml.Unmarshal(data, &bf); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", internalerr.ErrInvalidConfig, path, err)
	}

	table := &baseline.Table{Freq: bf.Terms, Floor: bf.Floor}
	switch bf.Fallback {
	case "":
	case "uniform":
		table.Fallback = baseline.Uniform{}
	default:
		return nil, fmt.Errorf("%w: %s: unknown fallback %q", internalerr.ErrInvalidConfig, path, bf.Fallback)
	}
	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return table, nil
}
