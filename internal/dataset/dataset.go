package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/cognicore/slopfx/pkg/slop/ingest"
	"github.com/cognicore/slopfx/pkg/slop/profile"
)

// DirectSource marks items built from sentences passed in directly.
const DirectSource = "custom_input"

// Item is one generated text in a dataset file
type Item struct {
	Model  string `json:"model"`
	Source string `json:"source"`
	ID     string `json:"id"`
	Output string `json:"output"`
	Prompt string `json:"prompt,omitempty"`
}

// LoadFromJSONL loads items from a JSONL file. Malformed lines and lines
// without output are skipped with a warning. Items without a model get
// fallbackModel.
func LoadFromJSONL(path, fallbackModel string) ([]Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}

	var items []Item
	lines := strings.Split(string(data), "\n")

	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var item Item
		if err := json.Unmarshal([]byte(line), &item); err != nil {
			log.Printf("Warning: skipping malformed JSON at line %d in %s: %v", i+1, path, err)
			continue
		}
		if strings.TrimSpace(item.Output) == "" {
			log.Printf("Warning: skipping item without output at line %d in %s", i+1, path)
			continue
		}
		if item.Model == "" {
			item.Model = fallbackModel
		}
		items = append(items, item)
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("no valid items found in %s", path)
	}

	return items, nil
}

// WriteJSONL writes items one JSON object per line.
func WriteJSONL(path string, items []Item) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for _, item := range items {
		if err := enc.Encode(item); err != nil {
			return fmt.Errorf("encode item %s: %w", item.ID, err)
		}
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

// FromSentences wraps sentences as dataset items of one model.
func FromSentences(model string, sentences []string) []Item {
	items := make([]Item, len(sentences))
	for i, s := range sentences {
		items[i] = Item{
			Model:  model,
			Source: DirectSource,
			ID:     fmt.Sprintf("sentence_%04d", i),
			Output: s,
			Prompt: fmt.Sprintf("Custom input sentence %d", i+1),
		}
	}
	return items
}

// Group collects items into one source per model, in order of first
// appearance. Each output is one sentence unless split is set, in which
// case outputs are broken into sentences first.
func Group(items []Item, split bool) []profile.Source {
	index := make(map[string]int)
	var sources []profile.Source
	for _, item := range items {
		i, ok := index[item.Model]
		if !ok {
			i = len(sources)
			index[item.Model] = i
			sources = append(sources, profile.Source{Name: item.Model})
		}
		if split {
			sources[i].Sentences = append(sources[i].Sentences, ingest.SplitSentences(item.Output)...)
		} else {
			sources[i].Sentences = append(sources[i].Sentences, item.Output)
		}
	}
	return sources
}

// LoadDocument reads a plain-text or HTML file as the sentences of one
// source. HTML is recognized by its .html or .htm extension.
func LoadDocument(path, model string) (profile.Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return profile.Source{}, err
	}
	defer f.Close()

	var text string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		text, err = ingest.StripHTML(f)
		if err != nil {
			return profile.Source{}, fmt.Errorf("parse html %s: %w", path, err)
		}
	default:
		data, err := io.ReadAll(f)
		if err != nil {
			return profile.Source{}, fmt.Errorf("read %s: %w", path, err)
		}
		text = string(data)
	}

	if model == "" {
		model = ModelFromPath(path)
	}
	return profile.Source{Name: model, Sentences: ingest.SplitSentences(text)}, nil
}

// ModelFromPath derives a model name from a file name, dropping the
// extension and a leading "generated_" prefix.
func ModelFromPath(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return strings.TrimPrefix(base, "generated_")
}
