package fingerprint

import "sort"

// SortedNames returns the source names of a fingerprint mapping in
// lexicographic order. Stages iterate in this order so that results never
// depend on map iteration.
func SortedNames(fps map[string]Fingerprint) []string {
	names := make([]string, 0, len(fps))
	for name := range fps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
