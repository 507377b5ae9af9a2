package htmlpack

import (
	"encoding/json"
	"os"
	"sort"
)

// StateFileName records already-packaged HTML files so re-runs resume
const StateFileName = ".htmlpack_state.json"

// LoadState reads the processed set, an absent file means a fresh start
func LoadState(path string) (map[string]bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]bool{}, nil
		}
		return nil, err
	}

	var entries []string
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	processed := make(map[string]bool, len(entries))
	for _, entry := range entries {
		processed[entry] = true
	}
	return processed, nil
}

// SaveState persists the processed set as a sorted JSON list
func SaveState(path string, processed map[string]bool) error {
	entries := make([]string, 0, len(processed))
	for entry := range processed {
		entries = append(entries, entry)
	}
	sort.Strings(entries)

	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
