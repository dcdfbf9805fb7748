package clarity

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const cachePrefix = "clarity-data-"

// CachePath returns the cache file path for a calendar date (YYYY-MM-DD).
func CachePath(dir, date string) string {
	return filepath.Join(dir, cachePrefix+date+".json")
}

// LoadCached reads the cached dataset for the given date. Returns (nil, nil)
// when no cache file exists for that date.
func LoadCached(dir, date string) (*Dataset, error) {
	path := CachePath(dir, date)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading cache: %w", err)
	}

	var ds Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("parsing cache %s: %w", path, err)
	}
	return &ds, nil
}

// LoadLatestCached returns the most recent cached dataset regardless of
// date, or (nil, "", nil) when the cache directory holds none.
func LoadLatestCached(dir string) (*Dataset, string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", nil
		}
		return nil, "", fmt.Errorf("reading cache directory: %w", err)
	}

	var dates []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, cachePrefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		dates = append(dates, strings.TrimSuffix(strings.TrimPrefix(name, cachePrefix), ".json"))
	}
	if len(dates) == 0 {
		return nil, "", nil
	}

	// Dates are ISO-formatted, so lexical order is chronological.
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	ds, err := LoadCached(dir, dates[0])
	if err != nil {
		return nil, "", err
	}
	return ds, dates[0], nil
}

// SaveCached writes the dataset to the cache file for the given date.
func SaveCached(dir, date string, ds *Dataset) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}
	data, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding dataset: %w", err)
	}
	if err := os.WriteFile(CachePath(dir, date), data, 0o644); err != nil {
		return fmt.Errorf("writing cache: %w", err)
	}
	return nil
}
