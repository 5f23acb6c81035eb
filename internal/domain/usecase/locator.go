package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrDataNotFound means no processed dataset exists for the station under
// the configured prefix. The run is aborted; the cycle continues.
var ErrDataNotFound = errors.New("no processed dataset found")

// ObjectStorage is the slice of the object store the locator and the
// orchestrator need.
type ObjectStorage interface {
	ListKeys(ctx context.Context, prefix string) ([]string, error)
	GetObject(ctx context.Context, key string) (io.ReadCloser, error)
}

// DataLocator finds the object-store key holding a station's processed
// dataset. Result files were written by two generations of notebooks, one
// using underscores in station names and one using spaces, so both
// conventions are tried.
type DataLocator struct {
	Storage ObjectStorage
	Prefix  string
}

// Find returns the key for a station's dataset. The prefix is listed once;
// both name variants filter the same listing. When model is non-empty a
// key containing that token is preferred; otherwise the first match in
// listing order wins (listing order is provider-defined, not stable).
func (l *DataLocator) Find(ctx context.Context, station, model string) (string, error) {
	keys, err := l.Storage.ListKeys(ctx, l.Prefix)
	if err != nil {
		return "", fmt.Errorf("list %q: %w", l.Prefix, err)
	}

	matches := stationKeys(keys, strings.ReplaceAll(station, " ", "_"))
	if len(matches) == 0 {
		matches = stationKeys(keys, strings.ReplaceAll(station, "_", " "))
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("%w: station %q under %q", ErrDataNotFound, station, l.Prefix)
	}

	if model != "" {
		for _, key := range matches {
			if strings.Contains(key, model) {
				return key, nil
			}
		}
	}
	return matches[0], nil
}

func stationKeys(keys []string, station string) []string {
	var matches []string
	for _, key := range keys {
		if !strings.HasSuffix(strings.ToLower(key), ".csv") {
			continue
		}
		if strings.Contains(key, station) {
			matches = append(matches, key)
		}
	}
	return matches
}
