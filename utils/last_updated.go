package utils

import (
	"path/filepath"
	"time"

	"golang.org/x/xerrors"
)

const (
	lastUpdatedFile = "last_updated.json"
)

type LastUpdated map[string]time.Time

// GetLastUpdatedDate returns when key was last written under dir, or the Unix epoch if never
func (fs Fs) GetLastUpdatedDate(dir, key string) (time.Time, error) {
	lastUpdated, err := fs.getLastUpdatedDate(dir)
	if err != nil {
		return time.Time{}, err
	}

	t, ok := lastUpdated[key]
	if !ok {
		return time.Unix(0, 0), nil
	}

	return t, nil
}

func (fs Fs) getLastUpdatedDate(dir string) (LastUpdated, error) {
	lastUpdated := LastUpdated{}
	if err := fs.ReadJSON(filepath.Join(dir, lastUpdatedFile), &lastUpdated); err != nil {
		return nil, xerrors.Errorf("failed to read last updated dates: %w", err)
	}
	return lastUpdated, nil
}

func (fs Fs) SetLastUpdatedDate(dir, key string, lastUpdatedDate time.Time) error {
	lastUpdated, err := fs.getLastUpdatedDate(dir)
	if err != nil {
		return xerrors.Errorf("failed to get last updated date: %w", err)
	}
	lastUpdated[key] = lastUpdatedDate

	if err = fs.WriteJSON(filepath.Join(dir, lastUpdatedFile), lastUpdated); err != nil {
		return xerrors.Errorf("failed to write last updated date: %w", err)
	}

	return nil
}
