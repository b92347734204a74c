package utils

import (
	"encoding/json"
	"os"

	"github.com/spf13/afero"
	"golang.org/x/xerrors"
)

type Fs struct {
	AppFs afero.Fs
}

func NewFs(appFs afero.Fs) Fs {
	return Fs{AppFs: appFs}
}

// WriteJSON overwrites filePath with the indented JSON encoding of data.
// The file is truncated first, so a failed write may leave it partially written.
func (fs Fs) WriteJSON(filePath string, data interface{}) error {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return xerrors.Errorf("failed to marshal JSON: %w", err)
	}

	f, err := fs.AppFs.Create(filePath)
	if err != nil {
		return xerrors.Errorf("unable to open a file: %w", err)
	}
	defer f.Close()

	if _, err = f.Write(b); err != nil {
		return xerrors.Errorf("failed to save a file: %w", err)
	}
	return nil
}

// ReadJSON decodes filePath into v. A missing or empty file leaves v untouched.
func (fs Fs) ReadJSON(filePath string, v interface{}) error {
	ok, err := fs.NonEmpty(filePath)
	if err != nil {
		return err
	} else if !ok {
		return nil
	}

	b, err := afero.ReadFile(fs.AppFs, filePath)
	if err != nil {
		return xerrors.Errorf("unable to read a file: %w", err)
	}
	if err = json.Unmarshal(b, v); err != nil {
		return xerrors.Errorf("failed to unmarshal JSON: %w", err)
	}
	return nil
}

// NonEmpty reports whether filePath exists and has content
func (fs Fs) NonEmpty(filePath string) (bool, error) {
	fi, err := fs.AppFs.Stat(filePath)
	switch {
	case err == nil:
		return fi.Size() > 0, nil
	case os.IsNotExist(err):
		return false, nil
	default:
		return false, xerrors.Errorf("unable to stat %s: %w", filePath, err)
	}
}

// WriteFile overwrites filePath with b
func (fs Fs) WriteFile(filePath string, b []byte) error {
	if err := afero.WriteFile(fs.AppFs, filePath, b, 0644); err != nil {
		return xerrors.Errorf("failed to write %s: %w", filePath, err)
	}
	return nil
}
