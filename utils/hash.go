package utils

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/spf13/afero"
	"golang.org/x/xerrors"
)

// Digest returns the hex-encoded SHA-256 of b
func Digest(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// FileHash returns the hex-encoded SHA-256 of the file contents
func (fs Fs) FileHash(filePath string) (string, error) {
	b, err := afero.ReadFile(fs.AppFs, filePath)
	if err != nil {
		return "", xerrors.Errorf("unable to read %s: %w", filePath, err)
	}
	return Digest(b), nil
}

// VulnCode generates a temporary vulnerability code for an advisory
func VulnCode(advisoryID string) string {
	return Digest([]byte(advisoryID))
}
