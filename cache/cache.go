package cache

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/spf13/afero"
	"golang.org/x/xerrors"

	"github.com/cvetl/cvetl/content"
	"github.com/cvetl/cvetl/utils"
)

// ParseError is returned when a snapshot file is not valid JSON
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid snapshot %s: %s", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

type Option func(*Store)

func WithFs(fs afero.Fs) Option {
	return func(s *Store) { s.fs = utils.NewFs(fs) }
}

func WithDir(dir string) Option {
	return func(s *Store) { s.dir = dir }
}

// Store keeps JSON snapshots and raw content on disk.
// Writes are not atomic and not synchronized; the last writer wins.
type Store struct {
	fs  utils.Fs
	dir string
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		fs:  utils.NewFs(afero.NewOsFs()),
		dir: utils.CacheDir(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) Fs() utils.Fs {
	return s.fs
}

// Path returns where the content of u is cached
func (s *Store) Path(u *url.URL, t content.Type) string {
	return utils.FilePath(u, s.dir, string(t))
}

// Fresh reports whether a non-empty file exists at path
func (s *Store) Fresh(path string) (bool, error) {
	return s.fs.NonEmpty(path)
}

// Load decodes the snapshot at path into v. If the file is missing or empty, v is left untouched,
// except that a nil *interface{} is set to an empty JSON object.
func (s *Store) Load(path string, v interface{}) error {
	ok, err := s.fs.NonEmpty(path)
	if err != nil {
		return err
	} else if !ok {
		if p, isAny := v.(*interface{}); isAny && *p == nil {
			*p = map[string]interface{}{}
		}
		return nil
	}

	b, err := afero.ReadFile(s.fs.AppFs, path)
	if err != nil {
		return xerrors.Errorf("unable to read %s: %w", path, err)
	}
	if err = json.Unmarshal(b, v); err != nil {
		return &ParseError{Path: path, Err: err}
	}
	return nil
}

// Dump overwrites the snapshot at path with data
func (s *Store) Dump(path string, data interface{}) error {
	if err := s.fs.WriteJSON(path, data); err != nil {
		return xerrors.Errorf("failed to dump %s: %w", path, err)
	}
	return nil
}

// Hash returns the SHA-256 digest of the file at path
func (s *Store) Hash(path string) (string, error) {
	return s.fs.FileHash(path)
}

// Changed reports whether b differs from what is cached at path
func (s *Store) Changed(path string, b []byte) (bool, error) {
	ok, err := s.Fresh(path)
	if err != nil {
		return false, err
	} else if !ok {
		return true, nil
	}

	digest, err := s.Hash(path)
	if err != nil {
		return false, err
	}
	return digest != utils.Digest(b), nil
}

// Put writes raw content to path
func (s *Store) Put(path string, b []byte) error {
	return s.fs.WriteFile(path, b)
}
