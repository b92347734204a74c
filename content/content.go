package content

import (
	"fmt"

	"github.com/spf13/afero"
	"golang.org/x/xerrors"
)

// Type selects both the file extension and the parser of a cached resource
type Type string

const (
	CSS   Type = "css"
	CSV   Type = "csv"
	HTML  Type = "html"
	JSON  Type = "json"
	Plain Type = "plain"
	XML   Type = "xml"
)

var Types = []Type{CSS, CSV, HTML, JSON, Plain, XML}

// Parser turns raw content into a type specific value
type Parser interface {
	Parse(b []byte) (interface{}, error)
}

type ParserFunc func(b []byte) (interface{}, error)

func (f ParserFunc) Parse(b []byte) (interface{}, error) {
	return f(b)
}

type ParseError struct {
	Type Type
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s: %s", e.Type, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

type Option func(*Registry)

// WithParser registers p for t, replacing the default parser if there is one.
// A nil parser makes t pass through like plain text.
func WithParser(t Type, p Parser) Option {
	return func(r *Registry) {
		r.parsers[t] = p
	}
}

// Registry dispatches content to the parser registered for its type.
// It is immutable once built and safe for concurrent use.
type Registry struct {
	parsers map[Type]Parser
}

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		parsers: map[Type]Parser{
			CSS:   ParserFunc(parseCSS),
			CSV:   ParserFunc(parseCSV),
			HTML:  ParserFunc(parseHTML),
			JSON:  ParserFunc(parseJSON),
			Plain: nil,
			XML:   ParserFunc(parseXML),
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Parse returns b parsed according to t. Plain text and unknown types are returned as is.
func (r *Registry) Parse(b []byte, t Type) (interface{}, error) {
	p := r.parsers[t]
	if p == nil {
		return b, nil
	}

	v, err := p.Parse(b)
	if err != nil {
		return nil, &ParseError{Type: t, Err: err}
	}
	return v, nil
}

// Read parses the file at filePath according to t
func (r *Registry) Read(fs afero.Fs, filePath string, t Type) (interface{}, error) {
	b, err := afero.ReadFile(fs, filePath)
	if err != nil {
		return nil, xerrors.Errorf("unable to read %s: %w", filePath, err)
	}
	return r.Parse(b, t)
}
