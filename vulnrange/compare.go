package vulnrange

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-version"
	"golang.org/x/mod/semver"
)

// Comparer returns a negative number when a < b, zero when a == b and a positive number otherwise.
// It fails when either version can't be ordered.
type Comparer func(a, b string) (int, error)

// OrderingError is returned when a version can't be compared with the configured Comparer
type OrderingError struct {
	Version string
	Err     error
}

func (e *OrderingError) Error() string {
	return fmt.Sprintf("unable to compare version %q: %s", e.Version, e.Err)
}

func (e *OrderingError) Unwrap() error {
	return e.Err
}

// Semantic compares versions like "1.2.3", "v1.2" or "1.0.0-beta.1"
func Semantic(a, b string) (int, error) {
	va, err := version.NewVersion(a)
	if err != nil {
		return 0, &OrderingError{Version: a, Err: err}
	}
	vb, err := version.NewVersion(b)
	if err != nil {
		return 0, &OrderingError{Version: b, Err: err}
	}
	return va.Compare(vb), nil
}

// GoSemver compares versions following Go module semantics. The "v" prefix is optional.
func GoSemver(a, b string) (int, error) {
	va, vb := canonicalGo(a), canonicalGo(b)
	if !semver.IsValid(va) {
		return 0, &OrderingError{Version: a, Err: fmt.Errorf("invalid semantic version")}
	}
	if !semver.IsValid(vb) {
		return 0, &OrderingError{Version: b, Err: fmt.Errorf("invalid semantic version")}
	}
	return semver.Compare(va, vb), nil
}

func canonicalGo(v string) string {
	if strings.HasPrefix(v, "v") {
		return v
	}
	return "v" + v
}

// Lexical compares versions as plain strings
func Lexical(a, b string) (int, error) {
	return strings.Compare(a, b), nil
}

// Comparers lists the available orders by name
var Comparers = map[string]Comparer{
	"semver":   Semantic,
	"gosemver": GoSemver,
	"lexical":  Lexical,
}
