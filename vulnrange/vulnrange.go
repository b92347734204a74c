package vulnrange

import (
	"github.com/samber/lo"
	"golang.org/x/exp/slices"
)

// Range is the set of affected versions remediated by a fix version
type Range struct {
	Fixed    string   `json:"fixed"`
	Affected []string `json:"affected"`
}

// Ranges are ordered by ascending fix version
type Ranges []Range

// Map returns the ranges keyed by fix version
func (rs Ranges) Map() map[string][]string {
	m := make(map[string][]string, len(rs))
	for _, r := range rs {
		m[r.Fixed] = r.Affected
	}
	return m
}

// Unattributed returns the affected versions that no range covers, i.e. those still vulnerable.
func (rs Ranges) Unattributed(affected []string) []string {
	covered := map[string]struct{}{}
	for _, r := range rs {
		for _, v := range r.Affected {
			covered[v] = struct{}{}
		}
	}
	return lo.Filter(affected, func(v string, _ int) bool {
		_, ok := covered[v]
		return !ok
	})
}

type Option func(*Resolver)

func WithComparer(c Comparer) Option {
	return func(r *Resolver) { r.compare = c }
}

type Resolver struct {
	compare Comparer
}

func New(opts ...Option) *Resolver {
	r := &Resolver{compare: Semantic}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve attributes every affected version to the lowest fix version strictly greater than it.
// The first range is always kept, even when empty; later ranges are dropped when nothing is attributed to them.
// Versions not lower than any fix are left out of the ranges.
// It also returns the affected versions in ascending order.
func (r *Resolver) Resolve(affected, fixed []string) (Ranges, []string, error) {
	sortedAffected, err := r.sort(affected)
	if err != nil {
		return nil, nil, err
	}

	ranges := Ranges{}
	if len(affected) == 0 && len(fixed) == 0 {
		return ranges, sortedAffected, nil
	}

	sortedFixed, err := r.sort(lo.Uniq(fixed))
	if err != nil {
		return nil, nil, err
	}

	remaining := sortedAffected
	for _, f := range sortedFixed {
		lower, rest := []string{}, []string{}
		for _, v := range remaining {
			c, err := r.compare(v, f)
			if err != nil {
				return nil, nil, err
			}
			if c < 0 {
				lower = append(lower, v)
			} else {
				rest = append(rest, v)
			}
		}

		if len(ranges) == 0 || len(lower) > 0 {
			ranges = append(ranges, Range{Fixed: f, Affected: lower})
		}
		remaining = rest
	}

	return ranges, sortedAffected, nil
}

func (r *Resolver) sort(versions []string) ([]string, error) {
	var err error
	sorted := slices.Clone(versions)
	if sorted == nil {
		sorted = []string{}
	}
	slices.SortStableFunc(sorted, func(a, b string) int {
		if err != nil {
			return 0
		}
		var c int
		c, err = r.compare(a, b)
		return c
	})
	if err != nil {
		return nil, err
	}

	// a single version is never compared, make sure it is orderable
	if len(sorted) == 1 {
		if _, err = r.compare(sorted[0], sorted[0]); err != nil {
			return nil, err
		}
	}
	return sorted, nil
}
