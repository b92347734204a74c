package utils

import (
	"net/url"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/samber/lo"
)

const maxQueryKeys = 3

var (
	fragmentSeparator = regexp.MustCompile(`[\\,/|?]`)
	separatorEscaper  = strings.NewReplacer("/", "%2F", `\`, "%5C")
)

// FilePath constructs a cache file path from a URL. The host, every non-empty path
// segment and the leading part of the second "&"-separated fragment token are joined
// with "_". When the URL has more than three query keys, the first three are appended
// as one extra element. ext is appended unless the name already ends with it.
func FilePath(u *url.URL, dir, ext string) string {
	elements := []string{u.Hostname()}
	elements = append(elements, strings.Split(u.EscapedPath(), "/")...)
	elements = append(elements, fragmentElement(u))

	if keys := queryKeys(u.RawQuery); len(keys) > maxQueryKeys {
		elements = append(elements, strings.Join(keys[:maxQueryKeys], "_"))
	}

	name := strings.Join(lo.Compact(elements), "_")
	if name == "." || name == ".." {
		name = strings.ReplaceAll(name, ".", "%2E")
	}
	if ext != "" && !strings.HasSuffix(name, "."+ext) {
		name += "." + ext
	}

	if dir == "" {
		return name
	}
	return filepath.Join(dir, name)
}

func fragmentElement(u *url.URL) string {
	fragment := u.RawFragment
	if fragment == "" {
		fragment = u.EscapedFragment()
	}
	tokens := strings.Split(fragment, "&")
	if len(tokens) < 2 {
		return ""
	}
	return fragmentSeparator.Split(tokens[1], -1)[0]
}

// queryKeys returns the decoded query keys in order of first appearance.
// Path separators stay escaped so that a key never adds a directory level.
// url.Values can't be used here since it doesn't keep the order.
func queryKeys(rawQuery string) []string {
	var keys []string
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		key, _, _ := strings.Cut(pair, "=")
		if k, err := url.QueryUnescape(key); err == nil {
			key = k
		}
		keys = append(keys, separatorEscaper.Replace(key))
	}
	return lo.Uniq(keys)
}
