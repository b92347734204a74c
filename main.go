package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/url"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/hashicorp/go-multierror"
	"github.com/samber/lo"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v2"

	"github.com/cvetl/cvetl/cache"
	"github.com/cvetl/cvetl/content"
	"github.com/cvetl/cvetl/utils"
	"github.com/cvetl/cvetl/vulnrange"
)

var (
	target        = flag.String("target", "", "update target (fetch, ranges)")
	sourceURL     = flag.String("url", "", "source URL (fetch only)")
	contentType   = flag.String("type", string(content.Plain), "content type of the source: "+utils.Grammarize(content.Types))
	sourcesFile   = flag.String("sources", "", "YAML file listing sources to fetch (fetch only)")
	cacheDir      = flag.String("dir", "", "cache directory (default: user cache dir)")
	retry         = flag.Int("retry", 3, "number of retries of a failed fetch")
	concurrency   = flag.Int("concurrency", 4, "number of concurrent fetches")
	refreshBefore = flag.String("refresh-before", "", "refetch sources last updated before this date")
	affected      = flag.String("affected", "", "comma-separated affected versions (ranges only)")
	fixed         = flag.String("fixed", "", "comma-separated fixed versions (ranges only)")
	order         = flag.String("order", "semver", "version order (semver, gosemver, lexical)")
)

type source struct {
	URL  string       `yaml:"url"`
	Type content.Type `yaml:"type"`
}

type rangesOutput struct {
	Ranges       map[string][]string `json:"ranges"`
	Affected     []string            `json:"affected"`
	Unattributed []string            `json:"unattributed"`
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	flag.Parse()

	switch *target {
	case "fetch":
		if err := fetch(); err != nil {
			return xerrors.Errorf("fetch error: %w", err)
		}
	case "ranges":
		if err := ranges(); err != nil {
			return xerrors.Errorf("ranges error: %w", err)
		}
	default:
		return xerrors.New("unknown target")
	}
	return nil
}

func fetch() error {
	sources, err := loadSources()
	if err != nil {
		return err
	}

	var opts []cache.Option
	if *cacheDir != "" {
		opts = append(opts, cache.WithDir(*cacheDir))
	}
	store := cache.NewStore(opts...)
	if err = store.Fs().AppFs.MkdirAll(store.Dir(), os.ModePerm); err != nil {
		return xerrors.Errorf("failed to mkdir: %w", err)
	}

	var since time.Time
	if *refreshBefore != "" {
		if since, err = dateparse.ParseAny(*refreshBefore); err != nil {
			return xerrors.Errorf("invalid date %q: %w", *refreshBefore, err)
		}
	}

	sources, err = staleSources(store, sources, since)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		log.Println("All sources are up to date")
		return nil
	}

	bodies, fetchErr := fetchAll(sources)

	u := &updater{
		store:    store,
		registry: content.NewRegistry(),
		now:      time.Now().UTC(),
		ledger:   utils.LookupEnv("CVETL_DEBUG", "") == "",
	}
	var errs error
	if fetchErr != nil {
		errs = multierror.Append(errs, fetchErr)
	}
	for _, src := range sources {
		b, ok := bodies[src.URL]
		if !ok {
			continue
		}
		if err = u.update(src, b); err != nil {
			errs = multierror.Append(errs, xerrors.Errorf("%s: %w", src.URL, err))
		}
	}
	return errs
}

func loadSources() ([]source, error) {
	if *sourcesFile == "" {
		if *sourceURL == "" {
			return nil, xerrors.New("url or sources must be specified")
		}
		return []source{{URL: *sourceURL, Type: content.Type(*contentType)}}, nil
	}

	b, err := os.ReadFile(*sourcesFile)
	if err != nil {
		return nil, xerrors.Errorf("unable to read %s: %w", *sourcesFile, err)
	}
	var sources []source
	if err = yaml.Unmarshal(b, &sources); err != nil {
		return nil, xerrors.Errorf("failed to parse %s: %w", *sourcesFile, err)
	}
	return sources, nil
}

// staleSources drops the sources cached after since
func staleSources(store *cache.Store, sources []source, since time.Time) ([]source, error) {
	if since.IsZero() {
		return sources, nil
	}

	var stale []source
	for _, src := range sources {
		u, err := url.Parse(src.URL)
		if err != nil {
			return nil, xerrors.Errorf("invalid URL %s: %w", src.URL, err)
		}
		path := store.Path(u, src.Type)
		fresh, err := store.Fresh(path)
		if err != nil {
			return nil, err
		}
		lastUpdated, err := store.Fs().GetLastUpdatedDate(store.Dir(), path)
		if err != nil {
			return nil, err
		}
		if fresh && !lastUpdated.Before(since) {
			log.Printf("Skip %s, last updated at %s\n", src.URL, lastUpdated.Format(time.RFC3339))
			continue
		}
		stale = append(stale, src)
	}
	return stale, nil
}

func fetchAll(sources []source) (map[string][]byte, error) {
	isHTTP := func(src source, _ int) bool {
		return strings.HasPrefix(src.URL, "http://") || strings.HasPrefix(src.URL, "https://")
	}
	httpSources, otherSources := lo.Filter(sources, isHTTP), lo.Reject(sources, isHTTP)

	log.Printf("Fetching %d sources...\n", len(sources))
	bodies, errs := utils.FetchConcurrently(lo.Map(httpSources, func(src source, _ int) string {
		return src.URL
	}), *concurrency, 0, *retry)
	if bodies == nil {
		bodies = map[string][]byte{}
	}

	// go-getter handles the rest, e.g. local files, S3 buckets and archives
	for _, src := range otherSources {
		b, err := utils.Download(context.Background(), src.URL)
		if err != nil {
			errs = multierror.Append(errs, xerrors.Errorf("%s: %w", src.URL, err))
			continue
		}
		bodies[src.URL] = b
	}
	return bodies, errs
}

type updater struct {
	store    *cache.Store
	registry *content.Registry
	now      time.Time
	ledger   bool
}

func (u *updater) update(src source, b []byte) error {
	srcURL, err := url.Parse(src.URL)
	if err != nil {
		return xerrors.Errorf("invalid URL: %w", err)
	}
	path := u.store.Path(srcURL, src.Type)

	var changed bool
	if src.Type == content.JSON {
		changed, err = u.updateSnapshot(path, b)
	} else {
		changed, err = u.updateRaw(path, src.Type, b)
	}
	if err != nil {
		return err
	}
	if !changed {
		log.Printf("%s is unchanged\n", path)
		return nil
	}
	log.Printf("Cached %s as %s\n", src.URL, path)

	if !u.ledger {
		return nil
	}
	if err = u.store.Fs().SetLastUpdatedDate(u.store.Dir(), path, u.now); err != nil {
		return xerrors.Errorf("failed to set last updated date: %w", err)
	}
	return nil
}

// updateRaw caches b as is when it differs from the cached bytes
func (u *updater) updateRaw(path string, t content.Type, b []byte) (bool, error) {
	changed, err := u.store.Changed(path, b)
	if err != nil {
		return false, xerrors.Errorf("failed to check the cache: %w", err)
	} else if !changed {
		return false, nil
	}

	// don't cache what can't be parsed
	if _, err = u.registry.Parse(b, t); err != nil {
		return false, err
	}

	if err = u.store.Put(path, b); err != nil {
		return false, xerrors.Errorf("failed to cache content: %w", err)
	}
	return true, nil
}

// updateSnapshot dumps the decoded JSON when it differs from the cached snapshot.
// A corrupted snapshot is overwritten.
func (u *updater) updateSnapshot(path string, b []byte) (bool, error) {
	parsed, err := u.registry.Parse(b, content.JSON)
	if err != nil {
		return false, err
	}

	fresh, err := u.store.Fresh(path)
	if err != nil {
		return false, xerrors.Errorf("failed to check the cache: %w", err)
	}
	if fresh {
		var cached interface{}
		var perr *cache.ParseError
		err = u.store.Load(path, &cached)
		switch {
		case err == nil && reflect.DeepEqual(cached, parsed):
			return false, nil
		case err != nil && !xerrors.As(err, &perr):
			return false, xerrors.Errorf("failed to load the snapshot: %w", err)
		}
	}

	if err = u.store.Dump(path, parsed); err != nil {
		return false, xerrors.Errorf("failed to cache content: %w", err)
	}
	return true, nil
}

func ranges() error {
	compare, ok := vulnrange.Comparers[*order]
	if !ok {
		return xerrors.Errorf("unknown order: %s", *order)
	}

	r := vulnrange.New(vulnrange.WithComparer(compare))
	rs, sorted, err := r.Resolve(splitVersions(*affected), splitVersions(*fixed))
	if err != nil {
		return xerrors.Errorf("failed to resolve ranges: %w", err)
	}

	e := json.NewEncoder(os.Stdout)
	e.SetIndent("", "  ")
	if err = e.Encode(rangesOutput{
		Ranges:       rs.Map(),
		Affected:     sorted,
		Unattributed: rs.Unattributed(sorted),
	}); err != nil {
		return xerrors.Errorf("failed to encode ranges: %w", err)
	}
	return nil
}

func splitVersions(s string) []string {
	return lo.Compact(lo.Map(strings.Split(s, ","), func(v string, _ int) string {
		return strings.TrimSpace(v)
	}))
}
