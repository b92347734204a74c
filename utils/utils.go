package utils

import (
	"crypto/rand"
	"fmt"
	"log"
	"math"
	"math/big"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/cheggaaa/pb/v3"
	"github.com/hashicorp/go-multierror"
	"github.com/parnurzeal/gorequest"
	"github.com/samber/lo"
	"golang.org/x/xerrors"
)

func CacheDir() string {
	if dir := LookupEnv("CVETL_CACHE_DIR", ""); dir != "" {
		return dir
	}
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		cacheDir = os.TempDir()
	}
	return filepath.Join(cacheDir, "cvetl")
}

// GenWorkers generate workders
func GenWorkers(num, wait int) chan<- func() {
	tasks := make(chan func())
	for i := 0; i < num; i++ {
		go func() {
			for f := range tasks {
				f()
				time.Sleep(time.Duration(wait) * time.Second)
			}
		}()
	}
	return tasks
}

// FetchURL returns HTTP response body with retry
func FetchURL(url, apikey string, retry int) (res []byte, err error) {
	for i := 0; i <= retry; i++ {
		if i > 0 {
			wait := math.Pow(float64(i), 2) + float64(randInt()%10)
			log.Printf("retry after %f seconds\n", wait)
			time.Sleep(time.Duration(time.Duration(wait) * time.Second))
		}
		res, err = fetchURL(url, apikey)
		if err == nil {
			return res, nil
		}
	}
	return nil, xerrors.Errorf("failed to fetch URL: %w", err)
}

func randInt() int {
	seed, _ := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	return int(seed.Int64())
}

func fetchURL(url, apikey string) ([]byte, error) {
	req := gorequest.New().Get(url)
	if apikey != "" {
		req.Header.Add("api-key", apikey)
	}
	resp, body, errs := req.Type("text").EndBytes()
	if len(errs) > 0 {
		return nil, xerrors.Errorf("HTTP error. url: %s, err: %w", url, errs[0])
	}
	if resp.StatusCode != 200 {
		return nil, xerrors.Errorf("HTTP error. status code: %d, url: %s", resp.StatusCode, url)
	}
	return body, nil
}

// FetchConcurrently fetches every URL with a pool of at least one worker.
// Bodies are keyed by URL; failed URLs are missing from the map and reported in the error.
func FetchConcurrently(urls []string, concurrency, wait, retry int) (map[string][]byte, error) {
	concurrency = max(concurrency, 1)

	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		errs      error
		responses = make(map[string][]byte, len(urls))
	)

	bar := pb.StartNew(len(urls))
	tasks := GenWorkers(concurrency, wait)
	for _, url := range urls {
		url := url
		wg.Add(1)
		tasks <- func() {
			defer wg.Done()
			defer bar.Increment()

			res, err := FetchURL(url, "", retry)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = multierror.Append(errs, xerrors.Errorf("%s: %w", url, err))
				return
			}
			responses[url] = res
		}
	}
	wg.Wait()
	close(tasks)
	bar.Finish()

	return responses, errs
}

func LookupEnv(key, defaultValue string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultValue
}

// Grammarize converts elements to a sentence such as "a, b and c"
func Grammarize[T any](elements []T) string {
	switch len(elements) {
	case 0:
		return ""
	case 1:
		return fmt.Sprint(elements[0])
	}
	head := lo.Map(elements[:len(elements)-1], func(e T, _ int) string {
		return fmt.Sprint(e)
	})
	return fmt.Sprintf("%s and %v", strings.Join(head, ", "), elements[len(elements)-1])
}

// InitMap returns a map with every key set to value
func InitMap[K comparable, V any](keys []K, value V) map[K]V {
	return lo.SliceToMap(keys, func(k K) (K, V) {
		return k, value
	})
}

// Normalize drops non-ASCII characters, trims the string and collapses whitespace
func Normalize(str string) string {
	ascii := strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, str)
	return strings.Join(strings.Fields(ascii), " ")
}

// TimeStamp returns the current Unix time in seconds after waiting for delay
func TimeStamp(delay time.Duration) string {
	time.Sleep(delay)
	return strconv.FormatInt(time.Now().Unix(), 10)
}
