package cache_test

import (
	"net/url"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"

	"github.com/cvetl/cvetl/cache"
	"github.com/cvetl/cvetl/content"
)

const dir = "/cache"

func newStore(t *testing.T, files map[string]string) (*cache.Store, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll(dir, 0755))
	for name, data := range files {
		require.NoError(t, afero.WriteFile(fs, filepath.Join(dir, name), []byte(data), 0644))
	}
	return cache.NewStore(cache.WithFs(fs), cache.WithDir(dir)), fs
}

func TestStore_DumpLoad(t *testing.T) {
	tests := []struct {
		name string
		data interface{}
	}{
		{
			name: "object",
			data: map[string]interface{}{
				"1.3": []interface{}{"1.0", "1.2"},
				"2.1": []interface{}{"2.0"},
			},
		},
		{
			name: "array",
			data: []interface{}{"a", float64(1), true, nil},
		},
		{
			name: "nested",
			data: map[string]interface{}{
				"advisory": map[string]interface{}{"id": "ADV-1", "score": 7.5},
				"empty":    map[string]interface{}{},
			},
		},
		{
			name: "string",
			data: "plain",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newStore(t, nil)
			path := filepath.Join(dir, "snapshot.json")

			require.NoError(t, s.Dump(path, tt.data))

			var got interface{}
			require.NoError(t, s.Load(path, &got))
			assert.Equal(t, tt.data, got)
		})
	}
}

func TestStore_DumpFormat(t *testing.T) {
	s, fs := newStore(t, map[string]string{"snapshot.json": `{"old": "content that is longer than the new one"}`})
	path := filepath.Join(dir, "snapshot.json")

	require.NoError(t, s.Dump(path, map[string][]string{"1.3": {"1.0", "1.2"}}))

	got, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"1.3\": [\n    \"1.0\",\n    \"1.2\"\n  ]\n}", string(got))
}

func TestStore_Load(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		want    map[string]string
		wantErr bool
	}{
		{
			name: "happy path",
			file: "feed.json",
			want: map[string]string{"a": "b"},
		},
		{
			name: "missing file",
			file: "missing.json",
			want: map[string]string{},
		},
		{
			name: "empty file",
			file: "empty.json",
			want: map[string]string{},
		},
		{
			name:    "sad path: invalid JSON",
			file:    "broken.json",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newStore(t, map[string]string{
				"feed.json":   `{"a": "b"}`,
				"empty.json":  "",
				"broken.json": "{",
			})

			got := map[string]string{}
			err := s.Load(filepath.Join(dir, tt.file), &got)
			if tt.wantErr {
				var perr *cache.ParseError
				require.True(t, xerrors.As(err, &perr))
				assert.Equal(t, filepath.Join(dir, tt.file), perr.Path)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStore_LoadEmptyStructure(t *testing.T) {
	s, _ := newStore(t, map[string]string{"empty.json": ""})

	for _, file := range []string{"empty.json", "missing.json"} {
		var got interface{}
		require.NoError(t, s.Load(filepath.Join(dir, file), &got), file)
		assert.Equal(t, map[string]interface{}{}, got, file)
	}

	got := []string{"kept"}
	require.NoError(t, s.Load(filepath.Join(dir, "missing.json"), &got))
	assert.Equal(t, []string{"kept"}, got)
}

func TestStore_Path(t *testing.T) {
	s, _ := newStore(t, nil)
	u, err := url.Parse("https://example.com/advisories/list")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "example.com_advisories_list.html"), s.Path(u, content.HTML))
	assert.Equal(t, s.Path(u, content.HTML), s.Path(u, content.HTML))
}

func TestStore_FreshChanged(t *testing.T) {
	s, _ := newStore(t, map[string]string{
		"feed.html":  "<html></html>",
		"empty.html": "",
	})

	tests := []struct {
		name        string
		file        string
		input       string
		wantFresh   bool
		wantChanged bool
	}{
		{name: "same content", file: "feed.html", input: "<html></html>", wantFresh: true, wantChanged: false},
		{name: "new content", file: "feed.html", input: "<html><body/></html>", wantFresh: true, wantChanged: true},
		{name: "empty file", file: "empty.html", input: "", wantFresh: false, wantChanged: true},
		{name: "missing file", file: "missing.html", input: "x", wantFresh: false, wantChanged: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)

			fresh, err := s.Fresh(path)
			require.NoError(t, err)
			assert.Equal(t, tt.wantFresh, fresh)

			changed, err := s.Changed(path, []byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.wantChanged, changed)
		})
	}
}

func TestStore_PutHash(t *testing.T) {
	s, _ := newStore(t, nil)
	path := filepath.Join(dir, "hello.txt")

	require.NoError(t, s.Put(path, []byte("hello")))
	got, err := s.Hash(path)
	require.NoError(t, err)
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", got)
}
