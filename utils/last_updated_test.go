package utils_test

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cvetl/cvetl/utils"
)

func TestFs_LastUpdatedDate(t *testing.T) {
	fs := utils.NewFs(afero.NewMemMapFs())
	dir := "/cache"
	require.NoError(t, fs.AppFs.MkdirAll(dir, 0755))

	got, err := fs.GetLastUpdatedDate(dir, "example.com_feed.json")
	require.NoError(t, err)
	assert.Equal(t, time.Unix(0, 0), got)

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, fs.SetLastUpdatedDate(dir, "example.com_feed.json", now))
	require.NoError(t, fs.SetLastUpdatedDate(dir, "example.com_other.html", now.Add(time.Hour)))

	got, err = fs.GetLastUpdatedDate(dir, "example.com_feed.json")
	require.NoError(t, err)
	assert.True(t, now.Equal(got))

	got, err = fs.GetLastUpdatedDate(dir, "example.com_other.html")
	require.NoError(t, err)
	assert.True(t, now.Add(time.Hour).Equal(got))
}
