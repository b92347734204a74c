package utils

import (
	"context"
	"os"

	getter "github.com/hashicorp/go-getter"
	"golang.org/x/xerrors"
)

const tempPrefix = "cvetl"

// Download fetches src with go-getter and returns its content.
// Archives and compressed files are unpacked by go-getter according to the source extension.
func Download(ctx context.Context, src string) ([]byte, error) {
	tmpFile, err := DownloadToTempFile(ctx, src)
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmpFile)

	b, err := os.ReadFile(tmpFile)
	if err != nil {
		return nil, xerrors.Errorf("unable to read %s: %w", tmpFile, err)
	}
	return b, nil
}

func DownloadToTempFile(ctx context.Context, src string) (string, error) {
	f, err := os.CreateTemp("", tempPrefix)
	if err != nil {
		return "", xerrors.Errorf("failed to create a temp file: %w", err)
	}
	if err = f.Close(); err != nil {
		return "", xerrors.Errorf("close error: %w", err)
	}

	if err = download(ctx, src, f.Name(), getter.ClientModeFile); err != nil {
		os.Remove(f.Name())
		return "", xerrors.Errorf("download error: %w", err)
	}

	return f.Name(), nil
}

func download(ctx context.Context, src, dst string, mode getter.ClientMode) error {
	pwd, err := os.Getwd()
	if err != nil {
		return xerrors.Errorf("unable to get the current dir: %w", err)
	}

	client := &getter.Client{
		Ctx:     ctx,
		Src:     src,
		Dst:     dst,
		Pwd:     pwd,
		Getters: getter.Getters,
		Mode:    mode,
	}

	if err = client.Get(); err != nil {
		return xerrors.Errorf("failed to download: %w", err)
	}

	return nil
}
