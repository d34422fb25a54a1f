package blobsvc

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/trezcool/schoolhub/core"
)

// Disk keeps the files under a local directory, served by the web app at baseURL.
type Disk struct {
	dir     string
	baseURL string
}

var _ core.BlobStore = (*Disk)(nil)

func NewDisk(dir, baseURL string) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating %s", dir)
	}
	return &Disk{dir: dir, baseURL: baseURL}, nil
}

// Dir is the root directory of the store.
func (d *Disk) Dir() string { return d.dir }

func (d *Disk) Put(_ context.Context, key string, r io.Reader, _ string) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	fp := filepath.Join(d.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(fp), 0o755); err != nil {
		return "", errors.Wrap(err, "creating blob directory")
	}

	f, err := os.Create(fp)
	if err != nil {
		return "", errors.Wrap(err, "creating blob")
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return "", errors.Wrap(err, "writing blob")
	}
	if err := f.Close(); err != nil {
		return "", errors.Wrap(err, "closing blob")
	}
	return d.baseURL + "/" + key, nil
}

func (d *Disk) Delete(_ context.Context, key string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(d.dir, filepath.FromSlash(key)))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing blob")
	}
	return nil
}
