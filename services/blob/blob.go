// Package blobsvc stores uploaded files.
package blobsvc

import (
	"path"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/schoolhub/core"
)

const (
	DriverDisk = "disk"
	DriverS3   = "s3"
)

// New returns the blob store selected by conf.Blob.Driver.
func New(conf *core.Config) (core.BlobStore, error) {
	switch conf.Blob.Driver {
	case DriverDisk, "":
		return NewDisk(conf.Blob.Dir, conf.Blob.PublicBaseURL)
	case DriverS3:
		return NewS3(conf.Blob)
	default:
		return nil, errors.Errorf("unknown blob driver %q", conf.Blob.Driver)
	}
}

// cleanKey rejects keys escaping the store root.
func cleanKey(key string) (string, error) {
	k := strings.TrimPrefix(path.Clean("/"+key), "/")
	if k == "" || k == "." {
		return "", errors.Errorf("invalid blob key %q", key)
	}
	return k, nil
}
