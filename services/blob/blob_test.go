package blobsvc

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisk(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	d, err := NewDisk(dir, "/uploads")
	require.NoError(t, err)

	url, err := d.Put(ctx, "avatars/students/1.png", strings.NewReader("png"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "/uploads/avatars/students/1.png", url)
	content, err := os.ReadFile(filepath.Join(dir, "avatars", "students", "1.png"))
	require.NoError(t, err)
	assert.Equal(t, "png", string(content))

	url, err = d.Put(ctx, "../../etc/passwd", strings.NewReader("x"), "")
	require.NoError(t, err)
	assert.Equal(t, "/uploads/etc/passwd", url)

	_, err = d.Put(ctx, "/", strings.NewReader("x"), "")
	assert.Error(t, err)

	require.NoError(t, d.Delete(ctx, "avatars/students/1.png"))
	_, err = os.Stat(filepath.Join(dir, "avatars", "students", "1.png"))
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, d.Delete(ctx, "avatars/students/1.png"))
}

func TestS3(t *testing.T) {
	var (
		mu      sync.Mutex
		objects = make(map[string]string)
		types   = make(map[string]string)
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		switch r.Method {
		case http.MethodPut:
			body, _ := io.ReadAll(r.Body)
			objects[r.URL.Path] = string(body)
			types[r.URL.Path] = r.Header.Get("Content-Type")
		case http.MethodDelete:
			delete(objects, r.URL.Path)
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sess, err := session.NewSession(&aws.Config{
		Region:           aws.String("us-east-1"),
		Endpoint:         aws.String(srv.URL),
		S3ForcePathStyle: aws.Bool(true),
		Credentials:      credentials.NewStaticCredentials("key", "secret", ""),
	})
	require.NoError(t, err)
	store := NewS3WithClient(s3.New(sess), "avatars", "https://cdn.school.test")
	ctx := context.Background()

	url, err := store.Put(ctx, "students/1.jpg", strings.NewReader("jpeg"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.school.test/students/1.jpg", url)

	mu.Lock()
	assert.Equal(t, "jpeg", objects["/avatars/students/1.jpg"])
	assert.Equal(t, "image/jpeg", types["/avatars/students/1.jpg"])
	mu.Unlock()

	require.NoError(t, store.Delete(ctx, "students/1.jpg"))
	mu.Lock()
	assert.NotContains(t, objects, "/avatars/students/1.jpg")
	mu.Unlock()
}
