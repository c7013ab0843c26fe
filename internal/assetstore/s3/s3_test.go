package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 is a tiny in-memory subset of the S3 REST API: PUT, DELETE and
// ListObjectsV2 on a path-style bucket.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]string // key -> content type
	failPut bool
}

func (f *fakeS3) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}
	if req.Body != nil {
		_, _ = io.Copy(io.Discard, req.Body)
	}

	switch {
	case req.Method == http.MethodGet && req.URL.Query().Get("list-type") == "2":
		prefix := req.URL.Query().Get("prefix")
		var keys []string
		for k := range f.objects {
			if strings.HasPrefix(k, prefix) {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		var b strings.Builder
		b.WriteString(`<?xml version="1.0"?><ListBucketResult><IsTruncated>false</IsTruncated>`)
		for _, k := range keys {
			b.WriteString(fmt.Sprintf("<Contents><Key>%s</Key><Size>1</Size><LastModified>2026-01-01T00:00:00Z</LastModified></Contents>", k))
		}
		b.WriteString("</ListBucketResult>")
		return response(http.StatusOK, b.String(), http.Header{"Content-Type": {"application/xml"}}), nil
	case req.Method == http.MethodPut:
		if f.failPut {
			return response(http.StatusServiceUnavailable,
				`<?xml version="1.0"?><Error><Code>SlowDown</Code><Message>busy</Message></Error>`,
				http.Header{"Content-Type": {"application/xml"}}), nil
		}
		f.objects[key] = req.Header.Get("Content-Type")
		return response(http.StatusOK, "", http.Header{"ETag": {`"etag"`}}), nil
	case req.Method == http.MethodDelete:
		delete(f.objects, key)
		return response(http.StatusNoContent, "", http.Header{}), nil
	}
	return response(http.StatusNotImplemented, "", http.Header{}), nil
}

func response(status int, body string, h http.Header) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(body)), Header: h}
}

func newFakeStore(t *testing.T) (*Store, *fakeS3) {
	t.Helper()
	fake := &fakeS3{objects: make(map[string]string)}
	awsCfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("AKIA", "SECRET", "")),
	)
	require.NoError(t, err)
	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		o.HTTPClient = &http.Client{Transport: fake}
		o.UsePathStyle = true
		o.BaseEndpoint = aws.String("https://mock.s3.local")
		o.RetryMaxAttempts = 1
	})
	cfg := Config{Bucket: "alarms", Region: "us-east-1", Endpoint: "https://mock.s3.local", PathStyle: true}
	return newWithClient(client, cfg), fake
}

func TestStorePutListDelete(t *testing.T) {
	store, fake := newFakeStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "sounds/k1.mp3", "audio/mpeg", bytes.NewReader([]byte("ID3"))))
	require.NoError(t, store.Put(ctx, "sounds/k1.mp3--thumb", "image/jpeg", bytes.NewReader([]byte("x"))))
	require.NoError(t, store.Put(ctx, "sounds/k2.mp3", "audio/mpeg", bytes.NewReader([]byte("ID3"))))
	assert.Equal(t, "audio/mpeg", fake.objects["sounds/k1.mp3"])

	keys, err := store.List(ctx, "sounds/k1.mp3")
	require.NoError(t, err)
	assert.Equal(t, []string{"sounds/k1.mp3", "sounds/k1.mp3--thumb"}, keys)

	require.NoError(t, store.Delete(ctx, "sounds/k1.mp3"))
	_, exists := fake.objects["sounds/k1.mp3"]
	assert.False(t, exists)
}

func TestStorePutError(t *testing.T) {
	store, fake := newFakeStore(t)
	fake.failPut = true

	err := store.Put(context.Background(), "sounds/k.wav", "audio/wav", bytes.NewReader([]byte("RIFF")))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "sounds/k.wav"))
	assert.False(t, errors.Is(err, context.Canceled))
}

func TestNewRequiresBucket(t *testing.T) {
	_, err := New(context.Background(), Config{})
	assert.Error(t, err)
}

func TestPublicBase(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"explicit", Config{Bucket: "b", PublicURL: "https://cdn.example.com/"}, "https://cdn.example.com"},
		{"path style endpoint", Config{Bucket: "b", Endpoint: "http://minio:9000", PathStyle: true}, "http://minio:9000/b"},
		{"virtual host endpoint", Config{Bucket: "b", Endpoint: "https://s3.example.com"}, "https://b.s3.example.com"},
		{"aws default", Config{Bucket: "b", Region: "eu-west-1"}, "https://b.s3.eu-west-1.amazonaws.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, publicBase(tt.cfg))
		})
	}
}
