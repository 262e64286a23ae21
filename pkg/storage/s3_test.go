package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// apiError implements smithy.APIError for assertions.
type apiError struct {
	code string
	msg  string
}

func (e *apiError) Error() string                 { return e.msg }
func (e *apiError) ErrorCode() string             { return e.code }
func (e *apiError) ErrorMessage() string          { return e.msg }
func (e *apiError) ErrorFault() smithy.ErrorFault { return smithy.FaultClient }

// mockS3 is an in-memory S3 backend with optional injected errors.
type mockS3 struct {
	mu      sync.Mutex
	objects map[string][]byte

	getErr error
	putErr error
}

func newMockS3() *mockS3 {
	return &mockS3{objects: make(map[string][]byte)}
}

func (m *mockS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[*in.Key]
	if !ok {
		return nil, &apiError{code: "NoSuchKey", msg: "no such key"}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (m *mockS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[*in.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func (m *mockS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[*in.Key]; !ok {
		return nil, &apiError{code: "NotFound", msg: "not found"}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (m *mockS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := &s3.ListObjectsV2Output{}
	for _, k := range keys {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	return out, nil
}

func TestS3RoundTrip(t *testing.T) {
	store := NewS3(newMockS3(), "archive", "")
	ctx := context.Background()

	writeFile(t, store, "takes/20260828/audio.pcm", "pcm data")

	r, err := store.Read(ctx, "takes/20260828/audio.pcm")
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	got, _ := io.ReadAll(r)
	if string(got) != "pcm data" {
		t.Fatalf("got %q", got)
	}
}

func TestS3ReadNotExist(t *testing.T) {
	store := NewS3(newMockS3(), "archive", "")
	_, err := store.Read(context.Background(), "missing")
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected os.ErrNotExist, got %v", err)
	}
}

func TestS3ReadOtherError(t *testing.T) {
	mock := newMockS3()
	mock.getErr = errors.New("network timeout")
	store := NewS3(mock, "archive", "")

	_, err := store.Read(context.Background(), "x")
	if err == nil || errors.Is(err, os.ErrNotExist) {
		t.Fatalf("want plain error, got %v", err)
	}
}

func TestS3WriteUploadError(t *testing.T) {
	mock := newMockS3()
	mock.putErr = errors.New("upload failed")
	store := NewS3(mock, "archive", "")

	w, err := store.Write(context.Background(), "obj")
	if err != nil {
		t.Fatal(err)
	}
	io.WriteString(w, "data")
	if err := w.Close(); err == nil {
		t.Fatal("expected upload error from Close")
	}
}

func TestS3KeyPrefix(t *testing.T) {
	mock := newMockS3()
	store := NewS3(mock, "archive", "voxlate")
	ctx := context.Background()

	writeFile(t, store, "takes/a/audio.pcm", "x")

	mock.mu.Lock()
	_, ok := mock.objects["voxlate/takes/a/audio.pcm"]
	mock.mu.Unlock()
	if !ok {
		t.Fatal("expected prefixed key voxlate/takes/a/audio.pcm")
	}

	// List must hand back unprefixed storage paths.
	paths, err := store.List(ctx, "takes/")
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 1 || paths[0] != "takes/a/audio.pcm" {
		t.Fatalf("paths=%v", paths)
	}
}

func TestS3DeleteIdempotent(t *testing.T) {
	store := NewS3(newMockS3(), "archive", "")
	ctx := context.Background()

	if err := store.Delete(ctx, "ghost"); err != nil {
		t.Fatal(err)
	}
	writeFile(t, store, "tmp", "x")
	if err := store.Delete(ctx, "tmp"); err != nil {
		t.Fatal(err)
	}
	if ok, _ := store.Exists(ctx, "tmp"); ok {
		t.Fatal("key should be gone after delete")
	}
}

func TestS3Exists(t *testing.T) {
	store := NewS3(newMockS3(), "archive", "")
	ctx := context.Background()

	if ok, err := store.Exists(ctx, "missing"); err != nil || ok {
		t.Fatalf("ok=%v err=%v, want false nil", ok, err)
	}
	writeFile(t, store, "present", "x")
	if ok, err := store.Exists(ctx, "present"); err != nil || !ok {
		t.Fatalf("ok=%v err=%v, want true nil", ok, err)
	}
}

func TestIsS3NotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"NoSuchKey", &apiError{code: "NoSuchKey"}, true},
		{"NotFound", &apiError{code: "NotFound"}, true},
		{"other api error", &apiError{code: "AccessDenied"}, false},
		{"plain error", errors.New("timeout"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isS3NotFound(tt.err); got != tt.want {
				t.Fatalf("isS3NotFound(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
