package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gobeaver/assetguard"
)

type fakeObject struct {
	data         []byte
	contentType  string
	cacheControl string
	metadata     map[string]string
	modTime      time.Time
}

// fakeClient is an in-memory bucket. ListObjectsV2 pages two keys at a time
// to exercise pagination.
type fakeClient struct {
	mu      sync.Mutex
	objects map[string]*fakeObject
	putErr  error
}

func newFakeClient() *fakeClient {
	return &fakeClient{objects: make(map[string]*fakeObject)}
}

func (f *fakeClient) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	if aws.ToInt64(in.ContentLength) != int64(len(data)) {
		return nil, errors.New("content length mismatch")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = &fakeObject{
		data:         data,
		contentType:  aws.ToString(in.ContentType),
		cacheControl: aws.ToString(in.CacheControl),
		metadata:     in.Metadata,
		modTime:      time.Now(),
	}
	return &s3.PutObjectOutput{ETag: aws.String(`"etag"`)}, nil
}

func (f *fakeClient) get(key string) (*fakeObject, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[key]
	return obj, ok
}

func (f *fakeClient) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	obj, ok := f.get(aws.ToString(in.Key))
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(obj.data))}, nil
}

func (f *fakeClient) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	obj, ok := f.get(aws.ToString(in.Key))
	if !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{
		ContentLength: aws.Int64(int64(len(obj.data))),
		ContentType:   aws.String(obj.contentType),
		LastModified:  aws.Time(obj.modTime),
		Metadata:      obj.metadata,
	}, nil
}

func (f *fakeClient) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeClient) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	start := 0
	if token := aws.ToString(in.ContinuationToken); token != "" {
		start = sort.SearchStrings(keys, token)
	}
	end := min(start+2, len(keys))

	out := &s3.ListObjectsV2Output{}
	for _, k := range keys[start:end] {
		obj := f.objects[k]
		out.Contents = append(out.Contents, types.Object{
			Key:          aws.String(k),
			Size:         aws.Int64(int64(len(obj.data))),
			LastModified: aws.Time(obj.modTime),
		})
	}
	if end < len(keys) {
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(keys[end])
	}
	return out, nil
}

func TestWriteAndRead(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()
	a := New(client, "bucket", WithPrefix("/media/"))

	res, err := a.Write(ctx, "projects/pdfs/a.pdf", io.LimitReader(strings.NewReader("%PDF-1.7 body"), 8),
		assetguard.WithContentType("application/pdf"),
		assetguard.WithCacheControl("max-age=60"),
		assetguard.WithMetadata(map[string]string{"checksum": "abc"}),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.BytesWritten != 8 {
		t.Errorf("expected 8 bytes written, got %d", res.BytesWritten)
	}

	obj, ok := client.get("media/projects/pdfs/a.pdf")
	if !ok {
		t.Fatal("expected object under the configured prefix")
	}
	if obj.contentType != "application/pdf" || obj.cacheControl != "max-age=60" {
		t.Errorf("unexpected headers: %q %q", obj.contentType, obj.cacheControl)
	}

	data, err := a.ReadAll(ctx, "projects/pdfs/a.pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "%PDF-1.7" {
		t.Errorf("unexpected content %q", data)
	}

	info, err := a.Stat(ctx, "projects/pdfs/a.pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Size != 8 || info.Metadata["checksum"] != "abc" || info.Path != "projects/pdfs/a.pdf" {
		t.Errorf("unexpected stat: %+v", info)
	}
}

func TestWriteRefusesOverwrite(t *testing.T) {
	ctx := context.Background()
	a := New(newFakeClient(), "bucket")

	if _, err := a.Write(ctx, "a.png", strings.NewReader("one")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := a.Write(ctx, "a.png", strings.NewReader("two")); !assetguard.IsExist(err) {
		t.Errorf("expected exist error, got %v", err)
	}
	if _, err := a.Write(ctx, "a.png", strings.NewReader("two"), assetguard.WithOverwrite(true)); err != nil {
		t.Errorf("unexpected error with overwrite: %v", err)
	}
	if _, err := a.Write(ctx, "../a.png", strings.NewReader("x")); !assetguard.IsNotAllowed(err) {
		t.Errorf("expected not allowed error, got %v", err)
	}
}

func TestWriteError(t *testing.T) {
	client := newFakeClient()
	client.putErr = errors.New("access denied")
	a := New(client, "bucket")

	_, err := a.Write(context.Background(), "a.png", strings.NewReader("x"))
	var pe *assetguard.PathError
	if !errors.As(err, &pe) || pe.Op != "write" {
		t.Errorf("expected write PathError, got %v", err)
	}
}

func TestNotFound(t *testing.T) {
	ctx := context.Background()
	a := New(newFakeClient(), "bucket")

	if _, err := a.Read(ctx, "missing.pdf"); !assetguard.IsNotExist(err) {
		t.Errorf("Read: expected not exist, got %v", err)
	}
	if _, err := a.Stat(ctx, "missing.pdf"); !assetguard.IsNotExist(err) {
		t.Errorf("Stat: expected not exist, got %v", err)
	}
	exists, err := a.FileExists(ctx, "missing.pdf")
	if err != nil || exists {
		t.Errorf("FileExists = %v, %v; want false, nil", exists, err)
	}
	if err := a.Delete(ctx, "missing.pdf"); err != nil {
		t.Errorf("Delete of missing object: %v", err)
	}
}

func TestList(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()
	a := New(client, "bucket", WithPrefix("media"))

	for _, p := range []string{
		"projects/thumbnails/c.gif",
		"projects/thumbnails/a.png",
		"projects/thumbnails/b.jpg",
		"projects/pdfs/d.pdf",
	} {
		if _, err := a.Write(ctx, p, strings.NewReader(p)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	// Directory marker and an object outside the prefix
	client.objects["media/projects/thumbnails/"] = &fakeObject{}
	client.objects["other/projects/thumbnails/z.png"] = &fakeObject{}

	files, err := a.List(ctx, "projects/thumbnails")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"projects/thumbnails/a.png", "projects/thumbnails/b.jpg", "projects/thumbnails/c.gif"}
	if len(files) != len(want) {
		t.Fatalf("expected %d files, got %d: %v", len(want), len(files), files)
	}
	for i, f := range files {
		if f.Path != want[i] {
			t.Errorf("files[%d] = %s, want %s", i, f.Path, want[i])
		}
	}

	empty, err := a.List(ctx, "projects/videos")
	if err != nil || len(empty) != 0 {
		t.Errorf("List(videos) = %v, %v; want empty", empty, err)
	}
}
