package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/stretchr/testify/require"
)

func TestObjectKey(t *testing.T) {
	require.Equal(t, "user-1/job-9/quote_Q-9-1.pdf", ObjectKey("user-1", "job-9", "quote_Q-9-1.pdf"))
}

func TestCleanKey(t *testing.T) {
	cases := []struct {
		key  string
		want string
		ok   bool
	}{
		{"a/b/c.pdf", "a/b/c.pdf", true},
		{"a//b/./c.pdf", "a/b/c.pdf", true},
		{"", "", false},
		{"/etc/passwd", "", false},
		{"a/../../x", "", false},
		{"..", "", false},
		{`a\b`, "", false},
		{".", "", false},
	}
	for _, tc := range cases {
		got, err := CleanKey(tc.key)
		if !tc.ok {
			require.ErrorIs(t, err, ErrInvalidKey, tc.key)
			continue
		}
		require.NoError(t, err, tc.key)
		require.Equal(t, tc.want, got)
	}
}

func TestFSPutGet(t *testing.T) {
	dir := t.TempDir()
	store := NewFS(dir)
	ctx := context.Background()

	obj, err := store.Put(ctx, "owner/job/invoice.pdf", "application/pdf", []byte("%PDF-1.3"))
	require.NoError(t, err)
	require.Equal(t, "owner/job/invoice.pdf", obj.Key)
	require.EqualValues(t, 8, obj.Size)
	require.Equal(t, filepath.Join(dir, "owner", "job", "invoice.pdf"), obj.Location)

	data, err := store.Get(ctx, obj.Key)
	require.NoError(t, err)
	require.Equal(t, "%PDF-1.3", string(data))

	entries, err := os.ReadDir(filepath.Join(dir, "owner", "job"))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	require.NoError(t, store.Delete(ctx, obj.Key))
	_, err = store.Get(ctx, obj.Key)
	require.ErrorIs(t, err, ErrObjectNotFound)
	require.NoError(t, store.Delete(ctx, obj.Key))
}

func TestFSRejectsEscapingKeys(t *testing.T) {
	store := NewFS(t.TempDir())
	_, err := store.Put(context.Background(), "../outside.pdf", "application/pdf", []byte("x"))
	require.ErrorIs(t, err, ErrInvalidKey)
	_, err = store.Get(context.Background(), "../outside.pdf")
	require.ErrorIs(t, err, ErrInvalidKey)
}

func TestFSGetMissing(t *testing.T) {
	_, err := NewFS(t.TempDir()).Get(context.Background(), "nope/nothing.pdf")
	require.ErrorIs(t, err, ErrObjectNotFound)
}

func TestFSHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewFS(t.TempDir()).Put(ctx, "a/b.pdf", "application/pdf", nil)
	require.ErrorIs(t, err, context.Canceled)
}

type stubUploader struct {
	input *s3manager.UploadInput
	body  string
	err   error
}

func (s *stubUploader) UploadWithContext(_ aws.Context, input *s3manager.UploadInput, _ ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.input = input
	b, _ := io.ReadAll(input.Body)
	s.body = string(b)
	return &s3manager.UploadOutput{Location: "https://bucket.s3.amazonaws.com/" + aws.StringValue(input.Key)}, nil
}

type stubGetter struct {
	objects map[string]string
	deleted []string
}

func (s *stubGetter) DeleteObjectWithContext(_ aws.Context, input *s3.DeleteObjectInput, _ ...request.Option) (*s3.DeleteObjectOutput, error) {
	s.deleted = append(s.deleted, aws.StringValue(input.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (s *stubGetter) GetObjectWithContext(_ aws.Context, input *s3.GetObjectInput, _ ...request.Option) (*s3.GetObjectOutput, error) {
	body, ok := s.objects[aws.StringValue(input.Key)]
	if !ok {
		return nil, awserr.New(s3.ErrCodeNoSuchKey, "missing", nil)
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func TestS3PutGet(t *testing.T) {
	up := &stubUploader{}
	get := &stubGetter{objects: map[string]string{"u/j/quote.pdf": "%PDF-stored"}}
	store := NewS3WithClients("docs", up, get)

	obj, err := store.Put(context.Background(), "u/j/quote.pdf", "application/pdf", []byte("%PDF-new"))
	require.NoError(t, err)
	require.Equal(t, "docs", aws.StringValue(up.input.Bucket))
	require.Equal(t, "application/pdf", aws.StringValue(up.input.ContentType))
	require.Equal(t, "%PDF-new", up.body)
	require.Equal(t, "https://bucket.s3.amazonaws.com/u/j/quote.pdf", obj.Location)

	data, err := store.Get(context.Background(), "u/j/quote.pdf")
	require.NoError(t, err)
	require.Equal(t, "%PDF-stored", string(data))

	_, err = store.Get(context.Background(), "u/j/missing.pdf")
	require.ErrorIs(t, err, ErrObjectNotFound)

	require.NoError(t, store.Delete(context.Background(), "u/j/quote.pdf"))
	require.Equal(t, []string{"u/j/quote.pdf"}, get.deleted)
}

func TestS3UploadFailure(t *testing.T) {
	store := NewS3WithClients("docs", &stubUploader{err: errors.New("throttled")}, &stubGetter{})
	_, err := store.Put(context.Background(), "u/j/quote.pdf", "application/pdf", []byte("x"))
	require.ErrorContains(t, err, "throttled")

	_, err = NewS3("", "ap-southeast-2")
	require.Error(t, err)
}
