package evidence

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/agencydir/internal/config"
)

func TestCleanKey(t *testing.T) {
	for _, key := range []string{"submissions/a/evidence/x.pdf", "x.pdf"} {
		got, err := cleanKey(key)
		require.NoError(t, err, key)
		assert.Equal(t, key, got)
	}
	for _, key := range []string{"", "/etc/passwd", "../x", "a/../../x", "a//b", "a\\b", ".", "a/./b"} {
		_, err := cleanKey(key)
		assert.ErrorIs(t, err, ErrInvalidKey, key)
	}
}

func TestFS_Put(t *testing.T) {
	dir := t.TempDir()
	store := NewFS(dir)
	key := "submissions/abc/evidence/report.pdf"

	require.NoError(t, store.Put(context.Background(), key, strings.NewReader("%PDF-1.7"), 8, "application/pdf"))

	p, err := store.Path(key)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "submissions", "abc", "evidence", "report.pdf"), p)

	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7", string(data))

	entries, err := os.ReadDir(filepath.Dir(p))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file removed")
}

func TestFS_PutOverwrites(t *testing.T) {
	store := NewFS(t.TempDir())
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "k.png", strings.NewReader("one"), 3, "image/png"))
	require.NoError(t, store.Put(ctx, "k.png", strings.NewReader("two"), 3, "image/png"))

	p, _ := store.Path("k.png")
	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))
}

func TestFS_RejectsEscapingKey(t *testing.T) {
	dir := t.TempDir()
	err := NewFS(filepath.Join(dir, "root")).Put(context.Background(), "../outside.pdf", strings.NewReader("x"), 1, "")
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, statErr := os.Stat(filepath.Join(dir, "outside.pdf"))
	assert.True(t, os.IsNotExist(statErr))
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("client went away") }

func TestFS_PutLeavesNothingOnReadError(t *testing.T) {
	store := NewFS(t.TempDir())
	err := store.Put(context.Background(), "a/b.pdf", failingReader{}, 10, "")
	require.Error(t, err)

	p, _ := store.Path("a/b.pdf")
	_, statErr := os.Stat(p)
	assert.True(t, os.IsNotExist(statErr))
}

type fakePutter struct {
	in   *s3.PutObjectInput
	body string
	err  error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.in = in
	data, _ := io.ReadAll(in.Body)
	f.body = string(data)
	return &s3.PutObjectOutput{}, f.err
}

func TestS3_Put(t *testing.T) {
	fake := &fakePutter{}
	store := &S3{client: fake, bucket: "evidence"}

	err := store.Put(context.Background(), "submissions/x/evidence/a.png", io.NopCloser(strings.NewReader("png!")), 0, "image/png")
	require.NoError(t, err)

	assert.Equal(t, "evidence", aws.ToString(fake.in.Bucket))
	assert.Equal(t, "submissions/x/evidence/a.png", aws.ToString(fake.in.Key))
	assert.Equal(t, "image/png", aws.ToString(fake.in.ContentType))
	assert.Equal(t, int64(4), aws.ToInt64(fake.in.ContentLength), "buffered body length")
	assert.Equal(t, "png!", fake.body)
}

func TestS3_PutWrapsError(t *testing.T) {
	store := &S3{client: &fakePutter{err: errors.New("AccessDenied")}, bucket: "b"}
	err := store.Put(context.Background(), "k.pdf", strings.NewReader("x"), 1, "application/pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AccessDenied")
}

func TestNew(t *testing.T) {
	s, err := New(context.Background(), config.EvidenceConfig{Backend: "fs", Dir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &FS{}, s)

	_, err = New(context.Background(), config.EvidenceConfig{Backend: "gcs"})
	assert.Error(t, err)
}
