package blob

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_PutGetDelete(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "clients/1/contrato.pdf", strings.NewReader("pdf bytes"), 9, "application/pdf"))

	rc, err := store.Get(ctx, "clients/1/contrato.pdf")
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "pdf bytes", string(body))

	require.NoError(t, store.Delete(ctx, "clients/1/contrato.pdf"))
	require.NoError(t, store.Delete(ctx, "clients/1/contrato.pdf"))

	_, err = store.Get(ctx, "clients/1/contrato.pdf")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLocal_KeysStayUnderRoot(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocal(root)
	require.NoError(t, err)

	require.NoError(t, store.Put(context.Background(), "../../escape.txt", strings.NewReader("x"), 1, ""))
	p, err := store.path("../../escape.txt")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(p, root), "path %s outside %s", p, root)

	_, err = store.path("")
	require.Error(t, err)
}

type mockS3Client struct {
	objects map[string][]byte
	types   map[string]string
	deleted []string
}

func newMockS3() *mockS3Client {
	return &mockS3Client{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (m *mockS3Client) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	m.objects[*in.Key] = body
	if in.ContentType != nil {
		m.types[*in.Key] = *in.ContentType
	}
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3Client) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := m.objects[*in.Key]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (m *mockS3Client) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	m.deleted = append(m.deleted, *in.Key)
	delete(m.objects, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3_PrefixesKeys(t *testing.T) {
	mock := newMockS3()
	store, err := NewS3(mock, "lexcrm-docs", "/documents/")
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "a/b.pdf", strings.NewReader("data"), 4, "application/pdf"))
	assert.Equal(t, []byte("data"), mock.objects["documents/a/b.pdf"])
	assert.Equal(t, "application/pdf", mock.types["documents/a/b.pdf"])

	rc, err := store.Get(ctx, "a/b.pdf")
	require.NoError(t, err)
	body, _ := io.ReadAll(rc)
	assert.Equal(t, "data", string(body))

	require.NoError(t, store.Delete(ctx, "a/b.pdf"))
	assert.Equal(t, []string{"documents/a/b.pdf"}, mock.deleted)

	_, err = store.Get(ctx, "a/b.pdf")
	require.ErrorIs(t, err, ErrNotFound)
}

type failingS3 struct{ mockS3Client }

func (f *failingS3) PutObject(context.Context, *s3.PutObjectInput, ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	return nil, errors.New("access denied")
}

func TestS3_WrapsFailures(t *testing.T) {
	store, err := NewS3(&failingS3{}, "bucket", "")
	require.NoError(t, err)

	err = store.Put(context.Background(), "k", strings.NewReader("x"), 1, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")

	_, err = NewS3(newMockS3(), " ", "")
	require.Error(t, err)
}
