package documents

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexcrm/backend/internal/blob"
	"lexcrm/backend/internal/domain"
	"lexcrm/backend/internal/service"
	"lexcrm/backend/internal/store"
)

type fakeRepo struct {
	createFn func(ctx context.Context, d domain.Document) (domain.Document, error)
	getFn    func(ctx context.Context, id uuid.UUID) (domain.Document, error)
	deleteFn func(ctx context.Context, id uuid.UUID) error
}

func (f *fakeRepo) Create(ctx context.Context, d domain.Document) (domain.Document, error) {
	if f.createFn == nil {
		panic("Create not configured")
	}
	return f.createFn(ctx, d)
}

func (f *fakeRepo) Get(ctx context.Context, id uuid.UUID) (domain.Document, error) {
	if f.getFn == nil {
		panic("Get not configured")
	}
	return f.getFn(ctx, id)
}

func (f *fakeRepo) ListByClient(ctx context.Context, clientID uuid.UUID) ([]domain.Document, error) {
	panic("ListByClient not configured")
}

func (f *fakeRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if f.deleteFn == nil {
		panic("Delete not configured")
	}
	return f.deleteFn(ctx, id)
}

type knownClients map[uuid.UUID]bool

func (k knownClients) Get(ctx context.Context, id uuid.UUID) (domain.Client, error) {
	if !k[id] {
		return domain.Client{}, store.ErrNotFound
	}
	return domain.Client{ID: id}, nil
}

func newLocalBlobs(t *testing.T) *blob.Local {
	t.Helper()
	l, err := blob.NewLocal(t.TempDir())
	require.NoError(t, err)
	return l
}

func TestUpload_StoresContentAndRow(t *testing.T) {
	clientID := uuid.New()
	blobs := newLocalBlobs(t)
	var created domain.Document
	repo := &fakeRepo{createFn: func(ctx context.Context, d domain.Document) (domain.Document, error) {
		created = d
		return d, nil
	}}
	svc := NewService(repo, knownClients{clientID: true}, blobs, nil)

	doc, err := svc.Upload(context.Background(), UploadInput{
		ClientID: clientID,
		Name:     `C:\scans\procuracao.pdf`,
		Size:     5,
		Body:     strings.NewReader("%PDF-"),
	})
	require.NoError(t, err)
	assert.Equal(t, "procuracao.pdf", doc.Name)
	assert.Equal(t, "application/octet-stream", doc.ContentType)
	assert.NotEqual(t, uuid.Nil, doc.ID)
	assert.True(t, strings.HasPrefix(created.StorageKey, clientID.String()+"/"))

	rc, err := blobs.Get(context.Background(), doc.StorageKey)
	require.NoError(t, err)
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	assert.Equal(t, "%PDF-", string(body))
}

func TestUpload_FailedInsertRemovesContent(t *testing.T) {
	clientID := uuid.New()
	blobs := newLocalBlobs(t)
	var key string
	repo := &fakeRepo{createFn: func(ctx context.Context, d domain.Document) (domain.Document, error) {
		key = d.StorageKey
		return domain.Document{}, errors.New("insert failed")
	}}
	svc := NewService(repo, knownClients{clientID: true}, blobs, nil)

	_, err := svc.Upload(context.Background(), UploadInput{ClientID: clientID, Name: "a.txt", Body: strings.NewReader("x")})
	require.Error(t, err)
	_, err = blobs.Get(context.Background(), key)
	require.ErrorIs(t, err, blob.ErrNotFound)
}

func TestUpload_Validation(t *testing.T) {
	svc := NewService(&fakeRepo{}, knownClients{}, newLocalBlobs(t), nil)

	tests := []struct {
		name string
		in   UploadInput
	}{
		{name: "no client", in: UploadInput{Name: "a.txt", Body: strings.NewReader("x")}},
		{name: "unknown client", in: UploadInput{ClientID: uuid.New(), Name: "a.txt", Body: strings.NewReader("x")}},
		{name: "no name", in: UploadInput{ClientID: uuid.New(), Body: strings.NewReader("x")}},
		{name: "no body", in: UploadInput{ClientID: uuid.New(), Name: "a.txt"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Upload(context.Background(), tt.in)
			var vErr *service.ValidationError
			require.ErrorAs(t, err, &vErr)
		})
	}
}

func TestOpenAndDelete(t *testing.T) {
	blobs := newLocalBlobs(t)
	require.NoError(t, blobs.Put(context.Background(), "c/doc.txt", strings.NewReader("conteúdo"), -1, "text/plain"))
	doc := domain.Document{ID: uuid.New(), Name: "doc.txt", StorageKey: "c/doc.txt"}

	deleted := false
	repo := &fakeRepo{
		getFn: func(ctx context.Context, id uuid.UUID) (domain.Document, error) {
			if id != doc.ID || deleted {
				return domain.Document{}, store.ErrNotFound
			}
			return doc, nil
		},
		deleteFn: func(ctx context.Context, id uuid.UUID) error {
			deleted = true
			return nil
		},
	}
	svc := NewService(repo, knownClients{}, blobs, nil)

	got, rc, err := svc.Open(context.Background(), doc.ID)
	require.NoError(t, err)
	body, _ := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	assert.Equal(t, doc, got)
	assert.Equal(t, "conteúdo", string(body))

	require.NoError(t, svc.Delete(context.Background(), doc.ID))
	_, err = blobs.Get(context.Background(), "c/doc.txt")
	require.ErrorIs(t, err, blob.ErrNotFound)

	_, _, err = svc.Open(context.Background(), doc.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestOpen_MissingContentIsNotFound(t *testing.T) {
	repo := &fakeRepo{getFn: func(ctx context.Context, id uuid.UUID) (domain.Document, error) {
		return domain.Document{ID: id, StorageKey: "gone"}, nil
	}}
	svc := NewService(repo, knownClients{}, newLocalBlobs(t), nil)

	_, _, err := svc.Open(context.Background(), uuid.New())
	require.ErrorIs(t, err, store.ErrNotFound)
}
