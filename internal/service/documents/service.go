package documents

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/google/uuid"

	"lexcrm/backend/internal/blob"
	"lexcrm/backend/internal/domain"
	"lexcrm/backend/internal/service"
	"lexcrm/backend/internal/store"
)

const defaultContentType = "application/octet-stream"

type ClientReader interface {
	Get(ctx context.Context, id uuid.UUID) (domain.Client, error)
}

type Service struct {
	repo    store.DocumentRepository
	clients ClientReader
	blobs   blob.Store
	log     *slog.Logger
}

func NewService(repo store.DocumentRepository, clients ClientReader, blobs blob.Store, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{repo: repo, clients: clients, blobs: blobs, log: log}
}

type UploadInput struct {
	ClientID    uuid.UUID
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Upload stores the content first and the row second; a failed insert removes
// the stored content again.
func (s *Service) Upload(ctx context.Context, in UploadInput) (domain.Document, error) {
	if in.ClientID == uuid.Nil {
		return domain.Document{}, service.Invalid("client id is required")
	}
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(in.Name), `\`, "/"))
	if name == "" || name == "." || name == "/" {
		return domain.Document{}, service.Invalid("file name is required")
	}
	if in.Body == nil {
		return domain.Document{}, service.Invalid("file is required")
	}
	contentType := strings.TrimSpace(in.ContentType)
	if contentType == "" {
		contentType = defaultContentType
	}

	if _, err := s.clients.Get(ctx, in.ClientID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Document{}, service.Invalid("client not found")
		}
		return domain.Document{}, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return domain.Document{}, err
	}
	key := in.ClientID.String() + "/" + id.String() + "_" + name

	if err := s.blobs.Put(ctx, key, in.Body, in.Size, contentType); err != nil {
		return domain.Document{}, err
	}

	doc, err := s.repo.Create(ctx, domain.Document{
		ID:          id,
		ClientID:    in.ClientID,
		Name:        name,
		ContentType: contentType,
		StorageKey:  key,
		Size:        in.Size,
	})
	if err != nil {
		if delErr := s.blobs.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			s.log.WarnContext(ctx, "orphaned document blob", slog.String("key", key), slog.Any("err", delErr))
		}
		return domain.Document{}, err
	}
	return doc, nil
}

// Open returns the document and a reader for its content; the caller closes it.
func (s *Service) Open(ctx context.Context, id uuid.UUID) (domain.Document, io.ReadCloser, error) {
	if id == uuid.Nil {
		return domain.Document{}, nil, service.Invalid("document id is required")
	}
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Document{}, nil, err
	}
	rc, err := s.blobs.Get(ctx, doc.StorageKey)
	if errors.Is(err, blob.ErrNotFound) {
		return domain.Document{}, nil, store.ErrNotFound
	}
	if err != nil {
		return domain.Document{}, nil, err
	}
	return doc, rc, nil
}

func (s *Service) ListByClient(ctx context.Context, clientID uuid.UUID) ([]domain.Document, error) {
	return s.repo.ListByClient(ctx, clientID)
}

// Delete removes the row, then the content. A content delete failure is
// logged only.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return service.Invalid("document id is required")
	}
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.blobs.Delete(context.WithoutCancel(ctx), doc.StorageKey); err != nil {
		s.log.WarnContext(ctx, "document blob delete failed",
			slog.String("document_id", id.String()),
			slog.String("key", doc.StorageKey),
			slog.Any("err", err),
		)
	}
	return nil
}
