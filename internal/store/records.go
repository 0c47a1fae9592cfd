package store

import (
	"context"

	"github.com/google/uuid"

	"lexcrm/backend/internal/domain"
)

// ClientPatch carries the client fields to overwrite; nil fields are left alone.
type ClientPatch struct {
	Name  *string
	TaxID *string
	Email *string
	Notes *string
}

func (p ClientPatch) Empty() bool {
	return p.Name == nil && p.TaxID == nil && p.Email == nil && p.Notes == nil
}

type ClientRepository interface {
	Create(ctx context.Context, c domain.Client) (domain.Client, error)
	Get(ctx context.Context, id uuid.UUID) (domain.Client, error)
	List(ctx context.Context, query string) ([]domain.Client, error)
	Update(ctx context.Context, id uuid.UUID, patch ClientPatch) (domain.Client, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type DocumentRepository interface {
	Create(ctx context.Context, d domain.Document) (domain.Document, error)
	Get(ctx context.Context, id uuid.UUID) (domain.Document, error)
	ListByClient(ctx context.Context, clientID uuid.UUID) ([]domain.Document, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// MessageQuery selects conversation history for one phone number.
type MessageQuery struct {
	Phone       string
	Limit       int
	NewestFirst bool
}

type ConversationRepository interface {
	Append(ctx context.Context, m domain.ConversationMessage) (domain.ConversationMessage, error)
	List(ctx context.Context, q MessageQuery) ([]domain.ConversationMessage, error)
}

type UserRepository interface {
	Create(ctx context.Context, u domain.User) (domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context) (int, error)
}

type InstanceRepository interface {
	Create(ctx context.Context, inst domain.GatewayInstance) (domain.GatewayInstance, error)
	List(ctx context.Context) ([]domain.GatewayInstance, error)
	Get(ctx context.Context, id uuid.UUID) (domain.GatewayInstance, error)
	First(ctx context.Context) (domain.GatewayInstance, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type DashboardRepository interface {
	Dashboard(ctx context.Context, recent int) (domain.Dashboard, error)
}
