package clients

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"lexcrm/backend/internal/domain"
	"lexcrm/backend/internal/service"
	"lexcrm/backend/internal/store"
)

const (
	detailMessageLimit = 100
	dashboardRecent    = 5
)

type AppointmentLister interface {
	List(ctx context.Context, filter store.AppointmentFilter) ([]domain.Appointment, error)
}

type DocumentLister interface {
	ListByClient(ctx context.Context, clientID uuid.UUID) ([]domain.Document, error)
}

type MessageLister interface {
	List(ctx context.Context, q store.MessageQuery) ([]domain.ConversationMessage, error)
}

type Service struct {
	repo         store.ClientRepository
	appointments AppointmentLister
	documents    DocumentLister
	messages     MessageLister
	dashboard    store.DashboardRepository
	log          *slog.Logger
}

func NewService(
	repo store.ClientRepository,
	appointments AppointmentLister,
	documents DocumentLister,
	messages MessageLister,
	dashboard store.DashboardRepository,
	log *slog.Logger,
) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		repo:         repo,
		appointments: appointments,
		documents:    documents,
		messages:     messages,
		dashboard:    dashboard,
		log:          log,
	}
}

type CreateInput struct {
	Name  string
	TaxID string
	Phone string
	Email string
	Notes string
}

func (s *Service) Create(ctx context.Context, in CreateInput) (domain.Client, error) {
	phone := strings.TrimSpace(in.Phone)
	if phone == "" {
		return domain.Client{}, service.Invalid("phone is required")
	}
	return s.repo.Create(ctx, domain.Client{
		Name:  strings.TrimSpace(in.Name),
		TaxID: optional(in.TaxID),
		Phone: phone,
		Email: optional(in.Email),
		Notes: optional(in.Notes),
	})
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (domain.Client, error) {
	if id == uuid.Nil {
		return domain.Client{}, service.Invalid("client id is required")
	}
	return s.repo.Get(ctx, id)
}

// List returns clients whose name, phone or tax id contains query; an empty
// query lists everyone.
func (s *Service) List(ctx context.Context, query string) ([]domain.Client, error) {
	return s.repo.List(ctx, strings.TrimSpace(query))
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, patch store.ClientPatch) (domain.Client, error) {
	if id == uuid.Nil {
		return domain.Client{}, service.Invalid("client id is required")
	}
	if patch.Empty() {
		return domain.Client{}, service.Invalid("nothing to update")
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		patch.Name = &name
	}
	return s.repo.Update(ctx, id, patch)
}

// Delete fails with store.ErrReferenced while appointments or documents still
// point at the client.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return service.Invalid("client id is required")
	}
	return s.repo.Delete(ctx, id)
}

// Detail gathers a client with their appointments, documents and most recent
// conversation messages.
func (s *Service) Detail(ctx context.Context, id uuid.UUID) (domain.ClientDetail, error) {
	client, err := s.Get(ctx, id)
	if err != nil {
		return domain.ClientDetail{}, err
	}

	appts, err := s.appointments.List(ctx, store.AppointmentFilter{ClientID: client.ID})
	if err != nil {
		return domain.ClientDetail{}, err
	}
	docs, err := s.documents.ListByClient(ctx, client.ID)
	if err != nil {
		return domain.ClientDetail{}, err
	}
	msgs, err := s.messages.List(ctx, store.MessageQuery{
		Phone:       client.Phone,
		Limit:       detailMessageLimit,
		NewestFirst: true,
	})
	if err != nil {
		return domain.ClientDetail{}, err
	}

	return domain.ClientDetail{
		Client:       client,
		Appointments: appts,
		Documents:    docs,
		Messages:     msgs,
	}, nil
}

func (s *Service) Dashboard(ctx context.Context) (domain.Dashboard, error) {
	return s.dashboard.Dashboard(ctx, dashboardRecent)
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
