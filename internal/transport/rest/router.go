// Package rest serves the CRM's JSON API.
package rest

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"lexcrm/backend/internal/domain"
	"lexcrm/backend/internal/service/appointments"
	"lexcrm/backend/internal/service/availability"
	"lexcrm/backend/internal/service/clients"
	"lexcrm/backend/internal/service/documents"
	"lexcrm/backend/internal/service/messaging"
	"lexcrm/backend/internal/service/users"
	"lexcrm/backend/internal/store"
)

type AppointmentService interface {
	Create(ctx context.Context, in appointments.CreateInput) (appointments.Result, error)
	Reschedule(ctx context.Context, id uuid.UUID, in appointments.RescheduleInput) (appointments.Result, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) (appointments.Result, error)
	Delete(ctx context.Context, id uuid.UUID) (appointments.Result, error)
	Mirror(ctx context.Context, id uuid.UUID) (appointments.Result, error)
	Get(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	List(ctx context.Context, in appointments.ListInput) ([]domain.Appointment, error)
	ListByDate(ctx context.Context, date, status string) ([]domain.Appointment, error)
}

type AvailabilityService interface {
	BusyTimes(ctx context.Context, date time.Time) (availability.BusyTimes, error)
	FreeSlots(ctx context.Context, count int) (availability.FreeSlots, error)
}

type ClientService interface {
	Create(ctx context.Context, in clients.CreateInput) (domain.Client, error)
	List(ctx context.Context, query string) ([]domain.Client, error)
	Update(ctx context.Context, id uuid.UUID, patch store.ClientPatch) (domain.Client, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Detail(ctx context.Context, id uuid.UUID) (domain.ClientDetail, error)
	Dashboard(ctx context.Context) (domain.Dashboard, error)
}

type DocumentService interface {
	Upload(ctx context.Context, in documents.UploadInput) (domain.Document, error)
	Open(ctx context.Context, id uuid.UUID) (domain.Document, io.ReadCloser, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type UserService interface {
	Create(ctx context.Context, in users.CreateInput) (domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Login(ctx context.Context, email, password string) (users.Session, error)
}

type MessagingService interface {
	CreateInstance(ctx context.Context, in messaging.InstanceInput) (domain.GatewayInstance, error)
	ListInstances(ctx context.Context) ([]domain.GatewayInstance, error)
	DeleteInstance(ctx context.Context, id uuid.UUID) error
	InstanceStatus(ctx context.Context, id uuid.UUID) (string, error)
	SendText(ctx context.Context, phone, text string) (domain.ConversationMessage, error)
	Record(ctx context.Context, in messaging.RecordInput) (domain.ConversationMessage, error)
	History(ctx context.Context, phone string) ([]domain.ConversationMessage, error)
}

type Services struct {
	Appointments AppointmentService
	Availability AvailabilityService
	Clients      ClientService
	Documents    DocumentService
	Users        UserService
	Messaging    MessagingService
}

type Options struct {
	// Tokens protects /api routes when set.
	Tokens         TokenParser
	CORSOrigins    []string
	RequestTimeout time.Duration
	MaxUploadBytes int64
	Limiter        Limiter
	Observer       RequestObserver
	Metrics        http.Handler
	Log            *slog.Logger
}

const (
	defaultRequestTimeout = 30 * time.Second
	defaultMaxUpload      = 20 << 20
)

type api struct {
	svc       Services
	log       *slog.Logger
	maxUpload int64
}

func NewRouter(svc Services, opts Options) http.Handler {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "http"))
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUpload
	}
	a := &api{svc: svc, log: log, maxUpload: opts.MaxUploadBytes}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log, opts.Observer))
	r.Use(middleware.Recoverer)
	if len(opts.CORSOrigins) > 0 {
		r.Use(cors(opts.CORSOrigins))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(opts.RequestTimeout))
		if opts.Limiter != nil {
			r.Use(rateLimit(opts.Limiter, log))
		}

		r.Post("/auth/login", a.login)

		r.Group(func(r chi.Router) {
			if opts.Tokens != nil {
				r.Use(requireToken(opts.Tokens))
			}

			r.Route("/clients", func(r chi.Router) {
				r.Get("/", a.listClients)
				r.Post("/", a.createClient)
				r.Get("/{id}", a.clientDetail)
				r.Put("/{id}", a.updateClient)
				r.Delete("/{id}", a.deleteClient)
				r.Post("/{id}/documents", a.uploadDocument)
			})
			r.Get("/documents/{id}/content", a.documentContent)
			r.Delete("/documents/{id}", a.deleteDocument)

			r.Route("/appointments", func(r chi.Router) {
				r.Get("/", a.listAppointments)
				r.Post("/", a.createAppointment)
				r.Get("/{id}", a.getAppointment)
				r.Put("/{id}", a.rescheduleAppointment)
				r.Put("/{id}/status", a.updateAppointmentStatus)
				r.Post("/{id}/mirror", a.mirrorAppointment)
				r.Delete("/{id}", a.deleteAppointment)
			})
			r.Get("/busy-times/{date}", a.busyTimes)
			r.Get("/free-slots", a.freeSlots)

			r.Get("/history/{phone}", a.history)
			r.Post("/conversations", a.recordMessage)
			r.Get("/dashboard", a.dashboard)

			r.Route("/users", func(r chi.Router) {
				r.Get("/", a.listUsers)
				r.Post("/", a.createUser)
				r.Delete("/{id}", a.deleteUser)
			})

			r.Route("/instances", func(r chi.Router) {
				r.Get("/", a.listInstances)
				r.Post("/", a.createInstance)
				r.Delete("/{id}", a.deleteInstance)
				r.Get("/{id}/status", a.instanceStatus)
			})
			r.Post("/messages", a.sendMessage)
		})
	})
	return r
}
