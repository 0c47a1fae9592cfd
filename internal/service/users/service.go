package users

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"lexcrm/backend/internal/domain"
	"lexcrm/backend/internal/service"
	"lexcrm/backend/internal/store"
)

const minPasswordLength = 8

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrLoginDisabled      = errors.New("login is not configured")
)

type Service struct {
	repo   store.UserRepository
	tokens *TokenIssuer
	cost   int
	log    *slog.Logger
}

// NewService builds the service. tokens may be nil, in which case Login is
// unavailable.
func NewService(repo store.UserRepository, tokens *TokenIssuer, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{repo: repo, tokens: tokens, cost: bcrypt.DefaultCost, log: log}
}

type CreateInput struct {
	Name     string
	Email    string
	Password string
	Role     string
	Phone    string
}

func (s *Service) Create(ctx context.Context, in CreateInput) (domain.User, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.User{}, service.Invalid("name is required")
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return domain.User{}, service.Invalid("email is invalid")
	}
	if len(in.Password) < minPasswordLength {
		return domain.User{}, service.Invalidf("password must have at least %d characters", minPasswordLength)
	}
	role := domain.UserRole(strings.TrimSpace(in.Role))
	if role == "" {
		role = domain.RoleAgent
	}
	if !role.Valid() {
		return domain.User{}, service.Invalidf("role must be %q or %q", domain.RoleAgent, domain.RoleAdmin)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return domain.User{}, err
	}

	u := domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		Active:       true,
	}
	if phone := strings.TrimSpace(in.Phone); phone != "" {
		u.Phone = &phone
	}
	return s.repo.Create(ctx, u)
}

func (s *Service) List(ctx context.Context) ([]domain.User, error) {
	return s.repo.List(ctx)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return service.Invalid("user id is required")
	}
	return s.repo.Delete(ctx, id)
}

type Session struct {
	Token     string
	ExpiresAt time.Time
	User      domain.User
}

func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	if s.tokens == nil {
		return Session{}, ErrLoginDisabled
	}
	u, err := s.repo.GetByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if !u.Active {
		return Session{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}

	token, expires, err := s.tokens.Issue(u)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, ExpiresAt: expires, User: u}, nil
}

// EnsureAdmin creates the first admin account when no users exist yet.
// It is a no-op when email is empty or any user is already registered.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) error {
	if strings.TrimSpace(email) == "" {
		return nil
	}
	n, err := s.repo.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	u, err := s.Create(ctx, CreateInput{
		Name:     "Administrador",
		Email:    email,
		Password: password,
		Role:     string(domain.RoleAdmin),
	})
	if err != nil {
		return err
	}
	s.log.InfoContext(ctx, "bootstrap admin created", slog.String("user_id", u.ID.String()))
	return nil
}
