package messaging

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"lexcrm/backend/internal/domain"
	"lexcrm/backend/internal/service"
	"lexcrm/backend/internal/store"
	"lexcrm/backend/internal/whatsapp"
)

// StateError is stored when the gateway could not be asked for a state.
const StateError = "erro"

type Gateway interface {
	ConnectionState(ctx context.Context, inst whatsapp.Instance) (string, error)
	SendText(ctx context.Context, inst whatsapp.Instance, number, text string) error
}

type Service struct {
	instances     store.InstanceRepository
	conversations store.ConversationRepository
	gateway       Gateway
	log           *slog.Logger
}

func NewService(instances store.InstanceRepository, conversations store.ConversationRepository, gateway Gateway, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		instances:     instances,
		conversations: conversations,
		gateway:       gateway,
		log:           log,
	}
}

type InstanceInput struct {
	Name         string
	BaseURL      string
	APIKey       string
	InstanceName string
}

func (s *Service) CreateInstance(ctx context.Context, in InstanceInput) (domain.GatewayInstance, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.GatewayInstance{}, service.Invalid("name is required")
	}
	base := strings.TrimRight(strings.TrimSpace(in.BaseURL), "/")
	if u, err := url.Parse(base); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return domain.GatewayInstance{}, service.Invalid("base url must be an http(s) url")
	}
	if strings.TrimSpace(in.APIKey) == "" {
		return domain.GatewayInstance{}, service.Invalid("api key is required")
	}
	instanceName := strings.TrimSpace(in.InstanceName)
	if instanceName == "" {
		return domain.GatewayInstance{}, service.Invalid("instance name is required")
	}
	return s.instances.Create(ctx, domain.GatewayInstance{
		Name:         name,
		BaseURL:      base,
		APIKey:       strings.TrimSpace(in.APIKey),
		InstanceName: instanceName,
	})
}

func (s *Service) ListInstances(ctx context.Context) ([]domain.GatewayInstance, error) {
	return s.instances.List(ctx)
}

func (s *Service) DeleteInstance(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return service.Invalid("instance id is required")
	}
	return s.instances.Delete(ctx, id)
}

// InstanceStatus asks the gateway for the instance's connection state and
// stores it. An unreachable gateway is recorded as StateError rather than
// failing the call.
func (s *Service) InstanceStatus(ctx context.Context, id uuid.UUID) (string, error) {
	if id == uuid.Nil {
		return "", service.Invalid("instance id is required")
	}
	inst, err := s.instances.Get(ctx, id)
	if err != nil {
		return "", err
	}

	state, err := s.gateway.ConnectionState(ctx, gatewayInstance(inst))
	if err != nil {
		s.log.WarnContext(ctx, "gateway connection state failed",
			slog.String("instance_id", id.String()),
			slog.Any("err", err),
		)
		state = StateError
	}
	if err := s.instances.UpdateStatus(ctx, id, state); err != nil {
		return "", err
	}
	return state, nil
}

// SendText sends a WhatsApp message through the first registered instance and
// logs it as an agent message once the gateway accepted it.
func (s *Service) SendText(ctx context.Context, phone, text string) (domain.ConversationMessage, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return domain.ConversationMessage{}, service.Invalid("phone is required")
	}
	if strings.TrimSpace(text) == "" {
		return domain.ConversationMessage{}, service.Invalid("message is required")
	}

	inst, err := s.instances.First(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return domain.ConversationMessage{}, service.Invalid("no WhatsApp instance registered")
	}
	if err != nil {
		return domain.ConversationMessage{}, err
	}

	if err := s.gateway.SendText(ctx, gatewayInstance(inst), phone, text); err != nil {
		return domain.ConversationMessage{}, err
	}

	return s.conversations.Append(ctx, domain.ConversationMessage{
		Phone:   phone,
		Origin:  domain.OriginAgent,
		Kind:    domain.DefaultMessageKind,
		Content: text,
	})
}

type RecordInput struct {
	Phone   string
	Origin  string
	Kind    string
	Content string
}

// Record appends a message to a phone number's conversation history.
func (s *Service) Record(ctx context.Context, in RecordInput) (domain.ConversationMessage, error) {
	phone := strings.TrimSpace(in.Phone)
	if phone == "" {
		return domain.ConversationMessage{}, service.Invalid("phone is required")
	}
	origin := domain.MessageOrigin(strings.TrimSpace(in.Origin))
	if !origin.Valid() {
		return domain.ConversationMessage{}, service.Invalidf("origin must be one of %q, %q, %q", domain.OriginClient, domain.OriginAgent, domain.OriginBot)
	}
	if strings.TrimSpace(in.Content) == "" {
		return domain.ConversationMessage{}, service.Invalid("content is required")
	}
	kind := strings.TrimSpace(in.Kind)
	if kind == "" {
		kind = domain.DefaultMessageKind
	}
	return s.conversations.Append(ctx, domain.ConversationMessage{
		Phone:   phone,
		Origin:  origin,
		Kind:    kind,
		Content: in.Content,
	})
}

// History returns the whole conversation for phone, oldest first.
func (s *Service) History(ctx context.Context, phone string) ([]domain.ConversationMessage, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, service.Invalid("phone is required")
	}
	return s.conversations.List(ctx, store.MessageQuery{Phone: phone})
}

func gatewayInstance(g domain.GatewayInstance) whatsapp.Instance {
	return whatsapp.Instance{BaseURL: g.BaseURL, APIKey: g.APIKey, Name: g.InstanceName}
}
