package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type MessageOrigin string

const (
	OriginClient MessageOrigin = "cliente"
	OriginAgent  MessageOrigin = "atendente"
	OriginBot    MessageOrigin = "bot"
)

func (o MessageOrigin) Valid() bool {
	return o == OriginClient || o == OriginAgent || o == OriginBot
}

const DefaultMessageKind = "texto"

type ConversationMessage struct {
	bun.BaseModel `bun:"table:conversation_messages,alias:m"`

	ID        uuid.UUID     `bun:"id,pk,type:uuid"`
	Phone     string        `bun:"phone,notnull"`
	Origin    MessageOrigin `bun:"origin,notnull"`
	Kind      string        `bun:"kind,notnull"`
	Content   string        `bun:"content,notnull"`
	CreatedAt time.Time     `bun:"created_at,notnull"`
}

func (m *ConversationMessage) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); !ok {
		return nil
	}
	if m.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		m.ID = id
	}
	if m.Kind == "" {
		m.Kind = DefaultMessageKind
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	return nil
}

type Document struct {
	bun.BaseModel `bun:"table:documents,alias:d"`

	ID          uuid.UUID `bun:"id,pk,type:uuid"`
	ClientID    uuid.UUID `bun:"client_id,notnull,type:uuid"`
	Name        string    `bun:"name,notnull"`
	ContentType string    `bun:"content_type,notnull"`
	StorageKey  string    `bun:"storage_key,notnull"`
	Size        int64     `bun:"size_bytes,notnull"`
	CreatedAt   time.Time `bun:"created_at,notnull"`
}

func (d *Document) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); !ok {
		return nil
	}
	if d.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		d.ID = id
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	return nil
}

type UserRole string

const (
	RoleAgent UserRole = "atendente"
	RoleAdmin UserRole = "admin"
)

func (r UserRole) Valid() bool {
	return r == RoleAgent || r == RoleAdmin
}

type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           uuid.UUID `bun:"id,pk,type:uuid"`
	Name         string    `bun:"name,notnull"`
	Email        string    `bun:"email,notnull"`
	PasswordHash string    `bun:"password_hash,notnull"`
	Role         UserRole  `bun:"role,notnull"`
	Phone        *string   `bun:"phone"`
	Active       bool      `bun:"active,notnull"`
	CreatedAt    time.Time `bun:"created_at,notnull"`
}

func (u *User) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); !ok {
		return nil
	}
	if u.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		u.ID = id
	}
	if u.Role == "" {
		u.Role = RoleAgent
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	return nil
}

const InstanceStatusDisconnected = "desconectado"

// GatewayInstance is a registered messaging-gateway (Evolution API) instance.
type GatewayInstance struct {
	bun.BaseModel `bun:"table:gateway_instances,alias:gi"`

	ID           uuid.UUID `bun:"id,pk,type:uuid"`
	Name         string    `bun:"name,notnull"`
	BaseURL      string    `bun:"base_url,notnull"`
	APIKey       string    `bun:"api_key,notnull"`
	InstanceName string    `bun:"instance_name,notnull"`
	Status       string    `bun:"status,notnull"`
	CreatedAt    time.Time `bun:"created_at,notnull"`
}

func (g *GatewayInstance) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); !ok {
		return nil
	}
	if g.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		g.ID = id
	}
	if g.Status == "" {
		g.Status = InstanceStatusDisconnected
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	return nil
}

// Dashboard holds the landing page counters.
type Dashboard struct {
	TotalClients       int
	ActiveAppointments int
	ActiveUsers        int
	TotalInstances     int
	Recent             []RecentConversation
}

type RecentConversation struct {
	Name      string    `bun:"name"`
	Phone     string    `bun:"phone"`
	CreatedAt time.Time `bun:"created_at"`
}
