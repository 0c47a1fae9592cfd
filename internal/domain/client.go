package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Client struct {
	bun.BaseModel `bun:"table:clients,alias:c"`

	ID        uuid.UUID `bun:"id,pk,type:uuid"`
	Name      string    `bun:"name,notnull"`
	TaxID     *string   `bun:"tax_id"`
	Phone     string    `bun:"phone,notnull"`
	Email     *string   `bun:"email"`
	Notes     *string   `bun:"notes"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

func (c *Client) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); !ok {
		return nil
	}
	if c.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		c.ID = id
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	return nil
}

// InviteeEmail returns the address to invite to mirrored events, if any.
func (c Client) InviteeEmail() string {
	if c.Email == nil {
		return ""
	}
	return *c.Email
}

// ClientDetail is the aggregated view of one client.
type ClientDetail struct {
	Client       Client
	Appointments []Appointment
	Documents    []Document
	Messages     []ConversationMessage
}
