package domain

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type ConsultationType string

const (
	ConsultationFirstVisit ConsultationType = "primeira_consulta"
	ConsultationFollowUp   ConsultationType = "retorno"
	ConsultationUrgent     ConsultationType = "urgente"
)

var consultationLabels = map[ConsultationType]string{
	ConsultationFirstVisit: "1ª Consulta",
	ConsultationFollowUp:   "Retorno",
	ConsultationUrgent:     "Urgente",
}

// Label returns the display label for t, or the raw value for unknown types.
func (t ConsultationType) Label() string {
	if label, ok := consultationLabels[t]; ok {
		return label
	}
	return string(t)
}

type AppointmentStatus string

const (
	AppointmentActive    AppointmentStatus = "ativo"
	AppointmentCancelled AppointmentStatus = "cancelado"
)

func (s AppointmentStatus) Valid() bool {
	return s == AppointmentActive || s == AppointmentCancelled
}

// DefaultClientName stands in for clients registered without a name.
const DefaultClientName = "Cliente"

type Appointment struct {
	bun.BaseModel `bun:"table:appointments,alias:a"`

	ID        uuid.UUID         `bun:"id,pk,type:uuid"`
	ClientID  uuid.UUID         `bun:"client_id,notnull,type:uuid"`
	Date      time.Time         `bun:"appointment_date,notnull,type:date"`
	Time      string            `bun:"appointment_time,notnull"`
	Type      ConsultationType  `bun:"consultation_type,notnull"`
	Notes     string            `bun:"notes"`
	Status    AppointmentStatus `bun:"status,notnull"`
	EventRef  *string           `bun:"external_event_ref"`
	CreatedAt time.Time         `bun:"created_at,notnull"`
	UpdatedAt time.Time         `bun:"updated_at,notnull"`

	Client *Client `bun:"rel:belongs-to,join:client_id=id"`
}

func (a *Appointment) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if a.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			a.ID = id
		}
		if a.Status == "" {
			a.Status = AppointmentActive
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		if a.UpdatedAt.IsZero() {
			a.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		a.UpdatedAt = now
	}
	return nil
}

// HasEventRef reports whether a mirrored calendar event is linked.
func (a Appointment) HasEventRef() bool {
	return a.EventRef != nil && strings.TrimSpace(*a.EventRef) != ""
}

// EventTitle derives the mirrored event title, e.g. "Urgente — Maria".
func EventTitle(t ConsultationType, clientName string) string {
	name := strings.TrimSpace(clientName)
	if name == "" {
		name = DefaultClientName
	}
	return t.Label() + " — " + name
}
