package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"lexcrm/backend/internal/domain"
)

// AppointmentFilter narrows List; zero fields are ignored.
type AppointmentFilter struct {
	Date     *time.Time
	Status   domain.AppointmentStatus
	ClientID uuid.UUID
}

type AppointmentRepository interface {
	Create(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
	Get(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	List(ctx context.Context, filter AppointmentFilter) ([]domain.Appointment, error)
	BusyTimes(ctx context.Context, date time.Time) ([]string, error)
	SetEventRef(ctx context.Context, id uuid.UUID, ref *string) error

	InTransaction(ctx context.Context, fn func(ctx context.Context, tx AppointmentTx) error) error
}

// AppointmentTx is the set of appointment operations that read and write a row
// within one transaction.
type AppointmentTx interface {
	GetAppointmentForUpdate(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	UpdateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
	DeleteAppointment(ctx context.Context, id uuid.UUID) error
}
