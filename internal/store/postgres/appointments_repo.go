package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"lexcrm/backend/internal/domain"
	"lexcrm/backend/internal/store"
)

type AppointmentRepo struct {
	db bun.IDB
}

func NewAppointmentRepo(db bun.IDB) *AppointmentRepo {
	return &AppointmentRepo{db: db}
}

type appointmentTx struct {
	tx bun.Tx
}

func (r *AppointmentRepo) Create(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	m := domain.Appointment{
		ID:        appt.ID,
		ClientID:  appt.ClientID,
		Date:      appt.Date,
		Time:      appt.Time,
		Type:      appt.Type,
		Notes:     appt.Notes,
		Status:    appt.Status,
		EventRef:  appt.EventRef,
		CreatedAt: appt.CreatedAt,
		UpdatedAt: appt.UpdatedAt,
	}

	if _, err := r.db.NewInsert().Model(&m).Exec(ctx); err != nil {
		return domain.Appointment{}, mapError(err)
	}
	m.Client = appt.Client
	return m, nil
}

func (r *AppointmentRepo) Get(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	var a domain.Appointment
	err := r.db.NewSelect().
		Model(&a).
		Relation("Client").
		Where("a.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.Appointment{}, mapError(err)
	}
	return a, nil
}

func (r *AppointmentRepo) List(ctx context.Context, filter store.AppointmentFilter) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	q := r.db.NewSelect().
		Model(&rows).
		Relation("Client")
	if filter.Date != nil {
		q = q.Where("a.appointment_date = ?::date", domain.FormatDate(*filter.Date))
	}
	if filter.Status != "" {
		q = q.Where("a.status = ?", filter.Status)
	}
	if filter.ClientID != uuid.Nil {
		q = q.Where("a.client_id = ?", filter.ClientID)
	}
	err := q.
		OrderExpr("a.appointment_date DESC, a.appointment_time DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// BusyTimes returns the distinct times of day booked by active appointments on date.
func (r *AppointmentRepo) BusyTimes(ctx context.Context, date time.Time) ([]string, error) {
	var times []string
	err := r.db.NewSelect().
		Model((*domain.Appointment)(nil)).
		Distinct().
		Column("appointment_time").
		Where("appointment_date = ?::date", domain.FormatDate(date)).
		Where("status = ?", domain.AppointmentActive).
		OrderExpr("appointment_time ASC").
		Scan(ctx, &times)
	if err != nil {
		return nil, err
	}
	return times, nil
}

func (r *AppointmentRepo) SetEventRef(ctx context.Context, id uuid.UUID, ref *string) error {
	res, err := r.db.NewUpdate().
		Model((*domain.Appointment)(nil)).
		Set("external_event_ref = ?", ref).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(res)
}

func (r *AppointmentRepo) InTransaction(ctx context.Context, fn func(ctx context.Context, tx store.AppointmentTx) error) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, appointmentTx{tx: tx})
	})
}

// GetAppointmentForUpdate locks the row and loads its client separately, since
// FOR UPDATE cannot cover the nullable side of the relation join.
func (r appointmentTx) GetAppointmentForUpdate(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	var a domain.Appointment
	err := r.tx.NewSelect().
		Model(&a).
		Where("a.id = ?", id).
		For("UPDATE").
		Scan(ctx)
	if err != nil {
		return domain.Appointment{}, mapError(err)
	}

	var c domain.Client
	err = r.tx.NewSelect().
		Model(&c).
		Where("c.id = ?", a.ClientID).
		Scan(ctx)
	if err != nil {
		return domain.Appointment{}, mapError(err)
	}
	a.Client = &c
	return a, nil
}

func (r appointmentTx) UpdateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	m := appt
	res, err := r.tx.NewUpdate().
		Model(&m).
		Column("appointment_date", "appointment_time", "consultation_type", "notes", "status", "external_event_ref", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return domain.Appointment{}, mapError(err)
	}
	if err := requireAffected(res); err != nil {
		return domain.Appointment{}, err
	}
	return m, nil
}

func (r appointmentTx) DeleteAppointment(ctx context.Context, id uuid.UUID) error {
	res, err := r.tx.NewDelete().
		Model((*domain.Appointment)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(res)
}
