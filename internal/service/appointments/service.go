// Package appointments keeps appointment rows and their mirrored calendar
// events in step. The row is written first and is authoritative; calendar
// calls run after the store commit and their failures are reported in the
// Result instead of failing the operation.
package appointments

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"lexcrm/backend/internal/calendar"
	"lexcrm/backend/internal/domain"
	"lexcrm/backend/internal/service"
	"lexcrm/backend/internal/store"
)

type Calendar interface {
	CreateEvent(ctx context.Context, in calendar.EventInput) (string, error)
	UpdateEvent(ctx context.Context, eventID string, patch calendar.EventPatch) error
	DeleteEvent(ctx context.Context, eventID string) error
}

type ClientReader interface {
	Get(ctx context.Context, id uuid.UUID) (domain.Client, error)
}

type MirrorObserver interface {
	ObserveMirror(action, outcome string)
}

type MirrorOutcome string

const (
	Persisted                  MirrorOutcome = "persisted"
	PersistedWithMirrorFailure MirrorOutcome = "persisted_with_mirror_failure"
)

const (
	actionCreate     = "create"
	actionReschedule = "reschedule"
	actionCancel     = "cancel"
	actionReactivate = "reactivate"
	actionDelete     = "delete"
	actionMirror     = "mirror"
)

// Result is the outcome of a mutation: the stored appointment plus whether the
// calendar mirror kept up. MirrorErr is set only with PersistedWithMirrorFailure.
type Result struct {
	Appointment domain.Appointment
	Mirror      MirrorOutcome
	MirrorErr   error
}

type Service struct {
	repo     store.AppointmentRepository
	clients  ClientReader
	calendar Calendar
	observer MirrorObserver
	log      *slog.Logger
}

func NewService(repo store.AppointmentRepository, clients ClientReader, cal Calendar, observer MirrorObserver, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		repo:     repo,
		clients:  clients,
		calendar: cal,
		observer: observer,
		log:      log,
	}
}

type CreateInput struct {
	ClientID uuid.UUID
	Date     string
	Time     string
	Type     string
	Notes    string
}

func (s *Service) Create(ctx context.Context, in CreateInput) (Result, error) {
	if in.ClientID == uuid.Nil {
		return Result{}, service.Invalid("client_id is required")
	}
	date, err := domain.ParseDate(strings.TrimSpace(in.Date))
	if err != nil {
		return Result{}, service.Invalid(err.Error())
	}
	timeOfDay, err := domain.ParseTimeOfDay(strings.TrimSpace(in.Time))
	if err != nil {
		return Result{}, service.Invalid(err.Error())
	}
	typ := domain.ConsultationType(strings.TrimSpace(in.Type))
	if typ == "" {
		typ = domain.ConsultationFirstVisit
	}

	client, err := s.clients.Get(ctx, in.ClientID)
	if errors.Is(err, store.ErrNotFound) {
		return Result{}, service.Invalid("client not found")
	}
	if err != nil {
		return Result{}, err
	}

	appt, err := s.repo.Create(ctx, domain.Appointment{
		ClientID: client.ID,
		Date:     date,
		Time:     timeOfDay,
		Type:     typ,
		Notes:    strings.TrimSpace(in.Notes),
		Status:   domain.AppointmentActive,
	})
	if err != nil {
		return Result{}, err
	}
	appt.Client = &client

	return s.mirrorCreate(ctx, actionCreate, appt), nil
}

type RescheduleInput struct {
	Date  string
	Time  string
	Type  string
	Notes *string
}

func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, in RescheduleInput) (Result, error) {
	if id == uuid.Nil {
		return Result{}, service.Invalid("appointment id is required")
	}
	date, err := domain.ParseDate(strings.TrimSpace(in.Date))
	if err != nil {
		return Result{}, service.Invalid(err.Error())
	}
	timeOfDay, err := domain.ParseTimeOfDay(strings.TrimSpace(in.Time))
	if err != nil {
		return Result{}, service.Invalid(err.Error())
	}

	var appt domain.Appointment
	err = s.repo.InTransaction(ctx, func(ctx context.Context, tx store.AppointmentTx) error {
		a, err := tx.GetAppointmentForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if a.Status != domain.AppointmentActive {
			return service.Invalid("only active appointments can be rescheduled")
		}
		a.Date = date
		a.Time = timeOfDay
		if typ := strings.TrimSpace(in.Type); typ != "" {
			a.Type = domain.ConsultationType(typ)
		}
		if in.Notes != nil {
			a.Notes = strings.TrimSpace(*in.Notes)
		}
		appt, err = tx.UpdateAppointment(ctx, a)
		return err
	})
	if err != nil {
		return Result{}, err
	}

	if !appt.HasEventRef() {
		return s.done(ctx, actionReschedule, appt, nil), nil
	}

	mirrorCtx := context.WithoutCancel(ctx)
	err = s.calendar.UpdateEvent(mirrorCtx, *appt.EventRef, calendar.EventPatch{
		Title:       domain.EventTitle(appt.Type, clientName(appt)),
		Description: appt.Notes,
		Date:        &appt.Date,
		Time:        appt.Time,
	})
	if errors.Is(err, calendar.ErrNotFound) {
		// The mirror is gone upstream; drop the dangling ref so Mirror can recreate it.
		if clearErr := s.repo.SetEventRef(mirrorCtx, appt.ID, nil); clearErr == nil {
			appt.EventRef = nil
		}
	}
	return s.done(ctx, actionReschedule, appt, err), nil
}

// UpdateStatus moves an appointment between active and cancelled. Cancelling
// deletes the mirrored event and clears the ref once the delete succeeds;
// reactivating creates a new mirror.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (Result, error) {
	if id == uuid.Nil {
		return Result{}, service.Invalid("appointment id is required")
	}
	next := domain.AppointmentStatus(strings.TrimSpace(status))
	if !next.Valid() {
		return Result{}, service.Invalidf("status must be %q or %q", domain.AppointmentActive, domain.AppointmentCancelled)
	}

	var (
		appt    domain.Appointment
		changed bool
	)
	err := s.repo.InTransaction(ctx, func(ctx context.Context, tx store.AppointmentTx) error {
		a, err := tx.GetAppointmentForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if a.Status == next {
			appt = a
			return nil
		}
		a.Status = next
		appt, err = tx.UpdateAppointment(ctx, a)
		changed = err == nil
		return err
	})
	if err != nil {
		return Result{}, err
	}
	if !changed {
		return Result{Appointment: appt, Mirror: Persisted}, nil
	}

	if next == domain.AppointmentActive {
		if appt.HasEventRef() {
			return s.done(ctx, actionReactivate, appt, nil), nil
		}
		return s.mirrorCreate(ctx, actionReactivate, appt), nil
	}

	if !appt.HasEventRef() {
		return s.done(ctx, actionCancel, appt, nil), nil
	}
	mirrorCtx := context.WithoutCancel(ctx)
	if err := s.calendar.DeleteEvent(mirrorCtx, *appt.EventRef); err != nil {
		return s.done(ctx, actionCancel, appt, err), nil
	}
	if err := s.repo.SetEventRef(mirrorCtx, appt.ID, nil); err != nil {
		s.log.ErrorContext(ctx, "clear event ref failed",
			slog.String("appointment_id", appt.ID.String()),
			slog.Any("err", err),
		)
		return s.done(ctx, actionCancel, appt, nil), nil
	}
	appt.EventRef = nil
	return s.done(ctx, actionCancel, appt, nil), nil
}

// Delete removes the row, then the mirrored event if one is linked.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) (Result, error) {
	if id == uuid.Nil {
		return Result{}, service.Invalid("appointment id is required")
	}

	var appt domain.Appointment
	err := s.repo.InTransaction(ctx, func(ctx context.Context, tx store.AppointmentTx) error {
		a, err := tx.GetAppointmentForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.DeleteAppointment(ctx, id); err != nil {
			return err
		}
		appt = a
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	if !appt.HasEventRef() {
		return s.done(ctx, actionDelete, appt, nil), nil
	}
	err = s.calendar.DeleteEvent(context.WithoutCancel(ctx), *appt.EventRef)
	return s.done(ctx, actionDelete, appt, err), nil
}

// Mirror retries the calendar create for an active appointment that has no
// mirrored event. An already mirrored appointment is returned unchanged.
func (s *Service) Mirror(ctx context.Context, id uuid.UUID) (Result, error) {
	if id == uuid.Nil {
		return Result{}, service.Invalid("appointment id is required")
	}
	appt, err := s.repo.Get(ctx, id)
	if err != nil {
		return Result{}, err
	}
	if appt.Status != domain.AppointmentActive {
		return Result{}, service.Invalid("only active appointments can be mirrored")
	}
	if appt.HasEventRef() {
		return Result{Appointment: appt, Mirror: Persisted}, nil
	}
	return s.mirrorCreate(ctx, actionMirror, appt), nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	if id == uuid.Nil {
		return domain.Appointment{}, service.Invalid("appointment id is required")
	}
	return s.repo.Get(ctx, id)
}

type ListInput struct {
	Date     string
	Status   string
	ClientID uuid.UUID
}

// List returns appointments joined with their client, newest first.
func (s *Service) List(ctx context.Context, in ListInput) ([]domain.Appointment, error) {
	var filter store.AppointmentFilter
	if d := strings.TrimSpace(in.Date); d != "" {
		date, err := domain.ParseDate(d)
		if err != nil {
			return nil, service.Invalid(err.Error())
		}
		filter.Date = &date
	}
	if st := strings.TrimSpace(in.Status); st != "" {
		status := domain.AppointmentStatus(st)
		if !status.Valid() {
			return nil, service.Invalidf("status must be %q or %q", domain.AppointmentActive, domain.AppointmentCancelled)
		}
		filter.Status = status
	}
	filter.ClientID = in.ClientID
	return s.repo.List(ctx, filter)
}

func (s *Service) ListByDate(ctx context.Context, date, status string) ([]domain.Appointment, error) {
	if strings.TrimSpace(date) == "" {
		return nil, service.Invalid("date is required")
	}
	return s.List(ctx, ListInput{Date: date, Status: status})
}

// mirrorCreate creates the calendar event for appt and attaches its id. The
// ref is stored only after the provider accepted the event.
func (s *Service) mirrorCreate(ctx context.Context, action string, appt domain.Appointment) Result {
	if appt.Client == nil {
		client, err := s.clients.Get(ctx, appt.ClientID)
		if err != nil {
			return s.done(ctx, action, appt, err)
		}
		appt.Client = &client
	}

	// The event exists upstream once CreateEvent returns, so the ref write must
	// not depend on the caller still waiting.
	mirrorCtx := context.WithoutCancel(ctx)
	eventID, err := s.calendar.CreateEvent(mirrorCtx, calendar.EventInput{
		Title:         domain.EventTitle(appt.Type, clientName(appt)),
		Description:   appt.Notes,
		Date:          appt.Date,
		Time:          appt.Time,
		AttendeeEmail: appt.Client.InviteeEmail(),
	})
	if err != nil {
		return s.done(ctx, action, appt, err)
	}
	if err := s.repo.SetEventRef(mirrorCtx, appt.ID, &eventID); err != nil {
		return s.done(ctx, action, appt, err)
	}
	appt.EventRef = &eventID
	return s.done(ctx, action, appt, nil)
}

func (s *Service) done(ctx context.Context, action string, appt domain.Appointment, mirrorErr error) Result {
	res := Result{Appointment: appt, Mirror: Persisted}
	if mirrorErr != nil {
		res.Mirror = PersistedWithMirrorFailure
		res.MirrorErr = mirrorErr
		s.log.WarnContext(ctx, "calendar mirror failed",
			slog.String("action", action),
			slog.String("appointment_id", appt.ID.String()),
			slog.Any("err", mirrorErr),
		)
	}
	if s.observer != nil {
		s.observer.ObserveMirror(action, string(res.Mirror))
	}
	return res
}

func clientName(appt domain.Appointment) string {
	if appt.Client == nil {
		return ""
	}
	return appt.Client.Name
}
