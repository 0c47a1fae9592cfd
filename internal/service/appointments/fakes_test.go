package appointments

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"

	"lexcrm/backend/internal/calendar"
	"lexcrm/backend/internal/domain"
	"lexcrm/backend/internal/store"
)

// memRepo is an in-memory appointment store; transactions restore a snapshot
// when fn fails.
type memRepo struct {
	rows      map[uuid.UUID]domain.Appointment
	clients   memClients
	setRefErr error
}

func newMemRepo(clients memClients) *memRepo {
	return &memRepo{rows: make(map[uuid.UUID]domain.Appointment), clients: clients}
}

func (r *memRepo) withClient(a domain.Appointment) domain.Appointment {
	if c, ok := r.clients[a.ClientID]; ok {
		a.Client = &c
	}
	return a
}

func (r *memRepo) Create(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	if _, ok := r.clients[appt.ClientID]; !ok {
		return domain.Appointment{}, &store.ConstraintError{Constraint: "appointments_client_id_fkey", Err: store.ErrReferenced}
	}
	appt.ID = uuid.New()
	if appt.Status == "" {
		appt.Status = domain.AppointmentActive
	}
	appt.CreatedAt = time.Now().UTC()
	appt.UpdatedAt = appt.CreatedAt
	appt.Client = nil
	r.rows[appt.ID] = appt
	return appt, nil
}

func (r *memRepo) Get(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	a, ok := r.rows[id]
	if !ok {
		return domain.Appointment{}, store.ErrNotFound
	}
	return r.withClient(a), nil
}

func (r *memRepo) List(ctx context.Context, f store.AppointmentFilter) ([]domain.Appointment, error) {
	var out []domain.Appointment
	for _, a := range r.rows {
		if f.Date != nil && !a.Date.Equal(*f.Date) {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		if f.ClientID != uuid.Nil && a.ClientID != f.ClientID {
			continue
		}
		out = append(out, r.withClient(a))
	}
	return out, nil
}

func (r *memRepo) BusyTimes(ctx context.Context, date time.Time) ([]string, error) {
	var out []string
	for _, a := range r.rows {
		if a.Date.Equal(date) && a.Status == domain.AppointmentActive {
			out = append(out, a.Time)
		}
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

func (r *memRepo) SetEventRef(ctx context.Context, id uuid.UUID, ref *string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.setRefErr != nil {
		return r.setRefErr
	}
	a, ok := r.rows[id]
	if !ok {
		return store.ErrNotFound
	}
	a.EventRef = ref
	r.rows[id] = a
	return nil
}

func (r *memRepo) InTransaction(ctx context.Context, fn func(ctx context.Context, tx store.AppointmentTx) error) error {
	snapshot := maps.Clone(r.rows)
	if err := fn(ctx, memTx{r: r}); err != nil {
		r.rows = snapshot
		return err
	}
	return nil
}

type memTx struct {
	r *memRepo
}

func (t memTx) GetAppointmentForUpdate(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	return t.r.Get(ctx, id)
}

func (t memTx) UpdateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	if _, ok := t.r.rows[appt.ID]; !ok {
		return domain.Appointment{}, store.ErrNotFound
	}
	appt.UpdatedAt = time.Now().UTC()
	row := appt
	row.Client = nil
	t.r.rows[appt.ID] = row
	return appt, nil
}

func (t memTx) DeleteAppointment(ctx context.Context, id uuid.UUID) error {
	if _, ok := t.r.rows[id]; !ok {
		return store.ErrNotFound
	}
	delete(t.r.rows, id)
	return nil
}

type memClients map[uuid.UUID]domain.Client

func (m memClients) Get(ctx context.Context, id uuid.UUID) (domain.Client, error) {
	c, ok := m[id]
	if !ok {
		return domain.Client{}, store.ErrNotFound
	}
	return c, nil
}

// fakeCalendar keeps created events so busy times can be read back. A non-nil
// *Err field fails that operation.
type fakeCalendar struct {
	events    map[string]calendar.EventInput
	createErr error
	updateErr error
	deleteErr error
	listErr   error
	creates   []calendar.EventInput
	updates   map[string][]calendar.EventPatch
	deletes   []string
	ctxErrs   []error
	nextID    int

	// Run once the provider call returns, while the service is mid-flight.
	afterCreate func()
	afterUpdate func()
	afterDelete func()
}

func newFakeCalendar() *fakeCalendar {
	return &fakeCalendar{
		events:  make(map[string]calendar.EventInput),
		updates: make(map[string][]calendar.EventPatch),
	}
}

func (f *fakeCalendar) CreateEvent(ctx context.Context, in calendar.EventInput) (string, error) {
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	f.creates = append(f.creates, in)
	if f.createErr != nil {
		return "", f.createErr
	}
	f.nextID++
	id := fmt.Sprintf("evt-%d", f.nextID)
	f.events[id] = in
	if f.afterCreate != nil {
		f.afterCreate()
	}
	return id, nil
}

func (f *fakeCalendar) UpdateEvent(ctx context.Context, eventID string, patch calendar.EventPatch) error {
	if f.afterUpdate != nil {
		defer f.afterUpdate()
	}
	f.updates[eventID] = append(f.updates[eventID], patch)
	if f.updateErr != nil {
		return f.updateErr
	}
	ev, ok := f.events[eventID]
	if !ok {
		return calendar.ErrNotFound
	}
	if patch.Title != "" {
		ev.Title = patch.Title
	}
	if patch.Description != "" {
		ev.Description = patch.Description
	}
	if patch.Date != nil && patch.Time != "" {
		ev.Date = *patch.Date
		ev.Time = patch.Time
	}
	f.events[eventID] = ev
	return nil
}

func (f *fakeCalendar) DeleteEvent(ctx context.Context, eventID string) error {
	f.deletes = append(f.deletes, eventID)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.events, eventID)
	if f.afterDelete != nil {
		f.afterDelete()
	}
	return nil
}

func (f *fakeCalendar) ListBusyTimes(ctx context.Context, date time.Time) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []string
	for _, ev := range f.events {
		if ev.Date.Equal(date) {
			out = append(out, ev.Time)
		}
	}
	slices.Sort(out)
	return out, nil
}

type recordingObserver struct {
	outcomes []string
}

func (r *recordingObserver) ObserveMirror(action, outcome string) {
	r.outcomes = append(r.outcomes, action+":"+outcome)
}
