package rest

import (
	"context"
	"io"
	"time"

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

type fakeAppointments struct {
	createFn       func(ctx context.Context, in appointments.CreateInput) (appointments.Result, error)
	rescheduleFn   func(ctx context.Context, id uuid.UUID, in appointments.RescheduleInput) (appointments.Result, error)
	updateStatusFn func(ctx context.Context, id uuid.UUID, status string) (appointments.Result, error)
	deleteFn       func(ctx context.Context, id uuid.UUID) (appointments.Result, error)
	mirrorFn       func(ctx context.Context, id uuid.UUID) (appointments.Result, error)
	getFn          func(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	listFn         func(ctx context.Context, in appointments.ListInput) ([]domain.Appointment, error)
	listByDateFn   func(ctx context.Context, date, status string) ([]domain.Appointment, error)
}

func (f *fakeAppointments) Create(ctx context.Context, in appointments.CreateInput) (appointments.Result, error) {
	if f.createFn == nil {
		panic("Create not configured")
	}
	return f.createFn(ctx, in)
}

func (f *fakeAppointments) Reschedule(ctx context.Context, id uuid.UUID, in appointments.RescheduleInput) (appointments.Result, error) {
	if f.rescheduleFn == nil {
		panic("Reschedule not configured")
	}
	return f.rescheduleFn(ctx, id, in)
}

func (f *fakeAppointments) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (appointments.Result, error) {
	if f.updateStatusFn == nil {
		panic("UpdateStatus not configured")
	}
	return f.updateStatusFn(ctx, id, status)
}

func (f *fakeAppointments) Delete(ctx context.Context, id uuid.UUID) (appointments.Result, error) {
	if f.deleteFn == nil {
		panic("Delete not configured")
	}
	return f.deleteFn(ctx, id)
}

func (f *fakeAppointments) Mirror(ctx context.Context, id uuid.UUID) (appointments.Result, error) {
	if f.mirrorFn == nil {
		panic("Mirror not configured")
	}
	return f.mirrorFn(ctx, id)
}

func (f *fakeAppointments) Get(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	if f.getFn == nil {
		panic("Get not configured")
	}
	return f.getFn(ctx, id)
}

func (f *fakeAppointments) List(ctx context.Context, in appointments.ListInput) ([]domain.Appointment, error) {
	if f.listFn == nil {
		panic("List not configured")
	}
	return f.listFn(ctx, in)
}

func (f *fakeAppointments) ListByDate(ctx context.Context, date, status string) ([]domain.Appointment, error) {
	if f.listByDateFn == nil {
		panic("ListByDate not configured")
	}
	return f.listByDateFn(ctx, date, status)
}

type fakeAvailability struct {
	busyFn  func(ctx context.Context, date time.Time) (availability.BusyTimes, error)
	slotsFn func(ctx context.Context, count int) (availability.FreeSlots, error)
}

func (f *fakeAvailability) BusyTimes(ctx context.Context, date time.Time) (availability.BusyTimes, error) {
	if f.busyFn == nil {
		panic("BusyTimes not configured")
	}
	return f.busyFn(ctx, date)
}

func (f *fakeAvailability) FreeSlots(ctx context.Context, count int) (availability.FreeSlots, error) {
	if f.slotsFn == nil {
		panic("FreeSlots not configured")
	}
	return f.slotsFn(ctx, count)
}

type fakeClients struct {
	createFn    func(ctx context.Context, in clients.CreateInput) (domain.Client, error)
	listFn      func(ctx context.Context, query string) ([]domain.Client, error)
	updateFn    func(ctx context.Context, id uuid.UUID, patch store.ClientPatch) (domain.Client, error)
	deleteFn    func(ctx context.Context, id uuid.UUID) error
	detailFn    func(ctx context.Context, id uuid.UUID) (domain.ClientDetail, error)
	dashboardFn func(ctx context.Context) (domain.Dashboard, error)
}

func (f *fakeClients) Create(ctx context.Context, in clients.CreateInput) (domain.Client, error) {
	if f.createFn == nil {
		panic("Create not configured")
	}
	return f.createFn(ctx, in)
}

func (f *fakeClients) List(ctx context.Context, query string) ([]domain.Client, error) {
	if f.listFn == nil {
		panic("List not configured")
	}
	return f.listFn(ctx, query)
}

func (f *fakeClients) Update(ctx context.Context, id uuid.UUID, patch store.ClientPatch) (domain.Client, error) {
	if f.updateFn == nil {
		panic("Update not configured")
	}
	return f.updateFn(ctx, id, patch)
}

func (f *fakeClients) Delete(ctx context.Context, id uuid.UUID) error {
	if f.deleteFn == nil {
		panic("Delete not configured")
	}
	return f.deleteFn(ctx, id)
}

func (f *fakeClients) Detail(ctx context.Context, id uuid.UUID) (domain.ClientDetail, error) {
	if f.detailFn == nil {
		panic("Detail not configured")
	}
	return f.detailFn(ctx, id)
}

func (f *fakeClients) Dashboard(ctx context.Context) (domain.Dashboard, error) {
	if f.dashboardFn == nil {
		panic("Dashboard not configured")
	}
	return f.dashboardFn(ctx)
}

type fakeDocuments struct {
	uploadFn func(ctx context.Context, in documents.UploadInput) (domain.Document, error)
	openFn   func(ctx context.Context, id uuid.UUID) (domain.Document, io.ReadCloser, error)
	deleteFn func(ctx context.Context, id uuid.UUID) error
}

func (f *fakeDocuments) Upload(ctx context.Context, in documents.UploadInput) (domain.Document, error) {
	if f.uploadFn == nil {
		panic("Upload not configured")
	}
	return f.uploadFn(ctx, in)
}

func (f *fakeDocuments) Open(ctx context.Context, id uuid.UUID) (domain.Document, io.ReadCloser, error) {
	if f.openFn == nil {
		panic("Open not configured")
	}
	return f.openFn(ctx, id)
}

func (f *fakeDocuments) Delete(ctx context.Context, id uuid.UUID) error {
	if f.deleteFn == nil {
		panic("Delete not configured")
	}
	return f.deleteFn(ctx, id)
}

type fakeUsers struct {
	createFn func(ctx context.Context, in users.CreateInput) (domain.User, error)
	listFn   func(ctx context.Context) ([]domain.User, error)
	deleteFn func(ctx context.Context, id uuid.UUID) error
	loginFn  func(ctx context.Context, email, password string) (users.Session, error)
}

func (f *fakeUsers) Create(ctx context.Context, in users.CreateInput) (domain.User, error) {
	if f.createFn == nil {
		panic("Create not configured")
	}
	return f.createFn(ctx, in)
}

func (f *fakeUsers) List(ctx context.Context) ([]domain.User, error) {
	if f.listFn == nil {
		panic("List not configured")
	}
	return f.listFn(ctx)
}

func (f *fakeUsers) Delete(ctx context.Context, id uuid.UUID) error {
	if f.deleteFn == nil {
		panic("Delete not configured")
	}
	return f.deleteFn(ctx, id)
}

func (f *fakeUsers) Login(ctx context.Context, email, password string) (users.Session, error) {
	if f.loginFn == nil {
		panic("Login not configured")
	}
	return f.loginFn(ctx, email, password)
}

type fakeMessaging struct {
	createInstanceFn func(ctx context.Context, in messaging.InstanceInput) (domain.GatewayInstance, error)
	listInstancesFn  func(ctx context.Context) ([]domain.GatewayInstance, error)
	deleteInstanceFn func(ctx context.Context, id uuid.UUID) error
	statusFn         func(ctx context.Context, id uuid.UUID) (string, error)
	sendTextFn       func(ctx context.Context, phone, text string) (domain.ConversationMessage, error)
	recordFn         func(ctx context.Context, in messaging.RecordInput) (domain.ConversationMessage, error)
	historyFn        func(ctx context.Context, phone string) ([]domain.ConversationMessage, error)
}

func (f *fakeMessaging) CreateInstance(ctx context.Context, in messaging.InstanceInput) (domain.GatewayInstance, error) {
	if f.createInstanceFn == nil {
		panic("CreateInstance not configured")
	}
	return f.createInstanceFn(ctx, in)
}

func (f *fakeMessaging) ListInstances(ctx context.Context) ([]domain.GatewayInstance, error) {
	if f.listInstancesFn == nil {
		panic("ListInstances not configured")
	}
	return f.listInstancesFn(ctx)
}

func (f *fakeMessaging) DeleteInstance(ctx context.Context, id uuid.UUID) error {
	if f.deleteInstanceFn == nil {
		panic("DeleteInstance not configured")
	}
	return f.deleteInstanceFn(ctx, id)
}

func (f *fakeMessaging) InstanceStatus(ctx context.Context, id uuid.UUID) (string, error) {
	if f.statusFn == nil {
		panic("InstanceStatus not configured")
	}
	return f.statusFn(ctx, id)
}

func (f *fakeMessaging) SendText(ctx context.Context, phone, text string) (domain.ConversationMessage, error) {
	if f.sendTextFn == nil {
		panic("SendText not configured")
	}
	return f.sendTextFn(ctx, phone, text)
}

func (f *fakeMessaging) Record(ctx context.Context, in messaging.RecordInput) (domain.ConversationMessage, error) {
	if f.recordFn == nil {
		panic("Record not configured")
	}
	return f.recordFn(ctx, in)
}

func (f *fakeMessaging) History(ctx context.Context, phone string) ([]domain.ConversationMessage, error) {
	if f.historyFn == nil {
		panic("History not configured")
	}
	return f.historyFn(ctx, phone)
}

func emptyServices() Services {
	return Services{
		Appointments: &fakeAppointments{},
		Availability: &fakeAvailability{},
		Clients:      &fakeClients{},
		Documents:    &fakeDocuments{},
		Users:        &fakeUsers{},
		Messaging:    &fakeMessaging{},
	}
}
