package rest

import (
	"encoding/json"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"lexcrm/backend/internal/domain"
	"lexcrm/backend/internal/service"
	"lexcrm/backend/internal/service/appointments"
	"lexcrm/backend/internal/service/clients"
	"lexcrm/backend/internal/service/documents"
	"lexcrm/backend/internal/service/messaging"
	"lexcrm/backend/internal/service/users"
	"lexcrm/backend/internal/store"
)

const (
	maxJSONBody      = 1 << 20
	defaultSlotCount = 10
	maxSlotCount     = 50
)

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return service.Invalidf("invalid JSON body: %v", err)
	}
	return nil
}

func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, service.Invalid("id must be a UUID")
	}
	return id, nil
}

// Clients

func (a *api) listClients(w http.ResponseWriter, r *http.Request) {
	rows, err := a.svc.Clients.List(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		a.fail(w, r, "list clients", err)
		return
	}
	out := make([]clientResponse, 0, len(rows))
	for _, c := range rows {
		out = append(out, toClient(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *api) createClient(w http.ResponseWriter, r *http.Request) {
	var req clientRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.fail(w, r, "create client", err)
		return
	}
	c, err := a.svc.Clients.Create(r.Context(), clients.CreateInput(req))
	if err != nil {
		a.fail(w, r, "create client", err)
		return
	}
	writeJSON(w, http.StatusCreated, toClient(c))
}

func (a *api) clientDetail(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.fail(w, r, "client detail", err)
		return
	}
	d, err := a.svc.Clients.Detail(r.Context(), id)
	if err != nil {
		a.fail(w, r, "client detail", err)
		return
	}
	docs := make([]documentResponse, 0, len(d.Documents))
	for _, doc := range d.Documents {
		docs = append(docs, toDocument(doc))
	}
	writeJSON(w, http.StatusOK, clientDetailResponse{
		clientResponse: toClient(d.Client),
		Appointments:   toAppointments(d.Appointments),
		Documents:      docs,
		Messages:       toMessages(d.Messages),
	})
}

func (a *api) updateClient(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.fail(w, r, "update client", err)
		return
	}
	var req clientPatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.fail(w, r, "update client", err)
		return
	}
	c, err := a.svc.Clients.Update(r.Context(), id, store.ClientPatch(req))
	if err != nil {
		a.fail(w, r, "update client", err)
		return
	}
	writeJSON(w, http.StatusOK, toClient(c))
}

func (a *api) deleteClient(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.fail(w, r, "delete client", err)
		return
	}
	if err := a.svc.Clients.Delete(r.Context(), id); err != nil {
		a.fail(w, r, "delete client", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := a.svc.Clients.Dashboard(r.Context())
	if err != nil {
		a.fail(w, r, "dashboard", err)
		return
	}
	recent := make([]recentConversationJSON, 0, len(d.Recent))
	for _, rc := range d.Recent {
		recent = append(recent, recentConversationJSON(rc))
	}
	writeJSON(w, http.StatusOK, dashboardResponse{
		TotalClients:       d.TotalClients,
		ActiveAppointments: d.ActiveAppointments,
		ActiveUsers:        d.ActiveUsers,
		TotalInstances:     d.TotalInstances,
		Recent:             recent,
	})
}

// Documents

func (a *api) uploadDocument(w http.ResponseWriter, r *http.Request) {
	clientID, err := pathID(r)
	if err != nil {
		a.fail(w, r, "upload document", err)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, a.maxUpload)
	if err := r.ParseMultipartForm(a.maxUpload); err != nil {
		a.fail(w, r, "upload document", service.Invalidf("invalid multipart form: %v", err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		a.fail(w, r, "upload document", service.Invalid("file is required"))
		return
	}
	defer file.Close()

	doc, err := a.svc.Documents.Upload(r.Context(), documents.UploadInput{
		ClientID:    clientID,
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		a.fail(w, r, "upload document", err)
		return
	}
	writeJSON(w, http.StatusCreated, toDocument(doc))
}

func (a *api) documentContent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.fail(w, r, "document content", err)
		return
	}
	doc, body, err := a.svc.Documents.Open(r.Context(), id)
	if err != nil {
		a.fail(w, r, "document content", err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.Name}))
	if doc.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(doc.Size, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		a.log.WarnContext(r.Context(), "document stream interrupted",
			slog.String("document_id", id.String()),
			slog.Any("err", err),
		)
	}
}

func (a *api) deleteDocument(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.fail(w, r, "delete document", err)
		return
	}
	if err := a.svc.Documents.Delete(r.Context(), id); err != nil {
		a.fail(w, r, "delete document", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Appointments

func (a *api) listAppointments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("client_id") == "" && q.Has("date") {
		rows, err := a.svc.Appointments.ListByDate(r.Context(), q.Get("date"), q.Get("status"))
		if err != nil {
			a.fail(w, r, "list appointments by date", err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointments(rows))
		return
	}
	in := appointments.ListInput{Date: q.Get("date"), Status: q.Get("status")}
	if raw := q.Get("client_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			a.fail(w, r, "list appointments", service.Invalid("client_id must be a UUID"))
			return
		}
		in.ClientID = id
	}
	rows, err := a.svc.Appointments.List(r.Context(), in)
	if err != nil {
		a.fail(w, r, "list appointments", err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointments(rows))
}

func (a *api) createAppointment(w http.ResponseWriter, r *http.Request) {
	var req appointmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.fail(w, r, "create appointment", err)
		return
	}
	res, err := a.svc.Appointments.Create(r.Context(), appointments.CreateInput(req))
	if err != nil {
		a.fail(w, r, "create appointment", err)
		return
	}
	writeJSON(w, http.StatusCreated, toMutation(res))
}

func (a *api) getAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.fail(w, r, "get appointment", err)
		return
	}
	appt, err := a.svc.Appointments.Get(r.Context(), id)
	if err != nil {
		a.fail(w, r, "get appointment", err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointment(appt))
}

func (a *api) rescheduleAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.fail(w, r, "reschedule appointment", err)
		return
	}
	var req rescheduleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.fail(w, r, "reschedule appointment", err)
		return
	}
	res, err := a.svc.Appointments.Reschedule(r.Context(), id, appointments.RescheduleInput(req))
	if err != nil {
		a.fail(w, r, "reschedule appointment", err)
		return
	}
	writeJSON(w, http.StatusOK, toMutation(res))
}

func (a *api) updateAppointmentStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.fail(w, r, "update appointment status", err)
		return
	}
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.fail(w, r, "update appointment status", err)
		return
	}
	res, err := a.svc.Appointments.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		a.fail(w, r, "update appointment status", err)
		return
	}
	writeJSON(w, http.StatusOK, toMutation(res))
}

func (a *api) mirrorAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.fail(w, r, "mirror appointment", err)
		return
	}
	res, err := a.svc.Appointments.Mirror(r.Context(), id)
	if err != nil {
		a.fail(w, r, "mirror appointment", err)
		return
	}
	writeJSON(w, http.StatusOK, toMutation(res))
}

func (a *api) deleteAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.fail(w, r, "delete appointment", err)
		return
	}
	res, err := a.svc.Appointments.Delete(r.Context(), id)
	if err != nil {
		a.fail(w, r, "delete appointment", err)
		return
	}
	writeJSON(w, http.StatusOK, toMutation(res))
}

// Availability

func (a *api) busyTimes(w http.ResponseWriter, r *http.Request) {
	date, err := domain.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		a.fail(w, r, "busy times", service.Invalid(err.Error()))
		return
	}
	busy, err := a.svc.Availability.BusyTimes(r.Context(), date)
	if err != nil {
		a.fail(w, r, "busy times", err)
		return
	}
	writeJSON(w, http.StatusOK, busyTimesResponse{
		Date:   domain.FormatDate(date),
		Busy:   busy.Times,
		Source: string(busy.Source),
	})
}

func (a *api) freeSlots(w http.ResponseWriter, r *http.Request) {
	count := defaultSlotCount
	if raw := r.URL.Query().Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			a.fail(w, r, "free slots", service.Invalid("count must be a positive integer"))
			return
		}
		count = min(n, maxSlotCount)
	}
	res, err := a.svc.Availability.FreeSlots(r.Context(), count)
	if err != nil {
		a.fail(w, r, "free slots", err)
		return
	}
	out := make([]slotResponse, 0, len(res.Slots))
	for _, s := range res.Slots {
		out = append(out, slotResponse{Date: domain.FormatDate(s.Date), Time: s.Time})
	}
	writeJSON(w, http.StatusOK, freeSlotsResponse{Slots: out, Source: string(res.Source)})
}

// Conversations and gateway

func (a *api) history(w http.ResponseWriter, r *http.Request) {
	rows, err := a.svc.Messaging.History(r.Context(), chi.URLParam(r, "phone"))
	if err != nil {
		a.fail(w, r, "history", err)
		return
	}
	writeJSON(w, http.StatusOK, toMessages(rows))
}

func (a *api) recordMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.fail(w, r, "record message", err)
		return
	}
	m, err := a.svc.Messaging.Record(r.Context(), messaging.RecordInput(req))
	if err != nil {
		a.fail(w, r, "record message", err)
		return
	}
	writeJSON(w, http.StatusCreated, toMessage(m))
}

func (a *api) sendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.fail(w, r, "send message", err)
		return
	}
	m, err := a.svc.Messaging.SendText(r.Context(), req.Phone, req.Message)
	if err != nil {
		a.fail(w, r, "send message", err)
		return
	}
	writeJSON(w, http.StatusCreated, toMessage(m))
}

func (a *api) listInstances(w http.ResponseWriter, r *http.Request) {
	rows, err := a.svc.Messaging.ListInstances(r.Context())
	if err != nil {
		a.fail(w, r, "list instances", err)
		return
	}
	out := make([]instanceResponse, 0, len(rows))
	for _, g := range rows {
		out = append(out, toInstance(g))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *api) createInstance(w http.ResponseWriter, r *http.Request) {
	var req instanceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.fail(w, r, "create instance", err)
		return
	}
	g, err := a.svc.Messaging.CreateInstance(r.Context(), messaging.InstanceInput(req))
	if err != nil {
		a.fail(w, r, "create instance", err)
		return
	}
	writeJSON(w, http.StatusCreated, toInstance(g))
}

func (a *api) deleteInstance(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.fail(w, r, "delete instance", err)
		return
	}
	if err := a.svc.Messaging.DeleteInstance(r.Context(), id); err != nil {
		a.fail(w, r, "delete instance", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) instanceStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.fail(w, r, "instance status", err)
		return
	}
	state, err := a.svc.Messaging.InstanceStatus(r.Context(), id)
	if err != nil {
		a.fail(w, r, "instance status", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": state})
}

// Users

func (a *api) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.fail(w, r, "login", err)
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		a.fail(w, r, "login", service.Invalid("email and password are required"))
		return
	}
	session, err := a.svc.Users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		a.fail(w, r, "login", err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{
		Token:     session.Token,
		TokenType: "Bearer",
		ExpiresAt: session.ExpiresAt,
		User:      toUser(session.User),
	})
}

func (a *api) listUsers(w http.ResponseWriter, r *http.Request) {
	rows, err := a.svc.Users.List(r.Context())
	if err != nil {
		a.fail(w, r, "list users", err)
		return
	}
	out := make([]userResponse, 0, len(rows))
	for _, u := range rows {
		out = append(out, toUser(u))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *api) createUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.fail(w, r, "create user", err)
		return
	}
	u, err := a.svc.Users.Create(r.Context(), users.CreateInput(req))
	if err != nil {
		a.fail(w, r, "create user", err)
		return
	}
	writeJSON(w, http.StatusCreated, toUser(u))
}

func (a *api) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.fail(w, r, "delete user", err)
		return
	}
	if err := a.svc.Users.Delete(r.Context(), id); err != nil {
		a.fail(w, r, "delete user", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
