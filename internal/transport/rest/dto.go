package rest

import (
	"time"

	"github.com/google/uuid"

	"lexcrm/backend/internal/domain"
	"lexcrm/backend/internal/service/appointments"
)

type clientRequest struct {
	Name  string `json:"name"`
	TaxID string `json:"tax_id"`
	Phone string `json:"phone"`
	Email string `json:"email"`
	Notes string `json:"notes"`
}

type clientPatchRequest struct {
	Name  *string `json:"name"`
	TaxID *string `json:"tax_id"`
	Email *string `json:"email"`
	Notes *string `json:"notes"`
}

type clientResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	TaxID     *string   `json:"tax_id"`
	Phone     string    `json:"phone"`
	Email     *string   `json:"email"`
	Notes     *string   `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
}

func toClient(c domain.Client) clientResponse {
	return clientResponse{
		ID:        c.ID,
		Name:      c.Name,
		TaxID:     c.TaxID,
		Phone:     c.Phone,
		Email:     c.Email,
		Notes:     c.Notes,
		CreatedAt: c.CreatedAt,
	}
}

type clientDetailResponse struct {
	clientResponse
	Appointments []appointmentResponse `json:"appointments"`
	Documents    []documentResponse    `json:"documents"`
	Messages     []messageResponse     `json:"messages"`
}

type appointmentRequest struct {
	ClientID uuid.UUID `json:"client_id"`
	Date     string    `json:"date"`
	Time     string    `json:"time"`
	Type     string    `json:"type"`
	Notes    string    `json:"notes"`
}

type rescheduleRequest struct {
	Date  string  `json:"date"`
	Time  string  `json:"time"`
	Type  string  `json:"type"`
	Notes *string `json:"notes"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type appointmentResponse struct {
	ID         uuid.UUID `json:"id"`
	ClientID   uuid.UUID `json:"client_id"`
	ClientName string    `json:"client_name,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	Date       string    `json:"date"`
	Time       string    `json:"time"`
	Type       string    `json:"type"`
	TypeLabel  string    `json:"type_label"`
	Notes      string    `json:"notes"`
	Status     string    `json:"status"`
	EventRef   *string   `json:"event_ref"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func toAppointment(a domain.Appointment) appointmentResponse {
	out := appointmentResponse{
		ID:        a.ID,
		ClientID:  a.ClientID,
		Date:      domain.FormatDate(a.Date),
		Time:      a.Time,
		Type:      string(a.Type),
		TypeLabel: a.Type.Label(),
		Notes:     a.Notes,
		Status:    string(a.Status),
		EventRef:  a.EventRef,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
	if a.Client != nil {
		out.ClientName = a.Client.Name
		out.Phone = a.Client.Phone
	}
	return out
}

func toAppointments(in []domain.Appointment) []appointmentResponse {
	out := make([]appointmentResponse, 0, len(in))
	for _, a := range in {
		out = append(out, toAppointment(a))
	}
	return out
}

type mutationResponse struct {
	Appointment appointmentResponse `json:"appointment"`
	Mirror      string              `json:"mirror"`
	MirrorError string              `json:"mirror_error,omitempty"`
}

func toMutation(res appointments.Result) mutationResponse {
	out := mutationResponse{
		Appointment: toAppointment(res.Appointment),
		Mirror:      string(res.Mirror),
	}
	if res.MirrorErr != nil {
		out.MirrorError = res.MirrorErr.Error()
	}
	return out
}

type busyTimesResponse struct {
	Date   string   `json:"date"`
	Busy   []string `json:"busy"`
	Source string   `json:"source"`
}

type slotResponse struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

type freeSlotsResponse struct {
	Slots  []slotResponse `json:"slots"`
	Source string         `json:"source"`
}

type documentResponse struct {
	ID          uuid.UUID `json:"id"`
	ClientID    uuid.UUID `json:"client_id"`
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

func toDocument(d domain.Document) documentResponse {
	return documentResponse{
		ID:          d.ID,
		ClientID:    d.ClientID,
		Name:        d.Name,
		ContentType: d.ContentType,
		Size:        d.Size,
		CreatedAt:   d.CreatedAt,
	}
}

type messageRequest struct {
	Phone   string `json:"phone"`
	Origin  string `json:"origin"`
	Kind    string `json:"kind"`
	Content string `json:"content"`
}

type sendMessageRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

type messageResponse struct {
	ID        uuid.UUID `json:"id"`
	Phone     string    `json:"phone"`
	Origin    string    `json:"origin"`
	Kind      string    `json:"kind"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func toMessage(m domain.ConversationMessage) messageResponse {
	return messageResponse{
		ID:        m.ID,
		Phone:     m.Phone,
		Origin:    string(m.Origin),
		Kind:      m.Kind,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}

func toMessages(in []domain.ConversationMessage) []messageResponse {
	out := make([]messageResponse, 0, len(in))
	for _, m := range in {
		out = append(out, toMessage(m))
	}
	return out
}

type dashboardResponse struct {
	TotalClients       int                      `json:"total_clients"`
	ActiveAppointments int                      `json:"active_appointments"`
	ActiveUsers        int                      `json:"active_users"`
	TotalInstances     int                      `json:"total_instances"`
	Recent             []recentConversationJSON `json:"recent"`
}

type recentConversationJSON struct {
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string       `json:"token"`
	TokenType string       `json:"token_type"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      userResponse `json:"user"`
}

type userRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Phone    string `json:"phone"`
}

type userResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Phone     *string   `json:"phone"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

func toUser(u domain.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      string(u.Role),
		Phone:     u.Phone,
		Active:    u.Active,
		CreatedAt: u.CreatedAt,
	}
}

type instanceRequest struct {
	Name         string `json:"name"`
	BaseURL      string `json:"base_url"`
	APIKey       string `json:"api_key"`
	InstanceName string `json:"instance_name"`
}

type instanceResponse struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	BaseURL      string    `json:"base_url"`
	InstanceName string    `json:"instance_name"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

func toInstance(g domain.GatewayInstance) instanceResponse {
	return instanceResponse{
		ID:           g.ID,
		Name:         g.Name,
		BaseURL:      g.BaseURL,
		InstanceName: g.InstanceName,
		Status:       g.Status,
		CreatedAt:    g.CreatedAt,
	}
}
