package whatsapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectionState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/instance/connectionState/escritorio", r.URL.Path)
		assert.Equal(t, "key-1", r.Header.Get("apikey"))
		_, _ = w.Write([]byte(`{"instance":{"instanceName":"escritorio","state":"open"}}`))
	}))
	defer srv.Close()

	c := NewClient(WithHTTPClient(srv.Client()))
	state, err := c.ConnectionState(context.Background(), Instance{BaseURL: srv.URL + "/", APIKey: "key-1", Name: "escritorio"})
	require.NoError(t, err)
	assert.Equal(t, "open", state)
}

func TestConnectionState_MissingStateAndErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/instance/connectionState/broken" {
			http.Error(w, "instance not found", http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()
	c := NewClient(WithHTTPClient(srv.Client()))

	state, err := c.ConnectionState(context.Background(), Instance{BaseURL: srv.URL, Name: "a"})
	require.NoError(t, err)
	assert.Equal(t, StateUnknown, state)

	_, err = c.ConnectionState(context.Background(), Instance{BaseURL: srv.URL, Name: "broken"})
	require.ErrorIs(t, err, ErrGateway)
	assert.Contains(t, err.Error(), "404")

	_, err = c.ConnectionState(context.Background(), Instance{Name: "a"})
	require.ErrorIs(t, err, ErrGateway)
}

func TestConnectionState_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(WithHTTPClient(srv.Client()), WithTimeouts(50*time.Millisecond, 0))
	_, err := c.ConnectionState(context.Background(), Instance{BaseURL: srv.URL, Name: "a"})
	require.ErrorIs(t, err, ErrGateway)
}

func TestSendText(t *testing.T) {
	var got sendTextRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/message/sendText/escritorio", r.URL.Path)
		assert.Equal(t, "key-1", r.Header.Get("apikey"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewClient(WithHTTPClient(srv.Client()))
	err := c.SendText(context.Background(), Instance{BaseURL: srv.URL, APIKey: "key-1", Name: "escritorio"}, "5585999990000", "Olá")
	require.NoError(t, err)
	assert.Equal(t, sendTextRequest{Number: "5585999990000", Text: "Olá"}, got)
}

func TestSendText_RejectedIsGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"number not on whatsapp"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(WithHTTPClient(srv.Client()))
	err := c.SendText(context.Background(), Instance{BaseURL: srv.URL, Name: "a"}, "1", "x")
	require.ErrorIs(t, err, ErrGateway)
	assert.Contains(t, err.Error(), "number not on whatsapp")
}
