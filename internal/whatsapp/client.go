// Package whatsapp talks to an Evolution API messaging gateway.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultStateTimeout = 5 * time.Second
	DefaultSendTimeout  = 15 * time.Second

	// StateUnknown is reported when the gateway answers without a state.
	StateUnknown = "unknown"

	maxErrorBody = 200
)

var ErrGateway = errors.New("messaging gateway error")

// Instance addresses one gateway instance.
type Instance struct {
	BaseURL string
	APIKey  string
	Name    string
}

type Client struct {
	httpClient   *http.Client
	stateTimeout time.Duration
	sendTimeout  time.Duration
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

func WithTimeouts(state, send time.Duration) Option {
	return func(cl *Client) {
		if state > 0 {
			cl.stateTimeout = state
		}
		if send > 0 {
			cl.sendTimeout = send
		}
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient:   &http.Client{},
		stateTimeout: DefaultStateTimeout,
		sendTimeout:  DefaultSendTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type connectionStateResponse struct {
	Instance struct {
		State string `json:"state"`
	} `json:"instance"`
}

// ConnectionState returns the instance's connection state as the gateway
// reports it, e.g. "open" or "close".
func (c *Client) ConnectionState(ctx context.Context, inst Instance) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.stateTimeout)
	defer cancel()

	endpoint, err := inst.endpoint("instance", "connectionState")
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("apikey", inst.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: connection state: %v", ErrGateway, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", statusError("connection state", resp)
	}
	var body connectionStateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: connection state: decode: %v", ErrGateway, err)
	}
	if body.Instance.State == "" {
		return StateUnknown, nil
	}
	return body.Instance.State, nil
}

type sendTextRequest struct {
	Number string `json:"number"`
	Text   string `json:"text"`
}

func (c *Client) SendText(ctx context.Context, inst Instance, number, text string) error {
	ctx, cancel := context.WithTimeout(ctx, c.sendTimeout)
	defer cancel()

	endpoint, err := inst.endpoint("message", "sendText")
	if err != nil {
		return err
	}
	payload, err := json.Marshal(sendTextRequest{Number: number, Text: text})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("apikey", inst.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: send text: %v", ErrGateway, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return statusError("send text", resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (i Instance) endpoint(group, action string) (string, error) {
	base := strings.TrimRight(strings.TrimSpace(i.BaseURL), "/")
	if base == "" || strings.TrimSpace(i.Name) == "" {
		return "", fmt.Errorf("%w: instance base url and name are required", ErrGateway)
	}
	return base + "/" + group + "/" + action + "/" + url.PathEscape(i.Name), nil
}

func statusError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return fmt.Errorf("%w: %s: status %d: %s", ErrGateway, op, resp.StatusCode, strings.TrimSpace(string(body)))
}
