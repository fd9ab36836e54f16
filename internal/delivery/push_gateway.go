package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/promoloop/campaigns-backend/pkg/jwt"
)

// PushGateway delivers messages through the channel's HTTP push API
type PushGateway struct {
	baseURL      string
	tokenService *jwt.PushTokenService
	httpClient   *http.Client
}

// NewPushGateway creates a new PushGateway
func NewPushGateway(baseURL, apiSecret string) *PushGateway {
	return &PushGateway{
		baseURL:      baseURL,
		tokenService: jwt.NewPushTokenService(apiSecret, 24*time.Hour),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

var _ Adapter = (*PushGateway)(nil)

type pushRequest struct {
	ChatRef string   `json:"chatRef"`
	Text    string   `json:"text"`
	Buttons []Button `json:"buttons,omitempty"`
}

type pushResponse struct {
	MessageRef string `json:"messageRef"`
}

// Send pushes a message to one subscriber and classifies the outcome
func (g *PushGateway) Send(ctx context.Context, chatRef string, content Content) Result {
	resp, err := g.post(ctx, "/messages", pushRequest{
		ChatRef: chatRef,
		Text:    content.Text,
		Buttons: content.Buttons,
	})
	if err != nil {
		return Result{Status: StatusTransientFailure, Err: err}
	}
	return classify(resp)
}

// Edit replaces the content of a previously delivered message
func (g *PushGateway) Edit(ctx context.Context, chatRef, messageRef string, content Content) (bool, error) {
	path := fmt.Sprintf("/messages/%s", messageRef)
	resp, err := g.post(ctx, path, pushRequest{
		ChatRef: chatRef,
		Text:    content.Text,
		Buttons: content.Buttons,
	})
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK, nil
}

func (g *PushGateway) post(ctx context.Context, path string, payload any) (*http.Response, error) {
	token, err := g.tokenService.GetToken()
	if err != nil {
		return nil, fmt.Errorf("failed to get gateway token: %w", err)
	}

	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return resp, nil
}

// classify maps the gateway's HTTP response onto the Result taxonomy
func classify(resp *http.Response) Result {
	defer resp.Body.Close()
	status := resp.StatusCode
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{Status: StatusTransientFailure, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	switch {
	case status == http.StatusOK:
		var parsed pushResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return Result{Status: StatusTransientFailure, Err: fmt.Errorf("failed to parse response: %w", err)}
		}
		return Result{Status: StatusDelivered, MessageRef: parsed.MessageRef}
	case status == http.StatusForbidden || status == http.StatusGone:
		// The subscriber blocked the channel or the chat no longer exists
		return Result{Status: StatusBlocked, Err: fmt.Errorf("recipient unreachable: %s", string(body))}
	case status == http.StatusTooManyRequests:
		retryAfter := 1 * time.Second
		if v := resp.Header.Get("Retry-After"); v != "" {
			if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
				retryAfter = time.Duration(secs) * time.Second
			}
		}
		return Result{Status: StatusRateLimited, RetryAfter: retryAfter}
	case status >= 500:
		return Result{Status: StatusTransientFailure, Err: fmt.Errorf("gateway error %d: %s", status, string(body))}
	default:
		return Result{Status: StatusPermanentFailure, Err: fmt.Errorf("request rejected with status %d: %s", status, string(body))}
	}
}
