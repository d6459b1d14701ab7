package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultSendTimeout = 10 * time.Second

// HTTPSender talks to an FCM-compatible HTTP gateway. The endpoint is
// configurable so tests can point it at a local server.
type HTTPSender struct {
	endpoint  string
	serverKey string
	client    *http.Client
}

func NewHTTPSender(endpoint, serverKey string) *HTTPSender {
	return &HTTPSender{
		endpoint:  endpoint,
		serverKey: serverKey,
		client:    &http.Client{Timeout: defaultSendTimeout},
	}
}

// sendRequest is the wire shape the gateway expects. The android/apns
// sections duplicate the sound hint because each platform reads its own.
type sendRequest struct {
	To           string       `json:"to"`
	Notification notification `json:"notification"`
	Android      androidHints `json:"android"`
	APNS         apnsHints    `json:"apns"`
}

type notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type androidHints struct {
	Notification struct {
		Sound    string `json:"sound"`
		Priority string `json:"priority"`
	} `json:"notification"`
}

type apnsHints struct {
	Payload struct {
		APS struct {
			Sound string `json:"sound"`
			Badge int    `json:"badge"`
		} `json:"aps"`
	} `json:"payload"`
}

type sendResponse struct {
	MessageID string `json:"message_id"`
}

func (s *HTTPSender) Send(ctx context.Context, token string, payload Payload) (string, error) {
	body := sendRequest{
		To:           token,
		Notification: notification{Title: payload.Title, Body: payload.Body},
	}
	body.Android.Notification.Sound = payload.Sound
	body.Android.Notification.Priority = payload.Priority
	body.APNS.Payload.APS.Sound = payload.Sound
	body.APNS.Payload.APS.Badge = payload.Badge

	raw, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encoding send request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("building send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+s.serverKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("dispatch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("dispatch failed: gateway returned %d: %s", resp.StatusCode, snippet)
	}

	var out sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding send response: %w", err)
	}

	return out.MessageID, nil
}
