package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

// Webhook posts a JSON payload, signed with HMAC-SHA256 in X-Signature when a secret is set.
type Webhook struct {
	URL     string
	Secret  string
	Headers map[string]string
	Client  *http.Client
}

func NewWebhook(url, secret string) *Webhook {
	if url == "" {
		return nil
	}
	return &Webhook{
		URL:    url,
		Secret: secret,
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

type webhookPayload struct {
	Title   string `json:"title"`
	Text    string `json:"text"`
	SentAt  int64  `json:"sent_at"`
	Version string `json:"version"`
}

// Sign returns the hex HMAC-SHA256 of body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (w *Webhook) Send(ctx context.Context, title, text string) error {
	if w == nil || w.URL == "" {
		return errors.New("webhook disabled")
	}
	body, err := json.Marshal(webhookPayload{Title: title, Text: text, SentAt: time.Now().Unix(), Version: "1"})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "sitemonitor-webhook/1.0")
	for k, v := range w.Headers {
		req.Header.Set(k, v)
	}
	if w.Secret != "" {
		req.Header.Set("X-Signature", Sign(w.Secret, body))
	}

	resp, err := w.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError("webhook", resp.StatusCode)
	}
	return nil
}
