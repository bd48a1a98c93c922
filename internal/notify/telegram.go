package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"html"
	"net/http"
	"strings"
	"time"
)

const telegramAPI = "https://api.telegram.org"

// Telegram posts to the Bot API sendMessage method. The destination is the chat id.
type Telegram struct {
	BaseURL string
	Token   string
	ChatID  string
	Client  *http.Client
}

func NewTelegram(token, chatID string) *Telegram {
	if token == "" || chatID == "" {
		return nil
	}
	return &Telegram{
		BaseURL: telegramAPI,
		Token:   token,
		ChatID:  chatID,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type telegramPayload struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// Message joins title and text the way they read in the chat: "<title> <text>".
func (t *Telegram) Message(title, text string) string {
	return html.EscapeString(strings.TrimSpace(title + " " + text))
}

func (t *Telegram) Send(ctx context.Context, title, text string) error {
	if t == nil || t.Token == "" {
		return errors.New("telegram disabled")
	}
	body, _ := json.Marshal(telegramPayload{
		ChatID:    t.ChatID,
		Text:      t.Message(title, text),
		ParseMode: "HTML",
	})
	url := strings.TrimRight(t.BaseURL, "/") + "/bot" + t.Token + "/sendMessage"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.Client.Do(req)
	if err != nil {
		// the error text carries the URL, which carries the token
		return errors.New("telegram: request failed: " + strings.ReplaceAll(err.Error(), t.Token, "***"))
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return statusError("telegram", resp.StatusCode)
	}
	return nil
}
