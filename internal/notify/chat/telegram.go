// Package chat implements notify.Channel over the Telegram Bot API — no
// Telegram SDK appears anywhere in the example pack, so delivery is a
// direct net/http POST, matching the original source's reqwest usage.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/crlsmrls/esmonitor/internal/notify"
)

const (
	maxAttempts  = 3
	retryBackoff = 40 * time.Second

	defaultBaseURL = "https://api.telegram.org"
)

// Channel delivers notify.Renderable messages to a single Telegram chat.
type Channel struct {
	botToken   string
	chatID     string
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// New builds a Channel posting to https://api.telegram.org/bot{botToken}/sendMessage.
func New(botToken, chatID string, log zerolog.Logger) *Channel {
	return &Channel{
		botToken:   botToken,
		chatID:     chatID,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        log,
	}
}

// Send retries up to three times with a 40-second pause between attempts,
// returning an error after the third failure, per §4.6. If ctx is done
// during a pause, Send returns ctx.Err() at once.
func (c *Channel) Send(ctx context.Context, msg notify.Renderable) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.post(ctx, msg.ChatText()); err != nil {
			lastErr = err
			c.log.Warn().Err(err).Int("attempt", attempt).Msg("telegram delivery attempt failed")

			if attempt < maxAttempts {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(retryBackoff):
				}
			}
			continue
		}
		return nil
	}
	return fmt.Errorf("chat: delivery failed after %d attempts: %w", maxAttempts, lastErr)
}

func (c *Channel) post(ctx context.Context, text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.botToken)

	payload, err := json.Marshal(map[string]string{"chat_id": c.chatID, "text": text})
	if err != nil {
		return fmt.Errorf("chat: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("chat: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("chat: request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("chat: telegram returned %s", res.Status)
	}
	return nil
}
