// Package teamchat implements notify.Channel over Slack, grounded on the
// wisbric-nightowl/jordigilh-kubernaut pack's slack-go/slack usage.
package teamchat

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"

	"github.com/crlsmrls/esmonitor/internal/notify"
)

// Channel delivers notify.Renderable messages to a single Slack channel.
type Channel struct {
	client    *slack.Client
	channelID string
}

// New builds a Channel posting to channelID with the given bot token.
func New(botToken, channelID string) *Channel {
	return &Channel{client: slack.New(botToken), channelID: channelID}
}

// newWithAPIURL builds a Channel against a custom Slack API base URL, for
// tests that stand in a fake server for slack.com.
func newWithAPIURL(botToken, channelID, apiURL string) *Channel {
	return &Channel{client: slack.New(botToken, slack.OptionAPIURL(apiURL)), channelID: channelID}
}

// Send posts msg's chat-plaintext form. slack-go surfaces a non-nil error
// whenever the API responds with ok=false, satisfying §4.6's "HTTP 2xx AND
// body.ok==true" success contract without reimplementing it.
func (c *Channel) Send(ctx context.Context, msg notify.Renderable) error {
	_, _, err := c.client.PostMessageContext(ctx, c.channelID, slack.MsgOptionText(msg.ChatText(), false))
	if err != nil {
		return fmt.Errorf("teamchat: post message: %w", err)
	}
	return nil
}
