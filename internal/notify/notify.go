// Package notify is the Notification Fan-out: it dispatches a message with
// two representations (chat-plaintext and HTML-with-substitution-map) to
// one or more channels depending on the configured mode (SPEC_FULL.md §4.6).
package notify

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Mode selects which channels a Fanout dispatches to.
type Mode int

const (
	// ModeProd dispatches to chat, team-chat, and email concurrently.
	ModeProd Mode = iota
	// ModeDev dispatches to email only.
	ModeDev
)

// Renderable is anything the Notification Fan-out can deliver: a
// chat-plaintext form for Telegram/Slack, and an HTML template path plus a
// substitution map for email.
type Renderable interface {
	ChatText() string
	HTMLTemplatePath() string
	HTMLSubstitutions() map[string]string
}

// Channel is one delivery mechanism.
type Channel interface {
	Send(ctx context.Context, msg Renderable) error
}

// Fanout dispatches a Renderable to the channels appropriate for Mode.
type Fanout struct {
	Mode     Mode
	Chat     Channel
	TeamChat Channel
	Email    Channel
}

// Send dispatches msg per §4.6: in prod mode all three channels run
// concurrently and the first error is surfaced; in dev mode only email
// runs.
func (f *Fanout) Send(ctx context.Context, msg Renderable) error {
	if f.Mode == ModeDev {
		return f.Email.Send(ctx, msg)
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error { return f.Chat.Send(egCtx, msg) })
	eg.Go(func() error { return f.TeamChat.Send(egCtx, msg) })
	eg.Go(func() error { return f.Email.Send(egCtx, msg) })
	return eg.Wait()
}
