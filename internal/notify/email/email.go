// Package email implements notify.Channel by invoking a SQL stored
// procedure per recipient, grounded on jordigilh-kubernaut's sqlx usage.
// The driver is left pluggable (registered by the caller via database/sql)
// since no MSSQL driver appears anywhere in the example pack.
package email

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/crlsmrls/esmonitor/internal/notify"
)

// Channel delivers rendered HTML email via a stored-procedure call to every
// configured recipient, concurrently, with per-recipient failures logged
// and not propagated.
type Channel struct {
	db         *sqlx.DB
	procedure  string
	recipients []string
	log        zerolog.Logger
}

// New builds a Channel that calls procedure (e.g. "usp_send_mail"; Send
// adds the EXEC keyword and the two arguments) against db for each of
// recipients.
func New(db *sqlx.DB, procedure string, recipients []string, log zerolog.Logger) *Channel {
	return &Channel{db: db, procedure: procedure, recipients: recipients, log: log}
}

// render reads the HTML template at path and replaces every literal `{key}`
// occurrence with its substitution value — a manual str::replace-style
// pass, not text/template, since the substitution contract is literal-brace
// replacement rather than Go template syntax.
func render(path string, substitutions map[string]string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("email: read template %q: %w", path, err)
	}

	body := string(raw)
	for key, value := range substitutions {
		body = strings.ReplaceAll(body, "{"+key+"}", value)
	}
	return body, nil
}

// Send renders msg's HTML template and delivers it to every recipient
// concurrently via the stored procedure. A per-recipient failure is logged,
// not returned: Send only fails if the template itself cannot be rendered.
func (c *Channel) Send(ctx context.Context, msg notify.Renderable) error {
	body, err := render(msg.HTMLTemplatePath(), msg.HTMLSubstitutions())
	if err != nil {
		return err
	}

	query := c.db.Rebind(fmt.Sprintf("EXEC %s ?, ?", c.procedure))

	var wg sync.WaitGroup
	for _, recipient := range c.recipients {
		wg.Add(1)
		go func(recipient string) {
			defer wg.Done()
			if _, err := c.db.ExecContext(ctx, query, recipient, body); err != nil {
				c.log.Error().Err(err).Str("recipient", recipient).Msg("failed to deliver email via stored procedure")
			}
		}(recipient)
	}
	wg.Wait()

	return nil
}
