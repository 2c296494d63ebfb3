package counsel

import (
	"context"
	"encoding/json"
	"strings"
)

// SubjectWorrySubmitted is where other services submit worries.
const SubjectWorrySubmitted = "gongja.worry.submitted"

// WorryEvent is the payload on SubjectWorrySubmitted.
type WorryEvent struct {
	Text  string `json:"text"`
	Email string `json:"email,omitempty"`
}

// WorryHandler returns the NATS handler for gongja.worry.submitted. Sessions
// it starts are bound to ctx. Failures are logged; one bad event never stops
// the subscription.
func (c *Counselor) WorryHandler(ctx context.Context) func(subject string, data []byte) {
	return func(subject string, data []byte) {
		c.handleWorry(ctx, subject, data)
	}
}

func (c *Counselor) handleWorry(ctx context.Context, subject string, data []byte) {
	var evt WorryEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		c.logger.Error("failed to parse worry event", "subject", subject, "error", err)
		return
	}
	if strings.TrimSpace(evt.Text) == "" {
		c.logger.Warn("ignoring empty worry event", "subject", subject)
		return
	}

	out, err := c.Process(ctx, evt.Text, Provenance{Source: SourceNATS, Email: evt.Email})
	if err != nil {
		c.logger.Error("worry event processing failed", "subject", subject, "error", err)
		return
	}
	if !out.IsWorry() {
		c.logger.Info("worry event was not a worry", "subject", subject)
	}
}
