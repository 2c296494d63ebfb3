package mail

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/JoJeongHyeon/gongja-mailservice/internal/counsel"
)

// DefaultTriggers are the subject keywords that mark a worry email.
var DefaultTriggers = []string{"고민", "상담"}

// DefaultLookback is how far back each batch searches the inbox.
const DefaultLookback = 24 * time.Hour

// Counselor runs one worry through the pipeline.
type Counselor interface {
	Process(ctx context.Context, text string, prov counsel.Provenance) (*counsel.Outcome, error)
}

// MatchesTrigger reports whether subject contains any trigger, ignoring case.
func MatchesTrigger(subject string, triggers []string) bool {
	s := strings.ToLower(subject)
	for _, t := range triggers {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" && strings.Contains(s, t) {
			return true
		}
	}
	return false
}

type Options struct {
	Triggers []string      // nil uses DefaultTriggers
	Lookback time.Duration // zero uses DefaultLookback
	Now      func() time.Time

	// OnOutcome is called after each successfully counselled message.
	OnOutcome func(*Message, *counsel.Outcome)
}

// Report summarizes one batch.
type Report struct {
	Fetched  int
	Skipped  int // already handled in an earlier run
	Ignored  int // subject without a trigger, or empty body
	NotWorry int
	Replied  int
	Failed   int
}

// Processor handles one inbox batch. Each message is isolated: a failure is
// logged and counted, and the message is left unmarked so the next run
// retries it.
type Processor struct {
	fetcher   Fetcher
	counselor Counselor
	sender    Sender
	renderer  *Renderer
	state     *State
	logger    *slog.Logger
	opts      Options
}

func NewProcessor(fetcher Fetcher, counselor Counselor, sender Sender, renderer *Renderer, state *State, logger *slog.Logger, opts Options) *Processor {
	if opts.Triggers == nil {
		opts.Triggers = DefaultTriggers
	}
	if opts.Lookback <= 0 {
		opts.Lookback = DefaultLookback
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Processor{
		fetcher:   fetcher,
		counselor: counselor,
		sender:    sender,
		renderer:  renderer,
		state:     state,
		logger:    logger,
		opts:      opts,
	}
}

// Run fetches the lookback window and answers every new worry in it.
func (p *Processor) Run(ctx context.Context) (Report, error) {
	var rep Report
	now := p.opts.Now()
	since := now.Add(-p.opts.Lookback)

	msgs, err := p.fetcher.Recent(ctx, since)
	if err != nil {
		return rep, fmt.Errorf("fetch inbox: %w", err)
	}
	rep.Fetched = len(msgs)

	for _, m := range msgs {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		p.handle(ctx, m, since, &rep)
	}

	p.state.LastRunAt = now.UTC()
	if pruned := p.state.Prune(since.Add(-p.opts.Lookback)); pruned > 0 {
		p.logger.Debug("pruned mail state", "entries", pruned)
	}
	if err := p.state.Save(); err != nil {
		return rep, fmt.Errorf("save mail state: %w", err)
	}

	p.logger.Info("mail batch complete",
		"fetched", rep.Fetched,
		"skipped", rep.Skipped,
		"ignored", rep.Ignored,
		"not_worry", rep.NotWorry,
		"replied", rep.Replied,
		"failed", rep.Failed,
	)
	return rep, nil
}

func (p *Processor) handle(ctx context.Context, m *Message, since time.Time, rep *Report) {
	key := m.Key()
	log := p.logger.With("message_id", m.ID, "from", m.From, "subject", m.Subject)

	if p.state.IsProcessed(key) {
		rep.Skipped++
		return
	}
	// SINCE is day-granular on the server; the lookback is enforced here.
	if !m.Date.IsZero() && m.Date.Before(since) {
		log.Debug("email is older than the lookback window", "date", m.Date)
		rep.Ignored++
		p.mark(key)
		return
	}
	if !MatchesTrigger(m.Subject, p.opts.Triggers) {
		log.Debug("subject has no trigger, not replying")
		rep.Ignored++
		p.mark(key)
		return
	}
	if m.Body == "" {
		log.Warn("worry email has no text body")
		rep.Ignored++
		p.mark(key)
		return
	}

	log.Info("processing worry email")
	out, err := p.counselor.Process(ctx, m.Body, counsel.Provenance{Source: counsel.SourceEmail, Email: m.From})
	if err != nil {
		p.fail(log, rep, key, "counsel", err)
		return
	}
	if p.opts.OnOutcome != nil {
		p.opts.OnOutcome(m, out)
	}
	if !out.IsWorry() {
		log.Info("email was not a worry, not replying")
		rep.NotWorry++
		p.mark(key)
		return
	}

	html, err := p.renderer.Render(m.Body, out.Advice.Advice)
	if err != nil {
		p.fail(log, rep, key, "render", err)
		return
	}
	if err := p.sender.Send(NewReply(m, html)); err != nil {
		p.fail(log, rep, key, "send", err)
		return
	}

	log.Info("reply sent", "session_id", out.Row.ID)
	rep.Replied++
	p.mark(key)
}

func (p *Processor) mark(key string) {
	p.state.MarkProcessed(key, p.opts.Now())
}

func (p *Processor) fail(log *slog.Logger, rep *Report, key, stage string, err error) {
	log.Error("worry email failed", "stage", stage, "error", err)
	rep.Failed++
	p.state.AddError(fmt.Sprintf("%s %s: %s: %v", p.opts.Now().UTC().Format(time.RFC3339), key, stage, err))
}
