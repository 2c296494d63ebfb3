// Package counsel runs a worry through the two model stages: classification
// against the knowledge base, then advice citing one sampled passage.
package counsel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JoJeongHyeon/gongja-mailservice/internal/extract"
	"github.com/JoJeongHyeon/gongja-mailservice/internal/knowledge"
	"github.com/JoJeongHyeon/gongja-mailservice/internal/llm"
	"github.com/JoJeongHyeon/gongja-mailservice/internal/prompt"
)

// SubjectSessionCompleted carries a LogRow after every completed session.
const SubjectSessionCompleted = "gongja.session.completed"

// ErrNotAWorry is returned by Advise for a classification that is not a worry.
var ErrNotAWorry = errors.New("input is not a worry")

// Sink appends one row per completed session.
type Sink interface {
	Append(ctx context.Context, row LogRow) error
}

// Publisher announces completed sessions.
type Publisher interface {
	Publish(subject string, data any) error
}

type Options struct {
	Params     llm.Params
	SampleSize int
	Rand       *rand.Rand       // nil draws from a randomly seeded source
	Now        func() time.Time // nil uses time.Now
	Publisher  Publisher        // optional
}

// Counselor is the advice pipeline. It holds only read-only state besides
// the random source, which is guarded, so it is safe for concurrent use.
type Counselor struct {
	llm       llm.Invoker
	kb        *knowledge.Base
	corpus    *knowledge.Corpus
	sink      Sink
	publisher Publisher
	logger    *slog.Logger
	params    llm.Params

	sampleSize int
	intro      string
	now        func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

func New(inv llm.Invoker, kb *knowledge.Base, corpus *knowledge.Corpus, sink Sink, logger *slog.Logger, opts Options) *Counselor {
	c := &Counselor{
		llm:        inv,
		kb:         kb,
		corpus:     corpus,
		sink:       sink,
		publisher:  opts.Publisher,
		logger:     logger,
		params:     opts.Params,
		sampleSize: opts.SampleSize,
		intro:      prompt.Introduction(kb),
		now:        opts.Now,
		rng:        opts.Rand,
	}
	if c.sampleSize <= 0 {
		c.sampleSize = prompt.DefaultSampleSize
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.rng == nil {
		c.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return c
}

// Process classifies text and, when it is a worry, generates advice and
// appends the session row. A non-worry makes exactly one model call and
// writes nothing.
func (c *Counselor) Process(ctx context.Context, text string, prov Provenance) (*Outcome, error) {
	c.logger.Info("analysing worry", "source", prov.Source, "email", prov.Email, "input_len", len(text))

	cr, analysis, err := c.Classify(ctx, text)
	if err != nil {
		return nil, err
	}
	out := &Outcome{Classification: cr, AnalysisTime: analysis}

	if !cr.IsWorry {
		c.logger.Info("input is not a worry", "source", prov.Source, "elapsed", analysis.Seconds())
		return out, nil
	}

	ar, sample, advice, err := c.advise(ctx, cr)
	if err != nil {
		return nil, err
	}
	out.Advice = ar
	out.Sample = sample
	out.AdviceTime = advice

	_, out.PassageInSample = knowledge.FindPassage(sample, ar.SelectedPassage)
	if !out.PassageInSample {
		c.logger.Warn("selected passage was not among the offered sample", "selected", ar.SelectedPassage)
	}

	row := NewLogRow(uuid.New(), c.now(), prov, *cr, *ar, analysis, advice)
	if c.sink != nil {
		if err := c.sink.Append(ctx, row); err != nil {
			return nil, fmt.Errorf("persist session: %w", err)
		}
	}
	out.Row = &row

	if c.publisher != nil {
		if err := c.publisher.Publish(SubjectSessionCompleted, row); err != nil {
			c.logger.Warn("failed to publish session", "session_id", row.ID, "error", err)
		}
	}

	c.logger.Info("session completed",
		"session_id", row.ID,
		"source", prov.Source,
		"concept", cr.ChosenSubConcept,
		"analysis_time", analysis.Seconds(),
		"advice_time", advice.Seconds(),
	)
	return out, nil
}

// Classify runs the first stage and returns the record and the model latency.
func (c *Counselor) Classify(ctx context.Context, text string) (*ClassificationRecord, time.Duration, error) {
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: prompt.System()},
		{Role: llm.RoleAssistant, Content: c.intro},
		{Role: llm.RoleUser, Content: prompt.Classification(c.kb, text)},
	}

	rec, elapsed, err := c.call(ctx, "classify", messages)
	if err != nil {
		return nil, elapsed, err
	}

	cr, err := decodeClassification(rec, text, c.kb)
	if err != nil {
		c.logger.Error("classification response is incomplete", "error", err)
		return nil, elapsed, fmt.Errorf("classify: %w", err)
	}
	return cr, elapsed, nil
}

// Advise runs the second stage for a confirmed worry.
func (c *Counselor) Advise(ctx context.Context, cr *ClassificationRecord) (*AdviceRecord, time.Duration, error) {
	ar, _, elapsed, err := c.advise(ctx, cr)
	return ar, elapsed, err
}

func (c *Counselor) advise(ctx context.Context, cr *ClassificationRecord) (*AdviceRecord, []knowledge.Passage, time.Duration, error) {
	if !cr.IsWorry {
		return nil, nil, 0, ErrNotAWorry
	}

	c.mu.Lock()
	advicePrompt, sample, err := prompt.SampledAdvice(c.corpus, c.rng, c.sampleSize)
	c.mu.Unlock()
	if err != nil {
		return nil, nil, 0, fmt.Errorf("advise: %w", err)
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: prompt.System()},
		{Role: llm.RoleAssistant, Content: c.intro},
		{Role: llm.RoleUser, Content: cr.RawInput},
		{Role: llm.RoleAssistant, Content: prompt.Context(cr.Summary, cr.LackingAspect, cr.ChosenSubConcept, cr.Reason)},
		{Role: llm.RoleUser, Content: advicePrompt},
	}

	rec, elapsed, err := c.call(ctx, "advise", messages)
	if err != nil {
		return nil, nil, elapsed, err
	}

	ar, err := decodeAdvice(rec)
	if err != nil {
		c.logger.Error("advice response is incomplete", "error", err)
		return nil, nil, elapsed, fmt.Errorf("advise: %w", err)
	}
	return ar, sample, elapsed, nil
}

// call invokes the model once, timing only the remote call, and extracts the record.
func (c *Counselor) call(ctx context.Context, stage string, messages []llm.Message) (extract.Record, time.Duration, error) {
	start := time.Now()
	raw, err := c.llm.Invoke(ctx, messages, c.params)
	elapsed := time.Since(start)
	if err != nil {
		c.logger.Error("model call failed", "stage", stage, "error", err)
		return nil, elapsed, fmt.Errorf("%s: %w", stage, err)
	}
	c.logger.Debug("model response", "stage", stage, "raw", raw, "elapsed", elapsed.Seconds())

	rec, err := extract.Extract(raw)
	if err != nil {
		var exErr *extract.ExtractionError
		if errors.As(err, &exErr) {
			c.logger.Error("failed to parse model response",
				"stage", stage,
				"error", exErr.Err,
				"raw", exErr.Raw,
				"attempted", exErr.Attempted,
			)
		}
		return nil, elapsed, fmt.Errorf("%s: %w", stage, err)
	}
	return rec, elapsed, nil
}
