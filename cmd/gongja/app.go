package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"

	"github.com/JoJeongHyeon/gongja-mailservice/internal/api"
	"github.com/JoJeongHyeon/gongja-mailservice/internal/config"
	"github.com/JoJeongHyeon/gongja-mailservice/internal/console"
	"github.com/JoJeongHyeon/gongja-mailservice/internal/counsel"
	"github.com/JoJeongHyeon/gongja-mailservice/internal/hermes"
	"github.com/JoJeongHyeon/gongja-mailservice/internal/knowledge"
	"github.com/JoJeongHyeon/gongja-mailservice/internal/llm"
	"github.com/JoJeongHyeon/gongja-mailservice/internal/mail"
	"github.com/JoJeongHyeon/gongja-mailservice/internal/sink"
	"github.com/JoJeongHyeon/gongja-mailservice/internal/store"
)

// app holds everything the modes share. db and events are nil when not configured.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	kb        *knowledge.Base
	corpus    *knowledge.Corpus
	db        *store.Store
	events    *hermes.Client
	counselor *counsel.Counselor
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	// Knowledge base
	var err error
	if cfg.KnowledgePath != "" {
		a.kb, err = knowledge.Load(cfg.KnowledgePath)
	} else {
		a.kb, err = knowledge.Default()
	}
	if err != nil {
		return nil, fmt.Errorf("load knowledge base: %w", err)
	}

	// Database (optional)
	if cfg.DatabaseURL != "" {
		a.db, err = store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := a.db.EnsureSchema(ctx); err != nil {
			a.Close()
			return nil, err
		}
		logger.Info("database connected")
	}

	// Corpus
	switch cfg.CorpusSource {
	case config.CorpusFile:
		a.corpus, err = knowledge.LoadCorpus(cfg.CorpusPath)
	case config.CorpusPostgres:
		a.corpus, err = a.db.LoadPassages(ctx)
	default:
		a.corpus, err = knowledge.DefaultCorpus()
	}
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("load corpus: %w", err)
	}
	if a.corpus.Len() < cfg.SampleSize {
		a.Close()
		return nil, fmt.Errorf("%w: corpus %s has %d passages, SAMPLE_SIZE is %d",
			knowledge.ErrCorpusTooSmall, cfg.CorpusSource, a.corpus.Len(), cfg.SampleSize)
	}
	logger.Info("corpus loaded", "source", cfg.CorpusSource, "passages", a.corpus.Len())

	// NATS (optional)
	if cfg.NatsURL != "" {
		a.events, err = hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		logger.Info("NATS connected", "url", cfg.NatsURL)
	}

	// Model
	base, err := llm.New(cfg.Provider, cfg.APIKey(), cfg.LLMTimeout)
	if err != nil {
		a.Close()
		return nil, err
	}
	inv := llm.NewPolicy(base, cfg.LLMTimeout, cfg.LLMMaxRetries, logger)
	params := llm.DefaultParams(cfg.Model)
	params.Temperature = cfg.Temperature
	params.TopP = cfg.TopP
	logger.Info("model ready", "provider", cfg.Provider, "model", cfg.Model)

	// Sinks
	var out counsel.Sink = sink.NewCSV(cfg.LogDir)
	if a.db != nil {
		out = sink.Multi{out, a.db}
	}

	opts := counsel.Options{Params: params, SampleSize: cfg.SampleSize}
	if a.events != nil {
		opts.Publisher = a.events
	}
	a.counselor = counsel.New(inv, a.kb, a.corpus, out, logger, opts)
	return a, nil
}

func (a *app) Close() {
	if a.events != nil {
		a.events.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}

func run(ctx context.Context, mode string, cfg *config.Config, logger *slog.Logger) error {
	if mode == modeEmail {
		if err := cfg.ValidateEmail(); err != nil {
			return err
		}
	}

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	logger.Info("gongja starting", "mode", mode)
	switch mode {
	case modeEmail:
		return a.runEmail(ctx)
	case modeServe:
		return a.runServe(ctx)
	default:
		err := console.New(os.Stdin, os.Stdout, a.kb, a.counselor, logger).Run(ctx)
		if errors.Is(err, context.Canceled) {
			logger.Info("console interrupted")
			return nil
		}
		return err
	}
}

func (a *app) runEmail(ctx context.Context) error {
	ec := a.cfg.Email

	renderer, err := mail.NewRenderer(ec.TemplatePath)
	if err != nil {
		return err
	}
	state, err := mail.LoadState(ec.StatePath)
	if err != nil {
		return err
	}

	proc := mail.NewProcessor(
		mail.NewIMAP(ec.IMAPServer, ec.Account, ec.Password, a.logger),
		a.counselor,
		mail.NewSMTP(ec.SMTPServer, ec.SMTPPort, ec.Account, ec.Password),
		renderer,
		state,
		a.logger,
		mail.Options{
			Triggers: ec.Triggers,
			Lookback: ec.Lookback,
			OnOutcome: func(m *mail.Message, out *counsel.Outcome) {
				fmt.Fprintf(os.Stdout, "\nFrom: %s, Subject: %s\n", m.From, m.Subject)
				console.PrintOutcome(os.Stdout, out)
			},
		},
	)

	rep, err := proc.Run(ctx)
	if err != nil {
		return err
	}
	color.New(color.FgCyan).Fprintf(os.Stdout,
		"\n메일 %d통 확인: 답장 %d, 고민 아님 %d, 대상 아님 %d, 이미 처리 %d, 실패 %d\n",
		rep.Fetched, rep.Replied, rep.NotWorry, rep.Ignored, rep.Skipped, rep.Failed)
	return nil
}

func (a *app) runServe(ctx context.Context) error {
	status := api.Status{
		Provider:   a.cfg.Provider,
		Model:      a.cfg.Model,
		CorpusSize: a.corpus.Len(),
	}
	if a.events != nil {
		status.Events = a.events.Connected
		if err := a.events.Subscribe(counsel.SubjectWorrySubmitted, a.counselor.WorryHandler(ctx)); err != nil {
			return err
		}
	}

	var sessions api.SessionLister
	if a.db != nil {
		sessions = a.db
	}

	srv := api.NewServer(a.cfg.Port, a.cfg.APIToken, a.counselor, sessions, status, a.logger)
	if a.cfg.APIToken == "" {
		a.logger.Warn("GONGJA_API_TOKEN not set, counsel API is unauthenticated")
	}
	return srv.Start(ctx)
}
