package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/classify"
	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/config"
	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/dispatch"
	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/docstore"
	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/eventcollect"
	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/events"
	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/extract"
	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/family"
	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/identity"
	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/ledger"
	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/llm"
	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/opstate"
	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/tasks"
)

// Database files under data_dir.
const (
	docsDBName   = "family.db"
	ledgerDBName = "ledger.db"
	stateDBName  = "state.db"
)

// identityBucket is the opstate namespace holding the last known
// user and family ids.
const identityBucket = "identity"

// app is the fully wired action service shared by serve, ask and
// diagnose.
type app struct {
	docs   *docstore.Store
	ledger *ledger.Store
	state  *opstate.Store

	ollama *llm.OllamaClient

	bus        *events.Bus
	board      *tasks.Board
	collector  *eventcollect.Collector
	dispatcher *dispatch.Dispatcher
}

func ensureDataDir(cfg *config.Config) error {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	return nil
}

// openApp opens the databases under cfg.DataDir and wires the
// dispatcher with every handler collaborator.
func openApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *app, err error) {
	if err := ensureDataDir(cfg); err != nil {
		return nil, err
	}

	a := &app{bus: events.New()}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if a.docs, err = docstore.NewStore(filepath.Join(cfg.DataDir, docsDBName)); err != nil {
		return nil, fmt.Errorf("open document store: %w", err)
	}
	if a.ledger, err = ledger.NewStore(filepath.Join(cfg.DataDir, ledgerDBName)); err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	if a.state, err = opstate.NewStore(filepath.Join(cfg.DataDir, stateDBName)); err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}

	a.ollama = llm.NewOllamaClient(cfg.Models.OllamaURL, logger)
	client, err := createLLMClient(ctx, cfg, logger, a.ollama)
	if err != nil {
		return nil, err
	}

	guard := &classify.Guard{}
	resolver := identity.NewResolver(
		a.state.Bucket(identityBucket),
		cfg.Identity.FallbackUserID,
		cfg.Identity.FallbackFamilyID,
		logger,
	)
	roster := family.NewRoster(a.docs)
	a.board = tasks.NewBoard(a.docs, roster, a.bus, logger)
	a.collector = eventcollect.New(a.docs, a.bus, logger)

	a.dispatcher = dispatch.New(dispatch.Options{
		Identity:         resolver,
		Classifier:       classify.New(client, cfg.Models.ClassifierModel(), cfg.Dispatch.LLMTimeout, guard, logger),
		Extractor:        extract.New(client, cfg.Models.ExtractionModel(), cfg.Dispatch.LLMTimeout, logger),
		Docs:             a.docs,
		Board:            a.board,
		Collector:        a.collector,
		Ledger:           a.ledger,
		Sink:             a.bus,
		Guard:            guard,
		GuardWindow:      cfg.Dispatch.GuardWindow,
		RejectUnresolved: cfg.Identity.OnUnresolved == config.UnresolvedReject,
		AuditSize:        cfg.Dispatch.AuditSize,
	}, logger)

	return a, nil
}

// Close releases the databases. It is safe on a partially opened app.
func (a *app) Close() error {
	var errs []error
	if a.state != nil {
		errs = append(errs, a.state.Close())
	}
	if a.ledger != nil {
		errs = append(errs, a.ledger.Close())
	}
	if a.docs != nil {
		errs = append(errs, a.docs.Close())
	}
	return errors.Join(errs...)
}

// createLLMClient builds a multi-provider client. Models listed under
// models.routes go to their provider; everything else falls through to
// Ollama, the default backend. The OllamaClient is created by the
// caller so serve can watch its reachability.
func createLLMClient(ctx context.Context, cfg *config.Config, logger *slog.Logger, ollamaClient *llm.OllamaClient) (llm.Client, error) {
	multi := llm.NewMultiClient(ollamaClient)
	multi.AddProvider("ollama", ollamaClient)

	if cfg.Anthropic.Configured() {
		multi.AddProvider("anthropic", llm.NewAnthropicClient(cfg.Anthropic.APIKey, logger))
		logger.Info("Anthropic provider configured")
	}
	if cfg.Gemini.Configured() {
		gemini, err := llm.NewGeminiClient(ctx, cfg.Gemini.APIKey, logger)
		if err != nil {
			return nil, fmt.Errorf("gemini client: %w", err)
		}
		multi.AddProvider("gemini", gemini)
		logger.Info("Gemini provider configured")
	}

	for model, provider := range cfg.Models.Routes {
		if provider == "anthropic" && !cfg.Anthropic.Configured() ||
			provider == "gemini" && !cfg.Gemini.Configured() {
			logger.Warn("model routed to unconfigured provider, using ollama", "model", model, "provider", provider)
			continue
		}
		multi.AddModel(model, provider)
	}

	logger.Info("LLM client initialized",
		"providers", multi.Providers(),
		"classifier_model", cfg.Models.ClassifierModel(),
		"extraction_model", cfg.Models.ExtractionModel(),
	)
	return multi, nil
}
