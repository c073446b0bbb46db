package commands

import (
	"context"
	"errors"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/webdevchat/agent"
	"github.com/hupe1980/webdevchat/catalog"
	"github.com/hupe1980/webdevchat/chat"
	"github.com/hupe1980/webdevchat/config"
	"github.com/hupe1980/webdevchat/guardrail"
	"github.com/hupe1980/webdevchat/logging"
	"github.com/hupe1980/webdevchat/metrics"
	"github.com/hupe1980/webdevchat/model"
	"github.com/hupe1980/webdevchat/model/anthropic"
	"github.com/hupe1980/webdevchat/model/cache"
	"github.com/hupe1980/webdevchat/model/openai"
	"github.com/hupe1980/webdevchat/runner"
	"github.com/hupe1980/webdevchat/session"
	"github.com/hupe1980/webdevchat/tracing"
)

// app holds the wired components shared by the ask, chat and serve commands.
type app struct {
	cfg      *config.Config
	logger   logging.Logger
	registry *agent.Registry
	service  *chat.Service
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	tracing  *tracing.Provider
}

// newApp wires config into model, cache, guardrail, runner and chat service.
func newApp(cfg *config.Config, logger logging.Logger) (*app, error) {
	if err := cfg.RequireAPIKey(); err != nil {
		return nil, err
	}

	registry, err := catalog.FromConfig(*cfg)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	mt := metrics.NewMetrics(reg)

	tp, err := tracing.NewProvider(tracing.Config{
		Enabled:  cfg.Tracing.Enabled,
		Endpoint: cfg.Tracing.Endpoint,
		Insecure: cfg.Tracing.Insecure,
		Version:  Version,
	}, logger)
	if err != nil {
		return nil, err
	}

	m := newModel(cfg)
	if cfg.Cache.Enabled {
		m = cache.New(m, func(o *cache.Options) {
			o.Size = cfg.Cache.Size
			o.TTL = cfg.Cache.TTL
			o.OnHit = mt.ObserveCache
		})
	}

	r, err := runner.New(m, func(o *runner.Options) {
		o.Delegation = runner.CallOptions{
			Temperature: cfg.Delegation.Temperature,
			MaxTokens:   cfg.Delegation.MaxTokens,
			Timeout:     cfg.Delegation.Timeout,
		}
		o.Answer = runner.CallOptions{
			Temperature: cfg.Answer.Temperature,
			MaxTokens:   cfg.Answer.MaxTokens,
			Timeout:     cfg.Answer.Timeout,
		}
		o.PromptTemplate = cfg.Delegation.PromptTemplate
		o.Logger = logging.WithComponent(logger, "runner")
		o.Metrics = mt
		o.TracerProvider = tp.TracerProvider()
		if cfg.Guardrail.Enabled {
			o.Guardrail = newGuardrail(cfg, m, registry, logger)
		}
	})
	if err != nil {
		return nil, err
	}

	store := session.NewInMemoryStore(func(o *session.Options) {
		o.MaxSessions = cfg.Session.MaxSessions
	})
	svc := chat.New(r, registry, func(o *chat.Options) {
		o.SessionStore = store
		o.Logger = logging.WithComponent(logger, "chat")
		o.Metrics = mt
	})

	return &app{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		service:  svc,
		metrics:  mt,
		gatherer: reg,
		tracing:  tp,
	}, nil
}

func newModel(cfg *config.Config) model.Model {
	p := cfg.Provider
	if p.Name == config.ProviderAnthropic {
		return anthropic.NewModel(func(o *anthropic.Options) {
			o.Model = anthropicsdk.Model(p.Model)
			o.APIKey = p.APIKey
			o.BaseURL = p.BaseURL
			o.MaxRetries = p.MaxRetries
		})
	}
	return openai.NewModel(func(o *openai.Options) {
		o.Model = p.Model
		o.APIKey = p.APIKey
		o.BaseURL = p.BaseURL
		o.MaxRetries = p.MaxRetries
	})
}

// newGuardrail prefers a configured persona named like the built-in guardrail.
func newGuardrail(cfg *config.Config, m model.Model, registry *agent.Registry, logger logging.Logger) *guardrail.Guard {
	persona, err := registry.Get(catalog.GuardrailName)
	if err != nil {
		persona = catalog.GuardrailPersona()
	}
	return guardrail.New(m, persona, func(o *guardrail.Options) {
		o.Temperature = cfg.Guardrail.Temperature
		o.MaxTokens = cfg.Guardrail.MaxTokens
		o.Timeout = cfg.Guardrail.Timeout
		o.Logger = logging.WithComponent(logger, "guardrail")
	})
}

// Close flushes pending spans.
func (a *app) Close(ctx context.Context) error {
	if a.tracing == nil {
		return nil
	}
	if err := a.tracing.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
