package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/memberwise-ai/memberwise/internal/audit"
	"github.com/memberwise-ai/memberwise/internal/auth"
	"github.com/memberwise-ai/memberwise/internal/config"
	"github.com/memberwise-ai/memberwise/internal/grounding"
	"github.com/memberwise-ai/memberwise/internal/guard"
	"github.com/memberwise-ai/memberwise/internal/insight"
	"github.com/memberwise-ai/memberwise/internal/provider"
	"github.com/memberwise-ai/memberwise/internal/ratelimit"
	"github.com/memberwise-ai/memberwise/internal/retrieval"
	"github.com/memberwise-ai/memberwise/internal/server"
	"github.com/memberwise-ai/memberwise/internal/telemetry"
)

func main() {
	addrFlag := flag.String("addr", "", "HTTP listen address (overrides config)")
	configPath := flag.String("config", "memberwise.yaml", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	addr := cfg.Server.Addr
	if *addrFlag != "" {
		addr = *addrFlag
	}

	authz, err := auth.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("failed to build auth: %v", err)
	}

	providers, err := buildProviders(cfg)
	if err != nil {
		log.Fatalf("failed to build providers: %v", err)
	}

	ctx := context.Background()
	tel, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:     cfg.Telemetry.Enabled,
		Endpoint:    cfg.Telemetry.Endpoint,
		Protocol:    cfg.Telemetry.Protocol,
		Insecure:    cfg.Telemetry.Insecure,
		SampleRatio: cfg.Telemetry.SampleRatio,
		Service:     "memberwise",
		Version:     os.Getenv("MEMBERWISE_VERSION"),
	})
	if err != nil {
		log.Fatalf("failed to init telemetry: %v", err)
	}

	sinks, err := buildSinks(cfg)
	if err != nil {
		log.Fatalf("failed to build audit sinks: %v", err)
	}
	emitter := audit.NewEmitter(audit.EmitterConfig{
		QueueSize: cfg.Audit.QueueSize,
		Workers:   cfg.Audit.Workers,
	}, sinks)

	g := guard.New(guard.Config{
		RateLimit: ratelimit.Config{
			PerMinute:     cfg.Guard.RateLimit.PerMinute,
			PerHour:       cfg.Guard.RateLimit.PerHour,
			MaxConcurrent: cfg.Guard.RateLimit.MaxConcurrent,
		},
		MaxQuestionChars: cfg.Guard.MaxQuestionChars,
		MaxSummaryChars:  cfg.Guard.MaxSummaryChars,
		MaxReasonChars:   cfg.Guard.MaxReasoningChars,
	})

	// The audit pass reuses the default provider as its fact-checker.
	verifier := grounding.NewVerifier(
		providers[cfg.DefaultProvider],
		cfg.Guard.Grounding.Threshold,
		time.Duration(cfg.Guard.Grounding.TimeoutSeconds)*time.Second,
	)

	store := retrieval.NewMemoryStore(0)
	if cfg.Records.File != "" {
		if err := store.LoadFile(cfg.Records.File); err != nil {
			log.Fatalf("failed to load records: %v", err)
		}
	}

	svc := insight.NewService(insight.Config{
		Guard:           g,
		Records:         store,
		Providers:       providers,
		DefaultProvider: cfg.DefaultProvider,
		Verifier:        verifier,
		Audit:           emitter,
		Telemetry:       tel,
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           server.New(cfg, authz, svc).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		emitter.Close(shutdownCtx)
		tel.Shutdown(shutdownCtx)
		g.Close()
	}()

	log.Printf("starting memberwise on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

func buildProviders(cfg *config.Config) (map[string]provider.Provider, error) {
	providers := make(map[string]provider.Provider, len(cfg.Providers))
	for name, pc := range cfg.Providers {
		switch pc.Type {
		case "openai":
			apiKey := os.Getenv(pc.APIKeyEnv)
			if apiKey == "" {
				return nil, fmt.Errorf("provider %q: env var %s is empty", name, pc.APIKeyEnv)
			}
			providers[name] = provider.NewOpenAI(name, pc.BaseURL, apiKey, pc.Model,
				time.Duration(pc.TimeoutSeconds)*time.Second, 0)
		case "fake":
			providers[name] = provider.NewFake(name)
		default:
			return nil, fmt.Errorf("provider %q has unknown type %q", name, pc.Type)
		}
	}
	return providers, nil
}

func buildSinks(cfg *config.Config) ([]audit.Sink, error) {
	var sinks []audit.Sink
	for _, sc := range cfg.Audit.Sinks {
		switch sc.Type {
		case "stdout":
			sinks = append(sinks, audit.NewStdoutSink())
		case "file_jsonl":
			fs, err := audit.NewFileSink(sc.Path)
			if err != nil {
				return nil, err
			}
			sinks = append(sinks, fs)
		}
	}
	if len(sinks) == 0 {
		sinks = append(sinks, audit.NewStdoutSink())
	}
	return sinks, nil
}
