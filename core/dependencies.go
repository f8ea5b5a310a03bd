package core

import (
	"context"
	"fmt"
	"time"

	"github.com/awantoch/n8n-mcp/api"
	"github.com/awantoch/n8n-mcp/auth"
	"github.com/awantoch/n8n-mcp/config"
	"github.com/awantoch/n8n-mcp/mcp"
	"github.com/awantoch/n8n-mcp/n8n"
	"github.com/awantoch/n8n-mcp/selftest"
	"github.com/awantoch/n8n-mcp/session"
	"github.com/awantoch/n8n-mcp/telemetry"
	"github.com/awantoch/n8n-mcp/utils"
)

// Dependencies is the object graph shared by every command.
type Dependencies struct {
	Config     *config.Config
	Sessions   *session.Store
	Resolver   *auth.Resolver
	Dispatcher *api.Dispatcher
	SelfTest   *selftest.Runner
	Server     *mcp.Server
}

// InitializeDependencies builds the dispatcher with every operation
// registered and the MCP server on top of it.
// Returns a cleanup function that should be called when shutting down
func InitializeDependencies(cfg *config.Config) (*Dependencies, func(), error) {
	shutdownTracing, err := telemetry.Init(cfg.Tracing)
	if err != nil {
		return nil, nil, fmt.Errorf("init tracing: %w", err)
	}
	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			utils.Error("Failed to flush traces: %v", err)
		}
		utils.Sync()
	}

	deps, err := build(cfg)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return deps, cleanup, nil
}

func build(cfg *config.Config) (*Dependencies, error) {
	store := session.NewStore(cfg.Session.MaxEntries, cfg.Session.TTL)
	resolver := auth.NewResolver(store, cfg.N8N.APIKey)
	if !resolver.HasDefault() {
		utils.Warn("No default n8n API key configured; callers must send one with each session")
	}

	clients := n8n.NewFactory(n8n.Options{
		APIRoot:      cfg.APIRoot(),
		InstanceRoot: cfg.InstanceRoot(),
		Timeout:      cfg.N8N.Timeout,
		Transport:    telemetry.WrapTransport(nil),
	})

	observer := telemetry.Observer{}
	svc := api.NewService(resolver, clients, cfg.Limits, api.WithReconcileObserver(observer))
	dispatcher, err := api.NewDispatcher(api.Catalog(), api.WithObserver(observer))
	if err != nil {
		return nil, err
	}
	if err := dispatcher.RegisterAll(svc.Operations()); err != nil {
		return nil, utils.Errorf("register operations: %w", err)
	}
	runner := selftest.NewRunner(dispatcher)
	if err := dispatcher.Register(runner.Operation()); err != nil {
		return nil, utils.Errorf("register self-test: %w", err)
	}
	if err := dispatcher.Seal(); err != nil {
		return nil, utils.Errorf("seal dispatcher: %w", err)
	}

	utils.Debug("Registered %d operations against %s", len(dispatcher.Tools()), cfg.APIRoot())
	return &Dependencies{
		Config:     cfg,
		Sessions:   store,
		Resolver:   resolver,
		Dispatcher: dispatcher,
		SelfTest:   runner,
		Server:     mcp.NewServer(dispatcher, store),
	}, nil
}
