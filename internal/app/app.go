// Package app wires configuration, the local store, collections and
// replication together for the command line.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Jerry0022/PYCO/internal/collection"
	"github.com/Jerry0022/PYCO/internal/config"
	"github.com/Jerry0022/PYCO/internal/record"
	"github.com/Jerry0022/PYCO/internal/replication"
	"github.com/Jerry0022/PYCO/internal/store"
)

// ErrReplicationDisabled is returned by StartReplication when no endpoint is
// configured.
var ErrReplicationDisabled = errors.New("replication is disabled: no endpoint configured")

// App owns the local store and the replicators started against it.
type App struct {
	Config config.Config
	Store  *store.Store

	logger *slog.Logger

	mu          sync.Mutex
	replicators []*replication.Replicator
}

// Open validates cfg and opens the local store it names.
func Open(cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.Store.Path,
		store.WithDriver(cfg.Store.Driver),
		store.WithMkdirAll(),
		store.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return &App{Config: cfg, Store: st, logger: logger}, nil
}

// Close stops every replicator and closes the store.
func (a *App) Close() error {
	a.mu.Lock()
	reps := a.replicators
	a.replicators = nil
	a.mu.Unlock()

	for _, r := range reps {
		r.Stop()
	}
	return a.Store.Close()
}

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger { return a.logger }

// OpenCollection returns a hydrated collection of desc's records. With
// store.reset_on_start set the partition is wiped first.
func OpenCollection[T any](ctx context.Context, a *App, desc *record.Descriptor[T], opts ...collection.Option) (*collection.Collection[T], error) {
	if a.Config.Store.ResetOnStart {
		a.logger.Warn("reset_on_start is set, wiping partition", "partition", desc.Name)
		if err := a.Store.Reset(ctx, desc.Name); err != nil {
			return nil, err
		}
	}

	opts = append([]collection.Option{collection.WithLogger(a.logger)}, opts...)
	c := collection.New(a.Store, desc, opts...)
	if err := c.Initialize(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// StartReplication starts a replicator against the configured endpoint.
// continuous overrides the configured mode. Only configuration problems are
// returned; connection failures surface through the replicator.
func (a *App) StartReplication(ctx context.Context, continuous bool) (*replication.Replicator, error) {
	rc := a.Config.Replication
	if rc.Endpoint == "" {
		return nil, ErrReplicationDisabled
	}

	r, err := replication.Start(ctx, a.Store, replication.Config{
		Endpoint:   rc.Endpoint,
		Database:   rc.Database,
		Username:   rc.Username,
		Password:   rc.Password,
		Continuous: continuous,
		Compress:   rc.Compress,
		Logger:     a.logger,
	})
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.replicators = append(a.replicators, r)
	a.mu.Unlock()
	return r, nil
}

// NewGateway returns a gateway serving the local store under the configured
// database name.
func (a *App) NewGateway() *replication.Gateway {
	return replication.NewGateway(a.Store, replication.GatewayConfig{
		Database: a.Config.Replication.Database,
		Users:    a.Config.Gateway.Users,
		Logger:   a.logger,
	})
}
