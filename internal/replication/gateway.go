package replication

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
)

// GatewayConfig configures a Gateway.
type GatewayConfig struct {
	// Database is the only database name the gateway serves.
	Database string

	// Users maps user names to passwords for HTTP Basic authentication.
	// An empty map admits anonymous clients.
	Users map[string]string

	BatchSize    int
	WriteTimeout time.Duration
	Logger       *slog.Logger
}

// Gateway is the server side of the protocol. It serves one database backed
// by a local store to any number of replicators.
type Gateway struct {
	store    Store
	cfg      GatewayConfig
	logger   *slog.Logger
	upgrader websocket.Upgrader

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	conns  map[*conn]struct{}
	closed bool
	wg     sync.WaitGroup
}

// NewGateway returns a gateway over st.
func NewGateway(st Store, cfg GatewayConfig) *Gateway {
	def := DefaultConfig()
	if cfg.Database == "" {
		cfg.Database = def.Database
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Gateway{
		store:  st,
		cfg:    cfg,
		logger: cfg.Logger.With("database", cfg.Database),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		ctx:    ctx,
		cancel: cancel,
		conns:  make(map[*conn]struct{}),
	}
}

// Handler returns the HTTP routes of the gateway: GET /{database} upgrades to
// a replication session.
func (g *Gateway) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.With(g.authenticate).Get("/{database}", g.handleSession)
	return r
}

// Close ends every session and waits for them.
func (g *Gateway) Close() {
	g.mu.Lock()
	g.closed = true
	for c := range g.conns {
		c.ws.Close()
	}
	g.mu.Unlock()

	g.cancel()
	g.wg.Wait()
}

func (g *Gateway) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(g.cfg.Users) == 0 {
			next.ServeHTTP(w, r)
			return
		}
		user, pass, ok := r.BasicAuth()
		if ok {
			want, known := g.cfg.Users[user]
			if known && subtle.ConstantTimeCompare([]byte(pass), []byte(want)) == 1 {
				next.ServeHTTP(w, r)
				return
			}
		}
		g.logger.Warn("replication auth rejected", "remote", r.RemoteAddr, "user", user)
		w.Header().Set("WWW-Authenticate", `Basic realm="pyco"`)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	})
}

func (g *Gateway) handleSession(w http.ResponseWriter, r *http.Request) {
	if db := chi.URLParam(r, "database"); db != g.cfg.Database {
		http.Error(w, fmt.Sprintf("unknown database %q", db), http.StatusNotFound)
		return
	}

	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		g.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	c := newConn(ws, false, g.cfg.WriteTimeout)
	if !g.track(c) {
		c.close()
		return
	}
	defer g.untrack(c)

	g.serve(c, r.RemoteAddr)
}

func (g *Gateway) track(c *conn) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return false
	}
	g.conns[c] = struct{}{}
	g.wg.Add(1)
	return true
}

func (g *Gateway) untrack(c *conn) {
	g.mu.Lock()
	delete(g.conns, c)
	g.mu.Unlock()
	c.close()
	g.wg.Done()
}

// serve runs one session: handshake, then a read loop that applies pushed
// changes and starts the feed on subscribe.
func (g *Gateway) serve(c *conn, remote string) {
	hello, err := c.receive(DefaultConfig().HandshakeTimeout)
	if err != nil {
		g.logger.Warn("replication handshake failed", "remote", remote, "error", err)
		return
	}
	if hello.Type != FrameHello {
		c.send(Frame{Type: FrameError, Message: fmt.Sprintf("expected hello, got %s", hello.Type)})
		return
	}
	if hello.Database != "" && hello.Database != g.cfg.Database {
		c.send(Frame{Type: FrameError, Message: fmt.Sprintf("unknown database %q", hello.Database)})
		return
	}

	// Every frame carries its own flag byte, so only outgoing frames need
	// to follow the client's compression setting.
	session := newSessionID()
	logger := g.logger.With("session", session, "peer_session", hello.Session, "remote", remote)
	if err := c.send(Frame{Type: FrameHello, Session: session, Database: g.cfg.Database, Compress: hello.Compress}); err != nil {
		logger.Warn("replication handshake failed", "error", err)
		return
	}
	c.setCompress(hello.Compress)
	logger.Info("replication session started", "continuous", hello.Continuous)

	// The feed must see cancel before serve waits for it.
	var feed sync.WaitGroup
	defer feed.Wait()
	ctx, cancel := context.WithCancel(g.ctx)
	defer cancel()

	for {
		f, err := c.receive(0)
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && ctx.Err() == nil {
				logger.Warn("replication session ended", "error", err)
			} else {
				logger.Info("replication session ended")
			}
			cancel()
			return
		}

		switch f.Type {
		case FrameChanges:
			if err := g.apply(ctx, f); err != nil {
				logger.Error("apply pushed changes", "error", err)
				c.send(Frame{Type: FrameError, Message: err.Error()})
				return
			}
			if err := c.send(Frame{Type: FrameAck, Seq: f.Seq}); err != nil {
				logger.Warn("send ack", "error", err)
				return
			}

		case FrameSubscribe:
			feed.Add(1)
			go func(since int64, continuous bool) {
				defer feed.Done()
				if err := g.feed(ctx, c, since, continuous); err != nil && ctx.Err() == nil {
					logger.Warn("replication feed stopped", "error", err)
					cancel()
					c.ws.Close()
				}
			}(f.Since, f.Continuous)

		default:
			c.send(Frame{Type: FrameError, Message: fmt.Sprintf("unexpected %s frame", f.Type)})
			return
		}
	}
}

func (g *Gateway) apply(ctx context.Context, f Frame) error {
	for _, ch := range f.Changes {
		if _, err := g.store.ApplyChange(ctx, ch); err != nil {
			return fmt.Errorf("apply %s/%s: %w", ch.Partition, ch.ID, err)
		}
	}
	return nil
}

// feed streams the change feed after since. Once drained it reports
// caught_up and either returns or, when continuous, waits for new writes.
func (g *Gateway) feed(ctx context.Context, c *conn, since int64, continuous bool) error {
	var notify <-chan struct{}
	if continuous {
		sub := g.store.Notify()
		defer sub.Close()
		notify = sub.C()
	}

	seq := since
	reported := false
	for {
		changes, err := g.store.ChangesSince(ctx, seq, g.cfg.BatchSize)
		if err != nil {
			return err
		}
		if len(changes) > 0 {
			seq = changes[len(changes)-1].Seq
			reported = false
			if err := c.send(Frame{Type: FrameChanges, Seq: seq, Changes: changes}); err != nil {
				return err
			}
			continue
		}

		if !reported {
			if err := c.send(Frame{Type: FrameCaughtUp, Seq: seq}); err != nil {
				return err
			}
			reported = true
		}
		if !continuous {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-notify:
			if !ok {
				return errors.New("local store closed")
			}
		}
	}
}
