package replication

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Jerry0022/PYCO/internal/docstore"
	"github.com/Jerry0022/PYCO/internal/store"
)

// Store is the change feed a replicator or gateway works against.
// *store.Store implements it.
type Store interface {
	ChangesSince(ctx context.Context, since int64, limit int) ([]docstore.Change, error)
	ApplyChange(ctx context.Context, c docstore.Change) (bool, error)
	Checkpoint(ctx context.Context, key string) (int64, error)
	SaveCheckpoint(ctx context.Context, key string, seq int64) error
	Notify() *store.Subscription
}

var _ Store = (*store.Store)(nil)

// Config configures a Replicator.
type Config struct {
	// Endpoint is "host:port" or a ws:// / wss:// URL.
	Endpoint string

	// Database names the remote database. It completes endpoints that
	// carry no path.
	Database string

	Username string
	Password string

	// Continuous keeps the replicator running after it has caught up,
	// pushing local writes and applying remote ones as they happen.
	Continuous bool

	// Compress zstd compresses frames in both directions.
	Compress bool

	// BatchSize caps the changes per frame.
	BatchSize int

	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration

	Logger *slog.Logger
}

// DefaultConfig returns the defaults used when a field is left zero.
func DefaultConfig() Config {
	return Config{
		Database:         "getting-started-db",
		Continuous:       true,
		BatchSize:        100,
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     10 * time.Second,
	}
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.Database == "" {
		c.Database = def.Database
	}
	if c.BatchSize <= 0 {
		c.BatchSize = def.BatchSize
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = def.HandshakeTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Status is the activity level of a Replicator.
type Status int

const (
	StatusConnecting Status = iota
	StatusBusy
	StatusIdle
	StatusStopped
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusBusy:
		return "busy"
	case StatusIdle:
		return "idle"
	case StatusStopped:
		return "stopped"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Stats counts the changes a Replicator moved.
type Stats struct {
	// Pushed counts local changes acknowledged by the peer.
	Pushed int

	// Pulled counts remote changes that altered the local store.
	Pulled int
}

// Replicator runs one replication session in the background.
type Replicator struct {
	cfg     Config
	store   Store
	url     *url.URL
	session string
	logger  *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	status Status
	err    error
	stats  Stats
}

// newSessionID returns a time-sortable session identifier.
var newSessionID = func() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Start validates cfg and starts replicating in a new goroutine. Only a
// malformed endpoint fails here; connection and authentication failures are
// reported through Status, Err and the log once the session has ended.
func Start(ctx context.Context, st Store, cfg Config) (*Replicator, error) {
	cfg.applyDefaults()
	u, err := ParseEndpoint(cfg.Endpoint, cfg.Database)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	r := &Replicator{
		cfg:     cfg,
		store:   st,
		url:     u,
		session: newSessionID(),
		cancel:  cancel,
		done:    make(chan struct{}),
		status:  StatusConnecting,
	}
	r.logger = cfg.Logger.With("endpoint", u.String(), "session", r.session)

	go r.run(ctx)
	return r, nil
}

// URL returns the resolved websocket URL.
func (r *Replicator) URL() string { return r.url.String() }

// Status returns the current status.
func (r *Replicator) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Err returns the error that ended the session, if any.
func (r *Replicator) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Stats returns the change counters.
func (r *Replicator) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// Done is closed when the session has ended.
func (r *Replicator) Done() <-chan struct{} { return r.done }

// Stop ends the session and waits for it.
func (r *Replicator) Stop() {
	r.cancel()
	<-r.done
}

func (r *Replicator) setStatus(s Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status != s {
		r.status = s
		r.logger.Debug("replication status", "status", s.String())
	}
}

func (r *Replicator) fail(msg string, err error) {
	r.mu.Lock()
	r.status = StatusError
	r.err = err
	r.mu.Unlock()
	r.logger.Error(msg, "error", err)
}

func (r *Replicator) run(ctx context.Context) {
	defer close(r.done)
	defer r.cancel()

	c, err := r.connect(ctx)
	if err != nil {
		if ctx.Err() != nil {
			r.setStatus(StatusStopped)
			return
		}
		r.fail("replication handshake failed", err)
		return
	}
	defer c.close()

	err = r.sync(ctx, c)
	switch {
	case err == nil, ctx.Err() != nil:
		r.setStatus(StatusStopped)
		st := r.Stats()
		r.logger.Info("replication stopped", "pushed", st.Pushed, "pulled", st.Pulled)
	default:
		r.fail("replication stopped", err)
	}
}

func (r *Replicator) connect(ctx context.Context) (*conn, error) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: r.cfg.HandshakeTimeout,
	}
	header := http.Header{}
	if r.cfg.Username != "" {
		creds := base64.StdEncoding.EncodeToString([]byte(r.cfg.Username + ":" + r.cfg.Password))
		header.Set("Authorization", "Basic "+creds)
	}

	ws, resp, err := dialer.DialContext(ctx, r.url.String(), header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial: %s: %w", resp.Status, err)
		}
		return nil, fmt.Errorf("dial: %w", err)
	}

	c := newConn(ws, r.cfg.Compress, r.cfg.WriteTimeout)
	err = c.send(Frame{
		Type:       FrameHello,
		Session:    r.session,
		Database:   r.cfg.Database,
		Compress:   r.cfg.Compress,
		Continuous: r.cfg.Continuous,
	})
	if err != nil {
		c.close()
		return nil, err
	}

	f, err := c.receive(r.cfg.HandshakeTimeout)
	if err != nil {
		c.close()
		return nil, fmt.Errorf("hello: %w", err)
	}
	switch f.Type {
	case FrameHello:
	case FrameError:
		c.close()
		return nil, fmt.Errorf("hello: peer error: %s", f.Message)
	default:
		c.close()
		return nil, fmt.Errorf("hello: unexpected %s frame", f.Type)
	}

	r.logger.Info("replication connected", "peer_session", f.Session, "continuous", r.cfg.Continuous)
	return c, nil
}

// sync pushes and pulls until both directions are caught up (one-shot) or
// until ctx ends (continuous).
func (r *Replicator) sync(ctx context.Context, c *conn) error {
	pushKey := "push:" + r.url.String()
	pullKey := "pull:" + r.url.String()

	pushSeq, err := r.store.Checkpoint(ctx, pushKey)
	if err != nil {
		return err
	}
	pullSeq, err := r.store.Checkpoint(ctx, pullKey)
	if err != nil {
		return err
	}

	// Subscribe before the first push so no local write is missed.
	var notify <-chan struct{}
	if r.cfg.Continuous {
		sub := r.store.Notify()
		defer sub.Close()
		notify = sub.C()
	}

	frames := make(chan Frame)
	readErr := make(chan error, 1)
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		for {
			f, err := c.receive(0)
			if err != nil {
				readErr <- err
				return
			}
			select {
			case frames <- f:
			case <-stop:
				return
			}
		}
	}()

	if err := c.send(Frame{Type: FrameSubscribe, Since: pullSeq, Continuous: r.cfg.Continuous}); err != nil {
		return err
	}
	r.setStatus(StatusBusy)

	var (
		inflight     int
		pushCaughtUp bool
		pullCaughtUp bool
	)
	push := func() error {
		if inflight > 0 {
			return nil
		}
		changes, err := r.store.ChangesSince(ctx, pushSeq, r.cfg.BatchSize)
		if err != nil {
			return err
		}
		if len(changes) == 0 {
			pushCaughtUp = true
			return nil
		}
		pushCaughtUp = false
		inflight = len(changes)
		return c.send(Frame{Type: FrameChanges, Seq: changes[len(changes)-1].Seq, Changes: changes})
	}
	if err := push(); err != nil {
		return err
	}

	for {
		if pushCaughtUp && pullCaughtUp && inflight == 0 {
			if !r.cfg.Continuous {
				return nil
			}
			r.setStatus(StatusIdle)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-readErr:
			return fmt.Errorf("read: %w", err)

		case _, ok := <-notify:
			if !ok {
				return errors.New("local store closed")
			}
			r.setStatus(StatusBusy)
			if err := push(); err != nil {
				return err
			}

		case f := <-frames:
			switch f.Type {
			case FrameAck:
				if inflight == 0 {
					return errors.New("ack without pending changes")
				}
				if err := r.store.SaveCheckpoint(ctx, pushKey, f.Seq); err != nil {
					return err
				}
				pushSeq = f.Seq
				r.count(inflight, 0)
				inflight = 0
				if err := push(); err != nil {
					return err
				}

			case FrameChanges:
				r.setStatus(StatusBusy)
				pullCaughtUp = false
				applied := 0
				for _, ch := range f.Changes {
					ok, err := r.store.ApplyChange(ctx, ch)
					if err != nil {
						return err
					}
					if ok {
						applied++
					}
				}
				if err := r.store.SaveCheckpoint(ctx, pullKey, f.Seq); err != nil {
					return err
				}
				r.count(0, applied)
				// Applied changes got local seqs; offer them back so the
				// push side reaches the end of the feed.
				if err := push(); err != nil {
					return err
				}

			case FrameCaughtUp:
				pullCaughtUp = true
				if err := r.store.SaveCheckpoint(ctx, pullKey, f.Seq); err != nil {
					return err
				}

			case FrameError:
				return fmt.Errorf("peer error: %s", f.Message)

			default:
				return fmt.Errorf("unexpected %s frame", f.Type)
			}
		}
	}
}

func (r *Replicator) count(pushed, pulled int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats.Pushed += pushed
	r.stats.Pulled += pulled
}
