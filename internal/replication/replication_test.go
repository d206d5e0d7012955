package replication

import (
	"context"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jerry0022/PYCO/internal/docstore"
	"github.com/Jerry0022/PYCO/internal/ir"
	"github.com/Jerry0022/PYCO/internal/store"
)

const testDatabase = "getting-started-db"

func openStore(t *testing.T, name string) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), name+".db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// startGateway serves remote over a test HTTP server and returns its ws:// URL.
func startGateway(t *testing.T, remote *store.Store, users map[string]string) string {
	t.Helper()
	gw := NewGateway(remote, GatewayConfig{Database: testDatabase, Users: users, BatchSize: 2})
	srv := httptest.NewServer(gw.Handler())
	t.Cleanup(srv.Close)
	t.Cleanup(gw.Close)
	return "ws://" + strings.TrimPrefix(srv.URL, "http://")
}

func put(t *testing.T, s *store.Store, id, title string) {
	t.Helper()
	err := s.Put(context.Background(), "Article", docstore.Document{
		ID:     id,
		Fields: ir.IRObject{"title": ir.IRString(title)},
	})
	require.NoError(t, err)
}

func titles(t *testing.T, s *store.Store) map[string]string {
	t.Helper()
	docs, err := s.Query(context.Background(), "Article")
	require.NoError(t, err)
	out := make(map[string]string, len(docs))
	for _, d := range docs {
		out[d.ID] = string(d.Fields["title"].(ir.IRString))
	}
	return out
}

func waitDone(t *testing.T, r *Replicator) {
	t.Helper()
	select {
	case <-r.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("replicator did not finish")
	}
}

func oneShot(t *testing.T, local *store.Store, endpoint string, compress bool) *Replicator {
	t.Helper()
	r, err := Start(context.Background(), local, Config{
		Endpoint:   endpoint,
		Database:   testDatabase,
		Username:   "user",
		Password:   "user",
		Continuous: false,
		Compress:   compress,
		BatchSize:  2,
	})
	require.NoError(t, err)
	waitDone(t, r)
	require.NoError(t, r.Err())
	require.Equal(t, StatusStopped, r.Status())
	return r
}

var testUsers = map[string]string{"user": "user"}

func TestReplicator_OneShotBidirectional(t *testing.T) {
	for _, compress := range []bool{false, true} {
		name := "raw"
		if compress {
			name = "zstd"
		}
		t.Run(name, func(t *testing.T) {
			local := openStore(t, "local")
			remote := openStore(t, "remote")
			endpoint := startGateway(t, remote, testUsers)

			put(t, local, "l1", "local one")
			put(t, local, "l2", "local two")
			put(t, local, "l3", "local three")
			put(t, remote, "r1", "remote one")

			r := oneShot(t, local, endpoint, compress)

			want := map[string]string{
				"l1": "local one",
				"l2": "local two",
				"l3": "local three",
				"r1": "remote one",
			}
			assert.Equal(t, want, titles(t, local))
			assert.Equal(t, want, titles(t, remote))
			assert.Equal(t, 1, r.Stats().Pulled)
			assert.GreaterOrEqual(t, r.Stats().Pushed, 3)
		})
	}
}

func TestReplicator_ResumesFromCheckpoints(t *testing.T) {
	local := openStore(t, "local")
	remote := openStore(t, "remote")
	endpoint := startGateway(t, remote, testUsers)

	put(t, local, "l1", "local one")
	put(t, remote, "r1", "remote one")
	oneShot(t, local, endpoint, false)

	localSeq, err := local.LastSeq(context.Background())
	require.NoError(t, err)
	remoteSeq, err := remote.LastSeq(context.Background())
	require.NoError(t, err)

	r := oneShot(t, local, endpoint, false)
	assert.Equal(t, Stats{}, r.Stats())

	after, err := local.LastSeq(context.Background())
	require.NoError(t, err)
	assert.Equal(t, localSeq, after, "second run must not write locally")
	after, err = remote.LastSeq(context.Background())
	require.NoError(t, err)
	assert.Equal(t, remoteSeq, after, "second run must not write remotely")
}

func TestReplicator_ReplicatesDeletes(t *testing.T) {
	local := openStore(t, "local")
	remote := openStore(t, "remote")
	endpoint := startGateway(t, remote, testUsers)

	put(t, remote, "r1", "remote one")
	put(t, remote, "r2", "remote two")
	oneShot(t, local, endpoint, false)
	require.Len(t, titles(t, local), 2)

	require.NoError(t, remote.Delete(context.Background(), "Article", "r1"))
	require.NoError(t, local.Delete(context.Background(), "Article", "r2"))
	oneShot(t, local, endpoint, false)

	assert.Empty(t, titles(t, local))
	assert.Empty(t, titles(t, remote))

	_, err := local.Get(context.Background(), "Article", "r1")
	assert.True(t, errors.Is(err, docstore.ErrNotFound))
}

func TestReplicator_Continuous(t *testing.T) {
	local := openStore(t, "local")
	remote := openStore(t, "remote")
	endpoint := startGateway(t, remote, testUsers)

	put(t, remote, "r0", "before start")

	r, err := Start(context.Background(), local, Config{
		Endpoint:   endpoint,
		Database:   testDatabase,
		Username:   "user",
		Password:   "user",
		Continuous: true,
	})
	require.NoError(t, err)
	t.Cleanup(r.Stop)

	require.Eventually(t, func() bool {
		return r.Status() == StatusIdle && len(titles(t, local)) == 1
	}, 5*time.Second, 10*time.Millisecond)

	put(t, remote, "r1", "pulled live")
	put(t, local, "l1", "pushed live")

	require.Eventually(t, func() bool {
		return len(titles(t, local)) == 3 && len(titles(t, remote)) == 3
	}, 5*time.Second, 10*time.Millisecond)

	r.Stop()
	assert.Equal(t, StatusStopped, r.Status())
	assert.NoError(t, r.Err())
}

func TestReplicator_WrongPassword(t *testing.T) {
	local := openStore(t, "local")
	remote := openStore(t, "remote")
	endpoint := startGateway(t, remote, testUsers)

	r, err := Start(context.Background(), local, Config{
		Endpoint: endpoint,
		Database: testDatabase,
		Username: "user",
		Password: "wrong",
	})
	require.NoError(t, err)
	waitDone(t, r)

	assert.Equal(t, StatusError, r.Status())
	require.Error(t, r.Err())
	assert.Contains(t, r.Err().Error(), "401")
}

func TestReplicator_UnknownDatabase(t *testing.T) {
	local := openStore(t, "local")
	remote := openStore(t, "remote")
	endpoint := startGateway(t, remote, nil)

	r, err := Start(context.Background(), local, Config{Endpoint: endpoint, Database: "other"})
	require.NoError(t, err)
	waitDone(t, r)

	assert.Equal(t, StatusError, r.Status())
	require.Error(t, r.Err())
	assert.Contains(t, r.Err().Error(), "404")
}

func TestReplicator_UnreachableEndpoint(t *testing.T) {
	local := openStore(t, "local")

	r, err := Start(context.Background(), local, Config{
		Endpoint:         "ws://127.0.0.1:1",
		HandshakeTimeout: time.Second,
	})
	require.NoError(t, err, "connection failures are reported asynchronously")
	waitDone(t, r)

	assert.Equal(t, StatusError, r.Status())
	assert.Error(t, r.Err())

	// Local writes keep working.
	put(t, local, "a", "still writable")
}

func TestStart_MalformedEndpoint(t *testing.T) {
	local := openStore(t, "local")

	_, err := Start(context.Background(), local, Config{Endpoint: "http://localhost:4984"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scheme")
}

func TestReplicator_StopWhileConnecting(t *testing.T) {
	local := openStore(t, "local")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r, err := Start(ctx, local, Config{Endpoint: "ws://127.0.0.1:1"})
	require.NoError(t, err)
	waitDone(t, r)

	assert.Equal(t, StatusStopped, r.Status())
	assert.NoError(t, r.Err())
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "connecting", StatusConnecting.String())
	assert.Equal(t, "busy", StatusBusy.String())
	assert.Equal(t, "idle", StatusIdle.String())
	assert.Equal(t, "stopped", StatusStopped.String())
	assert.Equal(t, "error", StatusError.String())
	assert.Equal(t, "Status(99)", Status(99).String())
}
