package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Jerry0022/PYCO/internal/article"
)

var fixedNow = time.Date(2024, 1, 2, 3, 4, 5, 678_000_000, time.UTC)

func testDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "pyco.db")
}

// testOptions returns options with deterministic ids and clock.
func testOptions(ids ...string) *RootOptions {
	return &RootOptions{
		IDGenerator: article.NewFixedGenerator(ids...),
		Now:         func() time.Time { return fixedNow },
	}
}

// runCLI executes the root command against db and returns stdout. base
// supplies the generator and clock; flags are parsed into a fresh copy.
func runCLI(t *testing.T, db string, base *RootOptions, args ...string) (string, error) {
	t.Helper()
	return runCLIContext(t, context.Background(), db, base, &bytes.Buffer{}, args...)
}

// outBuffer is where runCLIContext writes stdout.
type outBuffer interface {
	io.Writer
	fmt.Stringer
}

func runCLIContext(t *testing.T, ctx context.Context, db string, base *RootOptions, out outBuffer, args ...string) (string, error) {
	t.Helper()
	opts := &RootOptions{}
	if base != nil {
		opts.IDGenerator = base.IDGenerator
		opts.Now = base.Now
	}
	cmd := newRootCommand(opts)
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--db", db}, args...))
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

// mustRunCLI is runCLI failing the test on error.
func mustRunCLI(t *testing.T, db string, base *RootOptions, args ...string) string {
	t.Helper()
	out, err := runCLI(t, db, base, args...)
	if err != nil {
		t.Fatalf("pyco %v: %v", args, err)
	}
	return out
}

// seedArticles adds three articles with ids a-1, a-2, a-3.
func seedArticles(t *testing.T, db string) *RootOptions {
	t.Helper()
	opts := testOptions("a-1", "a-2", "a-3", "a-4", "a-5")
	mustRunCLI(t, db, opts, "article", "add", "--title", "First", "--body", "hello world")
	mustRunCLI(t, db, opts, "article", "add", "--title", "Second", "--author", "ana", "--published", "2023-12-31T23:00:00Z")
	mustRunCLI(t, db, opts, "article", "add", "--title", "Third", "--body", "sync engines")
	return opts
}

// syncBuffer is a bytes.Buffer safe for a writer and a polling reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// outputLines splits command output into lines.
func outputLines(out string) []string {
	out = strings.TrimSuffix(out, "\n")
	if out == "" {
		return nil
	}
	return strings.Split(out, "\n")
}
