package uci

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"
)

const fakeEngineEnv = "UCI_FAKE_ENGINE"

// TestMain lets the test binary double as a scripted UCI engine when the
// pool starts it as a child process.
func TestMain(m *testing.M) {
	if os.Getenv(fakeEngineEnv) == "1" {
		runFakeEngine(os.Stdin, os.Stdout)
		os.Exit(0)
	}
	os.Exit(m.Run())
}

var fakeLines = []string{"e2e4 e7e5", "d2d4 d7d5", "c2c4 e7e5"}

func runFakeEngine(in io.Reader, out io.Writer) {
	sc := bufio.NewScanner(in)
	multipv := 1
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "uci":
			fmt.Fprintln(out, "id name fakefish")
			fmt.Fprintln(out, "uciok")
		case line == "isready":
			fmt.Fprintln(out, "readyok")
		case strings.HasPrefix(line, "setoption name MultiPV value "):
			multipv, _ = strconv.Atoi(strings.TrimPrefix(line, "setoption name MultiPV value "))
		case strings.HasPrefix(line, "go "):
			fmt.Fprintln(out, "info string fake search")
			fmt.Fprintln(out, "info depth 1 multipv 1 score cp 90 lowerbound pv a2a3")
			for i := 1; i <= multipv && i <= len(fakeLines); i++ {
				fmt.Fprintf(out, "info depth 8 multipv %d score cp %d nodes 100 pv %s\n", i, 40-10*i, fakeLines[i-1])
			}
			fmt.Fprintln(out, "bestmove e2e4 ponder e7e5")
		case line == "quit":
			return
		}
	}
}

func newFakePool(t *testing.T, capacity int) *Pool {
	t.Helper()
	t.Setenv(fakeEngineEnv, "1")
	exe, err := os.Executable()
	if err != nil {
		t.Fatalf("executable: %v", err)
	}
	pool, err := NewPool(PoolConfig{
		BinaryPath: exe,
		Options:    Options{Threads: 1, HashMB: 16, MultiPV: 2},
		Capacity:   capacity,
	})
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	t.Cleanup(func() { _ = pool.Close() })
	return pool
}

func TestPoolSearchAndReuse(t *testing.T) {
	pool := newFakePool(t, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	first, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	resp, err := first.Search(ctx, SearchRequest{FEN: "startpos", Limits: Limits{Depth: 8}})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if resp.BestMove != "e2e4" {
		t.Fatalf("best move = %q", resp.BestMove)
	}
	if len(resp.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %+v", resp.Lines)
	}
	if resp.Lines[0].Move != "e2e4" || resp.Lines[0].CP != 30 || resp.Lines[1].Move != "d2d4" || resp.Lines[1].CP != 20 {
		t.Fatalf("unexpected lines: %+v", resp.Lines)
	}
	if strings.Join(resp.Lines[1].Principal, " ") != "d2d4 d7d5" {
		t.Fatalf("pv = %v", resp.Lines[1].Principal)
	}
	pool.Release(first, nil)

	second, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("second Acquire: %v", err)
	}
	if second != first {
		t.Fatalf("released session should be reused")
	}
	pool.Release(second, nil)
}

func TestPoolWaitsAtCapacity(t *testing.T) {
	pool := newFakePool(t, 1)
	held, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	short, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := pool.Acquire(short); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline while at capacity, got %v", err)
	}

	got := make(chan *Session, 1)
	go func() {
		s, err := pool.Acquire(context.Background())
		if err != nil {
			got <- nil
			return
		}
		got <- s
	}()
	pool.Release(held, nil)

	select {
	case s := <-got:
		if s != held {
			t.Fatalf("waiter should receive the released session")
		}
		pool.Release(s, nil)
	case <-time.After(5 * time.Second):
		t.Fatalf("waiter never received a session")
	}
}

func TestPoolReplacesFailedSession(t *testing.T) {
	pool := newFakePool(t, 1)
	ctx := context.Background()

	first, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	pool.Release(first, errors.New("search failed"))

	second, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire after failure: %v", err)
	}
	if second == first {
		t.Fatalf("failed session must not be reused")
	}
	pool.Release(second, nil)
}

func TestPoolClosed(t *testing.T) {
	pool := newFakePool(t, 2)
	s, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	pool.Release(s, nil)
	if err := pool.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := pool.Acquire(context.Background()); !errors.Is(err, ErrPoolClosed) {
		t.Fatalf("expected ErrPoolClosed, got %v", err)
	}
}

func TestNewPoolRejectsOptions(t *testing.T) {
	exe, err := os.Executable()
	if err != nil {
		t.Fatalf("executable: %v", err)
	}
	if _, err := NewPool(PoolConfig{BinaryPath: exe, Options: Options{MultiPV: 1}}); err == nil {
		t.Fatalf("expected error for zero hash")
	}
}
