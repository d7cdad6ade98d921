package uci

import (
	"strings"
	"testing"
	"time"
)

func TestParseInfoCentipawn(t *testing.T) {
	idx, line, ok := parseInfo("info depth 18 seldepth 24 multipv 2 score cp -35 nodes 1000 nps 5000 pv e7e5 g1f3 b8c6")
	if !ok {
		t.Fatalf("expected line to parse")
	}
	if idx != 2 || line.CP != -35 || line.Mate != nil || line.Depth != 18 {
		t.Fatalf("unexpected line: idx=%d %+v", idx, line)
	}
	if line.Move != "e7e5" || strings.Join(line.Principal, " ") != "e7e5 g1f3 b8c6" {
		t.Fatalf("unexpected pv: %+v", line.Principal)
	}
}

func TestParseInfoMate(t *testing.T) {
	_, line, ok := parseInfo("info depth 5 score mate -3 pv h7h6 d1h5")
	if !ok || line.Mate == nil || *line.Mate != -3 {
		t.Fatalf("unexpected mate line: %+v ok=%v", line, ok)
	}

	_, line, ok = parseInfo("info depth 0 score mate 0")
	if !ok || line.Mate == nil || *line.Mate != 0 || line.Move != "" {
		t.Fatalf("mated position should parse without pv: %+v ok=%v", line, ok)
	}
}

func TestParseInfoSkipsNoise(t *testing.T) {
	cases := []string{
		"info string NNUE evaluation using nn-abc.nnue",
		"info depth 10 currmove e2e4 currmovenumber 1",
		"info depth 12 score cp 20 lowerbound pv e2e4",
		"info depth 12 score cp 20",
	}
	for _, in := range cases {
		if _, _, ok := parseInfo(in); ok {
			t.Fatalf("expected %q to be skipped", in)
		}
	}
}

func TestCollapseLinesOrdersByMultiPV(t *testing.T) {
	got := collapseLines(map[int]Line{
		3: {Move: "c"},
		1: {Move: "a"},
		2: {Move: "b"},
	})
	if len(got) != 3 || got[0].Move != "a" || got[2].Move != "c" {
		t.Fatalf("unexpected order: %+v", got)
	}
	if collapseLines(nil) != nil {
		t.Fatalf("empty map should collapse to nil")
	}
}

func TestBuildPositionCommand(t *testing.T) {
	if got := buildPositionCommand("", nil); got != "position startpos\n" {
		t.Fatalf("startpos = %q", got)
	}
	fen := "8/8/8/8/8/8/8/K6k w - - 0 1"
	if got := buildPositionCommand(fen, []string{"a1a2"}); got != "position fen "+fen+" moves a1a2\n" {
		t.Fatalf("fen command = %q", got)
	}
}

func TestBuildGoTokens(t *testing.T) {
	got, err := buildGoTokens(Limits{Depth: 14, MoveTimeMillis: 500})
	if err != nil {
		t.Fatalf("buildGoTokens: %v", err)
	}
	if strings.Join(got, " ") != "go depth 14 movetime 500" {
		t.Fatalf("tokens = %v", got)
	}
	if _, err := buildGoTokens(Limits{}); err == nil {
		t.Fatalf("expected error without limits")
	}
}

func TestComputeSearchTimeout(t *testing.T) {
	if got := computeSearchTimeout(Limits{Depth: 4}); got != 6*time.Second {
		t.Fatalf("shallow depth timeout = %v", got)
	}
	if got := computeSearchTimeout(Limits{Depth: 200}); got != 30*time.Second {
		t.Fatalf("deep timeout = %v", got)
	}
	if got := computeSearchTimeout(Limits{MoveTimeMillis: 1000}); got != 9*time.Second {
		t.Fatalf("movetime timeout = %v", got)
	}
}

func TestValidateOptions(t *testing.T) {
	if err := validateOptions(Options{Threads: 1, HashMB: 16, MultiPV: 1}); err != nil {
		t.Fatalf("valid options rejected: %v", err)
	}
	if err := validateOptions(Options{HashMB: 0, MultiPV: 1}); err == nil {
		t.Fatalf("zero hash should be rejected")
	}
	if err := validateOptions(Options{HashMB: 16, MultiPV: 0}); err == nil {
		t.Fatalf("zero multipv should be rejected")
	}
}

func TestNewPoolRequiresBinary(t *testing.T) {
	if _, err := NewPool(PoolConfig{}); err == nil {
		t.Fatalf("expected error for empty path")
	}
	if _, err := NewPool(PoolConfig{BinaryPath: "/nonexistent/stockfish"}); err == nil {
		t.Fatalf("expected error for missing binary")
	}
}
