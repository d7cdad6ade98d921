package uci

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/park285/pgn-report/internal/obslog"
	"go.uber.org/zap"
)

const defaultReadyTimeout = 4 * time.Second

type Options struct {
	Threads int
	HashMB  int
	MultiPV int
}

type Limits struct {
	Depth          int
	MoveTimeMillis int
	NodeCap        int
}

// Line is one principal variation reported for a search. Scores are from
// the side to move. Mate is set instead of CP when the engine sees a mate;
// a Mate of 0 means the side to move is already mated.
type Line struct {
	Move      string
	CP        int
	Mate      *int
	Depth     int
	Principal []string
}

type Session struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
	mu     sync.Mutex
	search sync.Mutex
}

func NewSession(ctx context.Context, binaryPath string, opt Options) (*Session, error) {
	if err := validateOptions(opt); err != nil {
		return nil, err
	}

	// the process outlives the acquiring request, so it is not bound to ctx
	cmd := exec.Command(binaryPath)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdoutPipe.Close()
		return nil, fmt.Errorf("start engine: %w", err)
	}

	s := &Session{
		cmd:    cmd,
		stdin:  stdin,
		stdout: bufio.NewReader(stdoutPipe),
	}

	if err := s.initialize(ctx, opt); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

type SearchRequest struct {
	FEN    string
	Moves  []string
	Limits Limits
}

type SearchResponse struct {
	Lines    []Line
	BestMove string
}

// Search runs one "go" command and collects the last info line seen for
// every multipv index until bestmove arrives.
func (s *Session) Search(ctx context.Context, req SearchRequest) (SearchResponse, error) {
	s.search.Lock()
	defer s.search.Unlock()

	positionCmd := buildPositionCommand(req.FEN, req.Moves)
	if err := s.send(positionCmd); err != nil {
		return SearchResponse{}, fmt.Errorf("send position: %w", err)
	}

	goTokens, err := buildGoTokens(req.Limits)
	if err != nil {
		return SearchResponse{}, err
	}
	goCmd := strings.Join(goTokens, " ")
	if err := s.send(goCmd + "\n"); err != nil {
		return SearchResponse{}, fmt.Errorf("send go: %w", err)
	}

	deadline := computeSearchTimeout(req.Limits)
	searchCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	lines := make(map[int]Line)
	for {
		line, err := s.readLine(searchCtx)
		if err != nil {
			obslog.L().Warn("uci read error",
				zap.String("position", strings.TrimSpace(positionCmd)),
				zap.String("go", goCmd),
				zap.Error(err),
			)
			return SearchResponse{}, fmt.Errorf("read line: %w", err)
		}
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, "info "):
			if idx, l, ok := parseInfo(line); ok {
				lines[idx] = l
			}
		case strings.HasPrefix(line, "bestmove"):
			best := ""
			parts := strings.Fields(line)
			if len(parts) >= 2 && parts[1] != "(none)" {
				best = parts[1]
			}
			return SearchResponse{Lines: collapseLines(lines), BestMove: best}, nil
		}
	}
}

func buildPositionCommand(fen string, moves []string) string {
	var sb strings.Builder
	if strings.TrimSpace(fen) == "" || fen == "startpos" {
		sb.WriteString("position startpos")
	} else {
		sb.WriteString("position fen ")
		sb.WriteString(fen)
	}
	if len(moves) > 0 {
		sb.WriteString(" moves ")
		sb.WriteString(strings.Join(moves, " "))
	}
	sb.WriteString("\n")
	return sb.String()
}

func validateOptions(opt Options) error {
	if opt.HashMB <= 0 {
		return fmt.Errorf("hash size must be > 0: %d", opt.HashMB)
	}
	if opt.MultiPV <= 0 {
		return fmt.Errorf("multipv must be > 0: %d", opt.MultiPV)
	}
	if opt.Threads < 0 {
		return fmt.Errorf("threads must be >= 0: %d", opt.Threads)
	}
	return nil
}

func buildGoTokens(l Limits) ([]string, error) {
	args := []string{"go"}
	if l.Depth > 0 {
		args = append(args, "depth", strconv.Itoa(l.Depth))
	}
	if l.MoveTimeMillis > 0 {
		args = append(args, "movetime", strconv.Itoa(l.MoveTimeMillis))
	}
	if l.NodeCap > 0 {
		args = append(args, "nodes", strconv.Itoa(l.NodeCap))
	}
	if len(args) == 1 {
		return nil, fmt.Errorf("no search limits specified")
	}
	return args, nil
}

func computeSearchTimeout(l Limits) time.Duration {
	if l.MoveTimeMillis > 0 {
		ms := l.MoveTimeMillis + 2000
		return time.Duration(ms) * time.Millisecond * 3
	}
	if l.Depth > 0 {
		base := time.Duration(l.Depth) * 500 * time.Millisecond
		if base < 6*time.Second {
			base = 6 * time.Second
		}
		if base > 30*time.Second {
			base = 30 * time.Second
		}
		return base
	}
	return 10 * time.Second
}

func parseInfo(line string) (int, Line, bool) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return 0, Line{}, false
	}
	var (
		multipv = 1
		out     Line
		scored  bool
		pvIdx   = -1
	)

	for i := 0; i < len(parts); i++ {
		switch parts[i] {
		case "depth":
			if i+1 < len(parts) {
				if v, err := strconv.Atoi(parts[i+1]); err == nil {
					out.Depth = v
				}
				i++
			}
		case "multipv":
			if i+1 < len(parts) {
				if v, err := strconv.Atoi(parts[i+1]); err == nil {
					multipv = v
				}
				i++
			}
		case "score":
			if i+2 < len(parts) {
				v, err := strconv.Atoi(parts[i+2])
				if err == nil {
					switch parts[i+1] {
					case "cp":
						out.CP = v
						scored = true
					case "mate":
						mate := v
						out.Mate = &mate
						scored = true
					}
				}
				i += 2
			}
		case "lowerbound", "upperbound":
			// bound scores are superseded by the exact one that follows
			return 0, Line{}, false
		case "pv":
			pvIdx = i + 1
			i = len(parts)
		}
	}

	if !scored {
		return 0, Line{}, false
	}
	if pvIdx != -1 && pvIdx < len(parts) {
		out.Principal = append([]string(nil), parts[pvIdx:]...)
		out.Move = out.Principal[0]
	}
	if out.Move == "" && (out.Mate == nil || *out.Mate != 0) {
		return 0, Line{}, false
	}
	return multipv, out, true
}

func collapseLines(m map[int]Line) []Line {
	if len(m) == 0 {
		return nil
	}
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	result := make([]Line, 0, len(keys))
	for _, k := range keys {
		result = append(result, m[k])
	}
	return result
}

func (s *Session) EnsureReady(ctx context.Context) error {
	readyCtx, cancel := context.WithTimeout(ctx, defaultReadyTimeout)
	defer cancel()

	if err := s.send("isready\n"); err != nil {
		return fmt.Errorf("send isready: %w", err)
	}
	if err := s.awaitToken(readyCtx, "readyok"); err != nil {
		return fmt.Errorf("wait readyok: %w", err)
	}
	return nil
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stdin != nil {
		_, _ = io.WriteString(s.stdin, "quit\n")
		s.stdin.Close()
	}

	if s.cmd != nil && s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}

	if s.cmd != nil {
		_ = s.cmd.Wait()
	}
	return nil
}

func (s *Session) initialize(ctx context.Context, opt Options) error {
	initCtx, cancel := context.WithTimeout(ctx, defaultReadyTimeout)
	defer cancel()

	if err := s.send("uci\n"); err != nil {
		return fmt.Errorf("send uci: %w", err)
	}
	if err := s.awaitToken(initCtx, "uciok"); err != nil {
		return fmt.Errorf("wait uciok: %w", err)
	}

	if err := s.applyOptions(opt); err != nil {
		return err
	}

	if err := s.send("isready\n"); err != nil {
		return fmt.Errorf("send isready: %w", err)
	}
	if err := s.awaitToken(initCtx, "readyok"); err != nil {
		return fmt.Errorf("wait readyok: %w", err)
	}

	return nil
}

// applyOptions configures the engine for full-strength analysis.
func (s *Session) applyOptions(opt Options) error {
	threadCount := opt.Threads
	if threadCount <= 0 {
		threadCount = 1
	}
	cmds := []string{
		fmt.Sprintf("setoption name Threads value %d\n", threadCount),
		fmt.Sprintf("setoption name Hash value %d\n", opt.HashMB),
		fmt.Sprintf("setoption name MultiPV value %d\n", opt.MultiPV),
		"setoption name UCI_LimitStrength value false\n",
	}
	for _, cmd := range cmds {
		if err := s.send(cmd); err != nil {
			return fmt.Errorf("apply options: %w", err)
		}
	}
	return nil
}

func (s *Session) send(msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := io.WriteString(s.stdin, msg)
	return err
}

func (s *Session) awaitToken(ctx context.Context, token string) error {
	for {
		line, err := s.readLine(ctx)
		if err != nil {
			return err
		}
		if strings.Contains(line, token) {
			return nil
		}
	}
}

func (s *Session) readLine(ctx context.Context) (string, error) {
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)

	go func() {
		line, err := s.stdout.ReadString('\n')
		ch <- result{line: strings.TrimSpace(line), err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		return res.line, res.err
	}
}
