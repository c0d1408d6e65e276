// Package engine wraps a UCI chess engine process behind a stable evaluation
// contract: one long-lived session, one position evaluated at a time.
package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dfarias/chessinsight/internal/apperr"
	"github.com/dfarias/chessinsight/internal/logger"
	"github.com/dfarias/chessinsight/internal/models"
)

const multiPV = 3

// Engine is one UCI engine session. Safe for use by one goroutine at a time;
// the internal mutex serializes callers that share a session.
type Engine struct {
	path     string
	depth    int
	moveTime time.Duration
	log      *logger.Logger

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.Writer
	stdout *bufio.Reader
}

// New starts the engine binary and performs the UCI handshake. Failure here is
// fatal to the caller; there is no degraded mode without an engine.
func New(path string, depth int, moveTime time.Duration) (*Engine, error) {
	log := logger.Default().WithPrefix("engine")

	if path == "" {
		path = "stockfish"
	}
	if depth <= 0 {
		depth = 15
	}
	if moveTime <= 0 {
		moveTime = 2 * time.Second
	}

	log.Info("starting engine: %s (depth=%d, movetime=%v)", path, depth, moveTime)
	cmd := exec.Command(path)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		log.Error("failed to create stdin pipe: %v", err)
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		log.Error("failed to create stdout pipe: %v", err)
		return nil, err
	}

	e := &Engine{
		path:     path,
		depth:    depth,
		moveTime: moveTime,
		log:      log,
		cmd:      cmd,
		stdin:    stdin,
		stdout:   bufio.NewReader(stdout),
	}

	if err := cmd.Start(); err != nil {
		log.Error("failed to start engine: %v", err)
		return nil, err
	}

	if err := e.init(); err != nil {
		log.Error("failed to initialize UCI: %v", err)
		_ = cmd.Process.Kill()
		return nil, err
	}

	log.Info("engine ready")
	return e, nil
}

func (e *Engine) init() error {
	if err := e.sendLocked("uci"); err != nil {
		return err
	}
	if err := e.waitFor("uciok", 5*time.Second); err != nil {
		return err
	}
	if err := e.sendLocked(fmt.Sprintf("setoption name MultiPV value %d", multiPV)); err != nil {
		return err
	}
	if err := e.sendLocked("isready"); err != nil {
		return err
	}
	return e.waitFor("readyok", 5*time.Second)
}

// Close quits the engine process. Safe to call more than once.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cmd == nil {
		return nil
	}

	e.log.Debug("closing engine session")
	_ = e.sendLocked("quit")
	err := e.cmd.Wait()
	e.cmd = nil
	if err != nil {
		e.log.Debug("engine process exited: %v", err)
	}
	return err
}

// Evaluate runs the engine on one position and returns its verdict. A failure
// here is recoverable: the session survives and the caller decides whether to
// retry or mark the position missing.
func (e *Engine) Evaluate(ctx context.Context, fen string) (models.PositionEvaluation, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cmd == nil {
		return models.PositionEvaluation{}, apperr.NewEvaluation(fen, errors.New("engine session closed"))
	}

	log := e.log.WithField("depth", e.depth)
	start := time.Now()
	log.Debug("evaluating position: %s", fen)

	if err := e.sendLocked("position fen " + fen); err != nil {
		log.Error("failed to set position: %v", err)
		return models.PositionEvaluation{}, apperr.NewEvaluation(fen, err)
	}
	goCmd := fmt.Sprintf("go depth %d movetime %d", e.depth, e.moveTime.Milliseconds())
	if err := e.sendLocked(goCmd); err != nil {
		log.Error("failed to start search: %v", err)
		return models.PositionEvaluation{}, apperr.NewEvaluation(fen, err)
	}

	blackToMove := sideToMoveIsBlack(fen)
	lines := map[int]infoLine{}
	deadline := time.Now().Add(2*e.moveTime + 8*time.Second)

	for {
		if ctx.Err() != nil {
			log.Warn("evaluation cancelled: %v", ctx.Err())
			return models.PositionEvaluation{}, apperr.NewEvaluation(fen, ctx.Err())
		}
		if time.Now().After(deadline) {
			log.Error("evaluation timed out after %v", time.Since(start))
			return models.PositionEvaluation{}, apperr.NewEvaluation(fen, errors.New("engine timeout"))
		}

		raw, err := e.stdout.ReadString('\n')
		if err != nil {
			log.Error("failed to read from engine: %v", err)
			return models.PositionEvaluation{}, apperr.NewEvaluation(fen, err)
		}
		raw = strings.TrimSpace(raw)

		if strings.HasPrefix(raw, "info") {
			if il, ok := parseInfo(raw); ok {
				lines[il.multipv] = il
			}
			continue
		}
		if strings.HasPrefix(raw, "bestmove") {
			eval := assemble(fen, lines, blackToMove)
			parts := strings.Fields(raw)
			if len(parts) >= 2 && parts[1] != "(none)" {
				eval.BestMove = parts[1]
			}
			log.Debug("evaluation completed in %v: score=%+v, bestmove=%s",
				time.Since(start), eval.Score, eval.BestMove)
			return eval, nil
		}
	}
}

type infoLine struct {
	multipv   int
	score     models.Score
	firstMove string
}

// parseInfo extracts the multipv index, score, and first pv move from one UCI
// info line. Lines without a score are ignored.
func parseInfo(line string) (infoLine, bool) {
	parts := strings.Fields(line)
	il := infoLine{multipv: 1}
	haveScore := false

	for i := 0; i < len(parts); i++ {
		switch parts[i] {
		case "multipv":
			if i+1 < len(parts) {
				if v, err := strconv.Atoi(parts[i+1]); err == nil {
					il.multipv = v
				}
			}
		case "score":
			if i+2 < len(parts) {
				if v, err := strconv.Atoi(parts[i+2]); err == nil {
					switch parts[i+1] {
					case "cp":
						il.score = models.Score{Kind: models.ScoreCentipawn, Value: v}
						haveScore = true
					case "mate":
						il.score = models.Score{Kind: models.ScoreMate, Value: v}
						haveScore = true
					}
				}
			}
		case "pv":
			if i+1 < len(parts) {
				il.firstMove = parts[i+1]
			}
		}
	}

	return il, haveScore
}

// assemble turns the collected multipv lines into a PositionEvaluation with
// the score normalized to white's perspective.
func assemble(fen string, lines map[int]infoLine, blackToMove bool) models.PositionEvaluation {
	eval := models.PositionEvaluation{FEN: fen}

	if principal, ok := lines[1]; ok {
		eval.Score = normalize(principal.score, blackToMove)
		eval.BestMove = principal.firstMove
	}

	ranks := make([]int, 0, len(lines))
	for rank := range lines {
		if rank > 1 {
			ranks = append(ranks, rank)
		}
	}
	sort.Ints(ranks)
	for _, rank := range ranks {
		il := lines[rank]
		if il.firstMove == "" {
			continue
		}
		eval.Alternatives = append(eval.Alternatives, models.AltMove{
			Move:  il.firstMove,
			Score: normalize(il.score, blackToMove),
		})
	}
	return eval
}

// normalize flips a side-to-move score to white's perspective.
func normalize(s models.Score, blackToMove bool) models.Score {
	if blackToMove {
		s.Value = -s.Value
	}
	return s
}

func sideToMoveIsBlack(fen string) bool {
	parts := strings.Fields(fen)
	return len(parts) > 1 && parts[1] == "b"
}

func (e *Engine) sendLocked(cmd string) error {
	_, err := e.stdin.Write([]byte(cmd + "\n"))
	return err
}

func (e *Engine) waitFor(marker string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if time.Now().After(deadline) {
			e.log.Error("timeout waiting for %s", marker)
			return fmt.Errorf("timeout waiting for %s", marker)
		}
		line, err := e.stdout.ReadString('\n')
		if err != nil {
			return err
		}
		if strings.Contains(line, marker) {
			return nil
		}
	}
}
