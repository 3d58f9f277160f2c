// Package live drives real-time event ingestion over a Solana logsSubscribe
// WebSocket stream.
package live

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"soltrace/internal/observability"
	"soltrace/internal/pipeline"
	"soltrace/internal/solana"
)

var allStates = []string{string(StateConnecting), string(StateSubscribed), string(StateReconnecting), string(StateStopped)}

// State describes the engine's connection lifecycle.
type State string

const (
	StateConnecting   State = "connecting"
	StateSubscribed   State = "subscribed"
	StateReconnecting State = "reconnecting"
	StateStopped      State = "stopped"
)

// ErrMaxReconnectsExceeded is returned by Run when Config.MaxReconnects is
// positive and that many consecutive reconnect attempts have failed for one
// of the configured programs.
var ErrMaxReconnectsExceeded = errors.New("live: maximum reconnection attempts exceeded")

// Config controls Engine behavior.
type Config struct {
	// Programs is the list of program IDs to subscribe to. Each gets its
	// own logsSubscribe subscription.
	Programs []string

	// Commitment is the log commitment level: processed, confirmed, or
	// finalized. Defaults to "confirmed".
	Commitment string

	// ReconnectDelay is the base delay before the first reconnect attempt;
	// each subsequent attempt doubles it, capped at MaxReconnectDelay.
	// Defaults to 5s.
	ReconnectDelay time.Duration

	// MaxReconnectDelay caps the exponential backoff. Defaults to 15m.
	MaxReconnectDelay time.Duration

	// MaxReconnects bounds consecutive reconnect attempts per program; 0
	// means unbounded.
	MaxReconnects int

	Logger *zap.Logger
}

func (c *Config) setDefaults() {
	if c.Commitment == "" {
		c.Commitment = "confirmed"
	}
	if c.ReconnectDelay == 0 {
		c.ReconnectDelay = 5 * time.Second
	}
	if c.MaxReconnectDelay == 0 {
		c.MaxReconnectDelay = 15 * time.Minute
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}

// Engine runs one subscription per configured program, feeding every
// notification through a pipeline.Pipeline and reconnecting on failure.
type Engine struct {
	ws     solana.WSClient
	pl     *pipeline.Pipeline
	config Config

	mu     sync.Mutex
	states map[string]State
}

// New builds an Engine over an already-constructed WebSocket client and
// pipeline.
func New(ws solana.WSClient, pl *pipeline.Pipeline, config Config) *Engine {
	config.setDefaults()
	states := make(map[string]State, len(config.Programs))
	for _, programID := range config.Programs {
		states[programID] = StateConnecting
	}
	return &Engine{ws: ws, pl: pl, config: config, states: states}
}

// State reports a single program's current lifecycle state.
func (e *Engine) State(programID string) State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.states[programID]
}

func (e *Engine) setState(programID string, s State) {
	e.mu.Lock()
	e.states[programID] = s
	e.mu.Unlock()
	observability.SetEngineState(programID, allStates, string(s))
}

// Run subscribes each configured program to its own log stream and
// processes notifications until ctx is cancelled or reconnection attempts
// are exhausted for any one program.
func (e *Engine) Run(ctx context.Context) error {
	if len(e.config.Programs) == 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, len(e.config.Programs))
	var wg sync.WaitGroup
	for _, programID := range e.config.Programs {
		wg.Add(1)
		go func(programID string) {
			defer wg.Done()
			errCh <- e.runProgram(ctx, programID)
		}(programID)
	}

	go func() {
		wg.Wait()
		close(errCh)
	}()

	var firstErr error
	for err := range errCh {
		if err != nil && firstErr == nil {
			firstErr = err
			cancel()
		}
	}
	return firstErr
}

// runProgram maintains a single program's logsSubscribe stream, reconnecting
// with backoff until ctx is cancelled or MaxReconnects is exceeded.
func (e *Engine) runProgram(ctx context.Context, programID string) error {
	reconnects := 0

	for {
		e.setState(programID, StateConnecting)
		notifications, err := e.ws.SubscribeLogs(ctx, solana.LogsFilter{Mentions: []string{programID}})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if !e.shouldRetry(programID, &reconnects) {
				return ErrMaxReconnectsExceeded
			}
			continue
		}

		e.setState(programID, StateSubscribed)
		reconnects = 0
		e.config.Logger.Info("subscribed to program logs", zap.String("program_id", programID))

		closed, err := e.consume(ctx, programID, notifications)
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !closed {
			return nil
		}

		if !e.shouldRetry(programID, &reconnects) {
			return ErrMaxReconnectsExceeded
		}
	}
}

// consume drains notifications until the channel closes or ctx is done. It
// returns closed=true if the stream ended and a reconnect should be
// attempted.
func (e *Engine) consume(ctx context.Context, programID string, notifications <-chan solana.LogNotification) (closed bool, err error) {
	for {
		select {
		case <-ctx.Done():
			return false, nil

		case notification, ok := <-notifications:
			if !ok {
				e.setState(programID, StateReconnecting)
				return true, nil
			}
			e.handleNotification(ctx, programID, notification)
		}
	}
}

func (e *Engine) handleNotification(ctx context.Context, programID string, n solana.LogNotification) {
	if n.Err != nil {
		e.config.Logger.Debug("skipping failed transaction", zap.String("signature", n.Signature))
		return
	}

	raw := pipeline.RawEvent{
		Slot:      0, // not provided by logsSubscribe notifications
		Signature: n.Signature,
		ProgramID: programID,
		Timestamp: time.Now(),
		LogLines:  n.Logs,
	}

	if _, err := e.pl.Process(ctx, raw); err != nil {
		e.config.Logger.Warn("failed to process notification",
			zap.String("program_id", programID), zap.String("signature", n.Signature), zap.Error(err))
	}
}

// shouldRetry increments the reconnect counter, sleeps the backoff delay,
// and reports whether another attempt is permitted.
func (e *Engine) shouldRetry(programID string, reconnects *int) bool {
	e.setState(programID, StateReconnecting)
	*reconnects++
	if e.config.MaxReconnects > 0 && *reconnects > e.config.MaxReconnects {
		return false
	}

	delay := e.config.ReconnectDelay
	for i := 1; i < *reconnects && delay < e.config.MaxReconnectDelay; i++ {
		delay *= 2
	}
	if delay > e.config.MaxReconnectDelay {
		delay = e.config.MaxReconnectDelay
	}

	observability.RecordReconnect(programID)

	e.config.Logger.Warn("reconnecting", zap.String("program_id", programID), zap.Int("attempt", *reconnects), zap.Duration("delay", delay))
	time.Sleep(delay)
	return true
}
