// Package decision wraps the optional external decision source. The external
// response is advisory text only: checks and verdicts are always re-derived
// from case facts, and any classification the source returns is discarded.
package decision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/garyjia/ai-procurement/internal/application/port"
	"github.com/garyjia/ai-procurement/internal/domain/entity"
)

// ErrNoSource is returned when no external source is configured
var ErrNoSource = errors.New("no decision source configured")

// Logger is the minimal key/value logger the adapter needs
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Config bounds the external call
type Config struct {
	Timeout        time.Duration
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultConfig is a short time box with two retries
func DefaultConfig() Config {
	return Config{
		Timeout:        5 * time.Second,
		MaxRetries:     2,
		InitialBackoff: 200 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
	}
}

// RawDecision is the normalized external contribution to a stage
type RawDecision struct {
	Narrative string
	// Discarded names the fields the source returned that were ignored
	Discarded []string
	Attempts  int
	// Note explains a degraded call; empty when the source answered
	Note string
}

// HasNarrative reports whether the source contributed text
func (d RawDecision) HasNarrative() bool {
	return d.Narrative != ""
}

// Adapter calls the decision source with a deadline and bounded retries
type Adapter struct {
	source port.DecisionSource
	cfg    Config
	logger Logger
}

// Option configures an Adapter
type Option func(*Adapter)

// WithLogger sets the adapter logger
func WithLogger(l Logger) Option {
	return func(a *Adapter) {
		a.logger = l
	}
}

// NewAdapter creates an adapter; a nil source is allowed and yields ErrNoSource
func NewAdapter(source port.DecisionSource, cfg Config, opts ...Option) *Adapter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = DefaultConfig().InitialBackoff
	}
	if cfg.MaxBackoff < cfg.InitialBackoff {
		cfg.MaxBackoff = cfg.InitialBackoff
	}
	a := &Adapter{source: source, cfg: cfg}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Decide asks the source for a narrative on one stage of a case. Transport
// errors, timeouts and malformed responses all degrade to a RawDecision with
// no narrative and a note; only a missing source or case is an error.
func (a *Adapter) Decide(ctx context.Context, stage entity.Stage, c *entity.Case) (RawDecision, error) {
	if a == nil || a.source == nil {
		return RawDecision{}, ErrNoSource
	}
	if err := c.Validate(); err != nil {
		return RawDecision{}, err
	}

	payload, err := factsPayload(stage, c)
	if err != nil {
		return RawDecision{Note: "decision source skipped: " + err.Error()}, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	attempts := 0
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = a.cfg.InitialBackoff
	b.MaxInterval = a.cfg.MaxBackoff

	raw, err := backoff.Retry(callCtx, func() (string, error) {
		attempts++
		text, err := a.source.Decide(callCtx, stage, payload)
		if err != nil {
			if callCtx.Err() != nil {
				return "", backoff.Permanent(err)
			}
			return "", err
		}
		return text, nil
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(a.cfg.MaxRetries+1)),
		backoff.WithNotify(func(err error, wait time.Duration) {
			a.logInfo("Decision source retry", "case_id", c.ID, "stage", int(stage), "attempt", attempts, "wait", wait, "error", err)
		}),
	)
	if err != nil {
		a.logError("Decision source unavailable", "case_id", c.ID, "stage", int(stage), "attempts", attempts, "error", err)
		return RawDecision{Attempts: attempts, Note: "decision source unavailable: " + err.Error()}, nil
	}

	decision, err := Normalize(raw)
	decision.Attempts = attempts
	if err != nil {
		a.logError("Decision source returned malformed response", "case_id", c.ID, "stage", int(stage), "error", err)
		decision.Note = "decision source response ignored: " + err.Error()
		return decision, nil
	}
	if len(decision.Discarded) > 0 {
		a.logInfo("Discarded external classification", "case_id", c.ID, "stage", int(stage), "fields", decision.Discarded)
	}
	return decision, nil
}

// factsPayload is the JSON document sent to the source
func factsPayload(stage entity.Stage, c *entity.Case) ([]byte, error) {
	doc := map[string]any{
		"case_id":    c.ID,
		"stage":      int(stage),
		"stage_name": stage.Name(),
		"facts":      c.DerivedFacts(),
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode facts: %w", err)
	}
	return data, nil
}

func (a *Adapter) logInfo(msg string, kv ...interface{}) {
	if a.logger != nil {
		a.logger.Info(msg, kv...)
	}
}

func (a *Adapter) logError(msg string, kv ...interface{}) {
	if a.logger != nil {
		a.logger.Error(msg, kv...)
	}
}
