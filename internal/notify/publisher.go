// Package notify fans resolved matches out to other systems
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/mcoot/rpsarbiter/internal/model"
)

// Publisher receives domain events from live (non-replay) dispatch
type Publisher interface {
	Publish(ctx context.Context, event model.Event) error
	Close() error
}

// MatchResult is the JSON body published for each resolved match
type MatchResult struct {
	MatchID    string    `json:"match_id"`
	Mode       string    `json:"mode"`
	Player1    string    `json:"player1"`
	Player2    string    `json:"player2"`
	Outcome    string    `json:"outcome"`
	Winner     string    `json:"winner,omitempty"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// NewMatchResult builds the published body from a resolution event
func NewMatchResult(event model.Event) (MatchResult, bool) {
	payload, ok := event.Payload.(model.MatchResolvedPayload)
	if event.Type != model.EventMatchResolved || !ok {
		return MatchResult{}, false
	}
	return MatchResult{
		MatchID:    string(event.MatchID),
		Mode:       payload.Mode,
		Player1:    payload.Player1,
		Player2:    payload.Player2,
		Outcome:    payload.Outcome.String(),
		Winner:     payload.Outcome.Winner,
		ResolvedAt: event.Timestamp,
	}, true
}

// Nop discards every event
type Nop struct{}

func (Nop) Publish(context.Context, model.Event) error { return nil }
func (Nop) Close() error                               { return nil }

// Config holds NATS publisher settings
type Config struct {
	URL     string
	Subject string
	Name    string
}

// DefaultConfig returns default publisher configuration
func DefaultConfig() Config {
	return Config{
		Subject: "rps.match.resolved",
		Name:    "rpsarbiter",
	}
}

// NATS publishes match results as JSON on a single subject
type NATS struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
}

// NewNATS connects to the configured server
func NewNATS(cfg Config, logger *slog.Logger) (*NATS, error) {
	if cfg.Subject == "" {
		cfg.Subject = DefaultConfig().Subject
	}
	if cfg.Name == "" {
		cfg.Name = DefaultConfig().Name
	}

	logger = logger.With(slog.String("component", "notify"))
	conn, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", slog.String("error", err.Error()))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Warn("nats reconnected", slog.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats: %w", err)
	}

	return &NATS{conn: conn, subject: cfg.Subject, logger: logger}, nil
}

// New returns a NATS publisher, or Nop when no URL is configured
func New(cfg Config, logger *slog.Logger) (Publisher, error) {
	if cfg.URL == "" {
		return Nop{}, nil
	}
	return NewNATS(cfg, logger)
}

// Publish sends resolved matches and ignores every other event type
func (p *NATS) Publish(ctx context.Context, event model.Event) error {
	result, ok := NewMatchResult(event)
	if !ok {
		return nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publishing %s: %w", result.MatchID, err)
	}
	return nil
}

// Close flushes pending messages and closes the connection
func (p *NATS) Close() error {
	return p.conn.Drain()
}
