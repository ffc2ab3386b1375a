// Package irc carries protocol lines as IRC private messages
package irc

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"gopkg.in/irc.v4"

	"github.com/mcoot/rpsarbiter/internal/transport"
)

// Config holds IRC connection settings
type Config struct {
	// Server is host:port
	Server string
	TLS    bool

	Nick     string
	User     string
	Name     string
	Password string

	// Channel is joined after registration; Announce is said there once
	Channel  string
	Announce string

	ReconnectDelay time.Duration
	SendLimit      time.Duration
	SendBurst      int
}

// DefaultConfig returns default IRC configuration
func DefaultConfig() Config {
	return Config{
		Server:         "irc.libera.chat:6697",
		TLS:            true,
		Nick:           "user02ae4f8be6",
		User:           "rpsarbiter",
		Name:           "rock paper scissors arbiter",
		Channel:        "#02ae4f8be6",
		Announce:       "test",
		ReconnectDelay: 5 * time.Second,
		SendLimit:      200 * time.Millisecond,
		SendBurst:      8,
	}
}

// Transport keeps one IRC session alive and implements transport.Transport
type Transport struct {
	cfg    Config
	logger *slog.Logger
	dialer net.Dialer

	mu     sync.RWMutex
	client *irc.Client
}

// Ensure Transport implements the interface
var _ transport.Transport = (*Transport)(nil)

// New creates an IRC transport. Nothing connects until Run.
func New(cfg Config, logger *slog.Logger) *Transport {
	def := DefaultConfig()
	if cfg.User == "" {
		cfg.User = cfg.Nick
	}
	if cfg.Name == "" {
		cfg.Name = cfg.Nick
	}
	if cfg.ReconnectDelay == 0 {
		cfg.ReconnectDelay = def.ReconnectDelay
	}
	return &Transport{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "irc")),
		dialer: net.Dialer{Timeout: 30 * time.Second},
	}
}

// Run connects and reconnects until ctx is cancelled
func (t *Transport) Run(ctx context.Context, handler transport.LineHandler) error {
	for {
		err := t.session(ctx, handler)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		t.logger.Warn("irc session ended, reconnecting",
			slog.String("server", t.cfg.Server),
			slog.Any("error", err),
			slog.Duration("delay", t.cfg.ReconnectDelay),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(t.cfg.ReconnectDelay):
		}
	}
}

func (t *Transport) session(ctx context.Context, handler transport.LineHandler) error {
	conn, err := t.dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	client := irc.NewClient(conn, irc.ClientConfig{
		Nick:      t.cfg.Nick,
		Pass:      t.cfg.Password,
		User:      t.cfg.User,
		Name:      t.cfg.Name,
		SendLimit: t.cfg.SendLimit,
		SendBurst: t.cfg.SendBurst,
		Handler: irc.HandlerFunc(func(c *irc.Client, m *irc.Message) {
			t.handle(ctx, c, m, handler)
		}),
	})

	t.setClient(client)
	defer t.setClient(nil)

	// Unblock the client when ctx ends
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	t.logger.Info("irc connected", slog.String("server", t.cfg.Server), slog.String("nick", t.cfg.Nick))
	return client.RunContext(ctx)
}

func (t *Transport) dial(ctx context.Context) (net.Conn, error) {
	if !t.cfg.TLS {
		conn, err := t.dialer.DialContext(ctx, "tcp", t.cfg.Server)
		if err != nil {
			return nil, fmt.Errorf("dialing %s: %w", t.cfg.Server, err)
		}
		return conn, nil
	}

	host, _, err := net.SplitHostPort(t.cfg.Server)
	if err != nil {
		return nil, err
	}
	td := tls.Dialer{NetDialer: &t.dialer, Config: &tls.Config{ServerName: host}}
	conn, err := td.DialContext(ctx, "tcp", t.cfg.Server)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", t.cfg.Server, err)
	}
	return conn, nil
}

func (t *Transport) handle(ctx context.Context, c *irc.Client, m *irc.Message, handler transport.LineHandler) {
	switch m.Command {
	case "001":
		if t.cfg.Channel == "" {
			return
		}
		t.logger.Info("joining channel", slog.String("channel", t.cfg.Channel))
		_ = c.WriteMessage(&irc.Message{Command: "JOIN", Params: []string{t.cfg.Channel}})
		if t.cfg.Announce != "" {
			_ = c.WriteMessage(&irc.Message{Command: "PRIVMSG", Params: []string{t.cfg.Channel, t.cfg.Announce}})
		}

	case "PRIVMSG":
		if m.Prefix == nil || len(m.Params) < 2 {
			return
		}
		handler(ctx, m.Prefix.Name, m.Params[0], m.Trailing())
	}
}

func (t *Transport) setClient(c *irc.Client) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.client = c
}

// SendLine sends text to target as a PRIVMSG
func (t *Transport) SendLine(ctx context.Context, target, text string) error {
	t.mu.RLock()
	client := t.client
	t.mu.RUnlock()
	if client == nil {
		return transport.ErrNotConnected
	}

	text = strings.NewReplacer("\r", " ", "\n", " ").Replace(text)
	return client.WriteMessage(&irc.Message{
		Command: "PRIVMSG",
		Params:  []string{target, text},
	})
}
