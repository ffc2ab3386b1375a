package factory

import (
	"context"
	"sync"
	"time"

	"github.com/mcoot/rpsarbiter/internal/config"
	"github.com/mcoot/rpsarbiter/internal/dependencies/mocks"
	"github.com/mcoot/rpsarbiter/internal/notify"
	"github.com/mcoot/rpsarbiter/internal/storage/memory"
	"github.com/mcoot/rpsarbiter/internal/testutil"
	"github.com/mcoot/rpsarbiter/internal/transport"
)

// TestIdentity is the arbiter identity used by TestApp
const TestIdentity = "arbiter"

// SentLine is one line handed to a RecordingTransport
type SentLine struct {
	To   string
	Text string
}

// RecordingTransport remembers every outbound line and never connects
type RecordingTransport struct {
	mu   sync.Mutex
	sent []SentLine
}

var _ transport.Transport = (*RecordingTransport)(nil)

// SendLine records the line
func (t *RecordingTransport) SendLine(_ context.Context, target, text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = append(t.sent, SentLine{To: target, Text: text})
	return nil
}

// Run blocks until ctx is cancelled
func (t *RecordingTransport) Run(ctx context.Context, _ transport.LineHandler) error {
	<-ctx.Done()
	return ctx.Err()
}

// Take returns and clears the recorded lines
func (t *RecordingTransport) Take() []SentLine {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := t.sent
	t.sent = nil
	return out
}

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
	MemoryLog  *memory.Storage
	Sent       *RecordingTransport
}

// TestConfig returns the configuration used by NewTestApp
func TestConfig() *config.Config {
	cfg := config.Default()
	cfg.Identity = TestIdentity
	cfg.Secret = "test-secret"
	cfg.Storage.Type = config.StorageMemory
	return &cfg
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp() *TestApp {
	return NewTestAppWithLog(memory.New())
}

// NewTestAppWithLog creates a TestApp over an existing log, for restore tests
func NewTestAppWithLog(log *memory.Storage) *TestApp {
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()
	sent := &RecordingTransport{}

	app := newWithDependencies(log, mockClock, mockRandom, TestConfig(), sent, notify.Nop{}, testutil.NopLogger())

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
		MemoryLog:  log,
		Sent:       sent,
	}
}

// Say delivers text from sender as if it arrived over chat
func (t *TestApp) Say(ctx context.Context, from, text string) {
	t.Arbiter.HandleLine(ctx, from, TestIdentity, text)
}
