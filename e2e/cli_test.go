package e2e_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/rpsarbiter/internal/api"
	"github.com/mcoot/rpsarbiter/internal/config"
	"github.com/mcoot/rpsarbiter/internal/factory"
)

const secret = "e2e-secret"

// cliRunner manages CLI binary execution
type cliRunner struct {
	binaryPath string
	serverURL  string
}

func newCLIRunner(t *testing.T, serverURL string) *cliRunner {
	t.Helper()

	projectRoot := findProjectRoot(t)

	binaryPath := filepath.Join(t.TempDir(), "rpsctl-test")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/rpsctl")
	cmd.Dir = projectRoot
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "failed to build CLI: %s", string(output))

	return &cliRunner{binaryPath: binaryPath, serverURL: serverURL}
}

func (r *cliRunner) run(args ...string) (string, error) {
	fullArgs := append([]string{"--server", r.serverURL, "--output", "json"}, args...)
	cmd := exec.Command(r.binaryPath, fullArgs...)
	output, err := cmd.CombinedOutput()
	return string(output), err
}

func findProjectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	require.NoError(t, err)

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

// testServer runs the full arbiter stack on the websocket transport with a
// file-backed log
type testServer struct {
	url    string
	logDir string
	cfg    *config.Config
	stop   func()
}

func startTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := config.Default()
	cfg.Identity = "arbiter"
	cfg.Secret = secret
	cfg.Storage.Type = config.StorageFile
	cfg.Storage.Dir = t.TempDir()
	cfg.Transport.Type = config.TransportWebsocket
	cfg.Game.SweepInterval = 10 * time.Millisecond
	// Only the first pairing happens during the test
	cfg.Game.MatchmakingInterval = time.Hour

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	app, err := factory.New(&cfg, logger)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	_, err = app.Arbiter.Restore(ctx)
	require.NoError(t, err)

	done := make(chan struct{}, 2)
	go func() {
		_ = app.Transport.Run(ctx, app.Arbiter.HandleLine)
		done <- struct{}{}
	}()
	go func() {
		_ = app.Arbiter.Run(ctx)
		done <- struct{}{}
	}()
	require.Eventually(t, app.Hub.Running, 5*time.Second, 10*time.Millisecond)

	server := httptest.NewServer(api.NewRouter(api.RouterConfig{
		Logger:    logger,
		Identity:  cfg.Identity,
		Codec:     app.Codec,
		Registry:  app.Registry,
		Matches:   app.Matches,
		Websocket: app.Hub,
	}))

	return &testServer{
		url:    server.URL,
		logDir: cfg.Storage.Dir,
		cfg:    &cfg,
		stop: func() {
			cancel()
			<-done
			<-done
			server.Close()
			_ = app.Close()
		},
	}
}

// player is one websocket chat participant
type player struct {
	t       *testing.T
	conn    *websocket.Conn
	pending []string
}

func connect(t *testing.T, serverURL, nick string) *player {
	t.Helper()
	url := "ws" + strings.TrimPrefix(serverURL, "http") + "/ws?nick=" + nick
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &player{t: t, conn: conn}
}

func (p *player) say(text string) {
	p.t.Helper()
	require.NoError(p.t, p.conn.WriteMessage(websocket.TextMessage, []byte(text)))
}

// await returns the first unread line starting with prefix. Lines read
// past are kept for later calls.
func (p *player) await(prefix string) string {
	p.t.Helper()
	for i, line := range p.pending {
		if strings.HasPrefix(line, prefix) {
			p.pending = append(p.pending[:i], p.pending[i+1:]...)
			return line
		}
	}

	require.NoError(p.t, p.conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		_, msg, err := p.conn.ReadMessage()
		require.NoError(p.t, err, "waiting for %q", prefix)
		line := string(msg)
		if strings.HasPrefix(line, prefix) {
			return line
		}
		p.pending = append(p.pending, line)
	}
}

func TestMatchOverWebsocketThenQueryWithCLI(t *testing.T) {
	ts := startTestServer(t)
	defer ts.stop()

	alice := connect(t, ts.url, "alice")
	bob := connect(t, ts.url, "bob")

	alice.say("REGISTER")
	assert.Equal(t, "OK!", alice.await("OK"))
	bob.say("REGISTER")
	assert.Equal(t, "OK!", bob.await("OK"))

	// MATCH <mode> <id> <opponent>
	aliceMatch := strings.Fields(alice.await("MATCH "))
	bobMatch := strings.Fields(bob.await("MATCH "))
	require.Len(t, aliceMatch, 4)
	require.Len(t, bobMatch, 4)
	id := aliceMatch[2]
	assert.Equal(t, id, bobMatch[2])
	assert.Equal(t, "DEMO", aliceMatch[1])
	assert.Equal(t, "bob", aliceMatch[3])
	assert.Equal(t, "alice", bobMatch[3])

	alice.say("MATCH " + id + " ROCK")
	assert.Equal(t, "OK!", alice.await("OK"))
	bob.say("MATCH " + id + " SCISSORS")

	result := "RESULT " + id + " WIN alice"
	assert.Equal(t, result, alice.await("RESULT "))
	assert.Equal(t, result, bob.await("RESULT "))

	alice.say("STAT")
	assert.Equal(t, "WINS 1 LOSSES 0 TIES 0 SCORE 1.000", alice.await("WINS "))

	cli := newCLIRunner(t, ts.url)

	out, err := cli.run("player", "stats", "alice")
	require.NoError(t, err, out)
	var stats struct {
		Name string `json:"name"`
		Wins int64  `json:"wins"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, "alice", stats.Name)
	assert.Equal(t, int64(1), stats.Wins)

	out, err = cli.run("match", "get", id)
	require.NoError(t, err, out)
	assert.Contains(t, out, `"text": "WIN alice"`)

	out, err = cli.run("leaderboard")
	require.NoError(t, err, out)
	assert.Contains(t, out, `"name": "alice"`)

	// Offline tools read the same log the server is writing
	out, err = cli.run("log", "verify", ts.logDir, "--secret", secret)
	require.NoError(t, err, out)
	assert.Contains(t, out, `"invalid": 0`)

	out, err = cli.run("log", "fold", ts.logDir, "--secret", secret, "--identity", ts.cfg.Identity)
	require.NoError(t, err, out)
	var fold struct {
		Matches     int `json:"matches"`
		Leaderboard struct {
			Entries []struct {
				Name string `json:"name"`
				Wins int64  `json:"wins"`
			} `json:"entries"`
		} `json:"leaderboard"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &fold))
	assert.Equal(t, 1, fold.Matches)
	require.NotEmpty(t, fold.Leaderboard.Entries)
	assert.Equal(t, "alice", fold.Leaderboard.Entries[0].Name)

	archive := filepath.Join(t.TempDir(), "all.botlog.txt.zst")
	out, err = cli.run("log", "export", ts.logDir, archive)
	require.NoError(t, err, out)
	assert.FileExists(t, archive)
}

func TestRestartRestoresState(t *testing.T) {
	ts := startTestServer(t)

	alice := connect(t, ts.url, "alice")
	alice.say("REGISTER")
	alice.await("OK")
	ts.stop()

	cfg := *ts.cfg
	app, err := factory.New(&cfg, nil)
	require.NoError(t, err)
	defer app.Close()

	n, err := app.Arbiter.Restore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, app.Registry.Exists("alice"))
}
