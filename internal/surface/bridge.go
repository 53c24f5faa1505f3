package surface

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ErrLoginTimeout reports that an unattended login wait hit its deadline.
var ErrLoginTimeout = errors.New("login wait deadline exceeded")

const (
	statusFile  = "status.json"
	commandsDir = "commands"
	resultsDir  = "results"

	// loginPoll is how often the login status file is re-read while waiting.
	loginPoll = 1 * time.Second
	// loginHeartbeat is how often a waiting-for-login line is logged.
	loginHeartbeat = 30 * time.Second
	// loginDeadline bounds unattended login waits.
	loginDeadline = 60 * time.Second
)

// Bridge is a file-exchange Surface. An external browser helper owns the
// actual page; the two sides meet in a directory:
//
//	<root>/status.json        helper: session + login state
//	<root>/commands/<id>.json chronicle: one command per file
//	<root>/results/<id>.json  helper: response to the matching command
//
// Commands that return data (extract, discover) are awaited with fsnotify
// under a bounded timeout; a timeout yields an empty result, not an error.
type Bridge struct {
	root      string
	selectors map[string]string
	logger    *slog.Logger
	attended  bool
	waitLimit time.Duration
	seq       atomic.Int64
}

type bridgeStatus struct {
	LoginRequired bool `json:"login_required"`
	Closed        bool `json:"closed"`
}

type bridgeCommand struct {
	ID        string            `json:"id"`
	Op        string            `json:"op"`
	URL       string            `json:"url,omitempty"`
	Pixels    int               `json:"pixels,omitempty"`
	Selectors map[string]string `json:"selectors,omitempty"`
}

// NewBridge opens a bridge rooted at dir. The root must already exist: the
// helper creates it on startup, so a missing root means the helper was never
// installed for this source.
func NewBridge(dir string, selectors map[string]string, attended bool, logger *slog.Logger) (*Bridge, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("bridge root %s not available: %w", dir, err)
	}
	for _, sub := range []string{commandsDir, resultsDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("prepare bridge dirs: %w", err)
		}
	}
	return &Bridge{
		root:      dir,
		selectors: selectors,
		logger:    logger,
		attended:  attended,
		waitLimit: 30 * time.Second,
	}, nil
}

// Alive reports whether the helper session is still open.
func (b *Bridge) Alive() bool {
	status, err := b.readStatus()
	if err != nil {
		return false
	}
	return !status.Closed
}

// LoginRequired reads the helper's current login state.
func (b *Bridge) LoginRequired() (bool, error) {
	status, err := b.readStatus()
	if err != nil {
		return false, err
	}
	return status.LoginRequired, nil
}

// WaitForLogin polls the status file until login clears. Unattended waits
// give up after loginDeadline; attended waits only stop on ctx cancellation.
// A heartbeat is logged while waiting so an operator can see what is stuck.
func (b *Bridge) WaitForLogin(ctx context.Context) error {
	deadline := time.Now().Add(loginDeadline)
	lastBeat := time.Now()
	for {
		required, err := b.LoginRequired()
		if err != nil {
			return err
		}
		if !required {
			return nil
		}
		if !b.attended && time.Now().After(deadline) {
			return ErrLoginTimeout
		}
		if time.Since(lastBeat) >= loginHeartbeat {
			b.logger.Warn("waiting for login", "bridge", b.root, "attended", b.attended)
			lastBeat = time.Now()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(loginPoll):
		}
	}
}

// OpenChannel asks the helper to navigate to a channel URL.
func (b *Bridge) OpenChannel(url string) error {
	_, err := b.send(bridgeCommand{Op: "open", URL: url})
	return err
}

// ScrollToBottom positions the view at the newest messages.
func (b *Bridge) ScrollToBottom() error {
	_, err := b.send(bridgeCommand{Op: "scroll_bottom"})
	return err
}

// ScrollUp scrolls the view backward by pixels.
func (b *Bridge) ScrollUp(pixels int) error {
	_, err := b.send(bridgeCommand{Op: "scroll_up", Pixels: pixels})
	return err
}

// Extract requests the currently visible message tuples. A helper that never
// answers within the wait limit produces an empty batch.
func (b *Bridge) Extract() ([]RawMessage, error) {
	data, err := b.sendAndAwait(bridgeCommand{Op: "extract", Selectors: b.selectors})
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}
	var messages []RawMessage
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, fmt.Errorf("decode extract result: %w", err)
	}
	return messages, nil
}

// DiscoverChannels asks the helper to enumerate reachable channels.
func (b *Bridge) DiscoverChannels() ([]DiscoveredChannel, error) {
	data, err := b.sendAndAwait(bridgeCommand{Op: "discover"})
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}
	var channels []DiscoveredChannel
	if err := json.Unmarshal(data, &channels); err != nil {
		return nil, fmt.Errorf("decode discover result: %w", err)
	}
	return channels, nil
}

func (b *Bridge) readStatus() (bridgeStatus, error) {
	data, err := os.ReadFile(filepath.Join(b.root, statusFile))
	if err != nil {
		if os.IsNotExist(err) {
			// No status file means the helper went away.
			return bridgeStatus{Closed: true}, nil
		}
		return bridgeStatus{}, err
	}
	var status bridgeStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return bridgeStatus{}, fmt.Errorf("decode %s: %w", statusFile, err)
	}
	return status, nil
}

// send writes one command file. Fire-and-forget ops return immediately.
func (b *Bridge) send(cmd bridgeCommand) (string, error) {
	cmd.ID = fmt.Sprintf("%d-%s", b.seq.Add(1), cmd.Op)
	data, err := json.Marshal(cmd)
	if err != nil {
		return "", err
	}
	path := filepath.Join(b.root, commandsDir, cmd.ID+".json")
	// Write-then-rename so the helper never reads a partial command.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write command: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("publish command: %w", err)
	}
	return cmd.ID, nil
}

// sendAndAwait writes a command and waits for its result file. Returns nil
// data on timeout: the caller treats that as an empty extraction.
func (b *Bridge) sendAndAwait(cmd bridgeCommand) ([]byte, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Join(b.root, resultsDir)); err != nil {
		return nil, fmt.Errorf("watch results dir: %w", err)
	}

	id, err := b.send(cmd)
	if err != nil {
		return nil, err
	}
	want := filepath.Join(b.root, resultsDir, id+".json")

	// The result may already exist if the helper raced the watcher setup.
	if data, err := os.ReadFile(want); err == nil {
		return data, nil
	}

	timeout := time.After(b.waitLimit)
	for {
		select {
		case event := <-watcher.Events:
			if event.Name != want {
				continue
			}
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Rename) {
				continue
			}
			data, err := os.ReadFile(want)
			if err != nil {
				continue
			}
			return data, nil
		case err := <-watcher.Errors:
			b.logger.Warn("bridge watch error", "error", err)
		case <-timeout:
			b.logger.Warn("bridge result timed out", "op", cmd.Op, "id", id)
			return nil, nil
		}
	}
}
