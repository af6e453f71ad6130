package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/julianstephens/ropeline/internal/constants"
	"github.com/julianstephens/ropeline/internal/logger"
	"github.com/julianstephens/ropeline/internal/models"
)

var (
	userConfigDirFunc = os.UserConfigDir
	findProcessFunc   = ps.FindProcess
)

var trayExecutable = constants.AppName + "-tray"

// ErrTrayNotRunning is returned when no tray app lockfile or process is found
var ErrTrayNotRunning = errors.New(trayExecutable + " is not running")

// Tray posts notifications to a running tray app. The app advertises itself
// through a "port|pid|secret" lockfile in its config directory.
type Tray struct {
	client     *http.Client
	retries    int
	retryDelay time.Duration
}

type WebhookPayload struct {
	Text       string `json:"text"`
	DurationMs uint32 `json:"duration_ms"`
}

func NewTray() *Tray {
	return &Tray{
		client:     &http.Client{Timeout: 5 * time.Second},
		retries:    constants.NotifyMaxRetries,
		retryDelay: constants.NotifyRetryDelay,
	}
}

func (t *Tray) CompletionAccepted(ctx context.Context, habit models.Habit, record models.CompletionRecord) error {
	return t.Notify(ctx, acceptedText(habit, record))
}

// Rejections are shown inline by the caller, not in the tray
func (t *Tray) CompletionRejected(context.Context, string, error) error {
	return nil
}

func (t *Tray) AchievementsUnlocked(ctx context.Context, _ string, unlocked []models.Achievement) error {
	if len(unlocked) == 0 {
		return nil
	}
	return t.Notify(ctx, unlockedText(unlocked))
}

// Notify sends text to the tray app, retrying transient failures
func (t *Tray) Notify(ctx context.Context, text string) error {
	dir, err := trayConfigDir()
	if err != nil {
		return err
	}
	lock, err := readTrayLock(filepath.Join(dir, constants.NotifierLockfileName))
	if err != nil {
		return err
	}
	if err := lock.verify(); err != nil {
		return err
	}

	payload := WebhookPayload{Text: text, DurationMs: constants.NotificationDurationMs}
	attempts := max(t.retries, 1)
	for attempt := 1; ; attempt++ {
		err = t.send(ctx, lock, payload)
		if err == nil || attempt >= attempts {
			return err
		}
		logger.Debug("Tray notification failed, retrying", "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(t.retryDelay):
		}
	}
}

// trayConfigDir is where the tray app keeps its lockfile, unless its
// settings.json names another lockfile_dir.
func trayConfigDir() (string, error) {
	base, err := userConfigDirFunc()
	if err != nil {
		return "", fmt.Errorf("failed to get user config dir: %w", err)
	}
	dir := filepath.Join(base, constants.TrayAppIdentifier)

	data, err := os.ReadFile(filepath.Join(dir, "settings.json"))
	if err != nil {
		return dir, nil
	}
	var settings struct {
		Settings struct {
			LockfileDir string `json:"lockfile_dir"`
		} `json:"settings"`
	}
	if json.Unmarshal(data, &settings) == nil && settings.Settings.LockfileDir != "" {
		return settings.Settings.LockfileDir, nil
	}
	return dir, nil
}

// trayLock is the parsed "port|pid|secret" lockfile
type trayLock struct {
	Port   int
	PID    int
	Secret string
}

func readTrayLock(path string) (trayLock, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return trayLock{}, ErrTrayNotRunning
	}

	fields := strings.Split(strings.TrimSpace(string(content)), "|")
	if len(fields) != 3 {
		return trayLock{}, fmt.Errorf("lockfile is malformed: want port|pid|secret, got %d fields", len(fields))
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	var lock trayLock
	if fields[0] == "" {
		return trayLock{}, errors.New("port in lockfile is empty")
	}
	if lock.Port, err = strconv.Atoi(fields[0]); err != nil {
		return trayLock{}, fmt.Errorf("invalid port %q in lockfile", fields[0])
	}
	if lock.Port < 1 || lock.Port > 65535 {
		return trayLock{}, fmt.Errorf("port %d is outside valid range (1-65535)", lock.Port)
	}
	if lock.PID, err = strconv.Atoi(fields[1]); err != nil {
		return trayLock{}, fmt.Errorf("invalid process ID %q in lockfile", fields[1])
	}
	if lock.Secret = fields[2]; lock.Secret == "" {
		return trayLock{}, errors.New("secret in lockfile is empty")
	}
	return lock, nil
}

// verify checks that the lockfile's pid is a live tray process, so a stale
// lockfile never leaks the secret to whatever now owns the port.
func (l trayLock) verify() error {
	process, err := findProcessFunc(l.PID)
	if err != nil || process == nil {
		return ErrTrayNotRunning
	}
	if exe := process.Executable(); !strings.HasPrefix(exe, trayExecutable) {
		return fmt.Errorf("process %d is %s, not %s", l.PID, exe, trayExecutable)
	}
	return nil
}

func (t *Tray) send(ctx context.Context, lock trayLock, payload WebhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	url := "http://127.0.0.1:" + strconv.Itoa(lock.Port)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Ropeline-Secret", lock.Secret)

	res, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusOK {
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
	return fmt.Errorf("tray rejected notification: %d %s", res.StatusCode, strings.TrimSpace(string(msg)))
}
