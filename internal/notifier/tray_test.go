package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	ps "github.com/mitchellh/go-ps"

	"github.com/julianstephens/ropeline/internal/constants"
	"github.com/julianstephens/ropeline/internal/models"
)

type mockProcess struct {
	pid        int
	executable string
}

func (m *mockProcess) Pid() int           { return m.pid }
func (m *mockProcess) PPid() int          { return 0 }
func (m *mockProcess) Executable() string { return m.executable }

func stubConfigDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	old := userConfigDirFunc
	userConfigDirFunc = func() (string, error) { return dir, nil }
	t.Cleanup(func() { userConfigDirFunc = old })
	return dir
}

func stubProcess(t *testing.T, executable string) {
	t.Helper()
	old := findProcessFunc
	findProcessFunc = func(pid int) (ps.Process, error) {
		if executable == "" {
			return nil, nil
		}
		return &mockProcess{pid: pid, executable: executable}, nil
	}
	t.Cleanup(func() { findProcessFunc = old })
}

func TestTrayConfigDir(t *testing.T) {
	base := stubConfigDir(t)

	expected := filepath.Join(base, constants.TrayAppIdentifier)
	dir, err := trayConfigDir()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dir != expected {
		t.Errorf("expected %s, got %s", expected, dir)
	}

	if err := os.MkdirAll(expected, 0755); err != nil {
		t.Fatal(err)
	}
	customDir := "/custom/ropeline/dir"
	settings := fmt.Sprintf(`{"settings": {"lockfile_dir": "%s"}}`, customDir)
	if err := os.WriteFile(filepath.Join(expected, "settings.json"), []byte(settings), 0644); err != nil {
		t.Fatal(err)
	}

	dir, err = trayConfigDir()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dir != customDir {
		t.Errorf("expected %s, got %s", customDir, dir)
	}
}

func TestReadTrayLock(t *testing.T) {
	tests := []struct {
		name       string
		lockfile   string // empty means no lockfile
		executable string
		wantErr    string
	}{
		{name: "missing lockfile", wantErr: "not running"},
		{name: "two part format", lockfile: "8080|12345", wantErr: "malformed"},
		{name: "garbage", lockfile: "invalid", wantErr: "malformed"},
		{name: "empty secret", lockfile: "8080|12345|", wantErr: "secret"},
		{name: "empty port", lockfile: "|12345|s3cret", wantErr: "port"},
		{name: "port out of range", lockfile: "99999|12345|s3cret", wantErr: "outside valid range"},
		{name: "bad pid", lockfile: "8080|abc|s3cret", wantErr: "process ID"},
		{name: "process gone", lockfile: "8080|12345|s3cret", wantErr: "not running"},
		{name: "wrong executable", lockfile: "8080|12345|s3cret", executable: "other-app", wantErr: "not ropeline-tray"},
		{name: "padded fields", lockfile: " 8080 | 12345 | s3cret \n", executable: "ropeline-tray"},
		{name: "ok", lockfile: "8080|12345|s3cret", executable: "ropeline-tray"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stubProcess(t, tt.executable)
			path := filepath.Join(t.TempDir(), constants.NotifierLockfileName)
			if tt.lockfile != "" {
				if err := os.WriteFile(path, []byte(tt.lockfile), 0644); err != nil {
					t.Fatal(err)
				}
			}

			lock, err := readTrayLock(path)
			if err == nil {
				err = lock.verify()
			}
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			want := trayLock{Port: 8080, PID: 12345, Secret: "s3cret"}
			if lock != want {
				t.Errorf("readTrayLock() = %+v, want %+v", lock, want)
			}
		})
	}
}

func newTrayServer(t *testing.T, hits *int32) (*httptest.Server, int) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		if r.Header.Get("X-Ropeline-Secret") != "test-secret" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte("Unauthorized"))
			return
		}
		var payload WebhookPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if payload.Text == "fail" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	port, err := strconv.Atoi(server.URL[strings.LastIndex(server.URL, ":")+1:])
	if err != nil {
		t.Fatal(err)
	}
	return server, port
}

func TestTraySend(t *testing.T) {
	var hits int32
	_, port := newTrayServer(t, &hits)
	tray := NewTray()
	ctx := context.Background()

	good := trayLock{Port: port, PID: 1, Secret: "test-secret"}
	bad := trayLock{Port: port, PID: 1, Secret: "wrong-secret"}

	if err := tray.send(ctx, good, WebhookPayload{Text: "hello"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := tray.send(ctx, bad, WebhookPayload{Text: "hello"}); err == nil || !strings.Contains(err.Error(), "Unauthorized") {
		t.Errorf("expected unauthorized error, got %v", err)
	}
	if err := tray.send(ctx, good, WebhookPayload{Text: "fail"}); err == nil {
		t.Error("expected error for server failure")
	}
}

func TestTrayNotifyRetries(t *testing.T) {
	var hits int32
	_, port := newTrayServer(t, &hits)
	base := stubConfigDir(t)
	stubProcess(t, "ropeline-tray")

	lockDir := filepath.Join(base, constants.TrayAppIdentifier)
	if err := os.MkdirAll(lockDir, 0755); err != nil {
		t.Fatal(err)
	}
	lock := strconv.Itoa(port) + "|4242|test-secret"
	if err := os.WriteFile(filepath.Join(lockDir, constants.NotifierLockfileName), []byte(lock), 0644); err != nil {
		t.Fatal(err)
	}

	tray := NewTray()
	tray.retryDelay = 0

	if err := tray.Notify(context.Background(), "fail"); err == nil {
		t.Fatal("expected error after retries")
	}
	if got := atomic.LoadInt32(&hits); got != int32(constants.NotifyMaxRetries) {
		t.Errorf("expected %d attempts, got %d", constants.NotifyMaxRetries, got)
	}

	atomic.StoreInt32(&hits, 0)
	habit := models.Habit{Name: "Read"}
	record := models.CompletionRecord{StreakAtCompletion: 3, PointsAwarded: 10}
	if err := tray.CompletionAccepted(context.Background(), habit, record); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Errorf("expected 1 attempt, got %d", got)
	}
}

func TestTrayNotRunning(t *testing.T) {
	stubConfigDir(t)
	err := NewTray().Notify(context.Background(), "hello")
	if !errors.Is(err, ErrTrayNotRunning) {
		t.Errorf("expected ErrTrayNotRunning, got %v", err)
	}
}
