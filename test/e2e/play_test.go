package e2e

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	expect "github.com/Netflix/go-expect"
	"github.com/creack/pty"
)

// buildEmograph builds the emograph binary for testing.
func buildEmograph(t *testing.T) string {
	t.Helper()
	binPath := filepath.Join(t.TempDir(), "emograph")

	rootDir, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	// test/e2e -> module root
	rootDir = filepath.Join(rootDir, "..", "..")

	cmd := exec.Command("go", "build", "-o", binPath, "./cmd/emograph")
	cmd.Dir = rootDir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("build failed: %v\n%s", err, out)
	}
	return binPath
}

func TestE2E_PlayAndPick(t *testing.T) {
	if testing.Short() {
		t.Skip("e2e: builds and drives the binary")
	}
	binPath := buildEmograph(t)

	homeDir := t.TempDir()
	dataDir := filepath.Join(homeDir, "data")
	if err := seedDataDir(dataDir); err != nil {
		t.Fatalf("failed to seed data: %v", err)
	}

	cmd := exec.Command(binPath, "play", "--data-dir", dataDir, "--no-cache", "--paused")
	cmd.Env = append(os.Environ(), "HOME="+homeDir)

	ptmx, err := pty.Start(cmd)
	if err != nil {
		t.Fatalf("failed to start pty: %v", err)
	}
	defer func() {
		_ = ptmx.Close()
		_ = cmd.Process.Kill()
	}()
	if err := pty.Setsize(ptmx, &pty.Winsize{Cols: 120, Rows: 40}); err != nil {
		t.Fatalf("failed to set pty size: %v", err)
	}

	var outputBuf bytes.Buffer
	console, err := expect.NewConsole(
		expect.WithStdin(ptmx),
		expect.WithStdout(&outputBuf),
		expect.WithDefaultTimeout(5*time.Second),
	)
	if err != nil {
		t.Fatalf("failed to create console: %v", err)
	}
	defer console.Close()

	// 1. First dataset of the configured type loads paused
	if _, err := console.ExpectString("fixture_one"); err != nil {
		dumpLogs(t, homeDir)
		t.Fatalf("startup failed: %v\nScreen:\n%s", err, outputBuf.String())
	}
	if _, err := console.ExpectString("paused"); err != nil {
		t.Fatalf("status bar not found: %v\nScreen:\n%s", err, outputBuf.String())
	}

	// 2. Single step merges frame 0
	time.Sleep(300 * time.Millisecond)
	if _, err := console.Send("."); err != nil {
		t.Fatal(err)
	}
	if _, err := console.ExpectString("1/2"); err != nil {
		t.Fatalf("step did not advance: %v\nScreen:\n%s", err, outputBuf.String())
	}

	// 3. Pick the second dataset
	if _, err := console.Send("/"); err != nil {
		t.Fatal(err)
	}
	if _, err := console.ExpectString("esc cancel"); err != nil {
		t.Fatalf("picker did not open: %v\nScreen:\n%s", err, outputBuf.String())
	}
	if _, err := console.Send("two\r"); err != nil {
		t.Fatal(err)
	}
	if _, err := console.ExpectString("-/2"); err != nil {
		t.Fatalf("picked dataset not loaded: %v\nScreen:\n%s", err, outputBuf.String())
	}

	time.Sleep(300 * time.Millisecond)
	if _, err := console.Send("q"); err != nil {
		t.Fatal(err)
	}

	done := make(chan error)
	go func() { done <- cmd.Wait() }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Error("process did not exit after 'q'")
	}
}

func dumpLogs(t *testing.T, homeDir string) {
	t.Helper()
	logs, _ := filepath.Glob(filepath.Join(homeDir, ".emograph", "logs", "*.log"))
	for _, path := range logs {
		if data, err := os.ReadFile(path); err == nil {
			t.Logf("%s:\n%s", path, data)
		}
	}
}
