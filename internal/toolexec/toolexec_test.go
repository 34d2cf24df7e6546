package toolexec

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestExecRun(t *testing.T) {
	requireShell(t)
	ctx := context.Background()

	t.Run("captures streams separately", func(t *testing.T) {
		r := &Exec{}
		res, err := r.Run(ctx, Invocation{Name: "sh", Args: []string{"-c", "echo out; echo err >&2"}})
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if !res.Success() {
			t.Errorf("ExitCode = %d, want 0", res.ExitCode)
		}
		if strings.TrimSpace(res.Stdout) != "out" {
			t.Errorf("Stdout = %q, want out", res.Stdout)
		}
		if strings.TrimSpace(res.Stderr) != "err" {
			t.Errorf("Stderr = %q, want err", res.Stderr)
		}
	})

	t.Run("non-zero exit is a result", func(t *testing.T) {
		r := &Exec{}
		res, err := r.Run(ctx, Invocation{Name: "sh", Args: []string{"-c", "echo failing; exit 3"}})
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if res.ExitCode != 3 {
			t.Errorf("ExitCode = %d, want 3", res.ExitCode)
		}
		if res.Success() {
			t.Error("Success() = true, want false")
		}
	})

	t.Run("runs in dir", func(t *testing.T) {
		dir := t.TempDir()
		r := &Exec{}
		res, err := r.Run(ctx, Invocation{Name: "pwd", Dir: dir})
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if !strings.HasSuffix(strings.TrimSpace(res.Stdout), dir[strings.LastIndex(dir, "/"):]) {
			t.Errorf("Stdout = %q, want suffix of %q", res.Stdout, dir)
		}
	})

	t.Run("missing binary is a start error", func(t *testing.T) {
		r := &Exec{}
		_, err := r.Run(ctx, Invocation{Name: "definitely-not-a-real-binary-xyz"})
		var startErr *StartError
		if !errors.As(err, &startErr) {
			t.Fatalf("Run() error = %v, want *StartError", err)
		}
		if startErr.Invocation.Name != "definitely-not-a-real-binary-xyz" {
			t.Errorf("Invocation.Name = %q", startErr.Invocation.Name)
		}
	})

	t.Run("timeout is a start error", func(t *testing.T) {
		r := &Exec{Timeout: 50 * time.Millisecond}
		_, err := r.Run(ctx, Invocation{Name: "sh", Args: []string{"-c", "sleep 5"}})
		var startErr *StartError
		if !errors.As(err, &startErr) {
			t.Fatalf("Run() error = %v, want *StartError", err)
		}
		if !strings.Contains(startErr.Error(), "timed out") {
			t.Errorf("Error() = %q, want timed out", startErr.Error())
		}
	})
}

func TestInvocationString(t *testing.T) {
	inv := Invocation{Name: "git", Args: []string{"add", "--", "a.py"}}
	if got := inv.String(); got != "git add -- a.py" {
		t.Errorf("String() = %q", got)
	}
	if got := (Invocation{Name: "pytest"}).String(); got != "pytest" {
		t.Errorf("String() = %q", got)
	}
}
