package toolchain

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestExpand(t *testing.T) {
	tests := []struct {
		name    string
		command string
		vars    map[string]string
		want    string
	}{
		{
			name:    "version placeholder",
			command: "release publish --version {{version}}",
			vars:    map[string]string{"version": "1.2.4"},
			want:    "release publish --version 1.2.4",
		},
		{
			name:    "multiple placeholders",
			command: "build {{branch}} {{version}}",
			vars:    map[string]string{"branch": "main", "version": "0.1.0"},
			want:    "build main 0.1.0",
		},
		{
			name:    "no placeholders",
			command: "make test",
			vars:    map[string]string{"version": "1.0.0"},
			want:    "make test",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Expand(tt.command, tt.vars)
			if got != tt.want {
				t.Errorf("Expand() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestShellRunnerEmptyCommand(t *testing.T) {
	r := NewShellRunner(testLogger())

	_, err := r.Run(context.Background(), t.TempDir(), "   ")
	if !errors.Is(err, ErrEmptyCommand) {
		t.Errorf("expected ErrEmptyCommand, got %v", err)
	}
}

func TestShellRunnerBadQuoting(t *testing.T) {
	r := NewShellRunner(testLogger())

	_, err := r.Run(context.Background(), t.TempDir(), `echo "unterminated`)
	if err == nil {
		t.Fatal("expected tokenize error")
	}
}

func TestShellRunnerCapturesStdout(t *testing.T) {
	r := NewShellRunner(testLogger())

	result, err := r.Run(context.Background(), t.TempDir(), "sh -c 'echo hello'")
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if strings.TrimSpace(result.Stdout) != "hello" {
		t.Errorf("stdout = %q, want %q", result.Stdout, "hello")
	}
}

func TestShellRunnerExitCode(t *testing.T) {
	r := NewShellRunner(testLogger())

	result, err := r.Run(context.Background(), t.TempDir(), "sh -c 'echo diag >&2; exit 3'")
	if err == nil {
		t.Fatal("expected error for non-zero exit")
	}

	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("expected *CommandError, got %T", err)
	}
	if cmdErr.ExitCode != 3 {
		t.Errorf("exit code = %d, want 3", cmdErr.ExitCode)
	}

	// Вывод сохраняется и при провале
	if strings.TrimSpace(result.Stderr) != "diag" {
		t.Errorf("stderr = %q, want %q", result.Stderr, "diag")
	}
}

func TestShellRunnerContextCancel(t *testing.T) {
	r := NewShellRunner(testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Run(ctx, t.TempDir(), "sh -c 'sleep 10'")
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
