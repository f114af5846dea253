package toolchain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/kballard/go-shellquote"
)

// Ошибки toolchain.
var (
	ErrEmptyCommand = errors.New("toolchain: empty command")
)

// Result — захваченный вывод команды.
type Result struct {
	Stdout string
	Stderr string
}

// Runner выполняет одну команду в рабочей директории.
// Интерфейс позволяет тестам подставлять фейковую реализацию
// без запуска реальных процессов.
type Runner interface {
	Run(ctx context.Context, dir, command string) (*Result, error)
}

// CommandError — ошибка выполнения команды с кодом выхода.
type CommandError struct {
	Command  string
	ExitCode int
	Err      error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %q failed (exit %d): %v", e.Command, e.ExitCode, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ShellRunner — Runner на os/exec.
type ShellRunner struct {
	logger *slog.Logger

	// Env — дополнительные переменные окружения вида KEY=VALUE,
	// добавляются к окружению процесса.
	Env []string
}

// NewShellRunner создаёт ShellRunner.
func NewShellRunner(logger *slog.Logger) *ShellRunner {
	return &ShellRunner{logger: logger}
}

// Run токенизирует command и запускает процесс в dir.
//
// Ненулевой код выхода — *CommandError; захваченный stdout/stderr
// возвращается и при ошибке, чтобы диагностика стадии сохранилась.
// Отмена ctx убивает процесс (host-imposed timeout = провал стадии).
func (r *ShellRunner) Run(ctx context.Context, dir, command string) (*Result, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return nil, ErrEmptyCommand
	}

	tokens, err := shellquote.Split(command)
	if err != nil {
		return nil, fmt.Errorf("tokenize command %q: %w", command, err)
	}
	if len(tokens) == 0 {
		return nil, ErrEmptyCommand
	}

	cmd := exec.CommandContext(ctx, tokens[0], tokens[1:]...)
	cmd.Dir = dir
	if len(r.Env) > 0 {
		cmd.Env = append(cmd.Environ(), r.Env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.Debug("running command", "command", command, "dir", dir)

	runErr := cmd.Run()
	result := &Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if runErr != nil {
		if ctx.Err() != nil {
			return result, fmt.Errorf("command %q interrupted: %w", command, ctx.Err())
		}

		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return result, &CommandError{
			Command:  command,
			ExitCode: exitCode,
			Err:      runErr,
		}
	}

	return result, nil
}

// Expand подставляет значения в плейсхолдеры {{version}} и {{branch}}
// внутри настроенной команды.
func Expand(command string, vars map[string]string) string {
	for key, value := range vars {
		command = strings.ReplaceAll(command, "{{"+key+"}}", value)
	}
	return command
}
