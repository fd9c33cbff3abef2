package harness

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
)

// TaskRunner holds the metadata for a specific command.
type TaskRunner struct {
	Executable string
	Arguments  []string

	cmd    *exec.Cmd
	okmsg  string
	errmsg string
	quiet  bool
}

// Cmd builds a command runner for a specific Executable.
// Relative executable paths are resolved against the current directory before any
// [WithDir] option is applied, and bare names are looked up on PATH when possible.
func Cmd(ctx context.Context, executable string, opts ...RunnerOpt) (*TaskRunner, error) {
	resolved, err := resolve(executable)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, resolved)

	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin

	r := TaskRunner{
		Executable: resolved,
		cmd:        cmd,
	}

	for _, opt := range opts {
		if err := opt(&r); err != nil {
			return nil, err
		}
	}

	cmd.Args = append([]string{resolved}, r.Arguments...)

	return &r, nil
}

// Exec a command returning its error and pretty printing the ok and error messages.
// The returned error wraps the underlying *exec.ExitError when the process ran and
// exited with a non-zero status.
func (r *TaskRunner) Exec() (err error) {
	start := time.Now()
	defer func() {
		if r.quiet {
			return
		}
		elapsed := time.Since(start).Round(time.Millisecond)
		if err != nil {
			color.Red(" ✘ %s\n\n", elapsed)
			return
		}
		color.Green(" ✔ %s\n\n", elapsed)
	}()

	if !r.quiet {
		logcmd(fmt.Sprint(filepath.Base(r.Executable), " ", strings.Join(r.Arguments, " ")))
	}

	if err = r.cmd.Run(); err != nil {
		if !r.quiet && r.errmsg != "" {
			color.Red(r.errmsg)
		}
		return fmt.Errorf("%s: %w", filepath.Base(r.Executable), err)
	}

	if !r.quiet && r.okmsg != "" {
		color.Green(r.okmsg)
	}

	return nil
}

// Run is a helper function to avoid repetition while gracefully handling errors.
func Run(ctx context.Context, program string, opts ...RunnerOpt) error {
	rnr, err := Cmd(ctx, program, opts...)
	if err != nil {
		return err
	}

	return rnr.Exec()
}

// Output runs the program without noise and returns what it wrote to stdout.
// Whatever was written is returned even when the program fails.
func Output(ctx context.Context, program string, opts ...RunnerOpt) ([]byte, error) {
	var out bytes.Buffer

	opts = append([]RunnerOpt{WithoutNoise(), WithStdOut(&out)}, opts...)
	err := Run(ctx, program, opts...)

	return out.Bytes(), err
}

func resolve(executable string) (string, error) {
	if filepath.IsAbs(executable) {
		return executable, nil
	}

	if strings.ContainsRune(executable, '/') || strings.ContainsRune(executable, filepath.Separator) {
		abs, err := filepath.Abs(executable)
		if err != nil {
			return "", fmt.Errorf("failed to resolve path of %s: %w", executable, err)
		}
		return abs, nil
	}

	if path, err := exec.LookPath(executable); err == nil {
		if abs, err := filepath.Abs(path); err == nil {
			return abs, nil
		}
		return path, nil
	}

	// leave it as is; running it will report the lookup failure
	return executable, nil
}

// LogStep prints a highlighted step line.
func LogStep(text string) {
	fmt.Println(
		color.BlueString(" •"),
		color.New(color.FgHiBlack).Sprint(text),
	)
}

// LogDetail prints a detail line nested under the last step.
func LogDetail(text string) {
	fmt.Println(
		color.New(color.FgHiBlack).Sprint("   └"),
		color.New(color.FgHiBlack).Sprint(text),
	)
}

// LogWarning prints a warning line nested under the last step.
func LogWarning(text string) {
	fmt.Println(
		color.YellowString("   ⚠"),
		color.New(color.FgYellow).Sprint(text),
	)
}

// fancy-ish log of a command being executed.
func logcmd(text string) {
	fmt.Println(
		color.MagentaString(" ⌘"),
		color.New(color.Bold).Sprint(text),
	)
}

// RunnerOpt allows customizing the behavior of the command runner.
type RunnerOpt func(r *TaskRunner) error

// WithEnv sets up environment variables for the command, on top of the current environment.
func WithEnv(vars ...string) RunnerOpt {
	return func(r *TaskRunner) error {
		if r.cmd.Env == nil {
			r.cmd.Env = os.Environ()
		}
		for _, vrb := range vars {
			name, _, ok := strings.Cut(vrb, "=")
			if !ok || name == "" {
				return fmt.Errorf("invalid env format; %s doesn't match NAME=value expectation", vrb)
			}
			r.cmd.Env = append(r.cmd.Env, vrb)
		}
		return nil
	}
}

// WithArgs command arguments.
func WithArgs(args ...string) RunnerOpt {
	return func(r *TaskRunner) error {
		r.Arguments = args
		return nil
	}
}

// WithOKMsg sets a message to be printed when the command finishes successfully.
func WithOKMsg(msg string) RunnerOpt {
	return func(r *TaskRunner) error {
		r.okmsg = msg
		return nil
	}
}

// WithErrMsg sets a message to be printed when the command fails.
func WithErrMsg(msg string) RunnerOpt {
	return func(r *TaskRunner) error {
		r.errmsg = msg
		return nil
	}
}

// WithDir sets the directory where the command should be run inside.
func WithDir(dir string) RunnerOpt {
	return func(r *TaskRunner) error {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return fmt.Errorf("failed to resolve dir %s: %w", dir, err)
		}
		r.cmd.Dir = abs
		return nil
	}
}

// WithoutNoise silences all output for the command; useful when handling that on the caller side.
func WithoutNoise() RunnerOpt {
	return func(r *TaskRunner) error {
		r.quiet = true
		r.cmd.Stdout = nil
		r.cmd.Stderr = nil

		return nil
	}
}

// WithStdOut set up stdout writer.
func WithStdOut(w io.Writer) RunnerOpt {
	return func(r *TaskRunner) error {
		r.cmd.Stdout = w
		return nil
	}
}

// WithStdErr set up stderr writer.
func WithStdErr(w io.Writer) RunnerOpt {
	return func(r *TaskRunner) error {
		r.cmd.Stderr = w
		return nil
	}
}
