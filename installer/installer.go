// Package installer drives a single constructor build for one installer spec directory.
//
// The build is a linear sequence: identify the platform from the spec directory name,
// customize the NSIS template for windows targets, make sure the output directory
// exists and run constructor. Errors are either fatal, returned as they are, or a
// [ToolError] when constructor itself ran and failed.
package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/aexvir/radioconda/constructor"
	"github.com/aexvir/radioconda/harness"
	"github.com/aexvir/radioconda/platform"
)

// Patcher customizes the spec directory of windows builds before constructor runs.
type Patcher interface {
	Patch(ctx context.Context, specdir string) error
}

// Config holds the inputs of a build.
type Config struct {
	// SpecDir is the installer spec directory; its name must end in a platform tag.
	SpecDir string
	// OutputDir is where constructor places the installers; created if missing.
	OutputDir string
	// ConstructorArgs are forwarded to constructor after the computed arguments.
	ConstructorArgs []string
}

// ToolError reports that constructor ran but exited with a non-zero status.
type ToolError struct {
	Tool   string
	Status int
	err    error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s exited with status %d", e.Tool, e.Status)
}

func (e *ToolError) Unwrap() error { return e.err }

// ExitCode is the exit code the process should terminate with.
// The original status is intentionally not propagated.
func (e *ToolError) ExitCode() int { return 1 }

// Builder runs constructor builds.
type Builder struct {
	conf Config

	patcher    Patcher
	executable string
	minversion string
	harness    *harness.Harness
}

// New constructs a builder for the given configuration.
func New(conf Config, patcher Patcher, opts ...Option) *Builder {
	b := Builder{
		conf:       conf,
		patcher:    patcher,
		executable: constructor.Executable,
		harness:    harness.New(harness.WithFailFast()),
	}

	for _, opt := range opts {
		opt(&b)
	}

	return &b
}

// Build runs the full build sequence.
func (b *Builder) Build(ctx context.Context) error {
	tag, err := platform.Extract(b.conf.SpecDir)
	if err != nil {
		return err
	}

	harness.LogStep(fmt.Sprintf("building %s installers from %s", tag, b.conf.SpecDir))

	return b.harness.Execute(
		ctx,
		harness.When(platform.IsWindows(tag), b.patch),
		b.mkdir,
		b.construct(tag),
	)
}

func (b *Builder) patch(ctx context.Context) error {
	if b.patcher == nil {
		return errors.New("windows build requires an nsis template patcher")
	}
	return b.patcher.Patch(ctx, b.conf.SpecDir)
}

func (b *Builder) mkdir(_ context.Context) error {
	if err := os.MkdirAll(b.conf.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", b.conf.OutputDir, err)
	}
	return nil
}

func (b *Builder) construct(tag string) harness.Task {
	return func(ctx context.Context) error {
		constructor.CheckVersion(ctx, b.executable, b.minversion)

		err := harness.Run(
			ctx,
			b.executable,
			harness.WithArgs(constructor.Args(b.conf.SpecDir, tag, b.conf.OutputDir, b.conf.ConstructorArgs...)...),
			harness.WithOKMsg(fmt.Sprintf("installers written to %s", b.conf.OutputDir)),
		)

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &ToolError{Tool: constructor.Executable, Status: exitErr.ExitCode(), err: err}
		}

		return err
	}
}

// Option customizes a [Builder].
type Option func(b *Builder)

// WithExecutable overrides the constructor executable.
func WithExecutable(executable string) Option {
	return func(b *Builder) {
		b.executable = executable
	}
}

// WithMinimumVersion enables a warning when constructor is older than version.
func WithMinimumVersion(version string) Option {
	return func(b *Builder) {
		b.minversion = version
	}
}
