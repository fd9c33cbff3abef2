package conda

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aexvir/radioconda/harness"
	"github.com/aexvir/radioconda/platform"
)

// Spec is an environment specification for a single platform.
type Spec struct {
	Specs    []string
	Channels []string
	Platform string
}

// Solver solves environment specifications with a conda compatible executable.
type Solver struct {
	Executable string
}

type transaction struct {
	Actions struct {
		Link  []Package `json:"LINK"`
		Fetch []Package `json:"FETCH"`
	} `json:"actions"`
	Success *bool  `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Solve resolves the specification into the exact set of packages that would be
// installed, without installing anything.
func (s *Solver) Solve(ctx context.Context, spec Spec) ([]Package, error) {
	prefix, err := os.MkdirTemp("", "radioconda-solve-")
	if err != nil {
		return nil, fmt.Errorf("failed to create solve prefix: %w", err)
	}
	defer os.RemoveAll(prefix)

	harness.LogDetail(fmt.Sprintf("solving %d specs for %s", len(spec.Specs), spec.Platform))

	var stderr bytes.Buffer
	out, err := harness.Output(
		ctx,
		s.Executable,
		harness.WithArgs(SolveArgs(filepath.Join(prefix, "prefix"), spec)...),
		harness.WithEnv(Overrides(spec.Platform)...),
		harness.WithStdErr(&stderr),
	)
	if err != nil && len(out) == 0 {
		return nil, fmt.Errorf("failed to solve environment for %s: %w: %s", spec.Platform, err, strings.TrimSpace(stderr.String()))
	}

	// conda reports solver failures as json on stdout with a non-zero exit code
	packages, perr := parse(out)
	if perr != nil {
		return nil, fmt.Errorf("failed to solve environment for %s: %w", spec.Platform, perr)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to solve environment for %s: %w", spec.Platform, err)
	}

	return packages, nil
}

// SolveArgs returns the dry-run create arguments that solve spec into prefix.
func SolveArgs(prefix string, spec Spec) []string {
	args := []string{"create", "--prefix", prefix, "--dry-run", "--json"}

	if flags := os.Getenv("CONDA_FLAGS"); flags != "" {
		args = append(args, strings.Fields(flags)...)
	}

	if len(spec.Channels) > 0 {
		args = append(args, "--override-channels")
	}
	for _, channel := range spec.Channels {
		args = append(args, "--channel", channel)
		if channel == "defaults" && platform.IsWindows(spec.Platform) {
			args = append(args, "--channel", "msys2")
		}
	}

	return append(args, spec.Specs...)
}

// Overrides returns the environment that makes the solver target the given
// platform, with virtual packages pinned to the oldest systems installers support.
func Overrides(tag string) []string {
	env := []string{"CONDA_SUBDIR=" + tag}

	switch {
	case platform.Family(tag) == platform.Linux:
		env = append(env, "CONDA_OVERRIDE_GLIBC=2.17")
	case tag == "osx-arm64":
		env = append(env, "CONDA_OVERRIDE_OSX=11.0")
	case platform.Family(tag) == platform.OSX:
		env = append(env, "CONDA_OVERRIDE_OSX=10.15")
	}

	return env
}

func parse(out []byte) ([]Package, error) {
	var tx transaction
	if err := json.Unmarshal(out, &tx); err != nil {
		return nil, fmt.Errorf("failed to parse solver output: %w", err)
	}

	if (tx.Success != nil && !*tx.Success) || tx.Error != "" {
		msg := tx.Message
		if msg == "" {
			msg = tx.Error
		}
		return nil, fmt.Errorf("solver error: %s", strings.TrimSpace(msg))
	}

	fetched := make(map[string]Package, len(tx.Actions.Fetch))
	for _, pkg := range tx.Actions.Fetch {
		fetched[pkg.Name] = pkg
	}

	packages := make([]Package, 0, len(tx.Actions.Link))
	for _, pkg := range tx.Actions.Link {
		if fetch, ok := fetched[pkg.Name]; ok {
			if pkg.URL == "" {
				pkg.URL = fetch.URL
			}
			if pkg.MD5 == "" {
				pkg.MD5 = fetch.MD5
			}
		}
		packages = append(packages, pkg)
	}

	return packages, nil
}
