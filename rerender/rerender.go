// Package rerender turns the distribution environment files into locked
// installer spec directories, one per platform, ready to be built by constructor.
package rerender

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/aexvir/radioconda/conda"
	"github.com/aexvir/radioconda/harness"
	"github.com/aexvir/radioconda/platform"
)

// Solver resolves an environment specification into the exact packages to install.
type Solver interface {
	Solve(ctx context.Context, spec conda.Spec) ([]conda.Package, error)
}

// Config holds the inputs of a rerender.
type Config struct {
	EnvironmentFile          string
	InstallerEnvironmentFile string
	Version                  string
	Company                  string
	LicenseFile              string
	OutputDir                string
}

// Result describes what was rendered for a single platform.
type Result struct {
	Platform        string
	Locked          conda.Spec
	LockedInstaller conda.Spec
	SpecDir         string
}

// Renderer renders installer specs for every platform of an environment.
type Renderer struct {
	conf    Config
	solver  Solver
	harness *harness.Harness
}

// New creates a renderer using solver to lock environments.
func New(conf Config, solver Solver) *Renderer {
	return &Renderer{
		conf:    conf,
		solver:  solver,
		harness: harness.New(harness.WithFailFast()),
	}
}

// Render removes and recreates the output directory, then renders every
// platform listed in the environment file, stopping at the first failure.
func (r *Renderer) Render(ctx context.Context) ([]Result, error) {
	env, err := LoadEnvironment(r.conf.EnvironmentFile, "")
	if err != nil {
		return nil, err
	}
	if env.Name == "" {
		return nil, fmt.Errorf("environment file %s has no name", r.conf.EnvironmentFile)
	}
	if len(env.Platforms) == 0 {
		return nil, fmt.Errorf("environment file %s lists no platforms", r.conf.EnvironmentFile)
	}

	if _, err := os.Stat(r.conf.LicenseFile); err != nil {
		return nil, fmt.Errorf("cannot find license file: %s", r.conf.LicenseFile)
	}

	if err := os.RemoveAll(r.conf.OutputDir); err != nil {
		return nil, fmt.Errorf("failed to clean output directory: %w", err)
	}
	if err := os.MkdirAll(r.conf.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	results := make([]Result, 0, len(env.Platforms))
	tasks := make([]harness.Task, 0, len(env.Platforms))
	for _, tag := range env.Platforms {
		tasks = append(tasks, func(ctx context.Context) error {
			res, err := r.renderPlatform(ctx, env.Name, tag)
			if err != nil {
				return fmt.Errorf("%s-%s: %w", env.Name, tag, err)
			}
			results = append(results, *res)
			return nil
		})
	}

	if err := r.harness.Execute(ctx, tasks...); err != nil {
		return results, err
	}

	return results, nil
}

func (r *Renderer) renderPlatform(ctx context.Context, name, tag string) (*Result, error) {
	harness.LogStep(fmt.Sprintf("rendering %s-%s", name, tag))

	env, err := LoadEnvironment(r.conf.EnvironmentFile, tag)
	if err != nil {
		return nil, err
	}
	spec, err := env.Spec(tag)
	if err != nil {
		return nil, err
	}

	packages, err := r.solver.Solve(ctx, spec)
	if err != nil {
		return nil, err
	}
	locked := lockedSpec(spec.Channels, tag, packages)
	harness.LogDetail(fmt.Sprintf("locked %d packages", len(locked.Specs)))

	base := filepath.Join(r.conf.OutputDir, fmt.Sprintf("%s-%s", name, tag))

	err = writeYAML(base+".yml", EnvFile{
		Channels:     locked.Channels,
		Dependencies: locked.Specs,
		Name:         name,
		Platform:     tag,
		Version:      r.conf.Version,
	})
	if err != nil {
		return nil, err
	}
	if err := writeLockfile(base+".lock", Lockfile(tag, packages)); err != nil {
		return nil, err
	}

	installer, err := LoadEnvironment(r.conf.InstallerEnvironmentFile, tag)
	if err != nil {
		return nil, err
	}
	extra, err := installer.Spec(tag)
	if err != nil {
		return nil, err
	}

	combined := conda.Spec{
		Specs:    sorted(locked.Specs, extra.Specs),
		Channels: union(locked.Channels, extra.Channels),
		Platform: tag,
	}
	packages, err = r.solver.Solve(ctx, combined)
	if err != nil {
		return nil, err
	}
	lockedInstaller := lockedSpec(combined.Channels, tag, packages)

	keep := make(map[string]bool)
	for _, s := range slices.Concat(spec.Specs, extra.Specs) {
		keep[conda.NameFromSpec(s)] = true
	}
	lockedInstaller.Specs = slices.DeleteFunc(lockedInstaller.Specs, func(s string) bool {
		return !keep[conda.NameFromSpec(s)]
	})

	if err := r.writeSpecDir(base, name, lockedInstaller); err != nil {
		return nil, err
	}
	harness.LogDetail(fmt.Sprintf("wrote %s", base))

	return &Result{
		Platform:        tag,
		Locked:          locked,
		LockedInstaller: lockedInstaller,
		SpecDir:         base,
	}, nil
}

func (r *Renderer) writeSpecDir(dir, name string, spec conda.Spec) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create spec directory: %w", err)
	}

	if err := copyfile(r.conf.LicenseFile, filepath.Join(dir, "LICENSE")); err != nil {
		return err
	}

	script, content := postinstall(name, spec.Platform)
	if err := os.WriteFile(filepath.Join(dir, script), []byte(content), 0o755); err != nil {
		return fmt.Errorf("failed to write %s: %w", script, err)
	}

	return writeYAML(filepath.Join(dir, "construct.yaml"), Construct{
		Channels:              spec.Channels,
		Company:               r.conf.Company,
		InitializeByDefault:   !platform.IsWindows(spec.Platform),
		InstallerType:         "all",
		KeepPkgs:              true,
		LicenseFile:           "LICENSE",
		Name:                  name,
		PostInstall:           script,
		RegisterPythonDefault: false,
		Specs:                 spec.Specs,
		Version:               r.conf.Version,
		WriteCondarc:          true,
	})
}

// lockedSpec pins every solved package to its exact version and build.
func lockedSpec(channels []string, tag string, packages []conda.Package) conda.Spec {
	specs := make([]string, 0, len(packages))
	for _, pkg := range packages {
		specs = append(specs, pkg.Spec())
	}
	slices.Sort(specs)

	return conda.Spec{
		Specs:    specs,
		Channels: channels,
		Platform: tag,
	}
}

func sorted(lists ...[]string) []string {
	out := slices.Concat(lists...)
	slices.Sort(out)
	return out
}

func union(lists ...[]string) []string {
	return slices.Compact(sorted(lists...))
}
