package commons

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/aexvir/radioconda/conda"
	"github.com/aexvir/radioconda/harness"
	"github.com/aexvir/radioconda/installer"
	"github.com/aexvir/radioconda/nsis"
	"github.com/aexvir/radioconda/platform"
	"github.com/aexvir/radioconda/rerender"
)

// Installers configures the installer tasks.
type Installers struct {
	Distname  string
	SpecsDir  string
	OutputDir string
	// Platform selects the spec directory to build; defaults to the host platform.
	Platform string
}

func (i Installers) specdir() string {
	tag := i.Platform
	if tag == "" {
		tag = platform.Current()
	}
	return filepath.Join(i.SpecsDir, fmt.Sprintf("%s-%s", i.Distname, tag))
}

// Rerender locks the distribution environment files and renders the installer specs.
func (i Installers) Rerender(version, company string, locator *conda.Locator) harness.Task {
	return func(ctx context.Context) error {
		exe, err := locator.Executable(ctx)
		if err != nil {
			return err
		}

		_, err = rerender.New(
			rerender.Config{
				EnvironmentFile:          i.Distname + ".yaml",
				InstallerEnvironmentFile: i.Distname + "_installer.yaml",
				Version:                  version,
				Company:                  company,
				LicenseFile:              "LICENSE",
				OutputDir:                i.SpecsDir,
			},
			&conda.Solver{Executable: exe},
		).Render(ctx)

		return err
	}
}

// Build builds the installers of the spec directory for the selected platform.
func (i Installers) Build(opts ...installer.Option) harness.Task {
	return func(ctx context.Context) error {
		return installer.New(
			installer.Config{
				SpecDir:   i.specdir(),
				OutputDir: i.OutputDir,
			},
			&nsis.Patcher{},
			opts...,
		).Build(ctx)
	}
}
