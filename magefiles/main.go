//go:build mage

package main

import (
	"context"
	"os"
	"time"

	"github.com/magefile/mage/mg"

	"github.com/aexvir/radioconda/commons"
	"github.com/aexvir/radioconda/conda"
	"github.com/aexvir/radioconda/harness"
	"github.com/aexvir/radioconda/installer"
)

var h = harness.New(
	harness.WithPreExecFunc(
		func(ctx context.Context) error { // ensure go mod download is run before any task
			return harness.Run(ctx, "go", harness.WithArgs("mod", "download"))
		},
	),
)

var installers = commons.Installers{
	Distname:  getenv("DISTNAME", "radioconda"),
	SpecsDir:  "installer_specs",
	OutputDir: "dist",
	Platform:  os.Getenv("PLATFORM"),
}

type Installer mg.Namespace

// lock the environment files and render the installer specs
func (Installer) Rerender(ctx context.Context) error {
	company := getenv("GITHUB_SERVER_URL", "https://github.com") + "/" + getenv("GITHUB_REPOSITORY", "ryanvolz/radioconda")

	return h.Execute(
		ctx,
		installers.Rerender(
			time.Now().Format("2006.01.02"),
			company,
			&conda.Locator{Explicit: os.Getenv("CONDA_EXE")},
		),
	)
}

// build the installers for the current platform using constructor
func (Installer) Build(ctx context.Context) error {
	return h.Execute(
		ctx,
		installers.Build(installer.WithMinimumVersion(os.Getenv("CONSTRUCTOR_MIN_VERSION"))),
	)
}

// format codebase using gofmt
func Format(ctx context.Context) error {
	return h.Execute(ctx, commons.GoFmt())
}

// lint the code using go mod tidy and go vet
func Lint(ctx context.Context) error {
	return h.Execute(
		ctx,
		commons.GoModTidy(),
		commons.GoVet(),
	)
}

// run go mod tidy
func Tidy(ctx context.Context) error {
	return h.Execute(ctx, commons.GoModTidy())
}

// run unit tests
func Test(ctx context.Context) error {
	var opts []commons.TestOpt
	if commons.IsCIEnv() {
		opts = append(opts, commons.WithCoverProfile("coverage.out"))
	}

	return h.Execute(ctx, commons.GoTest(opts...))
}

func getenv(name, fallback string) string {
	if value, ok := os.LookupEnv(name); ok {
		return value
	}
	return fallback
}
