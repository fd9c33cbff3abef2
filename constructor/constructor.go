// Package constructor wraps the command line contract of conda constructor, the
// external tool that turns an installer spec directory into installer packages.
package constructor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/aexvir/radioconda/harness"
)

// Executable is the name constructor is installed as.
const Executable = "constructor"

const locatescript = "import constructor, os; print(os.path.dirname(constructor.__file__))"

var versionre = regexp.MustCompile(`\d+\.\d+(\.\d+)?`)

// Args assembles the constructor arguments for building the installers of a spec
// directory for a single platform. Passthrough arguments are appended verbatim.
func Args(specdir, tag, outdir string, passthrough ...string) []string {
	args := []string{specdir, "--platform", tag, "--output-dir", outdir}
	return append(args, passthrough...)
}

// PackageDir returns the directory of the constructor python package, as seen by
// the given python interpreter.
func PackageDir(ctx context.Context, python string) (string, error) {
	out, err := harness.Output(
		ctx,
		python,
		harness.WithArgs("-c", locatescript),
		// keep the working directory off sys.path
		harness.WithDir(os.TempDir()),
	)
	if err != nil {
		return "", fmt.Errorf("failed to locate constructor package using %s: %w", python, err)
	}

	dir := strings.TrimSpace(string(out))
	if dir == "" {
		return "", errors.New("failed to locate constructor package: empty path reported")
	}

	return dir, nil
}

// NSISTemplate returns the path of the NSIS installer template shipped with constructor.
func NSISTemplate(pkgdir string) string {
	return filepath.Join(pkgdir, "nsis", "main.nsi.tmpl")
}

// Version returns the version reported by `constructor --version`.
func Version(ctx context.Context, executable string) (string, error) {
	out, err := harness.Output(ctx, executable, harness.WithArgs("--version"))
	if err != nil {
		return "", fmt.Errorf("failed to query %s version: %w", executable, err)
	}

	version := versionre.FindString(string(out))
	if version == "" {
		return "", fmt.Errorf("no version found in %q", strings.TrimSpace(string(out)))
	}

	return version, nil
}

// CheckVersion warns when the installed constructor is older than minimum.
// It never fails the build; an empty minimum disables the check.
func CheckVersion(ctx context.Context, executable, minimum string) {
	if minimum == "" {
		return
	}

	version, err := Version(ctx, executable)
	if err != nil {
		harness.LogWarning(fmt.Sprintf("unable to verify constructor version: %s", err))
		return
	}

	if !Satisfies(version, minimum) {
		harness.LogWarning(fmt.Sprintf("constructor %s is older than the expected %s", version, minimum))
		return
	}

	harness.LogDetail(fmt.Sprintf("constructor %s", version))
}

// Satisfies reports whether version is at least minimum.
// Both are plain dotted versions, with or without a leading v.
func Satisfies(version, minimum string) bool {
	return semver.Compare(canonical(version), canonical(minimum)) >= 0
}

func canonical(version string) string {
	if !strings.HasPrefix(version, "v") {
		version = "v" + version
	}
	return semver.Canonical(version)
}
