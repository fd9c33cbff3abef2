package binary

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/aexvir/radioconda/harness"
	"github.com/aexvir/radioconda/platform"
)

// SkipVersionCheck disables checking the version of an installed binary,
// forcing a reinstall unless the version is latest.
const SkipVersionCheck = ""

// Latest requests whatever version the origin serves by default.
const Latest = "latest"

type Binary struct {
	version    string
	versioncmd string

	origin   Origin
	template Template
}

func New(command, version string, origin Origin, options ...Option) (*Binary, error) {
	if version == "" {
		return nil, fmt.Errorf("version must be set")
	}

	bin := Binary{
		version: version,
		origin:  origin,
		template: Template{
			GOOS:     runtime.GOOS,
			GOARCH:   runtime.GOARCH,
			Platform: platform.Current(),

			Directory: filepath.FromSlash("./bin"),
			Name:      command,
			Version:   version,
		},
		versioncmd: "%s --version",
	}

	if runtime.GOOS == "windows" {
		bin.template.Extension = ".exe"
	}

	for _, opt := range options {
		opt(&bin)
	}

	bin.template.Cmd = filepath.Join(bin.template.Directory, command+bin.template.Extension)

	return &bin, nil
}

// Name of the binary.
func (b *Binary) Name() string {
	return b.template.Name
}

// BinPath is the path the binary gets installed to.
func (b *Binary) BinPath() string {
	return b.template.Cmd
}

// Ensure installs the binary unless the expected version is already present.
func (b *Binary) Ensure() error {
	if b.isInstalled() && b.isExpectedVersion() {
		return nil
	}
	return b.Install()
}

func (b *Binary) Install() error {
	harness.LogStep(fmt.Sprintf("installing %s %s for %s", b.template.Name, b.version, b.template.Platform))
	if err := b.origin.Install(b.template); err != nil {
		return err
	}

	if !b.isInstalled() {
		return fmt.Errorf("%s not found at %s after installation", b.template.Name, b.template.Cmd)
	}

	return nil
}

// isInstalled returns true if the binary is installed.
func (b *Binary) isInstalled() bool {
	_, err := os.Stat(b.template.Cmd)
	return err == nil
}

// isExpectedVersion returns true if binary version matches the expected version
// or latest version was requested. For the 'latest' use-case, we can't really
// check the binary version so we just return true.
func (b *Binary) isExpectedVersion() bool {
	if b.version == Latest {
		return true
	}

	if b.versioncmd == SkipVersionCheck {
		return false
	}

	semver := strings.TrimPrefix(b.version, "v")
	args := strings.Fields(fmt.Sprintf(b.versioncmd, b.template.Cmd))

	harness.LogDetail(fmt.Sprintf("running %v looking for %s", args, semver))
	out, err := exec.Command(args[0], args[1:]...).CombinedOutput()
	if err != nil {
		return false
	}

	return bytes.Contains(out, []byte(semver))
}
