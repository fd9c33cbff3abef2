// Package conda talks to a conda compatible package manager (conda, mamba or
// micromamba) to solve environments for arbitrary platforms.
package conda

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/aexvir/radioconda/binary"
	"github.com/aexvir/radioconda/harness"
)

// MicromambaURL is where micromamba gets provisioned from when no package manager is found.
const MicromambaURL = "https://micro.mamba.pm/api/micromamba/{{.Platform}}/{{.Version}}"

// ErrNoExecutable is returned when no package manager can be found or provisioned.
var ErrNoExecutable = errors.New("no conda executable available")

// candidates, in order of preference
var candidates = []string{"mamba", "micromamba", "conda"}

// Locator finds the package manager to solve environments with.
type Locator struct {
	// Explicit is a user supplied executable; when set nothing else is tried.
	Explicit string
	// MicromambaURL overrides where micromamba is provisioned from.
	// Urls that don't point at an archive are downloaded as a plain binary.
	MicromambaURL string
	// MicromambaVersion to provision; latest by default.
	MicromambaVersion string
	// BinDir is where micromamba is provisioned into; ./bin by default.
	BinDir string

	lookpath func(file string) (string, error)
}

// Executable returns the path of the package manager to use.
func (l *Locator) Executable(_ context.Context) (string, error) {
	lookpath := l.lookpath
	if lookpath == nil {
		lookpath = exec.LookPath
	}

	if l.Explicit != "" {
		path, err := lookpath(l.Explicit)
		if err != nil {
			return "", fmt.Errorf("%w: %s: %w", ErrNoExecutable, l.Explicit, err)
		}
		return path, nil
	}

	for _, candidate := range candidates {
		if path, err := lookpath(candidate); err == nil {
			harness.LogDetail(fmt.Sprintf("using %s", path))
			return path, nil
		}
	}

	harness.LogDetail(fmt.Sprintf("none of %s found, provisioning micromamba", strings.Join(candidates, ", ")))

	micromamba, err := l.micromamba()
	if err != nil {
		return "", err
	}

	if err := micromamba.Ensure(); err != nil {
		return "", fmt.Errorf("%w: failed to provision micromamba: %w", ErrNoExecutable, err)
	}

	return micromamba.BinPath(), nil
}

func (l *Locator) micromamba() (*binary.Binary, error) {
	url := l.MicromambaURL
	if url == "" {
		url = MicromambaURL
	}

	version := l.MicromambaVersion
	if version == "" {
		version = binary.Latest
	}

	var opts []binary.Option
	if l.BinDir != "" {
		opts = append(opts, binary.WithDirectory(l.BinDir))
	}

	return binary.New("micromamba", version, origin(url), opts...)
}

// origin picks how to obtain micromamba based on the shape of the url.
// The micromamba api serves tar.bz2 archives without an extension in the url.
func origin(url string) binary.Origin {
	if url != MicromambaURL && !isArchive(url) {
		return binary.RemoteBinaryDownload(url)
	}

	return binary.RemoteArchiveDownload(
		url,
		map[string]string{
			"bin/micromamba":             "{{.Name}}{{.Extension}}",
			"Library/bin/micromamba.exe": "{{.Name}}{{.Extension}}",
		},
	)
}

func isArchive(url string) bool {
	for _, ext := range []string{".tar.bz2", ".tar.gz", ".tgz", ".zip"} {
		if strings.HasSuffix(url, ext) {
			return true
		}
	}
	return strings.Contains(url, "/api/micromamba/")
}
