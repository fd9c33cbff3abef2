// Package platform deals with conda platform tags, the short identifiers of an
// operating system and architecture combination such as linux-64 or osx-arm64.
//
// Installer spec directories carry their target platform as the suffix of their
// name, e.g. radioconda-win-64; [Extract] recovers it.
package platform

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
)

// Platform families recognized at the start of a platform tag.
const (
	Linux   = "linux"
	OSX     = "osx"
	Windows = "win"
)

// ErrUnrecognized is returned when a directory name doesn't end in a platform tag.
var ErrUnrecognized = errors.New("could not identify platform")

var tagre = regexp.MustCompile(`^.*-(?P<platform>(?:` + Linux + `|` + OSX + `|` + Windows + `).*)$`)

// Extract returns the platform tag encoded in the name of an installer spec directory.
// Only the last path element is considered; the tag is everything from the last
// hyphen that is followed by a platform family up to the end of the name.
func Extract(dir string) (string, error) {
	name := filepath.Base(filepath.Clean(dir))

	match := tagre.FindStringSubmatch(name)
	if match == nil {
		return "", fmt.Errorf("%w from directory name: %s", ErrUnrecognized, name)
	}

	return match[tagre.SubexpIndex("platform")], nil
}

// Family returns the platform family of a tag, or an empty string if the tag
// doesn't start with a known family.
func Family(tag string) string {
	for _, family := range []string{Linux, OSX, Windows} {
		if strings.HasPrefix(tag, family) {
			return family
		}
	}
	return ""
}

// IsWindows reports whether the tag belongs to the windows family.
func IsWindows(tag string) bool {
	return strings.HasPrefix(tag, Windows)
}

// Current returns the conda platform tag of the running host.
func Current() string {
	return FromGo(runtime.GOOS, runtime.GOARCH)
}

// FromGo maps a GOOS and GOARCH pair to the matching conda platform tag.
// Combinations conda doesn't know about fall back to GOOS-GOARCH.
func FromGo(goos, goarch string) string {
	family, ok := map[string]string{
		"linux":   Linux,
		"darwin":  OSX,
		"windows": Windows,
	}[goos]
	if !ok {
		return goos + "-" + goarch
	}

	switch goarch {
	case "amd64":
		return family + "-64"
	case "386":
		return family + "-32"
	case "arm64":
		if family == Linux {
			return family + "-aarch64"
		}
		return family + "-arm64"
	case "arm":
		if family == Linux {
			return family + "-armv7l"
		}
	case "ppc64le", "s390x":
		if family == Linux {
			return family + "-" + goarch
		}
	}

	return goos + "-" + goarch
}
