package platform

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

var selectors = map[string][]string{
	"linux-64":      {"linux64", "unix", "linux"},
	"linux-aarch64": {"aarch64", "unix", "linux"},
	"linux-ppc64le": {"ppc64le", "unix", "linux"},
	"osx-64":        {"osx", "osx64", "unix"},
	"osx-arm64":     {"arm64", "osx", "unix"},
	"win-64":        {"win", "win64"},
}

// a selector inside a comment, optionally followed by more text without parentheses
var commentselectorre = regexp.MustCompile(`^(.+?)\s*#.*\[([^\[\]]+)\][^()]*$`)

// a bare selector closing the line
var bareselectorre = regexp.MustCompile(`^(.+?)\s*\[([^\[\]]+)\]$`)

// FilterSelectors applies line selectors to the contents of an environment file.
//
// Lines that are entirely comments are dropped. A line carrying a bracketed selector,
// either in a comment as in `- soapysdr-module-uhd  # [linux] needs libusb` or bare at
// the end as in `- pywin32 [win]`, is kept only when the selector applies to the given
// platform tag, and the selector is removed from it. Every other line is kept untouched.
func FilterSelectors(content, tag string) (string, error) {
	applicable, ok := selectors[tag]
	if !ok {
		return "", fmt.Errorf("no selectors known for platform %s", tag)
	}

	lines := strings.Split(content, "\n")
	kept := make([]string, 0, len(lines))

	for _, line := range lines {
		if strings.HasPrefix(strings.TrimLeft(line, " \t"), "#") {
			continue
		}

		content, selector, ok := splitSelector(line)
		if !ok {
			kept = append(kept, line)
			continue
		}

		if slices.Contains(applicable, selector) {
			kept = append(kept, content)
		}
	}

	return strings.Join(kept, "\n"), nil
}

// splitSelector separates a line from its selector.
// The comment form is tried first, so `- foo[build=x]  # [win]` selects on win.
func splitSelector(line string) (string, string, bool) {
	match := commentselectorre.FindStringSubmatch(line)
	if match == nil {
		match = bareselectorre.FindStringSubmatch(line)
	}
	if match == nil {
		return "", "", false
	}

	return match[1], strings.TrimSpace(match[2]), true
}
