package binary

import (
	"strings"
	"text/template"
)

// Template contains fields used to resolve specific metadata about the binary.
type Template struct {
	// GOOS is the operating system target (e.g., "linux", "darwin", "windows")
	GOOS string
	// GOARCH is the architecture target (e.g., "amd64", "arm64")
	GOARCH string
	// Platform is the conda platform tag (e.g., "linux-64", "osx-arm64")
	Platform string

	// Directory where the binary is located
	Directory string
	// Name of the binary
	Name string
	// Cmd is the qualified path to the binary
	Cmd string
	// Version requested
	Version string
	// Extension is ".exe" on windows and empty elsewhere.
	Extension string
}

// Resolve executes the provided format string as a template with the Template's fields.
func (t Template) Resolve(format string) (string, error) {
	tmpl, err := template.New("bin").Option("missingkey=error").Parse(format)
	if err != nil {
		return "", err
	}

	var bld strings.Builder
	if err := tmpl.Execute(&bld, t); err != nil {
		return "", err
	}

	return bld.String(), nil
}
