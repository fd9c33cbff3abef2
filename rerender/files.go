package rerender

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aexvir/radioconda/conda"
	"github.com/aexvir/radioconda/platform"
)

// EnvFile is the locked environment written next to the installer specs,
// used to build a metapackage of the distribution.
type EnvFile struct {
	Channels     []string `yaml:"channels"`
	Dependencies []string `yaml:"dependencies"`
	Name         string   `yaml:"name,omitempty"`
	Platform     string   `yaml:"platform"`
	Version      string   `yaml:"version,omitempty"`
}

// Construct is the construct.yaml of an installer spec directory.
type Construct struct {
	Channels              []string `yaml:"channels"`
	Company               string   `yaml:"company"`
	InitializeByDefault   bool     `yaml:"initialize_by_default"`
	InstallerType         string   `yaml:"installer_type"`
	KeepPkgs              bool     `yaml:"keep_pkgs"`
	LicenseFile           string   `yaml:"license_file"`
	Name                  string   `yaml:"name"`
	PostInstall           string   `yaml:"post_install"`
	RegisterPythonDefault bool     `yaml:"register_python_default"`
	Specs                 []string `yaml:"specs"`
	Version               string   `yaml:"version"`
	WriteCondarc          bool     `yaml:"write_condarc"`
}

func writeYAML(path string, value any) error {
	var buf bytes.Buffer

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(value); err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	if err := enc.Close(); err != nil {
		return err
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return nil
}

// Lockfile renders an explicit lock file that conda can create an environment from.
// Blank lines are replaced by a bare comment marker.
func Lockfile(tag string, packages []conda.Package) []string {
	lines := []string{
		"# This file may be used to create an environment using:",
		"# $ conda create --name <env> --file <this file>",
		"# platform: " + tag,
		"@EXPLICIT",
	}
	for _, pkg := range packages {
		lines = append(lines, pkg.ExplicitURL())
	}

	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			line = "#"
		}
		lines[i] = line
	}

	return lines
}

func writeLockfile(path string, lines []string) error {
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write lock file %s: %w", path, err)
	}
	return nil
}

// postinstall returns the name and content of the post install script that
// clears the package cache left behind by the installer.
func postinstall(name, tag string) (string, string) {
	if platform.IsWindows(tag) {
		return "post_install.bat", strings.Join([]string{
			`del /q %PREFIX%\pkgs\*.tar.bz2`,
			"exit 0",
			"",
		}, "\n")
	}

	return "post_install.sh", strings.Join([]string{
		"#!/bin/sh",
		fmt.Sprintf(`PREFIX="${PREFIX:-$2/%s}"`, name),
		`rm -f $PREFIX/pkgs/*.tar.bz2`,
		"exit 0",
		"",
	}, "\n")
}

func copyfile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("failed to copy %s to %s: %w", src, dst, err)
	}

	return nil
}
