// Package nsis customizes the NSIS installer script template that constructor uses
// to build windows installers.
//
// The customization ships as a git formatted patch against constructor's own
// template. The patched template is written into the installer spec directory, where
// constructor picks it up in place of its default; the installed template is never
// modified.
package nsis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bluekeyes/go-gitdiff/gitdiff"

	"github.com/aexvir/radioconda/constructor"
	"github.com/aexvir/radioconda/harness"
)

// DefaultPatchFile is the location of the bundled template customization.
var DefaultPatchFile = filepath.Join("static", "0001-Customize-Windows-NSIS-installer-script.patch")

// TemplateName is the file name constructor looks for in the spec directory.
const TemplateName = "main.nsi.tmpl"

// ErrNoPatch is returned when a patch file doesn't contain any file changes.
var ErrNoPatch = errors.New("no file changes found in patch")

// Apply applies the changes for the first file in the patch to src and writes the
// result to dst. dst is only written if the patch applies cleanly.
func Apply(patchfile, src, dst string) error {
	patch, err := os.Open(patchfile)
	if err != nil {
		return fmt.Errorf("failed to open patch: %w", err)
	}
	defer patch.Close()

	files, _, err := gitdiff.Parse(patch)
	if err != nil {
		return fmt.Errorf("failed to parse patch %s: %w", patchfile, err)
	}
	if len(files) == 0 {
		return fmt.Errorf("%s: %w", patchfile, ErrNoPatch)
	}

	original, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open patch target: %w", err)
	}
	defer original.Close()

	var patched bytes.Buffer
	if err := gitdiff.Apply(&patched, original, files[0]); err != nil {
		return fmt.Errorf("failed to apply %s to %s: %w", patchfile, src, err)
	}

	if err := os.WriteFile(dst, patched.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write patched template %s: %w", dst, err)
	}

	return nil
}

// Patcher writes the customized NSIS template into installer spec directories.
type Patcher struct {
	// PatchFile is the patch to apply; defaults to [DefaultPatchFile].
	PatchFile string
	// Template is the template to patch. When empty, the template installed with
	// constructor is located through Python.
	Template string
	// Python is the interpreter constructor is installed for; defaults to python.
	Python string
}

// Patch writes the patched template into specdir.
func (p *Patcher) Patch(ctx context.Context, specdir string) error {
	patchfile := p.PatchFile
	if patchfile == "" {
		patchfile = DefaultPatchFile
	}

	template := p.Template
	if template == "" {
		python := p.Python
		if python == "" {
			python = "python"
		}

		pkgdir, err := constructor.PackageDir(ctx, python)
		if err != nil {
			return err
		}
		template = constructor.NSISTemplate(pkgdir)
	}

	dst := filepath.Join(specdir, TemplateName)

	harness.LogStep(fmt.Sprintf("patching %s", filepath.Base(template)))
	harness.LogDetail(fmt.Sprintf("%s -> %s", template, dst))

	return Apply(patchfile, template, dst)
}
