package nsis

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const template = `!include "MUI2.nsh"
Name "${NAME}"
OutFile "${OUTFILE}"
InstallDir "${DEFAULT_PREFIX}"
`

const patch = `From 5e1b0d6f1f2d3c4b5a6978877665544332211000 Mon Sep 17 00:00:00 2001
From: Radioconda Maintainers <radioconda@example.com>
Date: Sat, 1 May 2021 12:00:00 -0400
Subject: [PATCH] Customize Windows NSIS installer script

---
 constructor/nsis/main.nsi.tmpl | 2 +-
 1 file changed, 1 insertion(+), 1 deletion(-)

diff --git a/constructor/nsis/main.nsi.tmpl b/constructor/nsis/main.nsi.tmpl
index 1111111..2222222 100644
--- a/constructor/nsis/main.nsi.tmpl
+++ b/constructor/nsis/main.nsi.tmpl
@@ -1,4 +1,4 @@
 !include "MUI2.nsh"
 Name "${NAME}"
 OutFile "${OUTFILE}"
-InstallDir "${DEFAULT_PREFIX}"
+InstallDir "$PROFILE\${NAME}"
`

const patched = `!include "MUI2.nsh"
Name "${NAME}"
OutFile "${OUTFILE}"
InstallDir "$PROFILE\${NAME}"
`

func setup(t *testing.T, tmpl string) (patchfile, src, specdir string) {
	t.Helper()

	dir := t.TempDir()
	patchfile = filepath.Join(dir, "0001-customize.patch")
	src = filepath.Join(dir, "constructor", "nsis", "main.nsi.tmpl")
	specdir = filepath.Join(dir, "radioconda-win-64")

	require.NoError(t, os.WriteFile(patchfile, []byte(patch), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Dir(src), 0o755))
	require.NoError(t, os.WriteFile(src, []byte(tmpl), 0o644))
	require.NoError(t, os.MkdirAll(specdir, 0o755))

	return patchfile, src, specdir
}

func TestApply(t *testing.T) {
	patchfile, src, specdir := setup(t, template)
	dst := filepath.Join(specdir, TemplateName)

	require.NoError(t, Apply(patchfile, src, dst))

	content, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, patched, string(content))

	// the installed template is left untouched
	original, err := os.ReadFile(src)
	require.NoError(t, err)
	assert.Equal(t, template, string(original))
}

func TestApplyMismatch(t *testing.T) {
	patchfile, src, specdir := setup(t, "something else entirely\n")
	dst := filepath.Join(specdir, TemplateName)

	err := Apply(patchfile, src, dst)
	require.Error(t, err)
	assert.NoFileExists(t, dst)
}

func TestApplyMissingInputs(t *testing.T) {
	patchfile, src, specdir := setup(t, template)
	dst := filepath.Join(specdir, TemplateName)

	t.Run("missing patch", func(t *testing.T) {
		err := Apply(filepath.Join(specdir, "nope.patch"), src, dst)
		assert.ErrorContains(t, err, "failed to open patch")
	})

	t.Run("missing template", func(t *testing.T) {
		err := Apply(patchfile, filepath.Join(specdir, "nope.tmpl"), dst)
		assert.ErrorContains(t, err, "failed to open patch target")
	})

	t.Run("empty patch", func(t *testing.T) {
		empty := filepath.Join(specdir, "empty.patch")
		require.NoError(t, os.WriteFile(empty, []byte("just some notes\n"), 0o644))

		err := Apply(empty, src, dst)
		assert.ErrorIs(t, err, ErrNoPatch)
	})
}

func TestPatcherWithExplicitTemplate(t *testing.T) {
	patchfile, src, specdir := setup(t, template)

	p := Patcher{PatchFile: patchfile, Template: src}
	require.NoError(t, p.Patch(context.Background(), specdir))

	content, err := os.ReadFile(filepath.Join(specdir, TemplateName))
	require.NoError(t, err)
	assert.Equal(t, patched, string(content))
}
