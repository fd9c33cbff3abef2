package rerender

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/aexvir/radioconda/conda"
)

const environment = `name: radioconda
channels:
  - conda-forge
  - ryanvolz
platforms:
  - linux-64
  - win-64
dependencies:
  # sdr
  - gnuradio
  - soapysdr-module-lms7  # [linux]
  - rtl-sdr
`

const installerEnvironment = `name: radioconda_installer
channels:
  - conda-forge
dependencies:
  - mamba
  - menuinst  # [win]
`

// fakeSolver pins every requested package to 1.0 and pulls in libusb as a dependency.
type fakeSolver struct {
	calls  []conda.Spec
	failOn string
}

func (f *fakeSolver) Solve(_ context.Context, spec conda.Spec) ([]conda.Package, error) {
	f.calls = append(f.calls, spec)
	if spec.Platform == f.failOn {
		return nil, errors.New("solver error: nothing provides gnuradio")
	}

	names := []string{"libusb"}
	for _, s := range spec.Specs {
		names = append(names, conda.NameFromSpec(s))
	}
	slices.Sort(names)
	names = slices.Compact(names)

	packages := make([]conda.Package, 0, len(names))
	for _, name := range names {
		packages = append(packages, conda.Package{
			Name:        name,
			Version:     "1.0",
			BuildString: "h0",
			URL:         "https://conda.anaconda.org/conda-forge/" + spec.Platform + "/" + name + "-1.0-h0.tar.bz2",
			MD5:         "0123",
		})
	}

	return packages, nil
}

func setup(t *testing.T) Config {
	t.Helper()

	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	return Config{
		EnvironmentFile:          write("radioconda.yaml", environment),
		InstallerEnvironmentFile: write("radioconda_installer.yaml", installerEnvironment),
		Version:                  "2024.01.01",
		Company:                  "https://github.com/ryanvolz/radioconda",
		LicenseFile:              write("LICENSE", "license text\n"),
		OutputDir:                filepath.Join(dir, "installer_specs"),
	}
}

func readConstruct(t *testing.T, path string) (Construct, []string) {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var construct Construct
	require.NoError(t, yaml.Unmarshal(data, &construct))

	var node yaml.Node
	require.NoError(t, yaml.Unmarshal(data, &node))
	var keys []string
	mapping := node.Content[0]
	for i := 0; i < len(mapping.Content); i += 2 {
		keys = append(keys, mapping.Content[i].Value)
	}

	return construct, keys
}

func TestRenderLinux(t *testing.T) {
	conf := setup(t)
	solver := &fakeSolver{}

	results, err := New(conf, solver).Render(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Len(t, solver.calls, 4)

	assert.Equal(t, conda.Spec{
		Specs:    []string{"gnuradio", "soapysdr-module-lms7", "rtl-sdr"},
		Channels: []string{"conda-forge", "ryanvolz"},
		Platform: "linux-64",
	}, solver.calls[0])

	locked := []string{"gnuradio=1.0=h0", "libusb=1.0=h0", "rtl-sdr=1.0=h0", "soapysdr-module-lms7=1.0=h0"}
	assert.Equal(t, locked, results[0].Locked.Specs)

	assert.Equal(t, conda.Spec{
		Specs:    []string{"gnuradio=1.0=h0", "libusb=1.0=h0", "mamba", "rtl-sdr=1.0=h0", "soapysdr-module-lms7=1.0=h0"},
		Channels: []string{"conda-forge", "ryanvolz"},
		Platform: "linux-64",
	}, solver.calls[1])

	t.Run("environment file", func(t *testing.T) {
		data, err := os.ReadFile(filepath.Join(conf.OutputDir, "radioconda-linux-64.yml"))
		require.NoError(t, err)

		var env EnvFile
		require.NoError(t, yaml.Unmarshal(data, &env))
		assert.Equal(t, EnvFile{
			Channels:     []string{"conda-forge", "ryanvolz"},
			Dependencies: locked,
			Name:         "radioconda",
			Platform:     "linux-64",
			Version:      "2024.01.01",
		}, env)
	})

	t.Run("lock file", func(t *testing.T) {
		data, err := os.ReadFile(filepath.Join(conf.OutputDir, "radioconda-linux-64.lock"))
		require.NoError(t, err)

		content := string(data)
		assert.Contains(t, content, "# platform: linux-64\n@EXPLICIT\n")
		assert.Contains(t, content, "https://conda.anaconda.org/conda-forge/linux-64/gnuradio-1.0-h0.tar.bz2#0123\n")
		assert.Contains(t, content, "/libusb-1.0-h0.tar.bz2#0123\n")
	})

	t.Run("spec directory", func(t *testing.T) {
		specdir := filepath.Join(conf.OutputDir, "radioconda-linux-64")
		assert.Equal(t, specdir, results[0].SpecDir)

		license, err := os.ReadFile(filepath.Join(specdir, "LICENSE"))
		require.NoError(t, err)
		assert.Equal(t, "license text\n", string(license))

		script, err := os.ReadFile(filepath.Join(specdir, "post_install.sh"))
		require.NoError(t, err)
		assert.Equal(t, "#!/bin/sh\nPREFIX=\"${PREFIX:-$2/radioconda}\"\nrm -f $PREFIX/pkgs/*.tar.bz2\nexit 0\n", string(script))

		construct, keys := readConstruct(t, filepath.Join(specdir, "construct.yaml"))
		assert.Equal(t, Construct{
			Channels:              []string{"conda-forge", "ryanvolz"},
			Company:               "https://github.com/ryanvolz/radioconda",
			InitializeByDefault:   true,
			InstallerType:         "all",
			KeepPkgs:              true,
			LicenseFile:           "LICENSE",
			Name:                  "radioconda",
			PostInstall:           "post_install.sh",
			RegisterPythonDefault: false,
			// libusb is only a dependency, so it is left to the solver
			Specs:        []string{"gnuradio=1.0=h0", "mamba=1.0=h0", "rtl-sdr=1.0=h0", "soapysdr-module-lms7=1.0=h0"},
			Version:      "2024.01.01",
			WriteCondarc: true,
		}, construct)
		assert.True(t, slices.IsSorted(keys), "construct.yaml keys are not sorted: %v", keys)
	})
}

func TestRenderWindows(t *testing.T) {
	conf := setup(t)
	solver := &fakeSolver{}

	results, err := New(conf, solver).Render(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "win-64", results[1].Platform)
	assert.Equal(t, []string{"gnuradio", "rtl-sdr"}, solver.calls[2].Specs)

	specdir := filepath.Join(conf.OutputDir, "radioconda-win-64")
	assert.NoFileExists(t, filepath.Join(specdir, "post_install.sh"))

	script, err := os.ReadFile(filepath.Join(specdir, "post_install.bat"))
	require.NoError(t, err)
	assert.Equal(t, "del /q %PREFIX%\\pkgs\\*.tar.bz2\nexit 0\n", string(script))

	construct, _ := readConstruct(t, filepath.Join(specdir, "construct.yaml"))
	assert.False(t, construct.InitializeByDefault)
	assert.Equal(t, "post_install.bat", construct.PostInstall)
	assert.Equal(t, []string{"gnuradio=1.0=h0", "mamba=1.0=h0", "menuinst=1.0=h0", "rtl-sdr=1.0=h0"}, construct.Specs)
}

func TestRenderMissingLicense(t *testing.T) {
	conf := setup(t)
	conf.LicenseFile = filepath.Join(t.TempDir(), "NOPE")
	solver := &fakeSolver{}

	_, err := New(conf, solver).Render(context.Background())
	require.Error(t, err)
	assert.Equal(t, "cannot find license file: "+conf.LicenseFile, err.Error())
	assert.Empty(t, solver.calls)
}

func TestRenderRecreatesOutputDir(t *testing.T) {
	conf := setup(t)
	stale := filepath.Join(conf.OutputDir, "radioconda-osx-64", "construct.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0o755))
	require.NoError(t, os.WriteFile(stale, []byte("stale"), 0o644))

	_, err := New(conf, &fakeSolver{}).Render(context.Background())
	require.NoError(t, err)
	assert.NoFileExists(t, stale)
	assert.FileExists(t, filepath.Join(conf.OutputDir, "radioconda-linux-64", "construct.yaml"))
}

func TestRenderStopsAtFirstFailingPlatform(t *testing.T) {
	conf := setup(t)
	solver := &fakeSolver{failOn: "linux-64"}

	results, err := New(conf, solver).Render(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "radioconda-linux-64")
	assert.ErrorContains(t, err, "nothing provides gnuradio")
	assert.Empty(t, results)
	assert.Len(t, solver.calls, 1)
	assert.NoDirExists(t, filepath.Join(conf.OutputDir, "radioconda-win-64"))
}

func TestEnvironmentRejectsPipDependencies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "env.yaml")
	content := "name: pippy\ndependencies:\n  - python\n  - pip:\n      - requests\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	env, err := LoadEnvironment(path, "linux-64")
	require.NoError(t, err)

	_, err = env.Spec("linux-64")
	assert.ErrorContains(t, err, "unsupported dependency in pippy")
}

func TestLoadEnvironmentUnknownPlatform(t *testing.T) {
	path := filepath.Join(t.TempDir(), "env.yaml")
	require.NoError(t, os.WriteFile(path, []byte(environment), 0o644))

	_, err := LoadEnvironment(path, "emscripten-wasm32")
	assert.ErrorContains(t, err, "no selectors known for platform emscripten-wasm32")
}

func TestLockfile(t *testing.T) {
	lines := Lockfile("osx-arm64", []conda.Package{
		{Name: "python", Version: "3.12.1", BuildString: "h0", URL: "https://example.org/osx-arm64/python-3.12.1-h0.conda", MD5: "beef"},
		{URL: "   "},
	})

	assert.Equal(t, []string{
		"# This file may be used to create an environment using:",
		"# $ conda create --name <env> --file <this file>",
		"# platform: osx-arm64",
		"@EXPLICIT",
		"https://example.org/osx-arm64/python-3.12.1-h0.conda#beef",
		"#",
	}, lines)
}
