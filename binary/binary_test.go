package binary

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aexvir/radioconda/platform"
)

// MockOrigin is a testify mock implementation of Origin interface
type MockOrigin struct {
	mock.Mock
}

func (m *MockOrigin) Install(template Template) error {
	args := m.Called(template)
	return args.Error(0)
}

// touch creates the binary file, as a successful installation would.
func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\necho 1.5.8\n"), 0o755))
}

func TestNew(t *testing.T) {
	origin := &MockOrigin{}

	bin, err := New("micromamba", "1.5.8", origin)
	require.NoError(t, err)

	assert.Equal(t, "micromamba", bin.Name())
	assert.Equal(t, "1.5.8", bin.version)
	assert.Equal(t, origin, bin.origin)

	assert.Equal(t, runtime.GOOS, bin.template.GOOS)
	assert.Equal(t, runtime.GOARCH, bin.template.GOARCH)
	assert.Equal(t, platform.Current(), bin.template.Platform)
	assert.Equal(t, filepath.FromSlash("./bin"), bin.template.Directory)

	if runtime.GOOS == "windows" {
		assert.Equal(t, ".exe", bin.template.Extension)
		assert.Equal(t, filepath.Join("bin", "micromamba.exe"), bin.BinPath())
	} else {
		assert.Equal(t, "", bin.template.Extension)
		assert.Equal(t, filepath.Join("bin", "micromamba"), bin.BinPath())
	}
}

func TestNewRequiresVersion(t *testing.T) {
	_, err := New("micromamba", "", &MockOrigin{})
	assert.ErrorContains(t, err, "version must be set")
}

func TestNewWithOptions(t *testing.T) {
	dir := t.TempDir()

	bin, err := New("micromamba", "1.5.8", &MockOrigin{},
		WithDirectory(dir),
		WithPlatform("osx-arm64"),
		WithVersionCmd("%s info --version"),
	)
	require.NoError(t, err)

	assert.Equal(t, "osx-arm64", bin.template.Platform)
	assert.Equal(t, dir, bin.template.Directory)
	assert.Equal(t, filepath.Join(dir, "micromamba"+bin.template.Extension), bin.BinPath())
	assert.Equal(t, "%s info --version", bin.versioncmd)
}

func TestBinary_Ensure(t *testing.T) {
	t.Run("installs when binary is missing", func(t *testing.T) {
		dir := t.TempDir()
		origin := &MockOrigin{}

		bin, err := New("micromamba", Latest, origin, WithDirectory(dir))
		require.NoError(t, err)

		origin.On("Install", mock.AnythingOfType("Template")).
			Run(func(args mock.Arguments) { touch(t, args.Get(0).(Template).Cmd) }).
			Return(nil)

		require.NoError(t, bin.Ensure())
		origin.AssertExpectations(t)
	})

	t.Run("skips install when binary exists and version matches", func(t *testing.T) {
		dir := t.TempDir()
		origin := &MockOrigin{}

		bin, err := New("micromamba", Latest, origin, WithDirectory(dir))
		require.NoError(t, err)
		touch(t, bin.BinPath())

		require.NoError(t, bin.Ensure())
		origin.AssertNotCalled(t, "Install", mock.Anything)
	})

	t.Run("fails when origin doesn't produce the binary", func(t *testing.T) {
		origin := &MockOrigin{}

		bin, err := New("micromamba", Latest, origin, WithDirectory(t.TempDir()))
		require.NoError(t, err)

		origin.On("Install", mock.AnythingOfType("Template")).Return(nil)

		assert.ErrorContains(t, bin.Ensure(), "not found")
	})
}

func TestBinary_isExpectedVersion(t *testing.T) {
	t.Run("returns true for latest version", func(t *testing.T) {
		bin, err := New("micromamba", Latest, &MockOrigin{})
		require.NoError(t, err)
		assert.True(t, bin.isExpectedVersion())
	})

	t.Run("returns false when version check is skipped", func(t *testing.T) {
		bin, err := New("micromamba", "1.5.8", &MockOrigin{}, WithVersionCmd(SkipVersionCheck))
		require.NoError(t, err)
		assert.False(t, bin.isExpectedVersion())
	})

	t.Run("returns false when command fails", func(t *testing.T) {
		bin, err := New("micromamba", "1.5.8", &MockOrigin{}, WithDirectory(t.TempDir()))
		require.NoError(t, err)
		assert.False(t, bin.isExpectedVersion())
	})

	t.Run("matches the reported version", func(t *testing.T) {
		if runtime.GOOS == "windows" {
			t.Skip("shell scripts are not executable on windows")
		}

		dir := t.TempDir()

		bin, err := New("micromamba", "v1.5.8", &MockOrigin{}, WithDirectory(dir))
		require.NoError(t, err)
		touch(t, bin.BinPath())
		assert.True(t, bin.isExpectedVersion())

		other, err := New("micromamba", "2.0.0", &MockOrigin{}, WithDirectory(dir))
		require.NoError(t, err)
		assert.False(t, other.isExpectedVersion())
	})
}
