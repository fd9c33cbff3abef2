// Command radioconda builds and re-renders the radioconda installers.
//
//	radioconda [build] [INSTALLER_SPEC_DIR] [-o DIR] [-- constructor args...]
//	radioconda rerender [ENV_FILE] [INSTALLER_ENV_FILE] [-v VERSION] [-o DIR]
//
// Exit codes: 0 on success, 1 when constructor fails, 2 for any other error.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"

	"github.com/aexvir/radioconda/conda"
	"github.com/aexvir/radioconda/constructor"
	"github.com/aexvir/radioconda/installer"
	"github.com/aexvir/radioconda/nsis"
	"github.com/aexvir/radioconda/platform"
	"github.com/aexvir/radioconda/rerender"
)

type CLI struct {
	Build    BuildCmd    `cmd:"" default:"withargs" help:"Build the installers of an installer spec directory."`
	Rerender RerenderCmd `cmd:"" help:"Lock the environment files and render installer spec directories."`
}

// passthrough are the arguments after the first -- on the command line.
type passthrough []string

type BuildCmd struct {
	SpecDir               string `arg:"" optional:"" name:"installer_spec_dir" default:"${spec_dir}" help:"Installer specification directory, its name must end in a platform tag (default: ${default})."`
	OutputDir             string `short:"o" name:"output_dir" default:"dist" help:"Output directory for the installers (default: ${default})."`
	Constructor           string `default:"${constructor}" help:"Constructor executable."`
	MinConstructorVersion string `placeholder:"VERSION" help:"Warn when constructor is older than this version."`
	Python                string `default:"python" help:"Python interpreter constructor is installed for."`
	NSISPatch             string `name:"nsis-patch" default:"${nsis_patch}" help:"Patch customizing the windows NSIS installer script."`
	NSISTemplate          string `name:"nsis-template" placeholder:"FILE" help:"NSIS template to patch instead of the one shipped with constructor."`
}

func (c *BuildCmd) Run(ctx context.Context, extra passthrough) error {
	patcher := &nsis.Patcher{
		PatchFile: c.NSISPatch,
		Template:  c.NSISTemplate,
		Python:    c.Python,
	}

	builder := installer.New(
		installer.Config{
			SpecDir:         c.SpecDir,
			OutputDir:       c.OutputDir,
			ConstructorArgs: extra,
		},
		patcher,
		installer.WithExecutable(c.Constructor),
		installer.WithMinimumVersion(c.MinConstructorVersion),
	)

	return builder.Build(ctx)
}

type RerenderCmd struct {
	EnvironmentFile          string `arg:"" optional:"" name:"environment_file" default:"${distname}.yaml" help:"Environment file defining the distribution (default: ${default})."`
	InstallerEnvironmentFile string `arg:"" optional:"" name:"installer_environment_file" default:"${distname}_installer.yaml" help:"Environment file with the installer only packages (default: ${default})."`
	Version                  string `short:"v" default:"${today}" help:"Version of the distribution (default: ${default})."`
	Company                  string `default:"${company}" help:"Entity responsible for the installer (default: ${default})."`
	LicenseFile              string `short:"l" name:"license_file" default:"LICENSE" help:"License that applies to the installer (default: ${default})."`
	OutputDir                string `short:"o" name:"output_dir" default:"installer_specs" help:"Where the installer specs are rendered (default: ${default})."`
	CondaExe                 string `name:"conda-exe" env:"CONDA_EXE" help:"Package manager used to solve environments; mamba, micromamba or conda are tried when empty."`
	MicromambaVersion        string `default:"latest" help:"Micromamba version provisioned when no package manager is found."`
}

func (c *RerenderCmd) Run(ctx context.Context, extra passthrough) error {
	if len(extra) > 0 {
		return fmt.Errorf("rerender doesn't forward arguments to constructor, remove: %s", strings.Join(extra, " "))
	}

	locator := conda.Locator{
		Explicit:          c.CondaExe,
		MicromambaVersion: c.MicromambaVersion,
	}

	exe, err := locator.Executable(ctx)
	if err != nil {
		return err
	}

	renderer := rerender.New(
		rerender.Config{
			EnvironmentFile:          c.EnvironmentFile,
			InstallerEnvironmentFile: c.InstallerEnvironmentFile,
			Version:                  c.Version,
			Company:                  c.Company,
			LicenseFile:              c.LicenseFile,
			OutputDir:                c.OutputDir,
		},
		&conda.Solver{Executable: exe},
	)

	_, err = renderer.Render(ctx)
	return err
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := run(ctx, os.Args[1:], os.Stdout)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error: %s", err))
		os.Exit(exitCode(err))
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	args, extra := split(args)

	var cli CLI
	exited := false

	parser, err := newParser(&cli, out, func(int) { exited = true })
	if err != nil {
		return err
	}

	kctx, err := parser.Parse(args)
	if exited {
		return nil
	}
	if err != nil {
		return err
	}

	kctx.BindTo(ctx, (*context.Context)(nil))
	kctx.Bind(passthrough(extra))

	return kctx.Run()
}

func newParser(cli *CLI, out io.Writer, exit func(int)) (*kong.Kong, error) {
	return kong.New(
		cli,
		kong.Name("radioconda"),
		kong.Description("Build radioconda installers with constructor."),
		kong.Writers(out, out),
		kong.Exit(exit),
		kong.Vars(vars()),
	)
}

func vars() kong.Vars {
	distname := getenv("DISTNAME", "radioconda")
	tag := getenv("PLATFORM", platform.Current())

	return kong.Vars{
		"distname":    distname,
		"spec_dir":    filepath.Join("installer_specs", distname+"-"+tag),
		"constructor": constructor.Executable,
		"nsis_patch":  nsis.DefaultPatchFile,
		"today":       time.Now().Format("2006.01.02"),
		"company": getenv("GITHUB_SERVER_URL", "https://github.com") + "/" +
			getenv("GITHUB_REPOSITORY", "ryanvolz/radioconda"),
	}
}

// getenv falls back only when the variable is unset; an empty value is kept.
func getenv(name, fallback string) string {
	if value, ok := os.LookupEnv(name); ok {
		return value
	}
	return fallback
}

// split separates the arguments forwarded verbatim to constructor, everything
// after the first --, from the ones radioconda parses itself.
func split(args []string) ([]string, []string) {
	i := slices.Index(args, "--")
	if i < 0 {
		return args, nil
	}
	return args[:i], args[i+1:]
}

// exitCode maps an error to the process exit code.
func exitCode(err error) int {
	if err == nil {
		return 0
	}

	var terr *installer.ToolError
	if errors.As(err, &terr) {
		return terr.ExitCode()
	}

	return 2
}
