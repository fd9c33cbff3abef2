// Package binary provisions external binaries that the build tooling shells out to
// when they can't be found on the system, such as micromamba for solving
// environments.
//
// A [Binary] names the executable, the desired version and an [Origin] pointing at
// where to obtain it from. Two origins exist:
// - [RemoteBinaryDownload]: for binaries that can be downloaded directly from a url
// - [RemoteArchiveDownload]: for binaries contained in tar.gz, tar.bz2 or zip archives
//
// Urls and archive paths are templates resolved against a [Template], which carries
// the conda platform tag of the host next to GOOS and GOARCH.
//
// example usage
//
//	micromamba, err := binary.New(
//		"micromamba",
//		"latest",
//		binary.RemoteArchiveDownload(
//			"https://micro.mamba.pm/api/micromamba/{{.Platform}}/{{.Version}}",
//			map[string]string{"bin/micromamba": "{{.Name}}{{.Extension}}"},
//		),
//	)
//	if err != nil {
//		return err
//	}
//
//	if err := micromamba.Ensure(); err != nil {
//		return fmt.Errorf("failed to provision micromamba: %w", err)
//	}
//
//	harness.Run(ctx, micromamba.BinPath(), harness.WithArgs("--help"))
package binary
