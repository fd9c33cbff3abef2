package binary

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/aexvir/radioconda/harness"
)

// Origin defines the interface for provisioning binaries from different sources.
type Origin interface {
	// Install performs the installation of a binary.
	// The template contains information about the target environment and desired configuration.
	Install(template Template) error
}

// remotebin implements [Origin] for direct binary downloads from a URL.
type remotebin struct {
	urlformat string
}

// RemoteBinaryDownload creates a new Origin that downloads a binary directly from a URL.
// The URL can contain template variables that will be resolved using the [Template] values
// during installation.
// e.g. "https://github.com/mamba-org/micromamba-releases/releases/download/{{.Version}}/micromamba-{{.Platform}}"
func RemoteBinaryDownload(url string) Origin {
	return &remotebin{
		urlformat: url,
	}
}

func (r *remotebin) Install(template Template) error {
	if err := os.MkdirAll(template.Directory, 0o755); err != nil {
		return fmt.Errorf("failed to create destination folder %s: %w", template.Directory, err)
	}

	url, err := template.Resolve(r.urlformat)
	if err != nil {
		return fmt.Errorf("failed to resolve URL: %w", err)
	}

	if err := download(url, template.Cmd); err != nil {
		return err
	}

	if err := os.Chmod(template.Cmd, 0o755); err != nil {
		return fmt.Errorf("failed to set permissions on %s: %w", template.Cmd, err)
	}

	return nil
}

// remotearchive implements Origin for downloading and extracting archived binaries.
type remotearchive struct {
	urlformat string
	binaries  map[string]string
}

// RemoteArchiveDownload creates a new Origin that downloads and extracts binaries from
// a compressed archive. The URL can contain template variables that will be resolved
// using the [Template] values during installation.
// e.g. "https://micro.mamba.pm/api/micromamba/{{.Platform}}/{{.Version}}"
//
// The binaries parameter maps archive paths to the desired binary names in the
// installation directory. Only files specified in this map will be extracted; entries
// missing from the archive are ignored, so a single map can cover the layouts of
// different platforms. Both sides can contain template variables.
//
// e.g. {"Library/bin/micromamba.exe": "{{.Name}}{{.Extension}}"} extracts the windows
// binary from its nested location to the root of the bin directory.
func RemoteArchiveDownload(url string, binaries map[string]string) Origin {
	return &remotearchive{
		urlformat: url,
		binaries:  binaries,
	}
}

func (r *remotearchive) Install(template Template) error {
	if err := os.MkdirAll(template.Directory, 0o755); err != nil {
		return fmt.Errorf("failed to create destination folder %s: %w", template.Directory, err)
	}

	url, err := template.Resolve(r.urlformat)
	if err != nil {
		return fmt.Errorf("failed to resolve URL: %w", err)
	}

	archive := filepath.Join(template.Directory, template.Name+".download")

	if err := download(url, archive); err != nil {
		return fmt.Errorf("failed to download file: %w", err)
	}

	// resolve binary mapping templates
	mapping := make(map[string]string, len(r.binaries))
	for path, replacement := range r.binaries {
		resolvedpath, err := template.Resolve(path)
		if err != nil {
			return fmt.Errorf("failed to resolve archive path %s: %w", path, err)
		}
		resolvedname, err := template.Resolve(replacement)
		if err != nil {
			return fmt.Errorf("failed to resolve binary name %s: %w", replacement, err)
		}
		mapping[resolvedpath] = resolvedname
	}

	return extract(
		archive,
		template.Directory,
		func(path string) *string {
			path = strings.TrimPrefix(path, "./")

			// if there's no file override, extract the file as is
			if len(mapping) == 0 {
				return &path
			}

			// otherwise only extract files that are present in the map
			if replacement, ok := mapping[path]; ok {
				harness.LogDetail(fmt.Sprintf("  resolved %s to %s", path, replacement))
				return &replacement
			}
			return nil
		},
	)
}

// download downloads a file from a URL to a local destination, replacing any
// existing file.
func download(url, destination string) (err error) {
	harness.LogDetail(fmt.Sprintf("downloading %s to %s", url, destination))

	start := time.Now()
	defer func() {
		elapsed := time.Since(start).Round(time.Millisecond)
		if err != nil {
			color.Red("     ✘ %s", elapsed)
			return
		}
		color.Green("     ✔ %s", elapsed)
	}()

	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("received unexpected response when downloading %s: http%d", url, resp.StatusCode)
	}

	data, finish := progress(resp.Body, resp.ContentLength)
	defer finish()

	out, err := os.Create(destination)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", destination, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, data); err != nil {
		return fmt.Errorf("failed to copy data to file %s: %w", destination, err)
	}

	return nil
}

// extract extracts files from a compressed archive.
// The processor function is called for each file in the archive and determines:
// - Which files to extract (by returning non-nil)
// - What name to give the extracted file (the returned string value)
// Files are extracted with executable permissions (0755).
// The source archive is removed afterwards.
func extract(compressed, destination string, processor func(path string) *string) (err error) {
	harness.LogDetail(fmt.Sprintf("extracting %s", compressed))

	start := time.Now()
	defer func() {
		elapsed := time.Since(start).Round(time.Millisecond)
		if err != nil {
			color.Red("     ✘ %s", elapsed)
			return
		}
		color.Green("     ✔ %s", elapsed)
	}()

	file, err := os.Open(compressed)
	if err != nil {
		return fmt.Errorf("failed to open compressed file: %w", err)
	}
	defer os.Remove(compressed)
	defer file.Close()

	// sniff the header to determine the archive type
	header := make([]byte, 512)
	n, _ := file.Read(header)
	header = header[:n]
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return err
	}

	if bytes.HasPrefix(header, []byte("BZh")) {
		return untarbz2(file, destination, processor)
	}

	switch mime := http.DetectContentType(header); mime {
	case "application/x-gzip":
		return untargz(file, destination, processor)
	case "application/zip":
		info, err := file.Stat()
		if err != nil {
			return err
		}
		return unzip(file, info.Size(), destination, processor)
	default:
		return fmt.Errorf("unsupported format: %s", mime)
	}
}

// progress wraps an io.Reader to display a progress bar when running in a terminal.
// Returns the wrapped reader and a function to finalize the progress display.
func progress(reader io.Reader, size int64) (io.Reader, func()) {
	if !isatty.IsTerminal(os.Stderr.Fd()) && !isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		return reader, func() {}
	}

	bar := pb.
		New64(size).
		SetTemplate(
			pb.ProgressBarTemplate(
				color.New(color.FgHiBlack).Sprint(
					`   └ {{string . "prefix"}}{{counters . }}` +
						` {{bar . "[" "=" ">" " " "]" }} {{percent . }}` +
						` {{speed . }} {{string . "suffix"}}`,
				),
			),
		).
		SetRefreshRate(time.Second / 60).
		SetMaxWidth(100).
		Start()

	return bar.NewProxyReader(reader), func() { bar.Finish() }
}
