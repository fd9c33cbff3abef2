package binary

import (
	"archive/tar"
	"archive/zip"
	"compress/bzip2"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// handles .tar.gz files
func untargz(file io.Reader, destination string, processor func(path string) *string) error {
	decompressor, err := gzip.NewReader(file)
	if err != nil {
		return fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer decompressor.Close()

	return untar(decompressor, destination, processor)
}

// handles .tar.bz2 files, the format conda packages and micromamba are shipped in
func untarbz2(file io.Reader, destination string, processor func(path string) *string) error {
	return untar(bzip2.NewReader(file), destination, processor)
}

func untar(decompressed io.Reader, destination string, processor func(path string) *string) error {
	reader := tar.NewReader(decompressed)

	for {
		header, err := reader.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}

		processed := processor(header.Name)
		if processed == nil {
			continue
		}
		target := filepath.Join(destination, *processed)

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", target, err)
			}
		case tar.TypeReg:
			if err := write(target, reader); err != nil {
				return err
			}
		}
	}

	return nil
}

// handles .zip files
func unzip(file io.ReaderAt, size int64, destination string, processor func(path string) *string) error {
	reader, err := zip.NewReader(file, size)
	if err != nil {
		return fmt.Errorf("failed to create zip reader: %w", err)
	}

	for _, file := range reader.File {
		processed := processor(file.Name)
		if processed == nil {
			continue
		}
		target := filepath.Join(destination, *processed)

		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", target, err)
			}
			continue
		}

		contents, err := file.Open()
		if err != nil {
			return fmt.Errorf("failed to open file %s: %w", file.Name, err)
		}

		err = write(target, contents)
		contents.Close()
		if err != nil {
			return err
		}
	}

	return nil
}

// write copies contents into an executable file at target.
func write(target string, contents io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", filepath.Dir(target), err)
	}

	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o755)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", target, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, contents); err != nil {
		return fmt.Errorf("failed to copy data to file %s: %w", target, err)
	}

	return nil
}
