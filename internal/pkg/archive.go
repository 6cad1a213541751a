// Package pkg implements package archives and the workspace operations
// built on them: dependency installation, removal, publish and unpublish.
package pkg

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"
)

// InstallDirName is the reserved workspace subdirectory holding installed
// dependencies. It is never itself packaged into an archive.
const InstallDirName = "__stof__"

// ArchiveExt is the on-disk extension for package archive files.
const ArchiveExt = ".pkg"

// ErrArchive reports a failed archive build; partial output is discarded.
var ErrArchive = errors.New("archive error")

// Build walks dir and produces a filtered zip archive. Exclude patterns
// are regular expressions matched against slash-separated paths relative
// to dir and take precedence over include. A non-empty include set acts
// as an allowlist for files; directories are only gated by exclude and
// the reserved install directory.
func Build(dir string, include, exclude []string) ([]byte, error) {
	includeRe, err := compilePatterns(include)
	if err != nil {
		return nil, fmt.Errorf("%w: include: %v", ErrArchive, err)
	}
	excludeRe, err := compilePatterns(exclude)
	if err != nil {
		return nil, fmt.Errorf("%w: exclude: %v", ErrArchive, err)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == dir {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if !utf8.ValidString(name) {
			return fmt.Errorf("path is not valid UTF-8: %q", rel)
		}

		if containsInstallDir(name) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if matchesAny(excludeRe, name) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		if d.IsDir() {
			hdr, err := zip.FileInfoHeader(info)
			if err != nil {
				return err
			}
			hdr.Name = name + "/"
			hdr.Method = zip.Deflate
			if _, err := zw.CreateHeader(hdr); err != nil {
				return err
			}
			return nil
		}

		if len(includeRe) > 0 && !matchesAny(includeRe, name) {
			return nil
		}

		hdr, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		hdr.Name = name
		hdr.Method = zip.Deflate

		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		_, err = io.Copy(w, f)
		f.Close()
		return err
	})
	if walkErr != nil {
		zw.Close()
		return nil, fmt.Errorf("%w: %v", ErrArchive, walkErr)
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArchive, err)
	}
	return buf.Bytes(), nil
}

// CreateArchiveFile builds an archive and writes it to outPath, appending
// the archive extension when missing. An existing file is overwritten.
func CreateArchiveFile(dir, outPath string, include, exclude []string) (string, error) {
	if !strings.HasSuffix(outPath, ArchiveExt) {
		outPath += ArchiveExt
	}

	data, err := Build(dir, include, exclude)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return "", fmt.Errorf("%w: %v", ErrArchive, err)
	}
	return outPath, nil
}

// CreateTempArchive builds an archive into a temporary file. The caller
// removes it when the transfer is done.
func CreateTempArchive(dir string, include, exclude []string) (string, error) {
	data, err := Build(dir, include, exclude)
	if err != nil {
		return "", err
	}

	f, err := os.CreateTemp("", "stof-pkg-*"+ArchiveExt)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrArchive, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("%w: %v", ErrArchive, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("%w: %v", ErrArchive, err)
	}
	return f.Name(), nil
}

// Extract unpacks archive bytes into destDir. Extraction is best-effort:
// a corrupt or unsafe entry is skipped rather than failing the install.
func Extract(data []byte, destDir string) error {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrArchive, err)
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return err
	}

	for _, entry := range zr.File {
		name := filepath.Clean(filepath.FromSlash(entry.Name))
		if name == "." || strings.Contains(name, "..") {
			continue
		}
		dest := filepath.Join(destDir, name)

		if entry.FileInfo().IsDir() {
			_ = os.MkdirAll(dest, 0o755)
			continue
		}

		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			continue
		}
		rc, err := entry.Open()
		if err != nil {
			continue
		}

		mode := entry.Mode().Perm()
		if mode == 0 {
			mode = 0o644
		}
		out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
		if err != nil {
			rc.Close()
			continue
		}
		_, _ = io.Copy(out, rc)
		out.Close()
		rc.Close()
	}
	return nil
}

func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	res := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %v", p, err)
		}
		res = append(res, re)
	}
	return res, nil
}

func matchesAny(res []*regexp.Regexp, name string) bool {
	for _, re := range res {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// containsInstallDir reports whether any path segment is the reserved
// install directory.
func containsInstallDir(slashPath string) bool {
	for _, seg := range strings.Split(slashPath, "/") {
		if seg == InstallDirName {
			return true
		}
	}
	return false
}
