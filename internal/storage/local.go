package storage

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"
)

// LocalStorage stores files in a directory on the local filesystem.
// All identifiers are treated as paths relative to the base directory;
// identifiers resolving outside of it are rejected.
type LocalStorage struct {
	baseDir string
}

// NewLocalStorage returns a backend rooted at baseDir. A leading "~" in
// baseDir is expanded to the user's home directory.
func NewLocalStorage(baseDir string, createIfMissing bool) (*LocalStorage, error) {
	expanded, err := expandHome(baseDir)
	if err != nil {
		return nil, errors.Wrap(err, "could not expand base directory")
	}

	abs, err := filepath.Abs(expanded)
	if err != nil {
		return nil, errors.Wrap(err, "could not resolve base directory")
	}

	info, err := os.Stat(abs)
	switch {
	case os.IsNotExist(err):
		if !createIfMissing {
			return nil, &ValidationError{Reason: fmt.Sprintf("base directory does not exist: %s", abs)}
		}
		if err := os.MkdirAll(abs, 0o755); err != nil {
			return nil, errors.Wrap(err, "could not create base directory")
		}
	case err != nil:
		return nil, errors.Wrap(err, "could not stat base directory")
	case !info.IsDir():
		return nil, &ValidationError{Reason: fmt.Sprintf("base path is not a directory: %s", abs)}
	}

	return &LocalStorage{baseDir: abs}, nil
}

// BaseDir returns the absolute base directory.
func (s *LocalStorage) BaseDir() string {
	return s.baseDir
}

// resolve maps an identifier to an absolute path, rejecting absolute
// identifiers and any path that escapes the base directory.
func (s *LocalStorage) resolve(identifier string) (string, error) {
	if identifier == "" {
		return "", &ValidationError{Reason: "empty identifier"}
	}
	if filepath.IsAbs(identifier) || strings.HasPrefix(identifier, "/") {
		return "", &ValidationError{Reason: fmt.Sprintf("invalid identifier: %q is an absolute path", identifier)}
	}

	path := filepath.Clean(filepath.Join(s.baseDir, filepath.FromSlash(identifier)))

	rel, err := filepath.Rel(s.baseDir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", &ValidationError{Reason: fmt.Sprintf("invalid identifier: %q resolves outside base directory", identifier)}
	}

	return path, nil
}

func (s *LocalStorage) Exists(identifier string) bool {
	path, err := s.resolve(identifier)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func (s *LocalStorage) Read(identifier string) ([]byte, error) {
	path, err := s.resolve(identifier)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &NotFoundError{Identifier: identifier, Location: "local storage"}
	}
	if err != nil {
		return nil, errors.Wrapf(err, "could not stat %s", identifier)
	}
	if !info.Mode().IsRegular() {
		return nil, &NotRegularFileError{Identifier: identifier}
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read %s", identifier)
	}
	return content, nil
}

func (s *LocalStorage) Write(identifier string, content []byte) error {
	path, err := s.resolve(identifier)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "could not create parent directory for %s", identifier)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return errors.Wrapf(err, "could not write %s", identifier)
	}
	return nil
}

func (s *LocalStorage) Delete(identifier string) (bool, error) {
	path, err := s.resolve(identifier)
	if err != nil {
		return false, err
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, &NotFoundError{Identifier: identifier, Location: "local storage"}
	}
	if err != nil {
		return false, errors.Wrapf(err, "could not stat %s", identifier)
	}
	if !info.Mode().IsRegular() {
		return false, &NotRegularFileError{Identifier: identifier}
	}

	if err := os.Remove(path); err != nil {
		return false, errors.Wrapf(err, "could not delete %s", identifier)
	}
	return true, nil
}

func (s *LocalStorage) List(pattern string) ([]string, error) {
	var results []string
	err := filepath.WalkDir(s.baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.baseDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if pattern != "" {
			match, err := doublestar.Match(pattern, rel)
			if err != nil {
				return &ValidationError{Reason: fmt.Sprintf("invalid list pattern %q: %v", pattern, err)}
			}
			if !match {
				return nil
			}
		}
		results = append(results, rel)
		return nil
	})
	if err != nil {
		if IsValidation(err) {
			return nil, err
		}
		return nil, errors.Wrap(err, "could not list files")
	}
	sort.Strings(results)
	return results, nil
}

func (s *LocalStorage) Size(identifier string) (int64, error) {
	path, err := s.resolve(identifier)
	if err != nil {
		return 0, err
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return 0, &NotFoundError{Identifier: identifier, Location: "local storage"}
	}
	if err != nil {
		return 0, errors.Wrapf(err, "could not stat %s", identifier)
	}
	if !info.Mode().IsRegular() {
		return 0, &NotRegularFileError{Identifier: identifier}
	}
	return info.Size(), nil
}

func (s *LocalStorage) Copy(sourceID, destID string) error {
	srcPath, err := s.resolve(sourceID)
	if err != nil {
		return err
	}
	dstPath, err := s.resolve(destID)
	if err != nil {
		return err
	}

	src, err := os.Open(srcPath)
	if os.IsNotExist(err) {
		return &NotFoundError{Identifier: sourceID, Location: "local storage"}
	}
	if err != nil {
		return errors.Wrapf(err, "could not open %s", sourceID)
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return errors.Wrapf(err, "could not create parent directory for %s", destID)
	}

	dst, err := os.Create(dstPath)
	if err != nil {
		return errors.Wrapf(err, "could not create %s", destID)
	}

	_, copyErr := io.Copy(dst, src)
	closeErr := dst.Close()
	if copyErr != nil {
		return errors.Wrapf(copyErr, "could not copy %s to %s", sourceID, destID)
	}
	if closeErr != nil {
		return errors.Wrapf(closeErr, "could not finish copy to %s", destID)
	}
	return nil
}

func (s *LocalStorage) Move(sourceID, destID string) error {
	srcPath, err := s.resolve(sourceID)
	if err != nil {
		return err
	}
	dstPath, err := s.resolve(destID)
	if err != nil {
		return err
	}

	if _, err := os.Stat(srcPath); os.IsNotExist(err) {
		return &NotFoundError{Identifier: sourceID, Location: "local storage"}
	}
	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return errors.Wrapf(err, "could not create parent directory for %s", destID)
	}
	if err := os.Rename(srcPath, dstPath); err != nil {
		return errors.Wrapf(err, "could not move %s to %s", sourceID, destID)
	}
	return nil
}

func (s *LocalStorage) GetPath(identifier string) (string, error) {
	return s.resolve(identifier)
}

// expandHome replaces a leading "~" with the user's home directory.
func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, path[2:]), nil
}
