package ingestion

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// DefaultReportSuffix is the filename suffix written by the triage collector.
const DefaultReportSuffix = "rapidTriage.txt"

const maxLineBytes = 1024 * 1024

// Common errors.
var (
	ErrInputNotDirectory = errors.New("input path is not a directory")
)

// FileError records a report file that could not be read.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("reading report %s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// Discover walks root and returns every regular file whose name ends with
// suffix, compared case-insensitively, in lexical order. Entries below root
// that cannot be read are logged and skipped; only a bad root is an error.
func Discover(root, suffix string, logger *zap.Logger) ([]string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if suffix == "" {
		suffix = DefaultReportSuffix
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat input directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrInputNotDirectory, root)
	}

	want := strings.ToLower(suffix)
	var files []string

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			logger.Error("Skipping unreadable path", zap.String("path", path), zap.Error(err))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if strings.HasSuffix(strings.ToLower(d.Name()), want) {
			files = append(files, path)
		}
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("walking %s: %w", root, walkErr)
	}

	return files, nil
}

// ReadReport reads one report file into lines.
func ReadReport(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &FileError{Path: path, Err: err}
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, &FileError{Path: path, Err: err}
	}
	return lines, nil
}
