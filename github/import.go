package github

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const backupLayout = "20060102_150405"

type ImportResult struct {
	File       FileSpec
	Size       int
	BackupPath string
	Err        error
}

func (r ImportResult) OK() bool { return r.Err == nil }

// Import overwrites each local file with its repository version. An existing
// local file is first copied to <local>.backup.<YYYYMMDD_HHMMSS>. Failures are
// reported per file and do not stop the run.
func Import(ctx context.Context, f Fetcher, files []FileSpec, now func() time.Time) []ImportResult {
	if now == nil {
		now = time.Now
	}
	out := make([]ImportResult, 0, len(files))
	for _, file := range files {
		res := ImportResult{File: file}
		res.Size, res.BackupPath, res.Err = importOne(ctx, f, file, now())
		out = append(out, res)
	}
	return out
}

func importOne(ctx context.Context, f Fetcher, file FileSpec, at time.Time) (int, string, error) {
	content, found, err := f.FetchFile(ctx, file.Remote)
	if err != nil {
		return 0, "", err
	}
	if !found {
		return 0, "", fmt.Errorf("%s not found in repository (HTTP 404)", file.Remote)
	}

	var backup string
	info, err := os.Stat(file.Local)
	switch {
	case err == nil:
		backup = file.Local + ".backup." + at.Format(backupLayout)
		if err := copyFile(file.Local, backup, info.Mode().Perm()); err != nil {
			return 0, "", fmt.Errorf("backup %s: %w", file.Local, err)
		}
	case errors.Is(err, fs.ErrNotExist):
		if err := os.MkdirAll(filepath.Dir(file.Local), 0o755); err != nil {
			return 0, "", fmt.Errorf("create dir for %s: %w", file.Local, err)
		}
	default:
		return 0, "", fmt.Errorf("stat %s: %w", file.Local, err)
	}

	mode := fs.FileMode(0o644)
	if info != nil {
		mode = info.Mode().Perm()
	}
	if err := os.WriteFile(file.Local, content, mode); err != nil {
		return 0, backup, fmt.Errorf("write %s: %w", file.Local, err)
	}
	return len(content), backup, nil
}

func copyFile(src, dst string, mode fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// FormatImportSummary writes the per-file outcome of an Import run.
func FormatImportSummary(w io.Writer, repo Repo, results []ImportResult) error {
	var b strings.Builder
	var imported, failed []ImportResult
	for _, r := range results {
		if r.OK() {
			imported = append(imported, r)
		} else {
			failed = append(failed, r)
		}
	}

	fmt.Fprintf(&b, "Import from %s\n", repo)
	b.WriteString(strings.Repeat("=", 60) + "\n")
	fmt.Fprintf(&b, "imported: %d files\n", len(imported))
	fmt.Fprintf(&b, "failed:   %d files\n", len(failed))

	if len(imported) > 0 {
		b.WriteString("\nImported files:\n")
		for _, r := range imported {
			fmt.Fprintf(&b, "  %s -> %s (%s bytes)\n", r.File.Remote, r.File.Local, groupDigits(r.Size))
			if r.BackupPath != "" {
				fmt.Fprintf(&b, "    backup: %s\n", r.BackupPath)
			}
		}
	}
	if len(failed) > 0 {
		b.WriteString("\nFailed files:\n")
		for _, r := range failed {
			fmt.Fprintf(&b, "  %s: %v\n", r.File.Remote, r.Err)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
