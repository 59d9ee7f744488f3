package github

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// FileSpec maps a repository path to a local file.
type FileSpec struct {
	Remote string `mapstructure:"remote" yaml:"remote"`
	Local  string `mapstructure:"local" yaml:"local"`
}

type Status string

const (
	StatusNewInGitHub       Status = "new_in_github"
	StatusMissingFromGitHub Status = "missing_from_github"
	StatusIdentical         Status = "identical"
	StatusDifferent         Status = "different"
	StatusError             Status = "error"
)

type Comparison struct {
	File         FileSpec
	Status       Status
	LocalSize    int
	RemoteSize   int
	LinesAdded   int // present remotely, absent locally
	LinesRemoved int // present locally, absent remotely
	Err          error
}

// Compare fetches every file and classifies it against the local copy. A
// missing local file and a missing remote file both count as empty content.
func Compare(ctx context.Context, f Fetcher, files []FileSpec) []Comparison {
	out := make([]Comparison, 0, len(files))
	for _, file := range files {
		out = append(out, compareOne(ctx, f, file))
	}
	return out
}

func compareOne(ctx context.Context, f Fetcher, file FileSpec) Comparison {
	res := Comparison{File: file}

	local, err := readLocal(file.Local)
	if err != nil {
		res.Status, res.Err = StatusError, err
		return res
	}
	remote, _, err := f.FetchFile(ctx, file.Remote)
	if err != nil {
		res.Status, res.Err = StatusError, err
		return res
	}
	res.LocalSize, res.RemoteSize = len(local), len(remote)

	switch {
	case len(local) == 0 && len(remote) > 0:
		res.Status = StatusNewInGitHub
	case len(local) > 0 && len(remote) == 0:
		res.Status = StatusMissingFromGitHub
	case string(local) == string(remote):
		res.Status = StatusIdentical
	default:
		res.Status = StatusDifferent
	}
	res.LinesAdded, res.LinesRemoved = lineDelta(string(local), string(remote))
	return res
}

func readLocal(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return b, nil
}

// lineDelta counts whole lines inserted and deleted going from local to remote.
func lineDelta(local, remote string) (added, removed int) {
	if local == remote {
		return 0, 0
	}
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(local, remote)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)
	for _, d := range diffs {
		n := countLines(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			added += n
		case diffmatchpatch.DiffDelete:
			removed += n
		}
	}
	return added, removed
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	n := strings.Count(s, "\n")
	if !strings.HasSuffix(s, "\n") {
		n++
	}
	return n
}

// FormatReport writes a human readable comparison report.
func FormatReport(w io.Writer, repo Repo, results []Comparison) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Comparing local files with %s\n", repo)
	b.WriteString(strings.Repeat("=", 60) + "\n")

	counts := map[Status]int{}
	for _, r := range results {
		counts[r.Status]++
		fmt.Fprintf(&b, "\n%s -> %s\n", r.File.Remote, r.File.Local)
		fmt.Fprintf(&b, "  status: %s\n", r.Status)
		if r.Err != nil {
			fmt.Fprintf(&b, "  error:  %v\n", r.Err)
			continue
		}
		fmt.Fprintf(&b, "  local:  %s bytes\n", groupDigits(r.LocalSize))
		fmt.Fprintf(&b, "  github: %s bytes\n", groupDigits(r.RemoteSize))
		if r.Status == StatusDifferent || r.Status == StatusNewInGitHub || r.Status == StatusMissingFromGitHub {
			fmt.Fprintf(&b, "  lines:  +%d -%d\n", r.LinesAdded, r.LinesRemoved)
		}
	}

	b.WriteString("\n" + strings.Repeat("=", 60) + "\n")
	fmt.Fprintf(&b, "%d files: %d identical, %d different, %d new in github, %d missing from github, %d errors\n",
		len(results),
		counts[StatusIdentical], counts[StatusDifferent], counts[StatusNewInGitHub],
		counts[StatusMissingFromGitHub], counts[StatusError])

	_, err := io.WriteString(w, b.String())
	return err
}

var sizePrinter = message.NewPrinter(language.English)

// groupDigits renders n with comma thousands separators.
func groupDigits(n int) string {
	return sizePrinter.Sprintf("%d", n)
}
