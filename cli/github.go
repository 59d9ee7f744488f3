package cli

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"yellowpages-backend/github"
)

func newGitHubClient(opts *RootOptions) *github.Client {
	gh := opts.Settings.GitHub
	return github.NewClient(gh.BaseURL, gh.Repo(), gh.Token)
}

// NewCompareCommand creates the compare command.
func NewCompareCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare tracked local files with their GitHub versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			gh := rootOpts.Settings.GitHub
			results := github.Compare(cmd.Context(), newGitHubClient(rootOpts), gh.Files)
			return github.FormatReport(cmd.OutOrStdout(), gh.Repo(), results)
		},
	}
	return cmd
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Overwrite tracked local files with their GitHub versions",
		Long: `Compare tracked files with GitHub, then replace the local copies.
Existing files are backed up as <file>.backup.YYYYMMDD_HHMMSS first.
Asks for confirmation unless --yes is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, rootOpts, yes)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "import without asking")
	return cmd
}

func runImport(cmd *cobra.Command, opts *RootOptions, yes bool) error {
	gh := opts.Settings.GitHub
	client := newGitHubClient(opts)
	out := cmd.OutOrStdout()

	if err := github.FormatReport(out, gh.Repo(), github.Compare(cmd.Context(), client, gh.Files)); err != nil {
		return err
	}

	if !yes {
		fmt.Fprint(out, "\nImport these files from GitHub? (y/N): ")
		answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "y", "yes":
		default:
			fmt.Fprintln(out, "Import cancelled.")
			return nil
		}
	}

	results := github.Import(cmd.Context(), client, gh.Files, time.Now)
	fmt.Fprintln(out)
	if err := github.FormatImportSummary(out, gh.Repo(), results); err != nil {
		return err
	}
	for _, r := range results {
		if !r.OK() {
			return fmt.Errorf("import: some files failed")
		}
	}
	return nil
}
