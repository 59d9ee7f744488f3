package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"yellowpages-backend/harness"
)

// NewSmokeCommand creates the smoke command.
func NewSmokeCommand(rootOpts *RootOptions) *cobra.Command {
	var keep bool

	cmd := &cobra.Command{
		Use:   "smoke",
		Short: "Run the HTTP smoke scenarios against the API",
		Long: `Run the vendor smoke scenarios (creation, phone formats, required fields,
duplicates, list and get) against a running API. Vendor names and phone
numbers are unique per run. Created vendors are deleted afterwards unless
--keep is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runner := harness.NewRunner(rootOpts.Settings.APIURL)
			runner.Logger = rootOpts.Logger
			runner.Cleanup = !keep

			sum := runner.Run(cmd.Context(), harness.VendorScenarios())
			if err := harness.WriteReport(cmd.OutOrStdout(), sum); err != nil {
				return err
			}
			if !sum.OK() {
				return fmt.Errorf("smoke: %d of %d scenarios failed", sum.Failed, sum.Total())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&keep, "keep", false, "keep the vendors created by the run")
	return cmd
}
