package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
)

type seedResponse struct {
	Message  string `json:"message"`
	Inserted int    `json:"inserted"`
	Total    int64  `json:"total"`
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the built-in vendor catalog into an empty database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" {
				token = rootOpts.Settings.Token
			}
			return runSeed(cmd, rootOpts, token)
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "admin bearer token (default from config)")
	return cmd
}

func runSeed(cmd *cobra.Command, opts *RootOptions, token string) error {
	url := opts.Settings.APIURL + "/vendors/seed"
	agent := fiber.Post(url)
	if token != "" {
		agent.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	agent.Timeout(30 * time.Second)

	opts.Logger.Debug().Str("url", url).Msg("seeding")
	status, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("seed: %w", errs[0])
	}
	if status != fiber.StatusOK {
		return fmt.Errorf("seed: HTTP %d: %s", status, body)
	}

	var resp seedResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("seed: decode response: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
	return nil
}
