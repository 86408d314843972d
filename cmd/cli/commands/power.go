package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/celestiaorg/shelver/internal/api/v1/client"
	"github.com/celestiaorg/shelver/internal/types"
)

// Flag names
const (
	flagRegion     = "region"
	flagInstanceID = "instance-id"
)

// powerFunc is one of the client power calls
type powerFunc func(c client.Client, ctx context.Context, target client.Target) (types.PowerResponse, error)

// GetStatusCmd returns the status command
func GetStatusCmd() *cobra.Command {
	return newPowerCmd("status", "Show the current state of the instance",
		func(c client.Client, ctx context.Context, t client.Target) (types.PowerResponse, error) {
			return c.Status(ctx, t)
		})
}

// GetStartCmd returns the start command
func GetStartCmd() *cobra.Command {
	return newPowerCmd("start", "Unshelve or boot the instance",
		func(c client.Client, ctx context.Context, t client.Target) (types.PowerResponse, error) {
			return c.Start(ctx, t)
		})
}

// GetStopCmd returns the stop command
func GetStopCmd() *cobra.Command {
	return newPowerCmd("stop", "Shelve the instance",
		func(c client.Client, ctx context.Context, t client.Target) (types.PowerResponse, error) {
			return c.Stop(ctx, t)
		})
}

// GetHealthCmd returns the health command
func GetHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the server is up",
		RunE: func(cmd *cobra.Command, _ []string) error {
			health, err := apiClient.HealthCheck(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to check health: %w", err)
			}
			return printJSON(cmd, health)
		},
	}
}

func newPowerCmd(use, short string, call powerFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			region, _ := cmd.Flags().GetString(flagRegion)
			instanceID, _ := cmd.Flags().GetString(flagInstanceID)

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			resp, err := call(apiClient, ctx, client.Target{Region: region, InstanceID: instanceID})
			if err != nil {
				return fmt.Errorf("failed to %s instance: %w", use, err)
			}
			return printJSON(cmd, resp)
		},
	}

	// Both are optional; the server falls back to its own environment
	cmd.Flags().StringP(flagRegion, "r", "", "OpenStack region, e.g. GRA7")
	cmd.Flags().StringP(flagInstanceID, "i", "", "ID of the instance")

	return cmd
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to format response: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
