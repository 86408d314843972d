package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/celestiaorg/shelver/internal/api/v1/client"
	"github.com/celestiaorg/shelver/internal/api/v1/routes"
)

// flag names
const (
	flagServerAddress = "server-address"
	flagAPIKey        = "api-key"
	flagTimeout       = "timeout"
)

// environment variable names
const (
	envServerAddress = "SHELVER_SERVER_ADDRESS"
	envAPIKey        = "SHELVER_API_KEY"
)

var (
	// apiClient is the shared API client instance
	apiClient client.Client
	// serverAddress holds the target API server address. Flag parsing sets this.
	serverAddress string
	// apiKey is sent as X-API-Key when set
	apiKey string
)

// initClient initializes the API client
func initClient(cmd *cobra.Command) error {
	opts := client.DefaultOptions()
	opts.BaseURL = serverAddress
	opts.APIKey = apiKey
	if timeout, err := cmd.Flags().GetDuration(flagTimeout); err == nil && timeout > 0 {
		opts.Timeout = timeout
	}

	var err error
	apiClient, err = client.NewClient(opts)
	return err
}

// RootCmd represents the base command when called without any subcommands
var RootCmd = NewRootCmd()

// NewRootCmd builds the command tree with fresh flags
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shelverctl",
		Short: "shelverctl - start, stop and inspect an OpenStack instance through shelver",
		Long: `shelverctl talks to a deployed shelver endpoint. Stopping shelves the
instance so it stops billing compute; starting unshelves or boots it again.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Flag > Env Var > Default
			if !cmd.Flags().Changed(flagServerAddress) {
				if envAddr := os.Getenv(envServerAddress); envAddr != "" {
					serverAddress = envAddr
				}
			}
			if !cmd.Flags().Changed(flagAPIKey) {
				if envKey := os.Getenv(envAPIKey); envKey != "" {
					apiKey = envKey
				}
			}

			if serverAddress == "" {
				return fmt.Errorf("server address cannot be empty")
			}
			return initClient(cmd)
		},
	}

	// Set a basic default for the flag. PersistentPreRunE will handle env var override.
	cmd.PersistentFlags().StringVarP(&serverAddress, flagServerAddress, "s", routes.DefaultBaseURL, "Address of the shelver server (env: "+envServerAddress+")")
	cmd.PersistentFlags().StringVarP(&apiKey, flagAPIKey, "k", "", "API key sent as X-API-Key (env: "+envAPIKey+")")
	cmd.PersistentFlags().Duration(flagTimeout, client.DefaultTimeout, "API request timeout")

	cmd.AddCommand(GetStatusCmd())
	cmd.AddCommand(GetStartCmd())
	cmd.AddCommand(GetStopCmd())
	cmd.AddCommand(GetHealthCmd())

	return cmd
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return RootCmd.Execute()
}
