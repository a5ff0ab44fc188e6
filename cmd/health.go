package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the health of a toolserver",
	Args:  cobra.NoArgs,
	RunE:  runHealth,
	Annotations: map[string]string{
		"group": string(subCommandGroupBasic),
		"order": "4",
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

func runHealth(cmd *cobra.Command, args []string) error {
	h, err := apiClient.Health()
	if err != nil {
		return fmt.Errorf("failed to get health status from %s: %w", apiClient.BaseURL(), err)
	}

	cmd.Printf("Status:   %s\n", h.Status)
	cmd.Printf("Runtime:  %s\n", h.Runtime)
	cmd.Printf("Requests: %d\n", h.Requests)
	cmd.Printf("Tools:    %s\n", strings.Join(h.Tools, ", "))
	return nil
}
