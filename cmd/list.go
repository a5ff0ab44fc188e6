package cmd

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/skedyul/toolserver/pkg/types"
	"github.com/spf13/cobra"
)

var listToolsCmdSchemas bool

var listToolsCmd = &cobra.Command{
	Use:   "list",
	Short: "List the tools served by a toolserver",
	Long: "Lists every tool served by the toolserver, in registry order.\n" +
		"Use --schemas to also print each tool's input parameters.",
	Args: cobra.NoArgs,
	RunE: runListTools,
	Annotations: map[string]string{
		"group": string(subCommandGroupBasic),
		"order": "2",
	},
}

func init() {
	listToolsCmd.Flags().BoolVar(&listToolsCmdSchemas, "schemas", false, "print the input parameters of each tool")
	rootCmd.AddCommand(listToolsCmd)
}

func runListTools(cmd *cobra.Command, args []string) error {
	tools, err := apiClient.ListTools()
	if err != nil {
		return fmt.Errorf("failed to list tools: %w", err)
	}
	if len(tools) == 0 {
		cmd.Println("There are no tools on this server.")
		return nil
	}

	for i, t := range tools {
		cmd.Printf("%d. %s\n", i+1, t.Name)
		if t.Description != "" {
			cmd.Println(t.Description)
		}
		if listToolsCmdSchemas {
			printInputParameters(cmd, &t)
		}
		cmd.Println()
	}
	return nil
}

// printInputParameters prints the properties of a tool's input schema, marking which ones are required.
func printInputParameters(cmd *cobra.Command, t *types.ToolDescriptor) {
	if t.InputSchema == nil || len(t.InputSchema.Properties) == 0 {
		cmd.Println("This tool does not require any input parameters.")
		return
	}

	cmd.Println()
	cmd.Println("Input Parameters:")

	names := make([]string, 0, len(t.InputSchema.Properties))
	for k := range t.InputSchema.Properties {
		names = append(names, k)
	}
	slices.Sort(names)

	for _, k := range names {
		requiredOrOptional := "optional"
		if slices.Contains(t.InputSchema.Required, k) {
			requiredOrOptional = "required"
		}

		boundary := strings.Repeat("=", len(k)+len(requiredOrOptional)+20)

		cmd.Println(boundary)
		cmd.Printf("%s (%s)\n", k, requiredOrOptional)

		j, err := json.MarshalIndent(t.InputSchema.Properties[k], "", "  ")
		if err != nil {
			// Simply print the raw object if we fail to marshal it
			cmd.Println(t.InputSchema.Properties[k])
		} else {
			cmd.Println(string(j))
		}
		cmd.Println(boundary)
	}
}
