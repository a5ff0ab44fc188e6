package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/skedyul/toolserver/internal/builtin"
	"github.com/skedyul/toolserver/pkg/tool"
	"github.com/skedyul/toolserver/pkg/types"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var validateCmdConfigFile string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the server configuration and the tools it would serve",
	Long: "Loads the server configuration and the built-in tools without starting anything,\n" +
		"then reports the compute layer, the server metadata and the schemas each tool declares.\n" +
		"Exits with an error if the configuration is invalid.",
	Args: cobra.NoArgs,
	RunE: runValidate,
	Annotations: map[string]string{
		"group": string(subCommandGroupAdvanced),
		"order": "6",
	},
}

func init() {
	validateCmd.Flags().StringVar(
		&validateCmdConfigFile,
		"config",
		"",
		fmt.Sprintf("path to the server configuration file (overrides env var %s)", ConfigFileEnvVar),
	)
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	c, err := loadServerConfig(afero.NewOsFs(), validateCmdConfigFile)
	if err != nil {
		return err
	}
	registry, err := builtin.NewRegistry()
	if err != nil {
		return err
	}
	return writeValidationReport(cmd.OutOrStdout(), c, registry)
}

func writeValidationReport(out io.Writer, c *types.ServerConfig, registry *tool.Registry) error {
	fmt.Fprintln(out, "Configuration is valid.")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Compute layer: %s\n", c.ComputeLayer)
	fmt.Fprintf(out, "Name:          %s\n", c.Metadata.Name)
	fmt.Fprintf(out, "Version:       %s\n", c.Metadata.Version)
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Tools (%d):\n", registry.Len())

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  NAME\tKEY\tINPUT SCHEMA\tOUTPUT SCHEMA")
	for _, t := range registry.Tools() {
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n", t.Name, t.Key, yesNo(t.InputSchema != nil), yesNo(t.OutputSchema != nil))
	}
	return w.Flush()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
