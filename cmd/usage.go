package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/skedyul/toolserver/pkg/types"
	"github.com/spf13/cobra"
)

var usageCmd = &cobra.Command{
	Use:   "usage [tool]",
	Short: "Show the calls and credits recorded in the usage ledger",
	Long: "Shows how many times each tool was called and how many credits the calls cost,\n" +
		"grouped by tool and mode. Pass a tool name to only show that tool.\n" +
		"The server must have been started with a usage ledger.",
	Args: cobra.MaximumNArgs(1),
	RunE: runGetUsage,
	Annotations: map[string]string{
		"group": string(subCommandGroupBasic),
		"order": "5",
	},
}

func init() {
	rootCmd.AddCommand(usageCmd)
}

func runGetUsage(cmd *cobra.Command, args []string) error {
	var toolName string
	if len(args) == 1 {
		toolName = args[0]
	}

	summary, err := apiClient.GetUsage(toolName)
	if err != nil {
		return fmt.Errorf("failed to get usage: %w", err)
	}
	if len(summary.Tools) == 0 {
		cmd.Println("No tool calls have been recorded yet.")
		return nil
	}
	return writeUsageSummary(cmd.OutOrStdout(), summary)
}

func writeUsageSummary(out io.Writer, summary *types.UsageSummary) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TOOL\tMODE\tCALLS\tFAILURES\tCREDITS")
	for _, u := range summary.Tools {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%v\n", u.Tool, u.Mode, u.Calls, u.Failures, u.Credits)
	}
	fmt.Fprintf(w, "TOTAL\t\t%d\t\t%v\n", summary.TotalCalls, summary.TotalCredits)
	return w.Flush()
}
