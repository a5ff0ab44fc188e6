package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/skedyul/toolserver/pkg/types"
	"github.com/spf13/cobra"
)

var (
	invokeCmdInput    string
	invokeCmdEstimate bool
)

var invokeToolCmd = &cobra.Command{
	Use:   "invoke <name>",
	Short: "Call a tool, or estimate what calling it would cost",
	Long: "Calls a tool on the toolserver and prints its output and the credits the call cost.\n" +
		"Arguments are supplied as a JSON object with --input (use '-' to read them from stdin).\n" +
		"With --estimate, the tool runs in estimate mode: nothing is counted and the credits shown\n" +
		"are what a real call would cost.",
	Example: `  toolserver invoke calculate --input '{"a": 2, "b": 3, "op": "mul"}'
  toolserver invoke echo --input '{"value": "hello"}' --estimate`,
	Args: cobra.ExactArgs(1),
	RunE: runInvokeTool,
	Annotations: map[string]string{
		"group": string(subCommandGroupBasic),
		"order": "3",
	},
}

func init() {
	invokeToolCmd.Flags().StringVar(&invokeCmdInput, "input", "", "tool arguments as a JSON object, or '-' to read them from stdin")
	invokeToolCmd.Flags().BoolVar(&invokeCmdEstimate, "estimate", false, "estimate the cost of the call instead of executing it")
	rootCmd.AddCommand(invokeToolCmd)
}

// parseToolInput decodes the --input value. An empty value means no arguments.
func parseToolInput(raw string, stdin io.Reader) (map[string]any, error) {
	if raw == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read input from stdin: %w", err)
		}
		raw = string(data)
	}
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	var input map[string]any
	if err := json.Unmarshal([]byte(raw), &input); err != nil {
		return nil, fmt.Errorf("input must be a JSON object: %w", err)
	}
	return input, nil
}

func runInvokeTool(cmd *cobra.Command, args []string) error {
	name := args[0]
	input, err := parseToolInput(invokeCmdInput, cmd.InOrStdin())
	if err != nil {
		return err
	}

	if invokeCmdEstimate {
		est, err := apiClient.Estimate(name, input)
		if err != nil {
			return fmt.Errorf("failed to estimate tool '%s': %w", name, err)
		}
		printJSON(cmd, est.Output)
		cmd.Printf("\nEstimated credits: %v\n", est.Billing.Credits)
		return nil
	}

	res, err := apiClient.CallTool(name, input)
	if err != nil {
		return fmt.Errorf("failed to invoke tool '%s': %w", name, err)
	}
	return printCallResult(cmd, res)
}

func printCallResult(cmd *cobra.Command, res *types.ToolCallResult) error {
	if res.IsError {
		for _, c := range res.Content {
			if text, ok := c["text"].(string); ok {
				cmd.PrintErrln(text)
			}
		}
		return fmt.Errorf("tool call failed")
	}

	if res.StructuredContent != nil {
		printJSON(cmd, res.StructuredContent)
	} else {
		for _, c := range res.Content {
			if text, ok := c["text"].(string); ok {
				cmd.Println(text)
			}
		}
	}
	cmd.Printf("\nCredits: %v\n", res.Billing.Credits)
	if warnings, ok := res.Meta["outputWarnings"]; ok {
		cmd.Printf("Warning: the output does not match the tool's output schema: %v\n", warnings)
	}
	return nil
}

func printJSON(cmd *cobra.Command, v any) {
	j, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		cmd.Println(v)
		return
	}
	cmd.Println(string(j))
}
