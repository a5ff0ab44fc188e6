// Package cmd implements the toolserver command line.
package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/skedyul/toolserver/client"
	"github.com/skedyul/toolserver/pkg/version"
	"github.com/spf13/cobra"
)

const (
	ServerURLEnvVar  = "TOOLSERVER_URL"
	ServerURLDefault = "http://127.0.0.1:8080"
)

// subCommandGroup decides under which heading a command is listed in the help output.
type subCommandGroup string

const (
	subCommandGroupBasic    subCommandGroup = "basic"
	subCommandGroupAdvanced subCommandGroup = "advanced"
)

var serverURL string

// apiClient talks to a running server. It is initialized before any subcommand runs.
var apiClient *client.Client

var rootCmd = &cobra.Command{
	Use:   "toolserver",
	Short: "Serve tools over HTTP, on a dedicated host or as a serverless function",
	Long: "toolserver exposes a set of tools as a remotely invokable service.\n" +
		"Callers submit a tool name and arguments; toolserver validates the arguments, runs the tool\n" +
		"and returns its output along with the credits the call cost.",
	Version:       version.GetVersion(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		apiClient = client.NewClient(getServerURL(), nil)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&serverURL,
		"server-url",
		"",
		fmt.Sprintf("base URL of the toolserver to talk to (overrides env var %s, default %s)", ServerURLEnvVar, ServerURLDefault),
	)
	cobra.EnableCommandSorting = false
}

// Execute runs the root command.
func Execute() error {
	organizeCommands()
	return rootCmd.ExecuteContext(context.Background())
}

// getServerURL returns the base URL of the server that remote commands talk to.
// precedence: command line flag > environment variable > default
func getServerURL() string {
	u := serverURL
	if u == "" {
		u = os.Getenv(ServerURLEnvVar)
	}
	if u == "" {
		u = ServerURLDefault
	}
	return u
}

// organizeCommands lists the subcommands under their "group" annotation, sorted by their "order" annotation.
func organizeCommands() {
	rootCmd.AddGroup(
		&cobra.Group{ID: string(subCommandGroupBasic), Title: "Basic Commands:"},
		&cobra.Group{ID: string(subCommandGroupAdvanced), Title: "Advanced Commands:"},
	)

	cmds := append([]*cobra.Command(nil), rootCmd.Commands()...)
	sort.SliceStable(cmds, func(i, j int) bool {
		return commandOrder(cmds[i]) < commandOrder(cmds[j])
	})
	rootCmd.RemoveCommand(cmds...)
	for _, c := range cmds {
		switch g := subCommandGroup(c.Annotations["group"]); g {
		case subCommandGroupBasic, subCommandGroupAdvanced:
			c.GroupID = string(g)
		}
		rootCmd.AddCommand(c)
	}
}

func commandOrder(c *cobra.Command) int {
	n, err := strconv.Atoi(c.Annotations["order"])
	if err != nil {
		return 1 << 30
	}
	return n
}
