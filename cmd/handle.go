package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/skedyul/toolserver/internal/builtin"
	"github.com/skedyul/toolserver/internal/logging"
	"github.com/skedyul/toolserver/pkg/server"
	"github.com/skedyul/toolserver/pkg/types"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	handleCmdEvent       string
	handleCmdConfigFile  string
	handleCmdStagePrefix string
)

var handleCmd = &cobra.Command{
	Use:   "handle",
	Short: "Serve a single serverless event",
	Long: "Runs the built-in tools in the serverless compute layer and serves exactly one event.\n" +
		"The event is a JSON object with path, httpMethod (or method), headers,\n" +
		"queryStringParameters (or query), body and isBase64Encoded fields, read from\n" +
		"--event (a file, or '-' for stdin).\n" +
		"The response event is printed to stdout.",
	Example: `  echo '{"path":"/mcp","httpMethod":"POST","body":"{\"protocolVersion\":\"2.0\",\"id\":1,\"method\":\"tools/list\"}"}' | toolserver handle`,
	Args: cobra.NoArgs,
	RunE: runHandle,
	Annotations: map[string]string{
		"group": string(subCommandGroupAdvanced),
		"order": "7",
	},
}

func init() {
	handleCmd.Flags().StringVar(&handleCmdEvent, "event", "-", "file to read the event from, or '-' for stdin")
	handleCmd.Flags().StringVar(
		&handleCmdConfigFile,
		"config",
		"",
		fmt.Sprintf("path to the server configuration file (overrides env var %s)", ConfigFileEnvVar),
	)
	handleCmd.Flags().StringVar(
		&handleCmdStagePrefix,
		"stage-prefix",
		"",
		"deployment stage prefix stripped from event paths before routing, e.g. /prod",
	)
	rootCmd.AddCommand(handleCmd)
}

func readEvent(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read event from stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read event file %s: %w", path, err)
	}
	return data, nil
}

// newServerlessServer builds a serverless server for the built-in tools.
// The compute layer from the configuration is overridden.
func newServerlessServer(c *types.ServerConfig, stagePrefix string, dbConn *gorm.DB, logger *zap.Logger) (*server.Server, error) {
	serverlessConfig := *c
	serverlessConfig.ComputeLayer = types.RuntimeServerless

	registry, err := builtin.NewRegistry()
	if err != nil {
		return nil, err
	}
	s, err := server.New(&server.Options{
		Config:      &serverlessConfig,
		Registry:    registry,
		DB:          dbConn,
		StagePrefix: stagePrefix,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create server: %w", err)
	}
	return s, nil
}

func runHandle(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	logger, err := logging.New(os.Getenv(LogLevelEnvVar), false)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	c, err := loadServerConfig(afero.NewOsFs(), handleCmdConfigFile)
	if err != nil {
		return err
	}
	dbConn, err := openLedger(false)
	if err != nil {
		return err
	}
	s, err := newServerlessServer(c, handleCmdStagePrefix, dbConn, logger)
	if err != nil {
		return err
	}

	event, err := readEvent(handleCmdEvent, cmd.InOrStdin())
	if err != nil {
		return err
	}
	out, err := s.HandleJSON(cmd.Context(), event)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
