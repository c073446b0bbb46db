// Package commands implements the webdevchat command line.
package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/hupe1980/webdevchat/config"
	"github.com/hupe1980/webdevchat/logging"
)

// Version is set at build time.
var Version = "0.1.0"

type rootFlags struct {
	configPath string
	logLevel   string
	logFormat  string
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "webdevchat",
		Short: "Web development chat with a triage agent and specialist personas",
		Long: `webdevchat answers web development questions. A triage agent picks the
most suitable specialist persona for each message and that persona answers.

Set OPENAI_API_KEY (or ANTHROPIC_API_KEY with provider.name: anthropic) before
asking questions.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Path to a YAML config file")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn or error (overrides config)")
	cmd.PersistentFlags().StringVar(&flags.logFormat, "log-format", "", "Log format: text or json (overrides config)")

	cmd.AddCommand(
		newAskCommand(flags),
		newChatCommand(flags),
		newServeCommand(flags),
		newPersonasCommand(flags),
		newVersionCommand(),
	)
	return cmd
}

// Execute runs the root command and prints any error to stderr.
func Execute() error {
	err := NewRootCommand().Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

// load reads the configuration and builds the process logger from it.
func (f *rootFlags) load(stderr io.Writer) (*config.Config, logging.Logger, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, nil, err
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	if f.logFormat != "" {
		cfg.Log.Format = f.logFormat
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}
	logger := logging.New(logging.Config{
		Level:     level,
		Format:    cfg.Log.Format,
		Output:    stderr,
		Component: "webdevchat",
	})
	return cfg, logger, nil
}
