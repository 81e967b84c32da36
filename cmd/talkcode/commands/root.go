// Package commands defines all Cobra CLI commands for the talkcode binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/talkcode/talkcode-go/internal/audit"
	"github.com/talkcode/talkcode-go/internal/config"
	"github.com/talkcode/talkcode-go/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "talkcode",
		Short: "Ask questions about a local codebase, answered by an LLM",
		Long: `talkcode indexes a local directory into a vector store and answers
natural language questions about it, grounded in the actual file contents.

Answers stream to stdout and always end with the source files they were
derived from. Two model backends are supported, selected via MODEL_TYPE:
"local" (Ollama) and "openai".

Configuration comes from environment variables or a YAML config file
(~/.talkcode/config.yaml). Environment variables always win.
See 'talkcode --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(cmd.Context(), log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.talkcode/config.yaml)")

	root.AddCommand(
		NewAskCmd(),
		NewChatCmd(),
		NewIndexCmd(),
		NewUpdateCmd(),
		NewHistoryCmd(),
		NewVersionCmd(),
	)

	return root
}
