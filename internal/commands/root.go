// Package commands provides CLI commands for chatai.
package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// Version info (set at build time)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
)

// NewRootCmd builds the command tree
func NewRootCmd(deps *Dependencies) *cobra.Command {
	opts := &queryOptions{}

	rootCmd := &cobra.Command{
		Use:   "chatai [prompt]",
		Short: "Terminal client for a streaming chat API",
		Long: `chatai talks to a chat server that streams model answers. It keeps
named chats on the server, mirrors transcripts locally and renders
answers as markdown in the terminal.

Examples:
  chatai chat                         Pick a chat and talk interactively
  chatai chat notes                   Open (or create) the chat "notes"
  chatai "What is Go?"                Send a single message
  chatai -f prompt.md --chat notes    Read the message from a file
  cat diff.txt | chatai --raw         Read from stdin, print plain text
  chatai "Hello" -o response.md       Save the answer to a file`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			if v, _ := cmd.Flags().GetBool("version"); v {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "chatai %s (built %s)\n", Version, BuildTime)
				return nil
			}

			if opts.file != "" {
				data, err := os.ReadFile(opts.file)
				if err != nil {
					return fmt.Errorf("failed to read file: %w", err)
				}
				return runQuery(cmd, deps, opts, string(data))
			}

			if deps.StdinPiped() {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read stdin: %w", err)
				}
				return runQuery(cmd, deps, opts, string(data))
			}

			if len(args) > 0 {
				return runQuery(cmd, deps, opts, args[0])
			}

			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.model, "model", "m", "", "Model to use (overrides config and persona)")
	rootCmd.PersistentFlags().StringVarP(&opts.persona, "persona", "p", "", "Persona to use")
	rootCmd.Flags().StringVarP(&opts.chat, "chat", "c", "", "Chat to send to (a new chat is created when empty)")
	rootCmd.Flags().StringVarP(&opts.output, "output", "o", "", "Save response to file")
	rootCmd.Flags().StringVarP(&opts.file, "file", "f", "", "Read prompt from file")
	rootCmd.Flags().StringArrayVarP(&opts.attach, "attach", "a", nil, "File to attach (repeatable)")
	rootCmd.Flags().BoolVarP(&opts.raw, "raw", "r", false, "Print the answer as plain text")
	rootCmd.Flags().BoolVar(&opts.noStream, "no-stream", false, "Wait for the whole answer instead of streaming")
	rootCmd.Flags().BoolP("version", "v", false, "Show version and exit")

	rootCmd.AddCommand(NewChatCmd(deps, opts))
	rootCmd.AddCommand(NewChatsCmd(deps))
	rootCmd.AddCommand(NewModelsCmd(deps))
	rootCmd.AddCommand(NewHistoryCmd(deps))
	rootCmd.AddCommand(NewPersonaCmd())
	rootCmd.AddCommand(NewConfigCmd(deps))

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd(NewDependencies()).Execute(); err != nil {
		os.Exit(1)
	}
}
