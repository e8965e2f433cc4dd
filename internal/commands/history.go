package commands

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/diogo/chatai/internal/history"
	"github.com/diogo/chatai/internal/render"
)

// NewHistoryCmd creates the command managing local transcript history
func NewHistoryCmd(deps *Dependencies) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Manage conversation history",
		Long: `View and manage the transcripts saved on this machine.

Conversations can be referenced by:
` + history.ListAliases(),
	}

	var (
		exportFormat string
		exportOutput string
		searchBody   bool
	)

	historyCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all conversations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, deps, runHistoryList)
		},
	})
	historyCmd.AddCommand(&cobra.Command{
		Use:   "show <ref>",
		Short: "Show a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, deps, func(cmd *cobra.Command, store history.Backend) error {
				return runHistoryShow(cmd, store, args[0])
			})
		},
	})
	historyCmd.AddCommand(&cobra.Command{
		Use:   "delete <ref>",
		Short: "Delete a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, deps, func(cmd *cobra.Command, store history.Backend) error {
				return runHistoryDelete(cmd, store, args[0])
			})
		},
	})

	exportCmd := &cobra.Command{
		Use:   "export <ref>",
		Short: "Export a conversation as markdown, JSON or HTML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, deps, func(cmd *cobra.Command, store history.Backend) error {
				return runHistoryExport(cmd, store, args[0], exportFormat, exportOutput)
			})
		},
	}
	exportCmd.Flags().StringVarP(&exportFormat, "format", "F", "md", "Export format: md, json or html")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write to file instead of stdout")
	historyCmd.AddCommand(exportCmd)

	searchCmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search conversation titles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, deps, func(cmd *cobra.Command, store history.Backend) error {
				return runHistorySearch(cmd, store, args[0], searchBody)
			})
		},
	}
	searchCmd.Flags().BoolVar(&searchBody, "content", false, "Search message content too")
	historyCmd.AddCommand(searchCmd)

	historyCmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete all conversations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, deps, func(cmd *cobra.Command, store history.Backend) error {
				if err := store.ClearAll(); err != nil {
					return fmt.Errorf("failed to clear history: %w", err)
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "All conversations deleted.")
				return nil
			})
		},
	})

	return historyCmd
}

// withStore opens the configured history backend around fn
func withStore(cmd *cobra.Command, deps *Dependencies, fn func(*cobra.Command, history.Backend) error) error {
	cfg, err := deps.LoadConfig()
	if err != nil {
		return err
	}
	store, err := deps.OpenStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer store.Close()
	return fn(cmd, store)
}

func runHistoryList(cmd *cobra.Command, store history.Backend) error {
	conversations, err := store.List()
	if err != nil {
		return fmt.Errorf("failed to list conversations: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(conversations) == 0 {
		_, _ = fmt.Fprintln(out, "No conversations found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "#\tCHAT\tTITLE\tMODEL\tMESSAGES\tUPDATED")
	_, _ = fmt.Fprintln(w, "-\t----\t-----\t-----\t--------\t-------")

	for i, conv := range conversations {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\n",
			i+1, conv.ChatName, truncate(conv.Title, 40), conv.Model, len(conv.Messages),
			history.FormatRelativeTime(conv.UpdatedAt))
	}

	return w.Flush()
}

func runHistoryShow(cmd *cobra.Command, store history.Backend, ref string) error {
	conv, err := history.NewResolver(store).ResolveWithInfo(ref)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Chat: %s\n", conv.ChatName)
	_, _ = fmt.Fprintf(out, "Title: %s\n", conv.Title)
	_, _ = fmt.Fprintf(out, "Model: %s\n", conv.Model)
	_, _ = fmt.Fprintf(out, "Created: %s\n", conv.CreatedAt.Format("2006-01-02 15:04:05"))
	_, _ = fmt.Fprintf(out, "Updated: %s\n", conv.UpdatedAt.Format("2006-01-02 15:04:05"))
	_, _ = fmt.Fprintf(out, "Messages: %d\n\n", len(conv.Messages))

	printMessages(cmd, conv.Messages)
	return nil
}

func runHistoryDelete(cmd *cobra.Command, store history.Backend, ref string) error {
	name, err := history.NewResolver(store).Resolve(ref)
	if err != nil {
		return err
	}
	if err := store.Delete(name); err != nil {
		return fmt.Errorf("failed to delete: %w", err)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted conversation: %s\n", name)
	return nil
}

func runHistoryExport(cmd *cobra.Command, store history.Backend, ref, format, output string) error {
	conv, err := history.NewResolver(store).ResolveWithInfo(ref)
	if err != nil {
		return err
	}

	var data []byte
	if strings.EqualFold(format, "html") {
		page, err := render.NewHTML().Render(history.ExportToMarkdown(conv))
		if err != nil {
			return fmt.Errorf("failed to export: %w", err)
		}
		data = []byte(page)
	} else {
		f, err := history.ParseExportFormat(format)
		if err != nil {
			return err
		}
		if data, err = history.Export(conv, f); err != nil {
			return fmt.Errorf("failed to export: %w", err)
		}
	}

	if output == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	_, _ = fmt.Fprintln(cmd.ErrOrStderr(), successStyle.Render("✓ Exported "+conv.ChatName+" to "+output))
	return nil
}

func runHistorySearch(cmd *cobra.Command, store history.Backend, query string, content bool) error {
	results, err := history.Search(store, query, content)
	if err != nil {
		return fmt.Errorf("failed to search: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(results) == 0 {
		_, _ = fmt.Fprintln(out, "No matches.")
		return nil
	}
	for _, r := range results {
		_, _ = fmt.Fprintf(out, "%s\t%s\n", r.Conversation.ChatName, r.Conversation.Title)
		if r.MatchField == "content" {
			_, _ = fmt.Fprintf(out, "  #%d %s\n", r.MatchIndex, r.MatchSnippet)
		}
	}
	return nil
}
