package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/diogo/chatai/internal/history"
	"github.com/diogo/chatai/internal/logging"
	"github.com/diogo/chatai/internal/models"
)

// NewChatsCmd creates the command managing chats on the server
func NewChatsCmd(deps *Dependencies) *cobra.Command {
	chatsCmd := &cobra.Command{
		Use:   "chats",
		Short: "Manage chats on the server",
	}

	chatsCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the server's chats",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChatsList(cmd, deps)
		},
	})
	chatsCmd.AddCommand(&cobra.Command{
		Use:   "create <name>",
		Short: "Create a chat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChatsCreate(cmd, deps, args[0])
		},
	})
	chatsCmd.AddCommand(&cobra.Command{
		Use:   "show <name>",
		Short: "Print a chat's transcript from the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChatsShow(cmd, deps, args[0])
		},
	})

	return chatsCmd
}

func runChatsList(cmd *cobra.Command, deps *Dependencies) error {
	cfg, err := deps.LoadConfig()
	if err != nil {
		return err
	}
	client, err := deps.NewClient(cfg, logging.New(cfg, cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	defer client.Close()

	chats, err := client.ListChats(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list chats: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(chats) == 0 {
		_, _ = fmt.Fprintln(out, "No chats found.")
		return nil
	}

	// Local history supplies titles for chats used from this machine
	local := map[string]*history.Conversation{}
	if store := openStore(deps, cfg, cmd.ErrOrStderr()); store != nil {
		defer store.Close()
		if convs, err := store.List(); err == nil {
			for _, c := range convs {
				local[c.ChatName] = c
			}
		}
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tTITLE\tUPDATED")
	_, _ = fmt.Fprintln(w, "----\t-----\t-------")
	for _, name := range chats {
		title, updated := "", ""
		if c, ok := local[name]; ok {
			if c.Title != name {
				title = truncate(c.Title, 40)
			}
			updated = history.FormatRelativeTime(c.UpdatedAt)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", name, title, updated)
	}
	return w.Flush()
}

func runChatsCreate(cmd *cobra.Command, deps *Dependencies, name string) error {
	if err := models.ValidateChatName(name); err != nil {
		return err
	}
	cfg, err := deps.LoadConfig()
	if err != nil {
		return err
	}
	client, err := deps.NewClient(cfg, logging.New(cfg, cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	defer client.Close()

	info, err := client.CreateChat(cmd.Context(), name)
	if err != nil {
		return fmt.Errorf("failed to create chat: %w", err)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created chat %s (id %s)\n", info.Name, info.ID)
	return nil
}

func runChatsShow(cmd *cobra.Command, deps *Dependencies, name string) error {
	cfg, err := deps.LoadConfig()
	if err != nil {
		return err
	}
	client, err := deps.NewClient(cfg, logging.New(cfg, cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	defer client.Close()

	t, err := client.OpenChat(cmd.Context(), name)
	if err != nil {
		return fmt.Errorf("failed to open chat: %w", err)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Chat: %s\n", t.Info.Name)
	if t.Info.CreatedAt != "" {
		_, _ = fmt.Fprintf(out, "Created: %s\n", t.Info.CreatedAt)
	}
	_, _ = fmt.Fprintf(out, "Messages: %d\n\n", len(t.Messages))
	printMessages(cmd, t.Messages)
	return nil
}

// printMessages prints a transcript, one block per message
func printMessages(cmd *cobra.Command, messages []models.Message) {
	out := cmd.OutOrStdout()
	for _, msg := range messages {
		role := "You"
		if msg.Role == models.RoleAssistant {
			role = "Assistant"
		}
		_, _ = fmt.Fprintf(out, "[%d] %s:\n  %s\n\n", msg.Sequence, role, truncate(msg.Content, 500))
	}
}

// truncate shortens s to at most n runes
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
