package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/diogo/chatai/internal/api"
	apierrors "github.com/diogo/chatai/internal/errors"
	"github.com/diogo/chatai/internal/logging"
	"github.com/diogo/chatai/internal/models"
	"github.com/diogo/chatai/internal/notify"
	"github.com/diogo/chatai/internal/render"
	"github.com/diogo/chatai/internal/session"
	"github.com/diogo/chatai/internal/tui"
)

// NewChatCmd creates the interactive chat command. It shares the model and
// persona flags with the root command.
func NewChatCmd(deps *Dependencies, opts *queryOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat [name]",
		Short: "Start an interactive chat session",
		Long: `Open a chat in the terminal UI. Without a name, a picker lists the
server's chats and can create a new one. A name that does not exist yet
is created.

Press Enter to send, Esc to cancel a streaming answer, and type /help
for the slash commands.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) > 0 {
				name = args[0]
			}
			return runChat(cmd, deps, opts, name)
		},
	}
}

func runChat(cmd *cobra.Command, deps *Dependencies, opts *queryOptions, name string) error {
	cfg, err := deps.LoadConfig()
	if err != nil {
		return err
	}

	// The TUI owns the terminal, so logs go to a file
	log := logging.Discard()
	if logFile, err := logging.OpenLogFile(); err == nil {
		defer logFile.Close()
		log = logging.New(cfg, logFile)
	}

	settings, err := sendSettings(cfg, opts.persona, opts.model)
	if err != nil {
		return err
	}

	client, err := deps.NewClient(cfg, log)
	if err != nil {
		return err
	}
	defer client.Close()

	store := openStore(deps, cfg, cmd.ErrOrStderr())
	if store != nil {
		defer store.Close()
	}

	if name == "" {
		result, err := deps.TUI.RunPicker(client, store)
		if err != nil {
			return err
		}
		if !result.Confirmed {
			return nil
		}
		name = result.ChatName
	}
	if err := models.ValidateChatName(name); err != nil {
		return err
	}

	width := deps.TermWidth()
	renderOpts := render.OptionsFromConfig(cfg, width)
	updates := session.NewChannelPublisher(64)
	notices := tui.NewNotices(16)

	// Live renders land inside the assistant bubble
	ctrl := newController(client, render.NewTerminal(renderOpts.WithWidth(max(width-14, 20))), cfg, settings, log, store,
		session.WithPublisher(updates),
		session.WithNotifier(notify.Multi{notices, notify.NewLogger(log)}),
	)

	if err := openChat(cmd.Context(), client, ctrl, name, log); err != nil {
		return err
	}

	return deps.TUI.RunChat(tui.ChatOptions{
		ChatID:     name,
		Controller: ctrl,
		Updates:    updates,
		Notices:    notices,
		Render:     renderOpts,
	})
}

// openChat loads name into the controller, creating the chat on the server
// when it does not exist.
func openChat(ctx context.Context, client api.ChatAPI, ctrl *session.Controller, name string, log *slog.Logger) error {
	_, err := ctrl.Open(ctx, name)
	if err == nil {
		return nil
	}
	if !errors.Is(err, apierrors.ErrChatNotFound) {
		return fmt.Errorf("failed to open chat: %w", err)
	}

	log.Info("creating chat", "chat", name)
	if _, err := client.CreateChat(ctx, name); err != nil && !errors.Is(err, apierrors.ErrChatExists) {
		return fmt.Errorf("failed to create chat: %w", err)
	}
	return ctrl.NewSession(name)
}
