package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/charmbracelet/lipgloss"
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

var (
	colorText     = lipgloss.Color("#c0caf5")
	colorTextDim  = lipgloss.Color("#565f89")
	colorTextMute = lipgloss.Color("#3b4261")
	colorSuccess  = lipgloss.Color("#9ece6a")
	colorPrimary  = lipgloss.Color("#7aa2f7")
)

// Styles matching the chat TUI
var (
	assistantLabelStyle = lipgloss.NewStyle().
				Foreground(colorPrimary).
				Bold(true)

	assistantBubbleStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(colorPrimary).
				Foreground(colorText).
				Padding(0, 1).
				MarginTop(1).
				MarginBottom(1)

	successStyle = lipgloss.NewStyle().Foreground(colorSuccess)
	dimStyle     = lipgloss.NewStyle().Foreground(colorTextDim)
)

// queryOptions are the flags of a one-shot query
type queryOptions struct {
	chat     string
	model    string
	file     string
	attach   []string
	output   string
	raw      bool
	persona  string
	noStream bool
}

// wholeResponse serves a non-streamed send as a single chunk
type wholeResponse struct {
	api.ChatAPI
}

func (w wholeResponse) OpenStream(ctx context.Context, req models.SendRequest) (models.ChunkSource, error) {
	text, err := w.Send(ctx, req)
	if err != nil {
		return nil, err
	}
	return api.NewSliceSource([]string{text}, nil), nil
}

// streamPrinter writes each update's new text as it arrives
type streamPrinter struct {
	w       io.Writer
	printed int
	last    byte
}

func (p *streamPrinter) Publish(u session.Update) {
	if len(u.Raw) <= p.printed {
		return
	}
	delta := u.Raw[p.printed:]
	_, _ = io.WriteString(p.w, delta)
	p.printed = len(u.Raw)
	p.last = delta[len(delta)-1]
}

// finish ends the output with a newline
func (p *streamPrinter) finish() {
	if p.printed > 0 && p.last != '\n' {
		_, _ = io.WriteString(p.w, "\n")
	}
}

// runQuery sends a single message and prints the answer. The answer streams
// to stdout unless stdout is a terminal, where it is rendered once complete.
func runQuery(cmd *cobra.Command, deps *Dependencies, opts *queryOptions, prompt string) error {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" && len(opts.attach) == 0 {
		return fmt.Errorf("prompt cannot be empty")
	}
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

	cfg, err := deps.LoadConfig()
	if err != nil {
		return err
	}
	log := logging.New(cfg, stderr)

	settings, err := sendSettings(cfg, opts.persona, opts.model)
	if err != nil {
		return err
	}

	attachments := make([]models.Attachment, 0, len(opts.attach))
	for _, path := range opts.attach {
		a, err := api.LoadAttachment(path)
		if err != nil {
			return fmt.Errorf("failed to load attachment: %w", err)
		}
		attachments = append(attachments, a)
	}

	client, err := deps.NewClient(cfg, log)
	if err != nil {
		return err
	}
	defer client.Close()

	store := openStore(deps, cfg, stderr)
	if store != nil {
		defer store.Close()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	name := opts.chat
	if name == "" {
		name = tui.NewChatName()
		_, _ = fmt.Fprintln(stderr, dimStyle.Render("Chat: "+name))
	}
	if _, err := client.CreateChat(ctx, name); err != nil && !errors.Is(err, apierrors.ErrChatExists) {
		return fmt.Errorf("failed to create chat: %w", err)
	}

	var transport session.Transport = client
	if opts.noStream {
		transport = wholeResponse{client}
	}

	decorated := deps.IsTerminal() && !opts.raw && opts.output == ""
	// Warnings reach the terminal; everything else only the log
	warnings := notify.NewWriter(stderr)
	extra := []session.Option{session.WithNotifier(notify.Multi{
		notify.NewLogger(log),
		notify.SinkFunc(func(kind notify.Kind, message string) {
			if kind == notify.Warning {
				warnings.Report(kind, message)
			}
		}),
	})}
	var printer *streamPrinter
	if !decorated && opts.output == "" {
		printer = &streamPrinter{w: stdout}
		extra = append(extra, session.WithPublisher(printer))
	}

	ctrl := newController(transport, render.Plain{}, cfg, settings, log, store, extra...)
	if _, err := ctrl.Open(ctx, name); err != nil {
		return fmt.Errorf("failed to open chat: %w", err)
	}
	log.Debug("query", "chat", name, "model", settings.Model, "attachments", len(attachments))

	var spin *spinner
	if decorated {
		spin = newSpinner(stderr, "Waiting for "+settings.Model)
		spin.start()
	}

	msg, sendErr := ctrl.Send(ctx, name, prompt, attachments)
	if spin != nil {
		if msg == nil {
			spin.stopWithError()
		} else {
			spin.stopWithSuccess("Done")
		}
	}
	if printer != nil {
		printer.finish()
	}
	if msg == nil {
		if sendErr != nil {
			_, _ = fmt.Fprintln(stderr, tui.FormatError(sendErr))
			return sendErr
		}
		_, _ = fmt.Fprintln(stderr, "Cancelled")
		return nil
	}

	text := msg.Content
	if cfg.CopyToClipboard {
		if err := deps.Clipboard(text); err != nil {
			_, _ = fmt.Fprintln(stderr, notify.Format(notify.Warning, "Failed to copy to clipboard: "+err.Error()))
		} else {
			_, _ = fmt.Fprintln(stderr, successStyle.Render("✓ Copied to clipboard"))
		}
	}

	switch {
	case opts.output != "":
		if err := os.WriteFile(opts.output, []byte(text), 0o644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		_, _ = fmt.Fprintln(stderr, successStyle.Render("✓ Response saved to "+opts.output))
	case decorated:
		printBubble(stdout, text, deps.TermWidth(), render.OptionsFromConfig(cfg, 0))
	}

	return sendErr
}

// printBubble renders markdown into the assistant bubble used by the TUI
func printBubble(w io.Writer, text string, termWidth int, opts render.Options) {
	bubbleWidth := min(max(termWidth-4, 40), 120)
	contentWidth := bubbleWidth - 4

	rendered, err := render.Markdown(text, opts.WithWidth(contentWidth))
	if err != nil {
		rendered = text
	}
	rendered = strings.TrimRight(rendered, "\n")

	_, _ = fmt.Fprintln(w, assistantLabelStyle.Render("✦ Assistant"))
	_, _ = fmt.Fprintln(w, assistantBubbleStyle.Width(bubbleWidth).Render(rendered))
}
