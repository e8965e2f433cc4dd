package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/atotto/clipboard"
	"golang.org/x/term"

	"github.com/diogo/chatai/internal/api"
	"github.com/diogo/chatai/internal/config"
	"github.com/diogo/chatai/internal/history"
	"github.com/diogo/chatai/internal/render"
	"github.com/diogo/chatai/internal/session"
	"github.com/diogo/chatai/internal/tui"
)

// TUIInterface defines the methods required from the TUI package.
type TUIInterface interface {
	RunPicker(lister tui.ChatLister, local history.Backend) (tui.PickerResult, error)
	RunChat(opts tui.ChatOptions) error
}

// Dependencies holds the external dependencies for the commands.
// This allows for dependency injection and easier testing.
type Dependencies struct {
	LoadConfig func() (config.Config, error)

	// NewClient builds the chat API client for a configuration.
	NewClient func(cfg config.Config, log *slog.Logger) (api.ChatAPI, error)

	// OpenStore opens local transcript history.
	OpenStore func(cfg config.Config) (history.Backend, error)

	// TUI is the terminal user interface.
	TUI TUIInterface

	Clipboard  func(text string) error
	IsTerminal func() bool
	StdinPiped func() bool
	TermWidth  func() int
}

// DefaultTUI is the production implementation of TUIInterface.
type DefaultTUI struct{}

func (d *DefaultTUI) RunPicker(lister tui.ChatLister, local history.Backend) (tui.PickerResult, error) {
	return tui.RunPicker(lister, local)
}

func (d *DefaultTUI) RunChat(opts tui.ChatOptions) error {
	return tui.RunChat(opts)
}

// NewDependencies creates a new Dependencies struct with default implementations.
func NewDependencies() *Dependencies {
	return &Dependencies{
		LoadConfig: config.LoadConfig,
		NewClient:  newAPIClient,
		OpenStore:  history.Open,
		TUI:        &DefaultTUI{},
		Clipboard:  clipboard.WriteAll,
		IsTerminal: isStdoutTTY,
		StdinPiped: stdinPiped,
		TermWidth:  getTerminalWidth,
	}
}

func newAPIClient(cfg config.Config, log *slog.Logger) (api.ChatAPI, error) {
	client, err := api.NewClient(
		api.WithBaseURL(cfg.BaseURL),
		api.WithModel(cfg.DefaultModel),
		api.WithTimeout(time.Duration(cfg.TimeoutSeconds)*time.Second),
		api.WithLogger(log),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return client, nil
}

// openStore opens history, warning on stderr and carrying on without it
// when the store cannot be opened.
func openStore(deps *Dependencies, cfg config.Config, stderr io.Writer) history.Backend {
	store, err := deps.OpenStore(cfg)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Warning: history disabled: %v\n", err)
		return nil
	}
	return store
}

// sendSettings resolves the persona (flag, then config, then the default
// persona) and the model flag into per-send values.
func sendSettings(cfg config.Config, personaName, modelFlag string) (config.SendSettings, error) {
	if personaName == "" {
		personaName = cfg.Persona
	}

	var persona *config.Persona
	if personaName != "" {
		p, err := config.GetPersona(personaName)
		if err != nil {
			return config.SendSettings{}, fmt.Errorf("failed to load persona '%s': %w", personaName, err)
		}
		persona = p
	} else if p, err := config.GetDefaultPersona(); err == nil {
		persona = p
	}

	s := config.ResolveSendSettings(cfg, persona)
	if modelFlag != "" {
		s.Model = modelFlag
	}
	return s, nil
}

// newController builds a session controller for the resolved settings
func newController(transport session.Transport, renderer render.Renderer, cfg config.Config, s config.SendSettings, log *slog.Logger, store history.Backend, extra ...session.Option) *session.Controller {
	opts := []session.Option{
		session.WithModel(s.Model),
		session.WithSystemPrompt(s.SystemPrompt),
		session.WithTemperature(s.Temperature),
		session.WithRenderRate(cfg.RenderFPS),
		session.WithLogger(log),
	}
	if store != nil {
		opts = append(opts, session.WithStore(store))
	}
	return session.New(transport, renderer, append(opts, extra...)...)
}

// getTerminalWidth returns the terminal width or a default value
func getTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}

// isStdoutTTY returns true if stdout is connected to a terminal
func isStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func stdinPiped() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}
