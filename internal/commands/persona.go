package commands

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/diogo/chatai/internal/config"
)

// NewPersonaCmd creates the persona management command
func NewPersonaCmd() *cobra.Command {
	personaCmd := &cobra.Command{
		Use:   "persona",
		Short: "Manage chat personas",
		Long:  `View and manage personas: named system prompts with optional model and temperature.`,
	}

	var (
		addModel       string
		addTemperature string
	)

	personaCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List available personas",
		RunE:  runPersonaList,
	})
	personaCmd.AddCommand(&cobra.Command{
		Use:   "show <name>",
		Short: "Show persona details",
		Args:  cobra.ExactArgs(1),
		RunE:  runPersonaShow,
	})

	addCmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a new persona",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPersonaAdd(cmd, args[0], addModel, addTemperature)
		},
	}
	addCmd.Flags().StringVar(&addModel, "model", "", "Model the persona prefers")
	addCmd.Flags().StringVar(&addTemperature, "temperature", "", "Sampling temperature (0-2)")
	personaCmd.AddCommand(addCmd)

	personaCmd.AddCommand(&cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a persona",
		Args:  cobra.ExactArgs(1),
		RunE:  runPersonaDelete,
	})
	personaCmd.AddCommand(&cobra.Command{
		Use:     "set-default <name>",
		Aliases: []string{"default"},
		Short:   "Set default persona",
		Args:    cobra.ExactArgs(1),
		RunE:    runPersonaSetDefault,
	})

	return personaCmd
}

func runPersonaList(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadPersonas()
	if err != nil {
		return fmt.Errorf("failed to load personas: %w", err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tDESCRIPTION\tDEFAULT")
	_, _ = fmt.Fprintln(w, "----\t-----------\t-------")

	for _, p := range cfg.Personas {
		isDefault := ""
		if p.Name == cfg.DefaultPersona {
			isDefault = "✓"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", p.Name, p.Description, isDefault)
	}

	return w.Flush()
}

func runPersonaShow(cmd *cobra.Command, args []string) error {
	persona, err := config.GetPersona(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Name: %s\n", persona.Name)
	_, _ = fmt.Fprintf(out, "Description: %s\n", persona.Description)
	if persona.Model != "" {
		_, _ = fmt.Fprintf(out, "Preferred Model: %s\n", persona.Model)
	}
	if persona.Temperature != nil {
		_, _ = fmt.Fprintf(out, "Temperature: %g\n", *persona.Temperature)
	}
	_, _ = fmt.Fprintf(out, "\nSystem Prompt:\n%s\n", persona.SystemPrompt)

	return nil
}

func runPersonaAdd(cmd *cobra.Command, name, model, temperature string) error {
	if _, err := config.GetPersona(name); err == nil {
		return fmt.Errorf("persona '%s' already exists", name)
	}

	persona := config.Persona{Name: name, Model: model}
	if temperature != "" {
		t, err := strconv.ParseFloat(temperature, 64)
		if err != nil {
			return fmt.Errorf("invalid temperature %q", temperature)
		}
		persona.Temperature = &t
	}

	out := cmd.OutOrStdout()
	reader := bufio.NewReader(cmd.InOrStdin())

	_, _ = fmt.Fprint(out, "Enter description: ")
	desc, err := reader.ReadString('\n')
	if err != nil {
		return err
	}
	persona.Description = strings.TrimSpace(desc)

	_, _ = fmt.Fprintln(out, "Enter system prompt (end with an empty line):")
	var promptLines []string
	for {
		line, err := reader.ReadString('\n')
		line = strings.TrimRight(line, "\n\r")
		if line == "" {
			break
		}
		promptLines = append(promptLines, line)
		if err != nil {
			break
		}
	}
	persona.SystemPrompt = strings.Join(promptLines, "\n")

	if err := config.AddPersona(persona); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(out, "Persona '%s' created.\n", name)
	return nil
}

func runPersonaDelete(cmd *cobra.Command, args []string) error {
	if err := config.DeletePersona(args[0]); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Persona '%s' deleted.\n", args[0])
	return nil
}

func runPersonaSetDefault(cmd *cobra.Command, args []string) error {
	if err := config.SetDefaultPersona(args[0]); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Default persona set to '%s'.\n", args[0])
	return nil
}
