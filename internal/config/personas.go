package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

// DefaultPersonaName is the persona with no system prompt. It cannot be deleted.
const DefaultPersonaName = "default"

// Persona is a named system prompt with optional model and temperature
// overrides for sends.
type Persona struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	SystemPrompt string   `json:"system_prompt"`
	Model        string   `json:"model,omitempty"`
	Temperature  *float64 `json:"temperature,omitempty"`
}

// PersonaConfig stores all personas
type PersonaConfig struct {
	Personas       []Persona `json:"personas"`
	DefaultPersona string    `json:"default_persona,omitempty"`
}

// SendSettings are the per-send values after applying a persona on top of
// the user configuration.
type SendSettings struct {
	Model        string
	SystemPrompt string
	Temperature  float64
}

func temp(v float64) *float64 { return &v }

// DefaultPersonas returns pre-configured personas
func DefaultPersonas() []Persona {
	return []Persona{
		{
			Name:        DefaultPersonaName,
			Description: "No system prompt",
		},
		{
			Name:        "coder",
			Description: "Expert programmer assistant",
			SystemPrompt: `You are an expert software engineer. When answering:
- Prefer short, working code over long explanations
- Use fenced code blocks with the language name
- Point out edge cases and failure modes
- Say so when you are unsure instead of guessing`,
			Temperature: temp(0.1),
		},
		{
			Name:        "writer",
			Description: "Creative writing assistant",
			SystemPrompt: `You are a creative writing assistant. Your goal is to:
- Help with creative writing, storytelling, and content creation
- Keep a consistent tone and style
- Offer alternatives when asked`,
			Temperature: temp(0.9),
		},
		{
			Name:        "analyst",
			Description: "Data and business analyst",
			SystemPrompt: `You are a data and business analyst. You should:
- Analyze information methodically
- Present findings in tables or lists
- Highlight key insights and recommendations`,
		},
		{
			Name:        "teacher",
			Description: "Patient educational assistant",
			SystemPrompt: `You are a patient and thorough teacher. When explaining:
- Break down complex topics into simple parts
- Use analogies and examples
- Adapt explanations to the learner's level`,
			Temperature: temp(0.4),
		},
	}
}

// GetPersonasPath returns the path to the personas file
func GetPersonasPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "personas.json"), nil
}

// LoadPersonas loads the persona configuration. User entries replace
// built-ins of the same name.
func LoadPersonas() (*PersonaConfig, error) {
	path, err := GetPersonasPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &PersonaConfig{
				Personas:       DefaultPersonas(),
				DefaultPersona: DefaultPersonaName,
			}, nil
		}
		return nil, fmt.Errorf("failed to read personas: %w", err)
	}

	var pc PersonaConfig
	if err := json.Unmarshal(data, &pc); err != nil {
		return nil, fmt.Errorf("failed to parse personas: %w", err)
	}
	pc.Personas = mergePersonas(DefaultPersonas(), pc.Personas)

	return &pc, nil
}

// SavePersonas saves the persona configuration
func SavePersonas(pc *PersonaConfig) error {
	configDir, err := EnsureConfigDir()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(pc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal personas: %w", err)
	}

	return os.WriteFile(filepath.Join(configDir, "personas.json"), data, 0o600)
}

// Find returns the persona with the given name
func (pc *PersonaConfig) Find(name string) (*Persona, bool) {
	for i := range pc.Personas {
		if pc.Personas[i].Name == name {
			p := pc.Personas[i]
			return &p, true
		}
	}
	return nil, false
}

// GetPersona returns a persona by name
func GetPersona(name string) (*Persona, error) {
	pc, err := LoadPersonas()
	if err != nil {
		return nil, err
	}
	p, ok := pc.Find(name)
	if !ok {
		return nil, fmt.Errorf("persona '%s' not found", name)
	}
	return p, nil
}

// ListPersonaNames returns the names of all personas
func ListPersonaNames() ([]string, error) {
	pc, err := LoadPersonas()
	if err != nil {
		return nil, err
	}

	names := make([]string, len(pc.Personas))
	for i, p := range pc.Personas {
		names[i] = p.Name
	}
	return names, nil
}

// AddPersona adds a new persona
func AddPersona(p Persona) error {
	if err := ValidatePersona(p); err != nil {
		return err
	}

	pc, err := LoadPersonas()
	if err != nil {
		return err
	}
	if _, ok := pc.Find(p.Name); ok {
		return fmt.Errorf("persona '%s' already exists", p.Name)
	}

	pc.Personas = append(pc.Personas, p)
	return SavePersonas(pc)
}

// DeletePersona removes a persona by name
func DeletePersona(name string) error {
	if name == DefaultPersonaName {
		return fmt.Errorf("cannot delete the default persona")
	}

	pc, err := LoadPersonas()
	if err != nil {
		return err
	}

	kept := pc.Personas[:0]
	found := false
	for _, p := range pc.Personas {
		if p.Name == name {
			found = true
			continue
		}
		kept = append(kept, p)
	}
	if !found {
		return fmt.Errorf("persona '%s' not found", name)
	}

	pc.Personas = kept
	if pc.DefaultPersona == name {
		pc.DefaultPersona = DefaultPersonaName
	}
	return SavePersonas(pc)
}

// SetDefaultPersona sets the default persona
func SetDefaultPersona(name string) error {
	pc, err := LoadPersonas()
	if err != nil {
		return err
	}
	if _, ok := pc.Find(name); !ok {
		return fmt.Errorf("persona '%s' not found", name)
	}

	pc.DefaultPersona = name
	return SavePersonas(pc)
}

// GetDefaultPersona returns the default persona
func GetDefaultPersona() (*Persona, error) {
	pc, err := LoadPersonas()
	if err != nil {
		return nil, err
	}

	name := pc.DefaultPersona
	if name == "" {
		name = DefaultPersonaName
	}
	p, ok := pc.Find(name)
	if !ok {
		return nil, fmt.Errorf("persona '%s' not found", name)
	}
	return p, nil
}

func mergePersonas(defaults, custom []Persona) []Persona {
	result := make([]Persona, len(defaults))
	copy(result, defaults)

	for _, cp := range custom {
		found := false
		for i, dp := range result {
			if dp.Name == cp.Name {
				result[i] = cp
				found = true
				break
			}
		}
		if !found {
			result = append(result, cp)
		}
	}

	return result
}

// ResolveSendSettings layers a persona over the configuration. A nil persona
// leaves the configuration values untouched.
func ResolveSendSettings(cfg Config, p *Persona) SendSettings {
	s := SendSettings{
		Model:        cfg.DefaultModel,
		SystemPrompt: cfg.SystemPrompt,
		Temperature:  cfg.Temperature,
	}
	if p == nil {
		return s
	}
	if p.SystemPrompt != "" {
		s.SystemPrompt = p.SystemPrompt
	}
	if p.Model != "" {
		s.Model = p.Model
	}
	if p.Temperature != nil {
		s.Temperature = *p.Temperature
	}
	return s
}

// Validation constants
const (
	MaxNameLength        = 50
	MaxDescriptionLength = 200
	MaxPromptLength      = 32 * 1024
)

var personaNameRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidatePersona validates a persona's fields
func ValidatePersona(p Persona) error {
	switch {
	case p.Name == "":
		return fmt.Errorf("validation failed: name is required")
	case len(p.Name) > MaxNameLength:
		return fmt.Errorf("validation failed: name too long (max %d characters)", MaxNameLength)
	case !personaNameRe.MatchString(p.Name):
		return fmt.Errorf("validation failed: name must contain only alphanumeric characters, underscores, and hyphens")
	case len(p.Description) > MaxDescriptionLength:
		return fmt.Errorf("validation failed: description too long (max %d characters)", MaxDescriptionLength)
	case len(p.SystemPrompt) > MaxPromptLength:
		return fmt.Errorf("validation failed: system prompt too long (max %d characters)", MaxPromptLength)
	case p.Temperature != nil && (*p.Temperature < 0 || *p.Temperature > 2):
		return fmt.Errorf("validation failed: temperature must be between 0 and 2")
	}
	return nil
}
