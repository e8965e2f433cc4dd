package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultPersonas(t *testing.T) {
	personas := DefaultPersonas()

	if len(personas) < 5 {
		t.Errorf("expected at least 5 default personas, got %d", len(personas))
	}

	if personas[0].Name != DefaultPersonaName {
		t.Fatalf("first persona = %s, want %s", personas[0].Name, DefaultPersonaName)
	}
	if personas[0].SystemPrompt != "" {
		t.Error("default persona should have empty system prompt")
	}

	for i, p := range personas {
		if p.Name == "" {
			t.Errorf("persona %d has empty name", i)
		}
		if p.Description == "" {
			t.Errorf("persona %s has empty description", p.Name)
		}
		if err := ValidatePersona(p); err != nil {
			t.Errorf("built-in persona %s invalid: %v", p.Name, err)
		}
	}
}

func TestMergePersonas(t *testing.T) {
	defaults := []Persona{
		{Name: "default", Description: "Default"},
		{Name: "coder", Description: "Coder"},
	}
	custom := []Persona{
		{Name: "coder", Description: "Custom coder"},
		{Name: "poet", Description: "Poet"},
	}

	result := mergePersonas(defaults, custom)

	if len(result) != 3 {
		t.Fatalf("expected 3 personas, got %d", len(result))
	}
	if result[1].Description != "Custom coder" {
		t.Errorf("coder not replaced: %s", result[1].Description)
	}
	if result[2].Name != "poet" {
		t.Errorf("custom persona not appended: %s", result[2].Name)
	}
}

func TestResolveSendSettings(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SystemPrompt = "base prompt"

	t.Run("nil persona", func(t *testing.T) {
		s := ResolveSendSettings(cfg, nil)
		if s.Model != cfg.DefaultModel || s.SystemPrompt != "base prompt" || s.Temperature != cfg.Temperature {
			t.Errorf("ResolveSendSettings(nil) = %+v", s)
		}
	})

	t.Run("empty persona keeps config", func(t *testing.T) {
		s := ResolveSendSettings(cfg, &Persona{Name: "default"})
		if s.SystemPrompt != "base prompt" {
			t.Errorf("SystemPrompt = %q, want base prompt", s.SystemPrompt)
		}
	})

	t.Run("overrides", func(t *testing.T) {
		zero := 0.0
		p := &Persona{Name: "x", SystemPrompt: "persona prompt", Model: "m", Temperature: &zero}
		s := ResolveSendSettings(cfg, p)
		if s.SystemPrompt != "persona prompt" {
			t.Errorf("SystemPrompt = %q", s.SystemPrompt)
		}
		if s.Model != "m" {
			t.Errorf("Model = %q", s.Model)
		}
		if s.Temperature != 0 {
			t.Errorf("Temperature = %v, want 0", s.Temperature)
		}
	})
}

func TestLoadPersonas_NoFile(t *testing.T) {
	setupTestHome(t)

	pc, err := LoadPersonas()
	if err != nil {
		t.Fatalf("LoadPersonas() returned error: %v", err)
	}
	if pc.DefaultPersona != DefaultPersonaName {
		t.Errorf("DefaultPersona = %s, want %s", pc.DefaultPersona, DefaultPersonaName)
	}
	if len(pc.Personas) != len(DefaultPersonas()) {
		t.Errorf("got %d personas, want %d", len(pc.Personas), len(DefaultPersonas()))
	}
}

func TestLoadPersonas_InvalidJSON(t *testing.T) {
	dir := setupTestHome(t)
	if err := os.WriteFile(filepath.Join(dir, "personas.json"), []byte("["), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadPersonas(); err == nil {
		t.Error("expected parse error")
	}
}

func TestAddAndGetPersona(t *testing.T) {
	setupTestHome(t)

	p := Persona{Name: "reviewer", Description: "Code reviewer", SystemPrompt: "Review code."}
	if err := AddPersona(p); err != nil {
		t.Fatalf("AddPersona() returned error: %v", err)
	}

	got, err := GetPersona("reviewer")
	if err != nil {
		t.Fatalf("GetPersona() returned error: %v", err)
	}
	if got.SystemPrompt != "Review code." {
		t.Errorf("SystemPrompt = %q", got.SystemPrompt)
	}

	if err := AddPersona(p); err == nil {
		t.Error("expected duplicate error")
	}

	names, err := ListPersonaNames()
	if err != nil {
		t.Fatal(err)
	}
	if names[len(names)-1] != "reviewer" {
		t.Errorf("last persona = %s, want reviewer", names[len(names)-1])
	}
}

func TestAddPersona_Invalid(t *testing.T) {
	setupTestHome(t)

	if err := AddPersona(Persona{Name: "has space"}); err == nil {
		t.Error("expected validation error")
	}
}

func TestGetPersona_NotFound(t *testing.T) {
	setupTestHome(t)

	if _, err := GetPersona("nope"); err == nil {
		t.Error("expected error for unknown persona")
	}
}

func TestDeletePersona(t *testing.T) {
	setupTestHome(t)

	if err := AddPersona(Persona{Name: "temp", Description: "t"}); err != nil {
		t.Fatal(err)
	}
	if err := SetDefaultPersona("temp"); err != nil {
		t.Fatal(err)
	}
	if err := DeletePersona("temp"); err != nil {
		t.Fatalf("DeletePersona() returned error: %v", err)
	}

	if _, err := GetPersona("temp"); err == nil {
		t.Error("persona still present after delete")
	}

	def, err := GetDefaultPersona()
	if err != nil {
		t.Fatal(err)
	}
	if def.Name != DefaultPersonaName {
		t.Errorf("default after delete = %s, want %s", def.Name, DefaultPersonaName)
	}

	if err := DeletePersona(DefaultPersonaName); err == nil {
		t.Error("expected error deleting default persona")
	}
	if err := DeletePersona("missing"); err == nil {
		t.Error("expected error deleting missing persona")
	}
}

func TestSetDefaultPersona(t *testing.T) {
	setupTestHome(t)

	if err := SetDefaultPersona("coder"); err != nil {
		t.Fatalf("SetDefaultPersona() returned error: %v", err)
	}

	def, err := GetDefaultPersona()
	if err != nil {
		t.Fatal(err)
	}
	if def.Name != "coder" {
		t.Errorf("default = %s, want coder", def.Name)
	}

	if err := SetDefaultPersona("missing"); err == nil {
		t.Error("expected error for unknown persona")
	}
}

func TestValidatePersona(t *testing.T) {
	hot := 2.5
	tests := []struct {
		name    string
		p       Persona
		wantErr bool
	}{
		{"valid", Persona{Name: "ok_name-1"}, false},
		{"empty name", Persona{}, true},
		{"long name", Persona{Name: string(make([]byte, MaxNameLength+1))}, true},
		{"bad chars", Persona{Name: "a/b"}, true},
		{"temperature out of range", Persona{Name: "t", Temperature: &hot}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePersona(tt.p)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePersona() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
