// Package prompts composes the system prompts for the model-backed stages
// of a classification. Each prompt joins overridable instructions with a
// fixed output specification, so operators can tune wording without
// breaking the response contract.
package prompts

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Override replaces the default behavior of one stage.
type Override struct {
	Instructions string   `yaml:"instructions"`
	Temperature  *float64 `yaml:"temperature"`
	Disabled     bool     `yaml:"disabled"`
}

type libraryFile struct {
	Version string              `yaml:"version"`
	Prompts map[string]Override `yaml:"prompts"`
}

// Library resolves the prompt for each stage, applying overrides on top
// of the built-in defaults.
type Library struct {
	version   string
	overrides map[Stage]Override
}

// Default returns a library with no overrides.
func Default() *Library {
	return &Library{overrides: map[Stage]Override{}}
}

// LoadLibrary reads a YAML prompt library. An empty path yields Default.
func LoadLibrary(path string) (*Library, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompt library %s: %w", path, err)
	}
	return ParseLibrary(data)
}

// ParseLibrary decodes and validates a YAML prompt library.
func ParseLibrary(data []byte) (*Library, error) {
	var f libraryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidLibrary, err)
	}

	lib := &Library{
		version:   f.Version,
		overrides: make(map[Stage]Override, len(f.Prompts)),
	}

	for name, o := range f.Prompts {
		stage, err := ParseStage(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrInvalidLibrary, name, err)
		}
		if stage == StageClassify && o.Disabled {
			return nil, fmt.Errorf("%w: classify cannot be disabled", ErrInvalidLibrary)
		}
		if stage == StageClassify && o.Temperature != nil {
			return nil, fmt.Errorf("%w: classify temperature is set per pass", ErrInvalidLibrary)
		}
		if t := o.Temperature; t != nil && (*t < 0 || *t > 2) {
			return nil, fmt.Errorf("%w: %s temperature %v outside [0,2]", ErrInvalidLibrary, stage, *t)
		}
		lib.overrides[stage] = o
	}

	return lib, nil
}

// Version returns the library's declared version, if any.
func (l *Library) Version() string {
	return l.version
}

// Enabled reports whether a stage should run.
func (l *Library) Enabled(stage Stage) bool {
	return !l.overrides[stage].Disabled
}

// Compose builds the system prompt for a stage: the active instructions
// followed by the stage's output specification.
func (l *Library) Compose(stage Stage) (string, error) {
	text, err := Instructions(stage)
	if err != nil {
		return "", err
	}

	o := l.overrides[stage]
	if o.Disabled {
		return "", fmt.Errorf("%w: %s", ErrStageDisabled, stage)
	}
	if s := strings.TrimSpace(o.Instructions); s != "" {
		text = s
	}

	spec, _ := Spec(stage)
	return text + "\n\n" + spec, nil
}

// Temperature returns the stage's override temperature, or fallback when
// none is configured.
func (l *Library) Temperature(stage Stage, fallback float64) float64 {
	if t := l.overrides[stage].Temperature; t != nil {
		return *t
	}
	return fallback
}

// ClassifyInput builds the user prompt for one drafting pass over a
// citation-annotated document.
func ClassifyInput(documentID, annotated string, pass int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "VALIDATION PASS: %d\n", pass)
	fmt.Fprintf(&b, "DOCUMENT: %s\n\n", documentID)
	b.WriteString("DOCUMENT CONTENT:\n")
	b.WriteString(annotated)
	return b.String()
}

// ContentInput builds the user prompt for a safety check.
func ContentInput(content string) string {
	return "CONTENT TO ANALYZE:\n" + content
}
