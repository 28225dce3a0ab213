package prompts

import (
	"encoding/json"
	"slices"
)

// Stage identifies a model call that a prompt targets.
type Stage string

// Model call stages.
const (
	StageClassify       Stage = "classify"
	StageSemanticSafety Stage = "semantic_safety"
	StageChildSafety    Stage = "child_safety"
)

var stages = []Stage{
	StageClassify,
	StageSemanticSafety,
	StageChildSafety,
}

// Stages returns the list of valid stages.
func Stages() []Stage {
	return stages
}

// UnmarshalJSON validates that the decoded string is a known stage value.
func (s *Stage) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v, err := ParseStage(raw)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// UnmarshalText lets stages key YAML and TOML maps.
func (s *Stage) UnmarshalText(text []byte) error {
	v, err := ParseStage(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseStage validates a string as a known stage.
// Returns ErrInvalidStage if the value is not recognized.
func ParseStage(s string) (Stage, error) {
	v := Stage(s)
	if !slices.Contains(stages, v) {
		return "", ErrInvalidStage
	}
	return v, nil
}
