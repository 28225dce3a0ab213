package prompts

const classifySpec = `Respond with a JSON object matching this exact structure:

{
  "category": "<UNSAFE|CONFIDENTIAL|SENSITIVE|PUBLIC>",
  "confidence": 0.0,
  "reasoning": "<explanation>",
  "cited_excerpts": ["<exact quote>"]
}

Field constraints:
- category: Exactly one of the four tier names in upper case.
- confidence: Your certainty in the category, between 0.0 and 1.0.
- reasoning: Brief explanation citing the specific evidence that
  determined the tier.
- cited_excerpts: Exact quotes copied from the document that support
  the category. Copy text verbatim so it can be located in the source.
  Use an empty array when the document is PUBLIC and nothing stands out.

Behavioral constraints:
- Always respond with valid JSON, no markdown fencing
- Never invent excerpts that do not appear in the document
- Citation markers in the document locate text and are not part of it`

const semanticSafetySpec = `Respond with a JSON object matching this exact structure:

{
  "is_safe": true,
  "safety_score": 1.0,
  "violations": ["<category>"],
  "severity": "<low|medium|high|critical>",
  "descriptions": ["<specific violation>"],
  "reasoning": "<explanation>"
}

Field constraints:
- is_safe: false when any violation is found.
- safety_score: 1.0 for completely safe content, lower as violations
  become more severe, 0.0 for the most harmful content.
- violations: Category names from the list above. Empty when safe.
- severity: Overall severity of the violations. low when safe.
- descriptions: One short description per specific violation found.
- reasoning: Detailed explanation of the assessment.

Behavioral constraints:
- Always respond with valid JSON, no markdown fencing
- Use only the category names listed above`

const childSafetySpec = `Respond with a JSON object matching this exact structure:

{
  "age_rating": "<all_ages|13+|17+|18+>",
  "collects_personal_info": false,
  "endangerment_risk": false,
  "concerns": ["<concern>"],
  "reason": "<explanation>"
}

Field constraints:
- age_rating: The youngest audience the content is appropriate for.
- collects_personal_info: true when the content solicits personal
  information from minors.
- endangerment_risk: true when the content could endanger children.
- concerns: Specific child safety concerns. Empty when none.
- reason: Brief explanation.

Behavioral constraints:
- Always respond with valid JSON, no markdown fencing`

var specs = map[Stage]string{
	StageClassify:       classifySpec,
	StageSemanticSafety: semanticSafetySpec,
	StageChildSafety:    childSafetySpec,
}

// Spec returns the hardcoded specification for a stage.
// Specifications define the expected output format and behavioral constraints
// and cannot be overridden.
// Returns ErrInvalidStage if the stage is not recognized.
func Spec(stage Stage) (string, error) {
	text, ok := specs[stage]
	if !ok {
		return "", ErrInvalidStage
	}
	return text, nil
}
