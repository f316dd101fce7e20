// internal/funnel/suggestion/suggestion.go
package suggestion

import (
	"strings"

	"tulipai-funnel/internal/models"
)

const otherDomainSeparator = ", "

// Apply turns a clicked guide suggestion into a patch for the given step.
// Steps without suggestion semantics yield an empty patch.
func Apply(step models.Step, form models.FormData, suggestion string) models.Patch {
	switch step {
	case models.StepBusinessInfo:
		return models.Patch{Role: models.Ref(suggestion)}

	case models.StepIndustry:
		return models.Patch{Industries: models.Ref(Toggle(form.Industries, suggestion))}

	case models.StepDepartmentDomain:
		tokens := SplitOther(form.OtherBusinessDomain)
		return models.Patch{OtherBusinessDomain: models.Ref(strings.Join(Toggle(tokens, suggestion), otherDomainSeparator))}

	case models.StepChallenges:
		return models.Patch{Challenges: models.Ref(Toggle(form.Challenges, suggestion))}

	case models.StepAiMaturity:
		line := "- " + suggestion
		if form.AiUseCase != "" {
			line = form.AiUseCase + "\n" + line
		}
		return models.Patch{AiUseCase: models.Ref(line)}

	case models.StepSolutions:
		return models.Patch{Solutions: models.Ref(Toggle(form.Solutions, suggestion))}

	case models.StepTimingBudget:
		if isTimeline(suggestion) {
			return models.Patch{Timeline: models.Ref(suggestion)}
		}
		return models.Patch{Budget: models.Ref(models.DigitsOnly(suggestion))}

	default:
		return models.Patch{}
	}
}

// Toggle removes value from set when present, otherwise appends it.
// The input is never modified and the order of other members is kept.
func Toggle(set []string, value string) []string {
	out := make([]string, 0, len(set)+1)
	found := false
	for _, v := range set {
		if v == value {
			found = true
			continue
		}
		out = append(out, v)
	}
	if !found {
		out = append(out, value)
	}
	return out
}

// SplitOther parses the comma-joined otherBusinessDomain field.
func SplitOther(raw string) []string {
	if raw == "" {
		return []string{}
	}
	return strings.Split(raw, otherDomainSeparator)
}

func isTimeline(s string) bool {
	lower := strings.ToLower(s)
	return strings.Contains(lower, "month") || strings.Contains(lower, "asap") || strings.Contains(lower, "year")
}
