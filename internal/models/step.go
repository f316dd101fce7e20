// internal/models/step.go
package models

import "fmt"

// Step is one stage of the intake wizard. Steps are strictly ordered.
type Step int

const (
	StepBusinessInfo Step = iota + 1
	StepCompanyProfile
	StepIndustry
	StepDepartmentDomain
	StepChallenges
	StepAiMaturity
	StepSolutions
	StepTimingBudget
	StepSummary
	StepPayment
	StepConfirmation
)

const (
	FirstStep = StepBusinessInfo
	LastStep  = StepConfirmation
)

type stepInfo struct {
	name        string
	title       string
	description string
}

var steps = map[Step]stepInfo{
	StepBusinessInfo:     {"business_info", "Business Info", "Tell us about your company"},
	StepCompanyProfile:   {"company_profile", "Company Profile", "Let us know who you are"},
	StepIndustry:         {"industry", "Industry", "Your field of business"},
	StepDepartmentDomain: {"department_domain", "Your Role", "Your position and focus"},
	StepChallenges:       {"challenges", "Challenges", "Your current pain points"},
	StepAiMaturity:       {"ai_maturity", "AI Readiness", "Your current AI stage"},
	StepSolutions:        {"solutions", "Solutions", "Potential AI opportunities"},
	StepTimingBudget:     {"timing_budget", "Timeline & Budget", "Project scope and scale"},
	StepSummary:          {"summary", "Summary", "Final review and submission"},
	StepPayment:          {"payment", "Payment", "Finalize your request"},
	StepConfirmation:     {"confirmation", "Confirmation", "Request received"},
}

// Valid reports whether s is one of the eleven wizard steps.
func (s Step) Valid() bool {
	return s >= FirstStep && s <= LastStep
}

func (s Step) String() string {
	if info, ok := steps[s]; ok {
		return info.name
	}
	return fmt.Sprintf("step(%d)", int(s))
}

func (s Step) Title() string {
	return steps[s].title
}

func (s Step) Description() string {
	return steps[s].description
}

// StepInfo is the public description of a step, as listed by the API.
type StepInfo struct {
	Step        Step   `json:"step"`
	Name        string `json:"name"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// AllSteps returns every step in order.
func AllSteps() []StepInfo {
	out := make([]StepInfo, 0, int(LastStep))
	for s := FirstStep; s <= LastStep; s++ {
		out = append(out, StepInfo{Step: s, Name: s.String(), Title: s.Title(), Description: s.Description()})
	}
	return out
}
