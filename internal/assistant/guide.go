// internal/assistant/guide.go
package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"tulipai-funnel/internal/models"
)

const (
	FallbackGuideText = "I'm having a little trouble thinking of guidance right now. Please focus on the questions, and I'll catch up when I can."
	DefaultGuideText  = "Let's continue building your AI proposal."

	guideSystemPrompt = `You are a helpful assistant who MUST return a valid JSON object in this exact format, with NO markdown formatting or code block markers:
{
  "guideText": "2-4 sentences (35-60 words) of guidance text",
  "suggestions": ["suggestion 1", "suggestion 2", "suggestion 3", "suggestion 4"]
}
Each suggestion should be concise and actionable. Return ONLY the JSON object, no other text or formatting.`
)

var initialTexts = map[models.Step]string{
	models.StepBusinessInfo:     "Let's start with the basics. This information helps us understand your company context.",
	models.StepCompanyProfile:   "We can analyze your website to generate a company summary, which saves you time.",
	models.StepIndustry:         "Select your primary industries. This helps us tailor use cases and solutions specific to your field.",
	models.StepDepartmentDomain: "Help us understand your position and the areas of the business you focus on.",
	models.StepChallenges:       "What are the primary pain points you're looking to solve? This is crucial for matching you with the right AI tools.",
	models.StepAiMaturity:       "Your experience with AI helps us understand the best starting point for our collaboration.",
	models.StepSolutions:        "Based on your challenges, here are some solutions that might be a good fit. Our AI can suggest options tailored to you.",
	models.StepTimingBudget:     "Understanding your timeline and budget helps us propose a realistic and effective project scope.",
	models.StepSummary:          "Please review all your selections before proceeding to the final step.",
	models.StepPayment:          "Finalize your request to receive your tailored proposal.",
	models.StepConfirmation:     "Your request has been submitted successfully.",
}

var staticGuides = map[models.Step]string{
	models.StepBusinessInfo:     "Let's start with the basics. This information helps us understand your company context and ensures our proposal reaches the right person.",
	models.StepCompanyProfile:   "Please review the auto-generated summary. Correcting any errors here is important, as we use this to understand your core business. We can always regenerate it if needed.",
	models.StepDepartmentDomain: "Select the business domains you work with. Your choices help us understand which areas of the business could benefit most from AI implementation. Consider both your direct responsibilities and areas you collaborate with.",
	models.StepAiMaturity:       "Your current experience with AI is a key factor. It helps us determine the complexity of the proposed solution and the amount of support you might need, ensuring the project is a success from day one.",
	models.StepTimingBudget:     "Understanding your desired timeline and budget is crucial for scoping a project that delivers maximum value. This allows us to propose a realistic plan that aligns with your financial and strategic goals.",
	models.StepSummary:          "Please review all your selections. This is the final step before payment. Once you submit and complete payment, we'll draft a detailed, personalized AI proposal and send it to your email within 3 business days.",
}

// InitialText is the placeholder shown while a step's guide is loading.
func InitialText(step models.Step) string {
	if text, ok := initialTexts[step]; ok {
		return text
	}
	return DefaultGuideText
}

func (s *Service) InitialText(step models.Step) string {
	return InitialText(step)
}

// FallbackGuide is returned when the model answers with something unusable.
func FallbackGuide() models.Guide {
	return models.Guide{Text: FallbackGuideText, Suggestions: []string{}}
}

// FetchGuide returns the guide for step. Static steps never call the model.
// Transport failures are returned as errors; a malformed answer yields
// FallbackGuide.
func (s *Service) FetchGuide(ctx context.Context, step models.Step, form models.FormData) (models.Guide, error) {
	if text, ok := staticGuides[step]; ok {
		return models.Guide{Text: text, Suggestions: []string{}}, nil
	}

	prompt, ok := guidePrompt(step, form)
	if !ok {
		if step == models.StepChallenges {
			return FallbackGuide(), nil
		}
		return models.Guide{Text: DefaultGuideText, Suggestions: []string{}}, nil
	}

	raw, err := s.llm.Generate(ctx, Request{
		Purpose: purposeGuide,
		System:  guideSystemPrompt,
		Prompt:  prompt,
	})
	if err != nil {
		return models.Guide{}, err
	}

	guide, ok := ParseGuide(raw)
	if !ok {
		s.logger.Warn("unusable guide response", map[string]interface{}{
			"step": step.String(),
			"raw":  raw,
		})
		return FallbackGuide(), nil
	}
	return guide, nil
}

// ParseGuide decodes a {guideText, suggestions} object, tolerating code
// fences around it.
func ParseGuide(raw string) (models.Guide, bool) {
	var parsed struct {
		GuideText   string    `json:"guideText"`
		Suggestions *[]string `json:"suggestions"`
	}
	if err := json.Unmarshal([]byte(StripCodeFences(raw)), &parsed); err != nil {
		return models.Guide{}, false
	}
	if strings.TrimSpace(parsed.GuideText) == "" || parsed.Suggestions == nil {
		return models.Guide{}, false
	}
	suggestions := make([]string, 0, len(*parsed.Suggestions))
	for _, s := range *parsed.Suggestions {
		if s = strings.TrimSpace(s); s != "" {
			suggestions = append(suggestions, s)
		}
	}
	return models.Guide{Text: parsed.GuideText, Suggestions: suggestions}, true
}

// StripCodeFences removes ```json / ``` markers the model sometimes adds.
func StripCodeFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

func guidePrompt(step models.Step, form models.FormData) (string, bool) {
	switch step {
	case models.StepIndustry:
		lead := "The user needs to select their industry."
		if form.CompanySummary != "" {
			themes := ""
			if len(form.WebsiteInsights) > 0 {
				themes = fmt.Sprintf(" and website themes like '%s'", strings.Join(form.WebsiteInsights, ", "))
			}
			lead = fmt.Sprintf("For a company with the summary: %q%s", form.CompanySummary, themes)
		}
		return lead + ", suggest 4-5 relevant industries. You are an expert business analyst; you MUST generate suggestions based on the user's information. " +
			"The suggestions should be diverse and insightful. The guide text should encourage the user to select multiple relevant sectors. " +
			"For example, if the company is a game studio, suggest 'Video Game Development' or 'Interactive Entertainment', not just 'Arts, Entertainment, and Recreation'.", true

	case models.StepChallenges:
		if len(form.Industries) == 0 {
			return "", false
		}
		lines := []string{
			"You are an AI consultant helping identify business challenges that could be solved with AI.",
			"",
			"Company Context:",
			"- Industries: " + strings.Join(form.Industries, ", "),
		}
		if domains := allDomains(form); len(domains) > 0 {
			lines = append(lines, "- Business Domains: focusing on the "+strings.Join(domains, ", ")+" domains")
		}
		if form.DepartmentLevel != "" {
			lines = append(lines, "- Position Level: from the perspective of a "+form.DepartmentLevel)
		}
		lines = append(lines,
			"",
			"Suggest four pain points specific to their industry and role, focused on business impact, clear and actionable, and relevant to AI implementation.",
			"Consider time-consuming manual processes, reporting bottlenecks, customer service inefficiencies, resource allocation, slow decisions, quality control and competitiveness gaps.",
			"The guide text should explain in 2-3 sentences why identifying these pain points is crucial for finding the right AI solutions.",
		)
		return strings.Join(lines, "\n"), true

	case models.StepSolutions:
		parts := []string{"For a company"}
		if len(form.Industries) > 0 {
			parts = append(parts, fmt.Sprintf("in the '%s' industries", strings.Join(form.Industries, ", ")))
		}
		parts = append(parts, fmt.Sprintf("that is facing these challenges: '%s',", strings.Join(form.Challenges, ", ")))
		parts = append(parts, fmt.Sprintf("Their current AI stage is: '%s'.", form.AiStage))
		if form.AiUseCase != "" {
			parts = append(parts, fmt.Sprintf("They have a specific idea in mind: %q.", form.AiUseCase))
		}
		parts = append(parts, "Suggest 4-5 potential AI solutions. The guide text should connect these solutions back to their stated challenges and AI readiness. Your suggestions should be realistic given their AI stage.")
		return strings.Join(parts, " "), true
	}
	return "", false
}

func allDomains(form models.FormData) []string {
	out := make([]string, 0, len(form.BusinessDomains)+1)
	out = append(out, form.BusinessDomains...)
	if form.OtherBusinessDomain != "" {
		out = append(out, form.OtherBusinessDomain)
	}
	return out
}
