// internal/assistant/quote.go
package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"tulipai-funnel/internal/models"
	"tulipai-funnel/internal/proposal"
)

var (
	ErrEmptyQuote          = errors.New("no quote content generated")
	ErrRegeneratedSections = errors.New("failed to parse regenerated sections")
)

const (
	quoteSystemPrompt      = "You are a senior business consultant who writes professional AI solution proposals."
	regenerateSystemPrompt = "You return strictly valid JSON per instructions, without code fences."

	defaultTimeline = "3 months"
	defaultBudget   = "20000"
)

// GenerateQuote drafts the eight-section proposal markdown for a submission.
func (s *Service) GenerateQuote(ctx context.Context, sub models.Submission) (string, error) {
	text, err := s.llm.Generate(ctx, Request{
		Purpose: purposeQuote,
		System:  quoteSystemPrompt,
		Prompt:  quotePrompt(sub.FormData),
	})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: %w", ErrLLMGenerationFailed, ErrEmptyQuote)
	}

	s.logger.Info("quote generated", map[string]interface{}{
		"submissionId": sub.ID,
		"chars":        len(text),
	})
	return text, nil
}

// RegenerateFromBrief rewrites sections 2-8 so they follow an edited
// executive brief, then reassembles the full document.
func (s *Service) RegenerateFromBrief(ctx context.Context, sub models.Submission, brief string) (string, error) {
	raw, err := s.llm.Generate(ctx, Request{
		Purpose:     purposeRegenerate,
		System:      regenerateSystemPrompt,
		Prompt:      regeneratePrompt(sub.FormData, brief),
		Temperature: 0.5,
	})
	if err != nil {
		return "", err
	}

	sections := map[string]string{}
	if err := json.Unmarshal([]byte(StripCodeFences(raw)), &sections); err != nil {
		return "", fmt.Errorf("%w: %v", ErrRegeneratedSections, err)
	}
	return proposal.Assemble(brief, sections), nil
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func joinOr(items []string, def string) string {
	if len(items) == 0 {
		return def
	}
	return strings.Join(items, ", ")
}

func quotePrompt(f models.FormData) string {
	timeline := orDefault(f.Timeline, defaultTimeline)
	budget := orDefault(f.Budget, defaultBudget)
	industries := joinOr(f.Industries, "Not specified")
	market := joinOr(f.Industries, "their market")

	var sb strings.Builder
	sb.WriteString("You are an AI strategist at TulipAI, tasked with preparing a premium, personalized AI proposal. ")
	sb.WriteString("Create a visually clear, professional, and persuasive document that will impress and convince the client.\n\n")

	sb.WriteString("# CLIENT PROFILE (for internal use only)\n")
	fmt.Fprintf(&sb, "- Company Name: %s\n", f.CompanyName)
	fmt.Fprintf(&sb, "- Team Size: %s\n", f.TeamSize)
	fmt.Fprintf(&sb, "- Industry: %s\n", industries)
	fmt.Fprintf(&sb, "- Summary: %s\n", f.CompanySummary)
	fmt.Fprintf(&sb, "- Department Level: %s\n", f.DepartmentLevel)
	fmt.Fprintf(&sb, "- Business Domains: %s\n", joinOr(allDomains(f), "Not specified"))
	fmt.Fprintf(&sb, "- AI Maturity: %s\n", f.AiStage)
	fmt.Fprintf(&sb, "- Challenges: %s\n", joinOr(f.Challenges, "their specified business goals"))
	fmt.Fprintf(&sb, "- Clarification: %s\n", orDefault(f.ChallengeClarification, "None"))
	fmt.Fprintf(&sb, "- AI Use Case: %s\n", orDefault(f.AiUseCase, "None"))
	fmt.Fprintf(&sb, "- Solutions Interested In: %s\n", joinOr(f.Solutions, "Not specified"))
	fmt.Fprintf(&sb, "- Timeline: %s\n", timeline)
	fmt.Fprintf(&sb, "- Budget: €%s\n\n", budget)

	sb.WriteString("# PROPOSAL STRUCTURE\nGenerate a premium proposal with the following sections, using markdown for formatting:\n\n")
	fmt.Fprintf(&sb, "%s\nA concise executive summary of at most 3 paragraphs: introduce TulipAI, acknowledge %s's position in %s and connect their challenges with our capabilities, then paint the transformed future state. No solution details here.\n\n",
		proposal.Sections[0].Heading(), f.CompanyName, market)
	fmt.Fprintf(&sb, "%s\nA table | Current Challenges | Strategic Opportunity | Expected Impact | with one row per challenge.\n\n", proposal.Sections[1].Heading())
	fmt.Fprintf(&sb, "%s\nFor each solution a ### [Solution Name] heading followed by **Function:**, **Relevance:** (why it matters for %s) and **Impact:** with three quantifiable KPIs.\n\n",
		proposal.Sections[2].Heading(), f.CompanyName)
	fmt.Fprintf(&sb, "%s\nA table | Phase | Duration | Key Deliverables | Success Criteria | covering Discovery, Development, Integration and Launch.\nTotal Duration: %s\n\n",
		proposal.Sections[3].Heading(), timeline)
	fmt.Fprintf(&sb, "%s\nA table | Component | Description | Value Delivered |.\nTotal Investment: €%s\n\n", proposal.Sections[4].Heading(), budget)
	fmt.Fprintf(&sb, "%s\n3-4 unique advantages of partnering with TulipAI.\n\n", proposal.Sections[5].Heading())
	fmt.Fprintf(&sb, "%s\n1. **Immediate:** action within 48 hours\n2. **Week 1:** first milestone\n3. **Week 2:** project initiation\n\n", proposal.Sections[6].Heading())
	fmt.Fprintf(&sb, "%s\nA direct next step, contact information and a commitment statement.\n\n", proposal.Sections[7].Heading())

	sb.WriteString("Use markdown tables, bold emphasis, scannable bullet points and short paragraphs. Focus on business outcomes and ROI. Generate the proposal now.")
	return sb.String()
}

func regeneratePrompt(f models.FormData, brief string) string {
	profile := strings.Join([]string{
		"Company: " + f.CompanyName,
		"Industries: " + joinOr(f.Industries, "Not specified"),
		"AI Stage: " + f.AiStage,
		"Timeline: " + orDefault(f.Timeline, defaultTimeline),
		"Budget: " + orDefault(f.Budget, defaultBudget),
		"Known Challenges: " + joinOr(f.Challenges, "Not specified"),
		"Preferred Solutions: " + joinOr(f.Solutions, "Not specified"),
	}, "\n")

	var fields []string
	for _, s := range proposal.Sections[1:] {
		fields = append(fields, fmt.Sprintf("  %q: \"Markdown for section '%s'\"", s.Key, s.Heading()))
	}

	return "You are a senior AI solutions consultant. Given the executive brief and context, generate ALL remaining proposal sections in Markdown " +
		"that align with and are logically derived from the executive brief. Keep the tone concise, business-focused, and consistent.\n\n" +
		"Executive Brief (authoritative source):\n" + brief + "\n\n" +
		"Context:\n" + profile + "\n\n" +
		"Return ONLY valid JSON with these string fields, no markdown code fences:\n{\n" + strings.Join(fields, ",\n") + "\n}"
}
