// internal/assistant/summary.go
package assistant

import (
	"context"
	"strings"

	"tulipai-funnel/internal/models"
)

const (
	ManualSummaryText = "I had trouble analyzing the website. Could you please write a brief summary of your company? For example, what does it do, who are the customers, and what do you sell?"

	summarySystemPrompt = "You are a business analyst who returns structured responses in the exact format requested."

	summaryStart  = "SUMMARY_START"
	summaryEnd    = "SUMMARY_END"
	insightsStart = "INSIGHTS_START"
	insightsEnd   = "INSIGHTS_END"
)

// SummarizeWebsite fetches the site and asks the model for a company summary
// and up to five keyword insights. Fetch and transport failures are errors;
// an answer without the expected markers yields ManualSummaryText.
func (s *Service) SummarizeWebsite(ctx context.Context, website string) (models.CompanyInsights, error) {
	page, err := s.fetcher.Fetch(ctx, website)
	if err != nil {
		return models.CompanyInsights{}, err
	}

	raw, err := s.llm.Generate(ctx, Request{
		Purpose: purposeSummary,
		System:  summarySystemPrompt,
		Prompt:  summaryPrompt(page),
	})
	if err != nil {
		return models.CompanyInsights{}, err
	}

	insights, ok := ParseSummary(raw)
	if !ok {
		s.logger.Warn("summary response missing markers", map[string]interface{}{
			"website": website,
		})
		return models.CompanyInsights{Summary: ManualSummaryText, Insights: []string{}}, nil
	}
	return insights, nil
}

// ParseSummary extracts the marked summary and insight blocks. Insights are
// one per line; blank lines are dropped.
func ParseSummary(raw string) (models.CompanyInsights, bool) {
	summary, ok := between(raw, summaryStart, summaryEnd)
	if !ok {
		return models.CompanyInsights{}, false
	}
	block, ok := between(raw, insightsStart, insightsEnd)
	if !ok {
		return models.CompanyInsights{}, false
	}

	insights := []string{}
	for _, line := range strings.Split(block, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			insights = append(insights, line)
		}
	}
	return models.CompanyInsights{Summary: summary, Insights: insights}, true
}

func between(s, start, end string) (string, bool) {
	i := strings.Index(s, start)
	if i == -1 {
		return "", false
	}
	rest := s[i+len(start):]
	j := strings.Index(rest, end)
	if j == -1 {
		return "", false
	}
	return strings.TrimSpace(rest[:j]), true
}

func summaryPrompt(page PageContent) string {
	return "As a business analyst, please analyze the following website content:\n\n" +
		page.String() + "\n\n" +
		`Based on this content, provide two things:

1. A comprehensive professional summary (5-7 sentences) that covers the company's core business and mission, its main products or services, its target audience and market positioning, its unique value proposition, notable technologies or methodologies, and its industry focus and business model (B2B, B2C, etc.).

2. A list of up to five factual keywords or descriptive phrases capturing business model (e.g., "B2B SaaS"), industry vertical (e.g., "FinTech"), technology focus (e.g., "AI-Powered Analytics"), market positioning (e.g., "Enterprise-Grade") and target audience (e.g., "SME Focus").

IMPORTANT: Your entire response must follow this structure exactly, with no extra text or markdown:
SUMMARY_START
[The generated summary]
SUMMARY_END
INSIGHTS_START
[First insight on one line]
[Second insight on another line]
[Third insight on a third line]
INSIGHTS_END`
}
