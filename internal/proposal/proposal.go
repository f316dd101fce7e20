// Package proposal parses, assembles and renders the eight-section proposal
// documents produced for each submission.
package proposal

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/gosimple/slug"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Section is one numbered heading of a proposal.
type Section struct {
	Number int
	Title  string
	Key    string
}

// Heading returns the canonical markdown heading, e.g. "## 2. Strategic Analysis".
func (s Section) Heading() string {
	return fmt.Sprintf("## %d. %s", s.Number, s.Title)
}

var Sections = []Section{
	{1, "Executive Brief", "executiveBrief"},
	{2, "Strategic Analysis", "strategicAnalysis"},
	{3, "Proposed Solutions", "proposedSolutions"},
	{4, "Implementation Roadmap", "implementationRoadmap"},
	{5, "Investment Overview", "investmentOverview"},
	{6, "Partnership Benefits", "partnershipBenefits"},
	{7, "Next Steps", "nextSteps"},
	{8, "Call to Action", "callToAction"},
}

var (
	briefVariants    = []string{"# 1. Executive Brief", "## Executive Brief", "# Executive Brief"}
	briefHeadingExpr = regexp.MustCompile(`(?i)^#+\s*1?\.?\s*Executive Brief\s*`)
	solutionExpr     = regexp.MustCompile(`(?m)^###\s+(.+)$`)
)

// SectionBody returns the trimmed text between start and the next "## <next>"
// heading, or "" when start is absent.
func SectionBody(markdown, start, nextPrefix string) string {
	idx := strings.Index(markdown, start)
	if idx == -1 {
		return ""
	}
	after := markdown[idx+len(start):]
	if next := strings.Index(after, "\n## "+nextPrefix); next != -1 {
		after = after[:next]
	}
	return strings.TrimSpace(after)
}

// Body returns the body of section n (1..8).
func Body(markdown string, n int) string {
	if n < 1 || n > len(Sections) {
		return ""
	}
	return SectionBody(markdown, Sections[n-1].Heading(), fmt.Sprintf("%d.", n+1))
}

// ExecutiveBrief extracts section 1, tolerating the heading variants the
// model sometimes produces. Without any heading it takes everything up to
// section 2.
func ExecutiveBrief(markdown string) string {
	if brief := Body(markdown, 1); brief != "" {
		return brief
	}
	for _, variant := range briefVariants {
		if brief := SectionBody(markdown, variant, "2."); brief != "" {
			return brief
		}
	}
	head := markdown
	if idx := strings.Index(markdown, "\n## 2."); idx > -1 {
		head = markdown[:idx]
	}
	return strings.TrimSpace(briefHeadingExpr.ReplaceAllString(strings.TrimSpace(head), ""))
}

// SolutionNames lists the "### " headings of section 3, or fallback when
// the section has none.
func SolutionNames(markdown string, fallback []string) []string {
	proposed := Body(markdown, 3)
	if proposed == "" {
		return fallback
	}
	var names []string
	for _, m := range solutionExpr.FindAllStringSubmatch(proposed, -1) {
		names = append(names, strings.TrimSpace(m[1]))
	}
	if len(names) == 0 {
		return fallback
	}
	return names
}

// Parse splits a proposal into section bodies keyed by Section.Key. Sections
// without a body are left out.
func Parse(markdown string) map[string]string {
	out := make(map[string]string, len(Sections))
	for _, s := range Sections {
		if body := Body(markdown, s.Number); body != "" {
			out[s.Key] = body
		}
	}
	if _, ok := out[Sections[0].Key]; !ok {
		if brief := ExecutiveBrief(markdown); brief != "" {
			out[Sections[0].Key] = brief
		}
	}
	return out
}

// Assemble joins the brief and the remaining sections keyed by Section.Key.
// Sections missing their heading get it prepended; absent sections are
// emitted as a bare heading.
func Assemble(brief string, sections map[string]string) string {
	parts := []string{Sections[0].Heading(), strings.TrimSpace(brief)}
	for _, s := range Sections[1:] {
		body := strings.TrimSpace(sections[s.Key])
		prefix := fmt.Sprintf("## %d.", s.Number)
		switch {
		case body == "":
			parts = append(parts, s.Heading())
		case strings.HasPrefix(body, prefix):
			parts = append(parts, body)
		default:
			parts = append(parts, s.Heading()+"\n"+body)
		}
	}
	return strings.Join(parts, "\n\n")
}

var renderer = goldmark.New(goldmark.WithExtensions(extension.GFM))

// RenderHTML converts proposal markdown to sanitized HTML.
func RenderHTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := renderer.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("render proposal: %w", err)
	}
	return bluemonday.UGCPolicy().Sanitize(buf.String()), nil
}

// RenderPage wraps the rendered proposal in a standalone HTML document.
func RenderPage(companyName, markdown string) (string, error) {
	body, err := RenderHTML(markdown)
	if err != nil {
		return "", err
	}
	title := bluemonday.StrictPolicy().Sanitize(Subject(companyName))
	return fmt.Sprintf("<!DOCTYPE html>\n<html>\n<head><meta charset=\"utf-8\"><title>%s</title></head>\n<body>\n%s</body>\n</html>\n", title, body), nil
}

// FileName returns the download name for a company's proposal.
func FileName(companyName string) string {
	s := slug.Make(companyName)
	if s == "" {
		return "tulipai-proposal.html"
	}
	return "tulipai-proposal-" + s + ".html"
}

// Subject is the default e-mail subject for a proposal.
func Subject(companyName string) string {
	return "AI Solution Proposal for " + companyName
}
