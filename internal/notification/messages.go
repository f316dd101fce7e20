// internal/notification/messages.go
package notification

import (
	"fmt"
	"strings"

	"tulipai-funnel/internal/models"
)

// Summary is the plain-text recap of what the lead submitted.
func Summary(f models.FormData) string {
	domains := make([]string, 0, len(f.BusinessDomains)+1)
	for _, d := range append(append([]string{}, f.BusinessDomains...), f.OtherBusinessDomain) {
		if d != "" {
			domains = append(domains, d)
		}
	}

	var b strings.Builder
	b.WriteString("Here is a summary of the information you submitted:\n\n")
	fmt.Fprintf(&b, "- Company Name: %s\n", f.CompanyName)
	fmt.Fprintf(&b, "- Contact Name: %s\n", f.Name)
	fmt.Fprintf(&b, "- Email: %s\n", f.Email)
	fmt.Fprintf(&b, "- Website: %s\n", f.Website)
	fmt.Fprintf(&b, "- Team Size: %s\n", f.TeamSize)
	fmt.Fprintf(&b, "- Timeline: %s\n", f.Timeline)
	fmt.Fprintf(&b, "- Budget: %s\n\n", f.Budget)
	fmt.Fprintf(&b, "- Industries: %s\n", joinOrNA(f.Industries))
	fmt.Fprintf(&b, "- Business Domains: %s\n", joinOrNA(domains))
	fmt.Fprintf(&b, "- Challenges: %s\n", joinOrNA(f.Challenges))
	fmt.Fprintf(&b, "- Interested Solutions: %s\n\n", joinOrNA(f.Solutions))
	b.WriteString("- Company Summary:\n")
	b.WriteString(f.CompanySummary)
	return strings.TrimSpace(b.String())
}

func ConfirmationBody(f models.FormData) string {
	name := f.Name
	if name == "" {
		name = "there"
	}
	return fmt.Sprintf("Hi %s,\n\nThank you for requesting an AI solution proposal from TulipAI. "+
		"Our team is preparing your tailored proposal and will be in touch shortly.\n\n%s\n\nThe TulipAI Team",
		name, Summary(f))
}

// SalesAlert is the SMS text sent to the sales team. SMS bodies are kept short.
func SalesAlert(s models.Submission) string {
	industry := "N/A"
	if len(s.Industries) > 0 {
		industry = s.Industries[0]
	}
	return fmt.Sprintf("New TulipAI lead: %s (%s), budget EUR %d, timeline %s. Contact %s <%s>.",
		s.CompanyName, industry, s.BudgetValue(), s.Timeline, s.Name, s.Email)
}

func joinOrNA(items []string) string {
	if len(items) == 0 {
		return "N/A"
	}
	return strings.Join(items, ", ")
}
