// internal/models/form.go
package models

import "unicode/utf8"

const (
	MaxChallengeClarificationLength = 300
	MaxAiUseCaseLength              = 500
)

// FormData is the record of answers collected across the wizard.
type FormData struct {
	Name                   string   `json:"name"`
	Email                  string   `json:"email"`
	Phone                  string   `json:"phone"`
	Role                   string   `json:"role"`
	CompanyName            string   `json:"companyName"`
	Website                string   `json:"website"`
	TeamSize               string   `json:"teamSize"`
	CompanySummary         string   `json:"companySummary"`
	WebsiteInsights        []string `json:"websiteInsights"`
	Industries             []string `json:"industries"`
	DepartmentLevel        string   `json:"departmentLevel"`
	BusinessDomains        []string `json:"businessDomains"`
	OtherBusinessDomain    string   `json:"otherBusinessDomain"`
	Challenges             []string `json:"challenges"`
	ChallengeClarification string   `json:"challengeClarification"`
	AiStage                string   `json:"aiStage"`
	AiUseCase              string   `json:"aiUseCase"`
	Solutions              []string `json:"solutions"`
	Timeline               string   `json:"timeline"`
	Budget                 string   `json:"budget"`
	GeneratedQuote         string   `json:"generatedQuote,omitempty"`
	IsQuoteLoading         bool     `json:"isQuoteLoading,omitempty"`
	InternalNotes          string   `json:"internalNotes,omitempty"`
}

// NewFormData returns the form a fresh wizard session starts with.
func NewFormData() FormData {
	return FormData{
		TeamSize:        TeamSizeOptions[1],
		WebsiteInsights: []string{},
		Industries:      []string{},
		DepartmentLevel: DepartmentLevelOptions[1],
		BusinessDomains: []string{},
		Challenges:      []string{},
		AiStage:         AiStageOptions[0],
		Solutions:       []string{},
		Timeline:        TimelineOptions[1],
		Budget:          "20000",
	}
}

// Clone returns a deep copy of f.
func (f FormData) Clone() FormData {
	out := f
	out.WebsiteInsights = cloneStrings(f.WebsiteInsights)
	out.Industries = cloneStrings(f.Industries)
	out.BusinessDomains = cloneStrings(f.BusinessDomains)
	out.Challenges = cloneStrings(f.Challenges)
	out.Solutions = cloneStrings(f.Solutions)
	return out
}

// Normalized returns f with nil list fields replaced by empty lists.
func (f FormData) Normalized() FormData {
	for _, list := range []*[]string{&f.WebsiteInsights, &f.Industries, &f.BusinessDomains, &f.Challenges, &f.Solutions} {
		if *list == nil {
			*list = []string{}
		}
	}
	return f
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// Ref returns a pointer to v. Used to build patches.
func Ref[T any](v T) *T {
	return &v
}

// Patch is a partial FormData update. A non-nil field is present in the patch.
type Patch struct {
	Name                   *string   `json:"name,omitempty"`
	Email                  *string   `json:"email,omitempty"`
	Phone                  *string   `json:"phone,omitempty"`
	Role                   *string   `json:"role,omitempty"`
	CompanyName            *string   `json:"companyName,omitempty"`
	Website                *string   `json:"website,omitempty"`
	TeamSize               *string   `json:"teamSize,omitempty"`
	CompanySummary         *string   `json:"companySummary,omitempty"`
	WebsiteInsights        *[]string `json:"websiteInsights,omitempty"`
	Industries             *[]string `json:"industries,omitempty"`
	DepartmentLevel        *string   `json:"departmentLevel,omitempty"`
	BusinessDomains        *[]string `json:"businessDomains,omitempty"`
	OtherBusinessDomain    *string   `json:"otherBusinessDomain,omitempty"`
	Challenges             *[]string `json:"challenges,omitempty"`
	ChallengeClarification *string   `json:"challengeClarification,omitempty"`
	AiStage                *string   `json:"aiStage,omitempty"`
	AiUseCase              *string   `json:"aiUseCase,omitempty"`
	Solutions              *[]string `json:"solutions,omitempty"`
	Timeline               *string   `json:"timeline,omitempty"`
	Budget                 *string   `json:"budget,omitempty"`
	GeneratedQuote         *string   `json:"generatedQuote,omitempty"`
	IsQuoteLoading         *bool     `json:"isQuoteLoading,omitempty"`
	InternalNotes          *string   `json:"internalNotes,omitempty"`
}

type patchField struct {
	name    string
	present func(p *Patch) bool
	apply   func(p *Patch, f *FormData)
}

func stringField(name string, get func(p *Patch) *string, set func(f *FormData, v string)) patchField {
	return patchField{
		name:    name,
		present: func(p *Patch) bool { return get(p) != nil },
		apply:   func(p *Patch, f *FormData) { set(f, *get(p)) },
	}
}

func listField(name string, get func(p *Patch) *[]string, set func(f *FormData, v []string)) patchField {
	return patchField{
		name:    name,
		present: func(p *Patch) bool { return get(p) != nil },
		apply: func(p *Patch, f *FormData) {
			v := cloneStrings(*get(p))
			if v == nil {
				v = []string{}
			}
			set(f, v)
		},
	}
}

var patchFields = []patchField{
	stringField("name", func(p *Patch) *string { return p.Name }, func(f *FormData, v string) { f.Name = v }),
	stringField("email", func(p *Patch) *string { return p.Email }, func(f *FormData, v string) { f.Email = v }),
	stringField("phone", func(p *Patch) *string { return p.Phone }, func(f *FormData, v string) { f.Phone = v }),
	stringField("role", func(p *Patch) *string { return p.Role }, func(f *FormData, v string) { f.Role = v }),
	stringField("companyName", func(p *Patch) *string { return p.CompanyName }, func(f *FormData, v string) { f.CompanyName = v }),
	stringField("website", func(p *Patch) *string { return p.Website }, func(f *FormData, v string) { f.Website = v }),
	stringField("teamSize", func(p *Patch) *string { return p.TeamSize }, func(f *FormData, v string) { f.TeamSize = v }),
	stringField("companySummary", func(p *Patch) *string { return p.CompanySummary }, func(f *FormData, v string) { f.CompanySummary = v }),
	listField("websiteInsights", func(p *Patch) *[]string { return p.WebsiteInsights }, func(f *FormData, v []string) { f.WebsiteInsights = v }),
	listField("industries", func(p *Patch) *[]string { return p.Industries }, func(f *FormData, v []string) { f.Industries = v }),
	stringField("departmentLevel", func(p *Patch) *string { return p.DepartmentLevel }, func(f *FormData, v string) { f.DepartmentLevel = v }),
	listField("businessDomains", func(p *Patch) *[]string { return p.BusinessDomains }, func(f *FormData, v []string) { f.BusinessDomains = v }),
	stringField("otherBusinessDomain", func(p *Patch) *string { return p.OtherBusinessDomain }, func(f *FormData, v string) { f.OtherBusinessDomain = v }),
	listField("challenges", func(p *Patch) *[]string { return p.Challenges }, func(f *FormData, v []string) { f.Challenges = v }),
	stringField("challengeClarification", func(p *Patch) *string { return p.ChallengeClarification }, func(f *FormData, v string) { f.ChallengeClarification = v }),
	stringField("aiStage", func(p *Patch) *string { return p.AiStage }, func(f *FormData, v string) { f.AiStage = v }),
	stringField("aiUseCase", func(p *Patch) *string { return p.AiUseCase }, func(f *FormData, v string) { f.AiUseCase = v }),
	listField("solutions", func(p *Patch) *[]string { return p.Solutions }, func(f *FormData, v []string) { f.Solutions = v }),
	stringField("timeline", func(p *Patch) *string { return p.Timeline }, func(f *FormData, v string) { f.Timeline = v }),
	stringField("budget", func(p *Patch) *string { return p.Budget }, func(f *FormData, v string) { f.Budget = v }),
	stringField("generatedQuote", func(p *Patch) *string { return p.GeneratedQuote }, func(f *FormData, v string) { f.GeneratedQuote = v }),
	{
		name:    "isQuoteLoading",
		present: func(p *Patch) bool { return p.IsQuoteLoading != nil },
		apply:   func(p *Patch, f *FormData) { f.IsQuoteLoading = *p.IsQuoteLoading },
	},
	stringField("internalNotes", func(p *Patch) *string { return p.InternalNotes }, func(f *FormData, v string) { f.InternalNotes = v }),
}

// Fields lists the JSON names of the fields present in p.
func (p Patch) Fields() []string {
	var out []string
	for _, field := range patchFields {
		if field.present(&p) {
			out = append(out, field.name)
		}
	}
	return out
}

// IsEmpty reports whether p changes nothing.
func (p Patch) IsEmpty() bool {
	return len(p.Fields()) == 0
}

// ApplyTo merges p into f. List values are copied.
func (p Patch) ApplyTo(f *FormData) {
	for _, field := range patchFields {
		if field.present(&p) {
			field.apply(&p, f)
		}
	}
}

// Truncate enforces the input length limits on free-text fields.
func (p *Patch) Truncate() {
	if p.ChallengeClarification != nil {
		p.ChallengeClarification = Ref(truncateRunes(*p.ChallengeClarification, MaxChallengeClarificationLength))
	}
	if p.AiUseCase != nil {
		p.AiUseCase = Ref(truncateRunes(*p.AiUseCase, MaxAiUseCaseLength))
	}
}

// Normalize enforces the form invariants on the values p carries: free-text
// limits, no duplicate entries in the multi-select lists and a digits-only
// budget.
func (p *Patch) Normalize() {
	p.Truncate()
	for _, list := range []*[]string{p.Industries, p.BusinessDomains, p.Challenges, p.Solutions} {
		if list != nil {
			*list = dedupe(*list)
		}
	}
	if p.Budget != nil {
		p.Budget = Ref(DigitsOnly(*p.Budget))
	}
}

// Sanitized returns f with Normalized applied and the Patch.Normalize rules
// enforced. Used on forms that did not arrive through a patch, such as drafts.
func (f FormData) Sanitized() FormData {
	f = f.Normalized()
	f.ChallengeClarification = truncateRunes(f.ChallengeClarification, MaxChallengeClarificationLength)
	f.AiUseCase = truncateRunes(f.AiUseCase, MaxAiUseCaseLength)
	f.Industries = dedupe(f.Industries)
	f.BusinessDomains = dedupe(f.BusinessDomains)
	f.Challenges = dedupe(f.Challenges)
	f.Solutions = dedupe(f.Solutions)
	f.Budget = DigitsOnly(f.Budget)
	return f
}

// dedupe drops repeated entries, keeping the first occurrence. The result is
// a fresh slice.
func dedupe(in []string) []string {
	if in == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
