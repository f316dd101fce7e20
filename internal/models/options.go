// internal/models/options.go
package models

var TeamSizeOptions = []string{"1", "2-10", "11-50", "51-200", "200+"}

var IndustryOptions = []string{
	"Accommodation and Food Services",
	"Administrative and Support Services",
	"Aerospace & Defense",
	"Agriculture, Forestry, Fishing and Hunting",
	"Arts, Entertainment, and Recreation",
	"Automotive",
	"Biotechnology",
	"Construction",
	"Consulting",
	"Cybersecurity",
	"E-commerce",
	"Educational Services",
	"Energy & Utilities",
	"Finance and Insurance",
	"Fintech",
	"Government & Public Administration",
	"Healthcare and Social Assistance",
	"Health Tech",
	"Information Technology (IT) Services",
	"Legal Services",
	"Logistics & Supply Chain",
	"Management of Companies and Enterprises",
	"Manufacturing",
	"Marketing & Advertising",
	"Media & Communications",
	"Mining, Quarrying, and Oil and Gas Extraction",
	"Non-profit",
	"Other Services (except Public Administration)",
	"Pharmaceuticals",
	"Professional, Scientific, and Technical Services",
	"Real Estate and Rental and Leasing",
	"Retail Trade",
	"Software as a Service (SaaS)",
	"Telecommunications",
	"Transportation and Warehousing",
	"Wholesale Trade",
}

var DepartmentLevelOptions = []string{"Board", "Management", "Team Lead", "Staff"}

var BusinessDomainOptions = []string{"Finance", "IT", "Risk", "Supply Chain", "HR", "Marketing", "Legal", "Operations"}

var AiStageOptions = []string{
	"We have no experience with AI",
	"We are currently exploring possibilities",
	"We already have concrete ideas",
	"We have started implementation",
}

var ChallengeOptions = []string{
	"Too much admin work",
	"Unreliable reporting",
	"Staff shortages",
	"Poor lead generation",
	"Overwhelmed customer support",
	"Operational inefficiency",
	"Difficulty analyzing data",
	"Low marketing ROI",
}

var SolutionOptions = []string{
	"Smart Assistant",
	"Process Automation",
	"Data Analytics",
	"AI-Powered CRM",
	"Marketing AI",
	"HR Automation",
}

var TimelineOptions = []string{"ASAP", "Within 3 months", "3-6 months", "6-12 months"}

// Options is the catalog served to clients rendering the wizard.
type Options struct {
	TeamSizes        []string `json:"teamSizes"`
	Industries       []string `json:"industries"`
	DepartmentLevels []string `json:"departmentLevels"`
	BusinessDomains  []string `json:"businessDomains"`
	AiStages         []string `json:"aiStages"`
	Challenges       []string `json:"challenges"`
	Solutions        []string `json:"solutions"`
	Timelines        []string `json:"timelines"`
}

func AllOptions() Options {
	return Options{
		TeamSizes:        cloneStrings(TeamSizeOptions),
		Industries:       cloneStrings(IndustryOptions),
		DepartmentLevels: cloneStrings(DepartmentLevelOptions),
		BusinessDomains:  cloneStrings(BusinessDomainOptions),
		AiStages:         cloneStrings(AiStageOptions),
		Challenges:       cloneStrings(ChallengeOptions),
		Solutions:        cloneStrings(SolutionOptions),
		Timelines:        cloneStrings(TimelineOptions),
	}
}
