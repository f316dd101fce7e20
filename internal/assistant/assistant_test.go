package assistant

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tulipai-funnel/internal/common/logger"
	"tulipai-funnel/internal/models"
	"tulipai-funnel/internal/proposal"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mocks
// ==========================

type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, req Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) Fetch(ctx context.Context, rawURL string) (PageContent, error) {
	args := m.Called(ctx, rawURL)
	return args.Get(0).(PageContent), args.Error(1)
}

func newTestService(t *testing.T) (*Service, *MockGenerator, *MockFetcher) {
	gen := &MockGenerator{}
	fetch := &MockFetcher{}
	t.Cleanup(func() {
		gen.AssertExpectations(t)
		fetch.AssertExpectations(t)
	})
	return NewService(DefaultConfig(), gen, fetch, logger.NewTestLogger(t)), gen, fetch
}

func purpose(p string) interface{} {
	return mock.MatchedBy(func(r Request) bool { return r.Purpose == p })
}

// ==========================
// Guide
// ==========================

func TestInitialText(t *testing.T) {
	assert.Equal(t, "Let's start with the basics. This information helps us understand your company context.", InitialText(models.StepBusinessInfo))
	assert.Equal(t, "Your request has been submitted successfully.", InitialText(models.StepConfirmation))
	assert.Equal(t, DefaultGuideText, InitialText(models.Step(42)))
	for _, info := range models.AllSteps() {
		assert.NotEmpty(t, InitialText(info.Step), info.Name)
	}
}

func TestFetchGuide_StaticStepsSkipModel(t *testing.T) {
	svc, _, _ := newTestService(t)

	for _, step := range []models.Step{
		models.StepBusinessInfo,
		models.StepCompanyProfile,
		models.StepDepartmentDomain,
		models.StepAiMaturity,
		models.StepTimingBudget,
		models.StepSummary,
	} {
		guide, err := svc.FetchGuide(context.Background(), step, models.NewFormData())
		require.NoError(t, err)
		assert.NotEmpty(t, guide.Text, step.String())
		assert.NotNil(t, guide.Suggestions)
		assert.Empty(t, guide.Suggestions)
	}
}

func TestFetchGuide_ChallengesWithoutIndustries(t *testing.T) {
	svc, _, _ := newTestService(t)

	guide, err := svc.FetchGuide(context.Background(), models.StepChallenges, models.NewFormData())
	require.NoError(t, err)
	assert.Equal(t, FallbackGuide(), guide)
}

func TestFetchGuide_ModelSteps(t *testing.T) {
	tests := []struct {
		name   string
		step   models.Step
		form   func(f *models.FormData)
		prompt string
		raw    string
		want   models.Guide
	}{
		{
			name: "industry uses summary and insights",
			step: models.StepIndustry,
			form: func(f *models.FormData) {
				f.CompanySummary = "We build games"
				f.WebsiteInsights = []string{"B2C", "Gaming"}
			},
			prompt: "website themes like 'B2C, Gaming'",
			raw:    `{"guideText": "Pick several.", "suggestions": ["Video Game Development", " Interactive Entertainment "]}`,
			want:   models.Guide{Text: "Pick several.", Suggestions: []string{"Video Game Development", "Interactive Entertainment"}},
		},
		{
			name: "challenges include domains and level",
			step: models.StepChallenges,
			form: func(f *models.FormData) {
				f.Industries = []string{"Fintech"}
				f.BusinessDomains = []string{"Sales"}
				f.OtherBusinessDomain = "Procurement"
			},
			prompt: "focusing on the Sales, Procurement domains",
			raw:    "```json\n{\"guideText\": \"Pain points matter.\", \"suggestions\": [\"Manual KYC\"]}\n```",
			want:   models.Guide{Text: "Pain points matter.", Suggestions: []string{"Manual KYC"}},
		},
		{
			name: "solutions mention use case",
			step: models.StepSolutions,
			form: func(f *models.FormData) {
				f.Challenges = []string{"Staff shortages"}
				f.AiUseCase = "Chatbot"
			},
			prompt: `They have a specific idea in mind: "Chatbot".`,
			raw:    `{"guideText": "These fit.", "suggestions": []}`,
			want:   models.Guide{Text: "These fit.", Suggestions: []string{}},
		},
		{
			name:   "malformed answer falls back",
			step:   models.StepIndustry,
			prompt: "The user needs to select their industry.",
			raw:    "Sure! Here are some industries: Retail",
			want:   FallbackGuide(),
		},
		{
			name:   "missing suggestions falls back",
			step:   models.StepIndustry,
			prompt: "suggest 4-5 relevant industries",
			raw:    `{"guideText": "only text"}`,
			want:   FallbackGuide(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, gen, _ := newTestService(t)
			form := models.NewFormData()
			if tt.form != nil {
				tt.form(&form)
			}

			gen.On("Generate", mock.Anything, mock.MatchedBy(func(r Request) bool {
				return r.Purpose == purposeGuide && r.System == guideSystemPrompt && strings.Contains(r.Prompt, tt.prompt)
			})).Return(tt.raw, nil).Once()

			guide, err := svc.FetchGuide(context.Background(), tt.step, form)
			require.NoError(t, err)
			assert.Equal(t, tt.want, guide)
		})
	}
}

func TestFetchGuide_TransportErrorIsReturned(t *testing.T) {
	svc, gen, _ := newTestService(t)
	gen.On("Generate", mock.Anything, purpose(purposeGuide)).Return("", ErrLLMTimeout).Once()

	_, err := svc.FetchGuide(context.Background(), models.StepIndustry, models.NewFormData())
	assert.ErrorIs(t, err, ErrLLMTimeout)
}

// ==========================
// Website summary
// ==========================

func TestParseSummary(t *testing.T) {
	raw := "noise\nSUMMARY_START\n Acme makes widgets. \nSUMMARY_END\nINSIGHTS_START\nB2B SaaS\n\n  Manufacturing  \nINSIGHTS_END"
	got, ok := ParseSummary(raw)
	require.True(t, ok)
	assert.Equal(t, "Acme makes widgets.", got.Summary)
	assert.Equal(t, []string{"B2B SaaS", "Manufacturing"}, got.Insights)

	_, ok = ParseSummary("SUMMARY_START x SUMMARY_END")
	assert.False(t, ok)

	got, ok = ParseSummary("SUMMARY_START\nx\nSUMMARY_END\nINSIGHTS_START\nINSIGHTS_END")
	require.True(t, ok)
	assert.Equal(t, []string{}, got.Insights)
}

func TestSummarizeWebsite(t *testing.T) {
	page := PageContent{Title: "Acme", Paragraphs: []string{"We make widgets."}}

	t.Run("success", func(t *testing.T) {
		svc, gen, fetch := newTestService(t)
		fetch.On("Fetch", mock.Anything, "acme.com").Return(page, nil).Once()
		gen.On("Generate", mock.Anything, mock.MatchedBy(func(r Request) bool {
			return r.Purpose == purposeSummary && strings.Contains(r.Prompt, "Website Title: Acme")
		})).Return("SUMMARY_START\nAcme.\nSUMMARY_END\nINSIGHTS_START\nWidgets\nINSIGHTS_END", nil).Once()

		got, err := svc.SummarizeWebsite(context.Background(), "acme.com")
		require.NoError(t, err)
		assert.Equal(t, models.CompanyInsights{Summary: "Acme.", Insights: []string{"Widgets"}}, got)
	})

	t.Run("markers missing", func(t *testing.T) {
		svc, gen, fetch := newTestService(t)
		fetch.On("Fetch", mock.Anything, "acme.com").Return(page, nil).Once()
		gen.On("Generate", mock.Anything, purpose(purposeSummary)).Return("Acme is great.", nil).Once()

		got, err := svc.SummarizeWebsite(context.Background(), "acme.com")
		require.NoError(t, err)
		assert.Equal(t, ManualSummaryText, got.Summary)
		assert.Empty(t, got.Insights)
	})

	t.Run("fetch failure", func(t *testing.T) {
		svc, _, fetch := newTestService(t)
		fetch.On("Fetch", mock.Anything, "acme.com").Return(PageContent{}, ErrWebsiteFetchFailed).Once()

		_, err := svc.SummarizeWebsite(context.Background(), "acme.com")
		assert.ErrorIs(t, err, ErrWebsiteFetchFailed)
	})
}

// ==========================
// Website extraction
// ==========================

const homepage = `<!DOCTYPE html>
<html><head>
<title> Acme  Widgets </title>
<meta name="description" content="Industrial widgets">
<meta name="Keywords" content="widgets, b2b">
<style>p { color: red }</style>
<script>var p = "<p>hidden</p>";</script>
</head>
<body>
<h1>Welcome to <b>Acme</b></h1>
<h2>Products</h2><h2>About</h2>
<p>We make   widgets.</p>
<p></p>
<div><p>Since 1999.<script>track()</script></p></div>
</body></html>`

func TestExtractContent(t *testing.T) {
	content, err := ExtractContent(strings.NewReader(homepage))
	require.NoError(t, err)

	assert.Equal(t, "Acme Widgets", content.Title)
	assert.Equal(t, "Industrial widgets", content.Description)
	assert.Equal(t, "widgets, b2b", content.Keywords)
	assert.Equal(t, []string{"Welcome to Acme"}, content.Headings)
	assert.Equal(t, []string{"Products", "About"}, content.Subheadings)
	assert.Equal(t, []string{"We make widgets.", "Since 1999."}, content.Paragraphs)

	assert.Contains(t, content.String(), "Main Headings: Welcome to Acme")
	assert.Contains(t, content.String(), "Content: We make widgets. Since 1999.")
}

func TestWebsiteFetcher_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "TulipAI-Funnel/1.0", r.Header.Get("User-Agent"))
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(homepage))
	}))
	defer server.Close()

	fetcher := NewWebsiteFetcher(DefaultConfig(), logger.NewTestLogger(t))

	content, err := fetcher.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "Acme Widgets", content.Title)

	_, err = fetcher.Fetch(context.Background(), server.URL+"/missing")
	assert.ErrorIs(t, err, ErrWebsiteFetchFailed)
}

// ==========================
// Quotes
// ==========================

func quoteSubmission() models.Submission {
	form := models.NewFormData()
	form.CompanyName = "Acme"
	form.Industries = []string{"Fintech"}
	form.Challenges = []string{"Staff shortages"}
	form.Budget = "50000"
	return models.Submission{ID: "sub-1", FormData: form}
}

func TestGenerateQuote(t *testing.T) {
	svc, gen, _ := newTestService(t)
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(r Request) bool {
		return r.Purpose == purposeQuote &&
			strings.Contains(r.Prompt, "- Company Name: Acme") &&
			strings.Contains(r.Prompt, "Total Investment: €50000") &&
			strings.Contains(r.Prompt, "## 8. Call to Action")
	})).Return("## 1. Executive Brief\nHello", nil).Once()

	quote, err := svc.GenerateQuote(context.Background(), quoteSubmission())
	require.NoError(t, err)
	assert.Equal(t, "## 1. Executive Brief\nHello", quote)
}

func TestGenerateQuote_Empty(t *testing.T) {
	svc, gen, _ := newTestService(t)
	gen.On("Generate", mock.Anything, purpose(purposeQuote)).Return("  ", nil).Once()

	_, err := svc.GenerateQuote(context.Background(), quoteSubmission())
	assert.ErrorIs(t, err, ErrEmptyQuote)
	assert.ErrorIs(t, err, ErrLLMGenerationFailed)
}

func TestRegenerateFromBrief(t *testing.T) {
	svc, gen, _ := newTestService(t)
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(r Request) bool {
		return r.Purpose == purposeRegenerate && r.Temperature == 0.5 &&
			strings.Contains(r.Prompt, "New brief") && strings.Contains(r.Prompt, `"callToAction"`)
	})).Return("```json\n{\"strategicAnalysis\": \"table\", \"nextSteps\": \"## 7. Next Steps\\n1. Call\"}\n```", nil).Once()

	doc, err := svc.RegenerateFromBrief(context.Background(), quoteSubmission(), "New brief")
	require.NoError(t, err)
	assert.Equal(t, "New brief", proposal.ExecutiveBrief(doc))
	assert.Equal(t, "table", proposal.Body(doc, 2))
	assert.Equal(t, "1. Call", proposal.Body(doc, 7))
	assert.Contains(t, doc, "## 8. Call to Action")
}

func TestRegenerateFromBrief_Unparsable(t *testing.T) {
	svc, gen, _ := newTestService(t)
	gen.On("Generate", mock.Anything, purpose(purposeRegenerate)).Return("not json", nil).Once()

	_, err := svc.RegenerateFromBrief(context.Background(), quoteSubmission(), "brief")
	assert.ErrorIs(t, err, ErrRegeneratedSections)

	gen.On("Generate", mock.Anything, purpose(purposeRegenerate)).Return("", errors.New("boom")).Once()
	_, err = svc.RegenerateFromBrief(context.Background(), quoteSubmission(), "brief")
	assert.EqualError(t, err, "boom")
}
