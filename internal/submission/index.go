// internal/submission/index.go
package submission

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"tulipai-funnel/internal/common/logger"
	"tulipai-funnel/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
)

var (
	ErrSearchIndexFailed = errors.New("SEARCH_INDEX_FAILED")
	ErrSearchQueryFailed = errors.New("SEARCH_QUERY_FAILED")
)

const DefaultIndexName = "submissions"

const indexMapping = `{
  "mappings": {
    "properties": {
      "id":              {"type": "keyword"},
      "companyName":     {"type": "text", "fields": {"keyword": {"type": "keyword"}}},
      "name":            {"type": "text"},
      "email":           {"type": "keyword"},
      "companySummary":  {"type": "text"},
      "industries":      {"type": "keyword"},
      "businessDomains": {"type": "keyword"},
      "challenges":      {"type": "keyword"},
      "solutions":       {"type": "keyword"},
      "aiStage":         {"type": "keyword"},
      "teamSize":        {"type": "keyword"},
      "departmentLevel": {"type": "keyword"},
      "timeline":        {"type": "keyword"},
      "status":          {"type": "keyword"},
      "budget":          {"type": "long"},
      "submittedAt":     {"type": "date"}
    }
  }
}`

// Document is the search-side projection of a submission.
type Document struct {
	ID              string    `json:"id"`
	CompanyName     string    `json:"companyName"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	CompanySummary  string    `json:"companySummary"`
	Industries      []string  `json:"industries"`
	BusinessDomains []string  `json:"businessDomains"`
	Challenges      []string  `json:"challenges"`
	Solutions       []string  `json:"solutions"`
	AiStage         string    `json:"aiStage"`
	TeamSize        string    `json:"teamSize"`
	DepartmentLevel string    `json:"departmentLevel"`
	Timeline        string    `json:"timeline"`
	Status          string    `json:"status"`
	Budget          int64     `json:"budget"`
	SubmittedAt     time.Time `json:"submittedAt"`
}

func NewDocument(s models.Submission) Document {
	return Document{
		ID:              s.ID,
		CompanyName:     s.CompanyName,
		Name:            s.Name,
		Email:           s.Email,
		CompanySummary:  s.CompanySummary,
		Industries:      s.Industries,
		BusinessDomains: s.BusinessDomains,
		Challenges:      s.Challenges,
		Solutions:       s.Solutions,
		AiStage:         s.AiStage,
		TeamSize:        s.TeamSize,
		DepartmentLevel: s.DepartmentLevel,
		Timeline:        s.Timeline,
		Status:          string(s.Status),
		Budget:          s.BudgetValue(),
		SubmittedAt:     s.SubmittedAt,
	}
}

// AnalyticsFilter narrows the analytics aggregation.
type AnalyticsFilter struct {
	From       *time.Time `json:"from,omitempty"`
	To         *time.Time `json:"to,omitempty"`
	Industries []string   `json:"industries,omitempty"`
	AiStages   []string   `json:"aiStages,omitempty"`
	TeamSizes  []string   `json:"teamSizes,omitempty"`
	BudgetMin  *int64     `json:"budgetMin,omitempty"`
	BudgetMax  *int64     `json:"budgetMax,omitempty"`
	Search     string     `json:"search,omitempty"`
	Interval   string     `json:"interval,omitempty"` // day | week | month
}

type Bucket struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

type Analytics struct {
	Total       int64    `json:"total"`
	TotalBudget float64  `json:"totalBudget"`
	AvgBudget   float64  `json:"avgBudget"`
	ByIndustry  []Bucket `json:"byIndustry"`
	ByAiStage   []Bucket `json:"byAiStage"`
	ByTeamSize  []Bucket `json:"byTeamSize"`
	ByStatus    []Bucket `json:"byStatus"`
	OverTime    []Bucket `json:"overTime"`
}

type Index struct {
	es     *elasticsearch.Client
	name   string
	logger logger.Logger
}

func NewIndex(es *elasticsearch.Client, name string, log logger.Logger) *Index {
	if name == "" {
		name = DefaultIndexName
	}
	return &Index{
		es:   es,
		name: name,
		logger: log.WithFields(map[string]interface{}{
			"component": "search",
			"index":     name,
		}),
	}
}

func (i *Index) Name() string { return i.name }

// EnsureIndex creates the index with its mapping when it does not exist.
func (i *Index) EnsureIndex(ctx context.Context) error {
	res, err := i.es.Indices.Exists([]string{i.name}, i.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSearchIndexFailed, err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = i.es.Indices.Create(
		i.name,
		i.es.Indices.Create.WithBody(strings.NewReader(indexMapping)),
		i.es.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSearchIndexFailed, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("%w: create index: %s", ErrSearchIndexFailed, res.String())
	}

	i.logger.Info("search index created", nil)
	return nil
}

// IndexSubmission upserts the document for s.
func (i *Index) IndexSubmission(ctx context.Context, s models.Submission) error {
	body, err := json.Marshal(NewDocument(s))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSearchIndexFailed, err)
	}

	res, err := i.es.Index(
		i.name,
		bytes.NewReader(body),
		i.es.Index.WithDocumentID(s.ID),
		i.es.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSearchIndexFailed, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("%w: %s", ErrSearchIndexFailed, res.String())
	}
	return nil
}

// DeleteSubmission removes the document; a missing document is not an error.
func (i *Index) DeleteSubmission(ctx context.Context, id string) error {
	res, err := i.es.Delete(i.name, id, i.es.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSearchIndexFailed, err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrSearchIndexFailed, res.String())
	}
	return nil
}

// Analytics aggregates submissions matching filter.
func (i *Index) Analytics(ctx context.Context, filter AnalyticsFilter) (*Analytics, error) {
	body, err := json.Marshal(buildAnalyticsQuery(filter))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchQueryFailed, err)
	}

	res, err := i.es.Search(
		i.es.Search.WithContext(ctx),
		i.es.Search.WithIndex(i.name),
		i.es.Search.WithBody(bytes.NewReader(body)),
		i.es.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchQueryFailed, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("%w: %s", ErrSearchQueryFailed, res.String())
	}

	var raw analyticsResponse
	if err := json.NewDecoder(res.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrSearchQueryFailed, err)
	}
	return raw.toAnalytics(), nil
}

func buildAnalyticsQuery(f AnalyticsFilter) map[string]interface{} {
	var filters []interface{}

	if f.From != nil || f.To != nil {
		r := map[string]interface{}{}
		if f.From != nil {
			r["gte"] = f.From.UTC().Format(time.RFC3339)
		}
		if f.To != nil {
			r["lte"] = f.To.UTC().Format(time.RFC3339)
		}
		filters = append(filters, map[string]interface{}{"range": map[string]interface{}{"submittedAt": r}})
	}
	for field, values := range map[string][]string{
		"industries": f.Industries,
		"aiStage":    f.AiStages,
		"teamSize":   f.TeamSizes,
	} {
		if len(values) > 0 {
			filters = append(filters, map[string]interface{}{"terms": map[string]interface{}{field: values}})
		}
	}
	if f.BudgetMin != nil || f.BudgetMax != nil {
		r := map[string]interface{}{}
		if f.BudgetMin != nil {
			r["gte"] = *f.BudgetMin
		}
		if f.BudgetMax != nil {
			r["lte"] = *f.BudgetMax
		}
		filters = append(filters, map[string]interface{}{"range": map[string]interface{}{"budget": r}})
	}

	boolQuery := map[string]interface{}{}
	if len(filters) > 0 {
		boolQuery["filter"] = filters
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		boolQuery["must"] = []interface{}{
			map[string]interface{}{
				"multi_match": map[string]interface{}{
					"query":  s,
					"fields": []string{"companyName^2", "name", "companySummary"},
					"type":   "phrase_prefix",
				},
			},
		}
	}

	interval := f.Interval
	switch interval {
	case "day", "week", "month":
	default:
		interval = "week"
	}

	terms := func(field string) map[string]interface{} {
		return map[string]interface{}{"terms": map[string]interface{}{"field": field, "size": 50}}
	}

	return map[string]interface{}{
		"size":  0,
		"query": map[string]interface{}{"bool": boolQuery},
		"aggs": map[string]interface{}{
			"by_industry":  terms("industries"),
			"by_ai_stage":  terms("aiStage"),
			"by_team_size": terms("teamSize"),
			"by_status":    terms("status"),
			"budget_stats": map[string]interface{}{"stats": map[string]interface{}{"field": "budget"}},
			"over_time": map[string]interface{}{
				"date_histogram": map[string]interface{}{
					"field":             "submittedAt",
					"calendar_interval": interval,
					"format":            "yyyy-MM-dd",
					"min_doc_count":     0,
				},
			},
		},
	}
}

type termsAgg struct {
	Buckets []struct {
		Key         interface{} `json:"key"`
		KeyAsString string      `json:"key_as_string"`
		DocCount    int64       `json:"doc_count"`
	} `json:"buckets"`
}

func (a termsAgg) buckets() []Bucket {
	out := make([]Bucket, 0, len(a.Buckets))
	for _, b := range a.Buckets {
		key := b.KeyAsString
		if key == "" {
			key = fmt.Sprint(b.Key)
		}
		out = append(out, Bucket{Key: key, Count: b.DocCount})
	}
	return out
}

type analyticsResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
	} `json:"hits"`
	Aggregations struct {
		ByIndustry  termsAgg `json:"by_industry"`
		ByAiStage   termsAgg `json:"by_ai_stage"`
		ByTeamSize  termsAgg `json:"by_team_size"`
		ByStatus    termsAgg `json:"by_status"`
		OverTime    termsAgg `json:"over_time"`
		BudgetStats struct {
			Sum *float64 `json:"sum"`
			Avg *float64 `json:"avg"`
		} `json:"budget_stats"`
	} `json:"aggregations"`
}

func (r analyticsResponse) toAnalytics() *Analytics {
	out := &Analytics{
		Total:      r.Hits.Total.Value,
		ByIndustry: r.Aggregations.ByIndustry.buckets(),
		ByAiStage:  r.Aggregations.ByAiStage.buckets(),
		ByTeamSize: r.Aggregations.ByTeamSize.buckets(),
		ByStatus:   r.Aggregations.ByStatus.buckets(),
		OverTime:   r.Aggregations.OverTime.buckets(),
	}
	if r.Aggregations.BudgetStats.Sum != nil {
		out.TotalBudget = *r.Aggregations.BudgetStats.Sum
	}
	if r.Aggregations.BudgetStats.Avg != nil {
		out.AvgBudget = *r.Aggregations.BudgetStats.Avg
	}
	return out
}
