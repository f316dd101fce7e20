// internal/submission/repository.go
package submission

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"tulipai-funnel/internal/common/logger"
	"tulipai-funnel/internal/common/metrics"
	"tulipai-funnel/internal/models"

	"github.com/google/uuid"
)

var (
	ErrSubmissionNotFound     = errors.New("SUBMISSION_NOT_FOUND")
	ErrSubmissionCreateFailed = errors.New("SUBMISSION_CREATE_FAILED")
	ErrInvalidPayload         = errors.New("VALIDATION_FAILED")
	ErrInvalidStatus          = errors.New("INVALID_STATUS")
	ErrQueryFailed            = errors.New("QUERY_EXECUTION_FAILED")
)

const submissionColumns = `id, name, email, phone, role, company_name, website, team_size, company_summary,
	website_insights, industries, department_level, business_domains, other_business_domain, challenges,
	challenge_clarification, ai_stage, ai_use_case, solutions, timeline, budget, generated_quote,
	is_quote_loading, internal_notes, status, submitted_at, proposal_sent_at, updated_at`

// sortColumns maps the admin sort keys onto SQL expressions.
var sortColumns = map[string]string{
	"submittedAt": "submitted_at",
	"updatedAt":   "updated_at",
	"companyName": "company_name",
	"name":        "name",
	"status":      "status",
	"budget":      "COALESCE(NULLIF(budget, '')::bigint, 0)",
}

type Repository struct {
	db     *sql.DB
	logger logger.Logger
	now    func() time.Time
	newID  func() string
}

func NewRepository(db *sql.DB, log logger.Logger) *Repository {
	return &Repository{
		db: db,
		logger: log.WithFields(map[string]interface{}{
			"component": "submissions",
		}),
		now:   func() time.Time { return time.Now().UTC() },
		newID: func() string { return uuid.New().String() },
	}
}

// Create validates and persists a finalized form as a new submission.
func (r *Repository) Create(ctx context.Context, form models.FormData) (*models.Submission, error) {
	form = form.Normalized()

	result, err := payloadSchema.Validate(form)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSubmissionCreateFailed, err)
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	now := r.now()
	sub := &models.Submission{
		FormData:    form.Clone(),
		ID:          r.newID(),
		SubmittedAt: now,
		Status:      models.StatusNew,
		UpdatedAt:   now,
	}

	args, err := insertArgs(sub)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSubmissionCreateFailed, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO submissions (`+submissionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
			$21, $22, $23, $24, $25, $26, $27, $28)`, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: insert failed: %v", ErrSubmissionCreateFailed, err)
	}

	r.recordEvent(ctx, sub.ID, "submission_created", map[string]interface{}{
		"companyName": sub.CompanyName,
		"budget":      sub.Budget,
	})
	metrics.SubmissionsCreated.Inc()

	r.logger.Info("submission created", map[string]interface{}{
		"submissionId": sub.ID,
		"companyName":  sub.CompanyName,
	})
	return sub, nil
}

func (r *Repository) Get(ctx context.Context, id string) (*models.Submission, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSubmissionNotFound, id)
	}

	row := r.db.QueryRowContext(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE id = $1`, id)
	sub, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSubmissionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	return sub, nil
}

// List returns submissions matching filter, newest first unless a sort key
// is given.
func (r *Repository) List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, error) {
	query, args := buildListQuery(filter)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	defer rows.Close()

	out := []models.Submission{}
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
		}
		out = append(out, *sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	return out, nil
}

func buildListQuery(filter models.SubmissionFilter) (string, []interface{}) {
	var (
		where []string
		args  []interface{}
	)
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, "%"+q+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(company_name ILIKE $%d OR name ILIKE $%d OR email ILIKE $%d)", n, n, n))
	}

	var sb strings.Builder
	sb.WriteString("SELECT " + submissionColumns + " FROM submissions")
	if len(where) > 0 {
		sb.WriteString(" WHERE " + strings.Join(where, " AND "))
	}

	column, ok := sortColumns[filter.SortKey]
	if !ok {
		column = sortColumns["submittedAt"]
	}
	direction := "DESC"
	if ok && filter.Ascending {
		direction = "ASC"
	}
	sb.WriteString(fmt.Sprintf(" ORDER BY %s %s, id", column, direction))

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		sb.WriteString(fmt.Sprintf(" LIMIT $%d", len(args)))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		sb.WriteString(fmt.Sprintf(" OFFSET $%d", len(args)))
	}
	return sb.String(), args
}

// Update applies the present fields of upd. Moving to proposal_sent stamps
// proposalSentAt unless the caller supplies one.
func (r *Repository) Update(ctx context.Context, id string, upd models.SubmissionUpdate) (*models.Submission, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSubmissionNotFound, id)
	}

	now := r.now()
	var (
		sets []string
		args []interface{}
	)
	set := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if upd.Status != nil {
		if !upd.Status.Valid() {
			return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, *upd.Status)
		}
		set("status", string(*upd.Status))
		if *upd.Status == models.StatusProposalSent && upd.ProposalSentAt == nil {
			set("proposal_sent_at", now)
		}
	}
	if upd.ProposalSentAt != nil {
		set("proposal_sent_at", upd.ProposalSentAt.UTC())
	}
	if upd.GeneratedQuote != nil {
		set("generated_quote", *upd.GeneratedQuote)
	}
	if upd.IsQuoteLoading != nil {
		set("is_quote_loading", *upd.IsQuoteLoading)
	}
	if upd.InternalNotes != nil {
		set("internal_notes", *upd.InternalNotes)
	}
	set("updated_at", now)

	args = append(args, id)
	query := fmt.Sprintf("UPDATE submissions SET %s WHERE id = $%d RETURNING %s",
		strings.Join(sets, ", "), len(args), submissionColumns)

	sub, err := scanSubmission(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSubmissionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}

	if upd.Status != nil {
		r.recordEvent(ctx, id, "status_changed", map[string]interface{}{"status": string(*upd.Status)})
	}
	return sub, nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %s", ErrSubmissionNotFound, id)
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM submissions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrSubmissionNotFound, id)
	}

	r.logger.Info("submission deleted", map[string]interface{}{"submissionId": id})
	return nil
}

// recordEvent writes the audit trail. Failures are logged, never returned.
func (r *Repository) recordEvent(ctx context.Context, id, eventType string, details map[string]interface{}) {
	payload, err := json.Marshal(details)
	if err != nil {
		payload = []byte("{}")
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO submission_events (submission_id, event_type, details, created_at)
		VALUES ($1, $2, $3, $4)`, id, eventType, payload, r.now())
	if err != nil {
		r.logger.Warn("submission event insert failed", map[string]interface{}{
			"error":        err,
			"submissionId": id,
			"eventType":    eventType,
		})
	}
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSubmission(row scanner) (*models.Submission, error) {
	var (
		s                                                    models.Submission
		insights, industries, domains, challenges, solutions []byte
		status                                               string
		proposalSentAt                                       sql.NullTime
	)
	err := row.Scan(
		&s.ID, &s.Name, &s.Email, &s.Phone, &s.Role, &s.CompanyName, &s.Website, &s.TeamSize, &s.CompanySummary,
		&insights, &industries, &s.DepartmentLevel, &domains, &s.OtherBusinessDomain, &challenges,
		&s.ChallengeClarification, &s.AiStage, &s.AiUseCase, &solutions, &s.Timeline, &s.Budget, &s.GeneratedQuote,
		&s.IsQuoteLoading, &s.InternalNotes, &status, &s.SubmittedAt, &proposalSentAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	for _, col := range []struct {
		raw []byte
		dst *[]string
	}{
		{insights, &s.WebsiteInsights},
		{industries, &s.Industries},
		{domains, &s.BusinessDomains},
		{challenges, &s.Challenges},
		{solutions, &s.Solutions},
	} {
		if err := decodeList(col.raw, col.dst); err != nil {
			return nil, err
		}
	}

	s.Status = models.SubmissionStatus(status)
	if proposalSentAt.Valid {
		t := proposalSentAt.Time
		s.ProposalSentAt = &t
	}
	return &s, nil
}

func decodeList(raw []byte, dst *[]string) error {
	*dst = []string{}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode list column: %w", err)
	}
	if *dst == nil {
		*dst = []string{}
	}
	return nil
}

func insertArgs(s *models.Submission) ([]interface{}, error) {
	lists := make([][]byte, 0, 5)
	for _, l := range [][]string{s.WebsiteInsights, s.Industries, s.BusinessDomains, s.Challenges, s.Solutions} {
		b, err := json.Marshal(l)
		if err != nil {
			return nil, err
		}
		lists = append(lists, b)
	}
	var proposalSentAt interface{}
	if s.ProposalSentAt != nil {
		proposalSentAt = *s.ProposalSentAt
	}
	return []interface{}{
		s.ID, s.Name, s.Email, s.Phone, s.Role, s.CompanyName, s.Website, s.TeamSize, s.CompanySummary,
		lists[0], lists[1], s.DepartmentLevel, lists[2], s.OtherBusinessDomain, lists[3],
		s.ChallengeClarification, s.AiStage, s.AiUseCase, lists[4], s.Timeline, s.Budget, s.GeneratedQuote,
		s.IsQuoteLoading, s.InternalNotes, string(s.Status), s.SubmittedAt, proposalSentAt, s.UpdatedAt,
	}, nil
}
