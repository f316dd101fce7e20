// internal/funnel/draft/draft.go
package draft

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"tulipai-funnel/internal/common/metrics"
	"tulipai-funnel/internal/models"
)

const DefaultKey = "tulipai_funnel_draft"

// Store keeps the single resumable draft of one wizard session.
// Implementations log failures and never return them.
type Store interface {
	Save(ctx context.Context, form models.FormData, step models.Step)
	Load(ctx context.Context) (models.Draft, bool)
	Clear(ctx context.Context)
}

var errMalformed = errors.New("DRAFT_MALFORMED")

type payload struct {
	FormData    json.RawMessage `json:"formData"`
	CurrentStep json.RawMessage `json:"currentStep"`
}

// Encode serializes a draft in the persisted layout.
func Encode(form models.FormData, step models.Step) ([]byte, error) {
	return json.Marshal(models.Draft{FormData: form, CurrentStep: step})
}

// Decode parses a persisted draft. It rejects payloads without a formData
// object or with a currentStep that is not an integer in 1..11.
func Decode(raw []byte) (models.Draft, error) {
	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return models.Draft{}, fmt.Errorf("%w: %v", errMalformed, err)
	}

	if !isObject(p.FormData) {
		return models.Draft{}, fmt.Errorf("%w: formData is not an object", errMalformed)
	}

	var stepNum float64
	if len(p.CurrentStep) == 0 || json.Unmarshal(p.CurrentStep, &stepNum) != nil {
		return models.Draft{}, fmt.Errorf("%w: currentStep is not a number", errMalformed)
	}
	if stepNum != math.Trunc(stepNum) || !models.Step(int(stepNum)).Valid() {
		return models.Draft{}, fmt.Errorf("%w: currentStep %v out of range", errMalformed, stepNum)
	}

	var form models.FormData
	if err := json.Unmarshal(p.FormData, &form); err != nil {
		return models.Draft{}, fmt.Errorf("%w: formData: %v", errMalformed, err)
	}

	return models.Draft{FormData: form, CurrentStep: models.Step(int(stepNum))}, nil
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

func record(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.DraftOperations.WithLabelValues(op, result).Inc()
}
