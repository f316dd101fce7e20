package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"tulipai-funnel/internal/admin"
	apperrors "tulipai-funnel/internal/common/errors"
	"tulipai-funnel/internal/funnel/wizard"
	"tulipai-funnel/internal/notification"
	"tulipai-funnel/internal/submission"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders err as a StandardError with the matching status.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	stdErr := toStandardError(err)
	status := apperrors.HTTPStatus(stdErr.Code)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", map[string]interface{}{
			"error":  err,
			"method": r.Method,
			"path":   r.URL.Path,
		})
	}
	writeJSON(w, status, map[string]interface{}{"error": stdErr})
}

// toStandardError maps the sentinel errors of the domain packages onto error
// codes. Errors that already are StandardErrors pass through.
func toStandardError(err error) *apperrors.StandardError {
	var stdErr *apperrors.StandardError
	if errors.As(err, &stdErr) {
		return stdErr
	}

	switch {
	case errors.Is(err, submission.ErrSubmissionNotFound):
		return apperrors.NewSubmissionNotFoundError(err.Error())
	case errors.Is(err, submission.ErrInvalidPayload),
		errors.Is(err, admin.ErrNoQuote),
		errors.Is(err, notification.ErrMissingRecipient),
		errors.Is(err, wizard.ErrNotInFunnel),
		errors.Is(err, wizard.ErrPaymentNotAvailable),
		errors.Is(err, wizard.ErrNoWebsite),
		errors.Is(err, wizard.ErrSubmissionInFlight),
		errors.Is(err, wizard.ErrSummaryInFlight),
		errors.Is(err, errBadRequest):
		return apperrors.NewValidationError(err.Error())
	case errors.Is(err, submission.ErrInvalidStatus):
		return apperrors.NewInvalidStatusError(err.Error())
	case errors.Is(err, submission.ErrSubmissionCreateFailed):
		return apperrors.NewSubmissionCreateFailedError(err)
	case errors.Is(err, submission.ErrQueryFailed):
		return apperrors.NewQueryExecutionFailedError("submissions", err)
	case errors.Is(err, submission.ErrSearchQueryFailed):
		return apperrors.NewSearchQueryFailedError(err)
	case errors.Is(err, admin.ErrSearchUnavailable):
		return apperrors.NewExternalServiceError("elasticsearch", err)
	case errors.Is(err, admin.ErrQuoteGenerateFailed):
		return apperrors.NewQuoteGenerationFailedError("", err)
	case errors.Is(err, notification.ErrNotificationSendFailed):
		return apperrors.NewNotificationSendFailedError(notification.ChannelEmail, err)
	case errors.Is(err, errUnauthorized):
		return apperrors.NewUnauthorizedError(err.Error())
	case errors.Is(err, errSessionNotFound):
		return apperrors.NewSessionNotFoundError(err.Error())
	}
	return apperrors.AsStandardError(err)
}

var (
	errBadRequest      = errors.New("BAD_REQUEST")
	errUnauthorized    = errors.New("UNAUTHORIZED")
	errSessionNotFound = errors.New("SESSION_NOT_FOUND")
)

func decodeBody(r *http.Request, dst interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.Join(errBadRequest, err)
	}
	return nil
}
