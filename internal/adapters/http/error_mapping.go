package httpadapter

import (
	"errors"
	"net/http"

	"github.com/kirillkom/farmsure/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrClaimNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errorMessage keeps internal details out of 5xx bodies; they go to the log instead.
func errorMessage(err error, status int) string {
	var validation *domain.ValidationError
	switch {
	case errors.As(err, &validation):
		return validation.Reason
	case status == http.StatusRequestEntityTooLarge:
		return "request body too large"
	case status == http.StatusNotFound:
		return domain.ErrClaimNotFound.Error()
	case domain.IsKind(err, domain.ErrRender):
		return domain.ErrRender.Error()
	case status == http.StatusServiceUnavailable:
		return "service temporarily unavailable"
	case status >= http.StatusInternalServerError:
		return "internal server error"
	default:
		return err.Error()
	}
}
