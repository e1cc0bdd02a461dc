package httpadapter

import (
	"net/http"

	"github.com/keralagri/newsreel/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrArticleNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrPermanent):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
