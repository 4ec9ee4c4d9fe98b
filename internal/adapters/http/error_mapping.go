package httpadapter

import (
	"net/http"

	"github.com/hwelland/qcflow/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrSessionState):
		return http.StatusConflict
	case domain.IsKind(err, domain.ErrHandshakeTimeout):
		return http.StatusGatewayTimeout
	case domain.IsKind(err, domain.ErrChannelUnavailable):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrNetwork),
		domain.IsKind(err, domain.ErrService),
		domain.IsKind(err, domain.ErrRecordStore),
		domain.IsKind(err, domain.ErrMalformedResponse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
