package httpadapter

import (
	"net/http"

	"github.com/juristcu/juristcu-api/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case domain.IsKind(err, domain.ErrCorpusEmpty):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrAllProvidersExhausted):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Erro     string `json:"erro"`
	Mensagem string `json:"mensagem"`
}

func writeError(w http.ResponseWriter, title string, err error) {
	status := mapErrorToHTTPStatus(err)
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "30")
	}
	writeJSON(w, status, errorResponse{Erro: title, Mensagem: err.Error()})
}
