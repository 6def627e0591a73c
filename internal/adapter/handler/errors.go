package handler

import (
	"context"
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"

	"github.com/rl1809/voice-inventory/internal/core/domain"
	"github.com/rl1809/voice-inventory/internal/core/service"
)

// httpStatus maps a service error onto a response code.
func httpStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, domain.ErrParseIncomplete):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrParseUnknown), errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrProductNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrDuplicateRequest):
		return http.StatusConflict
	case errors.Is(err, domain.ErrStoreUnavailable),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, service.ErrLedgerClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func grpcCode(err error) codes.Code {
	switch httpStatus(err) {
	case http.StatusOK:
		return codes.OK
	case http.StatusUnprocessableEntity, http.StatusBadRequest:
		return codes.InvalidArgument
	case http.StatusNotFound:
		return codes.NotFound
	case http.StatusConflict:
		return codes.AlreadyExists
	case http.StatusServiceUnavailable:
		return codes.Unavailable
	default:
		return codes.Internal
	}
}

// publicMessage hides internal error text from clients.
func publicMessage(err error) string {
	switch httpStatus(err) {
	case http.StatusServiceUnavailable:
		return "inventory temporarily unavailable"
	case http.StatusInternalServerError:
		return "internal error"
	default:
		return err.Error()
	}
}
