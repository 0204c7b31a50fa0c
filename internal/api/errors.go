package api

import (
	"errors"
	"net/http"

	"file-access-ledger-go/internal/store"
)

// statusFor maps ledger errors onto HTTP status codes. Order matters: a
// purchase of a missing token carries both ErrInvalidSeller and ErrNotFound.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrAlreadyPurchased):
		return http.StatusConflict
	case errors.Is(err, store.ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, store.ErrTransferFailed):
		return http.StatusPaymentRequired
	case errors.Is(err, store.ErrInvalidSeller),
		errors.Is(err, store.ErrSelfPurchase),
		errors.Is(err, store.ErrIncorrectPrice),
		errors.Is(err, store.ErrInvalidAmount),
		errors.Is(err, store.ErrInvalidRecipient):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// errorCode is the stable machine-readable name of a ledger error.
func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return "Unauthenticated"
	case errors.Is(err, store.ErrNotFound) && errors.Is(err, store.ErrInvalidSeller):
		return "InvalidSeller"
	case errors.Is(err, store.ErrNotFound):
		return "NotFound"
	case errors.Is(err, store.ErrAlreadyPurchased):
		return "AlreadyPurchased"
	case errors.Is(err, store.ErrNotOwner):
		return "NotOwner"
	case errors.Is(err, store.ErrTransferFailed):
		return "TransferFailed"
	case errors.Is(err, store.ErrInvalidSeller):
		return "InvalidSeller"
	case errors.Is(err, store.ErrSelfPurchase):
		return "SelfPurchase"
	case errors.Is(err, store.ErrIncorrectPrice):
		return "IncorrectPrice"
	case errors.Is(err, store.ErrInvalidAmount):
		return "InvalidAmount"
	case errors.Is(err, store.ErrInvalidRecipient):
		return "InvalidRecipient"
	default:
		return "Internal"
	}
}
