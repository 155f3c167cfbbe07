package handlers

import (
	"errors"
	"net/http"

	"github.com/lab-scheduler/backend/internal/api/middleware"
	"github.com/lab-scheduler/backend/internal/booking"
	"github.com/lab-scheduler/backend/internal/catalog"
)

// writeDomainError maps engine and catalog errors onto HTTP responses.
// Unknown errors become opaque 500s; the details stay in the server log.
func writeDomainError(w http.ResponseWriter, err error) {
	var (
		constraint   *booking.ConstraintViolation
		conflict     *booking.BookingConflict
		transition   *booking.InvalidStateTransition
		guard        *booking.TemporalGuardError
		permission   *booking.PermissionError
		requirements *booking.RequirementValidationError
		notFound     *booking.NotFoundError
		duplicate    *catalog.DuplicateNameError
	)

	switch {
	case errors.As(err, &constraint):
		middleware.WriteError(w, http.StatusUnprocessableEntity, middleware.ErrConstraintViolation, constraint.Error())
	case errors.As(err, &conflict):
		middleware.WriteErrorWithDetails(w, http.StatusConflict, middleware.ErrBookingConflict, conflict.Error(), conflict.Blockers)
	case errors.As(err, &transition):
		middleware.WriteError(w, http.StatusConflict, middleware.ErrInvalidTransition, transition.Error())
	case errors.As(err, &guard):
		middleware.WriteError(w, http.StatusConflict, middleware.ErrTemporalGuard, guard.Error())
	case errors.As(err, &permission):
		middleware.WriteError(w, http.StatusForbidden, middleware.ErrForbidden, permission.Error())
	case errors.As(err, &requirements):
		middleware.WriteErrorWithDetails(w, http.StatusUnprocessableEntity, middleware.ErrRequirementsRejected, requirements.Error(), requirements.Problems)
	case errors.As(err, &notFound):
		middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, notFound.Error())
	case errors.As(err, &duplicate):
		middleware.WriteError(w, http.StatusConflict, middleware.ErrConflict, duplicate.Error())
	default:
		middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "An unexpected error occurred")
	}
}
