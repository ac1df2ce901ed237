package http

import (
	"errors"
	"net/http"

	"preorder/internal/core/application/usecases/commands"
	"preorder/internal/core/domain/model/kernel"
	"preorder/internal/core/domain/model/order"
	"preorder/internal/pkg/errs"

	"github.com/labstack/echo/v4"
)

// statusFor maps an engine error to its HTTP status. Anything unknown is an
// infrastructure failure.
func statusFor(err error) int {
	switch {
	case errors.Is(err, commands.ErrAuthenticationRequired):
		return http.StatusUnauthorized
	case errors.Is(err, kernel.ErrInvalidQuantity),
		errors.Is(err, errs.ErrValueIsInvalid),
		errors.Is(err, errs.ErrValueIsRequired),
		errors.Is(err, errs.ErrValueIsOutOfRange):
		return http.StatusBadRequest
	case errors.Is(err, commands.ErrNoPickupSelected),
		errors.Is(err, commands.ErrNothingToOrder),
		errors.Is(err, commands.ErrInvalidPickupInstant),
		errors.Is(err, commands.ErrPickupWindowExpired),
		errors.Is(err, commands.ErrEditWindowClosed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, order.ErrAlreadyTerminal),
		errors.Is(err, errs.ErrVersionConflict):
		return http.StatusConflict
	case errors.Is(err, errs.ErrObjectNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as an Error body. Infrastructure failures are
// logged and their details withheld from the client.
func (s *Server) respondError(c echo.Context, err error) error {
	code := statusFor(err)
	body := Error{Code: code, Message: err.Error()}

	var conflict *commands.ReconciliationConflictError
	if errors.As(err, &conflict) {
		view := s.toConflict(conflict)
		body.Local = &view.Local
		body.Remote = &view.Remote
	}

	if code == http.StatusInternalServerError {
		s.logger.ErrorContext(c.Request().Context(), "Request failed",
			"method", c.Request().Method,
			"path", c.Path(),
			"error", err,
		)
		body.Message = http.StatusText(code)
	}

	return c.JSON(code, body)
}
