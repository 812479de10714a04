package rest

import (
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/dmitrijs2005/bodypace/internal/common"
)

// toHTTPError maps service errors onto HTTP problem responses. Internal
// details are not echoed back for 5xx responses.
func toHTTPError(err error) error {
	switch {
	case errors.Is(err, common.ErrorValidation):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired):
		return huma.Error401Unauthorized(err.Error())
	case errors.Is(err, common.ErrorNotFound):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, common.ErrorConflict):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, common.ErrStorageUnavailable):
		return huma.Error503ServiceUnavailable("storage unavailable")
	default:
		return huma.Error500InternalServerError("internal error")
	}
}
