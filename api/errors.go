package api

import (
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"

	crew "github.com/goliatone/go-crew"
)

// ErrorHandler renders taxonomy errors as JSON. Use it as the fiber app
// ErrorHandler so handlers can return service errors unchanged.
func ErrorHandler(logger crew.Logger) fiber.ErrorHandler {
	if logger == nil {
		logger = crew.NopLogger{}
	}

	return func(c *fiber.Ctx, err error) error {
		richErr := toRichError(err)

		if richErr.Code >= fiber.StatusInternalServerError {
			logger.Error("request %s %s failed: %v", c.Method(), c.OriginalURL(), err)
		} else {
			logger.Debug("request %s %s rejected: %s details: %s",
				c.Method(), c.OriginalURL(), richErr.Message, print.MaybePrettyJSON(richErr.Metadata))
		}

		return c.Status(richErr.Code).JSON(richErr.Clone().ToErrorResponse(false, nil))
	}
}

func toRichError(err error) *goerrors.Error {
	var fiberErr *fiber.Error
	if goerrors.As(err, &fiberErr) {
		return goerrors.New(fiberErr.Message, goerrors.HTTPStatusToCategory(fiberErr.Code)).
			WithCode(fiberErr.Code).
			WithTextCode(goerrors.HTTPStatusToTextCode(fiberErr.Code))
	}

	richErr := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	if richErr.Code == 0 {
		richErr = richErr.Clone().WithCode(codeForCategory(richErr.Category))
	}
	return richErr
}

func codeForCategory(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return fiber.StatusBadRequest
	case goerrors.CategoryAuth:
		return fiber.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return fiber.StatusForbidden
	case goerrors.CategoryNotFound:
		return fiber.StatusNotFound
	case goerrors.CategoryConflict:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

func (a *Controller) authError(c *fiber.Ctx, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryAuth, "invalid or missing session").
			WithCode(goerrors.CodeUnauthorized).
			WithTextCode("UNAUTHENTICATED")
	}
	if richErr.Code == 0 {
		richErr = richErr.Clone().WithCode(goerrors.CodeUnauthorized)
	}
	return c.Status(richErr.Code).JSON(richErr.Clone().ToErrorResponse(false, nil))
}
