package serviceutils

import (
	"github.com/labstack/echo/v4"

	"github.com/locvowork/sheetwriter/internal/logger"
)

type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func ResponseSuccess(c echo.Context, code int, msg string, data interface{}) error {
	return c.JSON(code, GenericResponse{
		Success: true,
		Message: msg,
		Data:    data,
	})
}

// ResponseError answers with a failed GenericResponse and logs err.
func ResponseError(c echo.Context, code int, msg string, err error) error {
	resp := GenericResponse{
		Success: false,
		Message: msg,
	}
	if err != nil {
		resp.Error = err.Error()
		logger.WarnLog(c.Request().Context(), "%s %s: %s: %v", c.Request().Method, c.Request().URL.Path, msg, err)
	}
	return c.JSON(code, resp)
}
