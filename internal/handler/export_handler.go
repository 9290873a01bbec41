package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/locvowork/sheetwriter/internal/logger"
	"github.com/locvowork/sheetwriter/internal/service"
	"github.com/locvowork/sheetwriter/internal/service/serviceutils"
)

type ExportHandler struct {
	svc service.ExportService
}

func NewExportHandler(svc service.ExportService) *ExportHandler {
	return &ExportHandler{svc: svc}
}

// DownloadHandler handles GET /export/:profile?format=xlsx|csv
func (h *ExportHandler) DownloadHandler(c echo.Context) error {
	ctx := c.Request().Context()
	name := c.Param("profile")

	export, err := h.svc.Prepare(ctx, name, c.QueryParam("format"))
	if err != nil {
		return serviceutils.ResponseError(c, statusFor(err), "Failed to prepare export", err)
	}

	c.Response().Header().Set(echo.HeaderContentType, export.ContentType())
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, export.FileName()))
	c.Response().WriteHeader(http.StatusOK)

	// headers are committed, failures can only be logged from here on
	if _, err := export.Stream(ctx, c.Response().Writer); err != nil {
		logger.ErrorLog(ctx, "export %s aborted: %v", name, err)
	}
	return nil
}

// HealthHandler handles GET /healthz
func (h *ExportHandler) HealthHandler(c echo.Context) error {
	return serviceutils.ResponseSuccess(c, http.StatusOK, "ok", nil)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrProfileNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrSourceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
