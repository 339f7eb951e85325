package handler

import (
	"net/http"

	"sweetshop/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Kind → HTTPステータス（変換はここだけ）
var statusByKind = map[usecase.ErrorKind]int{
	usecase.KindUnauthenticated:   http.StatusUnauthorized,
	usecase.KindForbidden:         http.StatusForbidden,
	usecase.KindNotFound:          http.StatusNotFound,
	usecase.KindValidation:        http.StatusBadRequest,
	usecase.KindInvalidAmount:     http.StatusBadRequest,
	usecase.KindInsufficientStock: http.StatusBadRequest,
	usecase.KindInvalidFilter:     http.StatusBadRequest,
	usecase.KindDuplicateRequest:  http.StatusConflict,
	usecase.KindConflict:          http.StatusConflict,
	usecase.KindUnavailable:       http.StatusServiceUnavailable,
}

func StatusFor(kind usecase.ErrorKind) int {
	if status, ok := statusByKind[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func writeError(c echo.Context, log *zap.Logger, err error) error {
	if err == nil {
		return nil
	}
	if ue, ok := usecase.AsError(err); ok {
		return c.JSON(StatusFor(ue.Kind), ErrorResponse{Error: ue.Message, Fields: ue.Fields})
	}

	//500
	log.Error("unexpected error",
		zap.String("method", c.Request().Method),
		zap.String("path", c.Path()),
		zap.Error(err))
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

func badRequest(c echo.Context, fields map[string]string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid input", Fields: fields})
}
