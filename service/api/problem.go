package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/viant/signoff/model"
	"go.uber.org/zap"
)

// ProblemContentType is the RFC 7807 media type.
const ProblemContentType = "application/problem+json"

// Problem is an RFC 7807 problem details document.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
	Code     string `json:"code,omitempty"`
}

// StatusOf maps an engine error code to an HTTP status.
func StatusOf(code model.Code) int {
	switch code {
	case model.CodeInvalidAction, model.CodeUnknownEntityType:
		return http.StatusBadRequest
	case model.CodeNotAuthorized:
		return http.StatusForbidden
	case model.CodeEntityNotFound, model.CodeInstanceNotFound, model.CodeTaskNotFound:
		return http.StatusNotFound
	case model.CodeDuplicateSubmission, model.CodeTaskNotPending, model.CodeInvalidState, model.CodeDefinitionConflict:
		return http.StatusConflict
	case model.CodeValidation, model.CodeNoWorkflowDefined, model.CodeInvalidDefinition:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func problemOf(err error, path string) *Problem {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return &Problem{
			Type:     "about:blank",
			Title:    http.StatusText(httpErr.Code),
			Status:   httpErr.Code,
			Detail:   fmt.Sprint(httpErr.Message),
			Instance: path,
		}
	}
	code := model.CodeOf(err)
	status := StatusOf(code)
	ret := &Problem{
		Type:     "about:blank",
		Title:    http.StatusText(status),
		Status:   status,
		Instance: path,
		Code:     string(code),
	}
	if code != "" {
		ret.Type = "urn:signoff:error:" + string(code)
		ret.Detail = err.Error()
	}
	return ret
}

// errorHandler renders every handler error as problem details. Internal error text is not exposed.
func errorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		problem := problemOf(err, c.Request().URL.Path)
		if problem.Status >= http.StatusInternalServerError {
			logger.Error("request failed", zap.String("method", c.Request().Method), zap.String("path", problem.Instance), zap.Error(err))
		}
		data, _ := json.Marshal(problem)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(problem.Status)
			return
		}
		_ = c.Blob(problem.Status, ProblemContentType, data)
	}
}
