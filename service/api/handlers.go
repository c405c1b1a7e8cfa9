package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/viant/signoff/model"
	"github.com/viant/signoff/service/engine"
)

type submitBody struct {
	BusinessType string `json:"businessType"`
	EntityID     string `json:"entityId"`
	FlowCode     string `json:"flowCode,omitempty"`
}

type actBody struct {
	Action  string `json:"action"`
	Comment string `json:"comment,omitempty"`
}

type cancelBody struct {
	Reason string `json:"reason"`
}

func userID(c echo.Context) (string, error) {
	user := strings.TrimSpace(c.Request().Header.Get(HeaderUserID))
	if user == "" {
		return "", echo.NewHTTPError(http.StatusBadRequest, "missing "+HeaderUserID+" header")
	}
	return user, nil
}

// Health reports liveness
// (GET /healthz)
func (s *Server) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Submit starts an approval
// (POST /v1/approvals)
func (s *Server) Submit(c echo.Context) error {
	user, err := userID(c)
	if err != nil {
		return err
	}
	var body submitBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	instance, err := s.engine.Submit(c.Request().Context(), &engine.SubmitRequest{
		BusinessType: body.BusinessType,
		EntityID:     body.EntityID,
		InitiatorID:  user,
		FlowCode:     body.FlowCode,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, instance)
}

// GetInstance returns an approval
// (GET /v1/approvals/:id)
func (s *Server) GetInstance(c echo.Context) error {
	instance, err := s.engine.GetInstance(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, instance)
}

// InstanceTasks returns an approval's task history
// (GET /v1/approvals/:id/tasks)
func (s *Server) InstanceTasks(c echo.Context) error {
	tasks, err := s.engine.InstanceTasks(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tasks)
}

// Withdraw retracts an approval
// (POST /v1/approvals/:id/withdraw)
func (s *Server) Withdraw(c echo.Context) error {
	user, err := userID(c)
	if err != nil {
		return err
	}
	instance, err := s.engine.Withdraw(c.Request().Context(), c.Param("id"), user)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, instance)
}

// Cancel ends an approval administratively; the caller must hold the administrator role
// (POST /v1/approvals/:id/cancel)
func (s *Server) Cancel(c echo.Context) error {
	user, err := userID(c)
	if err != nil {
		return err
	}
	var body cancelBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	instance, err := s.engine.CancelAs(c.Request().Context(), c.Param("id"), user, body.Reason)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, instance)
}

// ListTasks returns an assignee's tasks; the assignee defaults to the caller
// (GET /v1/tasks?assignee=&status=)
func (s *Server) ListTasks(c echo.Context) error {
	assignee := c.QueryParam("assignee")
	if assignee == "" {
		user, err := userID(c)
		if err != nil {
			return err
		}
		assignee = user
	}
	status := model.TaskStatus(strings.ToUpper(c.QueryParam("status")))
	tasks, err := s.engine.ListTasks(c.Request().Context(), assignee, status)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tasks)
}

// Act records a decision
// (POST /v1/tasks/:id/actions)
func (s *Server) Act(c echo.Context) error {
	user, err := userID(c)
	if err != nil {
		return err
	}
	var body actBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	instance, err := s.engine.Act(c.Request().Context(), &engine.ActRequest{
		TaskID:  c.Param("id"),
		ActorID: user,
		Action:  model.Action(body.Action),
		Comment: body.Comment,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, instance)
}

// ListFlows returns the latest version of every flow
// (GET /v1/flows)
func (s *Server) ListFlows(c echo.Context) error {
	return c.JSON(http.StatusOK, s.engine.Definitions().List())
}
