package api

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/sivaSai9177/Healthcare-sub008/pkg/alerting"
	"github.com/sivaSai9177/Healthcare-sub008/pkg/models"
	"github.com/sivaSai9177/Healthcare-sub008/pkg/store"
)

// APIHandler handles HTTP API requests
type APIHandler struct {
	alertService *alerting.AlertService
}

// NewAPIHandler creates a new API handler
func NewAPIHandler(alertService *alerting.AlertService) *APIHandler {
	return &APIHandler{
		alertService: alertService,
	}
}

// CreateAlert raises a new alert
func (h *APIHandler) CreateAlert(c echo.Context) error {
	var req models.CreateAlertRequest
	if err := c.Bind(&req); err != nil {
		logrus.Errorf("Error binding create alert request: %v", err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request format"})
	}

	alert, err := h.alertService.CreateAlert(c.Request().Context(), &req)
	if err != nil {
		return writeError(c, err, "Failed to create alert")
	}
	return c.JSON(http.StatusCreated, alert)
}

// GetAlert returns an alert by ID
func (h *APIHandler) GetAlert(c echo.Context) error {
	id := c.Param("id")
	alert, err := h.alertService.GetAlert(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err, fmt.Sprintf("Failed to get alert %s", id))
	}
	return c.JSON(http.StatusOK, alert)
}

// GetAlerts returns alerts, optionally filtered by status or room
func (h *APIHandler) GetAlerts(c echo.Context) error {
	filter := store.Filter{
		Room:       c.QueryParam("room"),
		ActiveOnly: c.QueryParam("active") == "true",
	}
	if status := c.QueryParam("status"); status != "" {
		filter.Statuses = []models.AlertStatus{models.AlertStatus(status)}
	}

	alerts, err := h.alertService.GetAlerts(c.Request().Context(), filter)
	if err != nil {
		logrus.Errorf("Error getting alerts: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to get alerts"})
	}
	return c.JSON(http.StatusOK, alerts)
}

// AcknowledgeAlert acknowledges an alert on behalf of a responder
func (h *APIHandler) AcknowledgeAlert(c echo.Context) error {
	id := c.Param("id")
	var req models.AcknowledgeAlertRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request format"})
	}

	alert, err := h.alertService.AcknowledgeAlert(c.Request().Context(), id, req.UserID, req.Notes)
	if err != nil {
		return writeError(c, err, fmt.Sprintf("Failed to acknowledge alert %s", id))
	}
	return c.JSON(http.StatusOK, alert)
}

// BulkAcknowledge acknowledges several alerts, reporting per-alert outcomes
func (h *APIHandler) BulkAcknowledge(c echo.Context) error {
	var req models.BulkAcknowledgeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request format"})
	}
	if len(req.AlertIDs) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "alertIds is required"})
	}

	results := h.alertService.BulkAcknowledge(c.Request().Context(), &req)
	return c.JSON(http.StatusOK, results)
}

// ResolveAlert resolves an acknowledged alert
func (h *APIHandler) ResolveAlert(c echo.Context) error {
	id := c.Param("id")
	var req models.ResolveAlertRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request format"})
	}

	alert, err := h.alertService.ResolveAlert(c.Request().Context(), id, req.UserID, req.Resolution)
	if err != nil {
		return writeError(c, err, fmt.Sprintf("Failed to resolve alert %s", id))
	}
	return c.JSON(http.StatusOK, alert)
}

// EscalateAlert manually escalates an alert one tier
func (h *APIHandler) EscalateAlert(c echo.Context) error {
	id := c.Param("id")
	var req models.EscalateAlertRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request format"})
	}
	if req.Reason == "" {
		req.Reason = "manual escalation"
	}

	alert, err := h.alertService.EscalateAlert(c.Request().Context(), id, req.Reason)
	if err != nil {
		return writeError(c, err, fmt.Sprintf("Failed to escalate alert %s", id))
	}
	return c.JSON(http.StatusOK, alert)
}

// DeEscalateAlert lowers an alert's escalation tier by one
func (h *APIHandler) DeEscalateAlert(c echo.Context) error {
	id := c.Param("id")
	var req models.EscalateAlertRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request format"})
	}
	if req.Reason == "" {
		req.Reason = "manual de-escalation"
	}

	alert, err := h.alertService.DeEscalateAlert(c.Request().Context(), id, req.Reason)
	if err != nil {
		return writeError(c, err, fmt.Sprintf("Failed to de-escalate alert %s", id))
	}
	return c.JSON(http.StatusOK, alert)
}

// AssignAlert manually assigns responders to a pending alert
func (h *APIHandler) AssignAlert(c echo.Context) error {
	id := c.Param("id")
	var req models.AssignAlertRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request format"})
	}

	alert, err := h.alertService.AssignAlert(c.Request().Context(), id, req.ResponderIDs)
	if err != nil {
		return writeError(c, err, fmt.Sprintf("Failed to assign alert %s", id))
	}
	return c.JSON(http.StatusOK, alert)
}

// ReassignAlert swaps the assignee set on a non-resolved alert
func (h *APIHandler) ReassignAlert(c echo.Context) error {
	id := c.Param("id")
	var req models.AssignAlertRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request format"})
	}

	alert, err := h.alertService.ReassignAlert(c.Request().Context(), id, req.ResponderIDs)
	if err != nil {
		return writeError(c, err, fmt.Sprintf("Failed to reassign alert %s", id))
	}
	return c.JSON(http.StatusOK, alert)
}

// GetEscalationChain returns an alert's escalation history with tier details
func (h *APIHandler) GetEscalationChain(c echo.Context) error {
	id := c.Param("id")
	chain, err := h.alertService.GetEscalationChain(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err, fmt.Sprintf("Failed to get escalation chain for alert %s", id))
	}
	return c.JSON(http.StatusOK, chain)
}

// GetActiveEscalations returns all escalated, non-resolved alerts
func (h *APIHandler) GetActiveEscalations(c echo.Context) error {
	alerts, err := h.alertService.GetActiveEscalations(c.Request().Context())
	if err != nil {
		logrus.Errorf("Error getting active escalations: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to get active escalations"})
	}
	return c.JSON(http.StatusOK, alerts)
}

// writeError maps domain error kinds onto HTTP status codes
func writeError(c echo.Context, err error, logContext string) error {
	status := http.StatusInternalServerError
	switch alerting.KindOf(err) {
	case alerting.KindValidation, alerting.KindInvalidAssignment:
		status = http.StatusBadRequest
	case alerting.KindNotFound:
		status = http.StatusNotFound
	case alerting.KindDuplicateActiveAlert, alerting.KindInvalidTransition, alerting.KindNotAssigned:
		status = http.StatusConflict
	case alerting.KindAssignmentFailed:
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		logrus.Errorf("%s: %v", logContext, err)
		return c.JSON(status, map[string]string{"error": logContext})
	}
	return c.JSON(status, map[string]string{"error": err.Error()})
}

// SetupRoutes sets up the API routes
func (h *APIHandler) SetupRoutes(e *echo.Echo) {
	// Alert endpoints
	e.POST("/api/alerts", h.CreateAlert)
	e.GET("/api/alerts", h.GetAlerts)
	e.GET("/api/alerts/:id", h.GetAlert)
	e.POST("/api/alerts/:id/acknowledge", h.AcknowledgeAlert)
	e.POST("/api/alerts/acknowledge-bulk", h.BulkAcknowledge)
	e.POST("/api/alerts/:id/resolve", h.ResolveAlert)
	e.POST("/api/alerts/:id/escalate", h.EscalateAlert)
	e.POST("/api/alerts/:id/de-escalate", h.DeEscalateAlert)
	e.POST("/api/alerts/:id/assign", h.AssignAlert)
	e.POST("/api/alerts/:id/reassign", h.ReassignAlert)
	e.GET("/api/alerts/:id/escalation-chain", h.GetEscalationChain)

	// Escalation endpoints
	e.GET("/api/escalations/active", h.GetActiveEscalations)
}
