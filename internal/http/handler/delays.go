package handler

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"

	"github.com/edirooss/obsdelay-server/internal/http/dto"
	"github.com/edirooss/obsdelay-server/internal/service"
	"github.com/edirooss/obsdelay-server/pkg/jsonx"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DelaysHandler serves the render delay panel and its API.
//
// Supported operations:
//   - GET  /              → HTML panel (all sources, current delays, update forms)
//   - GET  /api/cameras   → JSON list of current delays
//   - POST /api/cameras   → set one source's delay (JSON)
//   - POST /update-delay  → set one source's delay (HTML form), redirect to /
//
// Notes:
//   - Reads degrade per source (delay -1) rather than failing the request.
//   - Mutations hit the device directly; nothing is cached server-side.
type DelaysHandler struct {
	log     *zap.Logger
	svc     *service.DelayService
	sources []string
	tmpl    *template.Template
}

// NewDelaysHandler constructs a DelaysHandler over the fixed source list.
func NewDelaysHandler(log *zap.Logger, svc *service.DelayService, sources []string) (*DelaysHandler, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	return &DelaysHandler{
		log:     log.Named("delays"),
		svc:     svc,
		sources: sources,
		tmpl:    tmpl,
	}, nil
}

// GetDelayList handles GET /api/cameras.
//
// Behavior:
//   - Reads every configured source concurrently.
//   - Unreadable sources report delay -1; the request still succeeds.
//
// Status Codes:
//   - 200 OK → JSON array of {cameraName, delay}, configured order
func (h *DelaysHandler) GetDelayList(c *gin.Context) {
	readings := h.svc.ListDelays(c.Request.Context(), h.sources)
	c.JSON(http.StatusOK, dto.CameraDelayList(readings))
}

// UpdateDelay handles POST /api/cameras.
//
// Behavior:
//   - Requires cameraName and delay in the JSON body.
//   - Forwards the update to the device; no clamping, no name check.
//
// Status Codes:
//   - 200 OK → {success, cameraName, delay}
//   - 400 Bad Request → malformed body or missing field (device untouched)
//   - 500 Internal Server Error → remote write failed
func (h *DelaysHandler) UpdateDelay(c *gin.Context) {
	var req dto.UpdateDelayRequest
	if err := jsonx.ParseJSONBody(c.Request, &req); err != nil {
		c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cameraName, delayMS, err := req.Validate()
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.svc.UpdateDelay(c.Request.Context(), cameraName, delayMS); err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"cameraName": cameraName,
		"delay":      delayMS,
	})
}

// UpdateDelayForm handles POST /update-delay (panel form submission).
//
// Behavior:
//   - Requires cameraName and newDelay form fields.
//   - On success redirects back to the panel.
//
// Status Codes:
//   - 302 Found → success, Location: /
//   - 400 Bad Request → missing field or non-integer newDelay (plain text)
//   - 500 Internal Server Error → remote write failed (plain text)
func (h *DelaysHandler) UpdateDelayForm(c *gin.Context) {
	cameraName, ok := c.GetPostForm("cameraName")
	if !ok {
		h.formError(c, http.StatusBadRequest, errors.New(`missing required field "cameraName"`))
		return
	}
	rawDelay, ok := c.GetPostForm("newDelay")
	if !ok {
		h.formError(c, http.StatusBadRequest, errors.New(`missing required field "newDelay"`))
		return
	}
	delayMS, err := strconv.ParseInt(rawDelay, 10, 64)
	if err != nil {
		h.formError(c, http.StatusBadRequest, fmt.Errorf("newDelay must be an integer: %q", rawDelay))
		return
	}

	if err := h.svc.UpdateDelay(c.Request.Context(), cameraName, delayMS); err != nil {
		h.formError(c, http.StatusInternalServerError, err)
		return
	}

	c.Redirect(http.StatusFound, "/")
}

func (h *DelaysHandler) formError(c *gin.Context, status int, err error) {
	c.Error(err)
	c.String(status, err.Error())
}
