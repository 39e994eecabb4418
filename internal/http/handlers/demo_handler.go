// Demo HTTP handlers.
//
// These routes exist to exercise the error views end to end and are only
// mounted when DEMO_ROUTES is enabled:
//   - GET /demo/status/{code}  abort with an arbitrary error status
//   - GET /demo/panic          panic inside a handler
//   - GET /demo/forbidden      attach a Gin error and abort with 403
//   - GET /demo/base           serve the base error view
//   - GET /demo/fail           API-style failure with a machine-readable code
//     (?status= picks the status, ?code= overrides the generic code)
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// ErrDemoForbidden is the cause attached by the /demo/forbidden route.
var ErrDemoForbidden = errors.New("demo resource is forbidden")

// DemoHandlers groups the demo endpoints.
type DemoHandlers struct {
	views *ErrorViews
}

// NewDemoHandlers constructs the demo endpoints.
func NewDemoHandlers(views *ErrorViews) *DemoHandlers {
	return &DemoHandlers{views: views}
}

// Register mounts the demo routes on g.
func (h *DemoHandlers) Register(g *gin.RouterGroup) {
	g.GET("/status/:code", h.Status)
	g.GET("/panic", h.Panic)
	g.GET("/forbidden", h.Forbidden)
	g.GET("/base", h.views.BaseView())
	g.GET("/fail", h.Fail)
}

// Status aborts with the status in the path. The response body is left to
// whichever error view handles that status.
func (h *DemoHandlers) Status(c *gin.Context) {
	code, err := strconv.Atoi(c.Param("code"))
	if err != nil || code < 400 || code > 599 {
		h.views.Fail(c, http.StatusBadRequest, ErrCodeBadRequest, "code must be an error status (400-599)")
		return
	}
	c.AbortWithStatus(code)
}

// Panic panics.
func (h *DemoHandlers) Panic(c *gin.Context) {
	panic("demo panic")
}

// Forbidden records ErrDemoForbidden and aborts with 403.
func (h *DemoHandlers) Forbidden(c *gin.Context) {
	_ = c.Error(ErrDemoForbidden)
	c.AbortWithStatus(http.StatusForbidden)
}

// Fail answers with an API error body. The status comes from ?status=
// (default 400) and the code from ?code=, falling back to CodeForStatus.
func (h *DemoHandlers) Fail(c *gin.Context) {
	status := http.StatusBadRequest
	if raw := c.Query("status"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 400 || n > 599 {
			h.views.Fail(c, http.StatusBadRequest, ErrCodeBadRequest, "status must be an error status (400-599)")
			return
		}
		status = n
	}
	h.views.Fail(c, status, c.Query("code"), "demo failure")
}
