package server

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/shopchat/shopchat/internal/shopper"
)

// SessionRunner is the handler's view of the pipeline.
type SessionRunner interface {
	Handle(ctx context.Context, query, sessionID string) (*shopper.Session, error)
}

type SearchHandler struct {
	Runner SessionRunner
}

func (h *SearchHandler) Register(e *echo.Echo) {
	e.GET("/search", h.Search)
}

// Search runs the full pipeline for ?query= and returns the session document.
func (h *SearchHandler) Search(c echo.Context) error {
	query := c.QueryParam("query")
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query parameter is required")
	}
	sess, err := h.Runner.Handle(c.Request().Context(), query, c.QueryParam("session_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, sess)
}
