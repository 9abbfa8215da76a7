package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// getPoolStats reports the database connection pool snapshot.
func (s *Server) getPoolStats(c echo.Context) error {
	if s.poolStats == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "pool statistics unavailable")
	}
	return c.JSON(http.StatusOK, s.poolStats.PoolStats())
}
