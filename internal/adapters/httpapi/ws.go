package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// serveWS upgrades the request and hands the connection to the broadcaster.
// Attach blocks until the client hangs up, which keeps the handler goroutine
// owning the read side.
func (s *Server) serveWS(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.WithError(err).Warn("WebSocket upgrade failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "upgrade failed"})
		return
	}
	s.broadcast.Attach(conn)
}
