package httpapi

import (
	"net/http"
	"os"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GeorgeTG/oracle/internal/events"
)

func (s *Server) listPlayers(c *gin.Context) {
	models, err := s.players.ListAll(c.Request.Context())
	if err != nil {
		internalError(c, err)
		return
	}
	names := make([]string, 0, len(models))
	for _, model := range models {
		names = append(names, model.Name)
	}
	c.JSON(http.StatusOK, gin.H{"players": names, "total": len(names)})
}

func (s *Server) resetStats(c *gin.Context) {
	s.bus.Publish(events.StatsControlEvent{
		Timestamp: s.now(),
		Action:    events.StatsRestart,
	})
	c.JSON(http.StatusOK, gin.H{"status": "OK", "message": "stats reset command sent"})
}

func (s *Server) systemStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"services":   s.container.Loaded(),
		"ws_clients": s.broadcast.ClientCount(),
		"price_book": s.book.Loaded(),
	})
}

// restartSystem asks the process to shut down; the supervisor (or the
// launcher) brings it back up. The signal is delayed so the response gets
// written first.
func (s *Server) restartSystem(c *gin.Context) {
	s.log.Warn("Restart requested over HTTP")
	go func() {
		time.Sleep(500 * time.Millisecond)
		process, err := os.FindProcess(os.Getpid())
		if err != nil {
			s.log.WithError(err).Error("Failed to find own process")
			return
		}
		if err := process.Signal(syscall.SIGTERM); err != nil {
			s.log.WithError(err).Error("Failed to signal shutdown")
		}
	}()
	c.JSON(http.StatusAccepted, gin.H{"message": "restart initiated"})
}
