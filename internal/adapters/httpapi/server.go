// Package httpapi exposes the daemon's query surface: REST endpoints over
// the persisted history and a websocket for outbound event streaming. The
// handlers are a thin layer; anything stateful goes through the bus or the
// repositories.
package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/GeorgeTG/oracle/internal/adapters/persistence"
	"github.com/GeorgeTG/oracle/internal/events"
	"github.com/GeorgeTG/oracle/internal/pricebook"
	"github.com/GeorgeTG/oracle/internal/services"
)

// Server carries the handler dependencies.
type Server struct {
	bus *events.Bus
	log *logrus.Entry

	players     *persistence.GormPlayerRepository
	items       *persistence.GormItemRepository
	inventory   *persistence.GormInventoryRepository
	sessions    *persistence.GormSessionRepository
	completions *persistence.GormMapCompletionRepository
	market      *persistence.GormMarketTransactionRepository

	book      *pricebook.Book
	broadcast *services.WebSocketService
	container *services.Container

	upgrader websocket.Upgrader
	now      func() time.Time
}

// Deps bundles the server's collaborators.
type Deps struct {
	Bus         *events.Bus
	Players     *persistence.GormPlayerRepository
	Items       *persistence.GormItemRepository
	Inventory   *persistence.GormInventoryRepository
	Sessions    *persistence.GormSessionRepository
	Completions *persistence.GormMapCompletionRepository
	Market      *persistence.GormMarketTransactionRepository
	Book        *pricebook.Book
	Broadcast   *services.WebSocketService
	Container   *services.Container
	Log         *logrus.Entry
}

// New creates a Server over the given collaborators.
func New(deps Deps) *Server {
	return &Server{
		bus:         deps.Bus,
		log:         deps.Log,
		players:     deps.Players,
		items:       deps.Items,
		inventory:   deps.Inventory,
		sessions:    deps.Sessions,
		completions: deps.Completions,
		market:      deps.Market,
		book:        deps.Book,
		broadcast:   deps.Broadcast,
		container:   deps.Container,
		upgrader: websocket.Upgrader{
			// The UI is served from the desktop launcher, not from this
			// process, so cross-origin upgrades are expected.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		now: time.Now,
	}
}

// Router builds the gin engine with all routes attached.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	maps := r.Group("/maps")
	maps.GET("", s.listMaps)
	maps.GET("/:id", s.getMap)
	maps.GET("/:id/items", s.getMapItems)
	maps.PATCH("/:id", s.updateMap)
	maps.DELETE("/:id", s.deleteMap)

	sessions := r.Group("/sessions")
	sessions.POST("", s.createSession)
	sessions.GET("", s.listSessions)
	sessions.GET("/active", s.activeSession)
	sessions.GET("/:id", s.getSession)
	sessions.PATCH("/:id", s.updateSession)

	items := r.Group("/items")
	items.GET("", s.listItems)
	items.GET("/export", s.exportItems)
	items.GET("/:id", s.getItem)
	items.POST("", s.createItem)
	items.PATCH("/:id", s.updateItem)
	items.DELETE("/:id", s.deleteItem)

	r.GET("/inventory", s.getInventory)
	r.GET("/players", s.listPlayers)

	market := r.Group("/market")
	market.GET("", s.listTransactions)
	market.GET("/:id", s.getTransaction)

	r.POST("/stats/reset", s.resetStats)

	system := r.Group("/system")
	system.GET("/status", s.systemStatus)
	system.POST("/restart", s.restartSystem)

	r.GET("/ws", s.serveWS)

	return r
}

// pagination reads page / page_size query parameters, 1-indexed with a
// clamped page size.
func pagination(c *gin.Context, defaultSize int) (page, pageSize, offset int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(defaultSize)))
	if pageSize < 1 {
		pageSize = defaultSize
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize, (page - 1) * pageSize
}

func totalPages(total int64, pageSize int) int64 {
	return (total + int64(pageSize) - 1) / int64(pageSize)
}

func paged(c *gin.Context, total int64, page, pageSize int, results any) {
	c.JSON(http.StatusOK, gin.H{
		"total":       total,
		"page":        page,
		"page_size":   pageSize,
		"total_pages": totalPages(total, pageSize),
		"results":     results,
	})
}

func idParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}

func notFound(c *gin.Context, what string) {
	c.JSON(http.StatusNotFound, gin.H{"error": what + " not found"})
}

func internalError(c *gin.Context, err error) {
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
