package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/GeorgeTG/oracle/internal/adapters/persistence"
)

func (s *Server) transactionJSON(model persistence.MarketTransactionModel, names map[uint]string) gin.H {
	body := gin.H{
		"id":         model.ID,
		"timestamp":  model.Timestamp.Format(timeFormat),
		"quantity":   model.Quantity,
		"action":     model.Action,
		"session_id": model.SessionID,
	}
	if model.PlayerID != nil {
		body["player_name"] = names[*model.PlayerID]
	}
	if model.Item != nil {
		body["item_id"] = model.Item.ItemID
		body["item_name"] = deref(model.Item.Name)
	}
	return body
}

func (s *Server) listTransactions(c *gin.Context) {
	page, pageSize, offset := pagination(c, 20)

	var sessionID *uint
	if raw := c.Query("session_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid session_id"})
			return
		}
		u := uint(id)
		sessionID = &u
	}
	actionFilter := c.Query("action_filter")

	limit, off := pageSize, offset
	if actionFilter != "" {
		limit, off = 0, 0
	}
	models, total, err := s.market.List(c.Request.Context(), sessionID, limit, off)
	if err != nil {
		internalError(c, err)
		return
	}

	if actionFilter != "" {
		kept := models[:0]
		for _, model := range models {
			if model.Action == actionFilter {
				kept = append(kept, model)
			}
		}
		total = int64(len(kept))
		models = slicePage(kept, offset, pageSize)
	}

	names := s.playerNames(c)
	results := make([]gin.H, 0, len(models))
	for _, model := range models {
		results = append(results, s.transactionJSON(model, names))
	}
	paged(c, total, page, pageSize, results)
}

func (s *Server) getTransaction(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	model, err := s.market.FindByID(c.Request.Context(), id)
	if err != nil {
		notFound(c, "transaction")
		return
	}

	body := s.transactionJSON(*model, s.playerNames(c))
	if model.Item != nil {
		body["item_category"] = deref(model.Item.Category)
		body["item_rarity"] = deref(model.Item.Rarity)
		price := s.book.GetPrice(model.Item.ItemID)
		body["unit_price"] = price
		body["total_value"] = price * float64(model.Quantity)
	}
	c.JSON(http.StatusOK, body)
}
