package httpapi

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GeorgeTG/oracle/internal/adapters/persistence"
	"github.com/GeorgeTG/oracle/internal/events"
)

type sessionJSON struct {
	ID                 uint    `json:"id"`
	PlayerName         string  `json:"player_name"`
	StartedAt          string  `json:"started_at"`
	EndedAt            *string `json:"ended_at"`
	TotalMaps          int     `json:"total_maps"`
	TotalCurrencyDelta float64 `json:"total_currency_delta"`
	CurrencyPerHour    float64 `json:"currency_per_hour"`
	CurrencyPerMap     float64 `json:"currency_per_map"`
	Title              string  `json:"title"`
	Description        string  `json:"description"`
	IsActive           bool    `json:"is_active"`
}

func (s *Server) sessionJSON(model persistence.SessionModel) sessionJSON {
	var ended *string
	if model.EndedAt != nil {
		stamp := model.EndedAt.Format(timeFormat)
		ended = &stamp
	}
	title := deref(model.Title)
	if title == "" {
		title = fmt.Sprintf("Session #%d", model.ID)
	}
	return sessionJSON{
		ID:                 model.ID,
		PlayerName:         deref(model.PlayerName),
		StartedAt:          model.StartedAt.Format(timeFormat),
		EndedAt:            ended,
		TotalMaps:          model.TotalMaps,
		TotalCurrencyDelta: model.TotalCurrencyDelta,
		CurrencyPerHour:    model.CurrencyPerHour,
		CurrencyPerMap:     model.CurrencyPerMap,
		Title:              title,
		Description:        deref(model.Description),
		IsActive:           model.EndedAt == nil,
	}
}

// sessionCurrency folds market transactions into a session's map currency.
// Transactions are valued at the current book price, matching how the live
// stats are computed.
func (s *Server) sessionCurrency(c *gin.Context, model persistence.SessionModel) gin.H {
	transactions, _, err := s.market.List(c.Request.Context(), &model.ID, 0, 0)
	if err != nil {
		s.log.WithError(err).Warn("Failed to load session transactions")
	}

	var marketCurrency float64
	for _, tx := range transactions {
		if tx.Item == nil {
			continue
		}
		value := s.book.GetPrice(tx.Item.ItemID) * float64(tx.Quantity)
		switch tx.Action {
		case persistence.MarketActionGained:
			marketCurrency += value
		case persistence.MarketActionLost:
			marketCurrency -= value
		}
	}

	total := model.TotalCurrencyDelta + marketCurrency

	var hours float64
	if model.EndedAt != nil {
		hours = model.EndedAt.Sub(model.StartedAt).Hours()
	} else if model.IsActive {
		hours = s.now().Sub(model.StartedAt).Hours()
	}
	perHour := 0.0
	if hours > 0 {
		perHour = total / hours
	}

	return gin.H{
		"total_currency":    total,
		"currency_per_hour": perHour,
		"market_currency":   marketCurrency,
		"maps_currency":     model.TotalCurrencyDelta,
	}
}

func (s *Server) createSession(c *gin.Context) {
	s.bus.Publish(events.SessionControlEvent{
		Timestamp: s.now(),
		Action:    events.SessionNext,
	})
	c.JSON(http.StatusAccepted, gin.H{
		"status":  "accepted",
		"message": "session control event published",
	})
}

func (s *Server) listSessions(c *gin.Context) {
	page, pageSize, offset := pagination(c, 50)
	playerFilter := c.Query("player_name")

	limit, off := pageSize, offset
	if playerFilter != "" {
		limit, off = 0, 0
	}
	models, total, err := s.sessions.List(c.Request.Context(), limit, off)
	if err != nil {
		internalError(c, err)
		return
	}

	if playerFilter != "" {
		kept := models[:0]
		for _, model := range models {
			if deref(model.PlayerName) == playerFilter {
				kept = append(kept, model)
			}
		}
		total = int64(len(kept))
		models = slicePage(kept, offset, pageSize)
	}

	results := make([]sessionJSON, 0, len(models))
	for _, model := range models {
		results = append(results, s.sessionJSON(model))
	}
	paged(c, total, page, pageSize, results)
}

func (s *Server) activeSession(c *gin.Context) {
	active, err := s.sessions.FindActive(c.Request.Context())
	if err != nil {
		internalError(c, err)
		return
	}
	if len(active) == 0 {
		c.JSON(http.StatusOK, gin.H{"session": nil})
		return
	}
	// Newest when strays exist; the session service adopts the oldest, but
	// the UI wants the one currently receiving maps.
	model := active[len(active)-1]

	maps, _, err := s.completions.List(c.Request.Context(), &model.ID, 10, 0)
	if err != nil {
		internalError(c, err)
		return
	}
	mapsData := make([]gin.H, 0, len(maps))
	for _, completion := range maps {
		mapsData = append(mapsData, gin.H{
			"id":              completion.ID,
			"map_name":        deref(completion.MapName),
			"map_difficulty":  deref(completion.MapDifficulty),
			"completed_at":    completion.CompletedAt.Format(timeFormat),
			"duration":        completion.Duration,
			"currency_gained": completion.CurrencyGained,
			"exp_gained":      completion.ExpGained,
			"description":     deref(completion.Description),
		})
	}

	currency := s.sessionCurrency(c, model)
	body := s.sessionJSON(model)
	c.JSON(http.StatusOK, gin.H{"session": gin.H{
		"id":                   body.ID,
		"player_name":          body.PlayerName,
		"started_at":           body.StartedAt,
		"ended_at":             body.EndedAt,
		"total_maps":           body.TotalMaps,
		"total_currency_delta": currency["total_currency"],
		"currency_per_hour":    currency["currency_per_hour"],
		"currency_per_map":     body.CurrencyPerMap,
		"maps_currency":        currency["maps_currency"],
		"market_currency":      currency["market_currency"],
		"title":                body.Title,
		"description":          body.Description,
		"is_active":            body.IsActive,
		"duration_seconds":     s.now().Sub(model.StartedAt).Seconds(),
		"maps":                 mapsData,
	}})
}

func (s *Server) getSession(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	model, err := s.sessions.FindByID(c.Request.Context(), id)
	if err != nil {
		notFound(c, "session")
		return
	}

	maps, _, err := s.completions.List(c.Request.Context(), &model.ID, 0, 0)
	if err != nil {
		internalError(c, err)
		return
	}
	mapsData := make([]gin.H, 0, len(maps))
	for _, completion := range maps {
		items, err := s.completions.Items(c.Request.Context(), completion.ID)
		if err != nil {
			s.log.WithError(err).Warn("Failed to load completion items")
		}
		itemsData := make([]gin.H, 0, len(items))
		for _, item := range items {
			if item.Item == nil {
				continue
			}
			itemsData = append(itemsData, gin.H{
				"item_id":     item.Item.ItemID,
				"name":        deref(item.Item.Name),
				"delta":       item.Delta,
				"total_price": item.TotalPrice,
			})
		}
		mapsData = append(mapsData, gin.H{
			"id":              completion.ID,
			"map_name":        deref(completion.MapName),
			"map_difficulty":  deref(completion.MapDifficulty),
			"started_at":      completion.StartedAt.Format(timeFormat),
			"completed_at":    completion.CompletedAt.Format(timeFormat),
			"duration":        completion.Duration,
			"currency_gained": completion.CurrencyGained,
			"exp_gained":      completion.ExpGained,
			"items_gained":    completion.ItemsGained,
			"description":     deref(completion.Description),
			"items":           itemsData,
		})
	}

	transactions, _, err := s.market.List(c.Request.Context(), &model.ID, 0, 0)
	if err != nil {
		internalError(c, err)
		return
	}
	marketData := make([]gin.H, 0, len(transactions))
	for _, tx := range transactions {
		if tx.Item == nil {
			continue
		}
		price := s.book.GetPrice(tx.Item.ItemID)
		marketData = append(marketData, gin.H{
			"id":          tx.ID,
			"timestamp":   tx.Timestamp.Format(timeFormat),
			"item_id":     tx.Item.ItemID,
			"item_name":   deref(tx.Item.Name),
			"quantity":    tx.Quantity,
			"action":      tx.Action,
			"unit_price":  price,
			"total_value": price * float64(tx.Quantity),
		})
	}

	duration := 0.0
	if model.EndedAt != nil {
		duration = model.EndedAt.Sub(model.StartedAt).Seconds()
	} else if model.IsActive {
		duration = s.now().Sub(model.StartedAt).Seconds()
	}

	currency := s.sessionCurrency(c, *model)
	body := s.sessionJSON(*model)
	c.JSON(http.StatusOK, gin.H{
		"id":                  body.ID,
		"player_name":         body.PlayerName,
		"started_at":          body.StartedAt,
		"ended_at":            body.EndedAt,
		"duration_seconds":    duration,
		"is_active":           body.IsActive,
		"title":               body.Title,
		"description":         body.Description,
		"total_maps":          body.TotalMaps,
		"total_currency":      currency["total_currency"],
		"maps_currency":       currency["maps_currency"],
		"market_currency":     currency["market_currency"],
		"currency_per_hour":   currency["currency_per_hour"],
		"currency_per_map":    body.CurrencyPerMap,
		"maps":                mapsData,
		"market_transactions": marketData,
	})
}

type sessionUpdateRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

func (s *Server) updateSession(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req sessionUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	model, err := s.sessions.Update(c.Request.Context(), id, updates)
	if err != nil {
		notFound(c, "session")
		return
	}
	c.JSON(http.StatusOK, s.sessionJSON(*model))
}
