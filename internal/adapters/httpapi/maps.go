package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/GeorgeTG/oracle/internal/adapters/persistence"
)

type mapAffixJSON struct {
	AffixID     int    `json:"affix_id"`
	Description string `json:"description"`
}

type mapCompletionJSON struct {
	ID             uint           `json:"id"`
	PlayerName     string         `json:"player_name"`
	SessionID      *uint          `json:"session_id,omitempty"`
	MapID          int            `json:"map_id"`
	MapName        string         `json:"map_name"`
	MapDifficulty  string         `json:"map_difficulty"`
	Affixes        []mapAffixJSON `json:"affixes"`
	StartedAt      string         `json:"started_at"`
	CompletedAt    string         `json:"completed_at"`
	Duration       float64        `json:"duration"`
	CurrencyGained float64        `json:"currency_gained"`
	ExpGained      float64        `json:"exp_gained"`
	ItemsGained    int            `json:"items_gained"`
	Description    string         `json:"description"`
}

func (s *Server) mapCompletionJSON(c *gin.Context, model persistence.MapCompletionModel, names map[uint]string) mapCompletionJSON {
	affixes, err := s.completions.Affixes(c.Request.Context(), model.ID)
	if err != nil {
		s.log.WithError(err).Warn("Failed to load affixes for completion")
	}
	affixList := make([]mapAffixJSON, 0, len(affixes))
	for _, affix := range affixes {
		affixList = append(affixList, mapAffixJSON{
			AffixID:     affix.AffixID,
			Description: deref(affix.Description),
		})
	}

	return mapCompletionJSON{
		ID:             model.ID,
		PlayerName:     names[model.PlayerID],
		SessionID:      model.SessionID,
		MapID:          model.MapID,
		MapName:        deref(model.MapName),
		MapDifficulty:  deref(model.MapDifficulty),
		Affixes:        affixList,
		StartedAt:      model.StartedAt.Format(timeFormat),
		CompletedAt:    model.CompletedAt.Format(timeFormat),
		Duration:       model.Duration,
		CurrencyGained: model.CurrencyGained,
		ExpGained:      model.ExpGained,
		ItemsGained:    model.ItemsGained,
		Description:    deref(model.Description),
	}
}

const timeFormat = "2006-01-02T15:04:05.999999Z07:00"

// playerNames maps player primary keys to character names for serialization.
func (s *Server) playerNames(c *gin.Context) map[uint]string {
	names := map[uint]string{}
	players, err := s.players.ListAll(c.Request.Context())
	if err != nil {
		s.log.WithError(err).Warn("Failed to list players")
		return names
	}
	for _, player := range players {
		names[player.ID] = player.Name
	}
	return names
}

func (s *Server) listMaps(c *gin.Context) {
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

	playerFilter := c.Query("player_name")
	nameFilter := strings.ToLower(c.Query("map_name_filter"))
	minCurrency, hasMinCurrency := floatQuery(c, "min_currency")
	minExp, hasMinExp := floatQuery(c, "min_exp")

	names := s.playerNames(c)

	// Post-filters force a full fetch; the session scope stays in SQL.
	filtered := playerFilter != "" || nameFilter != "" || hasMinCurrency || hasMinExp
	limit, off := pageSize, offset
	if filtered {
		limit, off = 0, 0
	}

	models, total, err := s.completions.List(c.Request.Context(), sessionID, limit, off)
	if err != nil {
		internalError(c, err)
		return
	}

	if filtered {
		kept := models[:0]
		for _, model := range models {
			if playerFilter != "" && names[model.PlayerID] != playerFilter {
				continue
			}
			if nameFilter != "" && !strings.Contains(strings.ToLower(deref(model.MapName)), nameFilter) {
				continue
			}
			if hasMinCurrency && model.CurrencyGained < minCurrency {
				continue
			}
			if hasMinExp && model.ExpGained < minExp {
				continue
			}
			kept = append(kept, model)
		}
		total = int64(len(kept))
		models = slicePage(kept, offset, pageSize)
	}

	results := make([]mapCompletionJSON, 0, len(models))
	for _, model := range models {
		results = append(results, s.mapCompletionJSON(c, model, names))
	}
	paged(c, total, page, pageSize, results)
}

func (s *Server) getMap(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	model, err := s.completions.FindByID(c.Request.Context(), id)
	if err != nil {
		notFound(c, "map")
		return
	}
	c.JSON(http.StatusOK, s.mapCompletionJSON(c, *model, s.playerNames(c)))
}

func (s *Server) getMapItems(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if _, err := s.completions.FindByID(c.Request.Context(), id); err != nil {
		notFound(c, "map")
		return
	}
	consumed := c.Query("consumed") == "true"

	items, err := s.completions.Items(c.Request.Context(), id)
	if err != nil {
		internalError(c, err)
		return
	}

	results := make([]gin.H, 0, len(items))
	for _, item := range items {
		if item.Consumed != consumed {
			continue
		}
		entry := gin.H{}
		if item.Item != nil {
			entry["id"] = item.Item.ItemID
			entry["name"] = deref(item.Item.Name)
			entry["category"] = deref(item.Item.Category)
		}
		if consumed {
			// Entry costs read better as positive amounts spent.
			entry["quantity"] = abs(item.Delta)
			entry["total_price"] = absFloat(item.TotalPrice)
		} else {
			entry["delta"] = item.Delta
			entry["total_price"] = item.TotalPrice
		}
		results = append(results, entry)
	}
	c.JSON(http.StatusOK, results)
}

type mapUpdateRequest struct {
	Description *string `json:"description"`
}

func (s *Server) updateMap(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req mapUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	updates := map[string]interface{}{}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	model, err := s.completions.Update(c.Request.Context(), id, updates)
	if err != nil {
		notFound(c, "map")
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": model.ID, "description": req.Description})
}

func (s *Server) deleteMap(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	model, err := s.completions.FindByID(c.Request.Context(), id)
	if err != nil {
		notFound(c, "map")
		return
	}
	sessionID := model.SessionID

	if err := s.completions.Delete(c.Request.Context(), id); err != nil {
		internalError(c, err)
		return
	}
	if sessionID != nil {
		s.recalcSession(c, *sessionID)
	}
	c.JSON(http.StatusOK, gin.H{"message": "map deleted"})
}

// recalcSession rebuilds a session's aggregate counters from its remaining
// runs after a deletion.
func (s *Server) recalcSession(c *gin.Context, sessionID uint) {
	ctx := c.Request.Context()
	remaining, _, err := s.completions.List(ctx, &sessionID, 0, 0)
	if err != nil {
		s.log.WithError(err).Warn("Failed to reload session maps")
		return
	}

	var currency, exp, duration float64
	for _, model := range remaining {
		currency += model.CurrencyGained
		exp += model.ExpGained
		duration += model.Duration
	}

	updates := map[string]interface{}{
		"total_maps":           len(remaining),
		"total_currency_delta": currency,
		"exp_total":            exp,
		"currency_per_hour":    0.0,
		"currency_per_map":     0.0,
	}
	if len(remaining) > 0 {
		if duration > 0 {
			updates["currency_per_hour"] = currency / (duration / 3600)
		}
		updates["currency_per_map"] = currency / float64(len(remaining))
	}
	if _, err := s.sessions.Update(ctx, sessionID, updates); err != nil {
		s.log.WithError(err).Warn("Failed to update session after map deletion")
	}
}

func floatQuery(c *gin.Context, key string) (float64, bool) {
	raw := c.Query(key)
	if raw == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

func slicePage[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
