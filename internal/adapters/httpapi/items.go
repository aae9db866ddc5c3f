package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/GeorgeTG/oracle/internal/adapters/persistence"
	"github.com/GeorgeTG/oracle/internal/events"
)

type itemJSON struct {
	ID       uint    `json:"id"`
	ItemID   int     `json:"item_id"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Rarity   string  `json:"rarity"`
	Price    float64 `json:"price"`
}

func toItemJSON(model persistence.ItemModel) itemJSON {
	return itemJSON{
		ID:       model.ID,
		ItemID:   model.ItemID,
		Name:     deref(model.Name),
		Category: deref(model.Category),
		Rarity:   deref(model.Rarity),
		Price:    model.Price,
	}
}

func (s *Server) listItems(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if limit < 1 || limit > 1000 {
		limit = 100
	}
	category := c.Query("category")
	minPrice, hasMin := floatQuery(c, "min_price")
	maxPrice, hasMax := floatQuery(c, "max_price")

	fetch := limit
	if category != "" || hasMin || hasMax {
		fetch = 0
	}
	models, _, err := s.items.List(c.Request.Context(), fetch, 0)
	if err != nil {
		internalError(c, err)
		return
	}

	results := make([]itemJSON, 0, len(models))
	for _, model := range models {
		if category != "" && deref(model.Category) != category {
			continue
		}
		if hasMin && model.Price < minPrice {
			continue
		}
		if hasMax && model.Price > maxPrice {
			continue
		}
		results = append(results, toItemJSON(model))
		if len(results) == limit {
			break
		}
	}
	c.JSON(http.StatusOK, results)
}

// exportItems renders the catalogue in the price table file format so an
// edited database can seed another install.
func (s *Server) exportItems(c *gin.Context) {
	models, _, err := s.items.List(c.Request.Context(), 0, 0)
	if err != nil {
		internalError(c, err)
		return
	}

	export := make(map[string]gin.H, len(models))
	for _, model := range models {
		entry := gin.H{
			"name":  deref(model.Name),
			"type":  deref(model.Category),
			"price": model.Price,
		}
		if !model.UpdatedAt.IsZero() {
			entry["updated_at"] = model.UpdatedAt.Unix()
		}
		export[strconv.Itoa(model.ItemID)] = entry
	}

	c.Header("Content-Disposition", "attachment; filename=items_export.json")
	c.JSON(http.StatusOK, export)
}

// getItem resolves by the game item id; catalogue primary keys never leave
// this process.
func (s *Server) getItem(c *gin.Context) {
	itemID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid id"})
		return
	}
	model, err := s.items.FindByItemID(c.Request.Context(), itemID)
	if err != nil {
		notFound(c, "item")
		return
	}
	c.JSON(http.StatusOK, toItemJSON(*model))
}

type itemCreateRequest struct {
	ItemID   int     `json:"item_id" binding:"required"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Rarity   string  `json:"rarity"`
	Price    float64 `json:"price"`
}

func (s *Server) createItem(c *gin.Context) {
	var req itemCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	if _, err := s.items.FindByItemID(c.Request.Context(), req.ItemID); err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "item already exists"})
		return
	}

	model, err := s.items.GetOrCreate(c.Request.Context(), req.ItemID, req.Name, req.Category)
	if err != nil {
		internalError(c, err)
		return
	}
	updates := map[string]interface{}{"price": req.Price}
	if req.Rarity != "" {
		updates["rarity"] = req.Rarity
	}
	model, err = s.items.Update(c.Request.Context(), req.ItemID, updates)
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toItemJSON(*model))
}

type itemUpdateRequest struct {
	Name     *string  `json:"name"`
	Category *string  `json:"category"`
	Rarity   *string  `json:"rarity"`
	Price    *float64 `json:"price"`
}

func (s *Server) updateItem(c *gin.Context) {
	itemID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid id"})
		return
	}
	var req itemUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Category != nil {
		updates["category"] = *req.Category
	}
	if req.Rarity != nil {
		updates["rarity"] = *req.Rarity
	}
	if req.Price != nil {
		updates["price"] = *req.Price
	}

	model, err := s.items.Update(c.Request.Context(), itemID, updates)
	if err != nil {
		notFound(c, "item")
		return
	}

	// The price book subscribes to this and patches its cache in place.
	s.bus.Publish(events.ItemDataChangedEvent{
		Timestamp: s.now(),
		ItemID:    model.ItemID,
		Name:      deref(model.Name),
		Category:  deref(model.Category),
		Price:     model.Price,
	})

	c.JSON(http.StatusOK, toItemJSON(*model))
}

func (s *Server) deleteItem(c *gin.Context) {
	itemID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid id"})
		return
	}
	if err := s.items.Delete(c.Request.Context(), itemID); err != nil {
		notFound(c, "item")
		return
	}
	c.Status(http.StatusNoContent)
}
