package httpapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/GeorgeTG/oracle/internal/adapters/persistence"
)

// getInventory returns the persisted bags as player -> page -> slots.
func (s *Server) getInventory(c *gin.Context) {
	ctx := c.Request.Context()

	var players []persistence.PlayerModel
	if name := c.Query("player_name"); name != "" {
		player, err := s.players.FindByName(ctx, name)
		if err != nil {
			notFound(c, "player")
			return
		}
		players = []persistence.PlayerModel{*player}
	} else {
		all, err := s.players.ListAll(ctx)
		if err != nil {
			internalError(c, err)
			return
		}
		players = all
	}

	tree := gin.H{}
	for _, player := range players {
		slots, err := s.inventory.LoadForPlayer(ctx, player.ID)
		if err != nil {
			internalError(c, err)
			return
		}
		if len(slots) == 0 {
			continue
		}

		pages := map[string][]gin.H{}
		for _, slot := range slots {
			itemName := "Unknown Item"
			var itemID any
			if slot.Item != nil {
				itemID = slot.Item.ItemID
				if name := deref(slot.Item.Name); name != "" {
					itemName = name
				} else {
					itemName = fmt.Sprintf("Item #%d", slot.Item.ItemID)
				}
			}
			key := strconv.Itoa(slot.Page)
			pages[key] = append(pages[key], gin.H{
				"slot":      slot.Slot,
				"item_id":   itemID,
				"item_name": itemName,
				"quantity":  slot.Quantity,
				"timestamp": slot.UpdatedAt.Format(timeFormat),
			})
		}
		tree[player.Name] = pages
	}

	c.JSON(http.StatusOK, gin.H{"inventory": tree})
}
