package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"holds-service/internal/models"
	"holds-service/internal/service"
)

// HoldsHandler handles HTTP requests for hold and reservation records
type HoldsHandler struct {
	holdsService *service.HoldsService
}

// NewHoldsHandler creates a new holds API handler
func NewHoldsHandler(holdsService *service.HoldsService) *HoldsHandler {
	return &HoldsHandler{holdsService: holdsService}
}

// RegisterRoutes attaches the record routes to an API group
func (h *HoldsHandler) RegisterRoutes(api *gin.RouterGroup) {
	api.POST("/holds", h.placeHold)
	api.GET("/holds", h.listHolds)
	api.DELETE("/holds/:id", h.cancelHold)
	api.PATCH("/holds/:id/status", h.updateHoldStatus)

	api.POST("/reservations", h.placeReservation)
	api.GET("/reservations", h.listReservations)
	api.DELETE("/reservations/:id", h.cancelReservation)

	api.GET("/users/:id/holds", h.getUserHolds)
	api.GET("/users/:id/reservations", h.getUserReservations)
	api.GET("/items/:id/holds", h.getItemHolds)
}

// placeHold queues a hold on a checked-out item
func (h *HoldsHandler) placeHold(c *gin.Context) {
	var req models.PlaceHoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Debug().Err(err).Msg("Failed to bind place hold request")
		Response.BindError(c, err)
		return
	}

	response, err := h.holdsService.PlaceHold(c.Request.Context(), req.UserID, req.ItemID)
	if err != nil {
		Response.Error(c, err)
		return
	}

	Response.Created(c, response)
}

// placeReservation claims an available item for pickup
func (h *HoldsHandler) placeReservation(c *gin.Context) {
	var req models.PlaceReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Debug().Err(err).Msg("Failed to bind place reservation request")
		Response.BindError(c, err)
		return
	}

	response, err := h.holdsService.PlaceReservation(c.Request.Context(), req.UserID, req.ItemID)
	if err != nil {
		Response.Error(c, err)
		return
	}

	Response.Created(c, response)
}

// cancelHold removes a hold and repairs the item queue
func (h *HoldsHandler) cancelHold(c *gin.Context) {
	if err := h.holdsService.CancelHold(c.Request.Context(), c.Param("id")); err != nil {
		Response.Error(c, err)
		return
	}
	Response.NoContent(c)
}

// cancelReservation transitions a reservation to cancelled
func (h *HoldsHandler) cancelReservation(c *gin.Context) {
	if err := h.holdsService.CancelReservation(c.Request.Context(), c.Param("id")); err != nil {
		Response.Error(c, err)
		return
	}
	Response.NoContent(c)
}

// updateHoldStatus performs the administrative status transition
func (h *HoldsHandler) updateHoldStatus(c *gin.Context) {
	var req models.UpdateHoldStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Debug().Err(err).Msg("Failed to bind update status request")
		Response.BindError(c, err)
		return
	}

	if err := h.holdsService.UpdateHoldStatus(c.Request.Context(), c.Param("id"), req.Status, req.Notified); err != nil {
		Response.Error(c, err)
		return
	}

	Response.NoContent(c)
}

// getUserHolds lists a patron's holds with their profile attached
func (h *HoldsHandler) getUserHolds(c *gin.Context) {
	response, err := h.holdsService.GetUserHolds(c.Request.Context(), c.Param("id"))
	if err != nil {
		Response.Error(c, err)
		return
	}
	Response.Success(c, response)
}

// getUserReservations lists a patron's reservations
func (h *HoldsHandler) getUserReservations(c *gin.Context) {
	reservations, err := h.holdsService.GetUserReservations(c.Request.Context(), c.Param("id"))
	if err != nil {
		Response.Error(c, err)
		return
	}
	Response.Success(c, gin.H{"reservations": reservations})
}

// getItemHolds lists an item's queue ordered by position
func (h *HoldsHandler) getItemHolds(c *gin.Context) {
	holds, err := h.holdsService.GetItemHolds(c.Request.Context(), c.Param("id"))
	if err != nil {
		Response.Error(c, err)
		return
	}
	Response.Success(c, gin.H{"holds": holds})
}

// listHolds lists every hold record
func (h *HoldsHandler) listHolds(c *gin.Context) {
	holds, err := h.holdsService.GetAllHolds(c.Request.Context())
	if err != nil {
		Response.Error(c, err)
		return
	}
	Response.Success(c, gin.H{"holds": holds})
}

// listReservations lists every reservation record
func (h *HoldsHandler) listReservations(c *gin.Context) {
	reservations, err := h.holdsService.GetAllReservations(c.Request.Context())
	if err != nil {
		Response.Error(c, err)
		return
	}
	Response.Success(c, gin.H{"reservations": reservations})
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "holds-service",
	})
}
