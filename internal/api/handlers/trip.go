package handlers

import (
	"net/http"

	"fleet-manager/internal/services"
	"fleet-manager/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type TripHandler struct {
	tripService *services.TripService
	validator   *validator.Validate
}

func NewTripHandler(tripService *services.TripService) *TripHandler {
	return &TripHandler{
		tripService: tripService,
		validator:   validator.New(),
	}
}

// GetTrips lists all trips, or returns one when an id is given.
func (h *TripHandler) GetTrips(c *gin.Context) {
	if c.Param("id") != "" {
		h.GetTrip(c)
		return
	}

	trips, err := h.tripService.GetAllTrips(c.Request.Context())
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, utils.MsgFetched, trips)
}

func (h *TripHandler) GetTrip(c *gin.Context) {
	id, ok := requireID(c, "trip")
	if !ok {
		return
	}

	trip, err := h.tripService.GetTripByID(c.Request.Context(), id)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, utils.MsgFetched, trip)
}

// GetTripsByTruckPeriod handles /trips/:truck/:year/:month.
func (h *TripHandler) GetTripsByTruckPeriod(c *gin.Context) {
	trips, err := h.tripService.GetTripsByTruckPeriod(c.Request.Context(), c.Param("truck"), c.Param("year"), c.Param("month"))
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, utils.MsgFetched, trips)
}

func (h *TripHandler) GetPendingTrips(c *gin.Context) {
	trips, err := h.tripService.GetPendingTrips(c.Request.Context())
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, utils.MsgFetched, trips)
}

// GetCompletedTrips takes month and year from the path or the query string.
func (h *TripHandler) GetCompletedTrips(c *gin.Context) {
	month := c.Param("month")
	if month == "" {
		month = c.Query("month")
	}
	year := c.Param("year")
	if year == "" {
		year = c.Query("year")
	}

	trips, err := h.tripService.GetCompletedTrips(c.Request.Context(), month, year)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, utils.MsgFetched, trips)
}

func (h *TripHandler) CreateTrip(c *gin.Context) {
	var req services.CreateTripRequest
	if !bindJSON(c, h.validator, &req) {
		return
	}

	trip, err := h.tripService.CreateTrip(c.Request.Context(), &req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, utils.MsgCreated, trip)
}

func (h *TripHandler) UpdateTrip(c *gin.Context) {
	id, ok := requireID(c, "trip")
	if !ok {
		return
	}

	var req services.UpdateTripRequest
	if !bindJSON(c, h.validator, &req) {
		return
	}

	trip, err := h.tripService.UpdateTrip(c.Request.Context(), id, &req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, utils.MsgUpdated, trip)
}

func (h *TripHandler) DeleteTrip(c *gin.Context) {
	id, ok := requireID(c, "trip")
	if !ok {
		return
	}

	if err := h.tripService.DeleteTrip(c.Request.Context(), id); err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, utils.MsgDeleted, gin.H{"id": id})
}
