package handlers

import (
	"net/http"

	"fleet-manager/internal/services"
	"fleet-manager/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type TruckHandler struct {
	truckService *services.TruckService
	validator    *validator.Validate
}

func NewTruckHandler(truckService *services.TruckService) *TruckHandler {
	return &TruckHandler{
		truckService: truckService,
		validator:    validator.New(),
	}
}

// GetTrucks lists all trucks, or returns one when an id is given.
func (h *TruckHandler) GetTrucks(c *gin.Context) {
	if c.Param("id") != "" {
		h.GetTruck(c)
		return
	}

	trucks, err := h.truckService.GetAllTrucks(c.Request.Context())
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, utils.MsgFetched, trucks)
}

// GetTruck retrieves a specific truck by ID
func (h *TruckHandler) GetTruck(c *gin.Context) {
	id, ok := requireID(c, "truck")
	if !ok {
		return
	}

	truck, err := h.truckService.GetTruckByID(c.Request.Context(), id)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, utils.MsgFetched, truck)
}

// GetTruckStatus lists trucks with their trips expanded.
func (h *TruckHandler) GetTruckStatus(c *gin.Context) {
	trucks, err := h.truckService.GetTrucksWithTrips(c.Request.Context())
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, utils.MsgFetched, trucks)
}

func (h *TruckHandler) CreateTruck(c *gin.Context) {
	var req services.CreateTruckRequest
	if !bindJSON(c, h.validator, &req) {
		return
	}

	truck, err := h.truckService.CreateTruck(c.Request.Context(), &req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, utils.MsgCreated, truck)
}

func (h *TruckHandler) UpdateTruck(c *gin.Context) {
	id, ok := requireID(c, "truck")
	if !ok {
		return
	}

	var req services.UpdateTruckRequest
	if !bindJSON(c, h.validator, &req) {
		return
	}

	truck, err := h.truckService.UpdateTruck(c.Request.Context(), id, &req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, utils.MsgUpdated, truck)
}

// DeleteTruck deletes the truck together with its trips and expenses.
func (h *TruckHandler) DeleteTruck(c *gin.Context) {
	id, ok := requireID(c, "truck")
	if !ok {
		return
	}

	result, err := h.truckService.DeleteTruck(c.Request.Context(), id)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, utils.MsgDeleted, result)
}
