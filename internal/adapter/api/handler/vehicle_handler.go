package handler

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"carlink/internal/domain/repository"
	"carlink/pkg/response"
	"carlink/pkg/utils"
)

type VehicleHandler struct {
	vehicleRepo repository.VehicleRepository
}

func NewVehicleHandler(vehicleRepo repository.VehicleRepository) *VehicleHandler {
	return &VehicleHandler{
		vehicleRepo: vehicleRepo,
	}
}

// GetVehicle returns a single listing
func (h *VehicleHandler) GetVehicle(c echo.Context) error {
	vehicle, err := h.vehicleRepo.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, vehicle)
}

// ListVehicles returns listings filtered by make, dealer and price ceiling
func (h *VehicleHandler) ListVehicles(c echo.Context) error {
	filter := map[string]interface{}{}
	if makeName := c.QueryParam("make"); makeName != "" {
		filter["make"] = makeName
	}
	if dealerID := c.QueryParam("dealer_id"); dealerID != "" {
		filter["dealerId"] = dealerID
	}
	if maxPriceStr := c.QueryParam("max_price"); maxPriceStr != "" {
		if maxPrice, err := strconv.ParseFloat(maxPriceStr, 64); err == nil && maxPrice > 0 {
			filter["maxPrice"] = maxPrice
		}
	}

	params := utils.ListParamsFromRequest(c)

	vehicles, total, err := h.vehicleRepo.List(c.Request().Context(), filter, params.Limit, params.Offset)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Paginated(c, vehicles, total, params.Page, params.Limit)
}
