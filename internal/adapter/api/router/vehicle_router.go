package router

import (
	"github.com/labstack/echo/v4"

	"carlink/internal/adapter/api/handler"
	"carlink/internal/adapter/api/middleware"
)

func SetupVehicleRouter(e *echo.Echo, vehicleHandler *handler.VehicleHandler, authMiddleware *middleware.AuthMiddleware) {
	group := e.Group("/v1/vehicles")
	group.Use(authMiddleware.Authenticate)

	group.GET("", vehicleHandler.ListVehicles)  // GET /v1/vehicles
	group.GET("/:id", vehicleHandler.GetVehicle) // GET /v1/vehicles/:id
}
