package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/viewlens/viewlens/internal/config"
	"github.com/viewlens/viewlens/internal/services"
	"github.com/viewlens/viewlens/internal/utils"
	"gorm.io/gorm"
)

// HealthHandler handles service health routes
type HealthHandler struct {
	Cfg *config.Config
	DB  *gorm.DB
}

// GetHealth handles GET /api/health
// @Summary Health check
// @Description Report metadata database connectivity
// @Tags Health
// @Produce json
// @Success 200 {object} services.HealthCheckResult
// @Failure 503 {object} services.HealthCheckResult
// @Router /health [get]
func (h *HealthHandler) GetHealth(c *fiber.Ctx) error {
	result := services.HealthCheck(h.Cfg, h.DB)
	status := fiber.StatusOK
	if result.Status != "healthy" {
		status = fiber.StatusServiceUnavailable
	}
	return utils.SuccessResponse(c, result, status)
}
