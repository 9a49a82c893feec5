package handlers

import (
	"time"

	"finadvisor/internal/dto"
	"finadvisor/internal/service"
	"finadvisor/pkg/config"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type RecommendationHandler struct {
	recService *service.RecommendationService
	serverCfg  *config.ServerConfig
	logger     *zap.Logger
}

func NewRecommendationHandler(recService *service.RecommendationService, serverCfg *config.ServerConfig, logger *zap.Logger) *RecommendationHandler {
	return &RecommendationHandler{
		recService: recService,
		serverCfg:  serverCfg,
		logger:     logger,
	}
}

// GetCurrent godoc
// @Summary Get current recommendation
// @Description Get the user's active, unexpired recommendation
// @Tags recommendations
// @Produce json
// @Security Bearer
// @Success 200 {object} dto.RecommendationResponse
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/v1/recommendations/current [get]
func (h *RecommendationHandler) GetCurrent(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	rec, err := h.recService.GetCurrent(c.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to get current recommendation", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get recommendation",
		})
	}
	if rec == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "No active recommendation",
		})
	}

	return c.JSON(dto.NewRecommendationResponse(rec))
}

// Generate godoc
// @Summary Generate a recommendation
// @Description Generate a new recommendation from the last 7 days of transactions. Throttled to one per 24 hours; force=true bypasses the throttle outside production.
// @Tags recommendations
// @Produce json
// @Param force query bool false "Force regeneration (non-production only)"
// @Security Bearer
// @Success 201 {object} dto.RecommendationResponse
// @Failure 401 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 429 {object} map[string]string
// @Router /api/v1/recommendations/generate [post]
func (h *RecommendationHandler) Generate(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	force := c.QueryBool("force", false)
	if force && h.serverCfg.IsProduction() {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Forced regeneration is not available",
		})
	}

	rec, err := h.recService.Generate(c.Context(), userID, force)
	if err != nil {
		if throttled, ok := service.IsThrottled(err); ok {
			c.Set(fiber.HeaderRetryAfter, throttled.RetryAfter.UTC().Format(time.RFC1123))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "Cannot generate recommendation yet",
				"retry_after": throttled.RetryAfter.Format(time.RFC3339),
			})
		}
		h.logger.Error("Failed to generate recommendation", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to generate recommendation",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(dto.NewRecommendationResponse(rec))
}

// CanGenerate godoc
// @Summary Check generation eligibility
// @Description Report whether the user may generate a new recommendation
// @Tags recommendations
// @Produce json
// @Security Bearer
// @Success 200 {object} dto.CanGenerateResponse
// @Failure 401 {object} map[string]string
// @Router /api/v1/recommendations/can-generate [get]
func (h *RecommendationHandler) CanGenerate(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	allowed, err := h.recService.CanGenerate(c.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to check generation eligibility", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to check generation eligibility",
		})
	}

	return c.JSON(dto.CanGenerateResponse{CanGenerate: allowed})
}

// Stats godoc
// @Summary Get recommendation statistics
// @Description Totals, throttle state and last generation time for the user
// @Tags recommendations
// @Produce json
// @Security Bearer
// @Success 200 {object} dto.RecommendationStatsResponse
// @Failure 401 {object} map[string]string
// @Router /api/v1/recommendations/stats [get]
func (h *RecommendationHandler) Stats(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	stats, err := h.recService.Stats(c.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to get recommendation stats", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get recommendation statistics",
		})
	}

	resp := dto.RecommendationStatsResponse{
		TotalGenerated:  stats.TotalGenerated,
		HasActive:       stats.HasActive,
		TimeUntilNextMs: stats.TimeUntilNext.Milliseconds(),
		CanGenerateNew:  stats.CanGenerateNew,
	}
	if stats.LastGeneratedAt != nil {
		formatted := stats.LastGeneratedAt.Format(time.RFC3339)
		resp.LastGeneratedAt = &formatted
	}

	return c.JSON(resp)
}
