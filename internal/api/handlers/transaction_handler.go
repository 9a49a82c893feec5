package handlers

import (
	"time"

	"finadvisor/internal/dto"
	"finadvisor/internal/models"
	"finadvisor/internal/repository"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type TransactionHandler struct {
	txRepo *repository.TransactionRepository
	logger *zap.Logger
}

func NewTransactionHandler(txRepo *repository.TransactionRepository, logger *zap.Logger) *TransactionHandler {
	return &TransactionHandler{
		txRepo: txRepo,
		logger: logger,
	}
}

// CreateTransaction godoc
// @Summary Record a transaction
// @Description Record an income or expense transaction
// @Tags transactions
// @Accept json
// @Produce json
// @Param request body dto.CreateTransactionRequest true "Transaction"
// @Security Bearer
// @Success 201 {object} dto.TransactionResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /api/v1/transactions [post]
func (h *TransactionHandler) CreateTransaction(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	var req dto.CreateTransactionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Amount < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Amount must be non-negative",
		})
	}

	txType := models.TransactionType(req.Type)
	if txType != models.TransactionTypeIncome && txType != models.TransactionTypeExpense {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Type must be income or expense",
		})
	}

	date, err := time.Parse(time.RFC3339, req.Date)
	if err != nil {
		if date, err = time.Parse("2006-01-02", req.Date); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid date format",
			})
		}
	}

	now := time.Now()
	tx := &models.Transaction{
		ID:          uuid.New(),
		UserID:      userID,
		Amount:      req.Amount,
		Type:        txType,
		Description: req.Description,
		Date:        date,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.txRepo.Create(c.Context(), tx); err != nil {
		h.logger.Error("Failed to create transaction", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create transaction",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(dto.NewTransactionResponse(tx))
}

// ListTransactions godoc
// @Summary List transactions
// @Description List the user's transactions, newest first
// @Tags transactions
// @Produce json
// @Param limit query int false "Limit" default(20)
// @Param offset query int false "Offset" default(0)
// @Security Bearer
// @Success 200 {array} dto.TransactionResponse
// @Failure 401 {object} map[string]string
// @Router /api/v1/transactions [get]
func (h *TransactionHandler) ListTransactions(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	limit := c.QueryInt("limit", 20)
	offset := c.QueryInt("offset", 0)

	transactions, err := h.txRepo.ListForUser(c.Context(), userID, limit, offset)
	if err != nil {
		h.logger.Error("Failed to list transactions", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list transactions",
		})
	}

	resp := make([]dto.TransactionResponse, 0, len(transactions))
	for _, tx := range transactions {
		resp = append(resp, dto.NewTransactionResponse(tx))
	}

	return c.JSON(resp)
}
