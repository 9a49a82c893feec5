package dto

import (
	"time"

	"finadvisor/internal/models"
)

type CreateTransactionRequest struct {
	Amount      float64 `json:"amount" validate:"required,gte=0"`
	Type        string  `json:"type" validate:"required,oneof=income expense"`
	Description string  `json:"description" validate:"required,max=255"`
	Date        string  `json:"date" validate:"required"`
}

type TransactionResponse struct {
	ID          string  `json:"id"`
	Amount      float64 `json:"amount"`
	Type        string  `json:"type"`
	Description string  `json:"description"`
	Date        string  `json:"date"`
	CreatedAt   string  `json:"created_at"`
}

func NewTransactionResponse(tx *models.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:          tx.ID.String(),
		Amount:      tx.Amount,
		Type:        string(tx.Type),
		Description: tx.Description,
		Date:        tx.Date.Format(time.RFC3339),
		CreatedAt:   tx.CreatedAt.Format(time.RFC3339),
	}
}
