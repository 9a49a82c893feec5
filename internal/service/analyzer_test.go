package service

import (
	"testing"
	"time"

	"finadvisor/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func expense(amount float64, description string) *models.Transaction {
	return &models.Transaction{
		ID:          uuid.New(),
		Amount:      amount,
		Type:        models.TransactionTypeExpense,
		Description: description,
		Date:        time.Now(),
	}
}

func income(amount float64, description string) *models.Transaction {
	return &models.Transaction{
		ID:          uuid.New(),
		Amount:      amount,
		Type:        models.TransactionTypeIncome,
		Description: description,
		Date:        time.Now(),
	}
}

func TestAnalyzeTransactions_Empty(t *testing.T) {
	analysis, err := AnalyzeTransactions(nil)
	require.NoError(t, err)

	assert.Equal(t, 0.0, analysis.TotalIncome)
	assert.Equal(t, 0.0, analysis.TotalExpenses)
	assert.Equal(t, 0.0, analysis.Balance)
	assert.Equal(t, "None", analysis.TopCategory)
	assert.Empty(t, analysis.Categories)
	assert.Equal(t, 0, analysis.TransactionCount)
}

func TestAnalyzeTransactions_CategoryTotals(t *testing.T) {
	analysis, err := AnalyzeTransactions([]*models.Transaction{
		expense(100, "almuerzo"),
		expense(50, "uber"),
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]float64{
		"Alimentación": 100,
		"Transporte":   50,
	}, analysis.Categories)
	assert.Equal(t, "Alimentación", analysis.TopCategory)
	assert.Equal(t, 100.0, analysis.TopAmount)
	assert.Equal(t, 150.0, analysis.TotalExpenses)
	assert.Equal(t, -150.0, analysis.Balance)
}

func TestAnalyzeTransactions_Totals(t *testing.T) {
	analysis, err := AnalyzeTransactions([]*models.Transaction{
		income(1000, "Pago nómina"),
		expense(300, "supermercado"),
		expense(120, "gasolina"),
	})
	require.NoError(t, err)

	assert.Equal(t, 1000.0, analysis.TotalIncome)
	assert.Equal(t, 420.0, analysis.TotalExpenses)
	assert.Equal(t, 580.0, analysis.Balance)
	assert.Equal(t, 1420.0, analysis.TotalAmount)
	assert.Equal(t, 3, analysis.TransactionCount)
	assert.Equal(t, 1, analysis.IncomeCount)
	assert.Equal(t, 2, analysis.ExpenseCount)
	assert.Equal(t, "Alimentación", analysis.TopCategory)
	assert.Equal(t, 300.0, analysis.TopAmount)
}

func TestAnalyzeTransactions_TieBreakFirstSeen(t *testing.T) {
	// Equal sums resolve to the category accumulated first.
	analysis, err := AnalyzeTransactions([]*models.Transaction{
		expense(75, "uber aeropuerto"),
		expense(75, "cena restaurante"),
	})
	require.NoError(t, err)

	assert.Equal(t, "Transporte", analysis.TopCategory)
	assert.Equal(t, 75.0, analysis.TopAmount)
}

func TestAnalyzeTransactions_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		tx   *models.Transaction
	}{
		{
			name: "negative amount",
			tx:   &models.Transaction{Amount: -10, Type: models.TransactionTypeExpense, Description: "almuerzo"},
		},
		{
			name: "unknown type",
			tx:   &models.Transaction{Amount: 10, Type: "transfer", Description: "algo"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := AnalyzeTransactions([]*models.Transaction{tt.tx})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidTransaction)
		})
	}
}

func TestAnalyzeTransactions_OnlyIncome(t *testing.T) {
	analysis, err := AnalyzeTransactions([]*models.Transaction{
		income(500, "freelance"),
	})
	require.NoError(t, err)

	assert.Empty(t, analysis.Categories)
	assert.Equal(t, "Gastos generales", analysis.TopCategory)
	assert.Equal(t, 0.0, analysis.TopAmount)
	assert.Equal(t, 500.0, analysis.Balance)
}

func TestCategoryFromDescription(t *testing.T) {
	tests := []struct {
		description string
		want        string
	}{
		{"almuerzo con amigos", "Alimentación"},
		{"Compra SUPERMERCADO central", "Alimentación"},
		{"uber al centro", "Transporte"},
		{"recarga metro", "Transporte"},
		{"entradas cine", "Entretenimiento"},
		{"factura electricidad", "Servicios"},
		{"ropa nueva", "Compras"},
		{"consulta doctor", "Salud"},
		{"curso de inglés", "Educación"},
		{"pago alquiler", "Vivienda"},
		// First-match-wins across the ordered table: "gas" (Servicios)
		// appears inside "gasolina" but Transporte is checked first.
		{"gasolina estación", "Transporte"},
		// Unmatched descriptions fall back to the first word.
		{"veterinario citas", "veterinario"},
		{"", "Otros"},
		{"   ", "Otros"},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			assert.Equal(t, tt.want, CategoryFromDescription(tt.description))
		})
	}
}
