package service

import (
	"fmt"
	"strings"

	"finadvisor/internal/models"
)

// AnalysisPeriod labels the fixed trailing window every analysis covers.
const AnalysisPeriod = "last_7_days"

// TransactionAnalysis is the aggregate view of a user's transaction window.
type TransactionAnalysis struct {
	TotalIncome      float64
	TotalExpenses    float64
	Balance          float64
	TotalAmount      float64
	Categories       map[string]float64
	TopCategory      string
	TopAmount        float64
	TransactionCount int
	ExpenseCount     int
	IncomeCount      int
}

// categoryKeywords maps expense descriptions to spending categories. Order
// matters: the first category whose keyword set matches wins.
var categoryKeywords = []struct {
	label    string
	keywords []string
}{
	{"Alimentación", []string{"comida", "restaurante", "almuerzo", "desayuno", "cena", "mercado", "supermercado", "groceries"}},
	{"Transporte", []string{"uber", "taxi", "gasolina", "combustible", "bus", "metro", "transporte", "parking"}},
	{"Entretenimiento", []string{"cine", "película", "juego", "bar", "diversión", "entretenimiento", "netflix", "spotify"}},
	{"Servicios", []string{"electricidad", "agua", "gas", "internet", "teléfono", "servicio", "recibo", "factura"}},
	{"Compras", []string{"compra", "ropa", "shopping", "tienda", "mall"}},
	{"Salud", []string{"médico", "doctor", "medicina", "farmacia", "hospital", "salud"}},
	{"Educación", []string{"educación", "colegio", "universidad", "curso", "libro"}},
	{"Vivienda", []string{"casa", "hogar", "arriendo", "alquiler", "hipoteca"}},
}

// AnalyzeTransactions computes aggregate statistics over a transaction window
// the caller has already restricted to the trailing seven days. It is a pure
// function: no I/O, no shared state.
//
// An empty window yields an all-zero analysis with TopCategory "None". Ties
// for the top category resolve to the label seen first during accumulation.
func AnalyzeTransactions(transactions []*models.Transaction) (*TransactionAnalysis, error) {
	analysis := &TransactionAnalysis{
		Categories:       make(map[string]float64),
		TransactionCount: len(transactions),
	}

	if len(transactions) == 0 {
		analysis.TopCategory = "None"
		return analysis, nil
	}

	var order []string
	for _, tx := range transactions {
		if tx.Amount < 0 {
			return nil, fmt.Errorf("%w: negative amount %.2f", ErrInvalidTransaction, tx.Amount)
		}

		switch tx.Type {
		case models.TransactionTypeIncome:
			analysis.TotalIncome += tx.Amount
			analysis.IncomeCount++
		case models.TransactionTypeExpense:
			analysis.TotalExpenses += tx.Amount
			analysis.ExpenseCount++

			category := CategoryFromDescription(tx.Description)
			if _, seen := analysis.Categories[category]; !seen {
				order = append(order, category)
			}
			analysis.Categories[category] += tx.Amount
		default:
			return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidTransaction, tx.Type)
		}
	}

	analysis.Balance = analysis.TotalIncome - analysis.TotalExpenses
	analysis.TotalAmount = analysis.TotalIncome + analysis.TotalExpenses

	// Strict > with first-seen iteration order makes the tie-break
	// deterministic: the earlier-seen category keeps the top spot.
	analysis.TopCategory = "Gastos generales"
	for _, category := range order {
		if amount := analysis.Categories[category]; amount > analysis.TopAmount {
			analysis.TopAmount = amount
			analysis.TopCategory = category
		}
	}

	return analysis, nil
}

// CategoryFromDescription assigns a spending category to a free-text expense
// description via keyword matching. Unmatched descriptions fall back to their
// first word, or "Otros" when empty.
func CategoryFromDescription(description string) string {
	desc := strings.ToLower(description)

	for _, entry := range categoryKeywords {
		for _, keyword := range entry.keywords {
			if strings.Contains(desc, keyword) {
				return entry.label
			}
		}
	}

	if fields := strings.Fields(description); len(fields) > 0 {
		return fields[0]
	}
	return "Otros"
}
