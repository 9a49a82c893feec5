package service

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"finadvisor/internal/models"

	"go.uber.org/zap"
)

// maxRecentTransactions caps how many transactions the prompt lists.
const maxRecentTransactions = 10

// noTransactionTemplates encourage users with an empty window to start
// logging. One is picked at random per generation.
var noTransactionTemplates = []string{
	"¡Comienza tu viaje financiero registrando tus gastos e ingresos! Llevar un control detallado te ayudará a identificar patrones y oportunidades de ahorro. Te recomiendo: 1) Registra cada transacción diariamente, 2) Categoriza tus gastos, 3) Establece un presupuesto mensual. Incluso registrar $500 en gastos semanales puede revelarte ahorros potenciales de $50-100 mensuales.",
	"Para mejorar tus finanzas, el primer paso es la visibilidad. Registra todas tus transacciones durante esta semana y descubre dónde va tu dinero. Muchos usuarios descubren gastos innecesarios de $200-300 mensuales solo con este simple seguimiento. ¡Empieza hoy!",
	"Un presupuesto efectivo comienza con datos reales. Te sugiero registrar al menos 7 días de transacciones para obtener tu primera recomendación personalizada. Esto te ayudará a crear un plan de ahorro realista y alcanzar tus metas financieras más rápido.",
}

// AdvisorService turns a transaction analysis into advice text. It never
// returns an error: any failure of the language model collapses into a
// deterministic fallback template.
type AdvisorService struct {
	completer Completer
	logger    *zap.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

func NewAdvisorService(completer Completer, logger *zap.Logger) *AdvisorService {
	return &AdvisorService{
		completer: completer,
		logger:    logger,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Generate produces advice for a non-empty transaction window. The result is
// always non-empty and bounded by the recommendation storage limit.
func (s *AdvisorService) Generate(ctx context.Context, transactions []*models.Transaction, analysis *TransactionAnalysis) string {
	prompt := s.buildPrompt(transactions, analysis)

	text, err := s.completer.Complete(ctx, prompt)
	if err != nil {
		s.logger.Warn("LLM completion failed, using fallback recommendation", zap.Error(err))
		text = s.fallback(analysis)
	}

	return truncate(strings.TrimSpace(text), models.MaxRecommendationLength)
}

// NoTransactionsMessage returns one of the fixed encouragement templates.
func (s *AdvisorService) NoTransactionsMessage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return noTransactionTemplates[s.rng.Intn(len(noTransactionTemplates))]
}

func (s *AdvisorService) buildPrompt(transactions []*models.Transaction, analysis *TransactionAnalysis) string {
	var categories strings.Builder
	for category, amount := range analysis.Categories {
		fmt.Fprintf(&categories, "- %s: $%.2f\n", category, amount)
	}

	recent := transactions
	if len(recent) > maxRecentTransactions {
		recent = recent[:maxRecentTransactions]
	}

	var recentText strings.Builder
	for _, tx := range recent {
		label := "Ingreso"
		if tx.Type == models.TransactionTypeExpense {
			label = "Gasto"
		}
		fmt.Fprintf(&recentText, "- %s: %s - $%.2f (%s)\n", label, tx.Description, tx.Amount, tx.Date.Format("2006-01-02"))
	}

	return fmt.Sprintf(`Analiza los siguientes datos financieros de los últimos 7 días y genera una recomendación personalizada:

RESUMEN FINANCIERO:
- Ingresos totales: $%.2f
- Gastos totales: $%.2f
- Balance: $%.2f
- Número de transacciones: %d

GASTOS POR CATEGORÍAS:
%s
CATEGORÍA CON MAYOR GASTO: %s ($%.2f)

TRANSACCIONES RECIENTES:
%s
Proporciona una recomendación que incluya:
1. Un análisis específico del comportamiento financiero
2. Un consejo práctico y accionable
3. Una estimación realista de cuánto podrían ahorrar

Respuesta en máximo 120 palabras, concisa y motivacional.`,
		analysis.TotalIncome,
		analysis.TotalExpenses,
		analysis.Balance,
		analysis.TransactionCount,
		categories.String(),
		analysis.TopCategory,
		analysis.TopAmount,
		recentText.String(),
	)
}

// fallback builds deterministic advice from the analysis alone: a 10% trim
// suggestion on the top category when the balance is non-negative, 20% when
// spending exceeded income.
func (s *AdvisorService) fallback(analysis *TransactionAnalysis) string {
	if analysis.Balance >= 0 {
		return fmt.Sprintf(
			"¡Excelente! Mantienes un balance positivo de $%.2f. Para optimizar aún más, considera reducir gastos en %s (tu categoría principal con $%.2f). Un ahorro del 10%% en esta categoría podría darte $%.2f adicionales este mes.",
			analysis.Balance, analysis.TopCategory, analysis.TopAmount, analysis.TopAmount*0.1,
		)
	}
	return fmt.Sprintf(
		"Tu balance actual es de $%.2f. Te recomiendo revisar tus gastos en %s, donde gastaste $%.2f. Reducir un 20%% en esta categoría podría ahorrarte $%.2f y mejorar tu situación financiera.",
		analysis.Balance, analysis.TopCategory, analysis.TopAmount, analysis.TopAmount*0.2,
	)
}

func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	// Cut on a rune boundary so multi-byte text stays valid.
	cut := limit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}
