package main

import (
	"context"
	"log"
	"time"

	"finadvisor/internal/models"
	"finadvisor/internal/repository"
	"finadvisor/pkg/auth"
	"finadvisor/pkg/config"
	"finadvisor/pkg/logger"
	"finadvisor/pkg/postgres"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id UUID PRIMARY KEY,
	username VARCHAR(50) NOT NULL,
	email VARCHAR(255) NOT NULL UNIQUE,
	password VARCHAR(255) NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS transactions (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL REFERENCES users(id),
	amount NUMERIC(12,2) NOT NULL CHECK (amount >= 0),
	type VARCHAR(10) NOT NULL CHECK (type IN ('income', 'expense')),
	description VARCHAR(255) NOT NULL,
	date TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transactions_user_date ON transactions (user_id, date DESC);

CREATE TABLE IF NOT EXISTS recommendations (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL REFERENCES users(id),
	recommendation VARCHAR(2000) NOT NULL,
	transaction_count INT NOT NULL CHECK (transaction_count >= 0),
	total_amount NUMERIC(12,2) NOT NULL,
	analysis JSONB NOT NULL,
	metadata JSONB,
	generated_at TIMESTAMPTZ NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL,
	is_active BOOLEAN NOT NULL DEFAULT TRUE
);
CREATE INDEX IF NOT EXISTS idx_recommendations_user_active ON recommendations (user_id, is_active, expires_at);
CREATE INDEX IF NOT EXISTS idx_recommendations_expires ON recommendations (expires_at);
`

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Logger.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	appLogger := logger.Get()

	ctx := context.Background()
	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	appLogger.Info("Starting database seeding...")

	if _, err := db.Exec(ctx, schema); err != nil {
		appLogger.Fatal("Failed to create schema", zap.Error(err))
	}
	appLogger.Info("Schema ready")

	userRepo := repository.NewUserRepository(db, appLogger)
	txRepo := repository.NewTransactionRepository(db, appLogger)

	if err := seedDemoData(ctx, userRepo, txRepo, appLogger); err != nil {
		appLogger.Fatal("Failed to seed demo data", zap.Error(err))
	}

	appLogger.Info("Database seeding completed successfully!")
}

func seedDemoData(ctx context.Context, userRepo *repository.UserRepository, txRepo *repository.TransactionRepository, logger *zap.Logger) error {
	const demoEmail = "demo@finadvisor.app"

	if existing, _ := userRepo.GetByEmail(ctx, demoEmail); existing != nil {
		logger.Info("Demo user already present, skipping")
		return nil
	}

	hashed, err := auth.HashPassword("demo-password")
	if err != nil {
		return err
	}

	now := time.Now()
	user := &models.User{
		ID:        uuid.New(),
		Username:  "demo",
		Email:     demoEmail,
		Password:  hashed,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := userRepo.Create(ctx, user); err != nil {
		return err
	}

	demo := []struct {
		amount      float64
		txType      models.TransactionType
		description string
		daysAgo     int
	}{
		{1200.00, models.TransactionTypeIncome, "Pago nómina", 6},
		{85.50, models.TransactionTypeExpense, "Almuerzo restaurante", 5},
		{32.00, models.TransactionTypeExpense, "Uber al trabajo", 5},
		{210.75, models.TransactionTypeExpense, "Supermercado semanal", 4},
		{15.99, models.TransactionTypeExpense, "Suscripción Netflix", 3},
		{60.00, models.TransactionTypeExpense, "Factura internet", 2},
		{45.30, models.TransactionTypeExpense, "Farmacia medicinas", 1},
	}

	transactions := make([]*models.Transaction, 0, len(demo))
	for _, d := range demo {
		transactions = append(transactions, &models.Transaction{
			ID:          uuid.New(),
			UserID:      user.ID,
			Amount:      d.amount,
			Type:        d.txType,
			Description: d.description,
			Date:        now.AddDate(0, 0, -d.daysAgo),
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}

	if err := txRepo.CreateBatch(ctx, transactions); err != nil {
		return err
	}

	logger.Info("Seeded demo user with transactions",
		zap.String("email", demoEmail),
		zap.Int("transactions", len(transactions)),
	)

	return nil
}
