// Package seed loads the sample knowledge snippets and orders used for demos
// and local development.
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/cortexai/orderlens/internal/models"
	"github.com/cortexai/orderlens/internal/service"
	"github.com/cortexai/orderlens/internal/tools"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var policySnippets = []string{
	"Refunds are issued within 5–7 business days after cancellation confirmation.",
	"Cancellations made within 24 hours of purchase receive a full refund.",
	"Orders shipped cannot be cancelled; please initiate a return instead.",
	"Digital products are refundable only if unused and within 14 days.",
}

// PolicySnippets returns the sample policy texts
func PolicySnippets() []string {
	return append([]string(nil), policySnippets...)
}

// SampleOrders returns the sample orders with creation times relative to now
func SampleOrders(now time.Time) []models.Order {
	day := 24 * time.Hour
	return []models.Order{
		{OrderID: "A1001", CustomerName: "John Smith", Product: "Pro Plan", Amount: 99, Status: "paid", CreatedAt: now},
		{OrderID: "A1002", CustomerName: "Sarah", Product: "Starter Plan", Amount: 29, Status: "refunded", CreatedAt: now.Add(-3 * day)},
		{OrderID: "A1003", CustomerName: "Sarah", Product: "Add-on: Analytics", Amount: 10, Status: "paid", CreatedAt: now.Add(-8 * day)},
		{OrderID: "A1004", CustomerName: "John Smith", Product: "Add-on: Seats", Amount: 20, Status: "paid", CreatedAt: now.Add(-32 * day)},
	}
}

type VectorWriter interface {
	Upsert(ctx context.Context, namespace string, vectors []service.Vector) error
}

type OrderWriter interface {
	ReplaceOrders(ctx context.Context, orders []models.Order) error
}

// Seeder writes the sample data into the configured stores
type Seeder struct {
	Embedder  tools.Embedder
	Vectors   VectorWriter
	Orders    OrderWriter
	Namespace string
	Now       func() time.Time
}

// Run seeds the vector store, then the order store
func (s *Seeder) Run(ctx context.Context) error {
	logger := zerolog.Ctx(ctx).With().Str("seed_run", uuid.NewString()).Logger()
	ctx = logger.WithContext(ctx)

	if err := s.SeedVectors(ctx); err != nil {
		return err
	}
	if err := s.SeedOrders(ctx); err != nil {
		return err
	}
	logger.Info().Msg("seeding complete")
	return nil
}

// SeedVectors embeds the policy snippets and upserts them as policy-1..n
func (s *Seeder) SeedVectors(ctx context.Context) error {
	logger := zerolog.Ctx(ctx)
	logger.Info().Str("namespace", s.Namespace).Msg("seeding vector store")

	embeddings, err := s.Embedder.Embed(ctx, policySnippets)
	if err != nil {
		return fmt.Errorf("embed snippets: %w", err)
	}
	if len(embeddings) != len(policySnippets) {
		return fmt.Errorf("embed snippets: expected %d vectors, got %d", len(policySnippets), len(embeddings))
	}

	vectors := make([]service.Vector, len(policySnippets))
	for i, text := range policySnippets {
		vectors[i] = service.Vector{
			ID:       fmt.Sprintf("policy-%d", i+1),
			Values:   embeddings[i],
			Metadata: map[string]interface{}{"text": text},
		}
	}
	if err := s.Vectors.Upsert(ctx, s.Namespace, vectors); err != nil {
		return fmt.Errorf("upsert snippets: %w", err)
	}

	logger.Info().Int("count", len(vectors)).Msg("seeded vector store")
	return nil
}

// SeedOrders replaces every stored order with the sample orders
func (s *Seeder) SeedOrders(ctx context.Context) error {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	orders := SampleOrders(now().UTC())
	if err := s.Orders.ReplaceOrders(ctx, orders); err != nil {
		return fmt.Errorf("replace orders: %w", err)
	}
	zerolog.Ctx(ctx).Info().Int("count", len(orders)).Msg("seeded order store")
	return nil
}
