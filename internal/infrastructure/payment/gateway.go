// Package payment holds PaymentGateway adapters.
package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/ai-procurement/internal/domain/entity"
)

var (
	// ErrMissingIdempotencyKey rejects instructions that cannot be deduplicated
	ErrMissingIdempotencyKey = errors.New("missing idempotency key")

	// ErrInvalidAmount rejects non-positive payments
	ErrInvalidAmount = errors.New("payment amount must be positive")
)

// LoggingGateway records payments in memory and logs them instead of moving
// money. An instruction repeated with the same idempotency key returns the
// first receipt.
type LoggingGateway struct {
	logger *zap.Logger
	clock  func() time.Time

	mu     sync.Mutex
	issued map[string]entity.PaymentReceipt
}

// NewLoggingGateway creates a logging gateway
func NewLoggingGateway(logger *zap.Logger) *LoggingGateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoggingGateway{
		logger: logger,
		clock:  time.Now,
		issued: make(map[string]entity.PaymentReceipt),
	}
}

// Execute implements port.PaymentGateway
func (g *LoggingGateway) Execute(ctx context.Context, in entity.PaymentInstruction) (entity.PaymentReceipt, error) {
	if err := ctx.Err(); err != nil {
		return entity.PaymentReceipt{}, err
	}
	if in.IdempotencyKey == "" {
		return entity.PaymentReceipt{}, ErrMissingIdempotencyKey
	}
	if in.Amount <= 0 {
		return entity.PaymentReceipt{}, fmt.Errorf("%w: %.2f", ErrInvalidAmount, in.Amount)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if receipt, ok := g.issued[in.IdempotencyKey]; ok {
		g.logger.Info("Payment already issued",
			zap.String("case_id", in.CaseID),
			zap.String("reference", receipt.Reference))
		return receipt, nil
	}

	receipt := entity.PaymentReceipt{
		Reference:  Reference(in.IdempotencyKey),
		ExecutedAt: g.clock().UTC(),
	}
	g.issued[in.IdempotencyKey] = receipt

	g.logger.Info("Payment issued",
		zap.String("case_id", in.CaseID),
		zap.String("supplier_id", in.SupplierID),
		zap.Float64("amount", in.Amount),
		zap.String("currency", in.Currency),
		zap.String("method", in.Method),
		zap.String("reference", receipt.Reference))
	return receipt, nil
}

// Issued returns the number of distinct payments issued
func (g *LoggingGateway) Issued() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.issued)
}

// Reference derives a stable payment reference from an idempotency key
func Reference(key string) string {
	compact := strings.ToUpper(strings.ReplaceAll(key, "-", ""))
	if len(compact) > 12 {
		compact = compact[:12]
	}
	return "PAY-" + compact
}
