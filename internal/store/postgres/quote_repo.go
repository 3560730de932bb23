package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"fieldbook/backend/internal/domain"
	"fieldbook/backend/internal/store"
)

type QuoteRepo struct {
	db *bun.DB
}

func NewQuoteRepo(db *bun.DB) *QuoteRepo {
	return &QuoteRepo{db: db}
}

func (r *QuoteRepo) GetQuote(ctx context.Context, quoteID uuid.UUID) (domain.Quote, error) {
	var q domain.Quote
	err := r.db.NewSelect().
		Model(&q).
		Relation("Property").
		Where("quote.id = ?", quoteID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Quote{}, store.ErrNotFound
		}
		return domain.Quote{}, fmt.Errorf("get quote: %w", err)
	}
	return q, nil
}
