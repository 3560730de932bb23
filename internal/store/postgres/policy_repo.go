package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"fieldbook/backend/internal/domain"
)

const policyRowID = 1

type PolicyRepo struct {
	db *bun.DB
}

func NewPolicyRepo(db *bun.DB) *PolicyRepo {
	return &PolicyRepo{db: db}
}

// GetPolicy reads the current policy row. There is no caching: edits apply to
// the next request.
func (r *PolicyRepo) GetPolicy(ctx context.Context) (domain.Policy, error) {
	var p domain.Policy
	err := r.db.NewSelect().
		Model(&p).
		Where("id = ?", policyRowID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Policy{}, errors.New("booking policy is not configured")
		}
		return domain.Policy{}, fmt.Errorf("get policy: %w", err)
	}
	return p, nil
}
