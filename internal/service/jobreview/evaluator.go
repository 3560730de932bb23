// Package jobreview classifies whether a quoted job is within the standard
// scope crews can take without an office review.
package jobreview

import (
	"context"
	"fmt"
	"strings"

	"fieldbook/backend/internal/domain"
)

const DefaultMaxStandardLoads = 2

type Evaluator struct {
	maxStandardLoads int
}

func NewEvaluator(maxStandardLoads int) *Evaluator {
	if maxStandardLoads <= 0 {
		maxStandardLoads = DefaultMaxStandardLoads
	}
	return &Evaluator{maxStandardLoads: maxStandardLoads}
}

func (e *Evaluator) Evaluate(_ context.Context, sig domain.JobSignals, est domain.Estimate) (domain.StandardJobReview, error) {
	var reasons []string

	size := strings.TrimSpace(sig.PerceivedSize)
	hasPrice := sig.AIPriceMax != nil && *sig.AIPriceMax > 0
	switch {
	case size == "" && !hasPrice:
		reasons = append(reasons, "no size or price estimate on the quote")
	case size != "" && !domain.KnownPerceivedSize(size):
		reasons = append(reasons, fmt.Sprintf("non-standard size %q", size))
	}
	if est.Loads > e.maxStandardLoads {
		reasons = append(reasons, fmt.Sprintf("%d loads exceeds the standard %d", est.Loads, e.maxStandardLoads))
	}

	return domain.StandardJobReview{
		NeedsReview: len(reasons) > 0,
		Reasons:     reasons,
	}, nil
}
