package jobreview

import (
	"context"
	"testing"

	"fieldbook/backend/internal/domain"
)

func TestEvaluator(t *testing.T) {
	price := 2400.0
	cases := []struct {
		name       string
		sig        domain.JobSignals
		wantReview bool
	}{
		{name: "standard small job", sig: domain.JobSignals{PerceivedSize: "few_items"}, wantReview: false},
		{name: "unknown size", sig: domain.JobSignals{PerceivedSize: "hoarder_house"}, wantReview: true},
		{name: "no signals", sig: domain.JobSignals{}, wantReview: true},
		{name: "too many loads", sig: domain.JobSignals{PerceivedSize: "few_items", AIPriceMax: &price}, wantReview: true},
	}

	e := NewEvaluator(0)
	for _, tc := range cases {
		got, err := e.Evaluate(context.Background(), tc.sig, domain.EstimateDuration(tc.sig))
		if err != nil {
			t.Fatalf("%s: Evaluate error: %v", tc.name, err)
		}
		if got.NeedsReview != tc.wantReview {
			t.Fatalf("%s: NeedsReview = %v, want %v (reasons %v)", tc.name, got.NeedsReview, tc.wantReview, got.Reasons)
		}
		if got.NeedsReview && len(got.Reasons) == 0 {
			t.Fatalf("%s: expected reasons when review is needed", tc.name)
		}
	}
}
