package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"fieldbook/backend/internal/domain"
	"fieldbook/backend/internal/service/jobreview"
)

func newEstimateCmd() *cobra.Command {
	var (
		size     string
		price    float64
		maxLoads int
	)

	c := &cobra.Command{
		Use:   "estimate",
		Short: "Print the duration estimate and standard-job review for a quote's signals",
		RunE: func(cmd *cobra.Command, args []string) error {
			sig := domain.JobSignals{PerceivedSize: size}
			if cmd.Flags().Changed("price") {
				sig.AIPriceMax = &price
			}
			est := domain.EstimateDuration(sig)
			review, err := jobreview.NewEvaluator(maxLoads).Evaluate(cmd.Context(), sig, est)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(estimateOutput{
				Units:           est.Units,
				DurationMinutes: est.DurationMinutes,
				Loads:           est.Loads,
				Review:          review,
			})
		},
	}

	c.Flags().StringVar(&size, "size", "", "perceived size, e.g. few_items or half_load")
	c.Flags().Float64Var(&price, "price", 0, "AI price ceiling in dollars")
	c.Flags().IntVar(&maxLoads, "max-standard-loads", jobreview.DefaultMaxStandardLoads, "loads above this need review")
	return c
}

type estimateOutput struct {
	Units           int                      `json:"units"`
	DurationMinutes int                      `json:"duration_minutes"`
	Loads           int                      `json:"loads"`
	Review          domain.StandardJobReview `json:"standard_job_review"`
}
