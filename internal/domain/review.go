package domain

// StandardJobReview is advisory output of the standard-job evaluator. It never
// influences hold admission.
type StandardJobReview struct {
	NeedsReview bool     `json:"needs_review"`
	Reasons     []string `json:"reasons,omitempty"`
}
