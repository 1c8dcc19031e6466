package core

// Candidate is a single priced offer competing for one impression.
type Candidate struct {
	ID       string  `json:"id"`
	ImpID    string  `json:"imp_id"`
	Seat     string  `json:"seat"`
	Price    float64 `json:"price"`
	Currency string  `json:"currency,omitempty"`
}

// RankingResult contains the ranked seats and their highest candidates.
type RankingResult struct {
	Ranks         map[string]int        `json:"ranks"`
	HighestBySeat map[string]*Candidate `json:"highest_by_seat"`
	SortedSeats   []string              `json:"sorted_seats"`
}

// ImpressionResult holds the outcome of selection for one impression.
type ImpressionResult struct {
	// Winner is the highest-ranked candidate (nil if nothing cleared the floor)
	Winner *Candidate

	// RunnerUp is the second-highest-ranked candidate (nil if fewer than 2 seats competed)
	RunnerUp *Candidate

	// Eligible contains the candidates that passed floor enforcement
	Eligible []Candidate

	// Rejected contains the candidates that failed floor enforcement
	Rejected []RejectedCandidate
}

// SelectionResult is the outcome of selection across every impression of a request.
type SelectionResult struct {
	// Impressions is keyed by impression id; impressions without candidates are absent.
	Impressions map[string]*ImpressionResult
}

// Winners returns the winning candidates ordered by impOrder, skipping impressions
// that produced no winner.
func (r *SelectionResult) Winners(impOrder []string) []Candidate {
	winners := make([]Candidate, 0, len(r.Impressions))
	for _, impID := range impOrder {
		if res, ok := r.Impressions[impID]; ok && res.Winner != nil {
			winners = append(winners, *res.Winner)
		}
	}
	return winners
}

// RejectedCandidate represents a candidate excluded from selection.
type RejectedCandidate struct {
	Candidate Candidate `json:"candidate"`
	Reason    string    `json:"reason"`
}

const (
	RejectReasonBelowFloor   = "below_floor"
	RejectReasonInvalidPrice = "invalid_price"
)
