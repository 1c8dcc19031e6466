package core

// RunAuction selects among the candidates for a single impression:
// adjustment → floor enforcement → ranking.
//
// Processing flow:
//  1. Apply seat adjustment factors (multipliers per seat)
//  2. Enforce the impression floor
//  3. Rank eligible candidates by price
//  4. Extract winner and runner-up from ranking
func RunAuction(
	candidates []Candidate,
	adjustmentFactors map[string]float64,
	floor float64,
	randSource RandSource,
) *ImpressionResult {
	adjusted := candidates
	if len(adjustmentFactors) > 0 {
		adjusted = ApplySeatAdjustments(candidates, adjustmentFactors)
	}

	eligible, rejected := EnforceBidFloor(adjusted, floor)

	ranking := RankCandidates(eligible, randSource)

	var winner, runnerUp *Candidate
	if len(ranking.SortedSeats) > 0 {
		winner = ranking.HighestBySeat[ranking.SortedSeats[0]]
	}
	if len(ranking.SortedSeats) > 1 {
		runnerUp = ranking.HighestBySeat[ranking.SortedSeats[1]]
	}

	return &ImpressionResult{
		Winner:   winner,
		RunnerUp: runnerUp,
		Eligible: eligible,
		Rejected: rejected,
	}
}

// SelectWinningOffers runs one auction per impression. Candidates are grouped by ImpID;
// candidates naming an impression that has no floor entry compete against a zero floor.
func SelectWinningOffers(
	candidates []Candidate,
	adjustmentFactors map[string]float64,
	impFloors map[string]float64,
	randSource RandSource,
) *SelectionResult {
	byImp := make(map[string][]Candidate)
	for _, c := range candidates {
		byImp[c.ImpID] = append(byImp[c.ImpID], c)
	}

	result := &SelectionResult{Impressions: make(map[string]*ImpressionResult, len(byImp))}
	for impID, impCandidates := range byImp {
		result.Impressions[impID] = RunAuction(impCandidates, adjustmentFactors, impFloors[impID], randSource)
	}
	return result
}
