package core

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"sort"
)

// RandSource provides random number generation for tie-breaking.
// This interface enables dependency injection for deterministic testing.
type RandSource interface {
	// Intn returns a random integer in [0, n). Panics if n <= 0.
	Intn(n int) int
}

// cryptoRandSource wraps crypto/rand for production use
type cryptoRandSource struct{}

// Intn returns a cryptographically secure random integer in [0, n).
// Panics if n <= 0 (programmer error).
func (cryptoRandSource) Intn(n int) int {
	if n <= 0 {
		panic(fmt.Sprintf("cryptoRandSource.Intn: n must be positive, got %d", n))
	}
	// rand.Int does not error when using rand.Reader
	nBig, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(nBig.Int64())
}

// defaultRandSource provides a cryptographically secure random source for production
var defaultRandSource RandSource = cryptoRandSource{}

// RankCandidates ranks seats by their highest candidate price. Equal prices are
// ordered randomly so that no seat wins ties by roster position.
func RankCandidates(candidates []Candidate, randSource RandSource) *RankingResult {
	if len(candidates) == 0 {
		return &RankingResult{
			Ranks:         make(map[string]int),
			HighestBySeat: make(map[string]*Candidate),
			SortedSeats:   make([]string, 0),
		}
	}

	type seatEntry struct {
		seat      string
		candidate *Candidate
	}

	// Find highest candidate per seat while preserving order of first occurrence
	best := make(map[string]*Candidate)
	seatOrder := make([]string, 0, len(candidates))

	for i := range candidates {
		c := &candidates[i]

		existing, seen := best[c.Seat]
		if !seen {
			seatOrder = append(seatOrder, c.Seat)
		}
		if !seen || c.Price > existing.Price {
			best[c.Seat] = c
		}
	}

	entries := make([]seatEntry, 0, len(seatOrder))
	for _, seat := range seatOrder {
		entries = append(entries, seatEntry{seat: seat, candidate: best[seat]})
	}

	// Sort by price descending
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].candidate.Price > entries[j].candidate.Price
	})

	if randSource == nil {
		randSource = defaultRandSource
	}

	// Break ties randomly: shuffle groups with the same price using Fisher-Yates
	i := 0
	for i < len(entries) {
		price := entries[i].candidate.Price
		j := i + 1
		for j < len(entries) && entries[j].candidate.Price == price {
			j++
		}

		if j-i > 1 {
			for k := j - 1; k > i; k-- {
				randIdx := i + randSource.Intn(k-i+1)
				entries[k], entries[randIdx] = entries[randIdx], entries[k]
			}
		}

		i = j
	}

	result := &RankingResult{
		Ranks:         make(map[string]int, len(entries)),
		HighestBySeat: make(map[string]*Candidate, len(entries)),
		SortedSeats:   make([]string, len(entries)),
	}

	for rank, entry := range entries {
		result.Ranks[entry.seat] = rank + 1
		result.HighestBySeat[entry.seat] = entry.candidate
		result.SortedSeats[rank] = entry.seat
	}

	return result
}
