// Package stats computes aggregate statistics over the vote set of a
// revealed round. Compute is pure: no state, no side effects, same input
// always yields the same output.
package stats

import (
	"math"
	"sort"
	"strconv"
)

const (
	ConsensusStrong   = "strong"
	ConsensusModerate = "moderate"
	ConsensusLow      = "low"
)

// Votes whose coefficient of variation is below this count as moderate
// consensus.
const consensusCVThreshold = 0.3

type VoteStats struct {
	Average        *float64       `json:"average"`
	Median         *float64       `json:"median"`
	Mode           string         `json:"mode"`
	Distribution   map[string]int `json:"distribution"`
	ConsensusLevel string         `json:"consensus_level"`
	TotalVoters    int            `json:"total_voters"`
	TotalVotes     int            `json:"total_votes"`
}

// Compute derives statistics from the raw vote values of a round, in
// submission order. Values that parse as decimal numbers feed average,
// median and the consensus measure; every value feeds the distribution and
// mode. Mode ties resolve to the value encountered first.
func Compute(values []string) VoteStats {
	distribution := make(map[string]int, len(values))
	order := make([]string, 0, len(values))
	var numeric []float64

	for _, v := range values {
		if distribution[v] == 0 {
			order = append(order, v)
		}
		distribution[v]++
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			numeric = append(numeric, f)
		}
	}

	s := VoteStats{
		Mode:           "?",
		Distribution:   distribution,
		ConsensusLevel: ConsensusLow,
		TotalVoters:    len(values),
		TotalVotes:     len(values),
	}

	maxCount := 0
	for _, v := range order {
		if distribution[v] > maxCount {
			maxCount = distribution[v]
			s.Mode = v
		}
	}

	var mean float64
	if len(numeric) > 0 {
		var sum float64
		for _, n := range numeric {
			sum += n
		}
		mean = sum / float64(len(numeric))

		avg := roundTenth(mean)
		s.Average = &avg

		sorted := append([]float64(nil), numeric...)
		sort.Float64s(sorted)
		mid := len(sorted) / 2
		var med float64
		if len(sorted)%2 != 0 {
			med = sorted[mid]
		} else {
			med = roundTenth((sorted[mid-1] + sorted[mid]) / 2)
		}
		s.Median = &med
	}

	switch {
	case len(values) > 0 && len(distribution) == 1:
		s.ConsensusLevel = ConsensusStrong
	case len(numeric) > 0:
		var varSum float64
		for _, n := range numeric {
			varSum += (n - mean) * (n - mean)
		}
		stdDev := math.Sqrt(varSum / float64(len(numeric)))

		cv := math.Inf(1)
		if mean != 0 {
			cv = stdDev / mean
		}
		if cv < consensusCVThreshold {
			s.ConsensusLevel = ConsensusModerate
		}
	}

	return s
}

// roundTenth rounds half-up at the tenths digit.
func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
