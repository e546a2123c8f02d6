// Package tally aggregates per-polling-location vote rows into per-zone,
// per-candidate totals with in-zone rankings and zone means.
package tally

import (
	"sort"

	"github.com/seenimoa/votereport/pkg/models"
)

type zoneKey struct {
	zone      int
	candidate string
}

// Summarize groups records by (zone, candidate), sums votes, ranks candidates
// inside each zone and attaches the zone mean.
//
// Ranking uses minimum competition ranking: equal totals share the lowest
// contested rank and the next distinct total resumes at 1 + the number of
// candidates ranked above it (100, 100, 50 → 1, 1, 3).
//
// The zone mean is the unweighted mean of the per-candidate totals, one value
// per distinct candidate, regardless of how many locations contributed.
//
// Output is ordered zone asc, rank asc, candidate asc. Empty input yields an
// empty slice.
func Summarize(records []models.VoteRecord) []models.ZoneCandidateSummary {
	totals := make(map[zoneKey]int)
	for _, r := range records {
		totals[zoneKey{r.Zone, r.Candidate}] += r.Votes
	}

	byZone := make(map[int][]models.ZoneCandidateSummary)
	for k, v := range totals {
		byZone[k.zone] = append(byZone[k.zone], models.ZoneCandidateSummary{
			Zone:      k.zone,
			Candidate: k.candidate,
			Votes:     v,
		})
	}

	zones := make([]int, 0, len(byZone))
	for z := range byZone {
		zones = append(zones, z)
	}
	sort.Ints(zones)

	out := make([]models.ZoneCandidateSummary, 0, len(totals))
	for _, z := range zones {
		rows := byZone[z]
		sortByVotes(rows)

		sum := 0
		for _, r := range rows {
			sum += r.Votes
		}
		mean := float64(sum) / float64(len(rows))

		// Sorted descending, so a row takes a new rank only when its total
		// drops below the previous one; the rank is its 1-based position.
		for i := range rows {
			if i > 0 && rows[i].Votes == rows[i-1].Votes {
				rows[i].Rank = rows[i-1].Rank
			} else {
				rows[i].Rank = i + 1
			}
			rows[i].ZoneMean = mean
		}
		out = append(out, rows...)
	}
	return out
}

// sortByVotes orders rows by votes desc, then candidate asc.
func sortByVotes(rows []models.ZoneCandidateSummary) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Votes != rows[j].Votes {
			return rows[i].Votes > rows[j].Votes
		}
		return rows[i].Candidate < rows[j].Candidate
	})
}

// ForCandidate returns the candidate's rows ordered by zone. An empty result
// means the candidate has no recorded votes in the race.
func ForCandidate(summary []models.ZoneCandidateSummary, candidate string) []models.ZoneCandidateSummary {
	var out []models.ZoneCandidateSummary
	for _, s := range summary {
		if s.Candidate == candidate {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Zone < out[j].Zone })
	return out
}

// Zone returns every candidate row of one zone ordered by rank, then name.
func Zone(summary []models.ZoneCandidateSummary, zone int) []models.ZoneCandidateSummary {
	var out []models.ZoneCandidateSummary
	for _, s := range summary {
		if s.Zone == zone {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Rank != out[j].Rank {
			return out[i].Rank < out[j].Rank
		}
		return out[i].Candidate < out[j].Candidate
	})
	return out
}

// Locations returns the candidate's polling-location rows in a zone, ordered
// by votes desc, then location name.
func Locations(records []models.VoteRecord, candidate string, zone int) []models.VoteRecord {
	var out []models.VoteRecord
	for _, r := range records {
		if r.Candidate == candidate && r.Zone == zone {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Votes != out[j].Votes {
			return out[i].Votes > out[j].Votes
		}
		return out[i].Location < out[j].Location
	})
	return out
}

// Candidates returns the sorted unique candidate names of a race.
func Candidates(records []models.VoteRecord) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, r := range records {
		if _, ok := seen[r.Candidate]; ok {
			continue
		}
		seen[r.Candidate] = struct{}{}
		out = append(out, r.Candidate)
	}
	sort.Strings(out)
	return out
}

// Total sums the votes of summary rows.
func Total(rows []models.ZoneCandidateSummary) int {
	total := 0
	for _, r := range rows {
		total += r.Votes
	}
	return total
}
