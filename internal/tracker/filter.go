package tracker

import (
	"sort"

	"github.com/ironsheep/arbook-tracker/internal/features"
)

// rejectAmbiguous keeps the best neighbour of each training descriptor when
// it is clearly closer than the runner-up. A lone neighbour is kept as is.
func rejectAmbiguous(knn [][]features.Match, similarity float64) []features.Match {
	var kept []features.Match
	for _, row := range knn {
		switch len(row) {
		case 0:
		case 1:
			kept = append(kept, row[0])
		default:
			if row[1].Distance*similarity > row[0].Distance {
				kept = append(kept, row[0])
			}
		}
	}
	return kept
}

// rejectOutliers sorts matches by distance and drops every match farther
// than factor times the closest one. matches is reordered in place.
func rejectOutliers(matches []features.Match, factor float64) []features.Match {
	if len(matches) == 0 {
		return matches
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})
	ceiling := matches[0].Distance * factor
	for i, m := range matches {
		if m.Distance > ceiling {
			return matches[:i]
		}
	}
	return matches
}
