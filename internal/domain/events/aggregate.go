package events

import (
	"math"
	"time"

	"sponsorhub/internal/domain/reviews"
)

// ComputeAggregate derives the event summary from the full published review
// set. Reviews without an ROI value are excluded from the ROI mean rather
// than counted as zero; when none carry ROI the mean is absent. The function
// is pure, so recomputation is idempotent by construction.
func ComputeAggregate(eventID int64, published []reviews.Review) Aggregate {
	agg := Aggregate{
		EventID:     eventID,
		ReviewCount: len(published),
		UpdatedAt:   time.Now().UTC(),
	}

	if len(published) == 0 {
		return agg
	}

	var ratingSum float64
	var roiSum float64
	var roiCount int

	for _, rv := range published {
		ratingSum += float64(rv.Rating)
		if rv.ROI != nil {
			roiSum += *rv.ROI
			roiCount++
		}
	}

	agg.AverageRating = round1(ratingSum / float64(len(published)))

	if roiCount > 0 {
		avg := round1(roiSum / float64(roiCount))
		agg.AverageROI = &avg
	}

	return agg
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
