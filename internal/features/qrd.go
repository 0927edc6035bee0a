package features

import (
	"fmt"

	"github.com/yourusername/apex-predict/internal/models"
)

// QRDCalculator computes the qualifying-to-race delta for every rider in an
// event's ranking table. The sign convention is fixed: negative scores mark
// race-pace specialists, positive scores mark one-lap qualifiers.
type QRDCalculator struct{}

// NewQRDCalculator creates a QRD calculator
func NewQRDCalculator() *QRDCalculator {
	return &QRDCalculator{}
}

// Calculate produces one QRDScore per rider with both rankings present.
// A rider carrying one ranking but not the other fails the whole event:
// partial tables indicate broken upstream data, not a skippable rider.
func (c *QRDCalculator) Calculate(ranking models.EventRanking) ([]models.QRDScore, error) {
	scores := make([]models.QRDScore, 0, len(ranking.Rankings))

	for _, row := range ranking.Rankings {
		if row.QualifyingRank == nil && row.AvgRacePaceRank == nil {
			continue
		}
		if row.QualifyingRank == nil || row.AvgRacePaceRank == nil {
			return nil, fmt.Errorf("%w: rider %s has a partial ranking for event %s",
				models.ErrIncompleteEvent, row.RiderID, ranking.EventID)
		}

		scores = append(scores, models.QRDScore{
			RiderID: row.RiderID,
			EventID: ranking.EventID,
			Score:   float64(*row.AvgRacePaceRank - *row.QualifyingRank),
		})
	}

	return scores, nil
}
