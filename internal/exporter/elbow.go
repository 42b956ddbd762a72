package exporter

import (
	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/clustering"
	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/config"
	apperrors "github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/errors"
)

// ElbowHeader is the column order of elbow.csv
var ElbowHeader = []string{"k", "inertia", "second_diff", "selected"}

// WriteElbowCSV writes one row per candidate k. Only interior candidates
// have a second difference; the others leave the cell empty.
func (e *Exporter) WriteElbowCSV(elbow *clustering.ElbowResult) (string, error) {
	if elbow == nil || len(elbow.Candidates) == 0 {
		return "", apperrors.NewIOError("nothing to write: no elbow candidates", nil)
	}

	records := make([][]string, len(elbow.Candidates))
	for i, c := range elbow.Candidates {
		score := ""
		if i > 0 && i <= len(elbow.Scores) {
			score = formatFloat(elbow.Scores[i-1])
		}
		records[i] = []string{formatInt(c.K), formatFloat(c.Inertia), score, formatBool(c.K == elbow.K)}
	}

	path, err := e.csv.WriteCSV(config.ElbowCSVFile, WriteOptions{
		Headers:   ElbowHeader,
		Records:   records,
		BOMPrefix: e.bom,
	})
	if err != nil {
		return "", apperrors.NewIOError("failed to write elbow table", err)
	}
	return path, nil
}
