package reporter

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kpaschen/quickmp/lib/datatypes"
)

// A CsvReporter appends one row per window position to a csv file named
// after the metric fingerprint and the computation time. Rows are
// (position, distance); the motif and discord positions can be read off
// with sort or awk.
type CsvReporter struct {
	filenameBase string
}

func NewCsvReporter(filenameBase string) *CsvReporter {
	return &CsvReporter{
		filenameBase: filenameBase,
	}
}

func (c *CsvReporter) AddProfile(profile *datatypes.Profile) error {
	filename := fmt.Sprintf("profile_%d_%s.csv", profile.MetricFingerprint,
		profile.ComputedAt.UTC().Format("20060102150405"))
	resultsPath := filepath.Join(c.filenameBase, filename)
	file, err := os.OpenFile(resultsPath, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0640)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	for i, d := range profile.Distances {
		record := []string{fmt.Sprintf("%d", i), fmt.Sprintf("%f", d)}
		if err := writer.Write(record); err != nil {
			return err
		}
		if i > 0 && i%1000 == 0 {
			writer.Flush()
			if err := writer.Error(); err != nil {
				return err
			}
		}
	}
	writer.Flush()
	return writer.Error()
}

func (c *CsvReporter) Flush() error {
	// This reporter does no internal buffering, so Flush is a noop.
	return nil
}
