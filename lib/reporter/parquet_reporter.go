package reporter

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/kpaschen/quickmp/lib/datatypes"
	"github.com/parquet-go/parquet-go"
)

// A ProfileRow is one window position of one profile. Flattening the
// profiles this way keeps the schema simple and lets readers push down
// predicates on fingerprint and position.
type ProfileRow struct {
	MetricFingerprint uint64 `parquet:"metricFingerprint"`
	Metric            string `parquet:"metric,optional,zstd"`

	SubsequenceLength int32 `parquet:"subsequenceLength"`
	ComputedAt        int64 `parquet:"computedAt,timestamp"`

	Position int32   `parquet:"position"`
	Distance float64 `parquet:"distance"`

	// Marker rows for the motif (smallest distance) and discord
	// (largest). Cannot make these optional, as then 'false' would be
	// written as null.
	Motif   bool `parquet:"motif"`
	Discord bool `parquet:"discord"`
}

type ParquetReporter struct {
	filenameBase string
	filepath     string
	file         *os.File
	// I tried a SortingWriter but it used too much memory.
	writer             *parquet.GenericWriter[ProfileRow]
	maxRowsPerRowGroup int64
}

func NewParquetReporter(filenameBase string, maxRows int64) *ParquetReporter {
	return &ParquetReporter{
		filenameBase:       filenameBase,
		maxRowsPerRowGroup: maxRows,
	}
}

func (r *ParquetReporter) ensureWriter(computedAt time.Time) error {
	if r.writer != nil {
		return nil
	}
	filename := fmt.Sprintf("profiles_%s.pq", computedAt.UTC().Format("20060102150405"))
	r.filepath = filepath.Join(r.filenameBase, filename)

	file, err := os.OpenFile(r.filepath, os.O_WRONLY|os.O_CREATE, 0640)
	if err != nil {
		return fmt.Errorf("failed to open profile parquet file: %w", err)
	}
	r.file = file
	r.writer = parquet.NewGenericWriter[ProfileRow](file,
		parquet.MaxRowsPerRowGroup(r.maxRowsPerRowGroup))
	log.Printf("writing profiles to %s\n", r.filepath)
	return nil
}

func extractRowsFromProfile(profile *datatypes.Profile) []ProfileRow {
	rows := make([]ProfileRow, len(profile.Distances))
	motif := profile.MinIndex()
	discord := profile.MaxIndex()
	for i, d := range profile.Distances {
		rows[i] = ProfileRow{
			MetricFingerprint: profile.MetricFingerprint,
			Metric:            profile.MetricName,
			SubsequenceLength: int32(profile.SubsequenceLength),
			ComputedAt:        profile.ComputedAt.UnixMilli(),
			Position:          int32(i),
			Distance:          d,
			Motif:             i == motif,
			Discord:           i == discord,
		}
	}
	return rows
}

func (r *ParquetReporter) AddProfile(profile *datatypes.Profile) error {
	if err := r.ensureWriter(profile.ComputedAt); err != nil {
		return err
	}
	_, err := r.writer.Write(extractRowsFromProfile(profile))
	return err
}

func (r *ParquetReporter) Flush() error {
	if r.writer == nil {
		return nil
	}
	defer r.file.Close()
	defer r.writer.Close()
	return r.writer.Flush()
}
