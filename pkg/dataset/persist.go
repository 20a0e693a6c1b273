package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Save writes the snapshot to path in msgpack form.
func (s *Snapshot) Save(path string) error {
	data, err := msgpack.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot reads a snapshot previously written with Save.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var snap Snapshot
	if err := msgpack.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

// ExportCSV writes all rows as CSV with a header, ordered by timestamp then
// symbol.
func (s *Snapshot) ExportCSV(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write([]string{"timestamp", "symbol", "interval", "source", "open", "high", "low", "close", "volume"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, row := range s.Rows {
		record := []string{
			row.Timestamp.UTC().Format(time.RFC3339),
			row.Symbol,
			row.Interval,
			row.Source,
			formatFloat(row.Open),
			formatFloat(row.High),
			formatFloat(row.Low),
			formatFloat(row.Close),
			formatFloat(row.Volume),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
