package storage

import (
	"encoding/json"
	"io"
)

type ExportData struct {
	Meta   RunMetadata `json:"meta"`
	Series []Sample    `json:"series"`
}

// Export writes a run's metadata and series as indented JSON.
func (s *Store) Export(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	series, err := s.LoadSeries(runID)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ExportData{Meta: *meta, Series: series})
}
