// Package storage keeps finished runs on disk, one directory per run:
//
//	<base>/<variant>_<uuid>/metadata.json   run parameters and metrics
//	<base>/<variant>_<uuid>/series.csv      per-frame diagnostics
//	<base>/<variant>_<uuid>/field.csv       final field, one row per cell
//	<base>/<variant>_<uuid>/preview.png     final display pass
package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/fieldsim/internal/field"
)

var ErrRunNotFound = errors.New("storage: run not found")

type Store struct {
	baseDir string
	now     func() time.Time
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir, now: time.Now}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir() string { return s.baseDir }

type RunMetadata struct {
	ID         string             `json:"id"`
	Variant    string             `json:"variant"`
	Timestamp  time.Time          `json:"timestamp"`
	Width      int                `json:"width"`
	Height     int                `json:"height"`
	Frames     int                `json:"frames"`
	Iterations int                `json:"iterations"`
	Force      float32            `json:"force"`
	Gain       float32            `json:"gain"`
	Backend    string             `json:"backend"`
	Elapsed    time.Duration      `json:"elapsed_ns"`
	Metrics    map[string]float64 `json:"metrics"`
}

// Sample is one row of the per-frame series.
type Sample struct {
	Frame         int     `json:"frame"`
	KineticEnergy float64 `json:"kinetic_energy"`
	RMSDivergence float64 `json:"divergence_rms"`
	MaxScalar     float64 `json:"max_scalar"`
}

// Run is everything Save writes. Field and Preview are optional.
type Run struct {
	Meta    RunMetadata
	Series  []Sample
	Field   *field.Field
	Preview *field.Field
}

// Save writes run under a new id and returns it. The id and timestamp in
// run.Meta are overwritten.
func (s *Store) Save(run *Run) (string, error) {
	runID := fmt.Sprintf("%s_%s", run.Meta.Variant, uuid.NewString())
	runDir := filepath.Join(s.baseDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	run.Meta.ID = runID
	run.Meta.Timestamp = s.now()
	if run.Field != nil {
		run.Meta.Width, run.Meta.Height = run.Field.W, run.Field.H
	}

	if err := writeJSON(filepath.Join(runDir, "metadata.json"), run.Meta); err != nil {
		return "", err
	}
	if err := writeSeries(filepath.Join(runDir, "series.csv"), run.Series); err != nil {
		return "", err
	}
	if run.Field != nil {
		if err := writeField(filepath.Join(runDir, "field.csv"), run.Field); err != nil {
			return "", err
		}
	}
	if run.Preview != nil {
		if err := WritePNG(filepath.Join(runDir, "preview.png"), run.Preview); err != nil {
			return "", err
		}
	}
	return runID, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeSeries(path string, series []Sample) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"frame", "kinetic_energy", "divergence_rms", "max_scalar"}); err != nil {
		return err
	}
	for _, s := range series {
		row := []string{
			strconv.Itoa(s.Frame),
			strconv.FormatFloat(s.KineticEnergy, 'g', -1, 64),
			strconv.FormatFloat(s.RMSDivergence, 'g', -1, 64),
			strconv.FormatFloat(s.MaxScalar, 'g', -1, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeField(path string, fd *field.Field) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"x", "y", "r", "g", "b", "a"}); err != nil {
		return err
	}
	row := make([]string, 6)
	for y := 0; y < fd.H; y++ {
		for x := 0; x < fd.W; x++ {
			v := fd.At(x, y)
			row[0], row[1] = strconv.Itoa(x), strconv.Itoa(y)
			for c := 0; c < field.Channels; c++ {
				row[2+c] = strconv.FormatFloat(float64(v[c]), 'g', -1, 32)
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}
	w.Flush()
	return w.Error()
}

// List returns every readable run, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.After(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("storage: %s metadata: %w", runID, err)
	}
	return &meta, nil
}

func (s *Store) LoadSeries(runID string) ([]Sample, error) {
	records, err := readCSV(filepath.Join(s.baseDir, runID, "series.csv"))
	if err != nil {
		return nil, err
	}
	series := make([]Sample, 0, len(records))
	for _, rec := range records {
		if len(rec) < 4 {
			continue
		}
		frame, err := strconv.Atoi(rec[0])
		if err != nil {
			continue
		}
		ke, _ := strconv.ParseFloat(rec[1], 64)
		div, _ := strconv.ParseFloat(rec[2], 64)
		mx, _ := strconv.ParseFloat(rec[3], 64)
		series = append(series, Sample{Frame: frame, KineticEnergy: ke, RMSDivergence: div, MaxScalar: mx})
	}
	return series, nil
}

// LoadField reads the saved final field of a run.
func (s *Store) LoadField(runID string) (*field.Field, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	records, err := readCSV(filepath.Join(s.baseDir, runID, "field.csv"))
	if err != nil {
		return nil, err
	}

	f := field.New(meta.Width, meta.Height)
	for i, rec := range records {
		if len(rec) != 6 {
			return nil, fmt.Errorf("storage: field.csv row %d: %d columns", i+2, len(rec))
		}
		x, errX := strconv.Atoi(rec[0])
		y, errY := strconv.Atoi(rec[1])
		if errX != nil || errY != nil || x < 0 || y < 0 || x >= f.W || y >= f.H {
			return nil, fmt.Errorf("storage: field.csv row %d: bad cell %s,%s", i+2, rec[0], rec[1])
		}
		var v [4]float32
		for c := range v {
			p, err := strconv.ParseFloat(rec[2+c], 32)
			if err != nil {
				return nil, fmt.Errorf("storage: field.csv row %d: %w", i+2, err)
			}
			v[c] = float32(p)
		}
		f.Set(x, y, v)
	}
	return f, nil
}

// readCSV returns the records after the header row.
func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, nil
	}
	return records[1:], nil
}
