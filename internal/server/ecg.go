package server

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
)

var ErrNoSample = errors.New("server: no such sample")

// SampleSource produces one ECG value for a person at a point in time.
// ecg selects the lead, 1 or 2.
type SampleSource interface {
	Sample(person int32, seconds float64, ecg int32) (float64, error)
}

// sampleTolerance absorbs float drift between the client's requested time
// and the recorded row time (rows are 4ms apart).
const sampleTolerance = 1e-6

type sampleRow struct {
	seconds float64
	leads   [2]float64
}

// CSVStore serves samples from per-person CSV files named <person>.csv with
// rows of time,ecg1,ecg2. Files are parsed once and cached.
type CSVStore struct {
	dir string

	mu    sync.Mutex
	cache map[int32][]sampleRow
}

func NewCSVStore(dir string) *CSVStore {
	return &CSVStore{dir: dir, cache: map[int32][]sampleRow{}}
}

func (s *CSVStore) Sample(person int32, seconds float64, ecg int32) (float64, error) {
	if ecg < 1 || ecg > 2 {
		return 0, fmt.Errorf("%w: ecg lead %d", ErrNoSample, ecg)
	}
	rows, err := s.rows(person)
	if err != nil {
		return 0, err
	}
	i := sort.Search(len(rows), func(i int) bool {
		return rows[i].seconds >= seconds-sampleTolerance
	})
	if i == len(rows) || rows[i].seconds > seconds+sampleTolerance {
		return 0, fmt.Errorf("%w: person %d at %gs", ErrNoSample, person, seconds)
	}
	return rows[i].leads[ecg-1], nil
}

func (s *CSVStore) rows(person int32) ([]sampleRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rows, ok := s.cache[person]; ok {
		return rows, nil
	}
	path := filepath.Join(s.dir, fmt.Sprintf("%d.csv", person))
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: person %d", ErrNoSample, person)
		}
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = 3
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("server: parse %s: %w", path, err)
	}
	rows := make([]sampleRow, 0, len(records))
	for _, rec := range records {
		var row sampleRow
		if row.seconds, err = strconv.ParseFloat(rec[0], 64); err != nil {
			return nil, fmt.Errorf("server: parse %s: %w", path, err)
		}
		if row.leads[0], err = strconv.ParseFloat(rec[1], 64); err != nil {
			return nil, fmt.Errorf("server: parse %s: %w", path, err)
		}
		if row.leads[1], err = strconv.ParseFloat(rec[2], 64); err != nil {
			return nil, fmt.Errorf("server: parse %s: %w", path, err)
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seconds < rows[j].seconds })
	s.cache[person] = rows
	return rows, nil
}
