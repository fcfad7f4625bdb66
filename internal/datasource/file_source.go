package datasource

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/propedge/internal/models"
)

// FileSource reads odds records from a JSON or CSV export
type FileSource struct {
	path   string
	logger logrus.FieldLogger
}

// NewFileSource creates a file-backed candidate source
func NewFileSource(path string, log logrus.FieldLogger) *FileSource {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &FileSource{path: path, logger: log}
}

// Name returns the name of the source
func (f *FileSource) Name() string {
	return "file:" + filepath.Base(f.path)
}

// FetchCandidates parses the file. Rows with unknown sides or suspended odds are dropped.
func (f *FileSource) FetchCandidates(ctx context.Context) ([]models.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := os.Open(f.path)
	if err != nil {
		return nil, NewDataSourceError(f.Name(), ErrCodeNotFound, "failed to open odds file", err)
	}
	defer file.Close()

	var records []OddsRecord
	switch strings.ToLower(filepath.Ext(f.path)) {
	case ".json":
		records, err = ParseOddsJSON(file)
	case ".csv":
		records, err = ParseOddsCSV(file)
	default:
		return nil, NewDataSourceError(f.Name(), ErrCodeInvalidData, f.path, ErrUnsupportedFormat)
	}
	if err != nil {
		return nil, NewDataSourceError(f.Name(), ErrCodeInvalidData, "failed to parse odds file", err)
	}

	return recordsToCandidates(records, f.logger.WithField("source", f.Name())), nil
}

// ParseOddsJSON decodes a JSON array of odds records
func ParseOddsJSON(r io.Reader) ([]OddsRecord, error) {
	var records []OddsRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return records, nil
}

// oddsColumns maps accepted CSV headers onto record fields
var oddsColumns = map[string]string{
	"player":     "player",
	"prop":       "prop",
	"statistic":  "prop",
	"line":       "line",
	"over/under": "direction",
	"direction":  "direction",
	"side":       "direction",
	"odds":       "odds",
}

// ParseOddsCSV reads a CSV export with a header row naming player, prop, line, side and odds
func ParseOddsCSV(r io.Reader) ([]OddsRecord, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: missing header: %v", ErrInvalidData, err)
	}
	index := make(map[string]int)
	for i, h := range header {
		if field, ok := oddsColumns[strings.ToLower(strings.TrimSpace(h))]; ok {
			index[field] = i
		}
	}
	for _, field := range []string{"player", "prop", "line", "direction", "odds"} {
		if _, ok := index[field]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrInvalidData, field)
		}
	}

	var records []OddsRecord
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidData, line, err)
		}
		value, err := strconv.ParseFloat(strings.TrimSpace(row[index["line"]]), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: bad line value %q", ErrInvalidData, line, row[index["line"]])
		}
		records = append(records, OddsRecord{
			Player:    strings.TrimSpace(row[index["player"]]),
			Prop:      strings.TrimSpace(row[index["prop"]]),
			Line:      value,
			Direction: strings.TrimSpace(row[index["direction"]]),
			Odds:      strings.TrimSpace(row[index["odds"]]),
		})
	}

	return records, nil
}

func recordsToCandidates(records []OddsRecord, log logrus.FieldLogger) []models.Candidate {
	candidates := make([]models.Candidate, 0, len(records))
	dropped := 0
	for _, r := range records {
		c, err := r.ToCandidate()
		if err != nil {
			dropped++
			log.WithError(err).WithFields(logrus.Fields{
				"player": r.Player,
				"prop":   r.Prop,
				"line":   r.Line,
			}).Debug("Dropping odds record")
			continue
		}
		candidates = append(candidates, c)
	}
	if dropped > 0 {
		log.WithFields(logrus.Fields{
			"kept":    len(candidates),
			"dropped": dropped,
		}).Info("Dropped unusable odds records")
	}
	return candidates
}
