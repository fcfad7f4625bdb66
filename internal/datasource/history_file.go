package datasource

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/yourusername/propedge/internal/models"
)

// SeriesKey identifies one entity's statistic history
type SeriesKey struct {
	EntityID  string
	Statistic string
}

var dateLayouts = []string{time.RFC3339, "2006-01-02", "Jan 02, 2006"}

// ParseObservationsCSV reads game logs with columns player (or entity_id),
// statistic, date and value. Histories are returned sorted oldest first.
func ParseObservationsCSV(r io.Reader) (map[SeriesKey]models.History, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: missing header: %v", ErrInvalidData, err)
	}
	index := make(map[string]int)
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "player", "entity_id", "entity":
			index["entity"] = i
		case "statistic", "stat", "prop":
			index["statistic"] = i
		case "date", "game_date":
			index["date"] = i
		case "value":
			index["value"] = i
		}
	}
	for _, field := range []string{"entity", "statistic", "date", "value"} {
		if _, ok := index[field]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrInvalidData, field)
		}
	}

	out := make(map[SeriesKey]models.History)
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidData, line, err)
		}

		date, err := parseDate(row[index["date"]])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidData, line, err)
		}
		value, err := strconv.ParseFloat(strings.TrimSpace(row[index["value"]]), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: bad value %q", ErrInvalidData, line, row[index["value"]])
		}

		key := SeriesKey{
			EntityID:  strings.TrimSpace(row[index["entity"]]),
			Statistic: models.NormalizeStatistic(row[index["statistic"]]),
		}
		out[key] = append(out[key], models.Observation{Date: date, Value: value})
	}

	for k, h := range out {
		if !h.IsSorted() {
			out[k] = h.Sorted()
		}
	}
	return out, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}
