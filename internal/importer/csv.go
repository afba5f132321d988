package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"wheeljournal/internal/indicator"
)

// Accepted date layouts, probed in order on the first data row and then
// pinned for the rest of the file.
var dateLayouts = []string{"2006-01-02", "02.01.2006", "01/02/2006"}

// RowError records one rejected CSV row.
type RowError struct {
	Line   int
	Reason string
}

func (e RowError) String() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// ParseOHLCVCSV reads Date,Open,High,Low,Close,Volume rows into bars
// ordered as read. Rows failing OHLC sanity checks or falling on
// weekends are rejected individually; only a malformed stream is a hard
// error.
func ParseOHLCVCSV(r io.Reader) ([]indicator.Bar, []RowError, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	var bars []indicator.Bar
	var rejected []RowError
	layout := ""
	line := 0

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read csv: %w", err)
		}
		line++

		if len(record) < 6 {
			rejected = append(rejected, RowError{Line: line, Reason: "expected 6 columns"})
			continue
		}
		// Header row.
		if line == 1 && strings.EqualFold(strings.TrimSpace(record[0]), "date") {
			continue
		}

		dateStr := strings.TrimSpace(record[0])
		var date time.Time
		if layout == "" {
			for _, l := range dateLayouts {
				if d, err := time.Parse(l, dateStr); err == nil {
					layout, date = l, d
					break
				}
			}
			if layout == "" {
				rejected = append(rejected, RowError{Line: line, Reason: "unrecognized date format"})
				continue
			}
		} else {
			d, err := time.Parse(layout, dateStr)
			if err != nil {
				rejected = append(rejected, RowError{Line: line, Reason: "bad date"})
				continue
			}
			date = d
		}

		if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
			rejected = append(rejected, RowError{Line: line, Reason: "non-trading day"})
			continue
		}

		values := make([]float64, 4)
		ok := true
		for i := 0; i < 4; i++ {
			v, err := strconv.ParseFloat(strings.TrimSpace(record[i+1]), 64)
			if err != nil {
				rejected = append(rejected, RowError{Line: line, Reason: "bad number in column " + strconv.Itoa(i+2)})
				ok = false
				break
			}
			values[i] = v
		}
		if !ok {
			continue
		}
		volume, err := strconv.ParseInt(strings.TrimSpace(record[5]), 10, 64)
		if err != nil {
			rejected = append(rejected, RowError{Line: line, Reason: "bad volume"})
			continue
		}

		bar := indicator.Bar{
			Date:   date,
			Open:   values[0],
			High:   values[1],
			Low:    values[2],
			Close:  values[3],
			Volume: volume,
		}
		if reason := validateBar(bar); reason != "" {
			rejected = append(rejected, RowError{Line: line, Reason: reason})
			continue
		}
		bars = append(bars, bar)
	}
	return bars, rejected, nil
}

func validateBar(b indicator.Bar) string {
	if b.High < b.Low {
		return "high below low"
	}
	if b.High < b.Open || b.High < b.Close {
		return "high below open/close"
	}
	if b.Low > b.Open || b.Low > b.Close {
		return "low above open/close"
	}
	return ""
}
