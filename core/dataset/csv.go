package dataset

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/stepwise/pkg/errors"
)

// ReadCSV reads a Dataframe from CSV with a header row. The column named
// target becomes the target; pass "" for prediction data without one. All
// other columns are features and must parse as float64.
func ReadCSV(r io.Reader, target string) (*Dataframe, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, errors.NewModelError("dataset.ReadCSV", "missing header", errors.ErrEmptyData)
		}
		return nil, errors.Wrap(err, "dataset.ReadCSV: read header")
	}

	targetIdx := -1
	var names []string
	for i, h := range header {
		h = strings.TrimSpace(h)
		header[i] = h
		if target != "" && h == target {
			targetIdx = i
			continue
		}
		names = append(names, h)
	}
	if target != "" && targetIdx == -1 {
		return nil, errors.NewValueError("dataset.ReadCSV", "target column "+target+" not found")
	}

	cols := make([][]float64, len(names))
	var y []float64
	if targetIdx >= 0 {
		y = []float64{}
	}

	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "dataset.ReadCSV: line %d", line+1)
		}
		line++

		j := 0
		for i, field := range record {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, errors.Wrapf(err, "dataset.ReadCSV: line %d column %s", line, header[i])
			}
			if i == targetIdx {
				y = append(y, v)
				continue
			}
			cols[j] = append(cols[j], v)
			j++
		}
	}

	return FromColumns(names, cols, y)
}
