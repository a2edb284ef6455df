package vectorio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"rookery/internal/nests"
)

func writeCSV(path string, rows []nests.Nest) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(nests.Columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	line := make([]string, len(nests.Columns))
	for _, n := range rows {
		for i, v := range nestValues(n) {
			line[i] = formatCell(v)
		}
		if err := w.Write(line); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return file.Close()
}

func formatCell(v any) string {
	switch value := v.(type) {
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	default:
		return asString(value)
	}
}

func readCSV(path string) (*table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.TrimLeadingSpace = true
	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: csv has no header", ErrInvalidRow)
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	tbl := &table{}
	for {
		fields, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		values := make(row, len(header))
		for i, name := range header {
			if i < len(fields) {
				values[name] = fields[i]
			}
		}
		tbl.records = append(tbl.records, record{values: values})
	}
	return tbl, nil
}
