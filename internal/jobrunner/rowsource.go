package jobrunner

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/hjonck/leadscout-sub002/internal/domain"
)

// inputColumns lists the columns the CSV row source requires (in any
// order) and the order CSVWriter emits them in, per spec.md §4.7's input
// schema.
var inputColumns = []string{
	"EntityName", "DirectorName", "Keyword", "ContactNumber", "EmailAddress", "RegisteredAddressProvince",
}

// outputColumns is the header order CSVWriter emits.
var outputColumns = append(append([]string{}, inputColumns...),
	"Ethnicity", "Confidence", "Method", "ProcessingTime_ms", "Status", "ErrorMessage")

// CSVRowSource reads domain.InputRow values from a CSV file matching
// spec.md §4.7's column schema.
type CSVRowSource struct {
	reader  *csv.Reader
	colIdx  map[string]int
	nextRow int
}

// NewCSVRowSource wraps r, validating that its header contains every
// expected input column (extra columns are ignored, order-independent).
func NewCSVRowSource(r io.Reader) (*CSVRowSource, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("jobrunner: read csv header: %w", err)
	}

	colIdx := make(map[string]int, len(header))
	for i, col := range header {
		colIdx[col] = i
	}
	for _, want := range inputColumns {
		if _, ok := colIdx[want]; !ok {
			return nil, fmt.Errorf("jobrunner: csv missing required column %q", want)
		}
	}

	return &CSVRowSource{reader: cr, colIdx: colIdx}, nil
}

// Next returns the next row, or io.EOF when the file is exhausted.
func (s *CSVRowSource) Next() (domain.InputRow, error) {
	record, err := s.reader.Read()
	if err != nil {
		return domain.InputRow{}, err
	}

	row := domain.InputRow{
		RowIndex:                  s.nextRow,
		EntityName:                s.col(record, "EntityName"),
		DirectorName:              s.col(record, "DirectorName"),
		Keyword:                   s.col(record, "Keyword"),
		ContactNumber:             s.col(record, "ContactNumber"),
		EmailAddress:              s.col(record, "EmailAddress"),
		RegisteredAddressProvince: s.col(record, "RegisteredAddressProvince"),
	}
	s.nextRow++
	return row, nil
}

func (s *CSVRowSource) col(record []string, name string) string {
	idx, ok := s.colIdx[name]
	if !ok || idx >= len(record) {
		return ""
	}
	return record[idx]
}

// CSVWriter writes domain.OutputRow values matching spec.md §4.7's
// output schema.
type CSVWriter struct {
	w           *csv.Writer
	wroteHeader bool
}

// NewCSVWriter wraps w.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(w)}
}

// Write appends one OutputRow, writing the header first if this is the
// first call.
func (c *CSVWriter) Write(row domain.OutputRow) error {
	if !c.wroteHeader {
		if err := c.w.Write(outputColumns); err != nil {
			return fmt.Errorf("jobrunner: write csv header: %w", err)
		}
		c.wroteHeader = true
	}
	record := []string{
		row.EntityName, row.DirectorName, row.Keyword, row.ContactNumber, row.EmailAddress, row.RegisteredAddressProvince,
		string(row.Ethnicity),
		strconv.FormatFloat(row.Confidence, 'f', 4, 64),
		string(row.Method),
		strconv.FormatFloat(row.ProcessingTimeMs, 'f', 2, 64),
		string(row.Status),
		row.ErrorMessage,
	}
	if err := c.w.Write(record); err != nil {
		return fmt.Errorf("jobrunner: write csv row: %w", err)
	}
	return nil
}

// Flush flushes any buffered output and returns the first write error
// encountered, if any.
func (c *CSVWriter) Flush() error {
	c.w.Flush()
	return c.w.Error()
}
