package rule

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/hjonck/leadscout-sub002/internal/domain"
)

// LoadCSV reads the static NameDictionary from a CSV file with header
// name,ethnicity,priority,confidence_base and returns the raw Entry rows
// for NewDictionary.
func LoadCSV(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dictionary file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	if _, err := reader.Read(); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("read dictionary header: %w", err)
	}

	var entries []Entry
	lineNum := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read dictionary row: %w", err)
		}
		lineNum++
		if len(record) < 2 {
			return nil, fmt.Errorf("dictionary line %d: expected at least name,ethnicity", lineNum)
		}

		priority := 0
		if len(record) > 2 && record[2] != "" {
			priority, err = strconv.Atoi(record[2])
			if err != nil {
				return nil, fmt.Errorf("dictionary line %d: invalid priority %q: %w", lineNum, record[2], err)
			}
		}

		confidenceBase := 0.95
		if len(record) > 3 && record[3] != "" {
			confidenceBase, err = strconv.ParseFloat(record[3], 64)
			if err != nil {
				return nil, fmt.Errorf("dictionary line %d: invalid confidence_base %q: %w", lineNum, record[3], err)
			}
		}

		entries = append(entries, Entry{
			NormalizedName: domain.NormalizeName(record[0]),
			Ethnicity:      domain.Ethnicity(record[1]),
			Priority:       priority,
			ConfidenceBase: confidenceBase,
		})
	}
	return entries, nil
}
