package csv

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// Reader provides streaming CSV reading capabilities
type Reader struct {
	filePath string
	file     *os.File
	reader   *csv.Reader
	headers  []string
	rowCount int64
}

// NewReader creates a new CSV reader and consumes the header row.
func NewReader(filePath string) (*Reader, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", filePath, err)
	}

	csvReader := csv.NewReader(file)
	csvReader.TrimLeadingSpace = true
	// Sheet exports have ragged rows: trailing empty cells are dropped.
	csvReader.FieldsPerRecord = -1

	headers, err := csvReader.Read()
	if err != nil && err != io.EOF {
		file.Close()
		return nil, fmt.Errorf("failed to read headers from %s: %w", filePath, err)
	}

	return &Reader{
		filePath: filePath,
		file:     file,
		reader:   csvReader,
		headers:  headers,
	}, nil
}

// Headers returns the header row.
func (r *Reader) Headers() []string {
	return r.headers
}

// ReadRows reads data rows in streaming fashion and invokes callback for
// each one with its 1-based sheet row number (the header is row 1).
// Read errors are passed to callback allowing graceful handling and
// continuation; a non-nil callback error stops the scan.
func (r *Reader) ReadRows(callback func(row []string, sheetRow int, err error) error) error {
	defer r.Close()

	for {
		record, err := r.reader.Read()
		if err == io.EOF {
			break
		}

		r.rowCount++
		sheetRow := int(r.rowCount) + 1

		if err != nil {
			if cbErr := callback(nil, sheetRow, fmt.Errorf("%s row %d: %w", r.filePath, sheetRow, err)); cbErr != nil {
				return cbErr
			}
			continue
		}

		if err := callback(record, sheetRow, nil); err != nil {
			return err
		}
	}

	return nil
}

// Close closes the underlying file
func (r *Reader) Close() error {
	if r.file != nil {
		err := r.file.Close()
		r.file = nil
		return err
	}
	return nil
}
