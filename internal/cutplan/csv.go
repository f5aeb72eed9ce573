package cutplan

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var ErrInvalidCSV = errors.New("invalid cut list")

var columnAliases = map[string]string{
	"id":          "id",
	"ancho":       "width",
	"width":       "width",
	"largo":       "length",
	"length":      "length",
	"cantidad":    "quantity",
	"quantity":    "quantity",
	"descripcion": "description",
	"descripción": "description",
	"description": "description",
}

var requiredColumns = []string{"id", "width", "length", "quantity"}

// ReadCSV parses a cut list. The delimiter is ';' when the header line
// contains one and ',' otherwise. With ';' a decimal comma is accepted.
func ReadCSV(r io.Reader) ([]Part, error) {
	br := bufio.NewReader(r)

	if bom, err := br.Peek(3); err == nil && bytes.Equal(bom, []byte{0xEF, 0xBB, 0xBF}) {
		br.Discard(3)
	}

	header, err := br.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read cut list: %w", err)
	}
	if strings.TrimSpace(header) == "" {
		return nil, fmt.Errorf("%w: missing header", ErrInvalidCSV)
	}

	delimiter := ','
	if strings.Contains(header, ";") {
		delimiter = ';'
	}

	reader := csv.NewReader(io.MultiReader(strings.NewReader(header), br))
	reader.Comma = delimiter
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCSV, err)
	}

	columns := make(map[string]int)
	for i, name := range records[0] {
		if canonical, ok := columnAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
			columns[canonical] = i
		}
	}
	for _, required := range requiredColumns {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrInvalidCSV, required)
		}
	}

	parts := make([]Part, 0, len(records)-1)
	for n, record := range records[1:] {
		line := n + 2
		if blank(record) {
			continue
		}

		field := func(name string) string {
			i, ok := columns[name]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}
		number := func(name string) (float64, error) {
			v := field(name)
			if delimiter == ';' {
				v = strings.ReplaceAll(v, ",", ".")
			}
			f, err := strconv.ParseFloat(v, 64)
			if err != nil || !Finite(f) {
				return 0, fmt.Errorf("%w: line %d: %s %q is not a number", ErrInvalidCSV, line, name, field(name))
			}
			return f, nil
		}

		id, err := strconv.Atoi(field("id"))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: id %q is not an integer", ErrInvalidCSV, line, field("id"))
		}
		width, err := number("width")
		if err != nil {
			return nil, err
		}
		length, err := number("length")
		if err != nil {
			return nil, err
		}
		quantity, err := strconv.Atoi(field("quantity"))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: quantity %q is not an integer", ErrInvalidCSV, line, field("quantity"))
		}

		parts = append(parts, Part{
			ID:          id,
			Width:       width,
			Length:      length,
			Quantity:    quantity,
			Description: field("description"),
		})
	}

	return parts, nil
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
