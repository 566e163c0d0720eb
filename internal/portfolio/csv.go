package portfolio

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/anaysomani05/opti-invest/internal/contracts"
)

var csvDateFormats = []string{"2006-01-02", "01/02/2006", "2006/01/02"}

// ParseCSV reads holdings from a CSV stream. The first row must be a header
// containing at least "symbol", "quantity" and "buy_price" (case-insensitive,
// any order); "buy_date" is optional. Parsing is strict: any malformed row
// fails the whole import.
func ParseCSV(r io.Reader) ([]contracts.Holding, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, &contracts.InvalidRequestError{Field: "file", Reason: "missing CSV header"}
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"symbol", "quantity", "buy_price"} {
		if _, ok := cols[required]; !ok {
			return nil, &contracts.InvalidRequestError{Field: "file", Reason: fmt.Sprintf("missing required column %q", required)}
		}
	}

	var holdings []contracts.Holding
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, &contracts.InvalidRequestError{Field: "file", Reason: fmt.Sprintf("line %d: %v", line, err)}
		}

		h, err := parseRow(record, cols, line)
		if err != nil {
			return nil, err
		}
		holdings = append(holdings, *h)
	}

	if len(holdings) == 0 {
		return nil, &contracts.InvalidRequestError{Field: "file", Reason: "no holdings in file"}
	}
	return holdings, nil
}

func parseRow(record []string, cols map[string]int, line int) (*contracts.Holding, error) {
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	symbol := strings.ToUpper(field("symbol"))
	if symbol == "" {
		return nil, &contracts.InvalidRequestError{Field: "file", Reason: fmt.Sprintf("line %d: empty symbol", line)}
	}

	quantity, err := strconv.ParseFloat(field("quantity"), 64)
	if err != nil || quantity <= 0 {
		return nil, &contracts.InvalidRequestError{Field: "file", Reason: fmt.Sprintf("line %d: invalid quantity %q", line, field("quantity"))}
	}

	buyPrice, err := strconv.ParseFloat(field("buy_price"), 64)
	if err != nil || buyPrice <= 0 {
		return nil, &contracts.InvalidRequestError{Field: "file", Reason: fmt.Sprintf("line %d: invalid buy_price %q", line, field("buy_price"))}
	}

	h := &contracts.Holding{
		Symbol:   symbol,
		Quantity: quantity,
		BuyPrice: buyPrice,
	}

	if raw := field("buy_date"); raw != "" {
		date, err := parseDate(raw)
		if err != nil {
			return nil, &contracts.InvalidRequestError{Field: "file", Reason: fmt.Sprintf("line %d: invalid buy_date %q", line, raw)}
		}
		h.BuyDate = &date
	}
	return h, nil
}

func parseDate(raw string) (time.Time, error) {
	for _, layout := range csvDateFormats {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format")
}
