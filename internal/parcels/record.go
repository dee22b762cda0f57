package parcels

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/zulandar/condobot/internal/store"
)

// Parcel statuses. A parcel only moves from StatusAwaiting to StatusReceived.
const (
	StatusAwaiting = "Aguardando Recebimento"
	StatusReceived = "Recebida"
)

// Record field names shared with the spreadsheet.
const (
	FieldID         = "id"
	FieldName       = "nome"
	FieldDate       = "data"
	FieldLocation   = "local"
	FieldStatus     = "status"
	FieldReceivedBy = "recebido_por"
	FieldReceivedAt = "recebido_em"
)

// Date parse failures.
var (
	ErrDateFormat  = errors.New("parcels: date must have day, month and year")
	ErrDateInvalid = errors.New("parcels: not a calendar date")
)

var dateSeparators = regexp.MustCompile(`[./-]`)

// ParseDate parses "day/month/year" with '/', '.' or '-' separators and
// returns it as DD/MM/YYYY. Two-digit years are taken as 20YY. Dates that
// do not exist (31/02) are rejected.
func ParseDate(input string) (string, error) {
	parts := dateSeparators.Split(input, -1)
	if len(parts) != 3 {
		return "", ErrDateFormat
	}
	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return "", ErrDateInvalid
		}
		nums[i] = n
	}
	day, month, year := nums[0], nums[1], nums[2]
	if year < 100 {
		year += 2000
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month {
		return "", ErrDateInvalid
	}
	return fmt.Sprintf("%02d/%02d/%d", day, month, year), nil
}

// NextID returns one more than the largest numeric id among records, or "1"
// when there is none. Non-numeric ids are ignored.
func NextID(records []store.Record) string {
	max := 0
	for _, r := range records {
		n, err := strconv.Atoi(strings.TrimSpace(r[FieldID]))
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return strconv.Itoa(max + 1)
}
