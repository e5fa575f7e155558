package stock

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
)

// Default reference code prefixes
const (
	DefaultTransferPrefix   = "TRF"
	DefaultAdjustmentPrefix = "ADJ"
)

var prefixPattern = regexp.MustCompile(`^[A-Z][A-Z0-9]{1,7}$`)

// ReferencePeriod identifies one monthly sequence of a prefix
type ReferencePeriod struct {
	Prefix string
	Year   int
	Month  int
}

// PeriodOf returns the sequence period a code allocated at the given instant
// belongs to. Periods are calendar months in UTC.
func PeriodOf(prefix string, at time.Time) ReferencePeriod {
	at = at.UTC()
	return ReferencePeriod{Prefix: prefix, Year: at.Year(), Month: int(at.Month())}
}

// Bounds returns [start, end) of the period.
func (p ReferencePeriod) Bounds() (time.Time, time.Time) {
	start := time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// Code renders the reference code for the given sequence number within the period.
func (p ReferencePeriod) Code(seq int64) string {
	return fmt.Sprintf("%s-%02d%02d-%04d", p.Prefix, p.Year%100, p.Month, seq)
}

// ReferenceCode is a parsed human-readable document code, PREFIX-YYMM-NNNN
type ReferenceCode struct {
	ReferencePeriod
	Sequence int64
}

func (c ReferenceCode) String() string {
	return c.Code(c.Sequence)
}

// ValidatePrefix checks that a prefix is 2-8 upper case alphanumerics starting with a letter
func ValidatePrefix(prefix string) error {
	if !prefixPattern.MatchString(prefix) {
		return shared.NewValidationError("INVALID_REFERENCE_PREFIX",
			fmt.Sprintf("Reference prefix %q must be 2-8 upper case letters or digits", prefix))
	}
	return nil
}

// ParseReferenceCode parses a code produced by ReferencePeriod.Code.
// Two-digit years are read as 20YY.
func ParseReferenceCode(code string) (ReferenceCode, error) {
	invalid := shared.NewValidationError("INVALID_REFERENCE_CODE",
		fmt.Sprintf("Reference code %q is not in PREFIX-YYMM-NNNN form", code))

	parts := strings.Split(code, "-")
	if len(parts) != 3 || len(parts[1]) != 4 || len(parts[2]) < 4 {
		return ReferenceCode{}, invalid
	}
	if ValidatePrefix(parts[0]) != nil {
		return ReferenceCode{}, invalid
	}
	yy, err := strconv.Atoi(parts[1][:2])
	if err != nil {
		return ReferenceCode{}, invalid
	}
	mm, err := strconv.Atoi(parts[1][2:])
	if err != nil || mm < 1 || mm > 12 {
		return ReferenceCode{}, invalid
	}
	seq, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || seq < 1 {
		return ReferenceCode{}, invalid
	}
	return ReferenceCode{
		ReferencePeriod: ReferencePeriod{Prefix: parts[0], Year: 2000 + yy, Month: mm},
		Sequence:        seq,
	}, nil
}
