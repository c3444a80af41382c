package invoice

import (
	"strings"

	"github.com/shopspring/decimal"
)

// NotDetected marks a field that could not be extracted or parsed.
// It is only used when presenting a Record, never stored in one.
const NotDetected = "NOT DETECTED"

// Field is one of the fixed invoice columns
type Field string

const (
	FieldDate   Field = "Date"
	FieldType   Field = "Invoice Type"
	FieldNumber Field = "Invoice Number"
	FieldSeller Field = "Seller Name"
	FieldAmount Field = "Total Amount"
)

// Fields lists every field in report column order
var Fields = []Field{FieldDate, FieldType, FieldNumber, FieldSeller, FieldAmount}

// Text is an optional extracted string
type Text struct {
	Value string
	Valid bool
}

// TextOf returns a valid Text for s unless s is blank or the sentinel itself
func TextOf(s string) Text {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, NotDetected) || strings.EqualFold(s, "null") {
		return Text{}
	}
	return Text{Value: s, Valid: true}
}

// Record holds the fields extracted from one invoice
type Record struct {
	Source string
	Date   Text
	Type   Text
	Number Text
	Seller Text
	Amount decimal.NullDecimal
}

// Missing reports whether f has no usable value
func (r Record) Missing(f Field) bool {
	switch f {
	case FieldDate:
		return !r.Date.Valid
	case FieldType:
		return !r.Type.Valid
	case FieldNumber:
		return !r.Number.Valid
	case FieldSeller:
		return !r.Seller.Valid
	case FieldAmount:
		return !r.Amount.Valid
	}
	return true
}

// HasMissing reports whether any field is absent
func (r Record) HasMissing() bool {
	for _, f := range Fields {
		if r.Missing(f) {
			return true
		}
	}
	return false
}

// Cell returns the presentation value for f: a string, a float64 amount,
// or NotDetected.
func (r Record) Cell(f Field) any {
	if r.Missing(f) {
		return NotDetected
	}
	switch f {
	case FieldDate:
		return r.Date.Value
	case FieldType:
		return r.Type.Value
	case FieldNumber:
		return r.Number.Value
	case FieldSeller:
		return r.Seller.Value
	case FieldAmount:
		return r.Amount.Decimal.Round(2).InexactFloat64()
	}
	return NotDetected
}

// Values renders the record as strings keyed by field name
func (r Record) Values() map[string]string {
	out := make(map[string]string, len(Fields))
	for _, f := range Fields {
		if f == FieldAmount && !r.Missing(f) {
			out[string(f)] = r.Amount.Decimal.StringFixed(2)
			continue
		}
		out[string(f)] = r.Cell(f).(string)
	}
	return out
}
