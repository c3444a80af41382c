package invoice

import "strings"

// voucherCodes maps AFIP voucher codes to invoice letters
var voucherCodes = map[string]string{
	"01": "A",
	"06": "B",
	"11": "C",
	"51": "M",
	"19": "E",
	"91": "T",
}

// NormalizeType maps a voucher code to its invoice letter and upper-cases
// single letters. Anything else is returned as given.
func NormalizeType(s string) Text {
	t := TextOf(s)
	if !t.Valid {
		return t
	}
	if letter, ok := voucherCodes[t.Value]; ok {
		return Text{Value: letter, Valid: true}
	}
	if len(t.Value) == 1 {
		t.Value = strings.ToUpper(t.Value)
	}
	return t
}
