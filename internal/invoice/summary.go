package invoice

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Summary aggregates the records of one run
type Summary struct {
	Processed   int             `json:"processed"`
	WithMissing int             `json:"with_missing"`
	Failed      int             `json:"failed"`
	Total       decimal.Decimal `json:"total"`
}

// Summarize counts records and sums their amounts. Records without an
// amount are counted but add nothing to the total.
func Summarize(records []Record, failed int) Summary {
	s := Summary{
		Processed: len(records),
		Failed:    failed,
		Total:     decimal.Zero,
	}
	for _, r := range records {
		if r.HasMissing() {
			s.WithMissing++
		}
		if r.Amount.Valid {
			s.Total = s.Total.Add(r.Amount.Decimal)
		}
	}
	return s
}

func (s Summary) String() string {
	return fmt.Sprintf("Invoices processed: %d\nInvoices with errors: %d\nFiles failed: %d\nTotal billed: %s",
		s.Processed, s.WithMissing, s.Failed, FormatAmount(s.Total))
}
