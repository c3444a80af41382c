package scanning

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/zombor/facturas/internal/invoice"
)

// fieldAliases maps folded response keys to fields. Spanish keys come from
// earlier prompts of this tool and are still accepted.
var fieldAliases = map[string]invoice.Field{
	"date":              invoice.FieldDate,
	"fecha":             invoice.FieldDate,
	"invoicetype":       invoice.FieldType,
	"type":              invoice.FieldType,
	"tipodefactura":     invoice.FieldType,
	"invoicenumber":     invoice.FieldNumber,
	"number":            invoice.FieldNumber,
	"númerodefactura":   invoice.FieldNumber,
	"numerodefactura":   invoice.FieldNumber,
	"sellername":        invoice.FieldSeller,
	"seller":            invoice.FieldSeller,
	"vendor":            invoice.FieldSeller,
	"nombredelvendedor": invoice.FieldSeller,
	"totalamount":       invoice.FieldAmount,
	"total":             invoice.FieldAmount,
	"amount":            invoice.FieldAmount,
	"montototal":        invoice.FieldAmount,
}

func foldKey(k string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '_', '-':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(k)))
}

// stripFences removes a markdown code fence around the model's JSON
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// parseInvoiceJSON turns the model's answer into a record. Keys outside the
// known fields are ignored.
func parseInvoiceJSON(source, text string) (invoice.Record, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(stripFences(text))))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return invoice.Record{}, fmt.Errorf("unmarshaling json: %w", err)
	}
	if raw == nil {
		return invoice.Record{}, fmt.Errorf("response is not a JSON object")
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return invoice.Record{}, fmt.Errorf("unexpected data after JSON object")
	}

	values := collectFields(raw)
	return invoice.Record{
		Source: source,
		Date:   invoice.TextOf(asText(values[invoice.FieldDate])),
		Type:   invoice.NormalizeType(asText(values[invoice.FieldType])),
		Number: invoice.TextOf(asText(values[invoice.FieldNumber])),
		Seller: invoice.TextOf(asText(values[invoice.FieldSeller])),
		Amount: asAmount(values[invoice.FieldAmount]),
	}, nil
}

// collectFields picks one value per field, preferring exact field names
// over aliases
func collectFields(raw map[string]any) map[invoice.Field]any {
	out := make(map[invoice.Field]any, len(invoice.Fields))
	for _, f := range invoice.Fields {
		if v, ok := raw[string(f)]; ok {
			out[f] = v
		}
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		f, ok := fieldAliases[foldKey(k)]
		if !ok {
			continue
		}
		if _, seen := out[f]; !seen {
			out[f] = raw[k]
		}
	}
	return out
}

func asText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	}
	return ""
}

// asAmount keeps JSON numbers exact and normalizes strings written with a
// decimal comma
func asAmount(v any) decimal.NullDecimal {
	switch t := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		if err != nil {
			return decimal.NullDecimal{}
		}
		return decimal.NewNullDecimal(d)
	case string:
		return invoice.AmountOf(t)
	}
	return decimal.NullDecimal{}
}
