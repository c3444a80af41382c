package invoice

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

var _ = Describe("Record", func() {
	var record Record

	BeforeEach(func() {
		record = Record{
			Source: "a.pdf",
			Date:   TextOf("2024-01-15"),
			Type:   TextOf("A"),
			Number: TextOf("0001-00001234"),
			Seller: TextOf("ACME SA"),
			Amount: decimal.NewNullDecimal(decimal.RequireFromString("1234.5")),
		}
	})

	When("every field is present", func() {
		It("has nothing missing", func() {
			Expect(record.HasMissing()).To(BeFalse())
		})

		It("renders the amount as a number", func() {
			Expect(record.Cell(FieldAmount)).To(Equal(1234.5))
		})

		It("renders text fields as given", func() {
			Expect(record.Cell(FieldSeller)).To(Equal("ACME SA"))
		})

		It("renders values with a fixed two decimal amount", func() {
			Expect(record.Values()).To(HaveKeyWithValue("Total Amount", "1234.50"))
		})
	})

	When("a field is absent", func() {
		BeforeEach(func() {
			record.Seller = Text{}
		})

		It("reports the record as incomplete", func() {
			Expect(record.HasMissing()).To(BeTrue())
		})

		It("renders the sentinel", func() {
			Expect(record.Cell(FieldSeller)).To(Equal(NotDetected))
		})
	})

	When("the amount is absent", func() {
		BeforeEach(func() {
			record.Amount = decimal.NullDecimal{}
		})

		It("renders the sentinel", func() {
			Expect(record.Values()).To(HaveKeyWithValue("Total Amount", NotDetected))
		})
	})
})

var _ = Describe("TextOf", func() {
	It("trims values", func() {
		Expect(TextOf("  x ")).To(Equal(Text{Value: "x", Valid: true}))
	})

	It("treats blanks as absent", func() {
		Expect(TextOf("   ").Valid).To(BeFalse())
	})

	It("treats the sentinel as absent", func() {
		Expect(TextOf("not detected").Valid).To(BeFalse())
	})
})

var _ = Describe("NormalizeType", func() {
	DescribeTable("mapping",
		func(input string, expected string) {
			t := NormalizeType(input)
			Expect(t.Valid).To(BeTrue())
			Expect(t.Value).To(Equal(expected))
		},
		Entry("code 01", "01", "A"),
		Entry("code 06", "06", "B"),
		Entry("code 11", "11", "C"),
		Entry("code 91", "91", "T"),
		Entry("lower case letter", "b", "B"),
		Entry("free text", "Factura A", "Factura A"),
	)

	It("keeps absence", func() {
		Expect(NormalizeType("").Valid).To(BeFalse())
	})
})
