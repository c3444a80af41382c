package scanning

import (
	"context"
	"errors"
	"image"
	"image/color"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/facturas/internal/invoice"
)

// mockRenderer is a mock implementation of Renderer
type mockRenderer struct {
	img   image.Image
	err   error
	paths []string
}

func newMockRenderer() *mockRenderer {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	img.Set(1, 1, color.Black)
	return &mockRenderer{img: img}
}

func (m *mockRenderer) RenderFirstPage(path string) (image.Image, error) {
	m.paths = append(m.paths, path)
	if m.err != nil {
		return nil, m.err
	}
	return m.img, nil
}

// mockScanner is a mock implementation of Scanner
type mockScanner struct {
	text    string
	scanErr error
	images  [][]byte
}

func (m *mockScanner) ScanInvoice(ctx context.Context, jpeg []byte) (string, error) {
	m.images = append(m.images, jpeg)
	if m.scanErr != nil {
		return "", m.scanErr
	}
	return m.text, nil
}

func (m *mockScanner) Close() error {
	return nil
}

var _ = Describe("Extractor", func() {
	var (
		renderer  *mockRenderer
		scanner   *mockScanner
		extractor *Extractor
		record    invoice.Record
		err       error
	)

	BeforeEach(func() {
		renderer = newMockRenderer()
		scanner = &mockScanner{text: "```json\n" + completeJSON + "\n```"}
		extractor = NewExtractor(renderer, scanner, nil)
	})

	JustBeforeEach(func() {
		record, err = extractor.Extract(context.Background(), "/invoices/a.pdf")
	})

	reasonOf := func(err error) Reason {
		var scanErr *Error
		Expect(errors.As(err, &scanErr)).To(BeTrue())
		Expect(scanErr.Path).To(Equal("/invoices/a.pdf"))
		return scanErr.Reason
	}

	When("extraction succeeds", func() {
		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should return the parsed record", func() {
			Expect(record.Source).To(Equal("/invoices/a.pdf"))
			Expect(record.Seller.Value).To(Equal("Distribuidora Sur SRL"))
		})

		It("should send a JPEG to the scanner", func() {
			Expect(scanner.images).To(HaveLen(1))
			Expect(scanner.images[0][:2]).To(Equal([]byte{0xff, 0xd8}))
		})
	})

	When("rendering fails", func() {
		BeforeEach(func() {
			renderer.err = errors.New("broken pdf")
		})

		It("returns a render error", func() {
			Expect(reasonOf(err)).To(Equal(ReasonRender))
		})

		It("should not call the scanner", func() {
			Expect(scanner.images).To(BeEmpty())
		})
	})

	When("rendering yields no image", func() {
		BeforeEach(func() {
			renderer.img = nil
		})

		It("returns a render error", func() {
			Expect(reasonOf(err)).To(Equal(ReasonRender))
		})
	})

	When("rendering yields a nil image pointer", func() {
		BeforeEach(func() {
			renderer.img = (*image.RGBA)(nil)
		})

		It("returns a render error", func() {
			Expect(reasonOf(err)).To(Equal(ReasonRender))
		})
	})

	When("the scanner returns a typed error", func() {
		BeforeEach(func() {
			scanner.scanErr = &Error{Reason: ReasonStatus, StatusCode: 500}
		})

		It("keeps the reason and adds the path", func() {
			Expect(reasonOf(err)).To(Equal(ReasonStatus))
		})
	})

	When("the scanner returns a plain error", func() {
		BeforeEach(func() {
			scanner.scanErr = errors.New("boom")
		})

		It("returns a request error", func() {
			Expect(reasonOf(err)).To(Equal(ReasonRequest))
		})
	})

	When("the model answer is not JSON", func() {
		BeforeEach(func() {
			scanner.text = "Sorry, I cannot read this invoice."
		})

		It("returns a parse error", func() {
			Expect(reasonOf(err)).To(Equal(ReasonParse))
		})
	})

	When("the model answer has text after the JSON", func() {
		BeforeEach(func() {
			scanner.text = completeJSON + "\nLet me know if you need anything else."
		})

		It("returns a parse error", func() {
			Expect(reasonOf(err)).To(Equal(ReasonParse))
		})

		It("should not return a record", func() {
			Expect(record.Source).To(BeEmpty())
		})
	})
})

var _ = Describe("Error", func() {
	It("describes path, reason and status", func() {
		err := &Error{Path: "a.pdf", Reason: ReasonStatus, StatusCode: 502, Err: errors.New("bad gateway")}
		Expect(err.Error()).To(Equal("a.pdf: status 502: bad gateway"))
	})

	It("unwraps the cause", func() {
		cause := errors.New("cause")
		Expect(errors.Is(&Error{Reason: ReasonRender, Err: cause}, cause)).To(BeTrue())
	})
})

var _ = Describe("encodeJPEG", func() {
	It("encodes an image", func() {
		data, err := encodeJPEG(image.NewRGBA(image.Rect(0, 0, 4, 4)))
		Expect(err).NotTo(HaveOccurred())
		Expect(data[:2]).To(Equal([]byte{0xff, 0xd8}))
	})

	It("rejects a nil image pointer", func() {
		_, err := encodeJPEG((*image.RGBA)(nil))
		Expect(err).To(HaveOccurred())
	})

	It("rejects an empty image", func() {
		_, err := encodeJPEG(image.NewRGBA(image.Rectangle{}))
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("NewFitzRenderer", func() {
	It("defaults to 200 DPI", func() {
		Expect(NewFitzRenderer(0).DPI).To(BeNumerically("==", 200))
	})

	It("fails on a file that is not a PDF", func() {
		path := GinkgoT().TempDir() + "/missing.pdf"
		_, err := NewFitzRenderer(72).RenderFirstPage(path)
		Expect(err).To(HaveOccurred())
	})
})
