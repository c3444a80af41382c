package server

import (
	"image"
	"image/color"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
	"github.com/xuri/excelize/v2"

	"github.com/zombor/facturas/internal/batch"
	"github.com/zombor/facturas/internal/invoice"
	"github.com/zombor/facturas/internal/report"
	"github.com/zombor/facturas/internal/scanning"
)

// stubRenderer stands in for the PDF rasterizer
type stubRenderer struct{}

func (stubRenderer) RenderFirstPage(path string) (image.Image, error) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(0, 0, color.White)
	return img, nil
}

func completion(content string) http.HandlerFunc {
	return ghttp.CombineHandlers(
		ghttp.VerifyRequest(http.MethodPost, "/v1/chat/completions"),
		ghttp.VerifyHeaderKV("Authorization", "Bearer test-key"),
		ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		}),
	)
}

var _ = Describe("Invoice runs over HTTP", Ordered, func() {
	var (
		openAI    *ghttp.Server
		api       *ghttp.Server
		db        *batch.BoltDB
		outputDir string
	)

	BeforeAll(func() {
		tmpDir := GinkgoT().TempDir()
		outputDir = filepath.Join(tmpDir, "reports")

		openAI = ghttp.NewServer()
		scanner, err := scanning.NewOpenAI("test-key", openAI.URL()+"/v1", "gpt-4o", 5*time.Second)
		Expect(err).NotTo(HaveOccurred())

		db, err = batch.NewBoltDB(filepath.Join(tmpDir, "facturas.db"))
		Expect(err).NotTo(HaveOccurred())

		storage, err := NewLocalStorage(filepath.Join(tmpDir, "uploads"))
		Expect(err).NotTo(HaveOccurred())

		runner := batch.NewRunner(scanning.NewExtractor(stubRenderer{}, scanner, nil), 0, nil)
		service := batch.NewService(runner, report.NewWriter(outputDir, nil), db, nil)
		server := NewServer(service, storage, BasicAuth{}, nil)

		api = ghttp.NewServer()
		api.RouteToHandler(http.MethodPost, "/api/runs", server.ServeHTTP)
		api.RouteToHandler(http.MethodGet, regexp.MustCompile(`^/api/runs`), server.ServeHTTP)
	})

	AfterAll(func() {
		api.Close()
		openAI.Close()
		db.Close()
	})

	var runID string

	It("processes uploaded invoices into a report", func() {
		openAI.AppendHandlers(
			completion("```json\n{\"Date\": \"2024-01-15\", \"Invoice Type\": \"01\", \"Invoice Number\": \"0001-00000001\", \"Seller Name\": \"Acme SA\", \"Total Amount\": \"1000,00\"}\n```"),
			completion(`{"fecha": "2024-01-16", "tipo de factura": "B", "número de factura": "0001-00000002", "Seller Name": null, "Total Amount": "abc"}`),
			completion(`{"Date": "2024-01-17", "Invoice Type": "C", "Invoice Number": "0001-00000003", "Seller Name": "Sur SRL", "Total Amount": "$250,50"}`),
		)

		body, contentType := uploadBody("uno.pdf", "dos.pdf", "leeme.txt", "tres.pdf")
		resp, err := http.Post(api.URL()+"/api/runs", contentType, body)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		var got map[string]any
		decodeBody(resp, &got)
		Expect(got["status"]).To(Equal(batch.StatusCompleted))
		Expect(got["processed"]).To(BeNumerically("==", 3))
		Expect(got["with_missing"]).To(BeNumerically("==", 1))
		Expect(got["message"]).To(ContainSubstring("Total billed: $1.250,50"))
		Expect(openAI.ReceivedRequests()).To(HaveLen(3))

		runID = got["id"].(string)
	})

	It("lists the run in the history", func() {
		resp, err := http.Get(api.URL() + "/api/runs")
		Expect(err).NotTo(HaveOccurred())
		var runs []*batch.Run
		decodeBody(resp, &runs)
		Expect(runs).To(HaveLen(1))
		Expect(runs[0].ID).To(Equal(runID))
	})

	It("serves the spreadsheet", func() {
		resp, err := http.Get(api.URL() + "/api/runs/" + runID + "/report")
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		data, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		path := filepath.Join(GinkgoT().TempDir(), "download.xlsx")
		Expect(os.WriteFile(path, data, 0644)).To(Succeed())

		f, err := excelize.OpenFile(path)
		Expect(err).NotTo(HaveOccurred())
		defer f.Close()

		rows, err := f.GetRows(report.SheetName)
		Expect(err).NotTo(HaveOccurred())
		Expect(rows).To(HaveLen(4))
		Expect(rows[1][1]).To(Equal("A"))
		Expect(rows[2][0]).To(Equal("2024-01-16"))
		Expect(rows[2][3]).To(Equal(invoice.NotDetected))
		Expect(rows[2][4]).To(Equal(invoice.NotDetected))
	})

	It("rejects uploads without PDFs", func() {
		body, contentType := uploadBody("foto.jpg")
		resp, err := http.Post(api.URL()+"/api/runs", contentType, body)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		resp.Body.Close()
	})

	It("reports a run where every file failed", func() {
		openAI.AppendHandlers(ghttp.RespondWith(http.StatusInternalServerError, "upstream down"))

		body, contentType := uploadBody("roto.pdf")
		resp, err := http.Post(api.URL()+"/api/runs", contentType, body)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusUnprocessableEntity))

		var got map[string]any
		decodeBody(resp, &got)
		failures := got["failures"].([]any)
		Expect(failures).To(HaveLen(1))
		Expect(failures[0].(map[string]any)["reason"]).To(Equal(string(scanning.ReasonStatus)))
		Expect(failures[0].(map[string]any)["path"]).To(Equal("roto.pdf"))
		Expect(failures[0].(map[string]any)["error"]).To(HavePrefix("roto.pdf: status 500"))
	})
})
