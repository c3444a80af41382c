package invoice

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Queue", func() {
	var (
		tmpDir string
		queue  *Queue
	)

	touch := func(parts ...string) string {
		path := filepath.Join(append([]string{tmpDir}, parts...)...)
		Expect(os.MkdirAll(filepath.Dir(path), 0755)).To(Succeed())
		Expect(os.WriteFile(path, []byte("%PDF-1.4"), 0644)).To(Succeed())
		return path
	}

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		queue = NewQueue()
	})

	Describe("SelectFolder", func() {
		var (
			count int
			err   error
		)

		BeforeEach(func() {
			touch("a.pdf")
			touch("nested", "b.PDF")
			touch("notes.txt")
		})

		JustBeforeEach(func() {
			count, err = queue.SelectFolder(tmpDir)
		})

		It("does not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("finds PDFs recursively regardless of case", func() {
			Expect(count).To(Equal(2))
			Expect(queue.Paths()).To(ConsistOf(
				filepath.Join(tmpDir, "a.pdf"),
				filepath.Join(tmpDir, "nested", "b.PDF"),
			))
		})

		When("the queue already holds files", func() {
			BeforeEach(func() {
				queue.AddFiles(touch("other", "c.pdf"))
				Expect(os.Remove(filepath.Join(tmpDir, "other", "c.pdf"))).To(Succeed())
			})

			It("replaces them", func() {
				Expect(queue.Len()).To(Equal(2))
			})
		})

		When("the folder does not exist", func() {
			BeforeEach(func() {
				tmpDir = filepath.Join(tmpDir, "missing")
			})

			It("returns an error", func() {
				Expect(err).To(HaveOccurred())
			})
		})
	})

	Describe("AddFiles", func() {
		It("accepts only existing PDF files", func() {
			pdf := touch("a.pdf")
			txt := touch("a.txt")
			added := queue.AddFiles(pdf, txt, filepath.Join(tmpDir, "ghost.pdf"), tmpDir)
			Expect(added).To(Equal(1))
			Expect(queue.Paths()).To(Equal([]string{pdf}))
		})

		It("keeps duplicates across calls", func() {
			pdf := touch("a.pdf")
			queue.AddFiles(pdf)
			queue.AddFiles(pdf)
			Expect(queue.Paths()).To(Equal([]string{pdf, pdf}))
		})
	})

	Describe("Reset", func() {
		It("empties the queue", func() {
			queue.AddFiles(touch("a.pdf"))
			queue.Reset()
			Expect(queue.Len()).To(BeZero())
		})
	})
})
