package main

import (
	"fmt"
	"io"
	"path/filepath"
)

// consoleProgress prints one line per processed file
type consoleProgress struct {
	w     io.Writer
	total int
	done  int
}

func newConsoleProgress(w io.Writer) *consoleProgress {
	return &consoleProgress{w: w}
}

func (p *consoleProgress) Begin(total int) {
	p.total = total
	p.done = 0
	fmt.Fprintf(p.w, "Processing %d invoice(s)\n", total)
}

func (p *consoleProgress) Advance(path string, err error) {
	p.done++
	status := "ok"
	if err != nil {
		status = "failed"
	}
	fmt.Fprintf(p.w, "[%d/%d] %3.0f%% %s %s\n", p.done, p.total, p.percent(), filepath.Base(path), status)
}

func (p *consoleProgress) percent() float64 {
	if p.total == 0 {
		return 0
	}
	return float64(p.done) / float64(p.total) * 100
}
