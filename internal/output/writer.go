package output

import (
	"errors"
	"io"
	"os"
	"syscall"
	"time"
)

// Format selects one of the three presentation formats.
type Format int

const (
	FormatText Format = iota
	FormatXML
	FormatJSON
)

func (f Format) String() string {
	switch f {
	case FormatXML:
		return "xml"
	case FormatJSON:
		return "json"
	default:
		return "text"
	}
}

// DrainWriter writes large payloads to a pipe-backed file without dropping
// data: when the kernel buffer is full and the descriptor is non-blocking
// (common once another process has touched stdout), writes fail with EAGAIN
// and are retried after a short pause until the consumer drains.
type DrainWriter struct {
	f *os.File
}

// NewDrainWriter wraps f, typically os.Stdout.
func NewDrainWriter(f *os.File) *DrainWriter {
	return &DrainWriter{f: f}
}

// Write implements io.Writer, retrying short and EAGAIN-refused writes.
func (w *DrainWriter) Write(p []byte) (int, error) {
	total := 0
	for len(p) > 0 {
		n, err := w.f.Write(p)
		total += n
		p = p[n:]
		if err == nil {
			continue
		}
		if errors.Is(err, syscall.EAGAIN) {
			time.Sleep(5 * time.Millisecond)
			continue
		}
		return total, err
	}
	return total, nil
}

// WriteString is a convenience for string payloads.
func (w *DrainWriter) WriteString(s string) (int, error) {
	return io.WriteString(w, s)
}
