package server

import (
	"net/http"
	"sync/atomic"
)

// countingWriter wraps an http.ResponseWriter to record status and bytes written.
type countingWriter struct {
	http.ResponseWriter
	bytesWritten int64
	statusCode   int
}

func newCountingWriter(w http.ResponseWriter) *countingWriter {
	return &countingWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

func (w *countingWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	atomic.AddInt64(&w.bytesWritten, int64(n))
	return n, err
}

func (w *countingWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush implements http.Flusher if the underlying writer supports it.
func (w *countingWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *countingWriter) BytesWritten() int64 {
	return atomic.LoadInt64(&w.bytesWritten)
}

func (w *countingWriter) StatusCode() int {
	return w.statusCode
}
