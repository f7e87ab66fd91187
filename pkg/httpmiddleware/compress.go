package httpmiddleware

import (
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
)

// Brotli compresses response bodies for clients sending
// "Accept-Encoding: br". Other clients get the uncompressed body.
func Brotli(level int) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("Vary", "Accept-Encoding")
			if !acceptsBrotli(r.Header.Get("Accept-Encoding")) {
				next.ServeHTTP(w, r)
				return
			}

			bw := &brotliWriter{ResponseWriter: w, level: level}
			defer bw.Close()
			next.ServeHTTP(bw, r)
		})
	}
}

func acceptsBrotli(header string) bool {
	for part := range strings.SplitSeq(header, ",") {
		coding, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		if strings.TrimSpace(coding) != "br" {
			continue
		}
		return strings.ReplaceAll(strings.TrimSpace(params), " ", "") != "q=0"
	}
	return false
}

// brotliWriter starts compressing on the first write, unless the handler
// already chose an encoding or the response has no body.
type brotliWriter struct {
	http.ResponseWriter
	level       int
	enc         *brotli.Writer
	wroteHeader bool
}

func (w *brotliWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true

	h := w.Header()
	if h.Get("Content-Encoding") == "" && code != http.StatusNoContent && code != http.StatusNotModified {
		h.Set("Content-Encoding", "br")
		h.Del("Content-Length")
		w.enc = brotli.NewWriterLevel(w.ResponseWriter, w.level)
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *brotliWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	if w.enc == nil {
		return w.ResponseWriter.Write(b)
	}
	return w.enc.Write(b)
}

func (w *brotliWriter) Close() error {
	if w.enc == nil {
		return nil
	}
	return w.enc.Close()
}

func (w *brotliWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
