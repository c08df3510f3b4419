package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

var compressible = []string{"application/json", "text/plain", "text/html"}

// GzipMiddleware распаковывает тела запросов в gzip и сжимает ответы для клиентов,
// которые принимают gzip.
func GzipMiddleware(next http.Handler) http.Handler {
	return chimiddleware.Compress(5, compressible...)(decompressRequest(next))
}

func decompressRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Content-Encoding"), "gzip") {
			next.ServeHTTP(w, r)
			return
		}

		gr, err := gzip.NewReader(r.Body)
		if err != nil {
			writeFail(w, http.StatusBadRequest, "Invalid gzip request body")
			return
		}
		defer gr.Close()

		r.Body = io.NopCloser(gr)
		r.Header.Del("Content-Encoding")
		r.Header.Del("Content-Length")
		r.ContentLength = -1
		next.ServeHTTP(w, r)
	})
}
