package devserver

import (
	"bytes"
	"fmt"
	"hash/crc64"
	"net/http"
)

var crcTable = crc64.MakeTable(crc64.ECMA)

// bufferedWriter holds back the response so its checksum can be sent as
// the ETag before the body.
type bufferedWriter struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (w *bufferedWriter) WriteHeader(status int) {
	w.status = status
}

func (w *bufferedWriter) Write(b []byte) (int, error) {
	return w.body.Write(b)
}

// revalidate tags successful responses with a strong ETag computed from
// the body and answers a matching If-None-Match with 304 Not Modified.
// The catalog can change at any time, so the tag is recomputed on every
// request.
func revalidate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bw := &bufferedWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(bw, r)

		if bw.status != http.StatusOK {
			w.WriteHeader(bw.status)
			w.Write(bw.body.Bytes())
			return
		}

		tag := fmt.Sprintf(`"%x"`, crc64.Checksum(bw.body.Bytes(), crcTable))
		w.Header().Set("ETag", tag)

		if r.Header.Get("If-None-Match") == tag {
			w.WriteHeader(http.StatusNotModified)
			return
		}

		w.WriteHeader(http.StatusOK)
		w.Write(bw.body.Bytes())
	})
}
