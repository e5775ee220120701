// Package logger provides an HTTP middleware that writes one structured
// zerolog event per request.
//
// Each event carries the request start time, HTTP status, latency, client
// IP, method and path. Responses with a 5xx status are logged at error
// level, 4xx at warn and everything else at info.
//
// Usage:
//
//	mux := http.NewServeMux()
//	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
//		w.Write([]byte("Hello, world!"))
//	})
//
//	l := logger.New(
//	    logger.WithOutput(os.Stdout),
//	    logger.WithMessage("request"),
//	)
//
//	http.ListenAndServe(":8080", l.Handler(mux))
package logger

import (
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
)

const defaultMessage = "request"

// responseWriter wraps http.ResponseWriter to capture the response status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Logger is a middleware that logs every request it serves.
type Logger struct {
	logger  zerolog.Logger
	message string
}

type config func(*Logger)

// WithOutput writes JSON events to output. (default os.Stdout)
func WithOutput(output io.Writer) config {
	return config(func(l *Logger) {
		l.logger = zerolog.New(output).With().Timestamp().Logger()
	})
}

// WithLogger uses an existing zerolog logger, keeping its context fields.
func WithLogger(logger zerolog.Logger) config {
	return config(func(l *Logger) {
		l.logger = logger
	})
}

// WithMessage sets the message of every event. (default "request")
func WithMessage(msg string) config {
	return config(func(l *Logger) {
		l.message = msg
	})
}

// Handler wraps an http.Handler and logs each request after it is served.
func (l *Logger) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{w, http.StatusOK}
		next.ServeHTTP(rw, r)

		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}

		l.event(rw.statusCode).
			Time("start", start).
			Int("status", rw.statusCode).
			Dur("latency", time.Since(start)).
			Str("ip", ip).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg(l.message)
	})
}

func (l *Logger) event(status int) *zerolog.Event {
	switch {
	case status >= 500:
		return l.logger.Error()
	case status >= 400:
		return l.logger.Warn()
	default:
		return l.logger.Info()
	}
}

// New creates a new Logger middleware with optional configuration.
func New(cfgs ...config) *Logger {
	lgr := &Logger{
		logger:  zerolog.New(os.Stdout).With().Timestamp().Logger(),
		message: defaultMessage,
	}

	for _, cfg := range cfgs {
		cfg(lgr)
	}

	return lgr
}
