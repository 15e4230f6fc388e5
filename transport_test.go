package goinflux

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
)

func newTestTransport(t *testing.T, handler http.HandlerFunc, cfg *Config) (*HTTPTransport, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	cfg.URL = server.URL
	transport, err := NewHTTPTransport(cfg)
	assertNilF(t, err)
	return transport, server
}

func TestHTTPTransportWrite(t *testing.T) {
	var gotQuery, gotBody, gotRequestID, gotUser, gotPass, gotEncoding string
	transport, _ := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotRequestID = r.Header.Get("Request-Id")
		gotUser, gotPass, _ = r.BasicAuth()
		gotEncoding = r.Header.Get("Content-Encoding")
		gz, err := gzip.NewReader(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(gz)
		gotBody = string(data)
		w.WriteHeader(http.StatusNoContent)
	}, &Config{Username: "writer", Password: "secret", Gzip: true})

	err := transport.Write(context.Background(), &WriteRequest{
		Database:        "metrics",
		RetentionPolicy: "autogen",
		Precision:       Second,
		Body:            []byte("cpu usage=1 10\n"),
	})
	assertNilF(t, err)
	assertEqualE(t, gotBody, "cpu usage=1 10\n")
	assertEqualE(t, gotEncoding, "gzip")
	assertStringContainsE(t, gotQuery, "db=metrics")
	assertStringContainsE(t, gotQuery, "rp=autogen")
	assertStringContainsE(t, gotQuery, "precision=s")
	assertEqualE(t, gotUser, "writer")
	assertEqualE(t, gotPass, "secret")
	assertEqualE(t, len(gotRequestID), 36, "requests carry a uuid")
}

func TestHTTPTransportWriteStatusError(t *testing.T) {
	transport, _ := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":"database not found: \"nope\""}`)
	}, &Config{})

	err := transport.Write(context.Background(), &WriteRequest{Database: "nope", Body: []byte("m v=1\n")})
	assertErrCodeF(t, err, ErrCodeHTTPStatus)
	assertTrueE(t, IsServerFailure(err))
	assertStringContainsE(t, err.Error(), "HTTP 404")
	assertStringContainsE(t, err.Error(), "database not found")
	ie := err.(*InfluxError)
	assertEqualE(t, ie.Database, "nope")
	assertEqualE(t, len(ie.RequestID), 36)
}

func TestHTTPTransportQuery(t *testing.T) {
	var form map[string]string
	transport, _ := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		form = map[string]string{}
		for k := range r.PostForm {
			form[k] = r.PostForm.Get(k)
		}
		_, _ = io.WriteString(w, `{"results":[{"statement_id":0}]}`)
	}, &Config{})

	body, err := transport.Query(context.Background(), &QueryRequest{
		Command:   "SELECT * FROM cpu WHERE host = $host",
		Database:  "metrics",
		Epoch:     Millisecond,
		Chunked:   true,
		ChunkSize: 500,
		Params:    map[string]interface{}{"host": "a"},
	})
	assertNilF(t, err)
	defer body.Close()
	data, err := io.ReadAll(body)
	assertNilF(t, err)
	assertEqualE(t, string(data), `{"results":[{"statement_id":0}]}`)
	assertEqualE(t, form["q"], "SELECT * FROM cpu WHERE host = $host")
	assertEqualE(t, form["db"], "metrics")
	assertEqualE(t, form["epoch"], "ms")
	assertEqualE(t, form["chunked"], "true")
	assertEqualE(t, form["chunk_size"], "500")
	assertEqualE(t, form["params"], `{"host":"a"}`)
}

func TestHTTPTransportQueryGzipResponse(t *testing.T) {
	transport, _ := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept-Encoding") != "gzip" {
			w.WriteHeader(http.StatusNotAcceptable)
			return
		}
		w.Header().Set("Content-Encoding", "gzip")
		zw := gzip.NewWriter(w)
		_, _ = io.WriteString(zw, `{"results":[{"statement_id":0}]}`)
		_ = zw.Close()
	}, &Config{Gzip: true})

	body, err := transport.Query(context.Background(), &QueryRequest{Command: "SHOW DATABASES"})
	assertNilF(t, err)
	data, err := io.ReadAll(body)
	assertNilF(t, err)
	assertNilE(t, body.Close())
	assertEqualE(t, string(data), `{"results":[{"statement_id":0}]}`)
}

func TestHTTPTransportQueryStatusError(t *testing.T) {
	transport, _ := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, "authorization failed")
	}, &Config{})
	_, err := transport.Query(context.Background(), &QueryRequest{Command: "SHOW DATABASES"})
	assertErrCodeE(t, err, ErrCodeHTTPStatus)
	assertStringContainsE(t, err.Error(), "authorization failed")
}

func TestNewHTTPTransportRejectsBadURL(t *testing.T) {
	_, err := NewHTTPTransport(&Config{URL: "ftp://example.com"})
	assertErrCodeE(t, err, ErrCodeInvalidConfig)
	_, err = NewHTTPTransport(&Config{})
	assertErrCodeE(t, err, ErrCodeInvalidConfig)
}

func TestQuoteIdent(t *testing.T) {
	assertEqualE(t, QuoteIdent("cpu"), `"cpu"`)
	assertEqualE(t, QuoteIdent(`we"ird\name`), `"we\"ird\\name"`)
	assertTrueE(t, strings.HasPrefix(QuoteIdent(""), `"`))
}
