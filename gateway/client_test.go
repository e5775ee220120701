package gateway_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/bluescreen10/storefront"
	"github.com/bluescreen10/storefront/cart"
	"github.com/bluescreen10/storefront/devserver"
	"github.com/bluescreen10/storefront/gateway"
	"github.com/bluescreen10/storefront/memstore"
	"github.com/bluescreen10/storefront/menu"
	"github.com/bluescreen10/storefront/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
)

var creds = gateway.Credentials{Email: "a@b.com", Password: "secret"}

func newBackend(t *testing.T) (*devserver.Server, *httptest.Server) {
	t.Helper()

	srv := devserver.New(
		devserver.WithUser(creds.Email, creds.Password),
		devserver.WithCatalog(menu.NewCatalog(
			menu.Item{Name: "Margherita", Price: decimal.RequireFromString("9.5"), Type: "Pizza"},
			menu.Item{Name: "Cola", Price: decimal.RequireFromString("1.99"), Type: "Drink"},
		)),
	)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func newClient(t *testing.T, url string) *gateway.Client {
	t.Helper()

	gw, err := gateway.New(url)
	if err != nil {
		t.Fatal(err)
	}
	return gw
}

func testCart() cart.State {
	c := cart.NewStore(storefront.NewStorage(memstore.New()))
	c.Add("Margherita", decimal.RequireFromString("9.5"), "Pizza")
	c.Add("Margherita", decimal.RequireFromString("9.5"), "Pizza")
	return c.Snapshot()
}

func TestCreateToken(t *testing.T) {
	_, ts := newBackend(t)
	gw := newClient(t, ts.URL)

	tok, res := gw.CreateToken(context.Background(), creds)
	if !res.OK() {
		t.Fatalf("expected 'ok' got '%v'", res.Err())
	}

	if tok.Email != creds.Email || tok.ID == "" {
		t.Fatalf("invalid token '%v'", tok)
	}
}

func TestCreateTokenBadCredentials(t *testing.T) {
	_, ts := newBackend(t)
	gw := newClient(t, ts.URL)

	_, res := gw.CreateToken(context.Background(), gateway.Credentials{Email: creds.Email, Password: "nope"})
	if res.Outcome != gateway.OutcomeRejected || res.Status != http.StatusUnauthorized {
		t.Fatalf("expected 'rejected' 401 got '%s' %d", res.Outcome, res.Status)
	}

	if !errors.Is(res.Err(), gateway.ErrRejected) {
		t.Fatalf("expected '%v' got '%v'", gateway.ErrRejected, res.Err())
	}
}

func TestDeleteToken(t *testing.T) {
	srv, ts := newBackend(t)
	gw := newClient(t, ts.URL)

	tok, _ := gw.CreateToken(context.Background(), creds)

	if res := gw.DeleteToken(context.Background(), tok.Email, tok.ID); !res.OK() {
		t.Fatalf("expected 'ok' got '%v'", res.Err())
	}

	if n := srv.TokenCount(); n != 0 {
		t.Fatalf("expected '0' tokens got '%d'", n)
	}
}

func TestDeleteMissingTokenIsNotFound(t *testing.T) {
	_, ts := newBackend(t)
	gw := newClient(t, ts.URL)

	res := gw.DeleteToken(context.Background(), "a@b.com", "X")
	if res.Outcome != gateway.OutcomeNotFound {
		t.Fatalf("expected 'not_found' got '%s'", res.Outcome)
	}

	if res.Status != http.StatusInternalServerError {
		t.Fatalf("expected '500' got '%d'", res.Status)
	}

	if !strings.Contains(res.Message, "ENOENT") {
		t.Fatalf("expected diagnostic message got '%s'", res.Message)
	}

	if !errors.Is(res.Err(), gateway.ErrNotFound) {
		t.Fatalf("expected '%v' got '%v'", gateway.ErrNotFound, res.Err())
	}
}

func TestSubmitOrder(t *testing.T) {
	srv, ts := newBackend(t)
	gw := newClient(t, ts.URL)

	tok, _ := gw.CreateToken(context.Background(), creds)

	if res := gw.SubmitOrder(context.Background(), tok.Email, testCart(), tok.ID); !res.OK() {
		t.Fatalf("expected 'ok' got '%v'", res.Err())
	}

	orders := srv.Orders()
	if len(orders) != 1 {
		t.Fatalf("expected '1' order got '%d'", len(orders))
	}

	if !orders[0].Cart.Equal(testCart()) {
		t.Fatalf("expected '%v' got '%v'", testCart().Entries(), orders[0].Cart.Entries())
	}

	res := gw.SubmitOrder(context.Background(), tok.Email, testCart(), "stale")
	if res.Outcome != gateway.OutcomeRejected || res.Status != http.StatusForbidden {
		t.Fatalf("expected 'rejected' 403 got '%s' %d", res.Outcome, res.Status)
	}
}

func TestFetchMenu(t *testing.T) {
	_, ts := newBackend(t)
	gw := newClient(t, ts.URL)

	cat, res := gw.FetchMenu(context.Background())
	if !res.OK() {
		t.Fatalf("expected 'ok' got '%v'", res.Err())
	}

	items := cat.Items()
	if len(items) != 2 || items[0].Name != "Margherita" || items[1].Name != "Cola" {
		t.Fatalf("expected '[Margherita Cola]' got '%v'", items)
	}

	var fetcher menu.Fetcher = gw
	if _, err := fetcher.FetchCatalog(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestUnreachableServerIsTransport(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	gw := newClient(t, url)

	res := gw.DeleteToken(context.Background(), "a@b.com", "X")
	if res.Outcome != gateway.OutcomeTransport || res.Cause == nil {
		t.Fatalf("expected 'transport' with cause got '%s' '%v'", res.Outcome, res.Cause)
	}

	if !errors.Is(res.Err(), gateway.ErrTransport) {
		t.Fatalf("expected '%v' got '%v'", gateway.ErrTransport, res.Err())
	}
}

func TestClassification(t *testing.T) {
	tests := []struct {
		status  int
		body    string
		outcome gateway.Outcome
	}{
		{200, `{}`, gateway.OutcomeOK},
		{404, `{"Error":"Not Found"}`, gateway.OutcomeNotFound},
		{400, `{"Error":"Missing required fields"}`, gateway.OutcomeRejected},
		{403, `forbidden`, gateway.OutcomeRejected},
		{500, `{"error":"Token does not exist"}`, gateway.OutcomeNotFound},
		{500, `{"message":"database is down"}`, gateway.OutcomeTransport},
		{502, `bad gateway`, gateway.OutcomeTransport},
	}

	for _, tt := range tests {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
			w.Write([]byte(tt.body))
		}))

		gw := newClient(t, ts.URL)
		res := gw.DeleteToken(context.Background(), "a@b.com", "X")
		ts.Close()

		if res.Outcome != tt.outcome {
			t.Fatalf("%d %s: expected '%s' got '%s'", tt.status, tt.body, tt.outcome, res.Outcome)
		}
	}
}

func TestMalformedResponseIsTransport(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Margherita":`))
	}))
	defer ts.Close()

	_, res := newClient(t, ts.URL).FetchMenu(context.Background())
	if res.Outcome != gateway.OutcomeTransport {
		t.Fatalf("expected 'transport' got '%s'", res.Outcome)
	}
}

func TestTokenHeader(t *testing.T) {
	var got string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("X-Access-Token")
		w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	gw, err := gateway.New(ts.URL, gateway.WithTokenHeader("X-Access-Token"), gateway.WithTracing(true))
	if err != nil {
		t.Fatal(err)
	}

	if res := gw.DeleteToken(context.Background(), "a@b.com", "X"); !res.OK() {
		t.Fatal(res.Err())
	}

	if got != "X" {
		t.Fatalf("expected 'X' got '%s'", got)
	}
}

func TestBreakerFailsFast(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	gw, err := gateway.New(url, gateway.WithBreaker(gobreaker.Settings{
		Name:    "test",
		Timeout: time.Minute,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 2
		},
	}))
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		gw.DeleteToken(context.Background(), "a@b.com", "X")
	}

	res := gw.DeleteToken(context.Background(), "a@b.com", "X")
	if res.Outcome != gateway.OutcomeTransport || !errors.Is(res.Cause, gobreaker.ErrOpenState) {
		t.Fatalf("expected open breaker got '%s' '%v'", res.Outcome, res.Cause)
	}
}

func TestMetricsRecordOutcomes(t *testing.T) {
	_, ts := newBackend(t)

	m := metrics.New(prometheus.NewRegistry())
	gw, err := gateway.New(ts.URL, gateway.WithMetrics(m))
	if err != nil {
		t.Fatal(err)
	}

	gw.DeleteToken(context.Background(), "a@b.com", "X")
	gw.FetchMenu(context.Background())

	if v := testutil.ToFloat64(m.GatewayCalls.WithLabelValues(gateway.OpDeleteToken, "not_found")); v != 1 {
		t.Fatalf("expected '1' got '%v'", v)
	}

	if v := testutil.ToFloat64(m.GatewayCalls.WithLabelValues(gateway.OpFetchMenu, "ok")); v != 1 {
		t.Fatalf("expected '1' got '%v'", v)
	}
}

func TestNewRejectsBadURL(t *testing.T) {
	if _, err := gateway.New("localhost"); err == nil {
		t.Fatal("expected an error for a url without scheme")
	}
}

func TestLongMessageIsCutOnRuneBoundary(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"Error":"` + strings.Repeat("€", 400) + `"}`))
	}))
	defer ts.Close()

	res := newClient(t, ts.URL).DeleteToken(context.Background(), "a@b.com", "X")
	if res.Outcome != gateway.OutcomeRejected {
		t.Fatalf("expected 'rejected' got '%s'", res.Outcome)
	}

	if !utf8.ValidString(res.Message) {
		t.Fatalf("expected valid utf-8 got '%q'", res.Message)
	}

	if len(res.Message) != 510 {
		t.Fatalf("expected '510' bytes got '%d'", len(res.Message))
	}
}
