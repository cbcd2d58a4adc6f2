package intake

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newWebhookServer(t *testing.T, ord *fakeOrders) http.Handler {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	logger := slog.New(slog.DiscardHandler)
	h := NewHandler(testResponder(shirtAndSoap(), ord), NewDeduper(rdb, time.Minute), logger)
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}

func postMessage(t *testing.T, h http.Handler, from, body, sid string) *httptest.ResponseRecorder {
	t.Helper()
	form := url.Values{}
	form.Set("From", from)
	form.Set("Body", body)
	form.Set("MessageSid", sid)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/orders", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestWebhookRepliesToOrder(t *testing.T) {
	ord := &fakeOrders{}
	h := newWebhookServer(t, ord)

	rec := postMessage(t, h, "+255700000001", "order soap 2", "SM1")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	require.Contains(t, rec.Body.String(), "Order #1 received")
	require.Len(t, ord.created, 1)
}

func TestWebhookSuppressesRedelivery(t *testing.T) {
	ord := &fakeOrders{}
	h := newWebhookServer(t, ord)

	first := postMessage(t, h, "+255700000001", "order soap 2", "SM1")
	require.Contains(t, first.Body.String(), "received")

	second := postMessage(t, h, "+255700000001", "order soap 2", "SM1")
	require.Equal(t, http.StatusOK, second.Code)
	require.Empty(t, second.Body.String())
	require.Len(t, ord.created, 1, "redelivery must not create a second order")
}

func TestWebhookAnswers200OnBlankMessage(t *testing.T) {
	h := newWebhookServer(t, &fakeOrders{})

	rec := postMessage(t, h, "+255700000001", "   ", "SM2")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, rec.Body.String())
}

func TestWebhookAnswersUnknownText(t *testing.T) {
	h := newWebhookServer(t, &fakeOrders{})

	rec := postMessage(t, h, "+255700000001", "what do you sell", "SM3")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "help")
}
