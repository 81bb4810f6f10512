package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/f17antonio/tickets-search/internal/model"
	"github.com/f17antonio/tickets-search/internal/queue"
	"github.com/f17antonio/tickets-search/internal/repository"
	"github.com/f17antonio/tickets-search/internal/search"
)

// stubPublisher records events instead of talking to a broker.
type stubPublisher struct {
	events []queue.TicketsIngestedEvent
}

func (s *stubPublisher) PublishTicketsIngested(_ context.Context, e queue.TicketsIngestedEvent) error {
	s.events = append(s.events, e)
	return nil
}

type testEnv struct {
	echo    *echo.Echo
	tickets *TicketHandler
	search  *SearchHandler
	pub     *stubPublisher
	mini    *miniredis.Miniredis
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := repository.NewTicketRepo(rdb)
	engine := search.NewEngine(repo, search.Options{}, logger)
	pub := &stubPublisher{}

	return &testEnv{
		echo:    echo.New(),
		tickets: NewTicketHandler(repo, pub, logger),
		search:  NewSearchHandler(engine, logger),
		pub:     pub,
		mini:    mr,
	}
}

func (env *testEnv) post(t *testing.T, path, body string, h echo.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := env.echo.NewContext(req, rec)
	if err := h(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	return rec
}

func TestBatchInsertAndSearch(t *testing.T) {
	env := newTestEnv(t)

	rec := env.post(t, "/batch_insert", `{"tickets":[
		{"id":"A1","departure_code":"NYC","arrival_code":"LAX",
		 "departure_time":1700000000,"arrival_time":1700020000,"price":200}
	]}`, env.tickets.BatchInsert)

	if rec.Code != http.StatusOK {
		t.Fatalf("batch insert status %d, body %s", rec.Code, rec.Body.String())
	}
	var ack struct {
		Status   string `json:"status"`
		Inserted int    `json:"inserted"`
		Failed   int    `json:"failed"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &ack); err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	if ack.Status != "success" || ack.Inserted != 1 || ack.Failed != 0 {
		t.Errorf("unexpected ack: %+v", ack)
	}

	rec = env.post(t, "/search", `{"departure_code":"NYC","arrival_code":"LAX",
		"departure_date":"2023-11-14","limit":5}`, env.search.Search)

	if rec.Code != http.StatusOK {
		t.Fatalf("search status %d, body %s", rec.Code, rec.Body.String())
	}
	var result model.SearchResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	want := []model.Solution{{TicketIDs: []string{"A1"}, Price: 200}}
	if !reflect.DeepEqual(result.Solutions, want) {
		t.Errorf("got %+v, want %+v", result.Solutions, want)
	}
}

func TestBatchInsertPublishesEvent(t *testing.T) {
	env := newTestEnv(t)

	env.post(t, "/batch_insert", `{"tickets":[
		{"id":"A1","departure_code":"NYC","arrival_code":"ORD",
		 "departure_time":1700000000,"arrival_time":1700007200,"price":100},
		{"id":"A2","departure_code":"ORD","arrival_code":"LAX",
		 "departure_time":1700019200,"arrival_time":1700025000,"price":150}
	]}`, env.tickets.BatchInsert)

	if len(env.pub.events) != 1 {
		t.Fatalf("expected one ingestion event, got %d", len(env.pub.events))
	}
	event := env.pub.events[0]
	if event.Inserted != 2 || event.Failed != 0 {
		t.Errorf("unexpected event counts: %+v", event)
	}
	if event.BatchID == "" || event.ReceivedAt == "" {
		t.Errorf("event missing batch id or timestamp: %+v", event)
	}
}

func TestBatchInsertInvalidBody(t *testing.T) {
	env := newTestEnv(t)

	rec := env.post(t, "/batch_insert", `{"tickets": "nope"}`, env.tickets.BatchInsert)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status %d, want 400", rec.Code)
	}
	if len(env.pub.events) != 0 {
		t.Errorf("no event should be published for a rejected body")
	}
}

func TestBatchInsertContinuesPastFailingRecord(t *testing.T) {
	env := newTestEnv(t)

	// Pre-seed a key the record hash write will collide with: HSET against
	// a plain string key fails for that record only.
	if err := env.mini.Set("ticket_BAD", "occupied"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	rec := env.post(t, "/batch_insert", `{"tickets":[
		{"id":"BAD","departure_code":"NYC","arrival_code":"LAX",
		 "departure_time":1700000000,"arrival_time":1700020000,"price":200},
		{"id":"OK1","departure_code":"NYC","arrival_code":"LAX",
		 "departure_time":1700001000,"arrival_time":1700021000,"price":210}
	]}`, env.tickets.BatchInsert)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rec.Code)
	}
	var ack struct {
		Status   string `json:"status"`
		Inserted int    `json:"inserted"`
		Failed   int    `json:"failed"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &ack); err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	if ack.Status != "success" || ack.Inserted != 1 || ack.Failed != 1 {
		t.Errorf("unexpected ack: %+v", ack)
	}
}

func TestSearchInvalidDateHTTP(t *testing.T) {
	env := newTestEnv(t)

	rec := env.post(t, "/search", `{"departure_code":"NYC","arrival_code":"LAX",
		"departure_date":"13-99-9999","limit":5}`, env.search.Search)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", rec.Code)
	}
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Error != "invalid_date" {
		t.Errorf("error %q, want invalid_date", body.Error)
	}
}

func TestSearchInvalidBody(t *testing.T) {
	env := newTestEnv(t)

	rec := env.post(t, "/search", `{"limit": "five"}`, env.search.Search)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status %d, want 400", rec.Code)
	}
}

func TestSearchStoreUnavailable(t *testing.T) {
	env := newTestEnv(t)
	env.mini.Close()

	rec := env.post(t, "/search", `{"departure_code":"NYC","arrival_code":"LAX",
		"departure_date":"2023-11-14","limit":5}`, env.search.Search)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status %d, want 503", rec.Code)
	}
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Error != "store_unavailable" {
		t.Errorf("error %q, want store_unavailable", body.Error)
	}
}

func TestSearchLimitZeroHTTP(t *testing.T) {
	env := newTestEnv(t)

	env.post(t, "/batch_insert", `{"tickets":[
		{"id":"A1","departure_code":"NYC","arrival_code":"LAX",
		 "departure_time":1700000000,"arrival_time":1700020000,"price":200}
	]}`, env.tickets.BatchInsert)

	rec := env.post(t, "/search", `{"departure_code":"NYC","arrival_code":"LAX",
		"departure_date":"2023-11-14","limit":0}`, env.search.Search)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rec.Code)
	}
	var result model.SearchResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if len(result.Solutions) != 0 {
		t.Errorf("expected no solutions, got %+v", result.Solutions)
	}
}
