package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pkg/errors"

	"github.com/itzana/itzanago/config"
	"github.com/itzana/itzanago/models"
	"github.com/itzana/itzanago/pkg/app"
)

type staticEngine struct{ eng *app.Engine }

func (s staticEngine) Engine() *app.Engine { return s.eng }

type fakeAsker struct {
	got  string
	resp *models.MarkdownResponse
	err  error
}

func (f *fakeAsker) Ask(_ context.Context, q string) (*models.MarkdownResponse, error) {
	f.got = q
	return f.resp, f.err
}

type fakeReloader struct {
	res *models.ReloadResult
	err error
}

func (f *fakeReloader) Reload(context.Context) (*models.ReloadResult, error) {
	return f.res, f.err
}

func newTestServer(t *testing.T, asker app.Asker, reloader app.Reloader, traceback bool) *Server {
	t.Helper()
	cfg := *config.DefaultConfigWithRoot(t.TempDir())
	cfg.ErrorTraceback = traceback
	return New(staticEngine{app.NewEngine(cfg, asker, reloader)})
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestAskOK(t *testing.T) {
	asker := &fakeAsker{resp: &models.MarkdownResponse{Markdown: "# Ingresos\n"}}
	s := newTestServer(t, asker, nil, true)

	rec := do(t, s, http.MethodPost, "/ask", `{"question": "¿ingresos de enero?"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var resp models.MarkdownResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Markdown != "# Ingresos\n" || asker.got != "¿ingresos de enero?" {
		t.Fatalf("unexpected response %+v (question %q)", resp, asker.got)
	}
}

func TestAskBadRequest(t *testing.T) {
	s := newTestServer(t, &fakeAsker{}, nil, true)
	for _, body := range []string{`not json`, `{"question": "   "}`, `{}`} {
		rec := do(t, s, http.MethodPost, "/ask", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%q: expected 400, got %d", body, rec.Code)
		}
	}
}

func TestAskErrorTraceback(t *testing.T) {
	asker := &fakeAsker{err: errors.Wrap(errors.New("model unavailable"), "analytical agent")}

	rec := do(t, newTestServer(t, asker, nil, true), http.MethodPost, "/ask", `{"question": "q"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var body models.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error != "analytical agent: model unavailable" {
		t.Fatalf("unexpected error %q", body.Error)
	}
	if !strings.Contains(body.Traceback, "server_test.go") {
		t.Fatalf("traceback lacks stack frames: %q", body.Traceback)
	}

	rec = do(t, newTestServer(t, asker, nil, false), http.MethodPost, "/ask", `{"question": "q"}`)
	body = models.ErrorResponse{}
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Traceback != "" {
		t.Fatalf("traceback exposed while disabled")
	}
}

func TestReload(t *testing.T) {
	s := newTestServer(t, nil, &fakeReloader{res: &models.ReloadResult{ReservationsLoaded: 3, AccountsLoaded: 2}}, true)
	rec := do(t, s, http.MethodPost, "/reload", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"reservations_loaded":3,"accounts_loaded":2}` {
		t.Fatalf("unexpected body %s", got)
	}

	s = newTestServer(t, nil, &fakeReloader{err: errors.New("open workbook: no such file")}, true)
	if rec := do(t, s, http.MethodPost, "/reload", ""); rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestHealthAndMethods(t *testing.T) {
	s := newTestServer(t, &fakeAsker{}, nil, true)
	rec := do(t, s, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected health response %d %s", rec.Code, rec.Body.String())
	}
	if rec := do(t, s, http.MethodGet, "/ask", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for GET /ask, got %d", rec.Code)
	}
}
