package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/pharma-ledger/internal/shared"
	_ "github.com/odyssey-erp/pharma-ledger/testing"
)

func decodeProblem(t *testing.T, rr *httptest.ResponseRecorder) ProblemDetail {
	t.Helper()
	var p ProblemDetail
	if err := json.Unmarshal(rr.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode problem: %v", err)
	}
	return p
}

func TestStatusOf(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("journal 4: %w", shared.ErrNotFound), http.StatusNotFound},
		{&shared.PeriodClosedError{Period: "2024-03"}, http.StatusUnprocessableEntity},
		{&shared.AlreadyReversedError{EntryNo: 3}, http.StatusConflict},
		{&shared.DraftEntriesPendingError{Period: "2024-03", EntryNos: []int64{7}}, http.StatusConflict},
		{shared.ErrLockHeld, http.StatusConflict},
		{&shared.AccountHasBalanceError{Code: "4100"}, http.StatusConflict},
		{shared.ErrForbidden, http.StatusForbidden},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got, _ := StatusOf(tc.err); got != tc.status {
			t.Fatalf("StatusOf(%v) = %d, want %d", tc.err, got, tc.status)
		}
	}
}

func TestRespondErrorCarriesDetails(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondError(rr, &shared.ValidationError{Errors: []string{"line 1: account is required"}})
	p := decodeProblem(t, rr)
	if rr.Code != http.StatusUnprocessableEntity || len(p.Errors) != 1 {
		t.Fatalf("unexpected validation problem: %d %+v", rr.Code, p)
	}

	rr = httptest.NewRecorder()
	RespondError(rr, &shared.DraftEntriesPendingError{Period: "2024-03", EntryNos: []int64{4, 9}})
	p = decodeProblem(t, rr)
	if len(p.EntryNos) != 2 || p.EntryNos[1] != 9 {
		t.Fatalf("expected draft entry numbers, got %+v", p)
	}
}

func TestRespondErrorHidesInternalDetail(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondError(rr, errors.New("pq: password authentication failed"))
	p := decodeProblem(t, rr)
	if rr.Code != http.StatusInternalServerError || p.Detail != "" {
		t.Fatalf("internal error leaked: %+v", p)
	}
	if rr.Header().Get("Content-Type") != "application/problem+json" {
		t.Fatalf("unexpected content type %q", rr.Header().Get("Content-Type"))
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name" validate:"required"`
	}

	var got payload
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x","extra":1}`))
	if err := DecodeJSON(req, &got); !errors.Is(err, shared.ErrValidation) {
		t.Fatalf("expected unknown field to fail validation, got %v", err)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
	err := DecodeJSON(req, &got)
	var verr *shared.ValidationError
	if !errors.As(err, &verr) || len(verr.Errors) != 1 {
		t.Fatalf("expected required field error, got %v", err)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"ok"}`))
	if err := DecodeJSON(req, &got); err != nil || got.Name != "ok" {
		t.Fatalf("unexpected decode result %+v %v", got, err)
	}
}

func TestQueryHelpers(t *testing.T) {
	r := chi.NewRouter()
	var (
		id      int64
		idErr   error
		dateErr error
	)
	r.Get("/items/{id}", func(w http.ResponseWriter, req *http.Request) {
		id, idErr = PathID(req, "id")
		_, dateErr = RequireDate(req, "as_of")
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/12?as_of=2024-02-29", nil))
	if idErr != nil || id != 12 || dateErr != nil {
		t.Fatalf("unexpected parse: id=%d idErr=%v dateErr=%v", id, idErr, dateErr)
	}

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/-1", nil))
	if !errors.Is(idErr, shared.ErrValidation) || !errors.Is(dateErr, shared.ErrValidation) {
		t.Fatalf("expected validation errors, got %v and %v", idErr, dateErr)
	}
}
