package viewer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orrn/queueview/internal/core"
)

func TestHTTPFetcherURL(t *testing.T) {
	clock := NewFakeClock(epoch)

	cases := []struct {
		Name   string
		Page   string
		Expect string
	}{
		{"TrailingSlash", "http://spool:9090/printqueue/hanna/", "http://spool:9090/printqueue/hanna/json/"},
		{"NoTrailingSlash", "http://spool:9090/printqueue/hanna", "http://spool:9090/printqueue/hanna/json/"},
		{"Root", "https://spool", "https://spool/json/"},
	}

	for _, c := range cases {
		t.Run(c.Name, func(t *testing.T) {
			f, err := NewHTTPFetcher(c.Page, nil, clock)
			require.NoError(t, err)
			assert.Equal(t, c.Expect+"?nocache="+strconv.FormatInt(epoch.UnixMilli(), 10), f.URL())
		})
	}

	_, err := NewHTTPFetcher("ftp://spool/", nil, clock)
	assert.Error(t, err)
	_, err = NewHTTPFetcher("://", nil, clock)
	assert.Error(t, err)
}

func TestHTTPFetcherFetch(t *testing.T) {
	clock := NewFakeClock(epoch)
	var gotPath, gotNocache string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotNocache = r.URL.Query().Get("nocache")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jobs": [{"id": 3, "state": "pending"}], "status": [{"name": "hanna", "status": "idle"}]}`))
	}))
	defer srv.Close()

	f, err := NewHTTPFetcher(srv.URL+"/printqueue/hanna/", srv.Client(), clock)
	require.NoError(t, err)

	s, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/printqueue/hanna/json/", gotPath)
	assert.Equal(t, strconv.FormatInt(epoch.UnixMilli(), 10), gotNocache)
	require.Len(t, s.Jobs, 1)
	assert.Equal(t, core.JobID(3), s.Jobs[0].ID)
	assert.True(t, s.HasStatus)
}

func TestHTTPFetcherLegacyShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id": 1, "state": "held"}, {"id": 2, "state": "pending"}]`))
	}))
	defer srv.Close()

	f, err := NewHTTPFetcher(srv.URL, srv.Client(), nil)
	require.NoError(t, err)

	s, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.True(t, s.Legacy)
	assert.False(t, s.HasStatus)
	assert.Len(t, s.Jobs, 2)
}

func TestHTTPFetcherErrors(t *testing.T) {
	cases := []struct {
		Name      string
		Status    int
		Body      string
		Malformed bool
	}{
		{"ServerError", http.StatusInternalServerError, `{"error": "boom"}`, false},
		{"NotFound", http.StatusNotFound, ``, false},
		{"NotJSON", http.StatusOK, `<html></html>`, true},
		{"JobsMissing", http.StatusOK, `{"status": []}`, true},
		{"JobsNotArray", http.StatusOK, `{"jobs": {}}`, true},
	}

	for _, c := range cases {
		t.Run(c.Name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(c.Status)
				w.Write([]byte(c.Body))
			}))
			defer srv.Close()

			f, err := NewHTTPFetcher(srv.URL, srv.Client(), nil)
			require.NoError(t, err)

			_, err = f.Fetch(context.Background())
			require.Error(t, err)
			assert.Equal(t, c.Malformed, errors.Is(err, core.ErrMalformedSnapshot))
		})
	}
}

func TestStoreFetcher(t *testing.T) {
	store := &memStore{
		jobs: []*core.SpoolJob{
			{ID: 1, Dest: "hanna-duplex", State: core.JobStatePending, Title: "a.pdf", User: "alice"},
			{ID: 2, Dest: "dali", State: core.JobStatePending},
		},
		printers: []*core.Printer{{Name: "hanna", State: core.PrinterStateIdle}},
	}
	bar := NewLoadingBar()
	var seen []bool
	bar.OnChange(func(v bool) { seen = append(seen, v) })

	f := &StoreFetcher{Store: store, Queue: "hanna", Options: core.PublishOptions{CompletedCount: 10}, Loading: bar}
	s, err := f.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, s.Jobs, 1)
	assert.Equal(t, "hanna-duplex", s.Jobs[0].Finisher)
	assert.Equal(t, []core.PrinterStatus{{Name: "hanna", Status: "idle"}}, s.Status)
	assert.Equal(t, []bool{true, false}, seen)
}
