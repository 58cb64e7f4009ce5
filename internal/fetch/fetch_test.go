package fetch_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"xc-athletes/internal/fetch"
)

func TestFetch_UserAgentAndHTML(t *testing.T) {
	t.Setenv("XC_UA", "test-agent/1.0")
	var gotUA, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotQuery = r.URL.Query().Get("SchoolID")
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><p class="x">ok</p></body></html>`))
	}))
	defer srv.Close()

	cl, err := fetch.New(fetch.Options{BaseURL: srv.URL, Timeout: 2 * time.Second})
	require.NoError(t, err)
	doc, err := cl.GetHTML(context.Background(), "/page", url.Values{"SchoolID": {"408"}})
	require.NoError(t, err)
	require.Equal(t, "ok", doc.Find(".x").Text())
	require.Equal(t, "test-agent/1.0", gotUA)
	require.Equal(t, "408", gotQuery)
}

func TestFetch_RetryOnStatus(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	cl, err := fetch.New(fetch.Options{BaseURL: srv.URL, Retry: 1, Timeout: 2 * time.Second})
	require.NoError(t, err)
	var out struct{ OK bool }
	require.NoError(t, cl.GetJSON(context.Background(), "/", "", &out))
	require.True(t, out.OK)
	require.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestFetch_NotFoundIsError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	cl, _ := fetch.New(fetch.Options{BaseURL: srv.URL})
	_, err := cl.GetHTML(context.Background(), "/missing", nil)
	require.Error(t, err)
	var out map[string]any
	require.Error(t, cl.GetJSON(context.Background(), "/missing", "", &out))
}

func TestFetch_OversizedHTMLIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body>"))
		_, _ = w.Write(bytes.Repeat([]byte("x"), fetch.MaxHTMLBytes))
		_, _ = w.Write([]byte("</body></html>"))
	}))
	defer srv.Close()

	cl, err := fetch.New(fetch.Options{BaseURL: srv.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)
	doc, err := cl.GetHTML(context.Background(), "/big", nil)
	require.ErrorIs(t, err, fetch.ErrBodyTooLarge)
	require.Nil(t, doc)
}

func TestFetch_PostJSONWithToken(t *testing.T) {
	var gotToken string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get(fetch.TokenHeader)
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[{"AthleteID":7}]}`))
	}))
	defer srv.Close()

	cl, _ := fetch.New(fetch.Options{BaseURL: srv.URL})
	var out struct {
		Results []struct{ AthleteID int }
	}
	err := cl.PostJSON(context.Background(), "/api", "tok-123", map[string]any{"divId": "55"}, &out)
	require.NoError(t, err)
	require.Equal(t, "tok-123", gotToken)
	require.Equal(t, "55", gotBody["divId"])
	require.Len(t, out.Results, 1)
	require.Equal(t, 7, out.Results[0].AthleteID)
}

func TestFetch_MalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	cl, _ := fetch.New(fetch.Options{BaseURL: srv.URL})
	var out map[string]any
	require.Error(t, cl.GetJSON(context.Background(), "/", "", &out))
}

func TestFetch_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cl, err := fetch.New(fetch.Options{BaseURL: srv.URL, Timeout: 100 * time.Millisecond})
	require.NoError(t, err)
	_, err = cl.GetHTML(context.Background(), "/", nil)
	require.Error(t, err)
}
