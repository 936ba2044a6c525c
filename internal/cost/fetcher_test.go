package cost

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/National-Cheng-Chi-University-DCT-Dep/personal-publicdata/internal/resilience"
)

func testPolicy() resilience.Policy {
	return resilience.Policy{Attempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}
}

func TestRateFetcher_RebasesOntoEUR(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"base":"TWD","rates":{"EUR":0.03,"SEK":0.33,"USD":0.032}}`))
	}))
	defer srv.Close()

	rates, err := NewRateFetcher(srv.URL, srv.Client(), testPolicy()).Fetch(context.Background())
	require.NoError(t, err)

	assert.InDelta(t, 1.0, rates["EUR"], 1e-9)
	assert.InDelta(t, 0.03, rates["TWD"], 1e-9)
	assert.InDelta(t, 0.03/0.33, rates["SEK"], 1e-9)
}

func TestRateFetcher_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"base":"EUR","rates":{"SEK":11.5}}`))
	}))
	defer srv.Close()

	rates, err := NewRateFetcher(srv.URL, srv.Client(), testPolicy()).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.InDelta(t, 1/11.5, rates["SEK"], 1e-9)
}

func TestRateFetcher_ClientErrorIsFinal(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := NewRateFetcher(srv.URL, srv.Client(), testPolicy()).Fetch(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRatesPayload_MissingEUR(t *testing.T) {
	_, err := ratesPayload{Base: "USD", Rates: map[string]float64{"SEK": 10}}.toRates()
	assert.Error(t, err)

	_, err = ratesPayload{}.toRates()
	assert.Error(t, err)
}
