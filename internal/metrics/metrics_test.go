// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/eduportal/internal/identity"
)

func TestMiddleware_LabelsByRoutePattern(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/blog/{slug}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Post("/admin-dashboard/blog/{id}/delete", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusSeeOther)
	})

	for _, slug := range []string{"a", "b", "c"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/blog/"+slug, nil))
	}
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/admin-dashboard/blog/42/delete", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.InDelta(t, 3, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/blog/{slug}", "200")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.requests.WithLabelValues("POST", "/admin-dashboard/blog/{id}/delete", "303")), 0)
	assert.Equal(t, 2, testutil.CollectAndCount(m.duration), "one histogram per method/route")
	assert.InDelta(t, 0, testutil.ToFloat64(m.inFlight), 0)
}

func TestHandler_ExposesRegistry(t *testing.T) {
	m := New()
	m.identity.WithLabelValues("signed_in").Inc()

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.True(t, strings.Contains(body, `eduportal_identity_events_total{kind="signed_in"} 1`), body)
	assert.Contains(t, body, "go_goroutines")
}

func TestSubscribe_CountsIdentityEvents(t *testing.T) {
	m := New()
	hub := identity.NewHub(nil)
	m.Subscribe(hub)

	ctx := context.Background()
	hub.Publish(ctx, identity.Event{Kind: identity.SignedIn, UserID: "u1"})
	hub.Publish(ctx, identity.Event{Kind: identity.SignedIn, UserID: "u2"})
	hub.Publish(ctx, identity.Event{Kind: identity.SignedOut, UserID: "u1"})

	assert.InDelta(t, 2, testutil.ToFloat64(m.identity.WithLabelValues("signed_in")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.identity.WithLabelValues("signed_out")), 0)
	assert.Equal(t, []string{"metrics"}, hub.Subscribers())
}
