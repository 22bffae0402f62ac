// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/eduportal/internal/action"
	"github.com/olegiv/eduportal/internal/auth"
	"github.com/olegiv/eduportal/internal/backend"
	"github.com/olegiv/eduportal/internal/dal"
	"github.com/olegiv/eduportal/internal/i18n"
	"github.com/olegiv/eduportal/internal/identity"
	"github.com/olegiv/eduportal/internal/middleware"
	"github.com/olegiv/eduportal/internal/model"
	"github.com/olegiv/eduportal/internal/nav"
	"github.com/olegiv/eduportal/internal/news"
	"github.com/olegiv/eduportal/internal/render"
	"github.com/olegiv/eduportal/internal/scheduler"
	"github.com/olegiv/eduportal/internal/session"
	"github.com/olegiv/eduportal/internal/store"
	"github.com/olegiv/eduportal/internal/testutil"
	"github.com/olegiv/eduportal/web"
)

const testPassword = "Passw0rd!"

func TestMain(m *testing.M) {
	if err := i18n.Init(nil, "ko"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type captureMailer struct {
	mu   sync.Mutex
	sent []backend.Mail
}

func (m *captureMailer) Send(_ context.Context, mail backend.Mail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, mail)
	return nil
}

// last returns the request URI of the newest mailed link.
func (m *captureMailer) last(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent, "no mail sent")
	u, err := url.Parse(m.sent[len(m.sent)-1].Link)
	require.NoError(t, err)
	return u.RequestURI()
}

type harnessOptions struct {
	autoConfirm bool
	lockout     *middleware.LoginProtection
	jobs        *scheduler.Registry
}

type harness struct {
	srv     *httptest.Server
	client  *http.Client
	store   *store.Store
	local   *backend.Local
	mailer  *captureMailer
	actions *action.Service
}

func newHarness(t *testing.T, opts harnessOptions) *harness {
	t.Helper()
	st := testutil.TestStore(t)
	logger := testutil.TestLoggerSilent()
	sm := scs.New()
	mailer := &captureMailer{}

	local := backend.NewLocal(backend.LocalConfig{
		Store:       st,
		Tokens:      backend.NewTokenService("handler-test-secret", "eduportal", time.Hour),
		Hasher:      auth.NewHasher(auth.Params{Time: 1, Memory: 1024, Threads: 1, KeyLen: 32, SaltLen: 16}),
		Mailer:      mailer,
		SiteURL:     "http://edu.test",
		AutoConfirm: opts.autoConfirm,
	})
	client := backend.NewClient(local, session.NewTokens(sm), logger)
	guard := dal.NewGuard(client, action.NewProfiles(st, nil, 0), dal.DefaultPolicy(), logger)
	actions := action.New(action.Config{
		Auth:    client,
		Admin:   local,
		Store:   st,
		Guard:   guard,
		Hub:     identity.NewHub(logger),
		SiteURL: "http://edu.test",
		Logger:  logger,
	})

	renderer, err := render.New(render.Config{
		TemplatesFS:    web.Templates,
		SessionManager: sm,
		Nav:            nav.NewBuilder(nav.DefaultRoutes, dal.DefaultPolicy(), nil, 0, logger),
		Logger:         logger,
	})
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(sm.LoadAndSave)
	r.Use(middleware.Language(sm))
	r.Use(middleware.LoadUser(guard))
	Register(r, Deps{
		Actions:         actions,
		Guard:           guard,
		Renderer:        renderer,
		Sessions:        sm,
		Store:           st,
		News:            news.NewService(st, nil, 0),
		Jobs:            opts.jobs,
		LoginProtection: opts.lockout,
		Logger:          logger,
		SiteURL:         "http://edu.test",
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &harness{
		srv: srv,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		store:   st,
		local:   local,
		mailer:  mailer,
		actions: actions,
	}
}

func (h *harness) do(t *testing.T, req *http.Request) (*http.Response, string) {
	t.Helper()
	resp, err := h.client.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func (h *harness) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, h.srv.URL+path, nil)
	require.NoError(t, err)
	return h.do(t, req)
}

func (h *harness) post(t *testing.T, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, h.srv.URL+path, strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return h.do(t, req)
}

// createAccount makes a confirmed backend user with a profile.
func (h *harness) createAccount(t *testing.T, role string) model.Profile {
	t.Helper()
	email := strings.ToLower(gofakeit.Email())
	u, err := h.local.CreateConfirmedUser(context.Background(), email, testPassword, nil)
	require.NoError(t, err)
	return testutil.CreateProfile(t, h.store, model.Profile{ID: u.ID, Email: email, Role: role})
}

// signIn creates an account and signs the harness client in as it.
func (h *harness) signIn(t *testing.T, role string) model.Profile {
	t.Helper()
	p := h.createAccount(t, role)
	resp, _ := h.post(t, RouteLogin, url.Values{"email": {p.Email}, "password": {testPassword}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	return p
}

func location(resp *http.Response) string {
	return resp.Header.Get("Location")
}
