package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"listencheck.org/internal/audit"
	"listencheck.org/internal/auth"
	"listencheck.org/internal/importer"
	"listencheck.org/internal/review"
)

type captureMailer struct {
	to   string
	code string
}

func (m *captureMailer) SendLoginCode(ctx context.Context, to, code string) error {
	m.to, m.code = to, code
	return nil
}

type stubResolver struct {
	jsonl string
}

func (s stubResolver) AudioURL(ctx context.Context, key string) (string, error) {
	return "https://media.test/" + key, nil
}

func (s stubResolver) TextURL(ctx context.Context, key string) (string, error) {
	return "https://media.test/" + key, nil
}

func (s stubResolver) TextContent(ctx context.Context, key string) (string, bool, error) {
	if s.jsonl == "" {
		return "", false, nil
	}
	return s.jsonl, true, nil
}

type testEnv struct {
	api       *API
	auth      *auth.Service
	authStore *auth.InMemory
	review    *review.InMemory
	activity  *audit.InMemory
	mail      *captureMailer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	authStore := auth.NewInMemory()
	reviewStore := review.NewInMemory()
	activity := audit.NewInMemory()
	mail := &captureMailer{}
	resolver := stubResolver{jsonl: `{"filename":"fresh.wav","transcription":"fresh import"}`}

	authSvc := auth.NewService(authStore)
	api := New(Options{
		Auth:     authSvc,
		Review:   review.NewService(reviewStore),
		Activity: activity,
		Resolver: resolver,
		Mailer:   mail,
		Importer: importer.New(reviewStore.Transcripts(), resolver, "transcriptions.jsonl", "audio/transcripts"),
		Cookies:  auth.NewCookieCodec("test-secret", false),
		Version:  "test",
	})
	return &testEnv{
		api:       api,
		auth:      authSvc,
		authStore: authStore,
		review:    reviewStore,
		activity:  activity,
		mail:      mail,
	}
}

// do serves a request against the bare mux with the given cookies.
func (e *testEnv) do(method, path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	e.api.mux.ServeHTTP(rr, req)
	return rr
}

// login runs the full OTP flow for the email and returns the session cookie.
func (e *testEnv) login(t *testing.T, email string) *http.Cookie {
	t.Helper()
	rr := e.do(http.MethodPost, "/login", url.Values{"email": {email}})
	if rr.Code != http.StatusFound {
		t.Fatalf("login: expected 302, got %d (%s)", rr.Code, rr.Body.String())
	}
	pending := cookieNamed(rr, pendingCookieName)
	if pending == nil {
		t.Fatal("login: pending cookie not set")
	}
	if e.mail.code == "" {
		t.Fatal("login: no code delivered")
	}

	rr = e.do(http.MethodPost, "/verify", url.Values{"code": {e.mail.code}}, pending)
	if rr.Code != http.StatusFound {
		t.Fatalf("verify: expected 302, got %d (%s)", rr.Code, rr.Body.String())
	}
	session := cookieNamed(rr, auth.SessionCookieName)
	if session == nil {
		t.Fatal("verify: session cookie not set")
	}
	return session
}

// promote makes the user behind the email an admin directly in the store.
func (e *testEnv) promote(t *testing.T, email string) {
	t.Helper()
	u, err := e.authStore.Users().FindByEmail(context.Background(), email)
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	u.Role = auth.RoleAdmin
	if err := e.authStore.Users().Update(context.Background(), u); err != nil {
		t.Fatalf("promote: %v", err)
	}
}

func (e *testEnv) seedTranscript(t *testing.T, id, text string) {
	t.Helper()
	err := e.review.Transcripts().Create(context.Background(), &review.Transcript{
		ID: id, S3AudioKey: "audio/transcripts/" + id + ".wav", OriginalText: text,
	})
	if err != nil {
		t.Fatalf("seed transcript: %v", err)
	}
}

func cookieNamed(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name && c.MaxAge >= 0 {
			return c
		}
	}
	return nil
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v (%s)", err, rr.Body.String())
	}
	return body
}

func TestAnonymousRedirectedToLogin(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(http.MethodGet, "/", nil)
	if rr.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rr.Code)
	}
	if loc := rr.Header().Get("Location"); loc != "/login" {
		t.Fatalf("expected redirect to /login, got %q", loc)
	}
}

func TestOTPLoginFlow(t *testing.T) {
	env := newTestEnv(t)
	env.seedTranscript(t, "t1", "hello world")

	session := env.login(t, "reviewer@example.com")

	rr := env.do(http.MethodGet, "/", nil, session)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["allCaughtUp"] != false {
		t.Fatalf("expected a pending transcript, got %v", body)
	}
	tr := body["transcript"].(map[string]any)
	if tr["id"] != "t1" || tr["originalText"] != "hello world" {
		t.Fatalf("unexpected transcript: %v", tr)
	}
	if !strings.HasPrefix(tr["audioUrl"].(string), "https://media.test/") {
		t.Fatalf("unexpected audio url: %v", tr["audioUrl"])
	}
}

func TestVerifyWrongCodeDoesNotCreateSession(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(http.MethodPost, "/login", url.Values{"email": {"reviewer@example.com"}})
	pending := cookieNamed(rr, pendingCookieName)

	rr = env.do(http.MethodPost, "/verify", url.Values{"code": {"000000"}}, pending)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	if c := cookieNamed(rr, auth.SessionCookieName); c != nil {
		t.Fatal("session cookie must not be set on bad code")
	}

	// the issued code still works after a failed guess
	rr = env.do(http.MethodPost, "/verify", url.Values{"code": {env.mail.code}}, pending)
	if rr.Code != http.StatusFound {
		t.Fatalf("expected 302 after correct code, got %d", rr.Code)
	}
}

func TestPasswordLoginFlow(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.auth.CreateUser(context.Background(), "admin@example.com", "Admin", auth.RoleAdmin, "s3cret"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	// /login redirects password accounts to the password form
	rr := env.do(http.MethodPost, "/login", url.Values{"email": {"admin@example.com"}})
	if rr.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rr.Code)
	}
	if loc := rr.Header().Get("Location"); !strings.HasPrefix(loc, "/login-password") {
		t.Fatalf("expected redirect to /login-password, got %q", loc)
	}

	rr = env.do(http.MethodPost, "/login-password", url.Values{
		"email": {"admin@example.com"}, "password": {"wrong"},
	})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong password, got %d", rr.Code)
	}

	rr = env.do(http.MethodPost, "/login-password", url.Values{
		"email": {"admin@example.com"}, "password": {"s3cret"},
	})
	if rr.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d (%s)", rr.Code, rr.Body.String())
	}
	if cookieNamed(rr, auth.SessionCookieName) == nil {
		t.Fatal("expected session cookie")
	}
}

func TestLogoutDestroysSession(t *testing.T) {
	env := newTestEnv(t)
	session := env.login(t, "reviewer@example.com")

	rr := env.do(http.MethodPost, "/logout", nil, session)
	if rr.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rr.Code)
	}

	rr = env.do(http.MethodGet, "/", nil, session)
	if rr.Code != http.StatusFound || rr.Header().Get("Location") != "/login" {
		t.Fatalf("expected login redirect after logout, got %d %q", rr.Code, rr.Header().Get("Location"))
	}
}

func TestAllCaughtUp(t *testing.T) {
	env := newTestEnv(t)
	session := env.login(t, "reviewer@example.com")

	rr := env.do(http.MethodGet, "/", nil, session)
	body := decodeBody(t, rr)
	if body["allCaughtUp"] != true {
		t.Fatalf("expected all caught up, got %v", body)
	}
}

func TestTranscriptSubmitAndSkip(t *testing.T) {
	env := newTestEnv(t)
	env.seedTranscript(t, "t1", "original text")
	env.seedTranscript(t, "t2", "second text")
	session := env.login(t, "reviewer@example.com")

	rr := env.do(http.MethodPost, "/api/transcript", url.Values{
		"action":       {"submit"},
		"transcriptId": {"t1"},
		"transcript":   {"corrected text"},
		"labels":       {`["noise"]`},
	}, session)
	if rr.Code != http.StatusOK {
		t.Fatalf("submit: expected 200, got %d (%s)", rr.Code, rr.Body.String())
	}

	got, err := env.review.Transcripts().Find(context.Background(), "t1")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if got.Status != review.StatusCompleted || got.EditedText != "corrected text" || got.OriginalText != "original text" {
		t.Fatalf("unexpected transcript after submit: %+v", got)
	}

	// terminal: a second submit conflicts
	rr = env.do(http.MethodPost, "/api/transcript", url.Values{
		"action": {"submit"}, "transcriptId": {"t1"}, "transcript": {"again"},
	}, session)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 on re-submit, got %d", rr.Code)
	}

	rr = env.do(http.MethodPost, "/api/transcript", url.Values{
		"action": {"skip"}, "transcriptId": {"t2"},
	}, session)
	if rr.Code != http.StatusOK {
		t.Fatalf("skip: expected 200, got %d", rr.Code)
	}
	got, _ = env.review.Transcripts().Find(context.Background(), "t2")
	if got.Status != review.StatusSkipped {
		t.Fatalf("expected skipped, got %s", got.Status)
	}
}

func TestTranscriptSubmitUnchangedTextKeepsEditedEmpty(t *testing.T) {
	env := newTestEnv(t)
	env.seedTranscript(t, "t1", "same text")
	session := env.login(t, "reviewer@example.com")

	rr := env.do(http.MethodPost, "/api/transcript", url.Values{
		"action": {"submit"}, "transcriptId": {"t1"}, "transcript": {"same text"},
	}, session)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	got, _ := env.review.Transcripts().Find(context.Background(), "t1")
	if got.EditedText != "" {
		t.Fatalf("expected empty edited text, got %q", got.EditedText)
	}
}

func TestTranscriptMarkCorrectAndPlay(t *testing.T) {
	env := newTestEnv(t)
	env.seedTranscript(t, "t1", "text")
	session := env.login(t, "reviewer@example.com")

	rr := env.do(http.MethodPost, "/api/transcript", url.Values{
		"action": {"correct"}, "transcriptId": {"t1"}, "markedCorrect": {"true"},
	}, session)
	if rr.Code != http.StatusOK {
		t.Fatalf("correct: expected 200, got %d", rr.Code)
	}
	got, _ := env.review.Transcripts().Find(context.Background(), "t1")
	if !got.MarkedCorrect || got.Status != review.StatusPending {
		t.Fatalf("unexpected transcript: %+v", got)
	}

	rr = env.do(http.MethodPost, "/api/transcript", url.Values{
		"action": {"play"}, "transcriptId": {"t1"},
	}, session)
	if rr.Code != http.StatusOK {
		t.Fatalf("play: expected 200, got %d", rr.Code)
	}
	entries, _, err := env.activity.List(context.Background(), audit.Filter{Action: "transcript_played"})
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected one play entry, got %d (%v)", len(entries), err)
	}
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	env := newTestEnv(t)
	session := env.login(t, "reviewer@example.com")

	rr := env.do(http.MethodGet, "/admin/users", nil, session)
	if rr.Code != http.StatusFound || rr.Header().Get("Location") != "/" {
		t.Fatalf("expected redirect to /, got %d %q", rr.Code, rr.Header().Get("Location"))
	}
}

func TestAdminUserManagement(t *testing.T) {
	env := newTestEnv(t)
	session := env.login(t, "admin@example.com")
	env.promote(t, "admin@example.com")

	rr := env.do(http.MethodPost, "/admin/users", url.Values{
		"intent": {"create"}, "email": {"New.Reviewer@Example.com"}, "name": {"New Reviewer"},
	}, session)
	if rr.Code != http.StatusOK {
		t.Fatalf("create: expected 200, got %d (%s)", rr.Code, rr.Body.String())
	}
	created := decodeBody(t, rr)["user"].(map[string]any)
	if created["email"] != "new.reviewer@example.com" {
		t.Fatalf("email not normalized: %v", created["email"])
	}

	// duplicate rejected
	rr = env.do(http.MethodPost, "/admin/users", url.Values{
		"intent": {"create"}, "email": {"new.reviewer@example.com"},
	}, session)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate, got %d", rr.Code)
	}

	targetID := created["id"].(string)
	rr = env.do(http.MethodPost, "/admin/users", url.Values{
		"intent": {"deactivate"}, "userId": {targetID},
	}, session)
	if rr.Code != http.StatusOK {
		t.Fatalf("deactivate: expected 200, got %d", rr.Code)
	}
	u, _ := env.authStore.Users().Find(context.Background(), targetID)
	if u.Active {
		t.Fatal("expected user deactivated")
	}

	rr = env.do(http.MethodPost, "/admin/users", url.Values{
		"intent": {"activate"}, "userId": {targetID},
	}, session)
	if rr.Code != http.StatusOK {
		t.Fatalf("activate: expected 200, got %d", rr.Code)
	}

	rr = env.do(http.MethodPost, "/admin/users", url.Values{
		"intent": {"delete"}, "userId": {targetID},
	}, session)
	if rr.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", rr.Code)
	}
}

func TestAdminCannotDeactivateOrDeleteSelf(t *testing.T) {
	env := newTestEnv(t)
	session := env.login(t, "admin@example.com")
	env.promote(t, "admin@example.com")

	admin, _ := env.authStore.Users().FindByEmail(context.Background(), "admin@example.com")
	for _, intent := range []string{"deactivate", "delete"} {
		rr := env.do(http.MethodPost, "/admin/users", url.Values{
			"intent": {intent}, "userId": {admin.ID},
		}, session)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s self: expected 400, got %d", intent, rr.Code)
		}
	}
}

func TestAdminLabelIntents(t *testing.T) {
	env := newTestEnv(t)
	session := env.login(t, "admin@example.com")
	env.promote(t, "admin@example.com")

	rr := env.do(http.MethodPost, "/admin/labels", url.Values{
		"intent": {"create"}, "name": {"noise"}, "shortcut": {"N"},
	}, session)
	if rr.Code != http.StatusOK {
		t.Fatalf("create: expected 200, got %d (%s)", rr.Code, rr.Body.String())
	}
	label := decodeBody(t, rr)["label"].(map[string]any)
	if label["shortcut"] != "n" {
		t.Fatalf("shortcut not lowercased: %v", label["shortcut"])
	}

	// shortcut collision
	rr = env.do(http.MethodPost, "/admin/labels", url.Values{
		"intent": {"create"}, "name": {"unclear"}, "shortcut": {"n"},
	}, session)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 for shortcut collision, got %d", rr.Code)
	}

	rr = env.do(http.MethodPost, "/admin/labels", url.Values{
		"intent": {"delete"}, "labelId": {label["id"].(string)},
	}, session)
	if rr.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", rr.Code)
	}
}

func TestAdminLogsFiltered(t *testing.T) {
	env := newTestEnv(t)
	session := env.login(t, "admin@example.com")
	env.promote(t, "admin@example.com")

	rr := env.do(http.MethodGet, "/admin/logs?category=auth", nil, session)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := decodeBody(t, rr)
	entries := body["entries"].([]any)
	if len(entries) == 0 {
		t.Fatal("expected auth entries from the login flow")
	}
	for _, e := range entries {
		if e.(map[string]any)["category"] != "auth" {
			t.Fatalf("unexpected category in %v", e)
		}
	}
}

func TestAdminImportFlow(t *testing.T) {
	env := newTestEnv(t)
	env.seedTranscript(t, "stale", "old text")
	session := env.login(t, "admin@example.com")
	env.promote(t, "admin@example.com")

	rr := env.do(http.MethodGet, "/admin/import", nil, session)
	if rr.Code != http.StatusOK {
		t.Fatalf("import status: expected 200, got %d", rr.Code)
	}

	rr = env.do(http.MethodPost, "/api/import-transcripts", nil, session)
	if rr.Code != http.StatusOK {
		t.Fatalf("import: expected 200, got %d (%s)", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	if body["imported"] != float64(1) {
		t.Fatalf("expected 1 imported, got %v", body["imported"])
	}

	// clear-and-reload: the stale transcript is gone
	if _, err := env.review.Transcripts().Find(context.Background(), "stale"); err == nil {
		t.Fatal("expected stale transcript to be removed")
	}
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(http.MethodGet, "/healthz", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("healthz: expected 200, got %d", rr.Code)
	}
	rr = env.do(http.MethodGet, "/readyz", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("readyz: expected 200, got %d", rr.Code)
	}
}
