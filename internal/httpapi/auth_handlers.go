package httpapi

import (
	"errors"
	"net/http"
	"net/url"

	"listencheck.org/internal/audit"
	"listencheck.org/internal/auth"
	"listencheck.org/internal/obs"
)

// pendingCookieName remembers which email is mid-verification between
// POST /login and POST /verify. It grants nothing by itself; the one-time
// code is the credential.
const pendingCookieName = "lc_pending"

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"page": "login"})
	case http.MethodPost:
		a.postLogin(w, r)
	default:
		methodNotAllowed(w, "GET, POST")
	}
}

func (a *API) postLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}
	email := r.PostFormValue("email")

	user, created, err := a.auth.LookupOrCreateByEmail(r.Context(), email)
	if errors.Is(err, auth.ErrInvalidInput) {
		writeError(w, http.StatusBadRequest, "a valid email address is required")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if !user.Active {
		a.recorder.Record(r.Context(), audit.Entry{
			UserID: user.ID, Action: "login_rejected", Category: audit.CategoryAuth,
			Status: audit.StatusFailure, Metadata: map[string]any{"reason": "inactive"},
		}.FromRequest(r))
		writeError(w, http.StatusForbidden, "this account has been deactivated")
		return
	}

	// Password accounts skip the OTP flow entirely.
	if user.HasPassword() {
		http.Redirect(w, r, "/login-password?email="+url.QueryEscape(user.Email), http.StatusFound)
		return
	}

	code, err := a.auth.IssueLoginCode(r.Context(), user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if err := a.mailer.SendLoginCode(r.Context(), user.Email, code); err != nil {
		// Delivery failure must not strand the user mid-login.
		obs.Logger().Error("login code email failed", "to", user.Email, "err", err.Error())
		obs.Logger().Info("login code issued (delivery failed)", "to", user.Email, "code", code)
	}

	a.recorder.Record(r.Context(), audit.Entry{
		UserID: user.ID, Action: "login_code_requested", Category: audit.CategoryAuth,
		Status: audit.StatusSuccess, Metadata: map[string]any{"new_user": created},
	}.FromRequest(r))

	http.SetCookie(w, &http.Cookie{
		Name:     pendingCookieName,
		Value:    user.Email,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/verify", http.StatusFound)
}

func (a *API) handleVerify(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"page": "verify"})
	case http.MethodPost:
		a.postVerify(w, r)
	default:
		methodNotAllowed(w, "GET, POST")
	}
}

func (a *API) postVerify(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}
	pending, err := r.Cookie(pendingCookieName)
	if err != nil || pending.Value == "" {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	user, _, err := a.auth.LookupOrCreateByEmail(r.Context(), pending.Value)
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	ok, err := a.auth.VerifyLoginCode(r.Context(), user.ID, r.PostFormValue("code"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !ok {
		a.recorder.Record(r.Context(), audit.Entry{
			UserID: user.ID, Action: "login_code_rejected", Category: audit.CategoryAuth,
			Status: audit.StatusFailure,
		}.FromRequest(r))
		writeError(w, http.StatusUnauthorized, "invalid or expired code")
		return
	}

	if err := a.startSession(w, r, user.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: pendingCookieName, Value: "", Path: "/", MaxAge: -1})

	a.recorder.Record(r.Context(), audit.Entry{
		UserID: user.ID, Action: "login", Category: audit.CategoryAuth,
		Status: audit.StatusSuccess, Metadata: map[string]any{"method": "otp"},
	}.FromRequest(r))
	http.Redirect(w, r, "/", http.StatusFound)
}

func (a *API) handleLoginPassword(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"page": "login-password"})
	case http.MethodPost:
		a.postLoginPassword(w, r)
	default:
		methodNotAllowed(w, "GET, POST")
	}
}

func (a *API) postLoginPassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}
	email := r.PostFormValue("email")

	user, err := a.auth.AuthenticatePassword(r.Context(), email, r.PostFormValue("password"))
	switch {
	case errors.Is(err, auth.ErrInactive):
		writeError(w, http.StatusForbidden, "this account has been deactivated")
		return
	case errors.Is(err, auth.ErrBadCredential):
		a.recorder.Record(r.Context(), audit.Entry{
			Action: "login_rejected", Category: audit.CategoryAuth,
			Status: audit.StatusFailure, Metadata: map[string]any{"email": auth.NormalizeEmail(email)},
		}.FromRequest(r))
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if err := a.startSession(w, r, user.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	a.recorder.Record(r.Context(), audit.Entry{
		UserID: user.ID, Action: "login", Category: audit.CategoryAuth,
		Status: audit.StatusSuccess, Metadata: map[string]any{"method": "password"},
	}.FromRequest(r))
	http.Redirect(w, r, "/", http.StatusFound)
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		methodNotAllowed(w, "GET, POST")
		return
	}
	if token, ok := a.cookies.Open(r); ok {
		if user, err := a.auth.ResolveSession(r.Context(), token); err == nil && user != nil {
			a.recorder.Record(r.Context(), audit.Entry{
				UserID: user.ID, Action: "logout", Category: audit.CategoryAuth,
				Status: audit.StatusSuccess,
			}.FromRequest(r))
		}
		if err := a.auth.DestroySession(r.Context(), token); err != nil {
			obs.Logger().Error("destroy session failed", "err", err.Error())
		}
	}
	http.SetCookie(w, a.cookies.Clear())
	http.Redirect(w, r, "/login", http.StatusFound)
}
