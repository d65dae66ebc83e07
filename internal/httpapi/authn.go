package httpapi

import (
	"net/http"

	"listencheck.org/internal/auth"
	"listencheck.org/internal/obs"
)

// currentUser resolves the logged-in user from the session cookie. It returns
// nil for anonymous requests; resolution errors count as anonymous so a flaky
// DB read degrades to a login redirect instead of a 500.
func (a *API) currentUser(r *http.Request) *auth.User {
	token, ok := a.cookies.Open(r)
	if !ok {
		return nil
	}
	user, err := a.auth.ResolveSession(r.Context(), token)
	if err != nil {
		obs.Logger().Error("resolve session failed", "err", err.Error())
		return nil
	}
	return user
}

// requireUser gates a handler behind a valid session. Anonymous requests are
// redirected to /login, never answered with 401 pages.
func (a *API) requireUser(next func(http.ResponseWriter, *http.Request, *auth.User)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := a.currentUser(r)
		if user == nil {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		next(w, r, user)
	}
}

// requireAdmin additionally checks the admin role, bouncing non-admins back
// to the review queue.
func (a *API) requireAdmin(next func(http.ResponseWriter, *http.Request, *auth.User)) http.HandlerFunc {
	return a.requireUser(func(w http.ResponseWriter, r *http.Request, user *auth.User) {
		if !user.IsAdmin() {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
		next(w, r, user)
	})
}

// startSession mints a session for the user and sets the signed cookie.
func (a *API) startSession(w http.ResponseWriter, r *http.Request, userID string) error {
	token, err := a.auth.CreateSession(r.Context(), userID)
	if err != nil {
		return err
	}
	cookie, err := a.cookies.Seal(token)
	if err != nil {
		return err
	}
	http.SetCookie(w, cookie)
	return nil
}
