package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"listencheck.org/internal/audit"
	"listencheck.org/internal/auth"
	"listencheck.org/internal/review"
)

type userView struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	Role        string    `json:"role"`
	Active      bool      `json:"active"`
	HasPassword bool      `json:"hasPassword"`
	CreatedAt   time.Time `json:"createdAt"`
}

func viewUser(u *auth.User) userView {
	return userView{
		ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role,
		Active: u.Active, HasPassword: u.HasPassword(), CreatedAt: u.CreatedAt,
	}
}

func (a *API) handleAdminUsers(w http.ResponseWriter, r *http.Request, admin *auth.User) {
	switch r.Method {
	case http.MethodGet:
		users, err := a.auth.Users(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		out := make([]userView, 0, len(users))
		for _, u := range users {
			out = append(out, viewUser(u))
		}
		writeJSON(w, http.StatusOK, map[string]any{"users": out})
	case http.MethodPost:
		a.postAdminUsers(w, r, admin)
	default:
		methodNotAllowed(w, "GET, POST")
	}
}

func (a *API) postAdminUsers(w http.ResponseWriter, r *http.Request, admin *auth.User) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}
	targetID := r.PostFormValue("userId")

	record := func(action string, meta map[string]any) {
		meta["actor_id"] = admin.ID
		a.recorder.Record(r.Context(), audit.Entry{
			UserID: admin.ID, Action: action, Category: audit.CategoryAdmin,
			Status: audit.StatusSuccess, Metadata: meta,
		}.FromRequest(r))
	}

	switch intent := r.PostFormValue("intent"); intent {
	case "create":
		u, err := a.auth.CreateUser(r.Context(),
			r.PostFormValue("email"), r.PostFormValue("name"),
			roleOrDefault(r.PostFormValue("role")), r.PostFormValue("password"))
		if err != nil {
			a.authError(w, err)
			return
		}
		record("user_created", map[string]any{"user_id": u.ID, "email": u.Email, "role": u.Role})
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "user": viewUser(u)})

	case "update":
		before, err := a.auth.User(r.Context(), targetID)
		if err != nil {
			a.authError(w, err)
			return
		}
		u, err := a.auth.UpdateUser(r.Context(), targetID,
			r.PostFormValue("name"), roleOrDefault(r.PostFormValue("role")))
		if err != nil {
			a.authError(w, err)
			return
		}
		record("user_updated", map[string]any{
			"user_id": u.ID,
			"before":  map[string]any{"name": before.Name, "role": before.Role},
			"after":   map[string]any{"name": u.Name, "role": u.Role},
		})
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "user": viewUser(u)})

	case "deactivate":
		if targetID == admin.ID {
			writeError(w, http.StatusBadRequest, "you cannot deactivate your own account")
			return
		}
		u, err := a.auth.SetUserActive(r.Context(), targetID, false)
		if err != nil {
			a.authError(w, err)
			return
		}
		record("user_deactivated", map[string]any{"user_id": u.ID, "email": u.Email})
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "user": viewUser(u)})

	case "activate":
		u, err := a.auth.SetUserActive(r.Context(), targetID, true)
		if err != nil {
			a.authError(w, err)
			return
		}
		record("user_activated", map[string]any{"user_id": u.ID, "email": u.Email})
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "user": viewUser(u)})

	case "delete":
		if targetID == admin.ID {
			writeError(w, http.StatusBadRequest, "you cannot delete your own account")
			return
		}
		u, err := a.auth.DeleteUser(r.Context(), targetID)
		if err != nil {
			a.authError(w, err)
			return
		}
		record("user_deleted", map[string]any{"user_id": u.ID, "email": u.Email})
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	default:
		writeError(w, http.StatusBadRequest, "unknown intent")
	}
}

func (a *API) handleAdminLabels(w http.ResponseWriter, r *http.Request, admin *auth.User) {
	switch r.Method {
	case http.MethodGet:
		labels, err := a.review.Labels(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"labels": viewLabels(labels)})
	case http.MethodPost:
		a.postAdminLabels(w, r, admin)
	default:
		methodNotAllowed(w, "GET, POST")
	}
}

func (a *API) postAdminLabels(w http.ResponseWriter, r *http.Request, admin *auth.User) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}
	active := r.PostFormValue("active") != "false"

	record := func(action string, meta map[string]any) {
		meta["actor_id"] = admin.ID
		a.recorder.Record(r.Context(), audit.Entry{
			UserID: admin.ID, Action: action, Category: audit.CategoryAdmin,
			Status: audit.StatusSuccess, Metadata: meta,
		}.FromRequest(r))
	}

	switch intent := r.PostFormValue("intent"); intent {
	case "create":
		l, err := a.review.CreateLabel(r.Context(),
			r.PostFormValue("name"), r.PostFormValue("description"),
			r.PostFormValue("shortcut"), active)
		if err != nil {
			a.reviewError(w, err)
			return
		}
		record("label_created", map[string]any{"label_id": l.ID, "name": l.Name})
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "label": viewLabels([]*review.Label{l})[0]})

	case "update":
		l, err := a.review.UpdateLabel(r.Context(), r.PostFormValue("labelId"),
			r.PostFormValue("name"), r.PostFormValue("description"),
			r.PostFormValue("shortcut"), active)
		if err != nil {
			a.reviewError(w, err)
			return
		}
		record("label_updated", map[string]any{"label_id": l.ID, "name": l.Name})
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "label": viewLabels([]*review.Label{l})[0]})

	case "delete":
		l, err := a.review.DeleteLabel(r.Context(), r.PostFormValue("labelId"))
		if err != nil {
			a.reviewError(w, err)
			return
		}
		record("label_deleted", map[string]any{"label_id": l.ID, "name": l.Name, "usage_count": l.UsageCount})
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	default:
		writeError(w, http.StatusBadRequest, "unknown intent")
	}
}

func (a *API) handleAdminLogs(w http.ResponseWriter, r *http.Request, admin *auth.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	filter := audit.Filter{
		Category: q.Get("category"),
		Action:   q.Get("action"),
		UserID:   q.Get("userId"),
		Page:     page,
	}

	entries, total, err := a.activity.List(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	categories, err := a.activity.Categories(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	// Resolve user ids to emails for display.
	emails := map[string]string{}
	if users, err := a.auth.Users(r.Context()); err == nil {
		for _, u := range users {
			emails[u.ID] = u.Email
		}
	}

	type entryView struct {
		ID        string         `json:"id"`
		UserID    string         `json:"userId,omitempty"`
		UserEmail string         `json:"userEmail,omitempty"`
		Action    string         `json:"action"`
		Category  string         `json:"category"`
		Status    string         `json:"status"`
		Metadata  map[string]any `json:"metadata"`
		IPAddress string         `json:"ipAddress"`
		UserAgent string         `json:"userAgent"`
		CreatedAt time.Time      `json:"createdAt"`
	}
	out := make([]entryView, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryView{
			ID: e.ID, UserID: e.UserID, UserEmail: emails[e.UserID],
			Action: e.Action, Category: e.Category,
			Status: e.Status, Metadata: e.Metadata, IPAddress: e.IPAddress,
			UserAgent: e.UserAgent, CreatedAt: e.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries":    out,
		"total":      total,
		"categories": categories,
	})
}

func (a *API) handleAdminImport(w http.ResponseWriter, r *http.Request, admin *auth.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	byStatus, total, err := a.review.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"stats": map[string]any{"byStatus": byStatus, "total": total},
	})
}

// handleRunImport rebuilds the transcript table from the configured JSONL
// export. Destructive: prior review progress is discarded.
func (a *API) handleRunImport(w http.ResponseWriter, r *http.Request, admin *auth.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}
	res, err := a.importer.Run(r.Context())
	if err != nil {
		a.recorder.Record(r.Context(), audit.Entry{
			UserID: admin.ID, Action: "transcripts_imported", Category: audit.CategoryAdmin,
			Status: audit.StatusError, Metadata: map[string]any{"error": err.Error()},
		}.FromRequest(r))
		writeError(w, http.StatusInternalServerError, "import failed: "+err.Error())
		return
	}
	a.recorder.Record(r.Context(), audit.Entry{
		UserID: admin.ID, Action: "transcripts_imported", Category: audit.CategoryAdmin,
		Status: audit.StatusSuccess,
		Metadata: map[string]any{"imported": res.Imported, "skipped": res.Skipped},
	}.FromRequest(r))
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true, "imported": res.Imported, "skipped": res.Skipped,
	})
}

func (a *API) authError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrNotFound):
		writeError(w, http.StatusNotFound, "user not found")
	case errors.Is(err, auth.ErrAlreadyExists):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, auth.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func roleOrDefault(role string) string {
	if role == "" {
		return auth.RoleUser
	}
	return role
}
