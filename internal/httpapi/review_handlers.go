package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"listencheck.org/internal/audit"
	"listencheck.org/internal/auth"
	"listencheck.org/internal/obs"
	"listencheck.org/internal/review"
)

type transcriptView struct {
	ID            string   `json:"id"`
	AudioURL      string   `json:"audioUrl"`
	Text          string   `json:"text"`
	OriginalText  string   `json:"originalText"`
	Status        string   `json:"status"`
	MarkedCorrect bool     `json:"markedCorrect"`
	Labels        []string `json:"labels"`
}

type labelView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Shortcut    string `json:"shortcut"`
	Active      bool   `json:"active"`
	UsageCount  int    `json:"usageCount"`
}

func viewTranscript(t *review.Transcript, audioURL string) transcriptView {
	text := t.OriginalText
	if t.Edited() {
		text = t.EditedText
	}
	labels := t.Labels
	if labels == nil {
		labels = []string{}
	}
	return transcriptView{
		ID:            t.ID,
		AudioURL:      audioURL,
		Text:          text,
		OriginalText:  t.OriginalText,
		Status:        t.Status,
		MarkedCorrect: t.MarkedCorrect,
		Labels:        labels,
	}
}

func viewLabels(ls []*review.Label) []labelView {
	out := make([]labelView, 0, len(ls))
	for _, l := range ls {
		out = append(out, labelView{
			ID: l.ID, Name: l.Name, Description: l.Description,
			Shortcut: l.Shortcut, Active: l.Active, UsageCount: l.UsageCount,
		})
	}
	return out
}

// handleHome serves the review queue: the oldest pending transcript, its
// playable audio URL and the labels a reviewer can attach.
func (a *API) handleHome(w http.ResponseWriter, r *http.Request, user *auth.User) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	t, err := a.review.NextPending(r.Context())
	if errors.Is(err, review.ErrAllCaughtUp) {
		byStatus, total, err := a.review.Stats(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"allCaughtUp": true,
			"stats":       map[string]any{"byStatus": byStatus, "total": total},
		})
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	audioURL, err := a.resolver.AudioURL(r.Context(), t.S3AudioKey)
	if err != nil {
		obs.Logger().Error("resolve audio url failed", "key", t.S3AudioKey, "err", err.Error())
	}
	labels, err := a.review.ActiveLabels(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	a.recorder.Record(r.Context(), audit.Entry{
		UserID: user.ID, Action: "review_page_viewed", Category: audit.CategoryPage,
		Status: audit.StatusSuccess, Metadata: map[string]any{"transcript_id": t.ID},
	}.FromRequest(r))

	writeJSON(w, http.StatusOK, map[string]any{
		"allCaughtUp": false,
		"transcript":  viewTranscript(t, audioURL),
		"labels":      viewLabels(labels),
	})
}

// handleTranscriptAction dispatches the review form by its action field:
// play, correct, submit or skip.
func (a *API) handleTranscriptAction(w http.ResponseWriter, r *http.Request, user *auth.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}

	id := r.PostFormValue("transcriptId")
	if id == "" {
		writeError(w, http.StatusBadRequest, "transcriptId is required")
		return
	}

	switch action := r.PostFormValue("action"); action {
	case "play":
		a.recorder.Record(r.Context(), audit.Entry{
			UserID: user.ID, Action: "transcript_played", Category: audit.CategoryTranscript,
			Status: audit.StatusSuccess, Metadata: map[string]any{"transcript_id": id},
		}.FromRequest(r))
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	case "correct":
		marked := r.PostFormValue("markedCorrect") == "true"
		if err := a.review.MarkCorrect(r.Context(), id, marked); err != nil {
			a.reviewError(w, err)
			return
		}
		a.recorder.Record(r.Context(), audit.Entry{
			UserID: user.ID, Action: "transcript_marked_correct", Category: audit.CategoryTranscript,
			Status: audit.StatusSuccess, Metadata: map[string]any{"transcript_id": id, "marked": marked},
		}.FromRequest(r))
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "markedCorrect": marked})

	case "submit":
		labels, err := parseLabels(r.PostFormValue("labels"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "labels must be a JSON array of strings")
			return
		}
		t, err := a.review.Submit(r.Context(), id, user.ID, r.PostFormValue("transcript"), labels)
		if err != nil {
			a.reviewError(w, err)
			return
		}
		a.recorder.Record(r.Context(), audit.Entry{
			UserID: user.ID, Action: "transcript_submitted", Category: audit.CategoryTranscript,
			Status: audit.StatusSuccess,
			Metadata: map[string]any{
				"transcript_id": id, "edited": t.Edited(), "labels": labels,
			},
		}.FromRequest(r))
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "status": t.Status})

	case "skip":
		t, err := a.review.Skip(r.Context(), id, user.ID)
		if err != nil {
			a.reviewError(w, err)
			return
		}
		a.recorder.Record(r.Context(), audit.Entry{
			UserID: user.ID, Action: "transcript_skipped", Category: audit.CategoryTranscript,
			Status: audit.StatusSuccess, Metadata: map[string]any{"transcript_id": id},
		}.FromRequest(r))
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "status": t.Status})

	default:
		writeError(w, http.StatusBadRequest, "unknown action")
	}
}

func (a *API) reviewError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, review.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, review.ErrAlreadyReviewed):
		writeError(w, http.StatusConflict, "transcript has already been reviewed")
	case errors.Is(err, review.ErrAlreadyExists):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, review.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// parseLabels decodes the labels form field, a JSON array of label names.
func parseLabels(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	var labels []string
	if err := json.Unmarshal([]byte(raw), &labels); err != nil {
		return nil, err
	}
	return labels, nil
}
