// internal/api/http/admin.go
package http

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	nethttp "net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-curriculum/internal/answer"
	"github.com/mind-engage/mindengage-curriculum/internal/curriculum"
	"github.com/mind-engage/mindengage-curriculum/internal/events"
	"github.com/mind-engage/mindengage-curriculum/internal/logger"
	"github.com/mind-engage/mindengage-curriculum/internal/preview"
	"github.com/mind-engage/mindengage-curriculum/internal/schema"
)

// Handlers only; routes are assembled in cmd/curriculumd.

func decodeJSON(w nethttp.ResponseWriter, r *nethttp.Request, v any) bool {
	body, err := readBody(w, r)
	if err != nil {
		badRequest(w, "request body too large")
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		badRequest(w, "bad json: "+err.Error())
		return false
	}
	return true
}

// POST /admin/subjects
func CreateSubjectHandler(store curriculum.Store, log *logger.Logger) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		var s curriculum.Subject
		if !decodeJSON(w, r, &s) {
			return
		}
		s.ID = ""
		out, err := store.PutSubject(r.Context(), s)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		respondJSON(w, nethttp.StatusCreated, out)
	}
}

// PUT /admin/subjects/{subjectID}
func UpdateSubjectHandler(store curriculum.Store, log *logger.Logger) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		id := chi.URLParam(r, "subjectID")
		if _, err := store.GetSubject(r.Context(), id); err != nil {
			writeError(w, r, log, err)
			return
		}
		var s curriculum.Subject
		if !decodeJSON(w, r, &s) {
			return
		}
		s.ID = id
		out, err := store.PutSubject(r.Context(), s)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		respondJSON(w, nethttp.StatusOK, out)
	}
}

// DELETE /admin/subjects/{subjectID}
func DeleteSubjectHandler(store curriculum.Store, log *logger.Logger) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if err := store.DeleteSubject(r.Context(), chi.URLParam(r, "subjectID")); err != nil {
			writeError(w, r, log, err)
			return
		}
		w.WriteHeader(nethttp.StatusNoContent)
	}
}

// POST /admin/subjects/{subjectID}/units
func CreateUnitHandler(store curriculum.Store, log *logger.Logger) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		var u curriculum.Unit
		if !decodeJSON(w, r, &u) {
			return
		}
		u.ID = ""
		u.SubjectID = chi.URLParam(r, "subjectID")
		out, err := store.PutUnit(r.Context(), u)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		respondJSON(w, nethttp.StatusCreated, out)
	}
}

// PUT /admin/units/{unitID}
func UpdateUnitHandler(store curriculum.Store, log *logger.Logger) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		id := chi.URLParam(r, "unitID")
		old, err := store.GetUnit(r.Context(), id)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		var u curriculum.Unit
		if !decodeJSON(w, r, &u) {
			return
		}
		u.ID = id
		if u.SubjectID == "" {
			u.SubjectID = old.SubjectID
		}
		out, err := store.PutUnit(r.Context(), u)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		respondJSON(w, nethttp.StatusOK, out)
	}
}

// DELETE /admin/units/{unitID}
func DeleteUnitHandler(store curriculum.Store, log *logger.Logger) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if err := store.DeleteUnit(r.Context(), chi.URLParam(r, "unitID")); err != nil {
			writeError(w, r, log, err)
			return
		}
		w.WriteHeader(nethttp.StatusNoContent)
	}
}

// decodeQuestion validates the raw payload against the question schema
// before decoding it.
func decodeQuestion(w nethttp.ResponseWriter, r *nethttp.Request, log *logger.Logger) (curriculum.Question, bool) {
	body, err := readBody(w, r)
	if err != nil {
		badRequest(w, "request body too large")
		return curriculum.Question{}, false
	}
	if err := schema.ValidateQuestion(body); err != nil {
		writeError(w, r, log, err)
		return curriculum.Question{}, false
	}
	var q curriculum.Question
	if err := json.Unmarshal(body, &q); err != nil {
		badRequest(w, "bad json: "+err.Error())
		return curriculum.Question{}, false
	}
	return q, true
}

// POST /admin/units/{unitID}/questions
func CreateQuestionHandler(store curriculum.Store, log *logger.Logger) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		q, ok := decodeQuestion(w, r, log)
		if !ok {
			return
		}
		q.ID = ""
		q.UnitID = chi.URLParam(r, "unitID")
		out, err := store.PutQuestion(r.Context(), q)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		respondJSON(w, nethttp.StatusCreated, out)
	}
}

// PUT /admin/questions/{questionID}
func UpdateQuestionHandler(store curriculum.Store, log *logger.Logger) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		id := chi.URLParam(r, "questionID")
		old, err := store.GetQuestion(r.Context(), id)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		q, ok := decodeQuestion(w, r, log)
		if !ok {
			return
		}
		q.ID = id
		if q.UnitID == "" {
			q.UnitID = old.UnitID
		}
		out, err := store.PutQuestion(r.Context(), q)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		respondJSON(w, nethttp.StatusOK, out)
	}
}

// DELETE /admin/questions/{questionID}
func DeleteQuestionHandler(store curriculum.Store, log *logger.Logger) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if err := store.DeleteQuestion(r.Context(), chi.URLParam(r, "questionID")); err != nil {
			writeError(w, r, log, err)
			return
		}
		w.WriteHeader(nethttp.StatusNoContent)
	}
}

// PUT /admin/questions/{questionID}/answer
//
// Body is the wire document {"question": ..., "answer": [...]}.
func SaveAnswerHandler(store curriculum.Store, log *logger.Logger) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		body, err := readBody(w, r)
		if err != nil {
			badRequest(w, "request body too large")
			return
		}
		if err := schema.ValidateAnswer(body); err != nil {
			writeError(w, r, log, err)
			return
		}
		var doc answer.Document
		if err := json.Unmarshal(body, &doc); err != nil {
			badRequest(w, "bad json: "+err.Error())
			return
		}
		q, err := store.SaveAnswer(r.Context(), chi.URLParam(r, "questionID"), doc)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		respondJSON(w, nethttp.StatusOK, q.AnswerDocument())
	}
}

type previewLink struct {
	Token     string `json:"token"`
	URL       string `json:"url"`
	ExpiresAt int64  `json:"expires_at"`
}

// POST /admin/questions/{questionID}/preview-link?ttl=2h
func PreviewLinkHandler(store curriculum.Store, signer *preview.Signer, publicURL string, defaultTTL time.Duration, log *logger.Logger) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		q, err := store.GetQuestion(r.Context(), chi.URLParam(r, "questionID"))
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		ttl := defaultTTL
		if v := r.URL.Query().Get("ttl"); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil || d <= 0 {
				badRequest(w, "ttl must be a positive duration")
				return
			}
			ttl = d
		}
		tok, exp, err := signer.Issue(q.ID, ttl)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		respondJSON(w, nethttp.StatusCreated, previewLink{
			Token:     tok,
			URL:       strings.TrimSuffix(publicURL, "/") + "/preview/" + tok,
			ExpiresAt: exp.Unix(),
		})
	}
}

// GET /admin/events?since=0&limit=100
func EventsHandler(log events.Log, l *logger.Logger) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		var since int64
		if v := r.URL.Query().Get("since"); v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil || n < 0 {
				badRequest(w, "since must be a non-negative integer")
				return
			}
			since = n
		}
		list, err := log.List(r.Context(), since, parseIntDefault(r.URL.Query().Get("limit"), 0))
		if err != nil {
			writeError(w, r, l, err)
			return
		}
		respondJSON(w, nethttp.StatusOK, list)
	}
}
