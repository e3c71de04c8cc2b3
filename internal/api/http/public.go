// internal/api/http/public.go
package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	nethttp "net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-curriculum/internal/answer"
	"github.com/mind-engage/mindengage-curriculum/internal/answer/render"
	"github.com/mind-engage/mindengage-curriculum/internal/curriculum"
	"github.com/mind-engage/mindengage-curriculum/internal/grading"
	"github.com/mind-engage/mindengage-curriculum/internal/logger"
	"github.com/mind-engage/mindengage-curriculum/internal/preview"
)

// GET /api/subjects
func ListSubjectsHandler(store curriculum.Store, log *logger.Logger) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		list, err := store.ListSubjects(r.Context(), listOpts(r))
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		respondJSON(w, nethttp.StatusOK, list)
	}
}

// GET /api/subjects/{subjectID}
func GetSubjectHandler(store curriculum.Store, log *logger.Logger) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		s, err := store.GetSubject(r.Context(), chi.URLParam(r, "subjectID"))
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		respondJSON(w, nethttp.StatusOK, s)
	}
}

// GET /api/subjects/{subjectID}/units
func ListUnitsHandler(store curriculum.Store, log *logger.Logger) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		list, err := store.ListUnits(r.Context(), chi.URLParam(r, "subjectID"), listOpts(r))
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		respondJSON(w, nethttp.StatusOK, list)
	}
}

// GET /api/units/{unitID}/questions
func ListQuestionsHandler(store curriculum.Store, log *logger.Logger) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		list, err := store.ListQuestions(r.Context(), chi.URLParam(r, "unitID"), listOpts(r))
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		out := make([]curriculum.Question, len(list))
		for i, q := range list {
			out[i] = q.Public()
		}
		respondJSON(w, nethttp.StatusOK, out)
	}
}

// GET /api/questions/{questionID}
func GetQuestionHandler(store curriculum.Store, log *logger.Logger) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		q, err := store.GetQuestion(r.Context(), chi.URLParam(r, "questionID"))
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		respondJSON(w, nethttp.StatusOK, q.Public())
	}
}

type checkReq struct {
	Response json.RawMessage `json:"response"`
}

// POST /api/questions/{questionID}/check
func CheckHandler(store curriculum.Store, checker *grading.Checker, log *logger.Logger) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		q, err := store.GetQuestion(r.Context(), chi.URLParam(r, "questionID"))
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		body, err := readBody(w, r)
		if err != nil {
			badRequest(w, "request body too large")
			return
		}
		var req checkReq
		if err := json.Unmarshal(body, &req); err != nil {
			badRequest(w, "bad json: "+err.Error())
			return
		}
		var resp any
		if len(req.Response) > 0 {
			dec := json.NewDecoder(bytes.NewReader(req.Response))
			dec.UseNumber()
			if err := dec.Decode(&resp); err != nil {
				badRequest(w, "bad response: "+err.Error())
				return
			}
		}
		res, err := checker.Check(r.Context(), q, resp)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		respondJSON(w, nethttp.StatusOK, res)
	}
}

// GET /api/questions/{questionID}/answer.html
func AnswerHTMLHandler(store curriculum.Store, log *logger.Logger) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		doc, err := answerDocument(r, store)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		var buf bytes.Buffer
		if err := render.HTML(&buf, render.Render(doc)); err != nil {
			writeError(w, r, log, err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(buf.Bytes())
	}
}

// GET /api/questions/{questionID}/answer.txt
func AnswerTextHandler(store curriculum.Store, log *logger.Logger) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		doc, err := answerDocument(r, store)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(render.ToPlainText(doc)))
	}
}

func answerDocument(r *nethttp.Request, store curriculum.Store) (answer.Document, error) {
	q, err := store.GetQuestion(r.Context(), chi.URLParam(r, "questionID"))
	if err != nil {
		return answer.Document{}, err
	}
	if q.Type != curriculum.TypeDescriptive {
		return answer.Document{}, fmt.Errorf("%w: question %s has no descriptive answer", curriculum.ErrNotFound, q.ID)
	}
	return q.AnswerDocument(), nil
}

// GET /preview/{token}
func PreviewHandler(store curriculum.Store, signer *preview.Signer, log *logger.Logger) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Cache-Control", "no-store")
		qid, err := signer.Verify(chi.URLParam(r, "token"))
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		q, err := store.GetQuestion(r.Context(), qid)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		var buf bytes.Buffer
		if err := render.Page(&buf, render.Render(PreviewDocument(q))); err != nil {
			writeError(w, r, log, err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(buf.Bytes())
	}
}

// PreviewDocument lays out any question, key included, as a document so
// every type renders through the same path.
func PreviewDocument(q curriculum.Question) answer.Document {
	switch q.Type {
	case curriculum.TypeDescriptive:
		return q.AnswerDocument()
	case curriculum.TypeMCQ:
		blocks := []answer.PersistedBlock{answer.Encode(answer.List{Items: q.Options})}
		if q.CorrectIndex != nil && *q.CorrectIndex < len(q.Options) {
			blocks = append(blocks, answer.Encode(answer.Callout{
				Content: fmt.Sprintf("Answer: %c. %s", 'A'+rune(*q.CorrectIndex), q.Options[*q.CorrectIndex]),
			}))
		}
		return withExplanation(q, blocks)
	case curriculum.TypeFillBlank:
		blocks := []answer.PersistedBlock{answer.Encode(answer.Callout{Content: "Answers: " + strings.Join(q.Blanks, ", ")})}
		return withExplanation(q, blocks)
	}
	return answer.NewDocument(q.Prompt)
}

func withExplanation(q curriculum.Question, blocks []answer.PersistedBlock) answer.Document {
	if q.Explanation != "" {
		blocks = append(blocks, answer.Encode(answer.Text{Content: q.Explanation}))
	}
	return answer.Document{Title: q.Prompt, Blocks: blocks}
}
