// internal/api/http/imports.go
package http

import (
	"io"
	"strings"

	nethttp "net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-curriculum/internal/curriculum"
	"github.com/mind-engage/mindengage-curriculum/internal/importer"
	"github.com/mind-engage/mindengage-curriculum/internal/logger"
	"github.com/mind-engage/mindengage-curriculum/internal/storage"
)

type markdownImportResp struct {
	Question   curriculum.Question  `json:"question"`
	Resolution importer.Resolution `json:"resolution"`
}

// POST /admin/units/{unitID}/import/markdown
//
// Multipart fields: "file" (the Markdown), optional "prompt", optional
// "question_id" to replace an existing answer, and any number of
// "attachments" referenced by the Markdown's images.
func ImportMarkdownHandler(store curriculum.Store, up *storage.AssetUploader, log *logger.Logger) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		unitID := chi.URLParam(r, "unitID")
		if _, err := store.GetUnit(r.Context(), unitID); err != nil {
			writeError(w, r, log, err)
			return
		}
		if err := r.ParseMultipartForm(maxFormBytes); err != nil {
			badRequest(w, "multipart form required")
			return
		}
		f, _, err := r.FormFile("file")
		if err != nil {
			badRequest(w, "file required")
			return
		}
		src, err := io.ReadAll(io.LimitReader(f, maxBodyBytes))
		f.Close()
		if err != nil {
			writeError(w, r, log, err)
			return
		}

		prompt := strings.TrimSpace(r.FormValue("prompt"))
		doc := importer.Markdown(src, prompt)
		doc, res, err := importer.ResolveAttachments(r.Context(), doc,
			importer.FormAttachments(r.MultipartForm.File["attachments"]), up, up.TrustedBase())
		if err != nil {
			writeError(w, r, log, err)
			return
		}

		var q curriculum.Question
		if qid := r.FormValue("question_id"); qid != "" {
			if !curriculum.ValidID(qid) {
				badRequest(w, "question_id is not a valid id")
				return
			}
			q, err = store.SaveAnswer(r.Context(), qid, doc)
		} else {
			var existing []curriculum.Question
			existing, err = store.ListQuestions(r.Context(), unitID, curriculum.ListOpts{Limit: curriculum.MaxLimit})
			if err == nil {
				q, err = store.PutQuestion(r.Context(), curriculum.Question{
					UnitID:   unitID,
					Type:     curriculum.TypeDescriptive,
					Prompt:   doc.Title,
					Answer:   doc.Blocks,
					Position: len(existing),
				})
			}
		}
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		log.Info("markdown imported", "unit", unitID, "question", q.ID,
			"images", len(res.Uploaded), "missing", len(res.Missing), "rejected", len(res.Rejected))
		respondJSON(w, nethttp.StatusCreated, markdownImportResp{Question: q, Resolution: res})
	}
}

type xlsxImportResp struct {
	Imported  int                   `json:"imported"`
	Questions []curriculum.Question `json:"questions"`
	Errors    []importer.RowError   `json:"errors,omitempty"`
}

// POST /admin/units/{unitID}/import/xlsx (multipart, field "file")
func ImportXLSXHandler(store curriculum.Store, log *logger.Logger) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		unitID := chi.URLParam(r, "unitID")
		if _, err := store.GetUnit(r.Context(), unitID); err != nil {
			writeError(w, r, log, err)
			return
		}
		f, _, err := r.FormFile("file")
		if err != nil {
			badRequest(w, "file required")
			return
		}
		defer f.Close()

		qs, rowErrs, err := importer.XLSX(f, unitID)
		if err != nil {
			badRequest(w, err.Error())
			return
		}
		existing, err := store.ListQuestions(r.Context(), unitID, curriculum.ListOpts{Limit: curriculum.MaxLimit})
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		resp := xlsxImportResp{Questions: []curriculum.Question{}, Errors: rowErrs}
		for _, q := range qs {
			q.Position += len(existing)
			out, err := store.PutQuestion(r.Context(), q)
			if err != nil {
				writeError(w, r, log, err)
				return
			}
			resp.Questions = append(resp.Questions, out)
		}
		resp.Imported = len(resp.Questions)
		log.Info("xlsx imported", "unit", unitID, "imported", resp.Imported, "row_errors", len(rowErrs))
		respondJSON(w, nethttp.StatusCreated, resp)
	}
}
