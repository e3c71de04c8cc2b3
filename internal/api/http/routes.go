package http

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-curriculum/internal/curriculum"
	"github.com/mind-engage/mindengage-curriculum/internal/events"
	"github.com/mind-engage/mindengage-curriculum/internal/grading"
	"github.com/mind-engage/mindengage-curriculum/internal/logger"
	"github.com/mind-engage/mindengage-curriculum/internal/preview"
	"github.com/mind-engage/mindengage-curriculum/internal/storage"
)

// Deps is what the handlers need. Middleware (CORS, caching, timeouts) is
// applied by the caller around each Mount.
type Deps struct {
	Store      curriculum.Store
	Events     events.Log
	Checker    *grading.Checker
	Signer     *preview.Signer
	Uploader   *storage.AssetUploader
	Blobs      storage.BlobStore
	PublicURL  string
	PreviewTTL time.Duration
	Origins    []string // websocket origin patterns
	AfterSave  func(context.Context) error
	Log        *logger.Logger
}

// MountAPI mounts the public read API; r is usually /api.
func MountAPI(r chi.Router, d Deps) {
	r.Get("/subjects", ListSubjectsHandler(d.Store, d.Log))
	r.With(RequireIDs("subjectID")).Get("/subjects/{subjectID}", GetSubjectHandler(d.Store, d.Log))
	r.With(RequireIDs("subjectID")).Get("/subjects/{subjectID}/units", ListUnitsHandler(d.Store, d.Log))
	r.With(RequireIDs("unitID")).Get("/units/{unitID}/questions", ListQuestionsHandler(d.Store, d.Log))

	r.Route("/questions/{questionID}", func(qr chi.Router) {
		qr.Use(RequireIDs("questionID"))
		qr.Get("/", GetQuestionHandler(d.Store, d.Log))
		qr.Post("/check", CheckHandler(d.Store, d.Checker, d.Log))
		qr.Get("/answer.html", AnswerHTMLHandler(d.Store, d.Log))
		qr.Get("/answer.txt", AnswerTextHandler(d.Store, d.Log))
	})
}

// MountPreview mounts signed preview pages. They must not be cached.
func MountPreview(r chi.Router, d Deps) {
	r.Get("/preview/{token}", PreviewHandler(d.Store, d.Signer, d.Log))
}

// MountAssets serves the fs blob store; r is usually /assets.
func MountAssets(r chi.Router, d Deps) {
	r.Get("/*", ServeAssetsHandler(d.Blobs, d.Log))
}

// MountAdmin mounts authoring routes; r is usually /admin. The editing
// session is mounted separately by MountSession.
func MountAdmin(r chi.Router, d Deps) {
	r.Post("/subjects", CreateSubjectHandler(d.Store, d.Log))
	r.Route("/subjects/{subjectID}", func(sr chi.Router) {
		sr.Use(RequireIDs("subjectID"))
		sr.Put("/", UpdateSubjectHandler(d.Store, d.Log))
		sr.Delete("/", DeleteSubjectHandler(d.Store, d.Log))
		sr.Post("/units", CreateUnitHandler(d.Store, d.Log))
	})
	r.Route("/units/{unitID}", func(ur chi.Router) {
		ur.Use(RequireIDs("unitID"))
		ur.Put("/", UpdateUnitHandler(d.Store, d.Log))
		ur.Delete("/", DeleteUnitHandler(d.Store, d.Log))
		ur.Post("/questions", CreateQuestionHandler(d.Store, d.Log))
		ur.Post("/import/markdown", ImportMarkdownHandler(d.Store, d.Uploader, d.Log))
		ur.Post("/import/xlsx", ImportXLSXHandler(d.Store, d.Log))
	})
	r.Route("/questions/{questionID}", func(qr chi.Router) {
		qr.Use(RequireIDs("questionID"))
		qr.Put("/", UpdateQuestionHandler(d.Store, d.Log))
		qr.Delete("/", DeleteQuestionHandler(d.Store, d.Log))
		qr.Put("/answer", SaveAnswerHandler(d.Store, d.Log))
		qr.Post("/preview-link", PreviewLinkHandler(d.Store, d.Signer, d.PublicURL, d.PreviewTTL, d.Log))
	})
	r.Post("/assets", UploadAssetHandler(d.Uploader, d.Log))
	r.Get("/events", EventsHandler(d.Events, d.Log))
}

// MountSession mounts the websocket editing session. It is long-lived and
// must stay outside request timeouts.
func MountSession(r chi.Router, d Deps) {
	r.With(RequireIDs("questionID")).Get("/admin/questions/{questionID}/session",
		SessionHandler(d.Store, d.Uploader, d.Origins, d.AfterSave, d.Log))
}
