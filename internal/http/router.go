package http

import (
	"net/http"

	"cadence/internal/auth"
	"cadence/internal/config"
	"cadence/internal/http/handler"
	mw "cadence/internal/http/middleware"
	"cadence/internal/jobs"
	"cadence/internal/recur"
	"cadence/internal/remote"
	"cadence/internal/task"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"gorm.io/gorm"
)

type Deps struct {
	DB       *gorm.DB
	JWT      *auth.JWT
	Tasks    *task.Service
	Expander *recur.Expander
	Jobs     *jobs.Repo
	Runs     *remote.Runs
}

func NewRouter(cfg config.Config, d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(mw.CORS(cfg.CORSAllowedOrigins, cfg.CORSAllowCredentials))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	ah := &handler.AuthHandler{DB: d.DB, JWT: d.JWT}
	r.Post("/auth/register", ah.Register)
	r.Post("/auth/login", ah.Login)

	me := &handler.MeHandler{}
	r.With(auth.RequireAuth(d.JWT)).Get("/me", me.Me)

	th := &handler.TemplateHandler{Svc: d.Tasks}
	oh := &handler.OccurrenceHandler{Svc: d.Tasks, Expander: d.Expander}
	ovh := &handler.OverrideHandler{Svc: d.Tasks}
	sh := &handler.SyncHandler{Jobs: d.Jobs, Runs: d.Runs}

	r.Route("/templates", func(r chi.Router) {
		r.Use(auth.RequireAuth(d.JWT))

		r.Post("/", th.Create)
		r.Get("/", th.List)
		r.Get("/{id}", th.Get)
		r.Patch("/{id}", th.Patch)
		r.Delete("/{id}", th.Delete)

		r.Put("/{id}/occurrences/{date}/override", ovh.Upsert)
	})

	r.With(auth.RequireAuth(d.JWT)).Get("/occurrences", oh.List)

	r.Route("/sync", func(r chi.Router) {
		r.Use(auth.RequireAuth(d.JWT))

		r.Post("/", sh.Trigger)
		r.Get("/runs/latest", sh.Latest)
	})

	return r
}
