package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cadence/internal/auth"
	"cadence/internal/config"
	"cadence/internal/db"
	httpx "cadence/internal/http"
	"cadence/internal/jobs"
	"cadence/internal/recur"
	"cadence/internal/remote"
	"cadence/internal/task"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, _ := config.Load()

	gdb, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect")
	}
	if err := db.AutoMigrateAndIndexes(gdb); err != nil {
		log.Fatal().Err(err).Msg("db migrate")
	}

	jwtSvc := auth.NewJWT(cfg.JWTSecret)
	tasks := &task.Service{DB: gdb}
	expander := recur.NewExpander(log)
	expander.HorizonYears = cfg.HorizonYears

	reconciler := &remote.Reconciler{
		Remote: &remote.GormList{DB: gdb},
		Links:  &remote.GormLinks{DB: gdb},
		Delay:  cfg.SyncDelay,
		Log:    log,
	}
	runs := &remote.Runs{DB: gdb}
	jobsRepo := &jobs.Repo{DB: gdb}

	r := httpx.NewRouter(cfg, httpx.Deps{
		DB:       gdb,
		JWT:      jwtSvc,
		Tasks:    tasks,
		Expander: expander,
		Jobs:     jobsRepo,
		Runs:     runs,
	})

	// worker
	worker := &jobs.Worker{
		ID:         "worker-1",
		Repo:       jobsRepo,
		Tasks:      tasks,
		Expander:   expander,
		Reconciler: reconciler,
		Runs:       runs,
		Log:        log,
	}

	ctx, cancel := context.WithCancel(context.Background())
	go worker.Run(ctx)

	// periodic reconciliation
	sched := cron.New()
	if _, err := sched.AddFunc(cfg.SyncSchedule, func() {
		if err := jobsRepo.EnqueueReconcileAll(time.Now()); err != nil {
			log.Error().Err(err).Msg("periodic reconcile enqueue")
		}
	}); err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.SyncSchedule).Msg("bad sync schedule")
	}
	sched.Start()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	// graceful shutdown
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch

	cancel()
	<-sched.Stop().Done()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
}
