// Package server exposes the habit tracker over a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/julianstephens/ropeline/internal/auth"
	"github.com/julianstephens/ropeline/internal/constants"
	"github.com/julianstephens/ropeline/internal/habits"
	"github.com/julianstephens/ropeline/internal/logger"
	"github.com/julianstephens/ropeline/internal/progress"
	"github.com/julianstephens/ropeline/internal/storage"
)

// Store is the storage surface the API reads from directly
type Store interface {
	storage.Tx
	Ping(ctx context.Context) error
}

type API struct {
	Store    Store
	Progress *progress.Service
	Habits   *habits.Service
	Accounts *auth.Accounts
	Tokens   *auth.Manager
	Origins  []string
	// Now defaults to time.Now
	Now func() time.Time
}

func (a *API) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(constants.RequestTimeout))
	r.Use(loggingMiddleware)
	r.Use(a.corsMiddleware)

	r.Get("/health", a.handleHealth)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", a.handleRegister)
		r.Post("/login", a.handleLogin)
	})

	r.Group(func(r chi.Router) {
		r.Use(a.authMiddleware)
		r.Get("/me", a.handleMe)
		r.Get("/stats", a.handleStats)
		r.Get("/achievements", a.handleAchievements)
		r.Post("/friends", a.handleAddFriend)

		r.Route("/habits", func(r chi.Router) {
			r.Get("/", a.handleListHabits)
			r.Post("/", a.handleCreateHabit)
			r.Get("/{id}", a.handleGetHabit)
			r.Patch("/{id}", a.handleUpdateHabit)
			r.Delete("/{id}", a.habitTransition(a.Habits.Delete))
			r.Post("/{id}/restore", a.habitTransition(a.Habits.Restore))
			r.Post("/{id}/pause", a.habitTransition(a.Habits.Pause))
			r.Post("/{id}/resume", a.habitTransition(a.Habits.Resume))
			r.Post("/{id}/archive", a.habitTransition(a.Habits.Archive))
			r.Post("/{id}/complete", a.handleCompleteHabit)
			r.Get("/{id}/completions", a.handleListCompletions)
		})

		r.Route("/challenges", func(r chi.Router) {
			r.Get("/", a.handleListChallenges)
			r.Post("/{id}/join", a.handleJoinChallenge)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(a.adminMiddleware)
			r.Get("/users", a.handleListUsers)
			r.Post("/users/{id}/promote", a.handlePromoteUser)
			r.Post("/users/{id}/achievements/{achievementID}/unlock", a.handleUnlockAchievement)
			r.Post("/challenges", a.handleCreateChallenge)
		})
	})

	return r
}

// Serve runs the API on addr until ctx is canceled, then shuts down gracefully
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownGracePeriod)
		defer cancel()
		logger.Info("Server shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
