package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/julianstephens/ropeline/internal/auth"
	"github.com/julianstephens/ropeline/internal/constants"
	apperrors "github.com/julianstephens/ropeline/internal/errors"
	"github.com/julianstephens/ropeline/internal/habits"
	"github.com/julianstephens/ropeline/internal/models"
	"github.com/julianstephens/ropeline/internal/progress"
	"github.com/julianstephens/ropeline/internal/storage"
	"github.com/julianstephens/ropeline/internal/streak"
	"github.com/julianstephens/ropeline/internal/utils"
)

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
	Timezone    string `json:"timezone"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

type habitRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
}

type completionResponse struct {
	Habit    models.Habit            `json:"habit"`
	Record   models.CompletionRecord `json:"record"`
	Kind     streak.Kind             `json:"kind"`
	Stats    models.UserStats        `json:"stats"`
	Unlocked []models.Achievement    `json:"unlocked"`
}

type habitSummary struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	CurrentStreak int    `json:"current_streak"`
	Strength      int    `json:"strength"`
	DoneToday     bool   `json:"done_today"`
}

type statsResponse struct {
	Stats  models.UserStats `json:"stats"`
	Habits []habitSummary   `json:"habits"`
}

type achievementStatus struct {
	models.Achievement
	Progress   int        `json:"progress"`
	Completed  bool       `json:"completed"`
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`
}

type friendRequest struct {
	Email string `json:"email"`
}

type challengeRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	StartsOn    string `json:"starts_on"`
	EndsOn      string `json:"ends_on"`
}

type resultResponse struct {
	Stats    models.UserStats     `json:"stats"`
	Unlocked []models.Achievement `json:"unlocked"`
}

func currentUserID(r *http.Request) string {
	id, _ := auth.UserIDFromContext(r.Context())
	return id
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := a.Store.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": constants.Version})
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if req.Password == "" {
		writeError(w, http.StatusBadRequest, "INVALID_INPUT", "password is required")
		return
	}

	user, err := a.Accounts.Register(r.Context(), auth.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		Timezone:    req.Timezone,
	}, a.now())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	token, err := a.Tokens.GenerateToken(user.ID, string(user.Role))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{Token: token, User: user})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	token, user, err := a.Accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := a.Store.GetUser(r.Context(), currentUserID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (a *API) handleListHabits(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := storage.HabitFilter{
		IncludeArchived: q.Get("include_archived") == "true",
		IncludeDeleted:  q.Get("include_deleted") == "true",
	}
	list, err := a.Habits.List(r.Context(), currentUserID(r), filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if list == nil {
		list = []models.Habit{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) handleCreateHabit(w http.ResponseWriter, r *http.Request) {
	var req habitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	in := habits.CreateInput{}
	if req.Name != nil {
		in.Name = *req.Name
	}
	if req.Description != nil {
		in.Description = *req.Description
	}
	if req.Category != nil {
		in.Category = models.HabitCategory(*req.Category)
	}

	habit, err := a.Habits.Create(r.Context(), currentUserID(r), in, a.now())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, habit)
}

func (a *API) handleGetHabit(w http.ResponseWriter, r *http.Request) {
	habit, err := a.Habits.Get(r.Context(), currentUserID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, habit)
}

func (a *API) handleUpdateHabit(w http.ResponseWriter, r *http.Request) {
	var req habitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	in := habits.UpdateInput{Name: req.Name, Description: req.Description}
	if req.Category != nil {
		c := models.HabitCategory(*req.Category)
		in.Category = &c
	}

	habit, err := a.Habits.Update(r.Context(), currentUserID(r), chi.URLParam(r, "id"), in, a.now())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, habit)
}

// habitTransition adapts a habits.Service status operation to a handler
func (a *API) habitTransition(op func(ctx context.Context, userID, habitID string, now time.Time) (models.Habit, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		habit, err := op(r.Context(), currentUserID(r), chi.URLParam(r, "id"), a.now())
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, habit)
	}
}

func (a *API) handleCompleteHabit(w http.ResponseWriter, r *http.Request) {
	res, err := a.Progress.CompleteHabit(r.Context(), currentUserID(r), chi.URLParam(r, "id"), a.now())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	unlocked := res.Unlocked
	if unlocked == nil {
		unlocked = []models.Achievement{}
	}
	writeJSON(w, http.StatusOK, completionResponse{
		Habit:    res.Habit,
		Record:   res.Record,
		Kind:     res.Outcome.Kind,
		Stats:    res.Stats,
		Unlocked: unlocked,
	})
}

func (a *API) handleListCompletions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "INVALID_INPUT", "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	records, err := a.Habits.History(r.Context(), currentUserID(r), chi.URLParam(r, "id"), limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if records == nil {
		records = []models.CompletionRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := currentUserID(r)

	user, err := a.Store.GetUser(ctx, userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	now := a.now()
	stats, err := a.Progress.Stats(ctx, userID, now)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	list, err := a.Store.ListHabits(ctx, userID, storage.HabitFilter{})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	loc, err := utils.LoadLocation(user.Timezone)
	if err != nil {
		loc = time.Local
	}

	resp := statsResponse{Stats: stats, Habits: make([]habitSummary, 0, len(list))}
	for _, h := range list {
		resp.Habits = append(resp.Habits, habitSummary{
			ID:            h.ID,
			Name:          h.Name,
			CurrentStreak: streak.Current(h, now, loc),
			Strength:      streak.Strength(h, now, loc),
			DoneToday:     streak.CompletedToday(h, now, loc),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleAchievements(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	catalog, err := a.Store.ListAchievements(ctx)
	if err != nil {
		writeServiceError(w, r, fmt.Errorf("%w: %w", apperrors.ErrCatalogUnavailable, err))
		return
	}
	earned, err := a.Store.GetProgress(ctx, currentUserID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	byID := make(map[string]models.UserAchievement, len(earned))
	for _, p := range earned {
		byID[p.AchievementID] = p
	}

	out := make([]achievementStatus, 0, len(catalog))
	for _, def := range catalog {
		p := byID[def.ID]
		out = append(out, achievementStatus{
			Achievement: def,
			Progress:    p.Progress,
			Completed:   p.Completed,
			UnlockedAt:  p.UnlockedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) handleAddFriend(w http.ResponseWriter, r *http.Request) {
	var req friendRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	friend, err := a.Store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	res, err := a.Progress.AddFriend(r.Context(), currentUserID(r), friend.ID, a.now())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toResultResponse(res.Stats, res.Unlocked))
}

func (a *API) handleListChallenges(w http.ResponseWriter, r *http.Request) {
	challenges, err := a.Store.ListChallenges(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if challenges == nil {
		challenges = []models.Challenge{}
	}
	writeJSON(w, http.StatusOK, challenges)
}

func (a *API) handleJoinChallenge(w http.ResponseWriter, r *http.Request) {
	res, err := a.Progress.JoinChallenge(r.Context(), currentUserID(r), chi.URLParam(r, "id"), a.now())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toResultResponse(res.Stats, res.Unlocked))
}

func (a *API) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := a.Store.ListUsers(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

func (a *API) handlePromoteUser(w http.ResponseWriter, r *http.Request) {
	user, err := a.Accounts.Promote(r.Context(), chi.URLParam(r, "id"), a.now())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (a *API) handleUnlockAchievement(w http.ResponseWriter, r *http.Request) {
	res, err := a.Progress.UnlockSpecial(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "achievementID"), a.now())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toResultResponse(res.Stats, res.Unlocked))
}

func (a *API) handleCreateChallenge(w http.ResponseWriter, r *http.Request) {
	var req challengeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	challenge, err := a.Progress.CreateChallenge(r.Context(), progress.ChallengeInput{
		Name:        req.Name,
		Description: req.Description,
		StartsOn:    req.StartsOn,
		EndsOn:      req.EndsOn,
	}, a.now())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, challenge)
}

func toResultResponse(stats models.UserStats, unlocked []models.Achievement) resultResponse {
	if unlocked == nil {
		unlocked = []models.Achievement{}
	}
	return resultResponse{Stats: stats, Unlocked: unlocked}
}
