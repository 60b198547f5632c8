package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/givetrack/givetrack/internal/middleware"
	"github.com/givetrack/givetrack/internal/models"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type programStore interface {
	Create(ctx context.Context, program *models.Program) error
	GetByID(ctx context.Context, id string) (*models.Program, error)
	List(ctx context.Context, publicOnly bool) ([]models.Program, error)
}

type donationStore interface {
	Create(ctx context.Context, donation *models.Donation) error
	ListByProgram(ctx context.Context, programID string) ([]models.Donation, error)
	ListByDonor(ctx context.Context, donorEmail string) ([]models.Donation, error)
}

type ProgramHandlers struct {
	programs  programStore
	donations donationStore
	logger    *logrus.Logger
}

func NewProgramHandlers(programs programStore, donations donationStore, logger *logrus.Logger) *ProgramHandlers {
	return &ProgramHandlers{
		programs:  programs,
		donations: donations,
		logger:    logger,
	}
}

type CreateProgramRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	GoalAmount  int64  `json:"goal_amount"`
	ImageURL    string `json:"image_url"`
	Public      bool   `json:"public"`
}

type ProgramsResponse struct {
	Success  bool             `json:"success"`
	Programs []models.Program `json:"programs"`
}

func (h *ProgramHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateProgramRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		respondWithError(w, http.StatusBadRequest, "Title is required")
		return
	}
	if req.GoalAmount <= 0 {
		respondWithError(w, http.StatusBadRequest, "Goal amount must be positive")
		return
	}

	email, _ := r.Context().Value(middleware.ContextKeyEmail).(string)

	program := &models.Program{
		ID:          uuid.New().String(),
		Title:       title,
		Description: req.Description,
		GoalAmount:  req.GoalAmount,
		ImageURL:    req.ImageURL,
		Public:      req.Public,
		CreatedBy:   email,
	}

	if err := h.programs.Create(r.Context(), program); err != nil {
		h.logger.WithError(err).Error("Failed to create program")
		respondWithError(w, http.StatusInternalServerError, "Failed to create program")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"program": program,
	})
}

func (h *ProgramHandlers) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, false)
}

// ListPublic serves the unauthenticated program catalogue.
func (h *ProgramHandlers) ListPublic(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, true)
}

func (h *ProgramHandlers) list(w http.ResponseWriter, r *http.Request, publicOnly bool) {
	programs, err := h.programs.List(r.Context(), publicOnly)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list programs")
		respondWithError(w, http.StatusInternalServerError, "Failed to list programs")
		return
	}

	if programs == nil {
		programs = []models.Program{}
	}

	respondWithJSON(w, http.StatusOK, ProgramsResponse{Success: true, Programs: programs})
}

func (h *ProgramHandlers) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	program, err := h.programs.GetByID(r.Context(), id)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get program")
		respondWithError(w, http.StatusInternalServerError, "Failed to get program")
		return
	}
	if program == nil {
		respondWithError(w, http.StatusNotFound, "Program not found")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"program": program,
	})
}

type ProgramSummary struct {
	ProgramID     string `json:"program_id"`
	Title         string `json:"title"`
	GoalAmount    int64  `json:"goal_amount"`
	RaisedAmount  int64  `json:"raised_amount"`
	DonationCount int    `json:"donation_count"`
}

type DashboardSummaryResponse struct {
	Success     bool             `json:"success"`
	TotalRaised int64            `json:"total_raised"`
	Programs    []ProgramSummary `json:"programs"`
}

// DashboardSummary aggregates donation totals per program. Admin only.
func (h *ProgramHandlers) DashboardSummary(w http.ResponseWriter, r *http.Request) {
	programs, err := h.programs.List(r.Context(), false)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list programs for summary")
		respondWithError(w, http.StatusInternalServerError, "Failed to build summary")
		return
	}

	resp := DashboardSummaryResponse{Success: true, Programs: []ProgramSummary{}}
	for _, program := range programs {
		donations, err := h.donations.ListByProgram(r.Context(), program.ID)
		if err != nil {
			h.logger.WithError(err).WithField("program_id", program.ID).Error("Failed to list donations for summary")
			respondWithError(w, http.StatusInternalServerError, "Failed to build summary")
			return
		}

		summary := ProgramSummary{
			ProgramID:  program.ID,
			Title:      program.Title,
			GoalAmount: program.GoalAmount,
		}
		for _, donation := range donations {
			summary.RaisedAmount += donation.Amount
			summary.DonationCount++
		}

		resp.TotalRaised += summary.RaisedAmount
		resp.Programs = append(resp.Programs, summary)
	}

	respondWithJSON(w, http.StatusOK, resp)
}
