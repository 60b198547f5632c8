package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/givetrack/givetrack/internal/middleware"
	"github.com/givetrack/givetrack/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type DonationHandlers struct {
	donations donationStore
	programs  programStore
	logger    *logrus.Logger
}

func NewDonationHandlers(donations donationStore, programs programStore, logger *logrus.Logger) *DonationHandlers {
	return &DonationHandlers{
		donations: donations,
		programs:  programs,
		logger:    logger,
	}
}

type CreateDonationRequest struct {
	ProgramID string `json:"program_id"`
	Amount    int64  `json:"amount"`
	Message   string `json:"message"`
}

type DonationsResponse struct {
	Success   bool              `json:"success"`
	Donations []models.Donation `json:"donations"`
}

// Create records a donation from the signed-in donor. Runs behind
// RequireAuth with donor/admin role.
func (h *DonationHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateDonationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.ProgramID == "" {
		respondWithError(w, http.StatusBadRequest, "Program id is required")
		return
	}
	if req.Amount <= 0 {
		respondWithError(w, http.StatusBadRequest, "Amount must be positive")
		return
	}

	program, err := h.programs.GetByID(r.Context(), req.ProgramID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to look up program for donation")
		respondWithError(w, http.StatusInternalServerError, "Failed to record donation")
		return
	}
	if program == nil {
		respondWithError(w, http.StatusNotFound, "Program not found")
		return
	}

	email, _ := r.Context().Value(middleware.ContextKeyEmail).(string)

	donation := &models.Donation{
		ID:         uuid.New().String(),
		ProgramID:  req.ProgramID,
		DonorEmail: email,
		Amount:     req.Amount,
		Message:    req.Message,
	}

	if err := h.donations.Create(r.Context(), donation); err != nil {
		h.logger.WithError(err).Error("Failed to record donation")
		respondWithError(w, http.StatusInternalServerError, "Failed to record donation")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"donation": donation,
	})
}

// ListMine returns the signed-in donor's donation history.
func (h *DonationHandlers) ListMine(w http.ResponseWriter, r *http.Request) {
	email, ok := r.Context().Value(middleware.ContextKeyEmail).(string)
	if !ok || email == "" {
		respondWithError(w, http.StatusUnauthorized, "Missing session")
		return
	}

	donations, err := h.donations.ListByDonor(r.Context(), email)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list donations")
		respondWithError(w, http.StatusInternalServerError, "Failed to list donations")
		return
	}

	if donations == nil {
		donations = []models.Donation{}
	}

	respondWithJSON(w, http.StatusOK, DonationsResponse{Success: true, Donations: donations})
}
