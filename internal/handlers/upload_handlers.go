package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"
)

const maxUploadBytes = 10 << 20 // 10 MiB

type imageHost interface {
	Upload(ctx context.Context, filename string, content io.Reader) (string, error)
	Delete(ctx context.Context, imageURL string) error
}

type UploadHandlers struct {
	images imageHost
	logger *logrus.Logger
}

func NewUploadHandlers(images imageHost, logger *logrus.Logger) *UploadHandlers {
	return &UploadHandlers{
		images: images,
		logger: logger,
	}
}

// UploadImage forwards a multipart "image" part to the hosting endpoint and
// returns the public URL.
func (h *UploadHandlers) UploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("image")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "An image file is required")
		return
	}
	defer file.Close()

	url, err := h.images.Upload(r.Context(), header.Filename, file)
	if err != nil {
		h.logger.WithError(err).Error("Image upload failed")
		respondWithError(w, http.StatusInternalServerError, "Image upload failed")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"url":     url,
	})
}

type DeleteImageRequest struct {
	URL string `json:"url"`
}

func (h *UploadHandlers) DeleteImage(w http.ResponseWriter, r *http.Request) {
	var req DeleteImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		respondWithError(w, http.StatusBadRequest, "Image url is required")
		return
	}

	if err := h.images.Delete(r.Context(), req.URL); err != nil {
		h.logger.WithError(err).Error("Image delete failed")
		respondWithError(w, http.StatusInternalServerError, "Image delete failed")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse{Success: true, Message: "Image deleted"})
}
