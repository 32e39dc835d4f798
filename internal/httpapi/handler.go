package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/framepipe/video-processing-service/internal/usecase"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Handler struct {
	createUpload *usecase.CreateUploadLinkUseCase
	listVideos   *usecase.ListUserVideosUseCase
	logger       *zap.Logger
}

func NewHandler(
	createUpload *usecase.CreateUploadLinkUseCase,
	listVideos *usecase.ListUserVideosUseCase,
	logger *zap.Logger,
) *Handler {
	return &Handler{createUpload: createUpload, listVideos: listVideos, logger: logger}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/videos/upload-url", h.createUploadURL)
	r.Get("/videos", h.listUserVideos)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return r
}

type createUploadURLRequest struct {
	UserID string `json:"user_id"`
}

type createUploadURLResponse struct {
	VideoID   string `json:"video_id"`
	Status    string `json:"status"`
	UploadURL string `json:"upload_url"`
}

func (h *Handler) createUploadURL(w http.ResponseWriter, r *http.Request) {
	var req createUploadURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	link, err := h.createUpload.Execute(r.Context(), req.UserID)
	if err != nil {
		h.logger.Error("create upload link failed", zap.Error(err), zap.String("user_id", req.UserID))
		writeError(w, http.StatusInternalServerError, "failed to create upload url")
		return
	}

	writeJSON(w, http.StatusCreated, createUploadURLResponse{
		VideoID:   link.Video.ID.String(),
		Status:    string(link.Video.Status),
		UploadURL: link.PresignedURL,
	})
}

func (h *Handler) listUserVideos(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	videos, err := h.listVideos.Execute(r.Context(), userID)
	if err != nil {
		h.logger.Error("list videos failed", zap.Error(err), zap.String("user_id", userID))
		writeError(w, http.StatusInternalServerError, "failed to list videos")
		return
	}

	writeJSON(w, http.StatusOK, videos)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
