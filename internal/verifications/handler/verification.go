package handler

import (
	"encoding/json"
	"net/http"

	"meetproof/internal/verifications/service"
	apperrors "meetproof/pkg/errors"
	httputil "meetproof/pkg/http"
	"meetproof/pkg/logger"
	"meetproof/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type VerificationHandler struct {
	service service.VerificationService
	log     *logger.Logger
}

func NewVerificationHandler(service service.VerificationService, log *logger.Logger) *VerificationHandler {
	return &VerificationHandler{
		service: service,
		log:     log,
	}
}

func (h *VerificationHandler) SubmitCode(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var sub model.CodeSubmission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		})
		return
	}
	sub.BookingID = ps.ByName("id")

	result, err := h.service.SubmitCode(r.Context(), &sub)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, result)
}

func (h *VerificationHandler) GetStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	actorID := r.URL.Query().Get("actor_id")
	if actorID == "" {
		httputil.WriteError(w, apperrors.InvalidInput("actor_id query parameter is required"))
		return
	}

	record, err := h.service.GetStatus(r.Context(), id, actorID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, record)
}

func (h *VerificationHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/bookings/:id/verification", h.SubmitCode)
	router.GET("/api/v1/bookings/:id/verification", h.GetStatus)
}
