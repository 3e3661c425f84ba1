package handler

import (
	"encoding/json"
	"net/http"

	"meetproof/internal/disputes/service"
	apperrors "meetproof/pkg/errors"
	httputil "meetproof/pkg/http"
	"meetproof/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

type DisputeHandler struct {
	service service.DisputeService
	log     *logger.Logger
}

func NewDisputeHandler(service service.DisputeService, log *logger.Logger) *DisputeHandler {
	return &DisputeHandler{
		service: service,
		log:     log,
	}
}

func (h *DisputeHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	bookings, total, err := h.service.ListDisputed(r.Context(), limit, offset)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WritePaginated(w, bookings, total, limit, int(offset))
}

func (h *DisputeHandler) Refund(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	res, ok := h.decodeResolution(w, r, ps)
	if !ok {
		return
	}

	if err := h.service.ResolveRefund(r.Context(), res); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, map[string]string{"resolution": "refunded"})
}

func (h *DisputeHandler) CaptureAndPay(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	res, ok := h.decodeResolution(w, r, ps)
	if !ok {
		return
	}

	result, err := h.service.ResolveCapturePay(r.Context(), res)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, result)
}

func (h *DisputeHandler) NoAction(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	res, ok := h.decodeResolution(w, r, ps)
	if !ok {
		return
	}

	if err := h.service.ResolveNoAction(r.Context(), res); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, map[string]string{"resolution": "no_action"})
}

func (h *DisputeHandler) RetryTransfer(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	res, ok := h.decodeResolution(w, r, ps)
	if !ok {
		return
	}

	result, err := h.service.RetryTransfer(r.Context(), res.BookingID, res.ResolverID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, result)
}

func (h *DisputeHandler) decodeResolution(w http.ResponseWriter, r *http.Request, ps httprouter.Params) (*service.Resolution, bool) {
	var res service.Resolution
	if err := json.NewDecoder(r.Body).Decode(&res); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		})
		return nil, false
	}
	res.BookingID = ps.ByName("id")

	if res.ResolverID == "" {
		httputil.WriteError(w, apperrors.InvalidInput("resolver_id is required"))
		return nil, false
	}

	return &res, true
}

func (h *DisputeHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/admin/disputes", h.List)
	router.POST("/api/v1/admin/disputes/:id/refund", h.Refund)
	router.POST("/api/v1/admin/disputes/:id/capture-and-pay", h.CaptureAndPay)
	router.POST("/api/v1/admin/disputes/:id/no-action", h.NoAction)
	router.POST("/api/v1/admin/disputes/:id/retry-transfer", h.RetryTransfer)
}
