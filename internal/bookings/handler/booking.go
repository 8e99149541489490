package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"

	"roomdesk/internal/bookings/service"
	"roomdesk/internal/bookings/validator"
	apperrors "roomdesk/pkg/errors"
	httputil "roomdesk/pkg/http"
	"roomdesk/pkg/logger"
	"roomdesk/pkg/middleware"
	"roomdesk/pkg/model"
)

type BookingHandler struct {
	service   service.BookingService
	validator *validator.BookingValidator
	auth      func(httprouter.Handle) httprouter.Handle
	log       *logger.Logger
}

func NewBookingHandler(
	service service.BookingService,
	validator *validator.BookingValidator,
	auth func(httprouter.Handle) httprouter.Handle,
	log *logger.Logger,
) *BookingHandler {
	return &BookingHandler{
		service:   service,
		validator: validator,
		auth:      auth,
		log:       log,
	}
}

func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.writeError(w, "Get", apperrors.Unauthorized("Missing authenticated user"))
		return
	}

	booking, err := h.service.Get(r.Context(), userID)
	if err != nil {
		h.writeError(w, "Get", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "Get", "error", err)
	}
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.writeError(w, "Create", apperrors.Unauthorized("Missing authenticated user"))
		return
	}

	req, err := h.decodeRequest(r)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	bookingID, err := h.service.Create(r.Context(), userID, req.RoomID)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteSuccess(w, model.BookingResponse{BookingID: bookingID}); err != nil {
		h.log.Error("failed to write success response", "handler", "Create", "error", err)
	}
}

func (h *BookingHandler) Change(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.writeError(w, "Change", apperrors.Unauthorized("Missing authenticated user"))
		return
	}

	// A non-numeric booking id can never name a booking; reject before
	// touching the store.
	bookingID, err := strconv.ParseInt(ps.ByName("bookingId"), 10, 64)
	if err != nil || bookingID < 1 {
		h.writeError(w, "Change", apperrors.NotFound("Booking"))
		return
	}

	req, err := h.decodeRequest(r)
	if err != nil {
		h.writeError(w, "Change", err)
		return
	}

	respID, err := h.service.ChangeRoom(r.Context(), userID, bookingID, req.RoomID)
	if err != nil {
		h.writeError(w, "Change", err)
		return
	}

	if err := httputil.WriteSuccess(w, model.BookingResponse{BookingID: respID}); err != nil {
		h.log.Error("failed to write success response", "handler", "Change", "error", err)
	}
}

// decodeRequest parses and validates the booking body. Malformed JSON is a
// 400; a roomId that can never resolve to a room maps to the same outcome as
// a missing room.
func (h *BookingHandler) decodeRequest(r *http.Request) (*model.BookingRequest, error) {
	var req model.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, apperrors.InvalidInput("Invalid request body")
	}

	if err := h.validator.ValidateRequest(&req); err != nil {
		return nil, apperrors.NotFound("Room")
	}

	return &req, nil
}

func (h *BookingHandler) writeError(w http.ResponseWriter, handlerName string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handlerName, "error", writeErr)
	}
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/booking", h.auth(h.Get))
	router.POST("/booking", h.auth(h.Create))
	router.PUT("/booking/:bookingId", h.auth(h.Change))
}
