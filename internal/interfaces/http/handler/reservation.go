package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	reservationapp "github.com/marmoleria/backend/internal/application/reservation"
	"github.com/marmoleria/backend/internal/domain/reservation"
)

// ReservationHandler serves reservation creation and its lifecycle transitions
type ReservationHandler struct {
	BaseHandler
	reservationService *reservationapp.ReservationService
}

// NewReservationHandler creates a new reservation handler
func NewReservationHandler(reservationService *reservationapp.ReservationService) *ReservationHandler {
	return &ReservationHandler{reservationService: reservationService}
}

// Create godoc
// @ID           createReservation
// @Summary      Reserve stock for a quoted product
// @Description  Allocates greedily across the preferred sources; one reservation is created per source used.
// @Description  All-or-nothing: when the eligible sources cannot cover the quantity nothing is allocated.
// @Tags         reservations
// @Accept       json
// @Produce      json
// @Param        request body reservationapp.CreateReservationRequest true "Reservation"
// @Success      201 {object} APIResponse[[]reservationapp.ReservationResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /reservations [post]
func (h *ReservationHandler) Create(c *gin.Context) {
	var req reservationapp.CreateReservationRequest
	if !h.BindJSON(c, &req) {
		return
	}
	created, err := h.reservationService.CreateReservation(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, created)
}

// Get godoc
// @ID           getReservation
// @Summary      Get a reservation
// @Tags         reservations
// @Produce      json
// @Param        id path string true "Reservation ID" format(uuid)
// @Success      200 {object} APIResponse[reservationapp.ReservationResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /reservations/{id} [get]
func (h *ReservationHandler) Get(c *gin.Context) {
	id, ok := h.reservationID(c)
	if !ok {
		return
	}
	r, err := h.reservationService.GetReservation(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, r)
}

// List godoc
// @ID           listReservations
// @Summary      List reservations
// @Tags         reservations
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20) maximum(100)
// @Param        quote_number query string false "Quote number"
// @Param        status query string false "PENDIENTE, VALIDADA, DESPACHADA or RECHAZADA"
// @Param        advisor query string false "Advisor"
// @Success      200 {object} APIResponse[[]reservationapp.ReservationResponse]
// @Security     BearerAuth
// @Router       /reservations [get]
func (h *ReservationHandler) List(c *gin.Context) {
	var filter reservationapp.ListReservationsFilter
	if !h.BindQuery(c, &filter) {
		return
	}
	items, total, err := h.reservationService.ListReservations(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	page, size := pageOf(filter.Page, filter.PageSize)
	h.SuccessWithMeta(c, items, total, page, size)
}

// Validate godoc
// @ID           validateReservation
// @Summary      Validate a pending reservation
// @Description  Accounting or admin only
// @Tags         reservations
// @Produce      json
// @Param        id path string true "Reservation ID" format(uuid)
// @Success      200 {object} APIResponse[reservationapp.ReservationResponse]
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /reservations/{id}/validate [post]
func (h *ReservationHandler) Validate(c *gin.Context) {
	h.transition(c, func(id uuid.UUID, actor reservation.Actor) (*reservationapp.ReservationResponse, error) {
		return h.reservationService.Validate(c.Request.Context(), id, actor)
	})
}

// Reject godoc
// @ID           rejectReservation
// @Summary      Reject a pending reservation
// @Description  Accounting or admin only. The quantity returns to the source it was taken from.
// @Tags         reservations
// @Accept       json
// @Produce      json
// @Param        id path string true "Reservation ID" format(uuid)
// @Param        request body reservationapp.RejectReservationRequest false "Reason"
// @Success      200 {object} APIResponse[reservationapp.ReservationResponse]
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /reservations/{id}/reject [post]
func (h *ReservationHandler) Reject(c *gin.Context) {
	var req reservationapp.RejectReservationRequest
	if c.Request.ContentLength != 0 && !h.BindJSON(c, &req) {
		return
	}
	h.transition(c, func(id uuid.UUID, actor reservation.Actor) (*reservationapp.ReservationResponse, error) {
		return h.reservationService.Reject(c.Request.Context(), id, actor, req.Reason)
	})
}

// Dispatch godoc
// @ID           dispatchReservation
// @Summary      Dispatch a validated reservation
// @Description  Accounting or admin only. Records the sale for the advisor's month.
// @Tags         reservations
// @Produce      json
// @Param        id path string true "Reservation ID" format(uuid)
// @Success      200 {object} APIResponse[reservationapp.ReservationResponse]
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /reservations/{id}/dispatch [post]
func (h *ReservationHandler) Dispatch(c *gin.Context) {
	h.transition(c, func(id uuid.UUID, actor reservation.Actor) (*reservationapp.ReservationResponse, error) {
		return h.reservationService.Dispatch(c.Request.Context(), id, actor)
	})
}

func (h *ReservationHandler) transition(c *gin.Context, run func(uuid.UUID, reservation.Actor) (*reservationapp.ReservationResponse, error)) {
	id, ok := h.reservationID(c)
	if !ok {
		return
	}
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	r, err := run(id, actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, r)
}

func (h *ReservationHandler) reservationID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid reservation ID")
		return uuid.Nil, false
	}
	return id, true
}
