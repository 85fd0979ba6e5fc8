package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"carpool/internal/domain"
	"carpool/internal/middleware"
	"carpool/internal/service"
)

// RideHandler handles HTTP requests for rides.
type RideHandler struct {
	rideService *service.RideService
}

// NewRideHandler creates a new RideHandler.
func NewRideHandler(rideService *service.RideService) *RideHandler {
	return &RideHandler{rideService: rideService}
}

// CreateRideRequest is the HTTP request body for offering a ride.
// The driver is the caller.
type CreateRideRequest struct {
	TotalSeats      int       `json:"total_seats"`
	StartLocationID string    `json:"start_location_id"`
	DestinationID   string    `json:"destination_id"`
	ScheduledAt     time.Time `json:"scheduled_at"`
}

// ChangeStatusRequest is the HTTP request body for a status change.
type ChangeStatusRequest struct {
	Status string `json:"status"`
}

// AddCommentRequest is the HTTP request body for leaving feedback.
type AddCommentRequest struct {
	Like    bool   `json:"like"`
	Dislike bool   `json:"dislike"`
	Text    string `json:"text"`
}

// RideResponse is the HTTP representation of a ride.
type RideResponse struct {
	ID              string           `json:"id"`
	DriverID        string           `json:"driver_id"`
	Passengers      []string         `json:"passengers"`
	TotalSeats      int              `json:"total_seats"`
	AvailableSeats  int              `json:"available_seats"`
	Status          string           `json:"status"`
	RideFinished    bool             `json:"ride_finished"`
	StartLocationID string           `json:"start_location_id"`
	DestinationID   string           `json:"destination_id"`
	ScheduledAt     string           `json:"scheduled_at"`
	Comments        []domain.Comment `json:"comments"`
	Version         int64            `json:"version"`
	CreatedAt       string           `json:"created_at"`
	UpdatedAt       string           `json:"updated_at"`
}

// ListRidesResponse is the HTTP response for listing rides.
type ListRidesResponse struct {
	Rides []RideResponse `json:"rides"`
	Count int            `json:"count"`
}

func toRideResponse(r *domain.Ride) RideResponse {
	return RideResponse{
		ID:              r.ID,
		DriverID:        r.DriverID,
		Passengers:      r.Passengers,
		TotalSeats:      r.TotalSeats,
		AvailableSeats:  r.AvailableSeats,
		Status:          string(r.Status),
		RideFinished:    r.RideFinished(),
		StartLocationID: r.StartLocationID,
		DestinationID:   r.DestinationID,
		ScheduledAt:     r.ScheduledAt.UTC().Format(time.RFC3339),
		Comments:        r.Comments,
		Version:         r.Version,
		CreatedAt:       r.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:       r.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// CreateRide handles POST /v1/rides
func (h *RideHandler) CreateRide(c *gin.Context) {
	var req CreateRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: "validation"})
		return
	}

	ride, err := h.rideService.CreateRide(c.Request.Context(), service.CreateRideRequest{
		DriverID:        middleware.CallerID(c),
		TotalSeats:      req.TotalSeats,
		StartLocationID: req.StartLocationID,
		DestinationID:   req.DestinationID,
		ScheduledAt:     req.ScheduledAt,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Location", "/v1/rides/"+ride.ID)
	respondJSON(c, http.StatusCreated, toRideResponse(ride))
}

// GetRide handles GET /v1/rides/:id
func (h *RideHandler) GetRide(c *gin.Context) {
	ride, err := h.rideService.GetRide(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// ListRides handles GET /v1/rides?driver_id=&limit=
func (h *RideHandler) ListRides(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a positive integer", Code: "validation"})
			return
		}
		limit = n
	}

	rides, err := h.rideService.ListRides(c.Request.Context(), c.Query("driver_id"), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	response := ListRidesResponse{Rides: make([]RideResponse, 0, len(rides))}
	for _, r := range rides {
		response.Rides = append(response.Rides, toRideResponse(r))
	}
	response.Count = len(response.Rides)

	respondJSON(c, http.StatusOK, response)
}

// BookSeat handles POST /v1/rides/:id/seats
func (h *RideHandler) BookSeat(c *gin.Context) {
	ride, err := h.rideService.BookSeat(c.Request.Context(), c.Param("id"), middleware.CallerID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// CancelSeat handles DELETE /v1/rides/:id/seats
func (h *RideHandler) CancelSeat(c *gin.Context) {
	ride, err := h.rideService.CancelSeat(c.Request.Context(), c.Param("id"), middleware.CallerID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// ChangeStatus handles PUT /v1/rides/:id/status
func (h *RideHandler) ChangeStatus(c *gin.Context) {
	var req ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: "validation"})
		return
	}

	status, err := domain.ParseRideStatus(req.Status)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "validation"})
		return
	}

	ride, err := h.rideService.ChangeStatus(c.Request.Context(), service.ChangeStatusRequest{
		RideID:  c.Param("id"),
		Status:  status,
		ActorID: middleware.CallerID(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// EndRide handles PUT /v1/rides/:id/end
func (h *RideHandler) EndRide(c *gin.Context) {
	ride, err := h.rideService.EndRide(c.Request.Context(), c.Param("id"), middleware.CallerID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// AddComment handles POST /v1/rides/:id/comments
func (h *RideHandler) AddComment(c *gin.Context) {
	var req AddCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: "validation"})
		return
	}

	ride, err := h.rideService.AddComment(c.Request.Context(), service.AddCommentRequest{
		RideID:   c.Param("id"),
		AuthorID: middleware.CallerID(c),
		Like:     req.Like,
		Dislike:  req.Dislike,
		Text:     req.Text,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toRideResponse(ride))
}
