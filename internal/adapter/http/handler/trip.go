package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Temutjin2k/taxi-dispatch/internal/adapter/http/handler/dto"
	"github.com/Temutjin2k/taxi-dispatch/internal/domain/models"
	"github.com/Temutjin2k/taxi-dispatch/internal/domain/types"
	"github.com/Temutjin2k/taxi-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/taxi-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/taxi-dispatch/pkg/validator"
)

type TripService interface {
	RequestTrip(ctx context.Context, customerID int64, pickup, destination models.Point) (*models.Trip, error)
	Accept(ctx context.Context, tripID, driverID int64) (*models.Trip, error)
	Arrive(ctx context.Context, tripID int64, actingDriverID *int64) (*models.Trip, error)
	Start(ctx context.Context, tripID int64, actingDriverID *int64) (*models.Trip, error)
	Complete(ctx context.Context, tripID int64, actingDriverID *int64) (*models.Trip, error)
	Cancel(ctx context.Context, tripID int64, actingDriverID *int64) (*models.Trip, error)
	Get(ctx context.Context, tripID int64) (*models.Trip, error)
	List(ctx context.Context, filter models.TripFilter) ([]*models.Trip, error)
}

type Trip struct {
	service TripService
	l       logger.Logger
}

func NewTrip(service TripService, l logger.Logger) *Trip {
	return &Trip{
		service: service,
		l:       l,
	}
}

// RequestTrip godoc
// @Summary      Request a trip
// @Description  Creates a trip and dispatches it to the nearest available driver
// @Tags         trips
// @Accept       json
// @Produce      json
// @Param        request body dto.RequestTripReq true "Pickup and destination"
// @Success      201 {object} map[string]interface{} "Created trip"
// @Failure      400 {object} map[string]interface{} "Bad request"
// @Failure      401 {object} map[string]interface{} "Unauthorized"
// @Failure      422 {object} map[string]interface{} "Validation error"
// @Failure      503 {object} map[string]interface{} "No driver available"
// @Security     BearerAuth
// @Router       /api/v1/trips [post]
func (h *Trip) RequestTrip(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionRequestTrip)
	user := models.UserFromContext(ctx)

	var req dto.RequestTripReq
	if err := readJSON(w, r, &req); err != nil {
		h.l.Warn(ctx, "failed to read request JSON data", "error", err.Error())
		badRequestResponse(w, err.Error())
		return
	}

	v := validator.New()
	req.Validate(v)

	customerID := user.ID
	if user.IsAdmin() {
		v.Check(req.CustomerID != nil, "customer_id", "must be provided")
		if req.CustomerID != nil {
			customerID = *req.CustomerID
		}
	} else {
		v.Check(req.CustomerID == nil || *req.CustomerID == user.ID, "customer_id", "must match the authenticated customer")
	}

	if !v.Valid() {
		h.l.Warn(ctx, "invalid request data")
		failedValidationResponse(w, v.Errors)
		return
	}

	trip, err := h.service.RequestTrip(ctx, customerID, req.Pickup.ToModel(), req.Destination.ToModel())
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to request trip", err)
		serviceErrorResponse(w, err)
		return
	}

	headers := make(http.Header)
	headers.Set("Location", "/api/v1/trips/"+strconv.FormatInt(trip.ID, 10))

	if err := writeJSON(w, http.StatusCreated, envelope{"trip": trip}, headers); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
	}
}

// Accept godoc
// @Summary      Accept a trip
// @Description  The driver the trip was dispatched to accepts it
// @Tags         trips
// @Produce      json
// @Param        trip_id path int true "Trip ID"
// @Success      200 {object} map[string]interface{} "Updated trip"
// @Failure      404 {object} map[string]interface{} "Trip not found"
// @Failure      409 {object} map[string]interface{} "Invalid trip state"
// @Security     BearerAuth
// @Router       /api/v1/trips/{trip_id}/accept [post]
func (h *Trip) Accept(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionAcceptTrip)

	driverID := actingDriver(models.UserFromContext(ctx))
	if driverID == nil {
		errorResponse(w, http.StatusForbidden, "only drivers can accept trips")
		return
	}

	h.transition(w, r.WithContext(ctx), func(ctx context.Context, tripID int64) (*models.Trip, error) {
		return h.service.Accept(ctx, tripID, *driverID)
	})
}

// Arrive godoc
// @Summary      Driver arrived
// @Tags         trips
// @Produce      json
// @Param        trip_id path int true "Trip ID"
// @Success      200 {object} map[string]interface{} "Updated trip"
// @Failure      409 {object} map[string]interface{} "Invalid trip state"
// @Security     BearerAuth
// @Router       /api/v1/trips/{trip_id}/arrive [post]
func (h *Trip) Arrive(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionArriveTrip)
	h.transition(w, r.WithContext(ctx), h.driverStep(ctx, h.service.Arrive))
}

// Start godoc
// @Summary      Start a trip
// @Tags         trips
// @Produce      json
// @Param        trip_id path int true "Trip ID"
// @Success      200 {object} map[string]interface{} "Updated trip"
// @Failure      409 {object} map[string]interface{} "Invalid trip state"
// @Security     BearerAuth
// @Router       /api/v1/trips/{trip_id}/start [post]
func (h *Trip) Start(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionStartTrip)
	h.transition(w, r.WithContext(ctx), h.driverStep(ctx, h.service.Start))
}

// Complete godoc
// @Summary      Complete a trip
// @Description  Finishes the trip, fixing the final fare and duration
// @Tags         trips
// @Produce      json
// @Param        trip_id path int true "Trip ID"
// @Success      200 {object} map[string]interface{} "Updated trip"
// @Failure      409 {object} map[string]interface{} "Invalid trip state"
// @Security     BearerAuth
// @Router       /api/v1/trips/{trip_id}/complete [post]
func (h *Trip) Complete(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionCompleteTrip)
	h.transition(w, r.WithContext(ctx), h.driverStep(ctx, h.service.Complete))
}

// Cancel godoc
// @Summary      Cancel a trip
// @Description  Cancels a trip that is not finished yet. Customers may cancel only their own trips.
// @Tags         trips
// @Produce      json
// @Param        trip_id path int true "Trip ID"
// @Success      200 {object} map[string]interface{} "Updated trip"
// @Failure      403 {object} map[string]interface{} "Forbidden"
// @Failure      409 {object} map[string]interface{} "Invalid trip state"
// @Security     BearerAuth
// @Router       /api/v1/trips/{trip_id}/cancel [post]
func (h *Trip) Cancel(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionCancelTrip)
	user := models.UserFromContext(ctx)

	h.transition(w, r.WithContext(ctx), func(ctx context.Context, tripID int64) (*models.Trip, error) {
		if user.Role == types.RoleCustomer {
			if err := h.checkOwner(ctx, user, tripID); err != nil {
				return nil, err
			}
		}
		return h.service.Cancel(ctx, tripID, actingDriver(user))
	})
}

// Get godoc
// @Summary      Get a trip
// @Tags         trips
// @Produce      json
// @Param        trip_id path int true "Trip ID"
// @Success      200 {object} map[string]interface{} "Trip"
// @Failure      404 {object} map[string]interface{} "Trip not found"
// @Security     BearerAuth
// @Router       /api/v1/trips/{trip_id} [get]
func (h *Trip) Get(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "get_trip")

	tripID, err := readIDParam(r, "trip_id")
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	trip, err := h.service.Get(ctx, tripID)
	if err != nil {
		h.l.Warn(wrap.ErrorCtx(ctx, err), "failed to get trip", "error", err.Error())
		serviceErrorResponse(w, err)
		return
	}

	user := models.UserFromContext(ctx)
	if !visibleTo(trip, user) {
		errorResponse(w, http.StatusNotFound, types.ErrTripNotFound.Error())
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"trip": trip}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
	}
}

// List godoc
// @Summary      List trips
// @Description  Newest first. Customers and drivers see only their own trips.
// @Tags         trips
// @Produce      json
// @Param        status      query string false "Trip status"
// @Param        customer_id query int    false "Customer ID (admin only)"
// @Param        driver_id   query int    false "Driver ID (admin only)"
// @Param        vehicle_id  query int    false "Vehicle ID (admin only)"
// @Param        limit       query int    false "Page size"
// @Success      200 {object} map[string]interface{} "Trips"
// @Security     BearerAuth
// @Router       /api/v1/trips [get]
func (h *Trip) List(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "list_trips")
	user := models.UserFromContext(ctx)

	filter, err := readTripFilter(r)
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	v := validator.New()
	dto.ValidateTripFilter(v, filter)
	if !v.Valid() {
		h.l.Warn(ctx, "invalid trip filter")
		failedValidationResponse(w, v.Errors)
		return
	}

	switch user.Role {
	case types.RoleCustomer:
		filter.CustomerID = &user.ID
	case types.RoleDriver:
		filter.DriverID = user.DriverID
	}

	trips, err := h.service.List(ctx, filter)
	if err != nil {
		h.l.Warn(wrap.ErrorCtx(ctx, err), "failed to list trips", "error", err.Error())
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"trips": trips, "count": len(trips)}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
	}
}

type step func(ctx context.Context, tripID int64) (*models.Trip, error)

// driverStep binds a driver-only lifecycle operation to the calling driver.
func (h *Trip) driverStep(ctx context.Context, op func(context.Context, int64, *int64) (*models.Trip, error)) step {
	driverID := actingDriver(models.UserFromContext(ctx))

	return func(ctx context.Context, tripID int64) (*models.Trip, error) {
		if driverID == nil {
			return nil, types.ErrForbidden
		}
		return op(ctx, tripID, driverID)
	}
}

func (h *Trip) transition(w http.ResponseWriter, r *http.Request, fn step) {
	ctx := r.Context()

	tripID, err := readIDParam(r, "trip_id")
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}
	ctx = wrap.WithTripID(ctx, strconv.FormatInt(tripID, 10))

	trip, err := fn(ctx, tripID)
	if err != nil {
		h.l.Warn(wrap.ErrorCtx(ctx, err), "trip transition rejected", "error", err.Error())
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"trip": trip}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
	}
}

func (h *Trip) checkOwner(ctx context.Context, user *models.User, tripID int64) error {
	trip, err := h.service.Get(ctx, tripID)
	if err != nil {
		return err
	}
	if trip.CustomerID == nil || *trip.CustomerID != user.ID {
		return types.ErrForbidden
	}
	return nil
}

// visibleTo reports whether user may read trip. Customers see their own
// trips, drivers the trips assigned to them.
func visibleTo(trip *models.Trip, user *models.User) bool {
	switch user.Role {
	case types.RoleCustomer:
		return trip.CustomerID != nil && *trip.CustomerID == user.ID
	case types.RoleDriver:
		return user.DriverID != nil && trip.AssignedTo(*user.DriverID)
	default:
		return true
	}
}

func readTripFilter(r *http.Request) (models.TripFilter, error) {
	q := r.URL.Query()

	filter := models.TripFilter{Status: types.TripStatus(q.Get("status"))}

	limit, err := readIntQuery(r, "limit", 0)
	if err != nil {
		return filter, err
	}
	filter.Limit = limit

	for name, dst := range map[string]**int64{
		"customer_id": &filter.CustomerID,
		"driver_id":   &filter.DriverID,
		"vehicle_id":  &filter.VehicleID,
	} {
		s := q.Get(name)
		if s == "" {
			continue
		}
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil || id < 1 {
			return filter, fmt.Errorf("invalid %s query parameter", name)
		}
		*dst = &id
	}

	return filter, nil
}
