package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Temutjin2k/taxi-dispatch/internal/adapter/http/handler/dto"
	"github.com/Temutjin2k/taxi-dispatch/internal/domain/models"
	"github.com/Temutjin2k/taxi-dispatch/internal/domain/types"
	"github.com/Temutjin2k/taxi-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/taxi-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/taxi-dispatch/pkg/validator"
)

const defaultHistoryHours = 24

type TrackingService interface {
	Ingest(ctx context.Context, vehicleID int64, fix models.Fix) (*models.Fix, error)
	LiveLocations(ctx context.Context) ([]*models.Fix, error)
	History(ctx context.Context, vehicleID int64, hours int) ([]*models.Fix, error)
}

type Tracking struct {
	service TrackingService
	l       logger.Logger
}

func NewTracking(service TrackingService, l logger.Logger) *Tracking {
	return &Tracking{
		service: service,
		l:       l,
	}
}

// UpdateLocation godoc
// @Summary      Report a vehicle location
// @Description  Stores a GPS fix and pushes it to tracking subscribers
// @Tags         tracking
// @Accept       json
// @Produce      json
// @Param        request body dto.LocationReq true "GPS fix"
// @Success      201 {object} map[string]interface{} "Stored fix"
// @Failure      404 {object} map[string]interface{} "Vehicle not found"
// @Failure      422 {object} map[string]interface{} "Validation error"
// @Router       /api/v1/tracking/location [post]
func (h *Tracking) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionIngestFix)

	var req dto.LocationReq
	if err := readJSON(w, r, &req); err != nil {
		h.l.Warn(ctx, "failed to read request JSON data", "error", err.Error())
		badRequestResponse(w, err.Error())
		return
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		h.l.Warn(ctx, "invalid request data")
		failedValidationResponse(w, v.Errors)
		return
	}
	ctx = wrap.WithVehicleID(ctx, strconv.FormatInt(req.VehicleID, 10))

	fix, err := h.service.Ingest(ctx, req.VehicleID, req.ToModel())
	if err != nil {
		h.l.Warn(wrap.ErrorCtx(ctx, err), "failed to ingest location", "error", err.Error())
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, envelope{"location": fix}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
	}
}

// LiveLocations godoc
// @Summary      Live vehicle locations
// @Description  Latest fresh fix of every vehicle, newest first
// @Tags         tracking
// @Produce      json
// @Success      200 {object} map[string]interface{} "Locations"
// @Security     BearerAuth
// @Router       /api/v1/tracking/live [get]
func (h *Tracking) LiveLocations(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "live_locations")

	fixes, err := h.service.LiveLocations(ctx)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to load live locations", err)
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"locations": fixes, "count": len(fixes)}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
	}
}

// History godoc
// @Summary      Vehicle location history
// @Tags         tracking
// @Produce      json
// @Param        vehicle_id path  int true  "Vehicle ID"
// @Param        hours      query int false "Look-back window in hours (1..168)" default(24)
// @Success      200 {object} map[string]interface{} "Locations"
// @Failure      404 {object} map[string]interface{} "Vehicle not found"
// @Failure      422 {object} map[string]interface{} "Invalid window"
// @Security     BearerAuth
// @Router       /api/v1/tracking/vehicle/{vehicle_id}/history [get]
func (h *Tracking) History(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "location_history")

	vehicleID, err := readIDParam(r, "vehicle_id")
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}
	ctx = wrap.WithVehicleID(ctx, strconv.FormatInt(vehicleID, 10))

	hours, err := readIntQuery(r, "hours", defaultHistoryHours)
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	fixes, err := h.service.History(ctx, vehicleID, hours)
	if err != nil {
		h.l.Warn(wrap.ErrorCtx(ctx, err), "failed to load location history", "error", err.Error())
		serviceErrorResponse(w, err)
		return
	}

	response := envelope{
		"vehicle_id": vehicleID,
		"hours":      hours,
		"locations":  fixes,
		"count":      len(fixes),
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
	}
}
