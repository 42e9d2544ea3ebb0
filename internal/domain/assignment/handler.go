package assignment

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/careops/wardd/internal/platform/auth"
	"github.com/careops/wardd/pkg/pagination"
)

type Handler struct {
	svc     *Service
	sweeper *Sweeper
}

func NewHandler(svc *Service, sweeper *Sweeper) *Handler {
	return &Handler{svc: svc, sweeper: sweeper}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole("admin", "physician", "nurse", "registrar"))
	read.GET("/rooms/:id/assignments", h.RoomHistory)
	read.GET("/assignments/:id", h.GetAssignment)

	write := api.Group("", auth.RequireRole("admin", "nurse", "registrar"))
	write.POST("/assignments", h.CreateAssignment)
	write.POST("/assignments/release", h.ReleaseAssignment)

	admin := api.Group("", auth.RequireRole("admin"))
	admin.POST("/assignments/sweep", h.Sweep)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrRoomNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "room not found")
	case errors.Is(err, ErrPatientNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	case errors.Is(err, ErrBedNotInRoom):
		return echo.NewHTTPError(http.StatusNotFound, "bed not found in room")
	case errors.Is(err, ErrAssignmentNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "assignment not found")
	case errors.Is(err, ErrPatientAlreadyAssigned):
		return echo.NewHTTPError(http.StatusConflict, "patient already holds an active assignment")
	case errors.Is(err, ErrBedUnavailable):
		return echo.NewHTTPError(http.StatusConflict, "bed is not available")
	case errors.Is(err, ErrNoAvailableBeds):
		return echo.NewHTTPError(http.StatusConflict, "no available beds in room")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) CreateAssignment(c echo.Context) error {
	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	detail, err := h.svc.Create(c.Request().Context(), req)
	if err != nil {
		if errors.Is(err, ErrRoomNotFound) || errors.Is(err, ErrPatientNotFound) ||
			errors.Is(err, ErrBedNotInRoom) || errors.Is(err, ErrPatientAlreadyAssigned) ||
			errors.Is(err, ErrBedUnavailable) || errors.Is(err, ErrNoAvailableBeds) {
			return httpError(err)
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, detail)
}

func (h *Handler) ReleaseAssignment(c echo.Context) error {
	var req ReleaseRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	bed, err := h.svc.Release(c.Request().Context(), req)
	if err != nil {
		if errors.Is(err, ErrAssignmentNotFound) {
			return httpError(err)
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, bed)
}

func (h *Handler) GetAssignment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) RoomHistory(c echo.Context) error {
	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	pg := pagination.FromContext(c)
	history, total, err := h.svc.History(c.Request().Context(), roomID, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(history, total, pg.Limit, pg.Offset))
}

func (h *Handler) Sweep(c echo.Context) error {
	released := h.sweeper.SweepOnce(c.Request().Context())
	return c.JSON(http.StatusOK, map[string]int{"released": released})
}
