package ward

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/careops/wardd/internal/platform/auth"
	"github.com/careops/wardd/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole("admin", "physician", "nurse", "registrar"))
	read.GET("/rooms", h.ListRooms)
	read.GET("/rooms/:id", h.GetRoom)
	read.GET("/rooms/:id/housekeeping", h.ListHousekeeping)

	write := api.Group("", auth.RequireRole("admin", "nurse", "registrar"))
	write.POST("/rooms", h.CreateRoom)
	write.PATCH("/rooms/:id/status", h.UpdateRoomStatus)
	write.POST("/rooms/:id/beds", h.CreateBed)
	write.DELETE("/beds/:id", h.DeleteBed)
	write.POST("/rooms/:id/housekeeping", h.LogHousekeeping)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrRoomNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "room not found")
	case errors.Is(err, ErrBedNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "bed not found")
	case errors.Is(err, ErrDuplicateRoom):
		return echo.NewHTTPError(http.StatusConflict, "room label already in use")
	case errors.Is(err, ErrDuplicateBedLabel):
		return echo.NewHTTPError(http.StatusConflict, "bed label already in use in this room")
	case errors.Is(err, ErrBedOccupied):
		return echo.NewHTTPError(http.StatusConflict, "bed has an active assignment")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) CreateRoom(c echo.Context) error {
	var room Room
	if err := c.Bind(&room); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateRoom(c.Request().Context(), &room); err != nil {
		if errors.Is(err, ErrDuplicateRoom) {
			return httpError(err)
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, room)
}

func (h *Handler) GetRoom(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	detail, err := h.svc.GetRoom(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, detail)
}

func (h *Handler) ListRooms(c echo.Context) error {
	pg := pagination.FromContext(c)
	rooms, total, err := h.svc.ListRooms(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(rooms, total, pg.Limit, pg.Offset))
}

type updateRoomStatusRequest struct {
	Status string  `json:"status"`
	Notes  *string `json:"notes,omitempty"`
}

func (h *Handler) UpdateRoomStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req updateRoomStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	room, err := h.svc.UpdateRoomStatus(c.Request().Context(), id, req.Status, req.Notes)
	if err != nil {
		if errors.Is(err, ErrRoomNotFound) {
			return httpError(err)
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, room)
}

type createBedRequest struct {
	Label string `json:"label"`
}

func (h *Handler) CreateBed(c echo.Context) error {
	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req createBedRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	bed, err := h.svc.CreateBed(c.Request().Context(), roomID, req.Label)
	if err != nil {
		if errors.Is(err, ErrRoomNotFound) || errors.Is(err, ErrDuplicateBedLabel) {
			return httpError(err)
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, bed)
}

func (h *Handler) DeleteBed(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteBed(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) LogHousekeeping(c echo.Context) error {
	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var hk HousekeepingLog
	if err := c.Bind(&hk); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	hk.RoomID = roomID
	if err := h.svc.LogHousekeeping(c.Request().Context(), &hk); err != nil {
		if errors.Is(err, ErrRoomNotFound) {
			return httpError(err)
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, hk)
}

func (h *Handler) ListHousekeeping(c echo.Context) error {
	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	pg := pagination.FromContext(c)
	logs, total, err := h.svc.ListHousekeeping(c.Request().Context(), roomID, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(logs, total, pg.Limit, pg.Offset))
}
