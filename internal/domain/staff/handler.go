package staff

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
	read.GET("/staff", h.ListStaffRoles)
	read.GET("/staff/:id", h.GetStaffRole)

	write := api.Group("", auth.RequireRole("admin"))
	write.POST("/staff", h.CreateStaffRole)
	write.DELETE("/staff/:id", h.DeactivateStaffRole)
}

func (h *Handler) CreateStaffRole(c echo.Context) error {
	var sr StaffRole
	if err := c.Bind(&sr); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateStaffRole(c.Request().Context(), &sr); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, sr)
}

func (h *Handler) GetStaffRole(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	sr, err := h.svc.GetStaffRole(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrStaffNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "staff role not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, sr)
}

func (h *Handler) ListStaffRoles(c echo.Context) error {
	pg := pagination.FromContext(c)
	roles, total, err := h.svc.ListStaffRoles(c.Request().Context(), c.QueryParam("role"), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(roles, total, pg.Limit, pg.Offset))
}

func (h *Handler) DeactivateStaffRole(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeactivateStaffRole(c.Request().Context(), id); err != nil {
		if errors.Is(err, ErrStaffNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "staff role not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
