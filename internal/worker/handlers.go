package worker

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/sudo-init-do/tradelink/internal/utils"
)

type Handler struct {
	svc *Service
	log logrus.FieldLogger
}

func NewHandler(svc *Service, log logrus.FieldLogger) *Handler {
	return &Handler{svc: svc, log: log}
}

func (h *Handler) fail(c echo.Context, err error) error {
	code := StatusCode(err)
	if code == http.StatusInternalServerError {
		h.log.WithError(err).WithField("path", c.Path()).Error("worker request failed")
		return c.JSON(code, echo.Map{"error": "internal error"})
	}
	return c.JSON(code, echo.Map{"error": err.Error()})
}

func userID(c echo.Context) string {
	uid, _ := c.Get("user_id").(string)
	return uid
}

// PUT /worker/profile
func (h *Handler) UpsertProfile(c echo.Context) error {
	var req ProfileInput
	if err := utils.BindAndValidate(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": utils.ErrorMessage(err)})
	}
	p, err := h.svc.UpsertProfile(c.Request().Context(), userID(c), req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// GET /worker/profile
func (h *Handler) GetProfile(c echo.Context) error {
	p, err := h.svc.GetProfile(c.Request().Context(), userID(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

type addDocumentRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	URL      string `json:"url" validate:"required,url"`
	Category string `json:"category" validate:"omitempty,oneof=id certificate license other"`
}

// POST /worker/documents
func (h *Handler) AddDocument(c echo.Context) error {
	var req addDocumentRequest
	if err := utils.BindAndValidate(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": utils.ErrorMessage(err)})
	}
	d, err := h.svc.AddDocument(c.Request().Context(), userID(c), req.Name, req.URL, req.Category)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, d)
}

type categoryRequest struct {
	Category string `json:"category" validate:"required,oneof=id certificate license other"`
}

// PATCH /worker/documents/:id
func (h *Handler) SetDocumentCategory(c echo.Context) error {
	var req categoryRequest
	if err := utils.BindAndValidate(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": utils.ErrorMessage(err)})
	}
	p, err := h.svc.SetDocumentCategory(c.Request().Context(), userID(c), c.Param("id"), req.Category)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// DELETE /worker/documents/:id
func (h *Handler) RemoveDocument(c echo.Context) error {
	p, err := h.svc.RemoveDocument(c.Request().Context(), userID(c), c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// POST /worker/verification
func (h *Handler) SubmitForVerification(c echo.Context) error {
	p, err := h.svc.SubmitForVerification(c.Request().Context(), userID(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusAccepted, p)
}

type availabilityRequest struct {
	Availability string `json:"availability" validate:"required"`
}

// POST /worker/availability
func (h *Handler) SetAvailability(c echo.Context) error {
	var req availabilityRequest
	if err := utils.BindAndValidate(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": utils.ErrorMessage(err)})
	}
	if err := h.svc.SetAvailability(c.Request().Context(), userID(c), Availability(req.Availability)); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"availability": req.Availability})
}

// GET /workers?trade=&verified=
func (h *Handler) ListWorkers(c echo.Context) error {
	verifiedOnly := true
	if v, err := strconv.ParseBool(c.QueryParam("verified")); err == nil {
		verifiedOnly = v
	}
	workers, err := h.svc.ListWorkers(c.Request().Context(), c.QueryParam("trade"), verifiedOnly)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"workers": workers})
}

// GET /workers/:id
func (h *Handler) GetPublicProfile(c echo.Context) error {
	p, err := h.svc.GetPublicProfile(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// POST /worker/projects
func (h *Handler) AddProject(c echo.Context) error {
	var req ProjectInput
	if err := utils.BindAndValidate(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": utils.ErrorMessage(err)})
	}
	p, err := h.svc.AddProject(c.Request().Context(), userID(c), req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

// GET /worker/projects
func (h *Handler) MyProjects(c echo.Context) error {
	projects, err := h.svc.ListProjects(c.Request().Context(), userID(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"projects": projects})
}

// DELETE /worker/projects/:id
func (h *Handler) DeleteProject(c echo.Context) error {
	if err := h.svc.DeleteProject(c.Request().Context(), userID(c), c.Param("id")); err != nil {
		return h.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// GET /workers/:id/projects
func (h *Handler) WorkerProjects(c echo.Context) error {
	projects, err := h.svc.PublicProjects(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"projects": projects})
}

// GET /projects?limit=
func (h *Handler) Feed(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	projects, err := h.svc.Feed(c.Request().Context(), limit)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"projects": projects})
}
