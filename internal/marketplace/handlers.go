package marketplace

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/sudo-init-do/tradelink/internal/user"
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
		h.log.WithError(err).WithField("path", c.Path()).Error("marketplace request failed")
		return c.JSON(code, echo.Map{"error": "internal error"})
	}
	return c.JSON(code, echo.Map{"error": err.Error()})
}

func caller(c echo.Context) (string, string) {
	uid, _ := c.Get("user_id").(string)
	role, _ := c.Get("role").(string)
	return uid, role
}

func bindJob(c echo.Context) (JobInput, error) {
	var in JobInput
	err := utils.BindAndValidate(c, &in)
	return in, err
}

// POST /jobs
func (h *Handler) CreateJob(c echo.Context) error {
	in, err := bindJob(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": utils.ErrorMessage(err)})
	}
	uid, _ := caller(c)
	j, err := h.svc.CreateJob(c.Request().Context(), uid, in)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, j)
}

// POST /jobs/drafts
func (h *Handler) SaveDraft(c echo.Context) error {
	in, err := bindJob(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": utils.ErrorMessage(err)})
	}
	uid, _ := caller(c)
	j, err := h.svc.SaveDraft(c.Request().Context(), uid, in)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, j)
}

// PUT /jobs/:id/draft
func (h *Handler) UpdateDraft(c echo.Context) error {
	in, err := bindJob(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": utils.ErrorMessage(err)})
	}
	uid, _ := caller(c)
	j, err := h.svc.UpdateDraft(c.Request().Context(), uid, c.Param("id"), in)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, j)
}

// POST /jobs/:id/publish
func (h *Handler) PublishJob(c echo.Context) error {
	uid, _ := caller(c)
	j, err := h.svc.PublishJob(c.Request().Context(), uid, c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, j)
}

// GET /jobs/mine?status=
func (h *Handler) MyJobs(c echo.Context) error {
	uid, role := caller(c)
	ctx := c.Request().Context()

	var (
		jobs []Job
		err  error
	)
	status := Status(c.QueryParam("status"))
	if role == user.RoleWorker {
		jobs, err = h.svc.ListWorkerJobs(ctx, uid, status)
	} else {
		jobs, err = h.svc.ListCustomerJobs(ctx, uid, status)
	}
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, jobs)
}

// GET /jobs/available?trade=
func (h *Handler) AvailableJobs(c echo.Context) error {
	uid, _ := caller(c)
	jobs, err := h.svc.ListAvailableJobs(c.Request().Context(), uid, c.QueryParam("trade"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, jobs)
}

// GET /jobs/:id
func (h *Handler) GetJob(c echo.Context) error {
	uid, role := caller(c)
	j, err := h.svc.GetJob(c.Request().Context(), uid, role, c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, j)
}

// POST /jobs/:id/withdraw
func (h *Handler) WithdrawJob(c echo.Context) error {
	uid, _ := caller(c)
	j, err := h.svc.WithdrawJob(c.Request().Context(), uid, c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, j)
}

// POST /jobs/:id/complete
func (h *Handler) ConfirmCompletion(c echo.Context) error {
	uid, _ := caller(c)
	j, err := h.svc.ConfirmCompletion(c.Request().Context(), uid, c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, j)
}

// GET /jobs/:id/timeline
func (h *Handler) Timeline(c echo.Context) error {
	uid, role := caller(c)
	evts, err := h.svc.Timeline(c.Request().Context(), uid, role, c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, evts)
}

// GET /jobs/:id/offers
func (h *Handler) ListOffers(c echo.Context) error {
	uid, _ := caller(c)
	offers, err := h.svc.ListOffers(c.Request().Context(), uid, c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, offers)
}

type offerRequest struct {
	Amount  int64  `json:"amount" validate:"gte=0"`
	Message string `json:"message" validate:"max=1000"`
}

// POST /jobs/:id/offers
func (h *Handler) SubmitOffer(c echo.Context) error {
	var req offerRequest
	if err := utils.BindAndValidate(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": utils.ErrorMessage(err)})
	}
	uid, _ := caller(c)
	o, err := h.svc.SubmitOffer(c.Request().Context(), uid, c.Param("id"), req.Amount, req.Message)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, o)
}

type inviteRequest struct {
	WorkerID string `json:"worker_id" validate:"required,uuid"`
	Amount   int64  `json:"amount" validate:"gte=0"`
	Message  string `json:"message" validate:"max=1000"`
}

// POST /jobs/:id/invite
func (h *Handler) InviteWorker(c echo.Context) error {
	var req inviteRequest
	if err := utils.BindAndValidate(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": utils.ErrorMessage(err)})
	}
	uid, _ := caller(c)
	o, err := h.svc.InviteWorker(c.Request().Context(), uid, c.Param("id"), req.WorkerID, req.Amount, req.Message)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, o)
}

// POST /offers/:id/accept
func (h *Handler) AcceptOffer(c echo.Context) error {
	uid, _ := caller(c)
	res, err := h.svc.AcceptOffer(c.Request().Context(), uid, c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// POST /offers/:id/decline
func (h *Handler) DeclineOffer(c echo.Context) error {
	uid, _ := caller(c)
	o, err := h.svc.DeclineOffer(c.Request().Context(), uid, c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, o)
}

type reviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=1000"`
}

// POST /jobs/:id/reviews
func (h *Handler) CreateReview(c echo.Context) error {
	var req reviewRequest
	if err := utils.BindAndValidate(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": utils.ErrorMessage(err)})
	}
	uid, _ := caller(c)
	rv, err := h.svc.CreateReview(c.Request().Context(), uid, c.Param("id"), req.Rating, req.Comment)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, rv)
}

// GET /jobs/:id/reviews
func (h *Handler) JobReviews(c echo.Context) error {
	reviews, err := h.svc.ListJobReviews(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, reviews)
}

// GET /users/:id/reviews?page=&limit=
func (h *Handler) UserReviews(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 50 {
		limit = 10
	}
	reviews, summary, err := h.svc.ListUserReviews(c.Request().Context(), c.Param("id"), page, limit)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"summary": summary,
		"reviews": reviews,
		"pagination": echo.Map{
			"page":  page,
			"limit": limit,
			"total": summary.TotalReviews,
		},
	})
}
