package pricing

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// SuggestionHandler serves GET /pricing/suggestions/:jobType[?budget=].
func SuggestionHandler(c echo.Context) error {
	r := Suggest(c.Param("jobType"))
	resp := echo.Map{"suggestion": r, "job_types": JobTypes()}

	if b := c.QueryParam("budget"); b != "" {
		budget, err := strconv.ParseInt(b, 10, 64)
		if err != nil || budget < 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "budget must be a positive number"})
		}
		resp["match"] = MatchLabel(r.JobType, budget)
	}
	return c.JSON(http.StatusOK, resp)
}
