package absences

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	common "practitrack.com/practitrack/attendance/web/common"
	web "practitrack.com/practitrack/web/common"
)

type Endpoint struct {
	base *common.Handler
}

func Register(r *gin.RouterGroup, h *common.Handler) {
	endpoint := &Endpoint{base: h}
	r.POST("/absences", endpoint.Create)
}

type CreateAbsencesDTO struct {
	Date *web.DateOnly `json:"date,omitempty"`
}

// Create backfills absent records for one day, yesterday when no date is given.
func (ep *Endpoint) Create(c *gin.Context) {
	var params CreateAbsencesDTO
	if err := c.ShouldBindJSON(&params); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, web.NewErrorResponse(web.FormatBindingError(err)))
		return
	}

	result, err := ep.base.Scheduler.CreateAbsentRecordsForDate(c.Request.Context(), params.Date.Ptr())
	if err != nil {
		ep.base.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, web.NewSuccessResponse(result))
}
