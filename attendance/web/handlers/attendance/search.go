package attendance

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	core "practitrack.com/practitrack/attendance/core"
	"practitrack.com/practitrack/utils"
	web "practitrack.com/practitrack/web/common"
)

const maxRangeDays = 366

// dateRange reads from/to (yyyy-MM-dd). Missing bounds default to the last 30 days.
func (ep *Endpoint) dateRange(c *gin.Context) (time.Time, time.Time, bool) {
	to := ep.base.Processor.Today()
	from := to.AddDate(0, 0, -30)

	for _, p := range []struct {
		name string
		dst  *time.Time
	}{{"from", &from}, {"to", &to}} {
		v := c.Query(p.name)
		if v == "" {
			continue
		}
		d, err := utils.ParseDate(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, web.NewErrorResponse(fmt.Sprintf("Field '%s': %v", p.name, err)))
			return from, to, false
		}
		*p.dst = d
	}

	if from.After(to) {
		c.JSON(http.StatusBadRequest, web.NewErrorResponse("'from' must not be after 'to'"))
		return from, to, false
	}
	if to.Sub(from) > maxRangeDays*24*time.Hour {
		c.JSON(http.StatusBadRequest, web.NewErrorResponse(fmt.Sprintf("range must not exceed %d days", maxRangeDays)))
		return from, to, false
	}
	return from, to, true
}

func (ep *Endpoint) query(c *gin.Context) (core.RecordQuery, bool) {
	studentID, ok := ep.base.StudentID(c)
	if !ok {
		return core.RecordQuery{}, false
	}
	practicumID, ok := ep.base.PracticumID(c)
	if !ok {
		return core.RecordQuery{}, false
	}
	from, to, ok := ep.dateRange(c)
	if !ok {
		return core.RecordQuery{}, false
	}
	return core.RecordQuery{StudentID: studentID, PracticumID: practicumID, From: from, To: to}, true
}

func (ep *Endpoint) Search(c *gin.Context) {
	q, ok := ep.query(c)
	if !ok {
		return
	}

	records, err := ep.base.Repository.ListRecords(c.Request.Context(), q)
	if err != nil {
		ep.base.WriteError(c, err)
		return
	}

	out := utils.Map(records, present)
	c.JSON(http.StatusOK, web.NewSearchResponse(out, int64(len(out))))
}
