package attendance

import (
	"net/http"

	"github.com/gin-gonic/gin"

	core "practitrack.com/practitrack/attendance/core"
	"practitrack.com/practitrack/attendance/model"
	common "practitrack.com/practitrack/attendance/web/common"
	web "practitrack.com/practitrack/web/common"
)

type Endpoint struct {
	base *common.Handler
}

func Register(r *gin.RouterGroup, h *common.Handler) {
	endpoint := &Endpoint{base: h}
	r.POST("/attendance/clock-in", endpoint.ClockIn)
	r.POST("/attendance/clock-out", endpoint.ClockOut)
	r.GET("/attendance/today", endpoint.Today)
	r.GET("/attendance", endpoint.Search)
	r.GET("/attendance/export", endpoint.Export)
}

func (ep *Endpoint) bindClockRequest(c *gin.Context) (core.ClockRequest, bool) {
	var req core.ClockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, web.NewCodedErrorResponse(string(core.KindValidation), web.FormatBindingError(err)))
		return req, false
	}
	studentID, ok := ep.base.StudentID(c)
	if !ok {
		return req, false
	}
	req.StudentID = studentID
	return req, true
}

func (ep *Endpoint) ClockIn(c *gin.Context) {
	req, ok := ep.bindClockRequest(c)
	if !ok {
		return
	}
	rec, err := ep.base.Processor.ClockIn(c.Request.Context(), req)
	if err != nil {
		ep.base.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, web.NewSuccessResponse(present(*rec)))
}

func (ep *Endpoint) ClockOut(c *gin.Context) {
	req, ok := ep.bindClockRequest(c)
	if !ok {
		return
	}
	rec, err := ep.base.Processor.ClockOut(c.Request.Context(), req)
	if err != nil {
		ep.base.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, web.NewSuccessResponse(present(*rec)))
}

func (ep *Endpoint) Today(c *gin.Context) {
	studentID, ok := ep.base.StudentID(c)
	if !ok {
		return
	}
	practicumID, ok := ep.base.PracticumID(c)
	if !ok {
		return
	}

	rec, err := ep.base.Processor.TodayRecord(c.Request.Context(), studentID, practicumID)
	if err != nil {
		ep.base.WriteError(c, err)
		return
	}
	if rec == nil {
		c.JSON(http.StatusNotFound, web.NewCodedErrorResponse(string(core.KindNotFound), "no attendance record for today"))
		return
	}
	c.JSON(http.StatusOK, web.NewSuccessResponse(present(*rec)))
}

// RecordDTO adds the calendar date, which the stored row keeps as a DATE column.
type RecordDTO struct {
	model.AttendanceRecord
	Date string `json:"date"`
}

func present(rec model.AttendanceRecord) RecordDTO {
	rec.Status = model.NormalizeStatus(rec.Status)
	return RecordDTO{AttendanceRecord: rec, Date: rec.DateString()}
}
