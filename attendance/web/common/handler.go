package common

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	attendance "practitrack.com/practitrack/attendance/core"
	web "practitrack.com/practitrack/web/common"
	"practitrack.com/practitrack/web/middlewares"
)

type Handler struct {
	Processor  *attendance.Processor
	Scheduler  *attendance.AbsenceScheduler
	Repository attendance.Repository
	Location   *time.Location
	Log        *zap.Logger
}

var statusByKind = map[attendance.ErrorKind]int{
	attendance.KindValidation:  http.StatusBadRequest,
	attendance.KindConflict:    http.StatusConflict,
	attendance.KindBadRequest:  http.StatusBadRequest,
	attendance.KindNotFound:    http.StatusNotFound,
	attendance.KindNotEligible: http.StatusForbidden,
}

// StatusOf maps domain errors to HTTP statuses; anything else is a 500.
func StatusOf(err error) (int, attendance.ErrorKind) {
	if kind, ok := attendance.KindOf(err); ok {
		if status, ok := statusByKind[kind]; ok {
			return status, kind
		}
	}
	return http.StatusInternalServerError, ""
}

func (h *Handler) WriteError(c *gin.Context, err error) {
	status, kind := StatusOf(err)
	if status == http.StatusInternalServerError {
		h.Log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(status, web.NewErrorResponse("internal server error"))
		return
	}
	c.JSON(status, web.NewCodedErrorResponse(string(kind), err.Error()))
}

// StudentID writes a 401 when the token carried no student.
func (h *Handler) StudentID(c *gin.Context) (int32, bool) {
	id, ok := middlewares.StudentID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, web.NewErrorResponse("student id missing from token"))
	}
	return id, ok
}

// PracticumID reads the practicumId query parameter, writing a 400 when invalid.
func (h *Handler) PracticumID(c *gin.Context) (int32, bool) {
	v, err := strconv.ParseInt(c.Query("practicumId"), 10, 32)
	if err != nil || v <= 0 {
		c.JSON(http.StatusBadRequest, web.NewErrorResponse("Field 'practicumId' is required"))
		return 0, false
	}
	return int32(v), true
}
