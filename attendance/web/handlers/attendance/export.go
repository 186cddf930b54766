package attendance

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	core "practitrack.com/practitrack/attendance/core"
	"practitrack.com/practitrack/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Export downloads the daily time record for the range as a workbook.
func (ep *Endpoint) Export(c *gin.Context) {
	q, ok := ep.query(c)
	if !ok {
		return
	}

	records, err := ep.base.Repository.ListRecords(c.Request.Context(), q)
	if err != nil {
		ep.base.WriteError(c, err)
		return
	}

	title := fmt.Sprintf("Daily Time Record: student %d, practicum %d, %s to %s",
		q.StudentID, q.PracticumID, q.From.Format(utils.DateLayout), q.To.Format(utils.DateLayout))

	var buf bytes.Buffer
	if err := core.WriteDailyTimeRecord(&buf, title, records, ep.base.Location); err != nil {
		ep.base.WriteError(c, err)
		return
	}

	name := core.ExportFileName(q.StudentID, q.PracticumID, q.From, q.To)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
