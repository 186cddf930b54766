package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"practitrack.com/practitrack/web/common"
	"practitrack.com/practitrack/web/middlewares"
)

const maxPhotoSize = 10 << 20

var photoTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

type ObjectStore interface {
	PutFile(ctx context.Context, bucket, key, contentType string, body io.Reader) (string, error)
}

// PhotoUploadHandler stores the multipart "photo" under the student's prefix and
// returns the reference to send as photoUrl with the next clock event.
func PhotoUploadHandler(store ObjectStore, bucket string, now func() time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		studentID, ok := middlewares.StudentID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, common.NewErrorResponse("student id missing from token"))
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxPhotoSize+(1<<20))
		file, err := c.FormFile("photo")
		if err != nil {
			c.JSON(http.StatusBadRequest, common.NewErrorResponse("Field 'photo' is required"))
			return
		}
		if file.Size > maxPhotoSize {
			c.JSON(http.StatusBadRequest, common.NewErrorResponse("photo must be at most 10 MB"))
			return
		}

		ext := strings.ToLower(filepath.Ext(file.Filename))
		contentType, ok := photoTypes[ext]
		if !ok {
			c.JSON(http.StatusBadRequest, common.NewErrorResponse("photo must be a .jpg or .png file"))
			return
		}

		src, err := file.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, common.NewErrorResponse(err.Error()))
			return
		}
		defer src.Close()

		key := fmt.Sprintf("attendance/%d/%s/%s%s", studentID, now().Format("2006-01-02"), uuid.NewString(), ext)
		ref, err := store.PutFile(c.Request.Context(), bucket, key, contentType, src)
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusBadGateway, common.NewErrorResponse("failed to store photo"))
			return
		}

		c.JSON(http.StatusCreated, common.NewSuccessResponse(gin.H{"photoUrl": ref}))
	}
}
