package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sticker-studio/sticker-studio-api/logger"
	"github.com/sticker-studio/sticker-studio-api/services"
	"github.com/sticker-studio/sticker-studio-api/utils"
)

// maxUploadBody caps the whole form. Files between MaxFileSize and this cap
// reach the validator and get its FILE_TOO_LARGE error.
const maxUploadBody = 2 * utils.MaxFileSize

type UploadController struct {
	files services.DesignFileService
	log   *logger.Logger
}

func NewUploadController(files services.DesignFileService, baseLog *logger.Logger) *UploadController {
	return &UploadController{files: files, log: baseLog.With("controller", "uploads")}
}

// UploadDesignFile handles POST /api/upload-design-file. The form carries
// the file under "file" and optionally designRequestId and questionId.
func (h *UploadController) UploadDesignFile(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBody)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondServiceError(c, h.log, utils.FileTooLarge(), "upload file")
			return
		}
		respondError(c, http.StatusBadRequest, "NO_FILE", "No file was uploaded")
		return
	}

	requestID, ok := parseOptionalUUID(c, c.PostForm("designRequestId"), "designRequestId")
	if !ok {
		return
	}
	questionID, ok := parseOptionalUUID(c, c.PostForm("questionId"), "questionId")
	if !ok {
		return
	}

	result, err := h.files.Upload(c.Request.Context(), services.DesignFileUpload{
		File:            fileHeader,
		DesignRequestID: requestID,
		QuestionID:      questionID,
	})
	if err != nil {
		respondServiceError(c, h.log, err, "upload file")
		return
	}
	respondOK(c, http.StatusOK, result)
}
