package controllers

import (
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kaanyildiz/hwboard/internal/app/models/dto"
	"github.com/kaanyildiz/hwboard/internal/app/services"
	"github.com/kaanyildiz/hwboard/internal/middleware"
)

// parseIDParam parses an ID parameter from the request path
func parseIDParam(ctx *gin.Context, paramName string) (int64, error) {
	idStr := ctx.Param(paramName)
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		return 0, err
	}
	return id, nil
}

// formFiles extracts the uploaded attachment parts, if any.
func formFiles(ctx *gin.Context) []*multipart.FileHeader {
	form, err := ctx.MultipartForm()
	if err != nil || form == nil {
		return nil
	}
	return form.File["attachments"]
}

// HomeworkController handles homework CRUD and attachment downloads
type HomeworkController struct {
	homeworkService services.HomeworkService
}

// NewHomeworkController creates a new HomeworkController
func NewHomeworkController(homeworkService services.HomeworkService) *HomeworkController {
	return &HomeworkController{homeworkService: homeworkService}
}

// ListHomeworks returns every homework grouped by subject.
func (c *HomeworkController) ListHomeworks(ctx *gin.Context) {
	grouped, err := c.homeworkService.ListGroupedBySubject(ctx)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, grouped)
}

// CreateHomework creates a homework from multipart form fields plus any
// uploaded attachments.
func (c *HomeworkController) CreateHomework(ctx *gin.Context) {
	var req dto.HomeworkRequest
	if err := ctx.ShouldBind(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request format"})
		return
	}

	resp, err := c.homeworkService.Create(ctx, &req, formFiles(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, resp)
}

// UpdateHomework overwrites the mutable fields of an existing homework and
// appends any newly uploaded attachments.
func (c *HomeworkController) UpdateHomework(ctx *gin.Context) {
	id, err := parseIDParam(ctx, "id")
	if err != nil || id <= 0 {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid homework ID"})
		return
	}

	var req dto.HomeworkRequest
	if err := ctx.ShouldBind(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request format"})
		return
	}

	resp, err := c.homeworkService.Update(ctx, id, &req, formFiles(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, resp)
}

// DeleteHomework removes a homework together with its attachments.
func (c *HomeworkController) DeleteHomework(ctx *gin.Context) {
	id, err := parseIDParam(ctx, "id")
	if err != nil || id <= 0 {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid homework ID"})
		return
	}

	if err := c.homeworkService.Delete(ctx, id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.MessageResponse{Message: "homework deleted"})
}

// DownloadAttachment serves a stored attachment file as a download.
func (c *HomeworkController) DownloadAttachment(ctx *gin.Context) {
	storedName := ctx.Param("filename")

	fullPath, err := c.homeworkService.AttachmentPath(storedName)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.FileAttachment(fullPath, filepath.Base(storedName))
}
