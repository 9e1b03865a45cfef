package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/escrow-backend/internal/dto"
	"github.com/ignatzorin/escrow-backend/internal/http/handlers/common"
	"github.com/ignatzorin/escrow-backend/internal/models"
	"github.com/ignatzorin/escrow-backend/internal/service"
	"github.com/ignatzorin/escrow-backend/internal/storage"
)

// DeliverableHandler обслуживает сдачу и проверку работы.
type DeliverableHandler struct {
	deliverables *service.DeliverableService
	files        *storage.FileStorage
}

// NewDeliverableHandler создаёт новый хэндлер результатов работы.
func NewDeliverableHandler(deliverables *service.DeliverableService, files *storage.FileStorage) *DeliverableHandler {
	return &DeliverableHandler{deliverables: deliverables, files: files}
}

// Submit POST /projects/:id/deliverables (multipart/form-data)
// Поле description обязательно, файлы передаются в поле files.
func (h *DeliverableHandler) Submit(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	projectID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	description := c.PostForm("description")

	form, err := c.MultipartForm()
	if err != nil {
		common.RespondBadRequest(c, "ожидается multipart/form-data")
		return
	}

	var files []models.DeliverableFile
	for _, header := range form.File["files"] {
		src, err := header.Open()
		if err != nil {
			common.RespondBadRequest(c, "не удалось прочитать файл "+header.Filename)
			return
		}

		saved, err := h.files.Save(c.Request.Context(), projectID, header.Filename, src)
		_ = src.Close()
		if err != nil {
			common.RespondBadRequest(c, err.Error())
			return
		}

		files = append(files, models.DeliverableFile{
			Name:        header.Filename,
			Path:        saved.Path,
			Size:        saved.Size,
			ContentType: saved.ContentType,
		})
	}

	deliverable, err := h.deliverables.Submit(c.Request.Context(), userID, projectID, description, files)
	if err != nil {
		// Сдача не прошла, подчищаем уже сохранённые файлы
		for _, f := range files {
			_ = h.files.Delete(c.Request.Context(), f.Path)
		}
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, deliverable)
}

// ListByProject GET /projects/:id/deliverables
func (h *DeliverableHandler) ListByProject(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	projectID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	deliverables, err := h.deliverables.ListProjectDeliverables(c.Request.Context(), userID, projectID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deliverables": deliverables})
}

// Get GET /deliverables/:id
func (h *DeliverableHandler) Get(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	deliverableID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	deliverable, err := h.deliverables.GetDeliverable(c.Request.Context(), userID, deliverableID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, deliverable)
}

// Approve POST /deliverables/:id/approve
func (h *DeliverableHandler) Approve(c *gin.Context) {
	h.review(c, true)
}

// RequestRevision POST /deliverables/:id/request-revision
func (h *DeliverableHandler) RequestRevision(c *gin.Context) {
	h.review(c, false)
}

func (h *DeliverableHandler) review(c *gin.Context, approve bool) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	deliverableID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.ReviewDeliverableRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		common.RespondBadRequest(c, "некорректное тело запроса")
		return
	}

	var deliverable *models.Deliverable
	if approve {
		deliverable, err = h.deliverables.Approve(c.Request.Context(), userID, deliverableID, req.Feedback)
	} else {
		deliverable, err = h.deliverables.RequestRevision(c.Request.Context(), userID, deliverableID, req.Feedback)
	}
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, deliverable)
}

// DownloadFile GET /deliverables/:id/files/:fileId
func (h *DeliverableHandler) DownloadFile(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	deliverableID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}
	fileID, err := common.ParseUUIDParam(c, "fileId")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	deliverable, err := h.deliverables.GetDeliverable(c.Request.Context(), userID, deliverableID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	for _, f := range deliverable.Files {
		if f.ID == fileID {
			src, err := h.files.Open(c.Request.Context(), f.Path)
			if err != nil {
				common.RespondError(c, http.StatusNotFound, "файл не найден")
				return
			}
			defer src.Close()

			c.Header("Content-Disposition", `attachment; filename="`+f.Name+`"`)
			c.DataFromReader(http.StatusOK, f.Size, f.ContentType, src, nil)
			return
		}
	}

	common.RespondError(c, http.StatusNotFound, "файл не найден")
}
