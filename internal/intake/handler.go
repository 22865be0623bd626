package intake

import (
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ats-backend/internal/capabilities"
	"ats-backend/internal/shared/server/middleware"
	"ats-backend/internal/shared/server/respond"
)

// Handler exposes the bulk intake endpoints.
type Handler struct {
	Service *Service
	limiter *pollLimiter
}

// NewHandler constructs a Handler with the default poll window.
func NewHandler(svc *Service) *Handler {
	return &Handler{
		Service: svc,
		limiter: newPollLimiter(time.Second),
	}
}

// RegisterRoutes attaches intake routes, gated by caller capabilities.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, caps *capabilities.Resolver) {
	rg.POST("/candidates/bulk", capabilities.Require(caps, capabilities.CandidatesBulk), h.bulk)
	rg.POST("/candidates/bulk-async", capabilities.Require(caps, capabilities.CandidatesBulk), h.bulkAsync)
	rg.GET("/upload-tasks/:id", capabilities.Require(caps, capabilities.TasksPoll), h.taskStatus)
}

type parsedUpload struct {
	policy  DuplicatePolicy
	headers []*multipart.FileHeader
}

func (h *Handler) parseUpload(c *gin.Context) (parsedUpload, bool) {
	form, err := c.MultipartForm()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_form", "could not parse multipart form", nil)
		return parsedUpload{}, false
	}

	policy, err := ParsePolicy(c.PostForm("policy"))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_policy", err.Error(), nil)
		return parsedUpload{}, false
	}

	headers := form.File["files"]
	metas := make([]FileMeta, 0, len(headers))
	for _, fh := range headers {
		metas = append(metas, FileMeta{Name: fh.Filename, Size: fh.Size})
	}
	if problems := h.Service.ValidateBatch(metas); len(problems) > 0 {
		respond.Error(c, http.StatusBadRequest, "invalid_batch", "batch validation failed", problems)
		return parsedUpload{}, false
	}
	return parsedUpload{policy: policy, headers: headers}, true
}

func openIncoming(headers []*multipart.FileHeader) ([]IncomingFile, func(), error) {
	files := make([]IncomingFile, 0, len(headers))
	var opened []multipart.File
	closeAll := func() {
		for _, f := range opened {
			f.Close()
		}
	}
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		opened = append(opened, f)
		files = append(files, IncomingFile{Name: fh.Filename, Size: fh.Size, Reader: f})
	}
	return files, closeAll, nil
}

// bulk handles the synchronous path. Batches above the async thresholds are
// refused with a pointer at the async endpoint.
func (h *Handler) bulk(c *gin.Context) {
	upload, ok := h.parseUpload(c)
	if !ok {
		return
	}

	var total int64
	for _, fh := range upload.headers {
		total += fh.Size
	}
	if UseAsync(len(upload.headers), total) {
		respond.Error(c, http.StatusRequestEntityTooLarge, "use_async",
			"batch exceeds synchronous limits, submit via /candidates/bulk-async", gin.H{
				"file_count":  len(upload.headers),
				"total_bytes": total,
			})
		return
	}

	files, closeAll, err := openIncoming(upload.headers)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "unreadable_upload", "could not read uploaded file", nil)
		return
	}
	defer closeAll()

	userID := middleware.UserIDFromContext(c)
	result, err := h.Service.ProcessSync(c.Request.Context(), userID, upload.policy, files)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "upload_failed", "bulk upload failed", nil)
		return
	}
	respond.OK(c, result)
}

// bulkAsync handles the asynchronous path: files are staged during the
// request, then processed in the background under an upload task.
func (h *Handler) bulkAsync(c *gin.Context) {
	upload, ok := h.parseUpload(c)
	if !ok {
		return
	}

	files, closeAll, err := openIncoming(upload.headers)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "unreadable_upload", "could not read uploaded file", nil)
		return
	}
	defer closeAll()

	userID := middleware.UserIDFromContext(c)
	task, err := h.Service.StartAsync(c.Request.Context(), userID, upload.policy, files, c.GetString("requestId"))
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "upload_failed", "could not start bulk upload", nil)
		return
	}

	respond.JSON(c, http.StatusAccepted, gin.H{
		"task_id":    task.ID,
		"status":     task.Status,
		"file_count": len(task.Files),
	})
}

type taskStatusResponse struct {
	TaskID   string  `json:"task_id"`
	Status   string  `json:"status"`
	Progress int     `json:"progress"`
	Result   *Result `json:"result,omitempty"`
	Error    string  `json:"error,omitempty"`
}

// taskStatus reports an upload task's progress. Polling is throttled per
// caller and task.
func (h *Handler) taskStatus(c *gin.Context) {
	taskID := c.Param("id")
	userID := middleware.UserIDFromContext(c)

	if !h.limiter.Allow(userID + ":" + taskID) {
		c.Header("Retry-After", "1")
		respond.Error(c, http.StatusTooManyRequests, "poll_too_fast", "status polling is limited to one request per second", nil)
		return
	}

	task, err := h.Service.GetTask(c.Request.Context(), userID, taskID)
	if err != nil {
		respond.Error(c, http.StatusNotFound, "task_not_found", "upload task not found", nil)
		return
	}

	respond.OK(c, taskStatusResponse{
		TaskID:   task.ID,
		Status:   task.Status,
		Progress: task.Progress,
		Result:   task.Result,
		Error:    task.ErrorMessage,
	})
}
