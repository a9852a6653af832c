// Package http provides HTTP handlers for masking tasks: mask a document, download the
// masked artifact and its restoration metadata, and restore the original with a key file.
package http

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	detectionService "github.com/allisson/piimask/internal/detection/service"
	apperrors "github.com/allisson/piimask/internal/errors"
	"github.com/allisson/piimask/internal/httputil"
	metadataService "github.com/allisson/piimask/internal/metadata/service"
	spanDomain "github.com/allisson/piimask/internal/span/domain"
	taskDomain "github.com/allisson/piimask/internal/task/domain"
	"github.com/allisson/piimask/internal/task/http/dto"
	taskUseCase "github.com/allisson/piimask/internal/task/usecase"
	customValidation "github.com/allisson/piimask/internal/validation"
)

// Multipart field names.
const (
	fieldDocument       = "document"
	fieldSpans          = "spans"
	fieldMaskedArtifact = "masked_artifact"
	fieldMetadataFile   = "metadata_file"
	fieldKeyFile        = "key_file"
)

// Response headers set on restored content.
const (
	headerTaskID        = "X-Task-ID"
	headerRestoredSpans = "X-Restored-Spans"
)

// TaskHandler handles HTTP requests for masking tasks.
type TaskHandler struct {
	taskUseCase taskUseCase.TaskUseCase
	logger      *slog.Logger
}

// NewTaskHandler creates a new task handler with required dependencies.
func NewTaskHandler(taskUseCase taskUseCase.TaskUseCase, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{
		taskUseCase: taskUseCase,
		logger:      logger,
	}
}

// MaskHandler masks a document and stores the resulting task.
// POST /v1/tasks - accepts JSON (base64 content) or multipart/form-data (document file).
// Returns 201 Created with the task and the key file. The key file is never shown again.
func (h *TaskHandler) MaskHandler(c *gin.Context) {
	var (
		input *taskDomain.MaskInput
		err   error
	)
	if isMultipart(c) {
		input, err = h.bindMaskForm(c)
	} else {
		input, err = h.bindMaskJSON(c)
	}
	if err != nil {
		h.handleBindError(c, err)
		return
	}

	out, err := h.taskUseCase.Mask(c.Request.Context(), input)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusCreated, dto.MapMaskOutputToResponse(out))
}

func (h *TaskHandler) bindMaskJSON(c *gin.Context) (*taskDomain.MaskInput, error) {
	var req dto.MaskTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, customValidation.WrapValidationError(err)
	}
	return req.ToMaskInput()
}

func (h *TaskHandler) bindMaskForm(c *gin.Context) (*taskDomain.MaskInput, error) {
	content, name, err := readFormFile(c, fieldDocument)
	if err != nil {
		return nil, err
	}

	opts := dto.MaskOptions{
		Format:           c.PostForm("format"),
		Categories:       splitList(c.PostFormArray("categories")),
		Algorithm:        c.PostForm("algorithm"),
		PlaceholderStyle: c.PostForm("placeholder_style"),
	}
	if opts.AllCategories, err = formBool(c, "all_categories"); err != nil {
		return nil, err
	}
	if raw, ok := c.GetPostForm("preserve_regions"); ok {
		preserve, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("preserve_regions: must be a boolean")
		}
		opts.PreserveRegions = &preserve
	}
	if err := opts.Validate(); err != nil {
		return nil, customValidation.WrapValidationError(err)
	}

	var spans []spanDomain.Span
	if raw, ok := c.GetPostForm(fieldSpans); ok {
		if spans, err = detectionService.DecodeSpans(strings.NewReader(raw)); err != nil {
			return nil, err
		}
	}
	return opts.ToMaskInput(name, content, spans)
}

// GetHandler returns a task by id.
// GET /v1/tasks/:id
func (h *TaskHandler) GetHandler(c *gin.Context) {
	taskID, ok := h.parseTaskID(c)
	if !ok {
		return
	}

	task, err := h.taskUseCase.Get(c.Request.Context(), taskID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapTaskToResponse(task))
}

// GetArtifactHandler downloads the masked artifact of a task.
// GET /v1/tasks/:id/artifact
func (h *TaskHandler) GetArtifactHandler(c *gin.Context) {
	taskID, ok := h.parseTaskID(c)
	if !ok {
		return
	}

	task, artifact, err := h.taskUseCase.GetArtifact(c.Request.Context(), taskID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	name := baseName(task.DocumentName) + ".masked" + task.ArtifactFormat.Extension()
	writeAttachment(c, name, mimetype.Detect(artifact).String(), artifact)
}

// GetMetadataHandler downloads the restoration metadata of a task.
// GET /v1/tasks/:id/metadata
func (h *TaskHandler) GetMetadataHandler(c *gin.Context) {
	taskID, ok := h.parseTaskID(c)
	if !ok {
		return
	}

	metadata, err := h.taskUseCase.GetMetadata(c.Request.Context(), taskID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	writeAttachment(c, taskID.String()+".metadata.json", metadataService.ContentType, metadata)
}

// RestoreTaskHandler restores the original document of a stored task.
// POST /v1/tasks/:id/restore - body {"key_file": "..."}.
// Returns 200 OK with the original document bytes.
func (h *TaskHandler) RestoreTaskHandler(c *gin.Context) {
	taskID, ok := h.parseTaskID(c)
	if !ok {
		return
	}

	var req dto.RestoreTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	out, err := h.taskUseCase.RestoreTask(c.Request.Context(), taskID, req.KeyFile)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	h.writeRestored(c, out)
}

// RestoreHandler restores a document from the masked artifact, metadata file and key
// file. Nothing has to be stored server side.
// POST /v1/restore - accepts JSON (base64 fields) or multipart/form-data (three files).
func (h *TaskHandler) RestoreHandler(c *gin.Context) {
	var (
		input *taskDomain.RestoreInput
		err   error
	)
	if isMultipart(c) {
		input, err = bindRestoreForm(c)
	} else {
		input, err = bindRestoreJSON(c)
	}
	if err != nil {
		h.handleBindError(c, err)
		return
	}

	out, err := h.taskUseCase.Restore(c.Request.Context(), input)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	h.writeRestored(c, out)
}

func bindRestoreJSON(c *gin.Context) (*taskDomain.RestoreInput, error) {
	var req dto.RestoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, customValidation.WrapValidationError(err)
	}
	return req.ToRestoreInput()
}

func bindRestoreForm(c *gin.Context) (*taskDomain.RestoreInput, error) {
	artifact, _, err := readFormFile(c, fieldMaskedArtifact)
	if err != nil {
		return nil, err
	}
	metadata, _, err := readFormFile(c, fieldMetadataFile)
	if err != nil {
		return nil, err
	}

	keyFile, ok := c.GetPostForm(fieldKeyFile)
	if !ok {
		raw, _, err := readFormFile(c, fieldKeyFile)
		if err != nil {
			return nil, err
		}
		keyFile = string(raw)
	}

	req := dto.RestoreTaskRequest{KeyFile: keyFile}
	if err := req.Validate(); err != nil {
		return nil, customValidation.WrapValidationError(err)
	}
	return &taskDomain.RestoreInput{Artifact: artifact, Metadata: metadata, KeyFile: keyFile}, nil
}

// DeleteHandler deletes a task with its stored artifact and metadata.
// DELETE /v1/tasks/:id
// Returns 204 No Content.
func (h *TaskHandler) DeleteHandler(c *gin.Context) {
	taskID, ok := h.parseTaskID(c)
	if !ok {
		return
	}

	if err := h.taskUseCase.Delete(c.Request.Context(), taskID); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Data(http.StatusNoContent, "application/json", nil)
}

// handleBindError reports oversized bodies as 413 and anything else as a validation error.
func (h *TaskHandler) handleBindError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		err = apperrors.Wrapf(apperrors.ErrTooLarge, "request body exceeds %d bytes", tooLarge.Limit)
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	httputil.HandleValidationErrorGin(c, err, h.logger)
}

func (h *TaskHandler) parseTaskID(c *gin.Context) (uuid.UUID, bool) {
	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c, fmt.Errorf("invalid task id format: must be a valid UUID"), h.logger)
		return uuid.Nil, false
	}
	return taskID, true
}

func (h *TaskHandler) writeRestored(c *gin.Context, out *taskDomain.RestoreOutput) {
	c.Header(headerTaskID, out.TaskID.String())
	c.Header(headerRestoredSpans, strconv.Itoa(out.Restored))
	c.Header("Cache-Control", "no-store")
	writeAttachment(c, out.DocumentName, mimetype.Detect(out.Content).String(), out.Content)
}

func writeAttachment(c *gin.Context, name, contentType string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(name)))
	c.Data(http.StatusOK, contentType, data)
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), gin.MIMEMultipartPOSTForm)
}

func readFormFile(c *gin.Context, field string) ([]byte, string, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, "", err
		}
		return nil, "", fmt.Errorf("%s: file is required", field)
	}
	data, err := readMultipartFile(fh)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", field, err)
	}
	return data, fh.Filename, nil
}

func readMultipartFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()
	return io.ReadAll(f)
}

func formBool(c *gin.Context, field string) (bool, error) {
	raw, ok := c.GetPostForm(field)
	if !ok || raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s: must be a boolean", field)
	}
	return v, nil
}

// splitList accepts both repeated fields and comma separated values.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func baseName(name string) string {
	name = filepath.Base(name)
	return strings.TrimSuffix(name, filepath.Ext(name))
}
