// Package cloud serves the per-user drive backed by the object store, plus
// short-key share links and the public homework/courseware uploads.
package cloud

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/campus-lms/backend/internal/middleware"
	"github.com/campus-lms/backend/internal/models"
	"github.com/campus-lms/backend/pkg/response"
	"github.com/campus-lms/backend/pkg/storage"
	"github.com/campus-lms/backend/pkg/utils"
)

const (
	shareKeyLength     = 6
	defaultShareExpiry = 7 * 24 * 3600
	presignExpiry      = 15 * time.Minute
)

// Handler serves the cloud drive endpoints.
type Handler struct {
	s3     *storage.S3
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates a cloud handler.
func NewHandler(s3 *storage.S3, repo *Repository, logger *zap.Logger) *Handler {
	return &Handler{s3: s3, repo: repo, logger: logger}
}

// drive resolves the caller's drive area and owner. Only students and
// teachers have a drive.
func drive(c *gin.Context) (area, owner string, ok bool) {
	owner = c.GetString(middleware.ContextUserID)
	switch models.Role(c.GetString(middleware.ContextUserRole)) {
	case models.RoleStudent:
		return storage.AreaStudent, owner, true
	case models.RoleTeacher:
		return storage.AreaTeacher, owner, true
	}
	response.Forbidden(c, "no cloud drive for this role")
	return "", "", false
}

// List handles GET /cloud?path=.
func (h *Handler) List(c *gin.Context) {
	area, owner, ok := drive(c)
	if !ok {
		return
	}
	entries, err := h.s3.ListDir(c.Request.Context(), h.s3.CloudBucket(), area, owner, c.Query("path"))
	if err != nil {
		h.storageError(c, err, "failed to list directory")
		return
	}
	response.OK(c, entries)
}

// Upload handles POST /cloud/upload?path= with a multipart "file" part.
func (h *Handler) Upload(c *gin.Context) {
	area, owner, ok := drive(c)
	if !ok {
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file is required")
		return
	}
	src, err := file.Open()
	if err != nil {
		response.BadRequest(c, "unreadable file")
		return
	}
	defer src.Close()
	err = h.s3.Put(c.Request.Context(), h.s3.CloudBucket(), area, owner, c.Query("path"), file.Filename, src)
	if err != nil {
		h.storageError(c, err, "failed to upload")
		return
	}
	response.Created(c, gin.H{"name": file.Filename})
}

// Download handles GET /cloud/download?path=: streams the file back.
func (h *Handler) Download(c *gin.Context) {
	area, owner, ok := drive(c)
	if !ok {
		return
	}
	name, body, err := h.s3.Download(c.Request.Context(), h.s3.CloudBucket(), area, owner, c.Query("path"))
	if err != nil {
		h.storageError(c, err, "failed to download")
		return
	}
	defer body.Close()
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Header("Content-Type", "application/octet-stream")
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, body)
}

// MakeDir handles POST /cloud/mkdir.
func (h *Handler) MakeDir(c *gin.Context) {
	area, owner, ok := drive(c)
	if !ok {
		return
	}
	var req struct {
		Path string `json:"path"`
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "name is required")
		return
	}
	if err := h.s3.MakeDir(c.Request.Context(), h.s3.CloudBucket(), area, owner, req.Path, req.Name); err != nil {
		h.storageError(c, err, "failed to create folder")
		return
	}
	response.Created(c, gin.H{"name": req.Name})
}

// Delete handles DELETE /cloud.
func (h *Handler) Delete(c *gin.Context) {
	area, owner, ok := drive(c)
	if !ok {
		return
	}
	var req struct {
		Path  string   `json:"path"`
		Names []string `json:"names" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "names is required")
		return
	}
	if err := h.s3.Delete(c.Request.Context(), h.s3.CloudBucket(), area, owner, req.Path, req.Names); err != nil {
		h.storageError(c, err, "failed to delete")
		return
	}
	response.NoContent(c)
}

type transferRequest struct {
	Src   string   `json:"src"`
	Dst   string   `json:"dst"`
	Names []string `json:"names" binding:"required"`
}

// Move handles PUT /cloud/move.
func (h *Handler) Move(c *gin.Context) {
	area, owner, ok := drive(c)
	if !ok {
		return
	}
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "names is required")
		return
	}
	if err := h.s3.Move(c.Request.Context(), h.s3.CloudBucket(), area, owner, req.Src, req.Dst, req.Names); err != nil {
		h.storageError(c, err, "failed to move")
		return
	}
	response.OK(c, gin.H{"moved": len(req.Names)})
}

// Copy handles PUT /cloud/copy.
func (h *Handler) Copy(c *gin.Context) {
	area, owner, ok := drive(c)
	if !ok {
		return
	}
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "names is required")
		return
	}
	if err := h.s3.Copy(c.Request.Context(), h.s3.CloudBucket(), area, owner, req.Src, req.Dst, req.Names); err != nil {
		h.storageError(c, err, "failed to copy")
		return
	}
	response.OK(c, gin.H{"copied": len(req.Names)})
}

// Rename handles PUT /cloud/rename.
func (h *Handler) Rename(c *gin.Context) {
	area, owner, ok := drive(c)
	if !ok {
		return
	}
	var req struct {
		Path    string `json:"path"`
		OldName string `json:"old_name" binding:"required"`
		NewName string `json:"new_name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "old_name and new_name are required")
		return
	}
	err := h.s3.Rename(c.Request.Context(), h.s3.CloudBucket(), area, owner, req.Path, req.OldName, req.NewName)
	if err != nil {
		h.storageError(c, err, "failed to rename")
		return
	}
	response.OK(c, gin.H{"name": req.NewName})
}

// Share handles POST /cloud/share: issues a short key for a file or folder
// in the caller's drive.
func (h *Handler) Share(c *gin.Context) {
	area, owner, ok := drive(c)
	if !ok {
		return
	}
	var req struct {
		Path          string `json:"path" binding:"required"`
		ExpireSeconds int64  `json:"expire_seconds"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "path is required")
		return
	}
	if req.ExpireSeconds <= 0 {
		req.ExpireSeconds = defaultShareExpiry
	}
	ctx := c.Request.Context()
	key, kind, err := h.s3.Stat(ctx, h.s3.CloudBucket(), area, owner, req.Path)
	if err != nil {
		h.storageError(c, err, "failed to share")
		return
	}
	segments := storage.SplitPath(req.Path)
	share := &models.CloudShare{
		Key:       utils.RandomKey(shareKeyLength),
		Type:      kind,
		Path:      key,
		Name:      segments[len(segments)-1],
		ExpiresAt: time.Now().Unix() + req.ExpireSeconds,
	}
	if err := h.repo.CreateShare(ctx, share); err != nil {
		h.logger.Error("create share", zap.Error(err))
		response.Internal(c, "failed to share")
		return
	}
	response.Created(c, share)
}

// GetShare handles GET /cloud/share/:key: share metadata, 410 once expired.
func (h *Handler) GetShare(c *gin.Context) {
	share, ok := h.liveShare(c)
	if !ok {
		return
	}
	response.OK(c, share)
}

// ReceiveShare handles POST /cloud/share/:key/save: copies the shared object
// into the caller's own drive.
func (h *Handler) ReceiveShare(c *gin.Context) {
	area, owner, ok := drive(c)
	if !ok {
		return
	}
	share, ok := h.liveShare(c)
	if !ok {
		return
	}
	var req struct {
		Path string `json:"path"`
	}
	_ = c.ShouldBindJSON(&req)
	err := h.s3.CopyIn(c.Request.Context(), h.s3.CloudBucket(), share.Path, share.Name, area, owner, req.Path)
	if err != nil {
		h.storageError(c, err, "failed to save share")
		return
	}
	response.OK(c, gin.H{"name": share.Name})
}

// UploadHomework handles POST /cloud/homework (student only): stores the file
// in the public bucket and returns a presigned URL for it. The returned path
// goes into the task submission.
func (h *Handler) UploadHomework(c *gin.Context) {
	h.uploadPublic(c, storage.AreaHomework, models.RoleStudent)
}

// UploadCourseware handles POST /cloud/courseware (teacher only).
func (h *Handler) UploadCourseware(c *gin.Context) {
	h.uploadPublic(c, storage.AreaCourseware, models.RoleTeacher)
}

func (h *Handler) uploadPublic(c *gin.Context, area string, role models.Role) {
	if models.Role(c.GetString(middleware.ContextUserRole)) != role {
		response.Forbidden(c, "insufficient permissions")
		return
	}
	owner := c.GetString(middleware.ContextUserID)
	file, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file is required")
		return
	}
	src, err := file.Open()
	if err != nil {
		response.BadRequest(c, "unreadable file")
		return
	}
	defer src.Close()

	ctx := c.Request.Context()
	// Suffix the name so repeated uploads never conflict.
	name := utils.RandomKey(8) + "_" + file.Filename
	if err := h.s3.Put(ctx, h.s3.PublicBucket(), area, owner, "", name, src); err != nil {
		h.storageError(c, err, "failed to upload")
		return
	}
	key := storage.ObjectKey(area, owner, name)
	url, err := h.s3.PresignDownload(ctx, h.s3.PublicBucket(), key, presignExpiry)
	if err != nil {
		h.logger.Error("presign upload result", zap.Error(err))
		response.Internal(c, "failed to upload")
		return
	}
	response.Created(c, gin.H{"path": key, "url": url})
}

// liveShare loads the share for :key and rejects expired ones with 410.
func (h *Handler) liveShare(c *gin.Context) (*models.CloudShare, bool) {
	share, err := h.repo.GetShare(c.Request.Context(), c.Param("key"))
	if errors.Is(err, ErrShareNotFound) {
		response.NotFound(c, "share not found")
		return nil, false
	}
	if err != nil {
		h.logger.Error("get share", zap.Error(err))
		response.Internal(c, "failed to get share")
		return nil, false
	}
	if share.ExpiresAt < time.Now().Unix() {
		response.Gone(c, "share link has expired")
		return nil, false
	}
	return share, true
}

func (h *Handler) storageError(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, storage.ErrObjectNotFound):
		response.NotFound(c, "no such file or folder")
	case errors.Is(err, storage.ErrObjectConflict):
		response.Conflict(c, "a file or folder with that name already exists")
	default:
		h.logger.Error(msg, zap.Error(err))
		response.Internal(c, msg)
	}
}
