package handlers

import (
	"encoding/base64"
	"log"

	"github.com/gofiber/fiber/v2"

	"papercache/internal/storage"
)

const IdentifierMissingError = "identifier parameter is required"

// StorageHandler defines handlers for the tiered file storage endpoints.
type StorageHandler struct {
	Storage *storage.FallbackStorage
}

// NewStorageHandler creates a new StorageHandler over the given tiers.
func NewStorageHandler(fs *storage.FallbackStorage) *StorageHandler {
	return &StorageHandler{Storage: fs}
}

// UploadRequest is the body of POST /files
type UploadRequest struct {
	Identifier string `json:"identifier"`
	Content    string `json:"content"` // base64-encoded
}

// MigrateRequest is the body of POST /files/migrate
type MigrateRequest struct {
	Identifier   string `json:"identifier"`
	Direction    string `json:"direction"` // "to-secondary" or "to-primary"
	DeleteSource bool   `json:"delete_source"`
}

func storageError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	if storage.IsValidation(err) {
		status = fiber.StatusBadRequest
	} else if storage.IsNotFound(err) {
		status = fiber.StatusNotFound
	} else {
		log.Printf("Storage error: %v", err)
	}
	return c.Status(status).JSON(fiber.Map{"error": true, "message": err.Error()})
}

// ListFiles handles GET /files to list stored files across both tiers.
// @Summary List stored files
// @Description Lists identifiers across primary and secondary tiers, optionally filtered by glob pattern
// @Tags files
// @Accept json
// @Produce json
// @Param pattern query string false "Glob pattern, defaults to **"
// @Success 200 {object} map[string]interface{} "Matching identifiers"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /files [get]
func (h *StorageHandler) ListFiles(c *fiber.Ctx) error {
	pattern := c.Query("pattern", "**")
	files, err := h.Storage.List(pattern)
	if err != nil {
		return storageError(c, err)
	}
	if files == nil {
		files = []string{}
	}
	return c.JSON(fiber.Map{"files": files, "count": len(files)})
}

// DownloadFile handles GET /files/download to read a stored file.
// @Summary Download a stored file
// @Description Returns the raw file content, read from the primary tier when present there
// @Tags files
// @Accept json
// @Produce octet-stream
// @Param identifier query string true "File identifier"
// @Success 200 {file} binary "File content"
// @Failure 400 {object} map[string]interface{} "Bad request"
// @Failure 404 {object} map[string]interface{} "Not found in either tier"
// @Router /files/download [get]
func (h *StorageHandler) DownloadFile(c *fiber.Ctx) error {
	identifier := c.Query("identifier")
	if identifier == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": true, "message": IdentifierMissingError,
		})
	}
	content, err := h.Storage.Read(identifier)
	if err != nil {
		return storageError(c, err)
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEOctetStream)
	return c.Send(content)
}

// UploadFile handles POST /files to store a file per the configured write
// mode.
// @Summary Upload a file
// @Description Stores base64-encoded content under an identifier, routed by the configured write mode
// @Tags files
// @Accept json
// @Produce json
// @Param request body UploadRequest true "File to store"
// @Success 201 {object} map[string]interface{} "Stored"
// @Failure 400 {object} map[string]interface{} "Bad request"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /files [post]
func (h *StorageHandler) UploadFile(c *fiber.Ctx) error {
	var req UploadRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": true, "message": "invalid request format",
		})
	}
	if req.Identifier == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": true, "message": "identifier is required",
		})
	}
	content, err := base64.StdEncoding.DecodeString(req.Content)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": true, "message": "content must be base64-encoded",
		})
	}
	if err := h.Storage.Write(req.Identifier, content); err != nil {
		return storageError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true, "identifier": req.Identifier, "size": len(content),
	})
}

// DeleteFile handles DELETE /files to remove a file from every tier
// holding it.
// @Summary Delete a stored file
// @Tags files
// @Accept json
// @Produce json
// @Param identifier query string true "File identifier"
// @Success 200 {object} map[string]interface{} "Delete result"
// @Failure 400 {object} map[string]interface{} "Bad request"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /files [delete]
func (h *StorageHandler) DeleteFile(c *fiber.Ctx) error {
	identifier := c.Query("identifier")
	if identifier == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": true, "message": IdentifierMissingError,
		})
	}
	removed, err := h.Storage.Delete(identifier)
	if err != nil {
		return storageError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "removed": removed})
}

// FileInfo handles GET /files/info to inspect a stored file.
// @Summary Get file info
// @Description Returns size and tier location for a stored file
// @Tags files
// @Accept json
// @Produce json
// @Param identifier query string true "File identifier"
// @Success 200 {object} map[string]interface{} "File info"
// @Failure 400 {object} map[string]interface{} "Bad request"
// @Failure 404 {object} map[string]interface{} "Not found in either tier"
// @Router /files/info [get]
func (h *StorageHandler) FileInfo(c *fiber.Ctx) error {
	identifier := c.Query("identifier")
	if identifier == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": true, "message": IdentifierMissingError,
		})
	}
	size, err := h.Storage.Size(identifier)
	if err != nil {
		return storageError(c, err)
	}
	path, err := h.Storage.GetPath(identifier)
	if err != nil {
		return storageError(c, err)
	}
	return c.JSON(fiber.Map{"identifier": identifier, "size": size, "path": path})
}

// MigrateFile handles POST /files/migrate to move a file between tiers.
// @Summary Migrate a file between tiers
// @Description Copies a file to the other tier, optionally deleting the source copy after the destination write succeeds
// @Tags files
// @Accept json
// @Produce json
// @Param request body MigrateRequest true "Migration request"
// @Success 200 {object} map[string]interface{} "Migrated"
// @Failure 400 {object} map[string]interface{} "Bad request"
// @Failure 404 {object} map[string]interface{} "Not found in source tier"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /files/migrate [post]
func (h *StorageHandler) MigrateFile(c *fiber.Ctx) error {
	var req MigrateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": true, "message": "invalid request format",
		})
	}
	if req.Identifier == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": true, "message": "identifier is required",
		})
	}

	var err error
	switch req.Direction {
	case "to-secondary":
		err = h.Storage.MigrateToSecondary(req.Identifier, req.DeleteSource)
	case "to-primary":
		err = h.Storage.MigrateToPrimary(req.Identifier, req.DeleteSource)
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": true, "message": "direction must be \"to-secondary\" or \"to-primary\"",
		})
	}
	if err != nil {
		return storageError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "identifier": req.Identifier, "direction": req.Direction})
}
