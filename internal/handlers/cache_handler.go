package handlers

import (
	"encoding/base64"
	"log"

	"github.com/gofiber/fiber/v2"

	"papercache/internal/cache"
	"papercache/internal/registry"
)

const QueryParamMissingError = "query parameter is required"

// CacheHandler handles cache-related HTTP endpoints
type CacheHandler struct {
	Cache     *cache.InstrumentedCache
	Blacklist *registry.ProblemPapers
}

// NewCacheHandler creates a new cache handler
func NewCacheHandler(c *cache.InstrumentedCache, blacklist *registry.ProblemPapers) *CacheHandler {
	return &CacheHandler{Cache: c, Blacklist: blacklist}
}

// StoreRequest is the body of POST /cache/object
type StoreRequest struct {
	Query   string         `json:"query"`
	Payload string         `json:"payload"` // base64-encoded
	NumRows int            `json:"num_rows"`
	Extra   map[string]any `json:"extra,omitempty"`
}

// ListEntries handles GET /cache/entries to list all cached entries.
// @Summary List cache entries
// @Description Gets the metadata of all cached query results
// @Tags cache
// @Accept json
// @Produce json
// @Success 200 {array} cache.Entry "List of cache entries"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /cache/entries [get]
func (h *CacheHandler) ListEntries(c *fiber.Ctx) error {
	entries, err := h.Cache.Entries()
	if err != nil {
		log.Printf("Error listing cache entries: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": true, "message": err.Error(),
		})
	}
	return c.JSON(entries)
}

// GetObject handles GET /cache/object to retrieve a cached payload.
// @Summary Get a cached payload
// @Description Returns the base64-encoded payload cached for a query
// @Tags cache
// @Accept json
// @Produce json
// @Param query query string true "Query string the payload was cached under"
// @Success 200 {object} map[string]interface{} "Cached payload"
// @Failure 400 {object} map[string]interface{} "Bad request"
// @Failure 404 {object} map[string]interface{} "Not cached"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /cache/object [get]
func (h *CacheHandler) GetObject(c *fiber.Ctx) error {
	query := c.Query("query")
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": true, "message": QueryParamMissingError,
		})
	}

	payload, err := h.Cache.Get(query)
	if err != nil {
		log.Printf("Error reading cache: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": true, "message": err.Error(),
		})
	}
	if payload == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": true, "message": "query is not cached",
		})
	}

	entry, err := h.Cache.Lookup(query)
	if err != nil {
		log.Printf("Error reading cache metadata: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": true, "message": err.Error(),
		})
	}

	resp := fiber.Map{
		"query":   query,
		"payload": base64.StdEncoding.EncodeToString(payload),
	}
	if entry != nil {
		resp["num_rows"] = entry.NumRows
		resp["timestamp"] = entry.Timestamp
		resp["extra"] = entry.Extra
	}
	return c.JSON(resp)
}

// StoreObject handles POST /cache/object to cache a payload.
// @Summary Cache a payload
// @Description Stores a base64-encoded payload under a query string
// @Tags cache
// @Accept json
// @Produce json
// @Param request body StoreRequest true "Payload to cache"
// @Success 201 {object} map[string]interface{} "Stored"
// @Failure 400 {object} map[string]interface{} "Bad request"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /cache/object [post]
func (h *CacheHandler) StoreObject(c *fiber.Ctx) error {
	var req StoreRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Invalid store request: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": true, "message": "invalid request format",
		})
	}
	if req.Query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": true, "message": "query is required",
		})
	}

	payload, err := base64.StdEncoding.DecodeString(req.Payload)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": true, "message": "payload must be base64-encoded",
		})
	}

	if err := h.Cache.Store(req.Query, payload, req.NumRows, req.Extra); err != nil {
		log.Printf("Error storing cache entry: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": true, "message": err.Error(),
		})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true, "num_rows": req.NumRows, "size": len(payload),
	})
}

// DeleteObject handles DELETE /cache/object to evict a cached entry.
// @Summary Delete a cache entry
// @Description Removes the payload and metadata cached for a query
// @Tags cache
// @Accept json
// @Produce json
// @Param query query string true "Query string to evict"
// @Success 200 {object} map[string]interface{} "Deleted"
// @Failure 400 {object} map[string]interface{} "Bad request"
// @Failure 404 {object} map[string]interface{} "Not cached"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /cache/object [delete]
func (h *CacheHandler) DeleteObject(c *fiber.Ctx) error {
	query := c.Query("query")
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": true, "message": QueryParamMissingError,
		})
	}

	removed, err := h.Cache.Delete(query)
	if err != nil {
		log.Printf("Error deleting cache entry: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": true, "message": err.Error(),
		})
	}
	if !removed {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": true, "message": "query is not cached",
		})
	}
	return c.JSON(fiber.Map{"success": true})
}

// HasObject handles GET /cache/has to check for a cached entry.
// @Summary Check whether a query is cached
// @Tags cache
// @Accept json
// @Produce json
// @Param query query string true "Query string to check"
// @Success 200 {object} map[string]interface{} "Check result"
// @Failure 400 {object} map[string]interface{} "Bad request"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /cache/has [get]
func (h *CacheHandler) HasObject(c *fiber.Ctx) error {
	query := c.Query("query")
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": true, "message": QueryParamMissingError,
		})
	}

	has, err := h.Cache.Has(query)
	if err != nil {
		log.Printf("Error checking cache: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": true, "message": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"query": query, "cached": has})
}

// GetStats handles GET /cache/stats to retrieve cache statistics.
// @Summary Get cache statistics
// @Description Get entry count and total payload size of the cache
// @Tags cache
// @Accept json
// @Produce json
// @Success 200 {object} cache.Stats "Cache statistics"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /cache/stats [get]
func (h *CacheHandler) GetStats(c *fiber.Ctx) error {
	stats, err := h.Cache.Stats()
	if err != nil {
		log.Printf("Error getting cache statistics: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": true, "message": err.Error(),
		})
	}
	return c.JSON(stats)
}

// ClearCache handles POST /cache/clear to evict everything.
// @Summary Clear the cache
// @Tags cache
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{} "Cleared"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /cache/clear [post]
func (h *CacheHandler) ClearCache(c *fiber.Ctx) error {
	if err := h.Cache.Clear(); err != nil {
		log.Printf("Error clearing cache: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": true, "message": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"success": true})
}

// ListBlacklist handles GET /blacklist to list blacklisted identifiers.
// @Summary List blacklisted identifiers
// @Tags blacklist
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{} "Blacklist contents"
// @Router /blacklist [get]
func (h *CacheHandler) ListBlacklist(c *fiber.Ctx) error {
	ids := h.Blacklist.Identifiers()
	reasons := make(map[string]string, len(ids))
	for _, id := range ids {
		reasons[id] = h.Blacklist.Reason(id)
	}
	return c.JSON(fiber.Map{"blacklist": ids, "reasons": reasons, "count": len(ids)})
}

// AddToBlacklist handles POST /blacklist to blacklist an identifier.
// @Summary Blacklist an identifier
// @Tags blacklist
// @Accept json
// @Produce json
// @Param request body map[string]string true "Identifier and reason"
// @Success 201 {object} map[string]interface{} "Added"
// @Failure 400 {object} map[string]interface{} "Bad request"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /blacklist [post]
func (h *CacheHandler) AddToBlacklist(c *fiber.Ctx) error {
	var req struct {
		Identifier string `json:"identifier"`
		Reason     string `json:"reason"`
	}
	if err := c.BodyParser(&req); err != nil || req.Identifier == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": true, "message": "identifier is required",
		})
	}
	if err := h.Blacklist.Add(req.Identifier, req.Reason); err != nil {
		log.Printf("Error updating blacklist: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": true, "message": err.Error(),
		})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true})
}

// RemoveFromBlacklist handles DELETE /blacklist to unblacklist an identifier.
// @Summary Remove an identifier from the blacklist
// @Tags blacklist
// @Accept json
// @Produce json
// @Param identifier query string true "Identifier to remove"
// @Success 200 {object} map[string]interface{} "Removed"
// @Failure 400 {object} map[string]interface{} "Bad request"
// @Failure 404 {object} map[string]interface{} "Not blacklisted"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /blacklist [delete]
func (h *CacheHandler) RemoveFromBlacklist(c *fiber.Ctx) error {
	identifier := c.Query("identifier")
	if identifier == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": true, "message": "identifier parameter is required",
		})
	}
	removed, err := h.Blacklist.Remove(identifier)
	if err != nil {
		log.Printf("Error updating blacklist: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": true, "message": err.Error(),
		})
	}
	if !removed {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": true, "message": "identifier is not blacklisted",
		})
	}
	return c.JSON(fiber.Map{"success": true})
}

// FilterBlacklist handles POST /blacklist/filter to split a batch of
// identifiers into safe and blacklisted ones.
// @Summary Filter identifiers against the blacklist
// @Tags blacklist
// @Accept json
// @Produce json
// @Param request body map[string][]string true "Identifiers to filter"
// @Success 200 {object} map[string]interface{} "Filtered identifiers"
// @Failure 400 {object} map[string]interface{} "Bad request"
// @Router /blacklist/filter [post]
func (h *CacheHandler) FilterBlacklist(c *fiber.Ctx) error {
	var req struct {
		Identifiers []string `json:"identifiers"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": true, "message": "invalid request format",
		})
	}
	safe, blacklisted := h.Blacklist.FilterBatch(req.Identifiers)
	if safe == nil {
		safe = []string{}
	}
	if blacklisted == nil {
		blacklisted = []string{}
	}
	return c.JSON(fiber.Map{"safe": safe, "blacklisted": blacklisted})
}
