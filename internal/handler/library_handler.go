package handler

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/mediakart/internal/domain"
	"github.com/mansoorceksport/mediakart/internal/middleware"
	"github.com/mansoorceksport/mediakart/internal/service"
)

// LibraryHandler handles the customer's owned-content surface
type LibraryHandler struct {
	entitlement *service.EntitlementService
}

// NewLibraryHandler creates a new LibraryHandler
func NewLibraryHandler(entitlement *service.EntitlementService) *LibraryHandler {
	return &LibraryHandler{entitlement: entitlement}
}

// Library handles GET /v1/library
// Returns every item id the caller can access plus their folder grants
func (h *LibraryHandler) Library(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"error":   "unauthorized",
		})
	}

	ctx := c.UserContext()

	itemIDs, err := h.entitlement.AccessibleItemIDs(ctx, userID)
	if err != nil {
		log.Printf("[Library] %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "failed to fetch library",
		})
	}

	folderGrants, err := h.entitlement.AccessibleFolders(ctx, userID)
	if err != nil {
		log.Printf("[Library] %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "failed to fetch library",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"item_ids":      itemIDs,
			"folder_grants": folderGrants,
		},
	})
}

// CheckAccess handles GET /v1/library/access/:type/:id
// Reports whether the caller may access the given item or folder
func (h *LibraryHandler) CheckAccess(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"error":   "unauthorized",
		})
	}

	accessType := c.Params("type")
	if accessType != domain.AccessItem && accessType != domain.AccessFolder {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "access type must be item or folder",
		})
	}

	allowed, err := h.entitlement.HasAccess(c.UserContext(), userID, accessType, c.Params("id"))
	if err != nil {
		log.Printf("[CheckAccess] %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "failed to check access",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"allowed": allowed,
		},
	})
}
