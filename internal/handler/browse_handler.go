package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/mediakart/internal/domain"
	"github.com/mansoorceksport/mediakart/internal/service"
)

// BrowseHandler handles the customer-facing catalog browsing API
type BrowseHandler struct {
	catalog *service.CatalogService
}

// NewBrowseHandler creates a new BrowseHandler
func NewBrowseHandler(catalog *service.CatalogService) *BrowseHandler {
	return &BrowseHandler{catalog: catalog}
}

// BrowseFolder is a folder as seen by customers, with the resolved
// effective price alongside the raw price fields.
type BrowseFolder struct {
	*domain.Folder
	EffectivePrice float64 `json:"effective_price"`
}

// BrowseItem is an item as seen by customers
type BrowseItem struct {
	*domain.Item
	EffectivePrice float64 `json:"effective_price"`
}

// Browse handles GET /v1/catalog/:kind/browse
// Lists the direct children of folder_id (root when omitted) together with
// the breadcrumb path. Items are ordered by creation time; order=desc
// flips to latest first.
func (h *BrowseHandler) Browse(c *fiber.Ctx) error {
	kind, ok := parseKind(c)
	if !ok {
		return nil
	}

	var folderID *string
	if v := c.Query("folder_id"); v != "" {
		folderID = &v
	}

	order := domain.ItemOrder(c.Query("order", string(domain.ItemOrderAsc)))

	ctx := c.UserContext()

	folders, items, err := h.catalog.ListChildren(ctx, kind, folderID, order)
	if err != nil {
		return respondCatalogError(c, "Browse", err)
	}

	path, err := h.catalog.ResolvePath(ctx, kind, folderID)
	if err != nil {
		return respondCatalogError(c, "Browse", err)
	}

	outFolders := make([]BrowseFolder, 0, len(folders))
	for _, f := range folders {
		outFolders = append(outFolders, BrowseFolder{Folder: f, EffectivePrice: f.EffectivePrice()})
	}
	outItems := make([]BrowseItem, 0, len(items))
	for _, it := range items {
		outItems = append(outItems, BrowseItem{Item: it, EffectivePrice: it.EffectivePrice()})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"path":    path,
			"folders": outFolders,
			"items":   outItems,
		},
	})
}

// Path handles GET /v1/catalog/:kind/folders/:id/path
// Returns the root-to-folder breadcrumb
func (h *BrowseHandler) Path(c *fiber.Ctx) error {
	kind, ok := parseKind(c)
	if !ok {
		return nil
	}

	id := c.Params("id")
	path, err := h.catalog.ResolvePath(c.UserContext(), kind, &id)
	if err != nil {
		return respondCatalogError(c, "Path", err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    path,
	})
}
