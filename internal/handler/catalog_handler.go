package handler

import (
	"errors"
	"io"
	"log"
	"mime/multipart"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/mediakart/internal/domain"
	"github.com/mansoorceksport/mediakart/internal/middleware"
	"github.com/mansoorceksport/mediakart/internal/service"
)

// CatalogHandler handles the admin catalog API: folder and item CRUD for
// every content kind
type CatalogHandler struct {
	catalog     *service.CatalogService
	media       *service.MediaService
	maxUploadMB int64
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(catalog *service.CatalogService, media *service.MediaService, maxUploadMB int64) *CatalogHandler {
	return &CatalogHandler{
		catalog:     catalog,
		media:       media,
		maxUploadMB: maxUploadMB,
	}
}

// parseKind resolves the :kind route parameter. It writes the error
// response itself, so callers just return on !ok.
func parseKind(c *fiber.Ctx) (domain.Kind, bool) {
	kind, err := domain.ParseKind(c.Params("kind"))
	if err != nil {
		_ = c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "unknown catalog kind, must be template, picture, audio or video",
		})
		return "", false
	}
	return kind, true
}

// respondCatalogError maps service errors onto HTTP statuses
func respondCatalogError(c *fiber.Ctx, tag string, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   "not found",
		})
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	case errors.Is(err, domain.ErrInvalidMove):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}
	log.Printf("[%s] %v", tag, err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"success": false,
		"error":   "internal error",
	})
}

// CreateFolderRequest represents the request body for folder creation
type CreateFolderRequest struct {
	Name          string   `json:"name"`
	ParentID      *string  `json:"parent_id"`
	BasePrice     float64  `json:"base_price"`
	DiscountPrice *float64 `json:"discount_price"`
	IsPurchasable bool     `json:"is_purchasable"`
}

// CreateFolder handles POST /v1/admin/catalog/:kind/folders
func (h *CatalogHandler) CreateFolder(c *fiber.Ctx) error {
	kind, ok := parseKind(c)
	if !ok {
		return nil
	}

	var req CreateFolderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "invalid request body",
		})
	}

	folder, err := h.catalog.CreateFolder(c.UserContext(), kind, service.CreateFolderInput{
		Name:          req.Name,
		ParentID:      req.ParentID,
		BasePrice:     req.BasePrice,
		DiscountPrice: req.DiscountPrice,
		IsPurchasable: req.IsPurchasable,
		CreatedBy:     middleware.GetUserID(c),
	})
	if err != nil {
		return respondCatalogError(c, "CreateFolder", err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    folder,
	})
}

// GetFolder handles GET /v1/admin/catalog/:kind/folders/:id
func (h *CatalogHandler) GetFolder(c *fiber.Ctx) error {
	kind, ok := parseKind(c)
	if !ok {
		return nil
	}

	folder, err := h.catalog.GetFolder(c.UserContext(), kind, c.Params("id"))
	if err != nil {
		return respondCatalogError(c, "GetFolder", err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    folder,
	})
}

// UpdateFolderRequest represents a partial folder update. Omitted fields
// are not touched; clear_discount removes the discount price.
type UpdateFolderRequest struct {
	Name          *string  `json:"name"`
	BasePrice     *float64 `json:"base_price"`
	DiscountPrice *float64 `json:"discount_price"`
	ClearDiscount bool     `json:"clear_discount"`
	IsPurchasable *bool    `json:"is_purchasable"`
}

// UpdateFolder handles PATCH /v1/admin/catalog/:kind/folders/:id
func (h *CatalogHandler) UpdateFolder(c *fiber.Ctx) error {
	kind, ok := parseKind(c)
	if !ok {
		return nil
	}

	var req UpdateFolderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "invalid request body",
		})
	}

	folder, err := h.catalog.UpdateFolder(c.UserContext(), kind, c.Params("id"), service.UpdateFolderInput{
		Name:          req.Name,
		BasePrice:     req.BasePrice,
		DiscountPrice: req.DiscountPrice,
		ClearDiscount: req.ClearDiscount,
		IsPurchasable: req.IsPurchasable,
	})
	if err != nil {
		return respondCatalogError(c, "UpdateFolder", err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    folder,
	})
}

// MoveFolderRequest carries the new parent; null moves the folder to root
type MoveFolderRequest struct {
	ParentID *string `json:"parent_id"`
}

// MoveFolder handles PUT /v1/admin/catalog/:kind/folders/:id/parent
func (h *CatalogHandler) MoveFolder(c *fiber.Ctx) error {
	kind, ok := parseKind(c)
	if !ok {
		return nil
	}

	var req MoveFolderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "invalid request body",
		})
	}

	folder, err := h.catalog.MoveFolder(c.UserContext(), kind, c.Params("id"), req.ParentID)
	if err != nil {
		return respondCatalogError(c, "MoveFolder", err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    folder,
	})
}

// DeleteFolder handles DELETE /v1/admin/catalog/:kind/folders/:id
// Removes the folder, all descendant folders, and every item inside them
func (h *CatalogHandler) DeleteFolder(c *fiber.Ctx) error {
	kind, ok := parseKind(c)
	if !ok {
		return nil
	}

	if err := h.catalog.DeleteFolder(c.UserContext(), kind, c.Params("id")); err != nil {
		return respondCatalogError(c, "DeleteFolder", err)
	}

	return c.JSON(fiber.Map{
		"success": true,
	})
}

// CreateItemRequest represents the JSON request body for item creation.
// Multipart requests put the same fields in form values plus a "file" part.
type CreateItemRequest struct {
	Title         string   `json:"title"`
	FolderID      *string  `json:"folder_id"`
	BasePrice     float64  `json:"base_price"`
	DiscountPrice *float64 `json:"discount_price"`
	PreviewURL    string   `json:"preview_url"`
	DownloadURL   string   `json:"download_url"`
}

// CreateItem handles POST /v1/admin/catalog/:kind/items
// Accepts JSON, or multipart form data with an optional media file that is
// processed and stored before the item is created.
func (h *CatalogHandler) CreateItem(c *fiber.Ctx) error {
	kind, ok := parseKind(c)
	if !ok {
		return nil
	}

	var (
		req   CreateItemRequest
		media domain.MediaMeta
	)

	if c.Is("multipart") {
		form, err := c.MultipartForm()
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"error":   "invalid multipart form: " + err.Error(),
			})
		}

		req.Title = formValue(form, "title")
		if v := formValue(form, "folder_id"); v != "" {
			req.FolderID = &v
		}
		if v := formValue(form, "base_price"); v != "" {
			price, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"success": false,
					"error":   "invalid base_price",
				})
			}
			req.BasePrice = price
		}
		if v := formValue(form, "discount_price"); v != "" {
			price, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"success": false,
					"error":   "invalid discount_price",
				})
			}
			req.DiscountPrice = &price
		}

		if files := form.File["file"]; len(files) > 0 {
			ingested, err := h.ingestUpload(c, kind, files[0])
			if err != nil {
				return err // response already written
			}
			req.PreviewURL = ingested.PreviewURL
			req.DownloadURL = ingested.DownloadURL
			media = ingested.Meta
		}
	} else if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "invalid request body",
		})
	}

	item, err := h.catalog.CreateItem(c.UserContext(), kind, service.CreateItemInput{
		Title:         req.Title,
		FolderID:      req.FolderID,
		BasePrice:     req.BasePrice,
		DiscountPrice: req.DiscountPrice,
		PreviewURL:    req.PreviewURL,
		DownloadURL:   req.DownloadURL,
		Media:         media,
		CreatedBy:     middleware.GetUserID(c),
	})
	if err != nil {
		return respondCatalogError(c, "CreateItem", err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    item,
	})
}

// ingestUpload validates and stores an uploaded media file. On failure it
// writes the error response and returns a non-nil error for the caller to
// propagate.
func (h *CatalogHandler) ingestUpload(c *fiber.Ctx, kind domain.Kind, fileHeader *multipart.FileHeader) (*service.IngestedMedia, error) {
	maxBytes := h.maxUploadMB * 1024 * 1024
	if fileHeader.Size > maxBytes {
		return nil, c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
			"success": false,
			"error":   "file too large",
		})
	}

	f, err := fileHeader.Open()
	if err != nil {
		return nil, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "failed to open uploaded file",
		})
	}
	defer f.Close()

	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "failed to read uploaded file",
		})
	}

	contentType := fileHeader.Header.Get("Content-Type")
	ingested, err := h.media.Ingest(c.UserContext(), kind, fileHeader.Filename, raw, contentType)
	if err != nil {
		log.Printf("[CreateItem] Media ingest failed: %v", err)
		return nil, c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "failed to store media",
		})
	}
	return ingested, nil
}

func formValue(form *multipart.Form, key string) string {
	if vs := form.Value[key]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// GetItem handles GET /v1/admin/catalog/:kind/items/:id
func (h *CatalogHandler) GetItem(c *fiber.Ctx) error {
	kind, ok := parseKind(c)
	if !ok {
		return nil
	}

	item, err := h.catalog.GetItem(c.UserContext(), kind, c.Params("id"))
	if err != nil {
		return respondCatalogError(c, "GetItem", err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    item,
	})
}

// UpdateItemRequest represents a partial item update
type UpdateItemRequest struct {
	Title         *string  `json:"title"`
	BasePrice     *float64 `json:"base_price"`
	DiscountPrice *float64 `json:"discount_price"`
	ClearDiscount bool     `json:"clear_discount"`
	PreviewURL    *string  `json:"preview_url"`
	DownloadURL   *string  `json:"download_url"`
}

// UpdateItem handles PATCH /v1/admin/catalog/:kind/items/:id
func (h *CatalogHandler) UpdateItem(c *fiber.Ctx) error {
	kind, ok := parseKind(c)
	if !ok {
		return nil
	}

	var req UpdateItemRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "invalid request body",
		})
	}

	item, err := h.catalog.UpdateItem(c.UserContext(), kind, c.Params("id"), service.UpdateItemInput{
		Title:         req.Title,
		BasePrice:     req.BasePrice,
		DiscountPrice: req.DiscountPrice,
		ClearDiscount: req.ClearDiscount,
		PreviewURL:    req.PreviewURL,
		DownloadURL:   req.DownloadURL,
	})
	if err != nil {
		return respondCatalogError(c, "UpdateItem", err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    item,
	})
}

// MoveItemRequest carries the target folder; null moves the item to root
type MoveItemRequest struct {
	FolderID *string `json:"folder_id"`
}

// MoveItem handles PUT /v1/admin/catalog/:kind/items/:id/folder
func (h *CatalogHandler) MoveItem(c *fiber.Ctx) error {
	kind, ok := parseKind(c)
	if !ok {
		return nil
	}

	var req MoveItemRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "invalid request body",
		})
	}

	item, err := h.catalog.MoveItem(c.UserContext(), kind, c.Params("id"), req.FolderID)
	if err != nil {
		return respondCatalogError(c, "MoveItem", err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    item,
	})
}

// DeleteItem handles DELETE /v1/admin/catalog/:kind/items/:id
func (h *CatalogHandler) DeleteItem(c *fiber.Ctx) error {
	kind, ok := parseKind(c)
	if !ok {
		return nil
	}

	if err := h.catalog.DeleteItem(c.UserContext(), kind, c.Params("id")); err != nil {
		return respondCatalogError(c, "DeleteItem", err)
	}

	return c.JSON(fiber.Map{
		"success": true,
	})
}
