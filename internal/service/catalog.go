package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mansoorceksport/mediakart/internal/domain"
	"golang.org/x/sync/errgroup"
)

// maxTreeDepth bounds every parent-chain walk. A healthy tree never gets
// near this; hitting the bound means the stored chain is corrupted and the
// walk refuses to loop forever.
const maxTreeDepth = 512

// CatalogService owns folder and item mutations for all four content-kind
// trees: cycle-safe re-parenting, post-order cascade delete, path
// resolution and descendant materialization.
type CatalogService struct {
	repo domain.CatalogRepository
}

func NewCatalogService(repo domain.CatalogRepository) *CatalogService {
	return &CatalogService{repo: repo}
}

// CreateFolderInput carries the admin-supplied fields for a new folder.
type CreateFolderInput struct {
	Name          string
	ParentID      *string
	BasePrice     float64
	DiscountPrice *float64
	IsPurchasable bool
	CreatedBy     string
}

func (s *CatalogService) CreateFolder(ctx context.Context, kind domain.Kind, in CreateFolderInput) (*domain.Folder, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: folder name is required", domain.ErrInvalidInput)
	}
	if err := validatePrices(in.BasePrice, in.DiscountPrice); err != nil {
		return nil, err
	}
	if in.ParentID != nil {
		// Parent must exist within the same kind
		if _, err := s.repo.FolderByID(ctx, kind, *in.ParentID); err != nil {
			return nil, err
		}
	}

	folder := &domain.Folder{
		Kind:          kind,
		Name:          name,
		ParentID:      in.ParentID,
		BasePrice:     in.BasePrice,
		DiscountPrice: in.DiscountPrice,
		IsPurchasable: in.IsPurchasable,
		CreatedBy:     in.CreatedBy,
	}
	if err := s.repo.CreateFolder(ctx, folder); err != nil {
		return nil, err
	}
	return folder, nil
}

// UpdateFolderInput carries a folder patch; nil pointers leave the field
// untouched, ClearDiscount removes the discount price.
type UpdateFolderInput struct {
	Name          *string
	BasePrice     *float64
	DiscountPrice *float64
	ClearDiscount bool
	IsPurchasable *bool
}

func (s *CatalogService) UpdateFolder(ctx context.Context, kind domain.Kind, id string, in UpdateFolderInput) (*domain.Folder, error) {
	folder, err := s.repo.FolderByID(ctx, kind, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: folder name is required", domain.ErrInvalidInput)
		}
		folder.Name = name
	}
	if in.BasePrice != nil {
		folder.BasePrice = *in.BasePrice
	}
	if in.ClearDiscount {
		folder.DiscountPrice = nil
	} else if in.DiscountPrice != nil {
		folder.DiscountPrice = in.DiscountPrice
	}
	if in.IsPurchasable != nil {
		folder.IsPurchasable = *in.IsPurchasable
	}
	if err := validatePrices(folder.BasePrice, folder.DiscountPrice); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateFolder(ctx, folder); err != nil {
		return nil, err
	}
	return folder, nil
}

// MoveFolder re-parents a folder. The move is rejected with ErrInvalidMove
// when the new parent is the folder itself or any of its descendants,
// detected by walking the parent chain upward from the new parent. State is
// never mutated on a rejected move.
func (s *CatalogService) MoveFolder(ctx context.Context, kind domain.Kind, id string, newParentID *string) (*domain.Folder, error) {
	folder, err := s.repo.FolderByID(ctx, kind, id)
	if err != nil {
		return nil, err
	}

	if newParentID != nil {
		if *newParentID == id {
			return nil, fmt.Errorf("%w: folder cannot be its own parent", domain.ErrInvalidMove)
		}
		if _, err := s.repo.FolderByID(ctx, kind, *newParentID); err != nil {
			return nil, err
		}
		onChain, err := s.onParentChain(ctx, kind, *newParentID, id)
		if err != nil {
			return nil, err
		}
		if onChain {
			return nil, fmt.Errorf("%w: target parent is a descendant of the folder", domain.ErrInvalidMove)
		}
	}

	if err := s.repo.SetFolderParent(ctx, kind, id, newParentID); err != nil {
		return nil, err
	}
	folder.ParentID = newParentID
	return folder, nil
}

// onParentChain reports whether needle appears on the parent chain starting
// at startID (inclusive). The walk is bounded and keeps a visited set so it
// terminates even if a corrupted chain already contains a cycle.
func (s *CatalogService) onParentChain(ctx context.Context, kind domain.Kind, startID, needle string) (bool, error) {
	visited := make(map[string]struct{})
	current := &startID

	for depth := 0; current != nil && depth < maxTreeDepth; depth++ {
		if *current == needle {
			return true, nil
		}
		if _, seen := visited[*current]; seen {
			return false, fmt.Errorf("%w: cycle detected in folder chain at %s", domain.ErrInvalidMove, *current)
		}
		visited[*current] = struct{}{}

		folder, err := s.repo.FolderByID(ctx, kind, *current)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				// Dangling parent pointer; chain ends here
				return false, nil
			}
			return false, err
		}
		current = folder.ParentID
	}
	return false, nil
}

// DeleteFolder cascades: every descendant folder is deleted post-order
// (children before parents) along with every item owned by the subtree.
// Already-missing descendants are skipped, so a delete interrupted halfway
// can simply be retried.
func (s *CatalogService) DeleteFolder(ctx context.Context, kind domain.Kind, id string) error {
	if _, err := s.repo.FolderByID(ctx, kind, id); err != nil {
		return err
	}

	subtree, err := s.collectSubtree(ctx, kind, id)
	if err != nil {
		return err
	}

	// Items first, then folders deepest-first. The BFS order has parents
	// before children, so deleting in reverse hits children first.
	if _, err := s.repo.DeleteItemsInFolders(ctx, kind, subtree); err != nil {
		return err
	}
	for i := len(subtree) - 1; i >= 0; i-- {
		if _, err := s.repo.DeleteFolders(ctx, kind, []string{subtree[i]}); err != nil {
			return err
		}
	}
	return nil
}

// collectSubtree returns id plus every descendant folder id in BFS order.
func (s *CatalogService) collectSubtree(ctx context.Context, kind domain.Kind, id string) ([]string, error) {
	order := []string{id}
	seen := map[string]struct{}{id: {}}

	for i := 0; i < len(order); i++ {
		if len(order) > maxTreeDepth*maxTreeDepth {
			return nil, fmt.Errorf("folder subtree too large, aborting cascade")
		}
		children, err := s.repo.ChildFolders(ctx, kind, &order[i])
		if err != nil {
			return nil, err
		}
		for _, child := range children {
			if _, dup := seen[child.ID]; dup {
				continue
			}
			seen[child.ID] = struct{}{}
			order = append(order, child.ID)
		}
	}
	return order, nil
}

// CreateItemInput carries the admin-supplied fields for a new item.
type CreateItemInput struct {
	Title         string
	FolderID      *string
	BasePrice     float64
	DiscountPrice *float64
	PreviewURL    string
	DownloadURL   string
	Media         domain.MediaMeta
	CreatedBy     string
}

func (s *CatalogService) CreateItem(ctx context.Context, kind domain.Kind, in CreateItemInput) (*domain.Item, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: item title is required", domain.ErrInvalidInput)
	}
	if err := validatePrices(in.BasePrice, in.DiscountPrice); err != nil {
		return nil, err
	}
	if in.FolderID != nil {
		if _, err := s.repo.FolderByID(ctx, kind, *in.FolderID); err != nil {
			return nil, err
		}
	}

	item := &domain.Item{
		Kind:          kind,
		FolderID:      in.FolderID,
		Title:         title,
		BasePrice:     in.BasePrice,
		DiscountPrice: in.DiscountPrice,
		PreviewURL:    in.PreviewURL,
		DownloadURL:   in.DownloadURL,
		Media:         in.Media,
		CreatedBy:     in.CreatedBy,
	}
	if err := s.repo.CreateItem(ctx, item); err != nil {
		return nil, err
	}

	s.refreshItemCount(ctx, kind, in.FolderID)
	return item, nil
}

// UpdateItemInput carries an item patch; nil pointers leave fields alone.
type UpdateItemInput struct {
	Title         *string
	BasePrice     *float64
	DiscountPrice *float64
	ClearDiscount bool
	PreviewURL    *string
	DownloadURL   *string
	Media         *domain.MediaMeta
}

func (s *CatalogService) UpdateItem(ctx context.Context, kind domain.Kind, id string, in UpdateItemInput) (*domain.Item, error) {
	item, err := s.repo.ItemByID(ctx, kind, id)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: item title is required", domain.ErrInvalidInput)
		}
		item.Title = title
	}
	if in.BasePrice != nil {
		item.BasePrice = *in.BasePrice
	}
	if in.ClearDiscount {
		item.DiscountPrice = nil
	} else if in.DiscountPrice != nil {
		item.DiscountPrice = in.DiscountPrice
	}
	if in.PreviewURL != nil {
		item.PreviewURL = *in.PreviewURL
	}
	if in.DownloadURL != nil {
		item.DownloadURL = *in.DownloadURL
	}
	if in.Media != nil {
		item.Media = *in.Media
	}
	if err := validatePrices(item.BasePrice, item.DiscountPrice); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *CatalogService) MoveItem(ctx context.Context, kind domain.Kind, id string, newFolderID *string) (*domain.Item, error) {
	item, err := s.repo.ItemByID(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if newFolderID != nil {
		if _, err := s.repo.FolderByID(ctx, kind, *newFolderID); err != nil {
			return nil, err
		}
	}

	oldFolderID := item.FolderID
	if err := s.repo.SetItemFolder(ctx, kind, id, newFolderID); err != nil {
		return nil, err
	}
	item.FolderID = newFolderID

	s.refreshItemCount(ctx, kind, oldFolderID)
	s.refreshItemCount(ctx, kind, newFolderID)
	return item, nil
}

func (s *CatalogService) DeleteItem(ctx context.Context, kind domain.Kind, id string) error {
	item, err := s.repo.ItemByID(ctx, kind, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteItem(ctx, kind, id); err != nil {
		return err
	}
	s.refreshItemCount(ctx, kind, item.FolderID)
	return nil
}

func (s *CatalogService) GetFolder(ctx context.Context, kind domain.Kind, id string) (*domain.Folder, error) {
	return s.repo.FolderByID(ctx, kind, id)
}

func (s *CatalogService) GetItem(ctx context.Context, kind domain.Kind, id string) (*domain.Item, error) {
	return s.repo.ItemByID(ctx, kind, id)
}

// ListChildren returns the direct children of folderID (nil = root):
// folders ordered by creation time ascending, items in the caller-selected
// order. The two queries run concurrently.
func (s *CatalogService) ListChildren(ctx context.Context, kind domain.Kind, folderID *string, order domain.ItemOrder) ([]*domain.Folder, []*domain.Item, error) {
	if folderID != nil {
		if _, err := s.repo.FolderByID(ctx, kind, *folderID); err != nil {
			return nil, nil, err
		}
	}
	if order != domain.ItemOrderAsc && order != domain.ItemOrderDesc {
		return nil, nil, fmt.Errorf("%w: unknown item order %q", domain.ErrInvalidInput, order)
	}

	var (
		folders []*domain.Folder
		items   []*domain.Item
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		folders, err = s.repo.ChildFolders(gctx, kind, folderID)
		return err
	})
	g.Go(func() error {
		var err error
		items, err = s.repo.ItemsInFolder(gctx, kind, folderID, order)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return folders, items, nil
}

// ResolvePath builds the root-to-folder breadcrumb by walking parent
// pointers upward, then reversing. The walk is bounded and cycle-guarded;
// a nil folderID (root) yields an empty path.
func (s *CatalogService) ResolvePath(ctx context.Context, kind domain.Kind, folderID *string) ([]domain.PathSegment, error) {
	if folderID == nil {
		return []domain.PathSegment{}, nil
	}

	visited := make(map[string]struct{})
	reversed := make([]domain.PathSegment, 0, 8)
	current := folderID

	for depth := 0; current != nil && depth < maxTreeDepth; depth++ {
		if _, seen := visited[*current]; seen {
			return nil, fmt.Errorf("%w: cycle detected in folder chain at %s", domain.ErrInvalidMove, *current)
		}
		visited[*current] = struct{}{}

		folder, err := s.repo.FolderByID(ctx, kind, *current)
		if err != nil {
			return nil, err
		}
		reversed = append(reversed, domain.PathSegment{ID: folder.ID, Name: folder.Name})
		current = folder.ParentID
	}

	path := make([]domain.PathSegment, 0, len(reversed))
	for i := len(reversed) - 1; i >= 0; i-- {
		path = append(path, reversed[i])
	}
	return path, nil
}

// DescendantItemIDs materializes the full set of item ids owned by the
// folder and every descendant folder. The result is a complete snapshot,
// suitable for freezing into a folder grant.
func (s *CatalogService) DescendantItemIDs(ctx context.Context, kind domain.Kind, folderID string) ([]string, error) {
	subtree, err := s.collectSubtree(ctx, kind, folderID)
	if err != nil {
		return nil, err
	}
	return s.repo.ItemIDsInFolders(ctx, kind, subtree)
}

// refreshItemCount recomputes the derived item_count after a membership
// change. Failures are logged by the repo layer as ordinary errors but do
// not fail the triggering mutation.
func (s *CatalogService) refreshItemCount(ctx context.Context, kind domain.Kind, folderID *string) {
	if folderID == nil {
		return
	}
	count, err := s.repo.CountItemsInFolder(ctx, kind, *folderID)
	if err != nil {
		return
	}
	_ = s.repo.SetFolderItemCount(ctx, kind, *folderID, count)
}

func validatePrices(base float64, discount *float64) error {
	if base < 0 {
		return fmt.Errorf("%w: base price cannot be negative", domain.ErrInvalidInput)
	}
	if discount != nil {
		if *discount < 0 {
			return fmt.Errorf("%w: discount price cannot be negative", domain.ErrInvalidInput)
		}
		if *discount >= base {
			return fmt.Errorf("%w: discount price must be below base price", domain.ErrInvalidInput)
		}
	}
	return nil
}
