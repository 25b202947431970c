package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/mansoorceksport/mediakart/internal/domain"
)

// EntitlementService turns purchased line items into durable access grants
// and answers access queries over the grant ledger.
type EntitlementService struct {
	grants  domain.GrantRepository
	catalog *CatalogService
}

func NewEntitlementService(grants domain.GrantRepository, catalog *CatalogService) *EntitlementService {
	return &EntitlementService{grants: grants, catalog: catalog}
}

// GrantForLineItem issues the access grant for one purchased line item.
// The operation is idempotent: an existing grant for the same
// (user, target) is returned unchanged, whether it was found up front or
// lost a race to a concurrent writer (duplicate-key from the store).
// Folder grants freeze the folder's descendant item ids at grant time.
func (s *EntitlementService) GrantForLineItem(ctx context.Context, userID string, line domain.PurchaseLineItem, purchaseID string) (*domain.AccessGrant, error) {
	accessType := domain.AccessItem
	if line.Type == domain.LineItemTypeFolder {
		accessType = domain.AccessFolder
	}

	existing, err := s.grants.Get(ctx, userID, accessType, line.SourceID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	grant := &domain.AccessGrant{
		UserID:     userID,
		AccessType: accessType,
		Kind:       line.Kind,
		TargetID:   line.SourceID,
		PurchaseID: purchaseID,
	}
	if accessType == domain.AccessFolder {
		itemIDs, err := s.catalog.DescendantItemIDs(ctx, line.Kind, line.SourceID)
		if err != nil {
			return nil, fmt.Errorf("failed to snapshot folder contents: %w", err)
		}
		grant.IncludedItemIDs = itemIDs
	}

	if err := s.grants.Insert(ctx, grant); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			// First writer wins; return what it wrote
			return s.grants.Get(ctx, userID, accessType, line.SourceID)
		}
		return nil, err
	}
	return grant, nil
}

// HasAccess answers whether the user may access the target. Item access is
// satisfied by a direct item grant or by any folder grant whose frozen
// snapshot contains the item. Folder access requires a direct folder grant;
// it is never inferred from owning every contained item.
func (s *EntitlementService) HasAccess(ctx context.Context, userID, accessType, targetID string) (bool, error) {
	_, err := s.grants.Get(ctx, userID, accessType, targetID)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return false, err
	}
	if accessType != domain.AccessItem {
		return false, nil
	}

	folderGrants, err := s.grants.ListFolderGrants(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, grant := range folderGrants {
		for _, id := range grant.IncludedItemIDs {
			if id == targetID {
				return true, nil
			}
		}
	}
	return false, nil
}

// AccessibleItemIDs returns the union of directly granted item ids and
// every folder grant's frozen item set.
func (s *EntitlementService) AccessibleItemIDs(ctx context.Context, userID string) ([]string, error) {
	grants, err := s.grants.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	set := make(map[string]struct{})
	var ids []string
	add := func(id string) {
		if _, dup := set[id]; !dup {
			set[id] = struct{}{}
			ids = append(ids, id)
		}
	}

	for _, grant := range grants {
		switch grant.AccessType {
		case domain.AccessItem:
			add(grant.TargetID)
		case domain.AccessFolder:
			for _, id := range grant.IncludedItemIDs {
				add(id)
			}
		}
	}
	return ids, nil
}

// AccessibleFolders returns the user's folder grants.
func (s *EntitlementService) AccessibleFolders(ctx context.Context, userID string) ([]*domain.AccessGrant, error) {
	return s.grants.ListFolderGrants(ctx, userID)
}
