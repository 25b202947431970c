package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mansoorceksport/mediakart/internal/domain"
)

// fakeCatalogRepo is an in-memory CatalogRepository for service tests.
type fakeCatalogRepo struct {
	mu      sync.Mutex
	seq     int
	folders map[string]*domain.Folder
	items   map[string]*domain.Item
}

func newFakeCatalogRepo() *fakeCatalogRepo {
	return &fakeCatalogRepo{
		folders: make(map[string]*domain.Folder),
		items:   make(map[string]*domain.Item),
	}
}

func (r *fakeCatalogRepo) nextID(prefix string) string {
	r.seq++
	return fmt.Sprintf("%s-%03d", prefix, r.seq)
}

func (r *fakeCatalogRepo) CreateFolder(ctx context.Context, folder *domain.Folder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	folder.ID = r.nextID("folder")
	folder.CreatedAt = time.Now().UTC()
	folder.UpdatedAt = folder.CreatedAt
	cp := *folder
	r.folders[folder.ID] = &cp
	return nil
}

func (r *fakeCatalogRepo) FolderByID(ctx context.Context, kind domain.Kind, id string) (*domain.Folder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.folders[id]
	if !ok || f.Kind != kind {
		return nil, domain.ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (r *fakeCatalogRepo) ChildFolders(ctx context.Context, kind domain.Kind, parentID *string) ([]*domain.Folder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Folder
	for _, f := range r.folders {
		if f.Kind != kind {
			continue
		}
		if sameRef(f.ParentID, parentID) {
			cp := *f
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeCatalogRepo) UpdateFolder(ctx context.Context, folder *domain.Folder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.folders[folder.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *folder
	cp.UpdatedAt = time.Now().UTC()
	r.folders[folder.ID] = &cp
	return nil
}

func (r *fakeCatalogRepo) SetFolderParent(ctx context.Context, kind domain.Kind, id string, parentID *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.folders[id]
	if !ok || f.Kind != kind {
		return domain.ErrNotFound
	}
	f.ParentID = parentID
	return nil
}

func (r *fakeCatalogRepo) SetFolderItemCount(ctx context.Context, kind domain.Kind, id string, count int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.folders[id]
	if !ok || f.Kind != kind {
		return domain.ErrNotFound
	}
	f.ItemCount = count
	return nil
}

func (r *fakeCatalogRepo) DeleteFolders(ctx context.Context, kind domain.Kind, ids []string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, id := range ids {
		if f, ok := r.folders[id]; ok && f.Kind == kind {
			delete(r.folders, id)
			n++
		}
	}
	return n, nil
}

func (r *fakeCatalogRepo) CreateItem(ctx context.Context, item *domain.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item.ID = r.nextID("item")
	item.CreatedAt = time.Now().UTC()
	item.UpdatedAt = item.CreatedAt
	cp := *item
	r.items[item.ID] = &cp
	return nil
}

func (r *fakeCatalogRepo) ItemByID(ctx context.Context, kind domain.Kind, id string) (*domain.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.items[id]
	if !ok || it.Kind != kind {
		return nil, domain.ErrNotFound
	}
	cp := *it
	return &cp, nil
}

func (r *fakeCatalogRepo) ItemsInFolder(ctx context.Context, kind domain.Kind, folderID *string, order domain.ItemOrder) ([]*domain.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Item
	for _, it := range r.items {
		if it.Kind != kind {
			continue
		}
		if sameRef(it.FolderID, folderID) {
			cp := *it
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if order == domain.ItemOrderDesc {
			return out[i].ID > out[j].ID
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *fakeCatalogRepo) CountItemsInFolder(ctx context.Context, kind domain.Kind, folderID string) (int64, error) {
	items, err := r.ItemsInFolder(ctx, kind, &folderID, domain.ItemOrderAsc)
	if err != nil {
		return 0, err
	}
	return int64(len(items)), nil
}

func (r *fakeCatalogRepo) UpdateItem(ctx context.Context, item *domain.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[item.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *item
	cp.UpdatedAt = time.Now().UTC()
	r.items[item.ID] = &cp
	return nil
}

func (r *fakeCatalogRepo) SetItemFolder(ctx context.Context, kind domain.Kind, id string, folderID *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.items[id]
	if !ok || it.Kind != kind {
		return domain.ErrNotFound
	}
	it.FolderID = folderID
	return nil
}

func (r *fakeCatalogRepo) DeleteItem(ctx context.Context, kind domain.Kind, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.items[id]
	if !ok || it.Kind != kind {
		return domain.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *fakeCatalogRepo) DeleteItemsInFolders(ctx context.Context, kind domain.Kind, folderIDs []string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	in := make(map[string]struct{}, len(folderIDs))
	for _, id := range folderIDs {
		in[id] = struct{}{}
	}
	var n int64
	for id, it := range r.items {
		if it.Kind != kind || it.FolderID == nil {
			continue
		}
		if _, ok := in[*it.FolderID]; ok {
			delete(r.items, id)
			n++
		}
	}
	return n, nil
}

func (r *fakeCatalogRepo) ItemIDsInFolders(ctx context.Context, kind domain.Kind, folderIDs []string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	in := make(map[string]struct{}, len(folderIDs))
	for _, id := range folderIDs {
		in[id] = struct{}{}
	}
	var ids []string
	for id, it := range r.items {
		if it.Kind != kind || it.FolderID == nil {
			continue
		}
		if _, ok := in[*it.FolderID]; ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func sameRef(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// fakeGrantRepo enforces (user, access type, target) uniqueness like the
// Mongo index does.
type fakeGrantRepo struct {
	mu     sync.Mutex
	seq    int
	grants []*domain.AccessGrant
}

func newFakeGrantRepo() *fakeGrantRepo { return &fakeGrantRepo{} }

func (r *fakeGrantRepo) Insert(ctx context.Context, grant *domain.AccessGrant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, g := range r.grants {
		if g.UserID == grant.UserID && g.AccessType == grant.AccessType && g.TargetID == grant.TargetID {
			return domain.ErrConflict
		}
	}
	r.seq++
	grant.ID = fmt.Sprintf("grant-%03d", r.seq)
	grant.GrantedAt = time.Now().UTC()
	cp := *grant
	r.grants = append(r.grants, &cp)
	return nil
}

func (r *fakeGrantRepo) Get(ctx context.Context, userID, accessType, targetID string) (*domain.AccessGrant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, g := range r.grants {
		if g.UserID == userID && g.AccessType == accessType && g.TargetID == targetID {
			cp := *g
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeGrantRepo) ListByUser(ctx context.Context, userID string) ([]*domain.AccessGrant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.AccessGrant
	for _, g := range r.grants {
		if g.UserID == userID {
			cp := *g
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeGrantRepo) ListFolderGrants(ctx context.Context, userID string) ([]*domain.AccessGrant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.AccessGrant
	for _, g := range r.grants {
		if g.UserID == userID && g.AccessType == domain.AccessFolder {
			cp := *g
			out = append(out, &cp)
		}
	}
	return out, nil
}

// fakeCouponRepo keys coupons by normalized code.
type fakeCouponRepo struct {
	mu      sync.Mutex
	seq     int
	coupons map[string]*domain.Coupon // by id
}

func newFakeCouponRepo() *fakeCouponRepo {
	return &fakeCouponRepo{coupons: make(map[string]*domain.Coupon)}
}

func (r *fakeCouponRepo) Create(ctx context.Context, coupon *domain.Coupon) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	coupon.Code = domain.NormalizeCouponCode(coupon.Code)
	for _, c := range r.coupons {
		if c.Code == coupon.Code {
			return domain.ErrConflict
		}
	}
	r.seq++
	coupon.ID = fmt.Sprintf("coupon-%03d", r.seq)
	cp := *coupon
	r.coupons[coupon.ID] = &cp
	return nil
}

func (r *fakeCouponRepo) GetByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	code = domain.NormalizeCouponCode(code)
	for _, c := range r.coupons {
		if c.Code == code {
			cp := *c
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeCouponRepo) List(ctx context.Context) ([]*domain.Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Coupon
	for _, c := range r.coupons {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeCouponRepo) Update(ctx context.Context, coupon *domain.Coupon) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.coupons[coupon.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *coupon
	r.coupons[coupon.ID] = &cp
	return nil
}

func (r *fakeCouponRepo) SetActive(ctx context.Context, id string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.coupons[id]
	if !ok {
		return domain.ErrNotFound
	}
	c.IsActive = active
	return nil
}

func (r *fakeCouponRepo) IncrementUsage(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.coupons[id]
	if !ok {
		return domain.ErrNotFound
	}
	if c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit {
		return domain.ErrConflict
	}
	c.UsedCount++
	return nil
}

// fakePurchaseRepo is insert-only, like the real ledger. A non-nil
// createErr fails the next Create once, then clears.
type fakePurchaseRepo struct {
	mu        sync.Mutex
	seq       int
	createErr error
	purchases []*domain.Purchase
}

func newFakePurchaseRepo() *fakePurchaseRepo { return &fakePurchaseRepo{} }

func (r *fakePurchaseRepo) Create(ctx context.Context, purchase *domain.Purchase) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		err := r.createErr
		r.createErr = nil
		return err
	}
	r.seq++
	purchase.ID = fmt.Sprintf("purchase-%03d", r.seq)
	purchase.CreatedAt = time.Now().UTC()
	cp := *purchase
	r.purchases = append(r.purchases, &cp)
	return nil
}

func (r *fakePurchaseRepo) GetByID(ctx context.Context, id string) (*domain.Purchase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.purchases {
		if p.ID == id {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakePurchaseRepo) ListByUser(ctx context.Context, userID string) ([]*domain.Purchase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Purchase
	for i := len(r.purchases) - 1; i >= 0; i-- {
		if r.purchases[i].UserID == userID {
			cp := *r.purchases[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

// fakeCartStash claims each correlation id at most once.
type fakeCartStash struct {
	mu    sync.Mutex
	carts map[string]*domain.StashedCart
}

func newFakeCartStash() *fakeCartStash {
	return &fakeCartStash{carts: make(map[string]*domain.StashedCart)}
}

func (s *fakeCartStash) Put(ctx context.Context, cart *domain.StashedCart, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *cart
	s.carts[cart.CorrelationID] = &cp
	return nil
}

func (s *fakeCartStash) Claim(ctx context.Context, correlationID string) (*domain.StashedCart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cart, ok := s.carts[correlationID]
	if !ok {
		return nil, domain.ErrStaleCart
	}
	delete(s.carts, correlationID)
	return cart, nil
}
