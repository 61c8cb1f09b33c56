package post

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func strptr(s string) *string { return &s }

func TestCreateDefaultsToDraft(t *testing.T) {
	store := newFakeStore()
	service := NewService(store)

	p, err := service.Create(context.Background(), "user_admin", Draft{
		Title: "Hello",
		Body:  "body",
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if p.Status != StatusDraft {
		t.Fatalf("expected draft status, got %s", p.Status)
	}
	if p.PublishedAt != nil {
		t.Fatalf("draft must not carry a publish timestamp")
	}
	if p.AuthorID != "user_admin" {
		t.Fatalf("author not recorded: %s", p.AuthorID)
	}
}

func TestCreatePublishedStampsTimestamp(t *testing.T) {
	service := NewService(newFakeStore())

	p, err := service.Create(context.Background(), "user_admin", Draft{
		Title:  "Hello",
		Body:   "body",
		Status: StatusPublished,
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if p.PublishedAt == nil {
		t.Fatalf("expected published_at stamped on publish-at-create")
	}
}

func TestCreateRejectsUnknownStatus(t *testing.T) {
	service := NewService(newFakeStore())

	_, err := service.Create(context.Background(), "user_admin", Draft{
		Title:  "Hello",
		Body:   "body",
		Status: "archived",
	})
	if !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestCreateRejectsDuplicateSlug(t *testing.T) {
	store := newFakeStore()
	service := NewService(store)

	if _, err := service.Create(context.Background(), "user_admin", Draft{
		Title: "First",
		Body:  "body",
		Slug:  strptr("hello-world"),
	}); err != nil {
		t.Fatalf("first Create: %v", err)
	}

	_, err := service.Create(context.Background(), "user_admin", Draft{
		Title: "Second",
		Body:  "body",
		Slug:  strptr("hello-world"),
	})
	if !errors.Is(err, ErrSlugExists) {
		t.Fatalf("expected ErrSlugExists, got %v", err)
	}
}

func TestUpdateKeepsSlugWithoutConflictCheck(t *testing.T) {
	store := newFakeStore()
	service := NewService(store)

	p, err := service.Create(context.Background(), "user_admin", Draft{
		Title: "First",
		Body:  "body",
		Slug:  strptr("stable-slug"),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Re-submitting the post's own slug must not trip the uniqueness check.
	updated, err := service.Update(context.Background(), p.ID, Draft{
		Title: "First, edited",
		Body:  "new body",
		Slug:  strptr("stable-slug"),
	})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if updated.Title != "First, edited" {
		t.Fatalf("title not updated: %s", updated.Title)
	}
}

func TestUpdateRejectsSlugOwnedByAnotherPost(t *testing.T) {
	store := newFakeStore()
	service := NewService(store)

	if _, err := service.Create(context.Background(), "user_admin", Draft{
		Title: "First",
		Body:  "body",
		Slug:  strptr("taken"),
	}); err != nil {
		t.Fatalf("Create first: %v", err)
	}
	second, err := service.Create(context.Background(), "user_admin", Draft{
		Title: "Second",
		Body:  "body",
		Slug:  strptr("free"),
	})
	if err != nil {
		t.Fatalf("Create second: %v", err)
	}

	_, err = service.Update(context.Background(), second.ID, Draft{
		Title: "Second",
		Body:  "body",
		Slug:  strptr("taken"),
	})
	if !errors.Is(err, ErrSlugExists) {
		t.Fatalf("expected ErrSlugExists, got %v", err)
	}
}

func TestUpdateUnknownPost(t *testing.T) {
	service := NewService(newFakeStore())

	_, err := service.Update(context.Background(), uuid.New(), Draft{Title: "x", Body: "y"})
	if !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("expected ErrPostNotFound, got %v", err)
	}
}

func TestPublishStampsTimestampOnce(t *testing.T) {
	store := newFakeStore()
	service := NewService(store)

	p, err := service.Create(context.Background(), "user_admin", Draft{Title: "t", Body: "b"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	first, err := service.Publish(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if first.PublishedAt == nil {
		t.Fatalf("expected published_at stamped")
	}

	// Unpublish, then publish again: the original timestamp survives.
	if _, err := service.ChangeStatus(context.Background(), p.ID, StatusDraft); err != nil {
		t.Fatalf("ChangeStatus: %v", err)
	}
	second, err := service.Publish(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("second Publish: %v", err)
	}
	if !second.PublishedAt.Equal(*first.PublishedAt) {
		t.Fatalf("published_at rewritten: %v -> %v", first.PublishedAt, second.PublishedAt)
	}
}

func TestChangeStatusValidatesInput(t *testing.T) {
	service := NewService(newFakeStore())

	_, err := service.ChangeStatus(context.Background(), uuid.New(), "frozen")
	if !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestSoftDeleteHidesFromPublicFeed(t *testing.T) {
	store := newFakeStore()
	service := NewService(store)

	p, err := service.Create(context.Background(), "user_admin", Draft{
		Title:  "t",
		Body:   "b",
		Slug:   strptr("doomed"),
		Status: StatusPublished,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := service.SoftDelete(context.Background(), p.ID, "user_admin"); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}

	if _, err := service.GetPublishedBySlug(context.Background(), "doomed"); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("expected deleted post hidden, got %v", err)
	}

	// Admin read still sees the record with its deletion markers.
	got, err := service.Get(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("Get after delete: %v", err)
	}
	if !got.IsDeleted || got.DeletedBy == nil || *got.DeletedBy != "user_admin" {
		t.Fatalf("deletion markers missing: %+v", got)
	}
}

func TestRestoreReversesSoftDelete(t *testing.T) {
	store := newFakeStore()
	service := NewService(store)

	p, err := service.Create(context.Background(), "user_admin", Draft{
		Title:  "t",
		Body:   "b",
		Slug:   strptr("phoenix"),
		Status: StatusPublished,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := service.SoftDelete(context.Background(), p.ID, "user_admin"); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	restored, err := service.Restore(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if restored.IsDeleted {
		t.Fatalf("post still marked deleted after restore")
	}

	if _, err := service.GetPublishedBySlug(context.Background(), "phoenix"); err != nil {
		t.Fatalf("restored post not publicly visible: %v", err)
	}
}

func TestListPublishedFiltersTagAndSearch(t *testing.T) {
	store := newFakeStore()
	service := NewService(store)

	seed := []Draft{
		{Title: "Go concurrency patterns", Body: "b", Slug: strptr("go-conc"), Tags: []string{"go"}, Status: StatusPublished},
		{Title: "Postgres indexing", Body: "b", Slug: strptr("pg-idx"), Tags: []string{"databases"}, Status: StatusPublished},
		{Title: "Drafting in secret", Body: "b", Slug: strptr("secret"), Tags: []string{"go"}},
	}
	for _, d := range seed {
		if _, err := service.Create(context.Background(), "user_admin", d); err != nil {
			t.Fatalf("seed Create: %v", err)
		}
	}

	byTag, err := service.ListPublished(context.Background(), PublicFilter{Tag: "go"})
	if err != nil {
		t.Fatalf("ListPublished by tag: %v", err)
	}
	if len(byTag) != 1 || byTag[0].Title != "Go concurrency patterns" {
		t.Fatalf("tag filter returned %d posts", len(byTag))
	}

	bySearch, err := service.ListPublished(context.Background(), PublicFilter{Search: "indexing"})
	if err != nil {
		t.Fatalf("ListPublished by search: %v", err)
	}
	if len(bySearch) != 1 || bySearch[0].Title != "Postgres indexing" {
		t.Fatalf("search filter returned %d posts", len(bySearch))
	}
}

func TestListClampsPageSize(t *testing.T) {
	store := newFakeStore()
	service := NewService(store)

	if _, err := service.ListPublished(context.Background(), PublicFilter{Limit: 5000}); err != nil {
		t.Fatalf("ListPublished: %v", err)
	}
	if store.lastPublicFilter.Limit != 10 {
		t.Fatalf("oversized limit not clamped to fallback, got %d", store.lastPublicFilter.Limit)
	}

	if _, err := service.ListAdmin(context.Background(), AdminFilter{Limit: -1}); err != nil {
		t.Fatalf("ListAdmin: %v", err)
	}
	if store.lastAdminFilter.Limit != 50 {
		t.Fatalf("negative limit not clamped to fallback, got %d", store.lastAdminFilter.Limit)
	}
}

// --- fake store ---

type fakeStore struct {
	mu               sync.Mutex
	posts            map[uuid.UUID]Post
	lastAdminFilter  AdminFilter
	lastPublicFilter PublicFilter
}

func newFakeStore() *fakeStore {
	return &fakeStore{posts: make(map[uuid.UUID]Post)}
}

func (f *fakeStore) Create(ctx context.Context, p Post) (Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	f.posts[p.ID] = p
	return p, nil
}

func (f *fakeStore) GetByID(ctx context.Context, id uuid.UUID) (Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[id]
	if !ok {
		return Post{}, ErrPostNotFound
	}
	return p, nil
}

func (f *fakeStore) Update(ctx context.Context, id uuid.UUID, d Draft) (Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[id]
	if !ok {
		return Post{}, ErrPostNotFound
	}
	p.Title = d.Title
	p.Slug = d.Slug
	p.Summary = d.Summary
	p.Body = d.Body
	p.Tags = d.Tags
	if d.Status != "" {
		if d.Status == StatusPublished && p.PublishedAt == nil {
			now := time.Now().UTC()
			p.PublishedAt = &now
		}
		p.Status = d.Status
	}
	p.UpdatedAt = time.Now().UTC()
	f.posts[id] = p
	return p, nil
}

func (f *fakeStore) SetStatus(ctx context.Context, id uuid.UUID, status string) (Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[id]
	if !ok {
		return Post{}, ErrPostNotFound
	}
	if status == StatusPublished && p.PublishedAt == nil {
		now := time.Now().UTC()
		p.PublishedAt = &now
	}
	p.Status = status
	p.UpdatedAt = time.Now().UTC()
	f.posts[id] = p
	return p, nil
}

func (f *fakeStore) SoftDelete(ctx context.Context, id uuid.UUID, deletedBy string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[id]
	if !ok {
		return ErrPostNotFound
	}
	now := time.Now().UTC()
	p.IsDeleted = true
	p.DeletedAt = &now
	p.DeletedBy = &deletedBy
	f.posts[id] = p
	return nil
}

func (f *fakeStore) Restore(ctx context.Context, id uuid.UUID) (Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[id]
	if !ok {
		return Post{}, ErrPostNotFound
	}
	p.IsDeleted = false
	p.DeletedAt = nil
	p.DeletedBy = nil
	f.posts[id] = p
	return p, nil
}

func (f *fakeStore) ListAdmin(ctx context.Context, filter AdminFilter) ([]Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastAdminFilter = filter
	var out []Post
	for _, p := range f.posts {
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.IsDeleted != nil && p.IsDeleted != *filter.IsDeleted {
			continue
		}
		out = append(out, p)
	}
	sortNewestFirst(out)
	return out, nil
}

func (f *fakeStore) ListPublished(ctx context.Context, filter PublicFilter) ([]Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastPublicFilter = filter
	var out []Post
	for _, p := range f.posts {
		if p.Status != StatusPublished || p.IsDeleted {
			continue
		}
		if filter.Tag != "" && !hasTag(p.Tags, filter.Tag) {
			continue
		}
		if filter.Search != "" && !matchesSearch(p, filter.Search) {
			continue
		}
		out = append(out, p)
	}
	sortNewestFirst(out)
	return out, nil
}

func (f *fakeStore) GetPublishedBySlug(ctx context.Context, slug string) (Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.posts {
		if p.Slug != nil && *p.Slug == slug && p.Status == StatusPublished && !p.IsDeleted {
			return p, nil
		}
	}
	return Post{}, ErrPostNotFound
}

func (f *fakeStore) GetPublishedByID(ctx context.Context, id uuid.UUID) (Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[id]
	if !ok || p.Status != StatusPublished || p.IsDeleted {
		return Post{}, ErrPostNotFound
	}
	return p, nil
}

func (f *fakeStore) SlugTaken(ctx context.Context, slug string, excludeID *uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.posts {
		if excludeID != nil && p.ID == *excludeID {
			continue
		}
		if p.Slug != nil && *p.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func hasTag(tags []string, want string) bool {
	for _, t := range tags {
		if t == want {
			return true
		}
	}
	return false
}

func matchesSearch(p Post, q string) bool {
	q = strings.ToLower(q)
	if strings.Contains(strings.ToLower(p.Title), q) {
		return true
	}
	return p.Summary != nil && strings.Contains(strings.ToLower(*p.Summary), q)
}

func sortNewestFirst(posts []Post) {
	sort.Slice(posts, func(i, j int) bool {
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
}
