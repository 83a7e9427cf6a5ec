package starcat

import (
	"context"
	"strings"
	"time"
)

// Entry represents one cataloged repository.
type Entry struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Owner     string    `json:"owner"`
	URL       string    `json:"url"`
	Stars     int       `json:"stars"`
	Language  string    `json:"language"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}

// NewEntry returns an entry for an "owner/name" identifier with the display
// name, owner and canonical URL derived from it.
func NewEntry(id string, stars int, language string) *Entry {
	owner, name, _ := strings.Cut(id, "/")
	return &Entry{
		ID:       id,
		Name:     name,
		Owner:    owner,
		URL:      "https://github.com/" + id,
		Stars:    stars,
		Language: language,
	}
}

// Validate returns an error if the entry contains invalid fields.
func (e *Entry) Validate() error {
	owner, name, ok := strings.Cut(e.ID, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return Errorf(EINVALID, "entry ID must be owner/name, got %q", e.ID)
	}
	if e.Stars < 0 {
		return Errorf(EINVALID, "entry stars must be non-negative")
	}
	return nil
}

// EntryService represents the record store holding the canonical entries.
type EntryService interface {
	// MergeEntries folds a fresh listing into the store. Unknown entries are
	// added, known entries have their stars and language overwritten, and
	// entries missing from the listing are retained.
	MergeEntries(ctx context.Context, entries []*Entry) (*MergeResult, error)

	// FindEntryByID retrieves an entry by ID.
	// Returns ENOTFOUND if entry does not exist.
	FindEntryByID(ctx context.Context, id string) (*Entry, error)

	// FindEntries retrieves entries matching the filter.
	FindEntries(ctx context.Context, filter EntryFilter) ([]*Entry, error)

	// DeleteEntry permanently removes an entry.
	// Returns ENOTFOUND if entry does not exist.
	DeleteEntry(ctx context.Context, id string) error
}

// MergeResult reports the outcome of MergeEntries.
type MergeResult struct {
	SyncID  string `json:"syncId"`
	Added   int    `json:"added"`
	Updated int    `json:"updated"`
	Total   int    `json:"total"`
}

// EntryFilter represents a filter for FindEntries.
type EntryFilter struct {
	IDs      []string `json:"ids"`
	Language *string  `json:"language"`
	MinStars *int     `json:"minStars"`

	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// EntrySource lists entries from the remote hosting service.
type EntrySource interface {
	// ListEntries returns every entry, following pagination to the end.
	ListEntries(ctx context.Context) ([]*Entry, error)
}
