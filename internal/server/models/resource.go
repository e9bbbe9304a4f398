package models

import "time"

// Resource is an uploaded file or an external link.
//
// FileURL is set when a stored file backs the resource, Link when an
// external URL does. CreatedBy is immutable after insert and Downloads is
// only changed by the download path.
type Resource struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	FileURL     *string      `json:"fileUrl"`
	Link        *string      `json:"link"`
	Tags        []string     `json:"tags"`
	CreatedByID string       `json:"-"`
	CreatedBy   *UserSummary `json:"createdBy,omitempty"`
	Downloads   int64        `json:"downloads"`
	Logs        []string     `json:"logs"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// ResourceSummary is the display form of a resource reference.
type ResourceSummary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Sort columns accepted by ListFilter.Sort.
const (
	SortCreatedAt = "createdAt"
	SortUpdatedAt = "updatedAt"
	SortTitle     = "title"
	SortDownloads = "downloads"
)

// ListFilter selects a page of resources.
type ListFilter struct {
	Search string
	Tags   []string
	Page   int
	Limit  int
	Sort   string
	Asc    bool
}

// ListResult is one page of resources plus paging totals.
type ListResult struct {
	Resources  []*Resource `json:"resources"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int64       `json:"totalPages"`
}
