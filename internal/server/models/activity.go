package models

import "time"

// Audited actions. The column is free text; these are the values the
// server writes.
const (
	ActionUpload = "upload"
	ActionCreate = "create"
	ActionEdit   = "edit"
	ActionDelete = "delete"
)

// ActivityLog is one immutable audit record. ResourceID may reference a
// resource that no longer exists, in which case Resource is nil.
type ActivityLog struct {
	ID         string           `json:"id"`
	UserID     string           `json:"-"`
	User       *UserSummary     `json:"user"`
	Action     string           `json:"action"`
	ResourceID *string          `json:"-"`
	Resource   *ResourceSummary `json:"resource"`
	Timestamp  time.Time        `json:"timestamp"`
}

// TopResource is an entry of the admin dashboard's most downloaded list.
type TopResource struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Downloads int64  `json:"downloads"`
}

// UserDashboard summarises one user's resources.
type UserDashboard struct {
	TotalResources int64          `json:"totalResources"`
	TotalDownloads int64          `json:"totalDownloads"`
	RecentLogs     []*ActivityLog `json:"recentLogs"`
}

// AdminDashboard summarises the whole system.
type AdminDashboard struct {
	TotalUsers     int64          `json:"totalUsers"`
	TotalResources int64          `json:"totalResources"`
	DownloadsCount int64          `json:"downloadsCount"`
	TopResources   []*TopResource `json:"topResources"`
	RecentLogs     []*ActivityLog `json:"recentLogs"`
}
