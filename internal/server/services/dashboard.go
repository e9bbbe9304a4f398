package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/resourcehub/internal/server/models"
	"github.com/dmitrijs2005/resourcehub/internal/server/repositories/repomanager"
)

// TopResourcesLimit is the length of the admin dashboard's top list.
const TopResourcesLimit = 5

// DashboardService aggregates counters for the user and admin dashboards.
type DashboardService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	activity    *ActivityService
}

func NewDashboardService(db *sql.DB, m repomanager.RepositoryManager, activity *ActivityService) *DashboardService {
	return &DashboardService{db: db, repomanager: m, activity: activity}
}

// User summarises the resources owned by userID and their recent activity.
func (s *DashboardService) User(ctx context.Context, userID string) (*models.UserDashboard, error) {
	stats, err := s.repomanager.Resources(s.db).Stats(ctx, &userID)
	if err != nil {
		return nil, fmt.Errorf("error counting resources: %w", err)
	}

	logs, err := s.activity.Recent(ctx, &userID, RecentLogsLimit)
	if err != nil {
		return nil, err
	}

	return &models.UserDashboard{
		TotalResources: stats.Count,
		TotalDownloads: stats.Downloads,
		RecentLogs:     logs,
	}, nil
}

// Admin summarises the whole system.
func (s *DashboardService) Admin(ctx context.Context) (*models.AdminDashboard, error) {
	users, err := s.repomanager.Users(s.db).Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("error counting users: %w", err)
	}

	resources := s.repomanager.Resources(s.db)

	stats, err := resources.Stats(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("error counting resources: %w", err)
	}

	top, err := resources.Top(ctx, TopResourcesLimit)
	if err != nil {
		return nil, fmt.Errorf("error loading top resources: %w", err)
	}

	logs, err := s.activity.Recent(ctx, nil, RecentLogsLimit)
	if err != nil {
		return nil, err
	}

	return &models.AdminDashboard{
		TotalUsers:     users,
		TotalResources: stats.Count,
		DownloadsCount: stats.Downloads,
		TopResources:   top,
		RecentLogs:     logs,
	}, nil
}
