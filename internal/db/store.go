package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Suhaibinator/SChangelog/internal/models"
	"github.com/Suhaibinator/SChangelog/internal/release"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

var ErrProjectNotFound = errors.New("project not found")

// Store is the parameterized query interface the ingestion pipeline uses against the
// projects and versions tables. Every method issues a single statement (or a short
// read-then-write sequence) on the shared handle.
type Store struct {
	db *gorm.DB
}

// NewStore wraps an open gorm handle.
func NewStore(gormDB *gorm.DB) *Store {
	return &Store{db: gormDB}
}

// DB exposes the underlying handle.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Close releases the connection.
func (s *Store) Close() error {
	return Close(s.db)
}

// FindProjectByName returns ErrProjectNotFound when no project has that name.
func (s *Store) FindProjectByName(ctx context.Context, name string) (models.Project, error) {
	var project models.Project
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&project).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Project{}, ErrProjectNotFound
	}
	if err != nil {
		return models.Project{}, fmt.Errorf("failed to find project %q: %w", name, err)
	}
	return project, nil
}

// ListProjects returns every project ordered by name.
func (s *Store) ListProjects(ctx context.Context) ([]models.Project, error) {
	var projects []models.Project
	if err := s.db.WithContext(ctx).Order("name").Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

// ResolveProject finds the project by name or creates it with the given icon.
// created reports whether a new row was inserted.
func (s *Store) ResolveProject(ctx context.Context, name, icon string) (project models.Project, created bool, err error) {
	project, err = s.FindProjectByName(ctx, name)
	if err == nil {
		return project, false, nil
	}
	if !errors.Is(err, ErrProjectNotFound) {
		return models.Project{}, false, err
	}

	project = models.Project{Name: name, Icon: icon, Slug: slug.Make(name)}
	if err := s.db.WithContext(ctx).Create(&project).Error; err != nil {
		return models.Project{}, false, fmt.Errorf("failed to create project %q: %w", name, err)
	}
	return project, true, nil
}

// ExistingVersions loads the set of version strings already stored for a project.
func (s *Store) ExistingVersions(ctx context.Context, projectID uint) (map[string]struct{}, error) {
	var versions []string
	err := s.db.WithContext(ctx).Model(&models.Version{}).Where("project_id = ?", projectID).Pluck("version", &versions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load versions of project %d: %w", projectID, err)
	}
	set := make(map[string]struct{}, len(versions))
	for _, v := range versions {
		set[v] = struct{}{}
	}
	return set, nil
}

// InsertVersion creates the row for a new (project, version).
func (s *Store) InsertVersion(ctx context.Context, rec release.Record) error {
	version := models.Version{
		ProjectID:   rec.ProjectID,
		Version:     rec.Version,
		UpdateTime:  rec.Date,
		Content:     rec.Content,
		DownloadURL: rec.DownloadURL,
	}
	if err := s.db.WithContext(ctx).Create(&version).Error; err != nil {
		return fmt.Errorf("failed to insert version %s: %w", rec.Version, err)
	}
	return nil
}

// UpdateVersion overwrites date, content and download URL of an existing (project, version).
// Project linkage and the version string are never touched.
func (s *Store) UpdateVersion(ctx context.Context, rec release.Record) error {
	result := s.db.WithContext(ctx).Model(&models.Version{}).
		Where("project_id = ? AND version = ?", rec.ProjectID, rec.Version).
		Updates(map[string]any{
			"update_time":  rec.Date,
			"content":      rec.Content,
			"download_url": rec.DownloadURL,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update version %s: %w", rec.Version, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("failed to update version %s: %w", rec.Version, gorm.ErrRecordNotFound)
	}
	return nil
}

// UpdateLatest sets the cached latest pointer of a project.
func (s *Store) UpdateLatest(ctx context.Context, projectID uint, version string, date time.Time) error {
	err := s.db.WithContext(ctx).Model(&models.Project{}).Where("id = ?", projectID).
		Updates(map[string]any{"latest_version": version, "latest_update_time": date}).Error
	if err != nil {
		return fmt.Errorf("failed to update latest version of project %d: %w", projectID, err)
	}
	return nil
}

// RecomputeLatest rebuilds the latest pointer from the stored versions (most recent
// update_time wins, ties broken by insertion order). A project without versions gets
// an empty pointer. Returns the version the pointer now refers to.
func (s *Store) RecomputeLatest(ctx context.Context, projectID uint) (string, error) {
	var latest models.Version
	err := s.db.WithContext(ctx).Where("project_id = ?", projectID).
		Order("update_time DESC").Order("id DESC").
		First(&latest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = s.db.WithContext(ctx).Model(&models.Project{}).Where("id = ?", projectID).
			Updates(map[string]any{"latest_version": "", "latest_update_time": nil}).Error
		if err != nil {
			return "", fmt.Errorf("failed to clear latest version of project %d: %w", projectID, err)
		}
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to find latest version of project %d: %w", projectID, err)
	}
	return latest.Version, s.UpdateLatest(ctx, projectID, latest.Version, latest.UpdateTime)
}

// MatchingVersions returns the versions of a project for which match returns true,
// loading only their id and version columns.
func (s *Store) MatchingVersions(ctx context.Context, projectID uint, match func(version string) bool) ([]models.Version, error) {
	var versions []models.Version
	if err := s.db.WithContext(ctx).Select("id", "version").Where("project_id = ?", projectID).Order("id").Find(&versions).Error; err != nil {
		return nil, fmt.Errorf("failed to list versions of project %d: %w", projectID, err)
	}
	matched := versions[:0]
	for _, v := range versions {
		if match(v.Version) {
			matched = append(matched, v)
		}
	}
	return matched, nil
}

// DeleteVersionsMatching removes the versions of a project for which match returns true
// and returns the deleted version strings.
func (s *Store) DeleteVersionsMatching(ctx context.Context, projectID uint, match func(version string) bool) ([]string, error) {
	versions, err := s.MatchingVersions(ctx, projectID, match)
	if err != nil {
		return nil, err
	}

	var deleted []string
	for _, v := range versions {
		if err := s.db.WithContext(ctx).Delete(&models.Version{}, v.ID).Error; err != nil {
			return deleted, fmt.Errorf("failed to delete version %s: %w", v.Version, err)
		}
		deleted = append(deleted, v.Version)
	}
	return deleted, nil
}
