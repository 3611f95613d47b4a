package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Suhaibinator/SChangelog/internal/api/response"
	"github.com/Suhaibinator/SChangelog/internal/db"
	"github.com/Suhaibinator/SChangelog/internal/models"
	"github.com/Suhaibinator/SChangelog/internal/writer"
	"github.com/gorilla/mux"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

// Handler serves the query and administration API over the projects and versions tables.
type Handler struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewHandler(gormDB *gorm.DB, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{db: gormDB, log: log.Named("api")}
}

// ListProjectsResponse defines the structure for the list projects endpoint.
type ListProjectsResponse struct {
	Projects []models.Project `json:"projects"`
}

// ListProjects handles requests to list all projects, most recently released first.
// GET /api/v1/projects
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	var projects []models.Project
	err := h.db.WithContext(r.Context()).
		Order("latest_update_time DESC").Order("name").
		Find(&projects).Error
	if err != nil {
		h.log.Error("Error listing projects", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "Failed to retrieve projects")
		return
	}

	respData := ListProjectsResponse{Projects: projects}
	if projects == nil {
		// Ensure we return an empty array instead of null if no projects exist
		respData.Projects = []models.Project{}
	}
	h.writeJSON(w, http.StatusOK, respData)
}

// GetProject handles requests for one project with its versions, newest first.
// GET /api/v1/projects/{id}
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var project models.Project
	err := h.db.WithContext(r.Context()).
		Preload("Versions", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("update_time DESC").Order("id DESC")
		}).
		First(&project, id).Error
	if err != nil {
		h.notFoundOrError(w, err, "Project", id)
		return
	}
	h.writeJSON(w, http.StatusOK, project)
}

// CreateProjectRequest is the body of POST /api/v1/projects.
type CreateProjectRequest struct {
	Name     string `json:"name"`
	Icon     string `json:"icon"`
	Describe string `json:"describe"`
	Summar   string `json:"summar"`
	Author   string `json:"author"`
	Type     string `json:"type"`
}

// CreateProject registers a project by hand.
// POST /api/v1/projects
// Requires Authentication.
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req CreateProjectRequest
	if !h.decode(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		response.Error(w, http.StatusBadRequest, "Project name is required")
		return
	}

	var existing int64
	if err := h.db.WithContext(r.Context()).Model(&models.Project{}).Where("name = ?", req.Name).Count(&existing).Error; err != nil {
		h.log.Error("Error checking for existing project", zap.String("name", req.Name), zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "Database error during project check")
		return
	}
	if existing > 0 {
		response.Error(w, http.StatusConflict, fmt.Sprintf("project '%s' already exists", req.Name))
		return
	}

	project := models.Project{
		Name:     req.Name,
		Slug:     slug.Make(req.Name),
		Icon:     req.Icon,
		Describe: req.Describe,
		Summar:   req.Summar,
		Author:   req.Author,
		Type:     req.Type,
	}
	if err := h.db.WithContext(r.Context()).Create(&project).Error; err != nil {
		h.log.Error("Error creating project", zap.String("name", req.Name), zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "Database error saving project")
		return
	}
	h.writeJSON(w, http.StatusCreated, project)
}

// DeleteProject removes a project and, by cascade, its versions.
// DELETE /api/v1/projects/{id}
// Requires Authentication.
func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	result := h.db.WithContext(r.Context()).Delete(&models.Project{}, id)
	if result.Error != nil {
		h.log.Error("Error deleting project", zap.Uint("id", id), zap.Error(result.Error))
		response.Error(w, http.StatusInternalServerError, "Database error deleting project")
		return
	}
	if result.RowsAffected == 0 {
		response.Error(w, http.StatusNotFound, "Project not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// VersionRequest is the body of POST /api/v1/versions and PUT /api/v1/versions/{id}.
// UpdateTime is a calendar date (2006-01-02) or an RFC 3339 timestamp.
type VersionRequest struct {
	ProjectID   uint    `json:"project_id"`
	Version     string  `json:"version"`
	UpdateTime  string  `json:"update_time"`
	Content     *string `json:"content"`
	DownloadURL *string `json:"download_url"`
}

// CreateVersion adds a version to a project and moves the latest pointer when the
// new version is newer.
// POST /api/v1/versions
// Requires Authentication.
func (h *Handler) CreateVersion(w http.ResponseWriter, r *http.Request) {
	var req VersionRequest
	if !h.decode(w, r, &req) {
		return
	}
	req.Version = strings.TrimSpace(req.Version)
	if req.ProjectID == 0 || req.Version == "" {
		response.Error(w, http.StatusBadRequest, "project_id and version are required")
		return
	}
	date := time.Now().UTC()
	if req.UpdateTime != "" {
		parsed, err := parseDate(req.UpdateTime)
		if err != nil {
			response.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		date = parsed
	}
	date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)

	version := models.Version{
		ProjectID:   req.ProjectID,
		Version:     req.Version,
		UpdateTime:  date,
		Content:     deref(req.Content),
		DownloadURL: deref(req.DownloadURL),
	}

	var status int
	var message string
	err := h.db.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
		var project models.Project
		if err := tx.First(&project, req.ProjectID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				status, message = http.StatusNotFound, "Project not found"
			}
			return err
		}

		err := tx.Where("project_id = ? AND version = ?", req.ProjectID, req.Version).First(&models.Version{}).Error
		if err == nil {
			status, message = http.StatusConflict, fmt.Sprintf("version '%s' already exists for project '%s'", req.Version, project.Name)
			return errors.New(message)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := tx.Create(&version).Error; err != nil {
			return err
		}

		if writer.IsNewer(version.Version, version.UpdateTime, project.LatestVersion, project.LatestUpdateTime) {
			return tx.Model(&project).Updates(map[string]any{
				"latest_version":     version.Version,
				"latest_update_time": version.UpdateTime,
			}).Error
		}
		return nil
	})
	if err != nil {
		if status == 0 {
			h.log.Error("Error creating version", zap.Uint("project_id", req.ProjectID), zap.String("version", req.Version), zap.Error(err))
			status, message = http.StatusInternalServerError, "Database error saving version"
		}
		response.Error(w, status, message)
		return
	}
	h.writeJSON(w, http.StatusCreated, version)
}

// UpdateVersion overwrites date, content and download URL of a version. Fields
// missing from the body are left unchanged.
// PUT /api/v1/versions/{id}
// Requires Authentication.
func (h *Handler) UpdateVersion(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req VersionRequest
	if !h.decode(w, r, &req) {
		return
	}

	updates := map[string]any{}
	if req.UpdateTime != "" {
		date, err := parseDate(req.UpdateTime)
		if err != nil {
			response.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		updates["update_time"] = date
	}
	if req.Content != nil {
		updates["content"] = *req.Content
	}
	if req.DownloadURL != nil {
		updates["download_url"] = *req.DownloadURL
	}
	if len(updates) == 0 {
		response.Error(w, http.StatusBadRequest, "Nothing to update")
		return
	}

	var version models.Version
	if err := h.db.WithContext(r.Context()).First(&version, id).Error; err != nil {
		h.notFoundOrError(w, err, "Version", id)
		return
	}
	if err := h.db.WithContext(r.Context()).Model(&version).Updates(updates).Error; err != nil {
		h.log.Error("Error updating version", zap.Uint("id", id), zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "Database error updating version")
		return
	}
	if err := h.db.WithContext(r.Context()).First(&version, id).Error; err != nil {
		h.notFoundOrError(w, err, "Version", id)
		return
	}
	h.writeJSON(w, http.StatusOK, version)
}

// DeleteVersion removes a version and recomputes the latest pointer of its project.
// DELETE /api/v1/versions/{id}
// Requires Authentication.
func (h *Handler) DeleteVersion(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var version models.Version
	if err := h.db.WithContext(r.Context()).First(&version, id).Error; err != nil {
		h.notFoundOrError(w, err, "Version", id)
		return
	}
	if err := h.db.WithContext(r.Context()).Delete(&version).Error; err != nil {
		h.log.Error("Error deleting version", zap.Uint("id", id), zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "Database error deleting version")
		return
	}
	if _, err := db.NewStore(h.db).RecomputeLatest(r.Context(), version.ProjectID); err != nil {
		h.log.Warn("Failed to recompute latest version", zap.Uint("project_id", version.ProjectID), zap.Error(err))
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil || id == 0 {
		response.Error(w, http.StatusBadRequest, "Invalid id")
		return 0, false
	}
	return uint(id), true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 4<<20)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}

func (h *Handler) notFoundOrError(w http.ResponseWriter, err error, kind string, id uint) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		response.Error(w, http.StatusNotFound, kind+" not found")
		return
	}
	h.log.Error("Error loading "+strings.ToLower(kind), zap.Uint("id", id), zap.Error(err))
	response.Error(w, http.StatusInternalServerError, "Failed to retrieve "+strings.ToLower(kind))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	if err := response.JSON(w, status, data); err != nil {
		h.log.Error("Error encoding JSON response", zap.Error(err))
	}
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid update_time %q: use YYYY-MM-DD or RFC 3339", s)
	}
	return t.UTC(), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
