package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ShayCichocki/kai/pkg/models"
)

// Project CRUD operations

// CreateProject inserts p and sets its ID and timestamps.
func (db *DB) CreateProject(ctx context.Context, p *models.Project) error {
	if p.Status == "" {
		p.Status = models.ProjectActive
	}
	p.CreatedAt = now()
	p.UpdatedAt = p.CreatedAt

	res, err := db.Exec(ctx, `
		INSERT INTO pipeline_projects (name, description, repo_url, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, p.Name, p.Description, p.RepoURL, string(p.Status), formatTime(p.CreatedAt), formatTime(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	p.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

// GetProject retrieves a project by ID.
func (db *DB) GetProject(ctx context.Context, id int64) (*models.Project, error) {
	row := db.QueryRow(ctx, `
		SELECT id, name, description, repo_url, status, created_at, updated_at
		FROM pipeline_projects WHERE id = ?
	`, id)

	var p models.Project
	var createdAt, updatedAt string
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.RepoURL, &p.Status, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return &p, nil
}

// ListProjects lists all projects, newest first.
func (db *DB) ListProjects(ctx context.Context) ([]models.Project, error) {
	rows, err := db.Query(ctx, `
		SELECT id, name, description, repo_url, status, created_at, updated_at
		FROM pipeline_projects ORDER BY id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []models.Project
	for rows.Next() {
		var p models.Project
		var createdAt, updatedAt string
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.RepoURL, &p.Status, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		p.CreatedAt = parseTime(createdAt)
		p.UpdatedAt = parseTime(updatedAt)
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// DeleteProject deletes a project and, through cascades, everything
// beneath it.
func (db *DB) DeleteProject(ctx context.Context, id int64) error {
	res, err := db.Exec(ctx, "DELETE FROM pipeline_projects WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("project %d: %w", id, ErrNotFound)
	}
	return nil
}

// Epic and feature operations

// CreateEpic inserts e and sets its ID.
func (db *DB) CreateEpic(ctx context.Context, e *models.Epic) error {
	res, err := db.Exec(ctx, `
		INSERT INTO pipeline_epics (project_id, title, description, epic_order)
		VALUES (?, ?, ?, ?)
	`, e.ProjectID, e.Title, e.Description, e.Order)
	if err != nil {
		return fmt.Errorf("create epic: %w", err)
	}
	e.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("create epic: %w", err)
	}
	return nil
}

// ListEpics lists a project's epics by their order.
func (db *DB) ListEpics(ctx context.Context, projectID int64) ([]models.Epic, error) {
	rows, err := db.Query(ctx, `
		SELECT id, project_id, title, description, epic_order
		FROM pipeline_epics WHERE project_id = ? ORDER BY epic_order, id
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list epics: %w", err)
	}
	defer rows.Close()

	var epics []models.Epic
	for rows.Next() {
		var e models.Epic
		if err := rows.Scan(&e.ID, &e.ProjectID, &e.Title, &e.Description, &e.Order); err != nil {
			return nil, fmt.Errorf("scan epic: %w", err)
		}
		epics = append(epics, e)
	}
	return epics, rows.Err()
}

// CreateFeature inserts f and sets its ID.
func (db *DB) CreateFeature(ctx context.Context, f *models.Feature) error {
	res, err := db.Exec(ctx, `
		INSERT INTO pipeline_features (epic_id, title, description, acceptance_criteria)
		VALUES (?, ?, ?, ?)
	`, f.EpicID, f.Title, f.Description, f.AcceptanceCriteria)
	if err != nil {
		return fmt.Errorf("create feature: %w", err)
	}
	f.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("create feature: %w", err)
	}
	return nil
}

// ListFeaturesByEpic lists the features of one epic.
func (db *DB) ListFeaturesByEpic(ctx context.Context, epicID int64) ([]models.Feature, error) {
	rows, err := db.Query(ctx, `
		SELECT id, epic_id, title, description, acceptance_criteria
		FROM pipeline_features WHERE epic_id = ? ORDER BY id
	`, epicID)
	if err != nil {
		return nil, fmt.Errorf("list features: %w", err)
	}
	defer rows.Close()
	return scanFeatures(rows)
}

// ListFeaturesByProject lists every feature of a project, in epic order.
func (db *DB) ListFeaturesByProject(ctx context.Context, projectID int64) ([]models.Feature, error) {
	rows, err := db.Query(ctx, `
		SELECT f.id, f.epic_id, f.title, f.description, f.acceptance_criteria
		FROM pipeline_features f
		JOIN pipeline_epics e ON f.epic_id = e.id
		WHERE e.project_id = ? ORDER BY e.epic_order, e.id, f.id
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list features: %w", err)
	}
	defer rows.Close()
	return scanFeatures(rows)
}

func scanFeatures(rows *sql.Rows) ([]models.Feature, error) {
	var features []models.Feature
	for rows.Next() {
		var f models.Feature
		if err := rows.Scan(&f.ID, &f.EpicID, &f.Title, &f.Description, &f.AcceptanceCriteria); err != nil {
			return nil, fmt.Errorf("scan feature: %w", err)
		}
		features = append(features, f)
	}
	return features, rows.Err()
}
