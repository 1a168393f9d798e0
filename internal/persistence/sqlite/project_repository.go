package sqlite

import (
	"context"
	"database/sql"

	"github.com/example/slotsync/internal/persistence"
)

// ProjectRepository implements persistence.ProjectRepository using SQLite.
type ProjectRepository struct {
	pool *ConnectionPool
}

// NewProjectRepository creates a new SQLite project repository.
func NewProjectRepository(pool *ConnectionPool) *ProjectRepository {
	return &ProjectRepository{pool: pool}
}

func (r *ProjectRepository) CreateProject(ctx context.Context, project persistence.Project) error {
	if project.ID == "" || project.Name == "" {
		return persistence.ErrConstraintViolation
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO projects (id, name, description, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)`,
			project.ID,
			project.Name,
			project.Description,
			formatTime(project.CreatedAt),
			formatTime(project.UpdatedAt),
		)
		if err != nil {
			return mapError(err)
		}
		for _, memberID := range project.MemberIDs {
			_, err := tx.Exec(`
				INSERT INTO project_members (project_id, user_id) VALUES (?, ?)`,
				project.ID, memberID)
			if err != nil {
				return mapError(err)
			}
		}
		return nil
	})
}

func (r *ProjectRepository) GetProject(ctx context.Context, id string) (persistence.Project, error) {
	if id == "" {
		return persistence.Project{}, persistence.ErrNotFound
	}

	row := r.pool.db.QueryRowContext(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM projects WHERE id = ?`, id)

	project, err := scanProject(row)
	if err != nil {
		return persistence.Project{}, err
	}

	members, err := r.memberIDs(ctx, project.ID)
	if err != nil {
		return persistence.Project{}, err
	}
	project.MemberIDs = members
	return project, nil
}

func (r *ProjectRepository) ListProjectsForUser(ctx context.Context, userID string) ([]persistence.Project, error) {
	rows, err := r.pool.db.QueryContext(ctx, `
		SELECT p.id, p.name, p.description, p.created_at, p.updated_at
		FROM projects p
		JOIN project_members m ON m.project_id = p.id
		WHERE m.user_id = ?
		ORDER BY p.created_at, p.id`, userID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	projects := make([]persistence.Project, 0)
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, project)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	for i := range projects {
		members, err := r.memberIDs(ctx, projects[i].ID)
		if err != nil {
			return nil, err
		}
		projects[i].MemberIDs = members
	}
	return projects, nil
}

func (r *ProjectRepository) AddMember(ctx context.Context, projectID, userID string) error {
	_, err := r.pool.db.ExecContext(ctx, `
		INSERT INTO project_members (project_id, user_id) VALUES (?, ?)
		ON CONFLICT (project_id, user_id) DO NOTHING`,
		projectID, userID)
	return mapError(err)
}

func (r *ProjectRepository) memberIDs(ctx context.Context, projectID string) ([]string, error) {
	rows, err := r.pool.db.QueryContext(ctx, `
		SELECT user_id FROM project_members WHERE project_id = ? ORDER BY user_id`, projectID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	members := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, mapError(err)
		}
		members = append(members, id)
	}
	return members, mapError(rows.Err())
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (persistence.Project, error) {
	var project persistence.Project
	var createdAt, updatedAt string
	err := row.Scan(&project.ID, &project.Name, &project.Description, &createdAt, &updatedAt)
	if err != nil {
		return persistence.Project{}, mapError(err)
	}
	project.CreatedAt = parseTime(createdAt)
	project.UpdatedAt = parseTime(updatedAt)
	return project, nil
}
