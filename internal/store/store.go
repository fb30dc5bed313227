// Package store persists projects and their configurations in SQLite.
//
// Each configuration's forest is stored as the JSON encoding of its nodes,
// so editing state (expanded, editing, selected, original values) survives
// a reload. Row order is kept in a position column.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mcncl/treedit/internal/errors"
	"github.com/mcncl/treedit/internal/logging"
	"github.com/mcncl/treedit/internal/models"
	"github.com/mcncl/treedit/internal/project"
	"github.com/mcncl/treedit/internal/tree"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const schema = `
CREATE TABLE IF NOT EXISTS projects (
	id       TEXT PRIMARY KEY,
	name     TEXT NOT NULL,
	running  INTEGER NOT NULL DEFAULT 0,
	position INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS configurations (
	project_id      TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	id              TEXT NOT NULL,
	name            TEXT NOT NULL,
	topic_type      TEXT NOT NULL,
	topic_value     TEXT NOT NULL,
	frequency_type  TEXT NOT NULL,
	frequency_value TEXT NOT NULL,
	file_name       TEXT NOT NULL,
	root_kind       TEXT NOT NULL DEFAULT 'object',
	forest          TEXT NOT NULL,
	position        INTEGER NOT NULL,
	PRIMARY KEY (project_id, id)
);
`

// Config holds the parameters for opening a Store.
type Config struct {
	Path     string
	PoolSize int
	Logger   *slog.Logger
}

// Store implements project.Repository.
type Store struct {
	pool   *Pool
	logger *slog.Logger
}

var _ project.Repository = (*Store)(nil)

// Open opens (creating if needed) the database at cfg.Path.
func Open(cfg Config) (*Store, error) {
	logger := logging.OrDiscard(cfg.Logger)

	pool, err := OpenPool(PoolConfig{
		Path:     cfg.Path,
		PoolSize: cfg.PoolSize,
		Logger:   logger,
		OnConnect: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteScript(conn, schema, nil)
		},
	})
	if err != nil {
		return nil, errors.NewStorageError("failed to open database", err)
	}
	return &Store{pool: pool, logger: logger}, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.pool.Close()
}

// ListProjects returns every project with its configurations, in creation
// order.
func (s *Store) ListProjects(ctx context.Context) ([]project.Project, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, errors.NewStorageError("failed to list projects", err)
	}
	defer s.pool.Put(conn)

	var projects []project.Project
	err = sqlitex.Execute(conn,
		`SELECT id, name, running FROM projects ORDER BY position`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				projects = append(projects, scanProject(stmt))
				return nil
			},
		})
	if err != nil {
		return nil, errors.NewStorageError("failed to list projects", err)
	}

	for i := range projects {
		configs, err := readConfigurations(conn, projects[i].ID)
		if err != nil {
			return nil, err
		}
		projects[i].Configurations = configs
	}
	return projects, nil
}

// GetProject returns one project with its configurations.
func (s *Store) GetProject(ctx context.Context, id string) (project.Project, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return project.Project{}, errors.NewStorageError("failed to load project", err)
	}
	defer s.pool.Put(conn)

	var (
		p     project.Project
		found bool
	)
	err = sqlitex.Execute(conn,
		`SELECT id, name, running FROM projects WHERE id = ?`,
		&sqlitex.ExecOptions{
			Args: []any{id},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				p = scanProject(stmt)
				found = true
				return nil
			},
		})
	if err != nil {
		return project.Project{}, errors.NewStorageError(fmt.Sprintf("failed to load project %q", id), err)
	}
	if !found {
		return project.Project{}, errors.NewProjectError(fmt.Sprintf("no project %q", id), errors.ErrProjectNotFound)
	}

	p.Configurations, err = readConfigurations(conn, id)
	if err != nil {
		return project.Project{}, err
	}
	return p, nil
}

// SaveProject inserts or replaces a project and all of its configurations
// in a single IMMEDIATE transaction. A new project is placed after all
// existing ones; an existing project keeps its position.
func (s *Store) SaveProject(ctx context.Context, p project.Project) (err error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return errors.NewStorageError("failed to save project", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return errors.NewStorageError("failed to begin transaction", err)
	}
	defer endTransaction(&err)

	err = sqlitex.Execute(conn, `
		INSERT INTO projects (id, name, running, position)
		VALUES (?, ?, ?, (SELECT COALESCE(MAX(position) + 1, 0) FROM projects))
		ON CONFLICT (id) DO UPDATE SET name = excluded.name, running = excluded.running`,
		&sqlitex.ExecOptions{Args: []any{p.ID, p.Name, boolToInt(p.Running)}})
	if err != nil {
		return errors.NewStorageError(fmt.Sprintf("failed to save project %q", p.ID), err)
	}

	err = sqlitex.Execute(conn, `DELETE FROM configurations WHERE project_id = ?`,
		&sqlitex.ExecOptions{Args: []any{p.ID}})
	if err != nil {
		return errors.NewStorageError(fmt.Sprintf("failed to save project %q", p.ID), err)
	}

	for i, c := range p.Configurations {
		if err = insertConfiguration(conn, p.ID, i, c); err != nil {
			return err
		}
	}

	s.logger.Debug("project saved", "project", p.ID, "configurations", len(p.Configurations))
	return nil
}

// DeleteProject removes a project. Its configurations go with it.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return errors.NewStorageError("failed to delete project", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, `DELETE FROM projects WHERE id = ?`,
		&sqlitex.ExecOptions{Args: []any{id}})
	if err != nil {
		return errors.NewStorageError(fmt.Sprintf("failed to delete project %q", id), err)
	}
	if conn.Changes() == 0 {
		return errors.NewProjectError(fmt.Sprintf("no project %q", id), errors.ErrProjectNotFound)
	}

	s.logger.Debug("project deleted", "project", id)
	return nil
}

func scanProject(stmt *sqlite.Stmt) project.Project {
	return project.Project{
		ID:             stmt.ColumnText(0),
		Name:           stmt.ColumnText(1),
		Running:        stmt.ColumnInt(2) != 0,
		Configurations: []project.Configuration{},
	}
}

func readConfigurations(conn *sqlite.Conn, projectID string) ([]project.Configuration, error) {
	configs := []project.Configuration{}
	err := sqlitex.Execute(conn, `
		SELECT id, name, topic_type, topic_value, frequency_type, frequency_value, file_name, root_kind, forest
		FROM configurations
		WHERE project_id = ?
		ORDER BY position`,
		&sqlitex.ExecOptions{
			Args: []any{projectID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				c := project.Configuration{
					ID:        stmt.ColumnText(0),
					Name:      stmt.ColumnText(1),
					Topic:     project.KeyValue{Type: stmt.ColumnText(2), Value: stmt.ColumnText(3)},
					Frequency: project.KeyValue{Type: stmt.ColumnText(4), Value: stmt.ColumnText(5)},
					FileName:  stmt.ColumnText(6),
					Root:      models.Kind(stmt.ColumnText(7)),
				}
				var forest tree.Forest
				if err := json.Unmarshal([]byte(stmt.ColumnText(8)), &forest); err != nil {
					return fmt.Errorf("decoding forest of %q: %w", c.ID, err)
				}
				if forest == nil {
					forest = tree.Forest{}
				}
				c.Forest = forest
				configs = append(configs, c)
				return nil
			},
		})
	if err != nil {
		return nil, errors.NewStorageError(fmt.Sprintf("failed to load configurations of %q", projectID), err)
	}
	return configs, nil
}

func insertConfiguration(conn *sqlite.Conn, projectID string, position int, c project.Configuration) error {
	forest := c.Forest
	if forest == nil {
		forest = tree.Forest{}
	}
	root := c.Root
	if !root.IsContainer() {
		root = models.KindObject
	}
	data, err := json.Marshal(forest)
	if err != nil {
		return errors.NewStorageError(fmt.Sprintf("failed to encode configuration %q", c.ID), err)
	}

	err = sqlitex.Execute(conn, `
		INSERT INTO configurations (
			project_id, id, name, topic_type, topic_value,
			frequency_type, frequency_value, file_name, root_kind, forest, position
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{
			Args: []any{
				projectID, c.ID, c.Name,
				c.Topic.Type, c.Topic.Value,
				c.Frequency.Type, c.Frequency.Value,
				c.FileName, string(root), string(data), position,
			},
		})
	if err != nil {
		return errors.NewStorageError(fmt.Sprintf("failed to save configuration %q", c.ID), err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
