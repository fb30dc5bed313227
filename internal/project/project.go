// Package project manages named Projects, each owning an ordered list of
// Configurations. A Configuration bundles one edited JSON forest with the
// topic and publish frequency it is sent under.
package project

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/iancoleman/strcase"
	"github.com/mcncl/treedit/internal/errors"
	"github.com/mcncl/treedit/internal/logging"
	"github.com/mcncl/treedit/internal/models"
	"github.com/mcncl/treedit/internal/parser"
	"github.com/mcncl/treedit/internal/tree"
)

// KeyValue is a typed metadata field. Type is one of string, number or
// boolean; Value holds the text as entered.
type KeyValue struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// DefaultKeyValue is the empty string-typed field.
func DefaultKeyValue() KeyValue {
	return KeyValue{Type: "string", Value: ""}
}

// ParseKeyValue reads "type:value" or a bare value, which is a string. The
// value must be valid for its type.
func ParseKeyValue(s string) (KeyValue, error) {
	kv := KeyValue{Type: "string", Value: s}
	if typ, value, ok := strings.Cut(s, ":"); ok {
		switch typ {
		case "string", "number", "boolean":
			kv = KeyValue{Type: typ, Value: value}
		}
	}

	kind, _ := models.ParseKind(kv.Type)
	if _, err := models.ParseScalar(kind, kv.Value); err != nil {
		return KeyValue{}, err
	}
	return kv, nil
}

func (kv KeyValue) String() string {
	if kv.Type == "" || kv.Type == "string" {
		return kv.Value
	}
	return kv.Type + ":" + kv.Value
}

// Configuration is a saved, named forest plus metadata.
type Configuration struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Topic     KeyValue    `json:"topic"`
	Frequency KeyValue    `json:"frequency"`
	// Root is the kind of the document root, object or array.
	Root      models.Kind `json:"rootKind"`
	Forest    tree.Forest `json:"jsonData"`
	FileName  string      `json:"fileName"`
}

// Project owns an ordered list of configurations.
type Project struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Running        bool            `json:"isRunning"`
	Configurations []Configuration `json:"configurations"`
}

// Configuration returns the configuration with the given ID.
func (p Project) Configuration(id string) (Configuration, int, bool) {
	for i, c := range p.Configurations {
		if c.ID == id {
			return c, i, true
		}
	}
	return Configuration{}, -1, false
}

// Repository persists projects. GetProject and DeleteProject return an
// error wrapping errors.ErrProjectNotFound for unknown IDs.
type Repository interface {
	ListProjects(ctx context.Context) ([]Project, error)
	GetProject(ctx context.Context, id string) (Project, error)
	SaveProject(ctx context.Context, p Project) error
	DeleteProject(ctx context.Context, id string) error
}

// Service implements the project and configuration operations on top of a
// Repository. Read-modify-write sequences are serialized.
type Service struct {
	repo   Repository
	logger *slog.Logger
	mu     sync.Mutex
}

// NewService returns a Service. A nil logger discards output.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logging.OrDiscard(logger),
	}
}

// EnsureDefault creates a project called name when none exists yet and
// returns the first project.
func (s *Service) EnsureDefault(ctx context.Context, name string) (Project, error) {
	projects, err := s.ListProjects(ctx)
	if err != nil {
		return Project{}, err
	}
	if len(projects) > 0 {
		return projects[0], nil
	}
	s.logger.Info("seeding default project", "name", name)
	return s.CreateProject(ctx, name)
}

// ListProjects returns every project in creation order.
func (s *Service) ListProjects(ctx context.Context) ([]Project, error) {
	return s.repo.ListProjects(ctx)
}

// GetProject returns one project.
func (s *Service) GetProject(ctx context.Context, id string) (Project, error) {
	return s.repo.GetProject(ctx, id)
}

// CreateProject adds an empty project. Its ID is derived from the name.
func (s *Service) CreateProject(ctx context.Context, name string) (Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Project{}, errors.NewProjectError("project name is empty", errors.ErrNameRequired)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	projects, err := s.repo.ListProjects(ctx)
	if err != nil {
		return Project{}, err
	}
	taken := make(map[string]bool, len(projects))
	for _, p := range projects {
		taken[p.ID] = true
	}

	p := Project{
		ID:             uniqueID(slug(name, "project"), taken),
		Name:           name,
		Configurations: []Configuration{},
	}
	if err := s.repo.SaveProject(ctx, p); err != nil {
		return Project{}, err
	}
	s.logger.Info("project created", "project", p.ID, "name", p.Name)
	return p, nil
}

// DeleteProject removes a project and its configurations. The last
// remaining project cannot be deleted.
func (s *Service) DeleteProject(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	projects, err := s.repo.ListProjects(ctx)
	if err != nil {
		return err
	}
	found := false
	for _, p := range projects {
		if p.ID == id {
			found = true
			break
		}
	}
	if !found {
		return errors.NewProjectError(fmt.Sprintf("no project %q", id), errors.ErrProjectNotFound)
	}
	if len(projects) <= 1 {
		return errors.NewProjectError(fmt.Sprintf("cannot delete %q", id), errors.ErrLastProject)
	}

	if err := s.repo.DeleteProject(ctx, id); err != nil {
		return err
	}
	s.logger.Info("project deleted", "project", id)
	return nil
}

// StartProject marks a project as running. Publishing is not implemented;
// the start is only logged.
func (s *Service) StartProject(ctx context.Context, id string) (Project, error) {
	return s.update(ctx, id, func(p *Project) error {
		if len(p.Configurations) == 0 {
			return errors.NewProjectError(fmt.Sprintf("cannot start %q", p.ID), errors.ErrNoConfigurations)
		}
		p.Running = true
		for _, c := range p.Configurations {
			s.logger.Info("starting publisher",
				"project", p.ID,
				"configuration", c.ID,
				"topic", c.Topic.String(),
				"frequency", c.Frequency.String(),
			)
		}
		return nil
	})
}

// StopProject clears the running flag.
func (s *Service) StopProject(ctx context.Context, id string) (Project, error) {
	return s.update(ctx, id, func(p *Project) error {
		p.Running = false
		s.logger.Info("stopping publishers", "project", p.ID)
		return nil
	})
}

// NewConfiguration builds an unsaved configuration from a decoded file.
// The name defaults to the file name without its extension.
func NewConfiguration(fileName string, doc models.Document) (Configuration, error) {
	if err := parser.RequireContainer(doc); err != nil {
		return Configuration{}, err
	}
	base := filepath.Base(fileName)
	name := strings.TrimSuffix(strings.TrimSuffix(base, ".json"), ".jsonc")
	return Configuration{
		Name:      name,
		Topic:     DefaultKeyValue(),
		Frequency: DefaultKeyValue(),
		Root:      doc.Root.Kind(),
		Forest:    tree.BuildDocument(doc),
		FileName:  base,
	}, nil
}

// AddConfiguration appends cfg to a project under a fresh ID, ignoring any
// ID cfg already has.
func (s *Service) AddConfiguration(ctx context.Context, projectID string, cfg Configuration) (Configuration, error) {
	cfg.Name = strings.TrimSpace(cfg.Name)
	if cfg.Name == "" {
		return Configuration{}, errors.NewProjectError("configuration name is empty", errors.ErrNameRequired)
	}
	if len(cfg.Forest) == 0 {
		return Configuration{}, errors.NewProjectError(fmt.Sprintf("configuration %q is empty", cfg.Name), errors.ErrEmptyDocument)
	}

	var added Configuration
	_, err := s.update(ctx, projectID, func(p *Project) error {
		cfg.ID = uniqueID(slug(cfg.Name, "configuration"), configIDs(*p))
		normalize(&cfg)
		p.Configurations = append(p.Configurations, cfg)
		added = cfg
		return nil
	})
	if err != nil {
		return Configuration{}, err
	}
	s.logger.Info("configuration added", "project", projectID, "configuration", added.ID)
	return added, nil
}

// SaveConfiguration replaces the configuration with cfg.ID, or appends cfg
// when no such configuration exists. An empty ID gets a fresh one.
func (s *Service) SaveConfiguration(ctx context.Context, projectID string, cfg Configuration) (Configuration, error) {
	cfg.Name = strings.TrimSpace(cfg.Name)
	if cfg.Name == "" {
		return Configuration{}, errors.NewProjectError("configuration name is empty", errors.ErrNameRequired)
	}

	var saved Configuration
	_, err := s.update(ctx, projectID, func(p *Project) error {
		if cfg.ID == "" {
			cfg.ID = uniqueID(slug(cfg.Name, "configuration"), configIDs(*p))
		}
		normalize(&cfg)
		if _, i, ok := p.Configuration(cfg.ID); ok {
			p.Configurations[i] = cfg
		} else {
			p.Configurations = append(p.Configurations, cfg)
		}
		saved = cfg
		return nil
	})
	if err != nil {
		return Configuration{}, err
	}
	s.logger.Info("configuration saved", "project", projectID, "configuration", saved.ID)
	return saved, nil
}

// GetConfiguration returns one configuration of a project.
func (s *Service) GetConfiguration(ctx context.Context, projectID, configID string) (Configuration, error) {
	p, err := s.repo.GetProject(ctx, projectID)
	if err != nil {
		return Configuration{}, err
	}
	c, _, ok := p.Configuration(configID)
	if !ok {
		return Configuration{}, configurationNotFound(projectID, configID)
	}
	return c, nil
}

// DeleteConfiguration removes one configuration from a project.
func (s *Service) DeleteConfiguration(ctx context.Context, projectID, configID string) error {
	_, err := s.update(ctx, projectID, func(p *Project) error {
		_, i, ok := p.Configuration(configID)
		if !ok {
			return configurationNotFound(projectID, configID)
		}
		p.Configurations = append(p.Configurations[:i:i], p.Configurations[i+1:]...)
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("configuration deleted", "project", projectID, "configuration", configID)
	return nil
}

// ApplyToConfiguration runs one tree operation against a stored
// configuration and persists the result. Beginning an edit cancels any
// other edit in the same forest.
func (s *Service) ApplyToConfiguration(ctx context.Context, projectID, configID, path string, op tree.Op) (Configuration, error) {
	var applied Configuration
	_, err := s.update(ctx, projectID, func(p *Project) error {
		c, i, ok := p.Configuration(configID)
		if !ok {
			return configurationNotFound(projectID, configID)
		}

		forest := c.Forest
		if op.Kind == tree.OpToggleEdit {
			forest = tree.CancelOtherEdits(forest, path)
		}
		next, err := tree.ApplyChecked(forest, path, op)
		if err != nil {
			return errors.NewTreeError(fmt.Sprintf("cannot apply %s at %q", op.Kind, path), err)
		}

		c.Forest = next
		p.Configurations[i] = c
		applied = c
		return nil
	})
	if err != nil {
		return Configuration{}, err
	}
	s.logger.Debug("operation applied",
		"project", projectID,
		"configuration", configID,
		"path", path,
		"op", op.String(),
	)
	return applied, nil
}

// update loads a project, lets fn modify it, and saves it when fn succeeds.
func (s *Service) update(ctx context.Context, id string, fn func(p *Project) error) (Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.repo.GetProject(ctx, id)
	if err != nil {
		return Project{}, err
	}
	// fn may replace elements; keep the repository's slice intact.
	p.Configurations = append([]Configuration(nil), p.Configurations...)
	if err := fn(&p); err != nil {
		return Project{}, err
	}
	if err := s.repo.SaveProject(ctx, p); err != nil {
		return Project{}, err
	}
	return p, nil
}

func configurationNotFound(projectID, configID string) error {
	return errors.NewProjectError(
		fmt.Sprintf("no configuration %q in project %q", configID, projectID),
		errors.ErrConfigurationNotFound,
	)
}

func normalize(cfg *Configuration) {
	if cfg.Topic.Type == "" {
		cfg.Topic.Type = "string"
	}
	if cfg.Frequency.Type == "" {
		cfg.Frequency.Type = "string"
	}
	if !cfg.Root.IsContainer() {
		cfg.Root = models.KindObject
	}
	if cfg.Forest == nil {
		cfg.Forest = tree.Forest{}
	}
}

func configIDs(p Project) map[string]bool {
	ids := make(map[string]bool, len(p.Configurations))
	for _, c := range p.Configurations {
		ids[c.ID] = true
	}
	return ids
}

// slug turns a display name into a kebab-case identifier.
func slug(name, fallback string) string {
	s := strcase.ToKebab(strings.TrimSpace(name))
	s = strings.Trim(s, "-")
	if s == "" {
		return fallback
	}
	return s
}

// uniqueID returns base, or base with the smallest numeric suffix not in
// taken.
func uniqueID(base string, taken map[string]bool) string {
	if !taken[base] {
		return base
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s-%d", base, n)
		if !taken[candidate] {
			return candidate
		}
	}
}
