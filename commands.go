package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mcncl/treedit/internal/errors"
	"github.com/mcncl/treedit/internal/formatter"
	"github.com/mcncl/treedit/internal/models"
	"github.com/mcncl/treedit/internal/parser"
	"github.com/mcncl/treedit/internal/project"
	"github.com/mcncl/treedit/internal/tree"
	"github.com/mcncl/treedit/internal/tui"
)

// TreeCmd prints the forest built from a file without storing it
type TreeCmd struct {
	File     string   `arg:"" help:"JSON or JSONC file to load." type:"path"`
	JSON     bool     `help:"Print the document as JSON instead of a tree." name:"json"`
	Collapse []string `help:"Collapse the node at this path. Repeatable." placeholder:"PATH"`
}

func (c *TreeCmd) Run(g *Globals) error {
	cfg, _, err := g.load()
	if err != nil {
		return err
	}

	doc, err := parser.ParseFile(c.File, parser.Options{AllowComments: cfg.Parser.AllowComments})
	if err != nil {
		return err
	}
	if err := parser.RequireContainer(doc); err != nil {
		return err
	}

	forest := tree.BuildDocument(doc)
	for _, path := range c.Collapse {
		forest, err = tree.ApplyChecked(forest, path, tree.ToggleExpand())
		if err != nil {
			return errors.NewTreeError(fmt.Sprintf("cannot collapse %q", path), err)
		}
	}

	if c.JSON {
		out, err := formatter.FormatJSON(doc.Root.Kind(), forest, cfg.Render.Indent)
		if err != nil {
			return errors.NewOutputError("failed to encode document", err)
		}
		return write(g, out)
	}
	return write(g, formatter.NewFormatter(renderOptions(cfg)).Format(forest))
}

// ProjectCmd groups the project subcommands
type ProjectCmd struct {
	List   ProjectListCmd   `cmd:"" help:"List projects."`
	Create ProjectCreateCmd `cmd:"" help:"Create a project."`
	Delete ProjectDeleteCmd `cmd:"" help:"Delete a project and its configurations."`
	Start  ProjectStartCmd  `cmd:"" help:"Start publishing a project's configurations."`
	Stop   ProjectStopCmd   `cmd:"" help:"Stop publishing a project's configurations."`
}

type ProjectListCmd struct{}

func (c *ProjectListCmd) Run(ctx context.Context, g *Globals) error {
	svc, _, closeStore, err := g.openService(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	projects, err := svc.ListProjects(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(g.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCONFIGURATIONS\tSTATUS")
	for _, p := range projects {
		status := "stopped"
		if p.Running {
			status = "running"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", p.ID, p.Name, len(p.Configurations), status)
	}
	return flush(tw)
}

type ProjectCreateCmd struct {
	Name string `arg:"" help:"Display name of the project."`
}

func (c *ProjectCreateCmd) Run(ctx context.Context, g *Globals) error {
	svc, _, closeStore, err := g.openService(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	p, err := svc.CreateProject(ctx, c.Name)
	if err != nil {
		return err
	}
	return write(g, fmt.Sprintf("Created project %s (%s)\n", p.ID, p.Name))
}

type ProjectDeleteCmd struct {
	ID string `arg:"" help:"Project ID."`
}

func (c *ProjectDeleteCmd) Run(ctx context.Context, g *Globals) error {
	svc, _, closeStore, err := g.openService(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := svc.DeleteProject(ctx, c.ID); err != nil {
		return err
	}
	return write(g, fmt.Sprintf("Deleted project %s\n", c.ID))
}

type ProjectStartCmd struct {
	ID string `arg:"" help:"Project ID."`
}

func (c *ProjectStartCmd) Run(ctx context.Context, g *Globals) error {
	svc, _, closeStore, err := g.openService(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	p, err := svc.StartProject(ctx, c.ID)
	if err != nil {
		return err
	}
	return write(g, fmt.Sprintf("Started project %s with %d configuration(s)\n", p.ID, len(p.Configurations)))
}

type ProjectStopCmd struct {
	ID string `arg:"" help:"Project ID."`
}

func (c *ProjectStopCmd) Run(ctx context.Context, g *Globals) error {
	svc, _, closeStore, err := g.openService(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	p, err := svc.StopProject(ctx, c.ID)
	if err != nil {
		return err
	}
	return write(g, fmt.Sprintf("Stopped project %s\n", p.ID))
}

// ConfigCmd groups the configuration subcommands
type ConfigCmd struct {
	Add    ConfigAddCmd    `cmd:"" help:"Load a JSON file into a new configuration."`
	List   ConfigListCmd   `cmd:"" help:"List a project's configurations."`
	Show   ConfigShowCmd   `cmd:"" help:"Print a configuration's tree."`
	Apply  ConfigApplyCmd  `cmd:"" help:"Apply one tree operation to a configuration."`
	Rename ConfigRenameCmd `cmd:"" help:"Change a configuration's name, topic or frequency."`
	Export ConfigExportCmd `cmd:"" help:"Write a configuration's document as JSON."`
	Delete ConfigDeleteCmd `cmd:"" help:"Delete a configuration."`
}

type ConfigAddCmd struct {
	Project   string `arg:"" help:"Project ID."`
	File      string `arg:"" help:"JSON or JSONC file to load." type:"path"`
	Name      string `help:"Configuration name. Defaults to the file name."`
	Topic     string `help:"Topic, as VALUE or TYPE:VALUE (string, number, boolean)."`
	Frequency string `help:"Publish frequency, as VALUE or TYPE:VALUE."`
}

func (c *ConfigAddCmd) Run(ctx context.Context, g *Globals) error {
	svc, cfg, closeStore, err := g.openService(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	doc, err := parser.ParseFile(c.File, parser.Options{AllowComments: cfg.Parser.AllowComments})
	if err != nil {
		return err
	}
	conf, err := project.NewConfiguration(c.File, doc)
	if err != nil {
		return err
	}
	if c.Name != "" {
		conf.Name = c.Name
	}
	if err := setMetadata(&conf, c.Topic, c.Frequency); err != nil {
		return err
	}

	added, err := svc.AddConfiguration(ctx, c.Project, conf)
	if err != nil {
		return err
	}
	return write(g, fmt.Sprintf("Added configuration %s to project %s\n", added.ID, c.Project))
}

type ConfigListCmd struct {
	Project string `arg:"" help:"Project ID."`
}

func (c *ConfigListCmd) Run(ctx context.Context, g *Globals) error {
	svc, _, closeStore, err := g.openService(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	p, err := svc.GetProject(ctx, c.Project)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(g.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTOPIC\tFREQUENCY\tFILE")
	for _, conf := range p.Configurations {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", conf.ID, conf.Name, conf.Topic, conf.Frequency, conf.FileName)
	}
	return flush(tw)
}

type ConfigShowCmd struct {
	Project string `arg:"" help:"Project ID."`
	Config  string `arg:"" help:"Configuration ID."`
	JSON    bool   `help:"Print the stored record, including node state, as JSON." name:"json"`
}

func (c *ConfigShowCmd) Run(ctx context.Context, g *Globals) error {
	svc, cfg, closeStore, err := g.openService(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	conf, err := svc.GetConfiguration(ctx, c.Project, c.Config)
	if err != nil {
		return err
	}

	if c.JSON {
		data, err := json.MarshalIndent(conf, "", strings.Repeat(" ", cfg.Render.Indent))
		if err != nil {
			return errors.NewOutputError("failed to encode configuration", err)
		}
		return write(g, string(data)+"\n")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s)\n", conf.Name, conf.ID)
	fmt.Fprintf(&b, "topic: %s\nfrequency: %s\nfile: %s\n\n", conf.Topic, conf.Frequency, conf.FileName)
	b.WriteString(formatter.NewFormatter(renderOptions(cfg)).Format(conf.Forest))
	return write(g, b.String())
}

type ConfigApplyCmd struct {
	Project string `arg:"" help:"Project ID."`
	Config  string `arg:"" help:"Configuration ID."`
	Op      string `help:"Operation: toggle-expand, toggle-edit, toggle-select, set-value, commit-edit or cancel-edit." required:""`
	Path    string `help:"Path of the node, for example b.c or list[0]." required:""`
	Value   string `help:"New value for set-value, read as the node's type."`
}

func (c *ConfigApplyCmd) Run(ctx context.Context, g *Globals) error {
	kind, err := tree.ParseOpKind(c.Op)
	if err != nil {
		return errors.NewInputError(err.Error(), nil)
	}

	svc, cfg, closeStore, err := g.openService(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	op := tree.Op{Kind: kind}
	if kind == tree.OpSetValue {
		conf, err := svc.GetConfiguration(ctx, c.Project, c.Config)
		if err != nil {
			return err
		}
		n, ok := tree.Find(conf.Forest, c.Path)
		if !ok {
			return errors.NewTreeError(fmt.Sprintf("cannot apply %s at %q", kind, c.Path), errors.ErrUnknownPath)
		}
		value, err := models.ParseScalar(n.Kind, c.Value)
		if err != nil {
			return errors.NewTreeError(fmt.Sprintf("cannot apply %s at %q", kind, c.Path), err)
		}
		op = tree.SetValue(value)
	}

	conf, err := svc.ApplyToConfiguration(ctx, c.Project, c.Config, c.Path, op)
	if err != nil {
		return err
	}
	return write(g, formatter.NewFormatter(renderOptions(cfg)).Format(conf.Forest))
}

type ConfigRenameCmd struct {
	Project   string `arg:"" help:"Project ID."`
	Config    string `arg:"" help:"Configuration ID."`
	Name      string `arg:"" help:"New name."`
	Topic     string `help:"Topic, as VALUE or TYPE:VALUE."`
	Frequency string `help:"Publish frequency, as VALUE or TYPE:VALUE."`
}

func (c *ConfigRenameCmd) Run(ctx context.Context, g *Globals) error {
	svc, _, closeStore, err := g.openService(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	conf, err := svc.GetConfiguration(ctx, c.Project, c.Config)
	if err != nil {
		return err
	}
	conf.Name = c.Name
	if err := setMetadata(&conf, c.Topic, c.Frequency); err != nil {
		return err
	}
	if _, err := svc.SaveConfiguration(ctx, c.Project, conf); err != nil {
		return err
	}
	return write(g, fmt.Sprintf("Saved configuration %s\n", conf.ID))
}

type ConfigExportCmd struct {
	Project string `arg:"" help:"Project ID."`
	Config  string `arg:"" help:"Configuration ID."`
	Output  string `help:"Write to this file instead of stdout." short:"o" type:"path"`
}

func (c *ConfigExportCmd) Run(ctx context.Context, g *Globals) error {
	svc, cfg, closeStore, err := g.openService(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	conf, err := svc.GetConfiguration(ctx, c.Project, c.Config)
	if err != nil {
		return err
	}
	out, err := formatter.FormatJSON(conf.Root, conf.Forest, cfg.Render.Indent)
	if err != nil {
		return errors.NewOutputError("failed to encode document", err)
	}

	if c.Output != "" {
		if err := os.WriteFile(c.Output, []byte(out), 0o644); err != nil {
			return errors.NewOutputError(fmt.Sprintf("failed to write to file '%s'", c.Output), err)
		}
		fmt.Fprintf(g.stderr, "Document written to %s\n", c.Output)
		return nil
	}
	return write(g, out)
}

type ConfigDeleteCmd struct {
	Project string `arg:"" help:"Project ID."`
	Config  string `arg:"" help:"Configuration ID."`
}

func (c *ConfigDeleteCmd) Run(ctx context.Context, g *Globals) error {
	svc, _, closeStore, err := g.openService(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := svc.DeleteConfiguration(ctx, c.Project, c.Config); err != nil {
		return err
	}
	return write(g, fmt.Sprintf("Deleted configuration %s\n", c.Config))
}

// EditCmd opens the interactive editor
type EditCmd struct {
	Project string `arg:"" help:"Project ID."`
	Config  string `arg:"" help:"Configuration ID."`
}

func (c *EditCmd) Run(ctx context.Context, g *Globals) error {
	svc, cfg, closeStore, err := g.openService(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	conf, err := svc.GetConfiguration(ctx, c.Project, c.Config)
	if err != nil {
		return err
	}

	save := func(forest tree.Forest) error {
		updated := conf
		updated.Forest = forest
		_, err := svc.SaveConfiguration(ctx, c.Project, updated)
		return err
	}
	editor := tui.NewEditor(fmt.Sprintf("%s / %s", c.Project, conf.Name), conf.Forest, save, renderOptions(cfg))
	_, err = tui.Run(editor, tea.WithAltScreen(), tea.WithContext(ctx), tea.WithOutput(g.stdout))
	return err
}

// VersionCmd prints the version
type VersionCmd struct{}

func (c *VersionCmd) Run(g *Globals) error {
	return write(g, fmt.Sprintf("treedit version %s\n", Version))
}

func setMetadata(conf *project.Configuration, topic, frequency string) error {
	if topic != "" {
		kv, err := project.ParseKeyValue(topic)
		if err != nil {
			return errors.NewInputError(fmt.Sprintf("invalid topic %q", topic), err)
		}
		conf.Topic = kv
	}
	if frequency != "" {
		kv, err := project.ParseKeyValue(frequency)
		if err != nil {
			return errors.NewInputError(fmt.Sprintf("invalid frequency %q", frequency), err)
		}
		conf.Frequency = kv
	}
	return nil
}

func write(g *Globals, s string) error {
	if _, err := fmt.Fprint(g.stdout, s); err != nil {
		return errors.NewOutputError("failed to write to stdout", err)
	}
	return nil
}

func flush(tw *tabwriter.Writer) error {
	if err := tw.Flush(); err != nil {
		return errors.NewOutputError("failed to write to stdout", err)
	}
	return nil
}
