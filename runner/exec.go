package runner

import (
	"context"

	"github.com/spf13/afero"

	"github.com/kbukum/melos/events"
	"github.com/kbukum/melos/filter"
	"github.com/kbukum/melos/graph"
	"github.com/kbukum/melos/logger"
	"github.com/kbukum/melos/scheduler"
	"github.com/kbukum/melos/task"
	"github.com/kbukum/melos/validation"
	"github.com/kbukum/melos/workspace"
)

// Request is one `exec` invocation: a command run against the packages of
// a workspace selected by Filters.
type Request struct {
	Workspace *workspace.Workspace
	// Command is the fully resolved shell command.
	Command string
	Filters filter.Spec
	// Changes resolves Filters.ChangedSince. Defaults to git in the
	// workspace root.
	Changes filter.ChangeDetector
	// Fs backs dirExists and fileExists. Defaults to the OS filesystem.
	Fs afero.Fs
}

func (req Request) validate() error {
	v := validation.New().Required("command", req.Command)
	v.Custom(req.Workspace != nil, "workspace", "is required")
	return v.Error()
}

// Plan schedules names against g using the runner's ordering and
// fail-fast settings.
func (r *Runner) Plan(g *graph.Graph, names []string) (*scheduler.Plan, error) {
	return scheduler.New(g, names, scheduler.Options{
		OrderDependents:         r.cfg.OrderDependents,
		SkipDependentsOnFailure: r.cfg.FailFast,
	})
}

// Exec builds the graph, selects packages, plans and runs them. Graph,
// filter and plan errors are returned before anything is spawned or any
// event other than a filter Warning is published.
func (r *Runner) Exec(ctx context.Context, req Request, bus events.Publisher) (task.Summary, error) {
	if err := req.validate(); err != nil {
		return task.Summary{}, err
	}
	if bus == nil {
		bus = events.Discard
	}

	g, err := graph.New(req.Workspace.Packages)
	if err != nil {
		return task.Summary{}, err
	}

	changes := req.Changes
	if changes == nil {
		changes = filter.GitChanges(req.Workspace.RootPath)
	}
	opts := []filter.Option{
		filter.WithChangeDetector(changes),
		filter.WithWarningHandler(func(msg string) { bus.Publish(events.Warning{Message: msg}) }),
		filter.WithLogger(r.log.WithComponent(logger.ComponentFilter)),
	}
	if req.Fs != nil {
		opts = append(opts, filter.WithFs(req.Fs))
	}

	selected, err := filter.New(g, opts...).Apply(ctx, req.Filters)
	if err != nil {
		return task.Summary{}, err
	}

	plan, err := r.Plan(g, workspace.Names(selected))
	if err != nil {
		return task.Summary{}, err
	}

	if len(selected) == 0 {
		bus.Publish(events.Info{Message: "no packages matched the filters"})
		r.log.Info("no packages matched the filters", logger.Fields(logger.FieldCommand, req.Command))
	}

	tasks := req.Workspace.Tasks(req.Command, selected, r.cfg.Timeout)
	return r.Run(ctx, req.Command, plan, tasks, bus)
}
