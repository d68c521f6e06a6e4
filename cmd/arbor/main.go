package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/driftworks/arbor/internal/api"
	"github.com/driftworks/arbor/internal/config"
	"github.com/driftworks/arbor/internal/envstore"
	"github.com/driftworks/arbor/internal/events"
	"github.com/driftworks/arbor/internal/gitx"
	"github.com/driftworks/arbor/internal/lock"
	"github.com/driftworks/arbor/internal/log"
	"github.com/driftworks/arbor/internal/provider"
	"github.com/driftworks/arbor/internal/reclaim"
	"github.com/driftworks/arbor/internal/resolve"
	"github.com/driftworks/arbor/internal/serial"
	"github.com/driftworks/arbor/internal/storage"
	"github.com/driftworks/arbor/internal/tui/watch"
)

var (
	version   = "0.1.0-dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	os.Exit(runCLI(os.Args[1:]))
}

func runCLI(cliArgs []string) int {
	if len(cliArgs) < 1 {
		printUsage()
		return 1
	}

	cmd := cliArgs[0]
	args := cliArgs[1:]

	switch cmd {
	case "start":
		return runStart(args)
	case "sweep":
		return runSweep(args)
	case "env":
		return runEnvNoun(args)
	case "watch":
		return runWatch(args)
	case "version", "--version":
		return runVersion(args)
	case "help", "--help", "-h":
		printUsage()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		return 1
	}
}

func printUsage() {
	fmt.Fprint(os.Stderr, `arbor - isolated git worktrees for conversational workflows

Usage:
  arbor start  [--config PATH]            Run the daemon (API + reclamation)
  arbor sweep  [--config PATH] [--json]   Run one reclamation sweep and exit
  arbor env    list|show|destroy ...      Inspect or evict environments
  arbor watch  [--config PATH]            Live terminal monitor
  arbor version [--json]                  Print version metadata
`)
}

type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

func runVersion(args []string) int {
	fs := flag.NewFlagSet("version", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "Output version metadata as JSON")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *jsonOut {
		_ = json.NewEncoder(os.Stdout).Encode(versionInfo{version, gitCommit, buildDate})
		return 0
	}
	fmt.Printf("arbor %s (%s, built %s)\n", version, gitCommit, buildDate)
	return 0
}

// components bundles the wired subsystems for one loaded configuration.
type components struct {
	cfg       *config.Config
	store     *envstore.Store
	gateway   *gitx.Gateway
	provider  *provider.WorktreeProvider
	engine    *resolve.Engine
	scheduler *reclaim.Scheduler
	hub       *events.Hub
	codebases map[string]provider.Codebase
	close     func()
}

func buildComponents(ctx context.Context, configPath string) (*components, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log.Setup(cfg.Service.LogLevel, cfg.Service.LogFormat)
	logger := log.Get()

	db, err := storage.OpenSQLite(ctx, cfg.State.Path)
	if err != nil {
		return nil, err
	}

	codebases := make(map[string]provider.Codebase, len(cfg.Codebases))
	for id, cb := range cfg.Codebases {
		codebases[id] = provider.Codebase{ID: id, RootPath: cb.Path, MainBranch: cb.MainBranch}
	}

	hub := events.NewHub(256)
	store := envstore.NewStore(db)
	gateway := gitx.NewGateway(cfg.Worktrees.GitTimeout.Std(), logger)
	prov := provider.NewWorktreeProvider(gateway, store, codebases, cfg.Worktrees.BaseDir, logger)
	notifier := resolve.NewLogNotifier(logger)
	engine := resolve.New(store, prov, gateway, notifier, hub, logger)
	scheduler := reclaim.New(reclaim.Options{
		Interval:            cfg.Worktrees.SweepInterval.Std(),
		StaleThreshold:      cfg.Worktrees.StaleThreshold(),
		PersistentPlatforms: cfg.Worktrees.PersistentPlatforms,
	}, codebases, store, prov, gateway, hub, logger)

	return &components{
		cfg:       cfg,
		store:     store,
		gateway:   gateway,
		provider:  prov,
		engine:    engine,
		scheduler: scheduler,
		hub:       hub,
		codebases: codebases,
		close:     func() { _ = db.Close() },
	}, nil
}

func runStart(args []string) int {
	fs := flag.NewFlagSet("start", flag.ContinueOnError)
	configPath := fs.String("config", "config.yaml", "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	c, err := buildComponents(ctx, *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Startup failed: %v\n", err)
		return 1
	}
	defer c.close()
	logger := log.Get()

	pidLock, err := lock.AcquirePIDLock(c.cfg.Service.LockPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Another instance appears to be running: %v\n", err)
		return 1
	}
	defer func() { _ = pidLock.Release() }()

	c.scheduler.Start(ctx)
	defer c.scheduler.Stop()

	if !c.cfg.API.Enabled {
		logger.Info("API disabled, running reclamation only")
		<-ctx.Done()
		return 0
	}

	serializer := serial.New(c.cfg.API.MaxConcurrentResolves)
	server := api.New(api.Config{
		Listen: c.cfg.API.Listen,
		APIKey: c.cfg.API.APIKey,
	}, c.engine, c.scheduler, c.provider, c.store, serializer, c.codebases, c.hub, logger)

	if err := server.Start(ctx); err != nil && ctx.Err() == nil {
		logger.Error("API server failed", "error", err)
		return 1
	}
	return 0
}

func runSweep(args []string) int {
	fs := flag.NewFlagSet("sweep", flag.ContinueOnError)
	configPath := fs.String("config", "config.yaml", "Path to configuration file")
	jsonOut := fs.Bool("json", false, "Output the sweep report as JSON")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	ctx := context.Background()
	c, err := buildComponents(ctx, *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Startup failed: %v\n", err)
		return 1
	}
	defer c.close()

	report, err := c.scheduler.RunSweep(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Sweep failed: %v\n", err)
		return 1
	}

	if *jsonOut {
		_ = json.NewEncoder(os.Stdout).Encode(report)
		return 0
	}
	fmt.Printf("Visited %d environment(s): %d removed, %d skipped, %d error(s)\n",
		report.Visited, len(report.Removed), len(report.Skipped), len(report.Errors))
	for _, item := range report.Removed {
		fmt.Printf("  removed %s (%s)\n", item.ID, item.Reason)
	}
	for _, item := range report.Skipped {
		fmt.Printf("  skipped %s (%s)\n", item.ID, item.Reason)
	}
	for _, item := range report.Errors {
		fmt.Printf("  error   %s: %s\n", item.ID, item.Error)
	}
	return 0
}

func runEnvNoun(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: arbor env list|show|destroy ...")
		return 1
	}
	switch args[0] {
	case "list":
		return runEnvList(args[1:])
	case "show":
		return runEnvShow(args[1:])
	case "destroy":
		return runEnvDestroy(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown env subcommand: %s\n", args[0])
		return 1
	}
}

func runEnvList(args []string) int {
	fs := flag.NewFlagSet("env list", flag.ContinueOnError)
	configPath := fs.String("config", "config.yaml", "Path to configuration file")
	codebase := fs.String("codebase", "", "Filter by codebase id")
	jsonOut := fs.Bool("json", false, "Output as JSON")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	ctx := context.Background()
	c, err := buildComponents(ctx, *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Startup failed: %v\n", err)
		return 1
	}
	defer c.close()

	envs, err := c.store.ListActive(ctx, *codebase)
	if err != nil {
		fmt.Fprintf(os.Stderr, "List failed: %v\n", err)
		return 1
	}

	if *jsonOut {
		_ = json.NewEncoder(os.Stdout).Encode(envs)
		return 0
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCODEBASE\tWORKFLOW\tBRANCH\tPATH")
	for _, env := range envs {
		fmt.Fprintf(w, "%s\t%s\t%s/%s\t%s\t%s\n",
			env.ID, env.CodebaseID, env.WorkflowType, env.WorkflowID, env.BranchName, env.WorkingPath)
	}
	_ = w.Flush()
	return 0
}

func runEnvShow(args []string) int {
	fs := flag.NewFlagSet("env show", flag.ContinueOnError)
	configPath := fs.String("config", "config.yaml", "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: arbor env show [--config PATH] <environment-id>")
		return 1
	}

	ctx := context.Background()
	c, err := buildComponents(ctx, *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Startup failed: %v\n", err)
		return 1
	}
	defer c.close()

	env, err := c.store.GetByID(ctx, fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Lookup failed: %v\n", err)
		return 1
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(env)
	return 0
}

func runEnvDestroy(args []string) int {
	fs := flag.NewFlagSet("env destroy", flag.ContinueOnError)
	configPath := fs.String("config", "config.yaml", "Path to configuration file")
	force := fs.Bool("force", false, "Remove even with uncommitted changes or live references")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: arbor env destroy [--config PATH] [--force] <environment-id>")
		return 1
	}
	envID := fs.Arg(0)

	ctx := context.Background()
	c, err := buildComponents(ctx, *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Startup failed: %v\n", err)
		return 1
	}
	defer c.close()

	if !*force {
		refs, err := c.store.RefCount(ctx, envID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Reference check failed: %v\n", err)
			return 1
		}
		if refs > 0 {
			fmt.Fprintf(os.Stderr, "Refusing to destroy: %d conversation(s) still reference %s (use --force)\n", refs, envID)
			return 1
		}
	}

	if err := c.provider.Destroy(ctx, envID, *force); err != nil {
		fmt.Fprintf(os.Stderr, "Destroy failed: %v\n", err)
		return 1
	}
	if err := c.store.MarkDestroyed(ctx, envID); err != nil {
		fmt.Fprintf(os.Stderr, "Destroy succeeded but marking the record failed: %v\n", err)
		return 1
	}
	fmt.Printf("Destroyed %s\n", envID)
	return 0
}

func runWatch(args []string) int {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	configPath := fs.String("config", "config.yaml", "Path to configuration file")
	apiURL := fs.String("api", "", "API base URL (default from config)")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config load failed: %v\n", err)
		return 1
	}

	url := *apiURL
	if url == "" {
		url = "http://" + cfg.API.Listen
	}

	p := tea.NewProgram(watch.New(url, cfg.API.APIKey))
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Watch failed: %v\n", err)
		return 1
	}
	return 0
}
