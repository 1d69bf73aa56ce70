package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/viper"

	"taskweave/config"
	"taskweave/llm"
	"taskweave/mcptools"
	"taskweave/planner"
	"taskweave/plugin"
	"taskweave/prompts"
	"taskweave/solvers"
	"taskweave/store"
	"taskweave/workflow"
)

// app is everything a command needs to answer requests.
type app struct {
	cfg     *config.Config
	logger  hclog.Logger
	stores  *store.Bundle
	prompts *prompts.Library
	solvers []workflow.Solver
	runner  *workflow.Runner
	debug   *workflow.DebugLogger

	providers map[string]llm.Provider
	gens      map[string]llm.Generator
	meters    map[string]*meter
	closers   []func()
}

// meter tracks the usage of one model key.
type meter struct {
	model *config.Model
	key   string
	gen   *llm.ProviderGenerator
}

type appOptions struct {
	// maxSteps overrides the executor block when positive
	maxSteps int
	// withRunner builds the planner and executor; listing commands skip it
	withRunner bool
}

// loadConfig reads the config named by --config.
func loadConfig() (*config.Config, error) {
	return config.LoadAndValidate(viper.GetString("config"))
}

func newApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:       cfg,
		logger:    newLogger(),
		providers: map[string]llm.Provider{},
		gens:      map[string]llm.Generator{},
		meters:    map[string]*meter{},
	}
	if err := a.build(ctx, opts); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) build(ctx context.Context, opts appOptions) error {
	stores, err := store.NewBundle(ctx, storageFor(a.cfg))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	a.stores = stores

	if err := a.loadPrompts(); err != nil {
		return err
	}

	if viper.GetBool("debug") {
		dir := filepath.Join(".taskweave", "debug", time.Now().Format("20060102-150405"))
		debug, err := workflow.NewDebugLogger(dir)
		if err != nil {
			return fmt.Errorf("debug log: %w", err)
		}
		a.debug = debug
		a.closers = append(a.closers, debug.Close)
		fmt.Fprintf(os.Stderr, "Debug logs: %s\n", dir)
	}

	if err := a.loadSolvers(ctx); err != nil {
		return err
	}
	if !opts.withRunner {
		return nil
	}

	exec := a.cfg.Executor
	gen, err := a.generator(ctx, exec.Model)
	if err != nil {
		return err
	}

	strategyOpts := []planner.Option{
		planner.WithMaxTokens(exec.MaxTokens),
		planner.WithTemperature(exec.Temperature),
		planner.WithLogger(a.logger.Named("planner")),
	}
	execOpts := []workflow.Option{
		workflow.WithMaxSteps(exec.MaxSteps),
		workflow.WithLogger(a.logger.Named("executor")),
	}
	if opts.maxSteps > 0 {
		execOpts = append(execOpts, workflow.WithMaxSteps(opts.maxSteps))
	}
	if exec.PlanRetries != nil {
		execOpts = append(execOpts, workflow.WithPlanRetries(*exec.PlanRetries))
	}
	if a.debug != nil {
		strategyOpts = append(strategyOpts, planner.WithEventLogger(a.debug))
		execOpts = append(execOpts, workflow.WithEventLogger(a.debug))
	}

	strategy := planner.NewChatStrategy(gen, a.prompts, strategyOpts...)
	a.runner = workflow.NewRunner(workflow.NewExecutor(strategy, a.solvers, execOpts...), a.stores.Runs, a.logger.Named("runner"))
	return nil
}

// storageFor applies the --storage override to the storage block. The
// store reports an unusable override when it opens.
func storageFor(cfg *config.Config) *config.StorageConfig {
	storage := cfg.StorageOrDefault()
	if backend := viper.GetString("storage"); backend != "" {
		storage.Backend = backend
	}
	return storage
}

// loadPrompts seeds the library, then applies the YAML file, then HCL
// prompt blocks.
func (a *app) loadPrompts() error {
	a.prompts = prompts.NewLibrary()
	if path := a.cfg.PromptLibrary; path != "" {
		if !filepath.IsAbs(path) {
			path = filepath.Join(configDir(), path)
		}
		if err := a.prompts.LoadYAML(path); err != nil {
			return err
		}
	}
	for _, p := range a.cfg.Prompts {
		a.prompts.Set(p.Name, p.Template)
	}
	return nil
}

// configDir is the directory relative paths in the config resolve against.
func configDir() string {
	path := viper.GetString("config")
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return path
	}
	return filepath.Dir(path)
}

// generator returns the shared generator for a model key, creating the
// provider on first use.
func (a *app) generator(ctx context.Context, key string) (llm.Generator, error) {
	if gen, ok := a.gens[key]; ok {
		return gen, nil
	}

	model, err := a.cfg.ModelFor(key)
	if err != nil {
		return nil, err
	}
	provider, ok := a.providers[model.Name]
	if !ok {
		provider, err = llm.NewProvider(ctx, string(model.Provider), llm.ProviderOptions{
			APIKey:  model.APIKey,
			Region:  model.Region,
			Profile: model.Profile,
		})
		if err != nil {
			return nil, fmt.Errorf("model '%s': %w", model.Name, err)
		}
		a.providers[model.Name] = provider
	}

	apiModel := model.APIModel(key)
	if model.Provider == config.ProviderBedrock {
		apiModel = llm.BedrockModelID(apiModel)
	}
	m := &meter{model: model, key: key, gen: llm.NewGenerator(provider, apiModel)}
	a.meters[key] = m
	a.gens[key] = m.gen

	if a.debug == nil {
		return m.gen, nil
	}
	logFile := a.debug.PromptLogFile()
	if key != a.cfg.Executor.Model {
		logFile = filepath.Join(a.debug.Dir(), "prompts-"+key+".jsonl")
	}
	pl, err := llm.NewPromptLogger(m.gen, logFile)
	if err != nil {
		return nil, fmt.Errorf("prompt log: %w", err)
	}
	a.closers = append(a.closers, pl.Close)
	a.gens[key] = pl
	return pl, nil
}

// loadSolvers registers the aggregator, the validator, configured built-ins,
// plugin solvers and MCP tools. Every name must be unique.
func (a *app) loadSolvers(ctx context.Context) error {
	exec := a.cfg.Executor
	gen, err := a.generator(ctx, exec.Model)
	if err != nil {
		return err
	}
	genOpts := []solvers.Option{
		solvers.WithMaxTokens(exec.MaxTokens),
		solvers.WithTemperature(exec.Temperature),
	}

	var list []workflow.Solver
	add := func(s workflow.Solver, origin string) error {
		if _, dup := workflow.FindSolver(list, s.Name()); dup {
			return fmt.Errorf("solver '%s' from %s is already registered", s.Name(), origin)
		}
		list = append(list, s)
		return nil
	}

	if err := add(solvers.NewAggregator(gen, a.prompts, genOpts...), "built-ins"); err != nil {
		return err
	}
	if err := add(solvers.NewValidator(gen, a.prompts, genOpts...), "built-ins"); err != nil {
		return err
	}

	for _, sc := range a.cfg.Solvers {
		s, err := a.configuredSolver(ctx, sc, genOpts)
		if err != nil {
			return fmt.Errorf("solver '%s': %w", sc.Name, err)
		}
		if err := add(s, "config"); err != nil {
			return err
		}
	}

	for _, p := range a.cfg.Plugins {
		path, err := p.BinaryPath()
		if err != nil {
			return fmt.Errorf("plugin '%s': %w", p.Name, err)
		}
		client, err := plugin.LoadPlugin(p.Name, path, p.Settings, a.logger.Named("plugin"))
		if err != nil {
			a.logger.Warn("plugin not loaded", "plugin", p.Name, "error", err)
			continue
		}
		a.closers = append(a.closers, client.Close)
		found, err := client.Solvers()
		if err != nil {
			return fmt.Errorf("plugin '%s': %w", p.Name, err)
		}
		for _, s := range found {
			if err := add(s, "plugin "+p.Name); err != nil {
				return err
			}
		}
	}

	for _, m := range a.cfg.MCP {
		tb, err := a.dialMCP(ctx, m)
		if err != nil {
			a.logger.Warn("mcp server not connected", "mcp", m.Name, "error", err)
			continue
		}
		a.closers = append(a.closers, func() { _ = tb.Close() })
		found, err := tb.Solvers(ctx)
		if err != nil {
			return fmt.Errorf("mcp '%s': %w", m.Name, err)
		}
		for _, s := range found {
			if err := add(s, "mcp "+m.Name); err != nil {
				return err
			}
		}
	}

	a.solvers = list
	return nil
}

func (a *app) configuredSolver(ctx context.Context, sc config.SolverConfig, genOpts []solvers.Option) (workflow.Solver, error) {
	switch sc.Type {
	case config.SolverInstruct:
		key := sc.Model
		if key == "" {
			key = a.cfg.Executor.Model
		}
		gen, err := a.generator(ctx, key)
		if err != nil {
			return nil, err
		}
		return solvers.NewInstructSolver(sc.Name, sc.Description, sc.Instruction, gen, a.prompts, genOpts...), nil
	case config.SolverShell:
		return solvers.NewShellSolver().Rename(sc.Name, sc.Description), nil
	case config.SolverCommand:
		return solvers.NewCommandSolver(sc.Name, sc.Description, sc.Command), nil
	case config.SolverHTTPGet:
		return solvers.NewHTTPGetSolver().Rename(sc.Name, sc.Description), nil
	default:
		return nil, fmt.Errorf("unknown type '%s'", sc.Type)
	}
}

func (a *app) dialMCP(ctx context.Context, m config.MCPConfig) (*mcptools.Toolbox, error) {
	logger := a.logger.Named("mcp")
	if m.URL != "" {
		return mcptools.DialSSE(ctx, m.Name, m.URL, logger)
	}
	return mcptools.DialStdio(ctx, m.Name, m.Command, m.Environ(), m.Args, logger)
}

// usage sums token usage and cost over every model used so far.
func (a *app) usage() (llm.Usage, float64) {
	var (
		total llm.Usage
		cost  float64
	)
	for _, m := range a.meters {
		u, _ := m.gen.Usage()
		total = total.Add(u)
		cost += m.model.Cost(m.key, u.InputTokens, u.OutputTokens)
	}
	return total, cost
}

// Close releases plugins, MCP sessions, logs and the store in reverse order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
	if a.stores != nil {
		if err := a.stores.Close(); err != nil {
			a.logger.Warn("close store", "error", err)
		}
		a.stores = nil
	}
}
