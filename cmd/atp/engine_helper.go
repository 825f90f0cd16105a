package main

import (
	"os"
	"path/filepath"

	"atp/internal/build"
	"atp/internal/cache"
	"atp/internal/config"
	"atp/internal/lock"
	"atp/internal/logging"
	"atp/internal/script"
)

// project bundles everything a command needs for one invocation
type project struct {
	Root   string
	Config *config.Config
	Logger *logging.Logger
}

// loadProject locates the project root and loads its configuration
func loadProject() (*project, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(cwd)
	if err != nil {
		return nil, err
	}

	return &project{
		Root:   cwd,
		Config: cfg,
		Logger: newLogger(cfg),
	}, nil
}

// path resolves a configured path against the project root
func (p *project) path(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(p.Root, rel)
}

// loadPlan runs every specification document through a fresh builder
func (p *project) loadPlan() (*build.Plan, error) {
	b := build.NewBuilder()
	if p.Config.IDDepth > 1 {
		if err := b.SetDepth(p.Config.IDDepth); err != nil {
			return nil, err
		}
	}

	loader := script.NewLoader(p.Logger)
	if err := loader.LoadGlob(b, p.path(p.Config.Scripts)); err != nil {
		return nil, err
	}
	return b.Freeze(), nil
}

// newPipeline wires the persisted stores for this project
func (p *project) newPipeline() *build.Pipeline {
	return build.NewPipeline(
		cache.NewStore(p.path(p.Config.Paths.Cache), p.Logger),
		lock.NewStore(p.path(p.Config.Paths.Lock), p.Logger),
		p.Logger,
	)
}
