package build

import (
	"github.com/google/uuid"

	"atp/internal/cache"
	"atp/internal/lock"
	"atp/internal/logging"
)

// Pipeline runs the resolve → fingerprint → compare → persist sequence
// for one invocation. The two persisted stores are loaded at most once
// and saved at most once per run; saves use atomic replacement, so an
// interrupted build leaves the previous state intact.
type Pipeline struct {
	RunID  string
	Cache  *cache.Store
	Lock   *lock.Store
	Logger *logging.Logger
}

// NewPipeline creates a pipeline with a fresh run identifier
func NewPipeline(cacheStore *cache.Store, lockStore *lock.Store, logger *logging.Logger) *Pipeline {
	return &Pipeline{
		RunID:  uuid.NewString(),
		Cache:  cacheStore,
		Lock:   lockStore,
		Logger: logger,
	}
}

// Outcome is the aggregate result of one pipeline run
type Outcome struct {
	RunID      string       `json:"runId"`
	Result     *Result      `json:"-"`
	Changed    []string     `json:"changed"`
	LockReport *lock.Report `json:"lock"`
}

// ChangedSet returns the changed identities as a membership set
func (o *Outcome) ChangedSet() map[string]bool {
	set := make(map[string]bool, len(o.Changed))
	for _, id := range o.Changed {
		set[id] = true
	}
	return set
}

// Analyze resolves the plan and compares against the persisted stores
// without writing anything; used by report-only commands.
func (p *Pipeline) Analyze(plan *Plan) (*Outcome, error) {
	result, err := plan.Resolve()
	if err != nil {
		return nil, err
	}

	changed := cache.Compare(p.Cache.Load(), result.Fingerprints)
	report := lock.Check(p.Lock.Load(), result.Labels)

	return &Outcome{
		RunID:      p.RunID,
		Result:     result,
		Changed:    changed,
		LockReport: report,
	}, nil
}

// Execute runs Analyze and then persists the run's state. The cache
// always records fingerprints for all tests so narrowed output never
// degrades future diffs. The lock is written on first run or when the
// caller asks for a refresh; a stale lock alone never fails the build.
func (p *Pipeline) Execute(plan *Plan, updateLock bool) (*Outcome, error) {
	outcome, err := p.Analyze(plan)
	if err != nil {
		return nil, err
	}

	if err := p.Cache.Save(outcome.Result.Fingerprints); err != nil {
		return nil, err
	}

	if updateLock || !p.Lock.Exists() {
		if err := p.Lock.Save(outcome.Result.Labels); err != nil {
			return nil, err
		}
	}

	p.Logger.Info("Build pipeline complete", map[string]interface{}{
		"runId":   p.RunID,
		"tests":   len(outcome.Result.Tests),
		"changed": len(outcome.Changed),
		"stale":   outcome.LockReport.Stale,
	})
	return outcome, nil
}
