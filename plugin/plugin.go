// Package plugin implements the deterministic, ordered hook chain that
// can delay, reject, mutate, or annotate each job and override advertised
// printer capabilities. There is no direct teacher equivalent for this
// framework (rusq-thermoprint's ippsrv has no plugin concept); it is new
// code written in the teacher's idiom: small interfaces, log/slog
// structured logging, and context.Context deadlines exactly like the
// fsm-callback pattern in jobsvc wraps fallible work and logs-and-continues
// on error.
package plugin

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/OpenPrinting/goipp"

	"github.com/rrohitkmr/vprinter/jobsvc"
)

// ErrorCategory classifies an injected or surfaced plugin error, per §4.7's
// error-injector plugin and §7's PluginError taxonomy.
type ErrorCategory string

const (
	ErrNetwork      ErrorCategory = "network"
	ErrMemory       ErrorCategory = "memory"
	ErrFormat       ErrorCategory = "format"
	ErrHardware     ErrorCategory = "hardware"
	ErrAuthorization ErrorCategory = "authorization"
	ErrQueue        ErrorCategory = "queue"
)

// BeforeResult is the outcome of a beforeJobProcessing hook.
type BeforeResult struct {
	Continue bool
	Reject   bool
	Category ErrorCategory // set when Reject is true and the rejection is an injected error
	Message  string
}

// ProcessResult is the outcome of a processJob hook.
type ProcessResult struct {
	ProcessedBytes  []byte // replaces the payload if non-nil
	ModifiedJob     bool
	CustomMetadata  map[string]any
	ShouldContinue  bool
	HasCustomResponse bool
	CustomResponse  *goipp.Message
}

// Metadata is a plugin's static identity (§3 PluginMetadata).
type Metadata struct {
	ID           string
	Name         string
	Version      string
	Description  string
	Author       string
	Enabled      bool
	LoadOrder    int32
	Dependencies []string
}

// ConfigField describes one entry of a plugin's configuration schema (§3).
type ConfigField struct {
	Key         string
	Label       string
	Type        string // text|number|boolean|select|file|color
	Default     any
	Required    bool
	Options     []string
	Min, Max    *float64
	Description string
}

// Plugin is the contract every built-in (and any future) plugin implements,
// per §4.7.
type Plugin interface {
	Metadata() Metadata

	OnLoad(ctx context.Context) error
	OnUnload() error

	BeforeJobProcessing(ctx context.Context, job *jobsvc.Job) BeforeResult
	ProcessJob(ctx context.Context, job *jobsvc.Job, documentBytes []byte) (ProcessResult, bool)
	AfterJobProcessing(ctx context.Context, job *jobsvc.Job, success bool)
	CustomizeIppAttributes(ctx context.Context, original goipp.Attributes) (goipp.Attributes, bool)
	HandleCustomIppOperation(ctx context.Context, opName string, groups goipp.Attributes) bool
	HandleError(ctx context.Context, err error, context_ string) bool

	Schema() ([]ConfigField, bool)
	UpdateConfiguration(cfg map[string]any) error
}

// Timeouts per §4.7.
const (
	BeforeTimeout     = 30 * time.Second
	ProcessTimeout    = 60 * time.Second
	CustomizeTimeout  = 10 * time.Second
)

// Registry owns plugin lifecycle and runs the ordered hook chains. It is
// the single owner of plugins; request tasks only observe jobs passed to
// hooks, per §3's ownership rule.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]Plugin
	loaded  map[string]bool
	configs map[string]map[string]any
}

func NewRegistry() *Registry {
	return &Registry{
		plugins: make(map[string]Plugin),
		loaded:  make(map[string]bool),
		configs: make(map[string]map[string]any),
	}
}

// Register adds a plugin to the registry without enabling it.
func (r *Registry) Register(p Plugin) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plugins[p.Metadata().ID] = p
}

// Load enables a plugin, enforcing the dependency invariant from §3: every
// id in its declared Dependencies must already be loaded.
func (r *Registry) Load(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.plugins[id]
	if !ok {
		return errNotRegistered(id)
	}
	for _, dep := range p.Metadata().Dependencies {
		if !r.loaded[dep] {
			return errMissingDependency(id, dep)
		}
	}
	if err := p.OnLoad(ctx); err != nil {
		return err
	}
	r.loaded[id] = true
	return nil
}

// Unload disables a plugin.
func (r *Registry) Unload(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.plugins[id]
	if !ok {
		return errNotRegistered(id)
	}
	if err := p.OnUnload(); err != nil {
		return err
	}
	delete(r.loaded, id)
	return nil
}

// Configure pushes a configuration update to a plugin regardless of its
// loaded state.
func (r *Registry) Configure(id string, cfg map[string]any) error {
	r.mu.Lock()
	p, ok := r.plugins[id]
	r.mu.Unlock()
	if !ok {
		return errNotRegistered(id)
	}
	if err := p.UpdateConfiguration(cfg); err != nil {
		return err
	}
	r.mu.Lock()
	r.configs[id] = cfg
	r.mu.Unlock()
	return nil
}

// Configs returns the last-applied configuration for every plugin that
// has been configured, keyed by plugin id, for persistence to
// plugin_config.json per §6.
func (r *Registry) Configs() map[string]map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]map[string]any, len(r.configs))
	for id, cfg := range r.configs {
		out[id] = cfg
	}
	return out
}

// ordered returns enabled plugins sorted by ascending LoadOrder, per §4.7's
// "plugins sorted by ascending loadOrder on every invocation" rule.
func (r *Registry) ordered() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Plugin, 0, len(r.loaded))
	for id := range r.loaded {
		out = append(out, r.plugins[id])
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Metadata().LoadOrder < out[j].Metadata().LoadOrder
	})
	return out
}

// RunBefore runs the before-hook chain. Any Reject short-circuits; an
// exception or timeout in a hook is logged and treated as Continue, per
// §4.7's exception-isolation and timeout policies.
func (r *Registry) RunBefore(ctx context.Context, job *jobsvc.Job) BeforeResult {
	for _, p := range r.ordered() {
		res, ok := callWithTimeout(ctx, BeforeTimeout, func(ctx context.Context) BeforeResult {
			return p.BeforeJobProcessing(ctx, job)
		}, p.Metadata().ID, "beforeJobProcessing")
		if !ok {
			continue
		}
		if res.Reject {
			return res
		}
	}
	return BeforeResult{Continue: true}
}

// RunProcess runs the process-hook chain. The first plugin that returns a
// non-empty result wins; subsequent plugins are skipped, per §4.7.
func (r *Registry) RunProcess(ctx context.Context, job *jobsvc.Job, data []byte) (ProcessResult, bool) {
	for _, p := range r.ordered() {
		res, ok := callWithTimeoutOK(ctx, ProcessTimeout, func(ctx context.Context) (ProcessResult, bool) {
			return p.ProcessJob(ctx, job, data)
		}, p.Metadata().ID, "processJob")
		if ok {
			return res, true
		}
	}
	return ProcessResult{}, false
}

// RunAfter notifies every enabled plugin, observation-only.
func (r *Registry) RunAfter(ctx context.Context, job *jobsvc.Job, success bool) {
	for _, p := range r.ordered() {
		func() {
			defer recoverLog(p.Metadata().ID, "afterJobProcessing")
			p.AfterJobProcessing(ctx, job, success)
		}()
	}
}

// RunCustomizeAttributes folds the attribute-customization chain: each
// plugin's output becomes the input to the next, per §4.7.
func (r *Registry) RunCustomizeAttributes(ctx context.Context, groups goipp.Attributes) goipp.Attributes {
	current := groups
	for _, p := range r.ordered() {
		out, ok := callWithTimeoutAttrs(ctx, CustomizeTimeout, func(ctx context.Context) (goipp.Attributes, bool) {
			return p.CustomizeIppAttributes(ctx, current)
		}, p.Metadata().ID, "customizeIppAttributes")
		if ok {
			current = out
		}
	}
	return current
}

// RunHandleError offers every enabled plugin a chance to handle an error;
// the first to report "handled" stops the chain.
func (r *Registry) RunHandleError(ctx context.Context, err error, context_ string) bool {
	for _, p := range r.ordered() {
		handled := func() (handled bool) {
			defer recoverLog(p.Metadata().ID, "handleError")
			return p.HandleError(ctx, err, context_)
		}()
		if handled {
			return true
		}
	}
	return false
}

// RunCustomOperation offers every enabled plugin a chance to handle an
// operation code the dispatcher has no built-in handler for, per §4.7's
// handleCustomIppOperation hook. The first plugin to report true wins.
func (r *Registry) RunCustomOperation(ctx context.Context, opName string, groups goipp.Attributes) bool {
	for _, p := range r.ordered() {
		handled := func() (handled bool) {
			defer recoverLog(p.Metadata().ID, "handleCustomIppOperation")
			return p.HandleCustomIppOperation(ctx, opName, groups)
		}()
		if handled {
			return true
		}
	}
	return false
}

func errNotRegistered(id string) error {
	return &notRegisteredError{id}
}

type notRegisteredError struct{ id string }

func (e *notRegisteredError) Error() string { return "plugin not registered: " + e.id }

func errMissingDependency(id, dep string) error {
	return &missingDependencyError{id, dep}
}

type missingDependencyError struct{ id, dep string }

func (e *missingDependencyError) Error() string {
	return "plugin " + e.id + " requires dependency " + e.dep + " to be loaded first"
}

func recoverLog(pluginID, hook string) {
	if r := recover(); r != nil {
		slog.Error("plugin hook panicked, isolated", "plugin", pluginID, "hook", hook, "panic", r)
	}
}
