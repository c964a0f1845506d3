// Package container evaluates remote entry scripts and exposes their
// components to the host.
//
// An entry script defines a global container object:
//
//	var container = {
//	  shared: { vdom: { requiredVersion: "^1.2.0" } },
//	  exposes: ["Header", "Button"],
//	  init: function (shareScope) { ... },
//	  get: function (name) { return factory or undefined }
//	};
//
// get returns a factory; the factory returns a module whose default export
// (or the module itself) is a function from props to a virtual node.
package container

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"fedhost/internal/data"
	"fedhost/internal/shared"

	"github.com/dop251/goja"
	"go.uber.org/zap"
)

// DefaultTimeout bounds each call into a remote script.
const DefaultTimeout = 2 * time.Second

// Container is an evaluated remote entry. Each container owns one JS runtime;
// calls into it are serialized.
type Container struct {
	remote  string
	timeout time.Duration
	logger  *zap.Logger

	mu          sync.Mutex
	vm          *goja.Runtime
	get         goja.Callable
	init        goja.Callable
	self        goja.Value
	shared      []shared.Requirement
	exposes     []string
	initialized bool
}

type options struct {
	timeout time.Duration
	logger  *zap.Logger
}

type Option func(*options)

func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Evaluate runs an entry script and validates the container it defines.
// Failures are reported as *data.InvalidEntryError.
func Evaluate(remote, source string, opts ...Option) (*Container, error) {
	o := options{timeout: DefaultTimeout, logger: zap.NewNop()}
	for _, apply := range opts {
		if apply != nil {
			apply(&o)
		}
	}

	vm := goja.New()
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("js", true))

	c := &Container{
		remote:  remote,
		timeout: o.timeout,
		logger:  o.logger.Named("container").With(zap.String("remote", remote)),
		vm:      vm,
	}
	if err := c.installConsole(); err != nil {
		return nil, c.invalid("", "install console", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.guard(func() (goja.Value, error) { return vm.RunString(source) }); err != nil {
		return nil, c.invalid("", "evaluate entry script", err)
	}

	val := vm.Get("container")
	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return nil, c.invalid("", "entry script does not define a container", nil)
	}
	obj := val.ToObject(vm)
	get, ok := goja.AssertFunction(obj.Get("get"))
	if !ok {
		return nil, c.invalid("", "container.get is not a function", nil)
	}
	c.self = obj
	c.get = get
	if initFn, ok := goja.AssertFunction(obj.Get("init")); ok {
		c.init = initFn
	}

	reqs, err := parseShared(obj.Get("shared"))
	if err != nil {
		return nil, c.invalid("", "container.shared", err)
	}
	c.shared = reqs

	exposes, err := parseExposes(obj.Get("exposes"))
	if err != nil {
		return nil, c.invalid("", "container.exposes", err)
	}
	c.exposes = exposes

	c.logger.Debug("entry evaluated", zap.Int("shared", len(reqs)), zap.Strings("exposes", exposes))
	return c, nil
}

func (c *Container) Remote() string { return c.remote }

// Shared returns the shared dependencies the remote declares, sorted by name.
func (c *Container) Shared() []shared.Requirement {
	return append([]shared.Requirement(nil), c.shared...)
}

// Exposes returns the declared export names; empty when the remote does not
// declare them.
func (c *Container) Exposes() []string {
	return append([]string(nil), c.exposes...)
}

// Init hands the negotiated share scope to the remote. Only the first call
// has an effect.
func (c *Container) Init(scope shared.Scope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.initialized {
		return nil
	}
	c.initialized = true
	if c.init == nil {
		return nil
	}

	vm := c.vm
	shareScope := vm.NewObject()
	names := make([]string, 0, len(scope))
	for name := range scope {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		inst := scope[name]
		entry := vm.NewObject()
		_ = entry.Set("version", inst.Version)
		_ = entry.Set("from", inst.From)
		_ = entry.Set("get", func(goja.FunctionCall) goja.Value { return vm.ToValue(inst.Value) })
		_ = shareScope.Set(name, entry)
	}

	if _, err := c.guard(func() (goja.Value, error) { return c.init(c.self, shareScope) }); err != nil {
		return c.invalid("", "container.init", err)
	}
	return nil
}

// Get resolves an export to a component. An export the container does not
// provide yields *data.UnknownExportError; one without component shape
// yields *data.InvalidEntryError.
func (c *Container) Get(export string) (*Component, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	factory, err := c.guard(func() (goja.Value, error) { return c.get(c.self, c.vm.ToValue(export)) })
	if err != nil {
		return nil, c.invalid(export, "container.get", err)
	}
	factory, err = c.settle(factory)
	if err != nil {
		return nil, c.invalid(export, "container.get", err)
	}
	if factory == nil || goja.IsUndefined(factory) || goja.IsNull(factory) {
		return nil, &data.UnknownExportError{Remote: c.remote, Export: export, Available: c.Exposes()}
	}

	factoryFn, ok := goja.AssertFunction(factory)
	if !ok {
		return nil, c.invalid(export, "factory is not a function", nil)
	}
	module, err := c.guard(func() (goja.Value, error) { return factoryFn(goja.Undefined()) })
	if err != nil {
		return nil, c.invalid(export, "factory", err)
	}
	if module, err = c.settle(module); err != nil {
		return nil, c.invalid(export, "factory", err)
	}

	render, ok := goja.AssertFunction(module)
	if !ok && module != nil && !goja.IsUndefined(module) && !goja.IsNull(module) {
		render, ok = goja.AssertFunction(module.ToObject(c.vm).Get("default"))
	}
	if !ok {
		return nil, c.invalid(export, "export is not a component function", nil)
	}
	return &Component{c: c, export: export, render: render}, nil
}

// settle unwraps an already settled promise; callers hold c.mu.
func (c *Container) settle(v goja.Value) (goja.Value, error) {
	if v == nil {
		return v, nil
	}
	p, ok := v.Export().(*goja.Promise)
	if !ok {
		return v, nil
	}
	switch p.State() {
	case goja.PromiseStateFulfilled:
		return p.Result(), nil
	case goja.PromiseStateRejected:
		return nil, fmt.Errorf("promise rejected: %v", p.Result())
	default:
		return nil, errors.New("promise did not settle")
	}
}

// guard runs fn with the execution deadline armed; callers hold c.mu.
func (c *Container) guard(fn func() (goja.Value, error)) (goja.Value, error) {
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		timer := time.NewTimer(c.timeout)
		defer timer.Stop()
		select {
		case <-timer.C:
			c.vm.Interrupt("execution timeout")
		case <-done:
		}
	}()

	v, err := fn()
	close(done)
	wg.Wait()
	c.vm.ClearInterrupt()

	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		return nil, fmt.Errorf("script execution exceeded %s", c.timeout)
	}
	return v, err
}

func (c *Container) invalid(export, reason string, err error) error {
	return &data.InvalidEntryError{Remote: c.remote, Export: export, Reason: reason, Err: err}
}

func (c *Container) installConsole() error {
	console := c.vm.NewObject()
	bind := func(level func(string, ...zap.Field)) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			args := make([]any, len(call.Arguments))
			for i, arg := range call.Arguments {
				args[i] = arg.Export()
			}
			level("remote console", zap.String("message", fmt.Sprint(args...)))
			return goja.Undefined()
		}
	}
	for name, level := range map[string]func(string, ...zap.Field){
		"log":   c.logger.Info,
		"info":  c.logger.Info,
		"warn":  c.logger.Warn,
		"error": c.logger.Error,
		"debug": c.logger.Debug,
	} {
		if err := console.Set(name, bind(level)); err != nil {
			return err
		}
	}
	return c.vm.Set("console", console)
}

func parseShared(v goja.Value) ([]shared.Requirement, error) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, nil
	}
	var reqs []shared.Requirement
	switch t := v.Export().(type) {
	case []any:
		for _, item := range t {
			name, ok := item.(string)
			if !ok || name == "" {
				return nil, fmt.Errorf("shared entries must be names, got %T", item)
			}
			reqs = append(reqs, shared.Requirement{Name: name})
		}
	case map[string]any:
		for name, raw := range t {
			req := shared.Requirement{Name: name}
			switch spec := raw.(type) {
			case string:
				req.RequiredVersion = spec
			case map[string]any:
				req.RequiredVersion, _ = spec["requiredVersion"].(string)
				req.Version, _ = spec["version"].(string)
				req.StrictVersion, _ = spec["strictVersion"].(bool)
			case nil, bool:
			default:
				return nil, fmt.Errorf("shared %q: unsupported declaration %T", name, raw)
			}
			reqs = append(reqs, req)
		}
	default:
		return nil, fmt.Errorf("must be an object or array, got %T", t)
	}
	sort.Slice(reqs, func(i, j int) bool { return reqs[i].Name < reqs[j].Name })
	return reqs, nil
}

func parseExposes(v goja.Value) ([]string, error) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, nil
	}
	items, ok := v.Export().([]any)
	if !ok {
		return nil, fmt.Errorf("must be an array of names, got %T", v.Export())
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		name, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("export names must be strings, got %T", item)
		}
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}
