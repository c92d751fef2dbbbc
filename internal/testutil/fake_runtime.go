package testutil

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"keepwarm/internal/container"
)

// FakeContainer is a container held by FakeRuntime
type FakeContainer struct {
	ID      string
	Config  container.RunConfig
	Running bool
	Logs    string
}

// ExecCall records one Exec or ExecInteractive invocation
type ExecCall struct {
	ContainerID string
	Config      container.ExecConfig
	Interactive bool
}

// FakeRuntime is an in-memory container.Runtime for tests.
// Containers start running; OnRun may change that and set their logs.
type FakeRuntime struct {
	mu sync.Mutex

	Type      container.RuntimeType
	Available bool

	// OnRun is called with the runtime locked after a container is created;
	// it must mutate c directly rather than call back into the runtime
	OnRun func(c *FakeContainer)

	// ExecFn and InteractiveFn script exec results
	ExecFn        func(id string, cfg *container.ExecConfig) (*container.ExecResult, error)
	InteractiveFn func(id string, cfg *container.ExecConfig, stdio container.Stdio) (int, error)

	// Injected failures
	RunErr       error
	StopErr      error
	RemoveErr    error
	IsRunningErr error
	LogsErr      error

	Runs    []container.RunConfig
	Stops   []string
	Removes []string
	Execs   []ExecCall

	containers map[string]*FakeContainer
	nextID     int
}

var _ container.Runtime = (*FakeRuntime)(nil)

// NewFakeRuntime creates an available fake docker runtime
func NewFakeRuntime() *FakeRuntime {
	return &FakeRuntime{
		Type:       container.RuntimeTypeDocker,
		Available:  true,
		containers: make(map[string]*FakeContainer),
	}
}

// AddContainer registers an existing container
func (f *FakeRuntime) AddContainer(id string, running bool, logs string) *FakeContainer {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := &FakeContainer{ID: id, Running: running, Logs: logs}
	f.containers[id] = c
	return c
}

// SetRunning flips a container's liveness; unknown ids are ignored
func (f *FakeRuntime) SetRunning(id string, running bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.containers[id]; ok {
		c.Running = running
	}
}

// AppendLogs adds output to a container's logs
func (f *FakeRuntime) AppendLogs(id, logs string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.containers[id]; ok {
		c.Logs += logs
	}
}

// Container returns a copy of the container with id, or nil
func (f *FakeRuntime) Container(id string) *FakeContainer {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.containers[id]
	if !ok {
		return nil
	}
	cp := *c
	return &cp
}

// Containers returns the number of containers currently known
func (f *FakeRuntime) Containers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.containers)
}

// RunCalls returns a snapshot of recorded Run configs
func (f *FakeRuntime) RunCalls() []container.RunConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]container.RunConfig(nil), f.Runs...)
}

func (f *FakeRuntime) notFound(op, id string) error {
	return &container.ContainerError{
		Type:        container.ErrorTypeContainerNotFound,
		Runtime:     f.Type,
		Operation:   op,
		ContainerID: id,
		Message:     "no such container",
	}
}

func (f *FakeRuntime) GetType() container.RuntimeType { return f.Type }

func (f *FakeRuntime) IsAvailable(ctx context.Context) bool { return f.Available }

func (f *FakeRuntime) Version(ctx context.Context) (string, error) {
	return "fake 1.0.0", nil
}

func (f *FakeRuntime) Run(ctx context.Context, cfg *container.RunConfig) (string, error) {
	f.mu.Lock()
	f.Runs = append(f.Runs, *cfg)
	if f.RunErr != nil {
		err := f.RunErr
		f.mu.Unlock()
		return "", err
	}
	f.nextID++
	c := &FakeContainer{
		ID:      fmt.Sprintf("fake-%d", f.nextID),
		Config:  *cfg,
		Running: true,
	}
	f.containers[c.ID] = c
	hook := f.OnRun
	f.mu.Unlock()

	if hook != nil {
		f.mu.Lock()
		hook(c)
		f.mu.Unlock()
	}
	return c.ID, nil
}

func (f *FakeRuntime) Exec(ctx context.Context, id string, cfg *container.ExecConfig) (*container.ExecResult, error) {
	f.mu.Lock()
	f.Execs = append(f.Execs, ExecCall{ContainerID: id, Config: *cfg})
	_, ok := f.containers[id]
	fn := f.ExecFn
	f.mu.Unlock()

	if !ok {
		return nil, f.notFound("exec", id)
	}
	if fn != nil {
		return fn(id, cfg)
	}
	return &container.ExecResult{}, nil
}

func (f *FakeRuntime) ExecInteractive(ctx context.Context, id string, cfg *container.ExecConfig, stdio container.Stdio) (int, error) {
	f.mu.Lock()
	f.Execs = append(f.Execs, ExecCall{ContainerID: id, Config: *cfg, Interactive: true})
	_, ok := f.containers[id]
	fn := f.InteractiveFn
	f.mu.Unlock()

	if !ok {
		return 0, f.notFound("exec", id)
	}
	if fn != nil {
		return fn(id, cfg, stdio)
	}
	return 0, nil
}

func (f *FakeRuntime) Logs(ctx context.Context, id string, opts container.LogOptions, w io.Writer) error {
	f.mu.Lock()
	if f.LogsErr != nil {
		err := f.LogsErr
		f.mu.Unlock()
		return err
	}
	c, ok := f.containers[id]
	var logs string
	if ok {
		logs = tailLines(c.Logs, opts.Tail)
	}
	f.mu.Unlock()

	if !ok {
		return f.notFound("logs", id)
	}
	if _, err := io.WriteString(w, logs); err != nil {
		return err
	}
	if opts.Follow {
		<-ctx.Done()
	}
	return nil
}

func (f *FakeRuntime) Stop(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Stops = append(f.Stops, id)
	if f.StopErr != nil {
		return f.StopErr
	}
	c, ok := f.containers[id]
	if !ok {
		return f.notFound("stop", id)
	}
	c.Running = false
	if c.Config.RemoveOnExit {
		delete(f.containers, id)
	}
	return nil
}

func (f *FakeRuntime) Remove(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Removes = append(f.Removes, id)
	if f.RemoveErr != nil {
		return f.RemoveErr
	}
	if _, ok := f.containers[id]; !ok {
		return f.notFound("remove", id)
	}
	delete(f.containers, id)
	return nil
}

func (f *FakeRuntime) IsRunning(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.IsRunningErr != nil {
		return false, f.IsRunningErr
	}
	c, ok := f.containers[id]
	return ok && c.Running, nil
}

func tailLines(logs string, n int) string {
	if n <= 0 || logs == "" {
		return logs
	}
	trimmed := strings.TrimSuffix(logs, "\n")
	lines := strings.Split(trimmed, "\n")
	if len(lines) <= n {
		return logs
	}
	return strings.Join(lines[len(lines)-n:], "\n") + "\n"
}
