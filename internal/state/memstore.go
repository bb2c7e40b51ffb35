package state

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ShayCichocki/kai/internal/memory"
	"github.com/ShayCichocki/kai/pkg/models"
)

// Memory is a Store kept in process memory. Every operation runs under
// one mutex, so TransitionTask is atomic just as it is in SQLite.
type Memory struct {
	mu sync.Mutex

	nextID      int64
	projects    map[int64]models.Project
	epics       map[int64]models.Epic
	features    map[int64]models.Feature
	tasks       map[int64]models.DevTask
	transitions []models.TaskTransition
	outputs     []models.TaskOutput

	facts *memory.InMemoryFacts
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		projects: make(map[int64]models.Project),
		epics:    make(map[int64]models.Epic),
		features: make(map[int64]models.Feature),
		tasks:    make(map[int64]models.DevTask),
		facts:    memory.NewInMemoryFacts(),
	}
}

func (m *Memory) id() int64 {
	m.nextID++
	return m.nextID
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }

// Migrate is a no-op.
func (m *Memory) Migrate() error { return nil }

func (m *Memory) CreateProject(_ context.Context, p *models.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.Status == "" {
		p.Status = models.ProjectActive
	}
	p.ID = m.id()
	p.CreatedAt = now()
	p.UpdatedAt = p.CreatedAt
	m.projects[p.ID] = *p
	return nil
}

func (m *Memory) GetProject(_ context.Context, id int64) (*models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, fmt.Errorf("project %d: %w", id, ErrNotFound)
	}
	return &p, nil
}

func (m *Memory) ListProjects(context.Context) ([]models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Project
	for _, p := range m.projects {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// DeleteProject removes the project and everything beneath it.
func (m *Memory) DeleteProject(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[id]; !ok {
		return fmt.Errorf("project %d: %w", id, ErrNotFound)
	}
	delete(m.projects, id)

	removed := make(map[int64]bool)
	for eid, e := range m.epics {
		if e.ProjectID != id {
			continue
		}
		delete(m.epics, eid)
		for fid, f := range m.features {
			if f.EpicID != eid {
				continue
			}
			delete(m.features, fid)
			for tid, t := range m.tasks {
				if t.FeatureID == fid {
					delete(m.tasks, tid)
					removed[tid] = true
				}
			}
		}
	}

	for tid, t := range m.tasks {
		kept := t.DependsOn[:0:0]
		for _, dep := range t.DependsOn {
			if !removed[dep] {
				kept = append(kept, dep)
			}
		}
		t.DependsOn = kept
		m.tasks[tid] = t
	}
	m.transitions = filter(m.transitions, func(tr models.TaskTransition) bool { return !removed[tr.TaskID] })
	m.outputs = filter(m.outputs, func(o models.TaskOutput) bool { return !removed[o.TaskID] })
	return nil
}

func (m *Memory) CreateEpic(_ context.Context, e *models.Epic) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[e.ProjectID]; !ok {
		return fmt.Errorf("create epic: project %d: %w", e.ProjectID, ErrNotFound)
	}
	e.ID = m.id()
	m.epics[e.ID] = *e
	return nil
}

func (m *Memory) ListEpics(_ context.Context, projectID int64) ([]models.Epic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Epic
	for _, e := range m.epics {
		if e.ProjectID == projectID {
			out = append(out, e)
		}
	}
	sortEpics(out)
	return out, nil
}

func (m *Memory) CreateFeature(_ context.Context, f *models.Feature) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.epics[f.EpicID]; !ok {
		return fmt.Errorf("create feature: epic %d: %w", f.EpicID, ErrNotFound)
	}
	f.ID = m.id()
	m.features[f.ID] = *f
	return nil
}

func (m *Memory) ListFeaturesByEpic(_ context.Context, epicID int64) ([]models.Feature, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Feature
	for _, f := range m.features {
		if f.EpicID == epicID {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) ListFeaturesByProject(_ context.Context, projectID int64) ([]models.Feature, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var epics []models.Epic
	for _, e := range m.epics {
		if e.ProjectID == projectID {
			epics = append(epics, e)
		}
	}
	sortEpics(epics)

	var out []models.Feature
	for _, e := range epics {
		var fs []models.Feature
		for _, f := range m.features {
			if f.EpicID == e.ID {
				fs = append(fs, f)
			}
		}
		sort.Slice(fs, func(i, j int) bool { return fs[i].ID < fs[j].ID })
		out = append(out, fs...)
	}
	return out, nil
}

func (m *Memory) CreateTask(_ context.Context, t *models.DevTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.features[t.FeatureID]; !ok {
		return fmt.Errorf("create task: feature %d: %w", t.FeatureID, ErrNotFound)
	}
	for _, dep := range t.DependsOn {
		if _, ok := m.tasks[dep]; !ok {
			return fmt.Errorf("create task: dependency %d: %w", dep, ErrNotFound)
		}
	}
	if t.Status == "" {
		t.Status = models.TaskCreated
	}
	t.EstimatedComplexity = models.ClampComplexity(t.EstimatedComplexity)
	t.ID = m.id()
	t.CreatedAt = now()
	t.UpdatedAt = t.CreatedAt
	t.DependsOn = dedupe(t.DependsOn)
	m.tasks[t.ID] = copyTask(*t)
	return nil
}

func (m *Memory) GetTask(_ context.Context, id int64) (*models.DevTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getTask(id)
}

func (m *Memory) getTask(id int64) (*models.DevTask, error) {
	t, ok := m.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	t = copyTask(t)
	return &t, nil
}

func (m *Memory) ListTasks(_ context.Context, projectID int64, status models.TaskStatus) ([]models.DevTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.collectTasks(func(t models.DevTask) bool {
		if status != "" && t.Status != status {
			return false
		}
		f, ok := m.features[t.FeatureID]
		if !ok {
			return false
		}
		return m.epics[f.EpicID].ProjectID == projectID
	}), nil
}

func (m *Memory) ListTasksByStatus(_ context.Context, status models.TaskStatus) ([]models.DevTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.collectTasks(func(t models.DevTask) bool { return t.Status == status }), nil
}

func (m *Memory) collectTasks(keep func(models.DevTask) bool) []models.DevTask {
	var out []models.DevTask
	for _, t := range m.tasks {
		if keep(t) {
			out = append(out, copyTask(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Memory) UpdateTask(_ context.Context, t *models.DevTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.tasks[t.ID]
	if !ok {
		return fmt.Errorf("task %d: %w", t.ID, ErrNotFound)
	}
	t.UpdatedAt = now()
	stored.AssignedAgent = t.AssignedAgent
	stored.BranchName = t.BranchName
	stored.PRURL = t.PRURL
	stored.UpdatedAt = t.UpdatedAt
	m.tasks[t.ID] = stored
	return nil
}

func (m *Memory) AddDependency(_ context.Context, taskID, dependsOn int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if taskID == dependsOn {
		return fmt.Errorf("add dependency: task %d cannot depend on itself", taskID)
	}
	t, ok := m.tasks[taskID]
	if !ok {
		return fmt.Errorf("add dependency: task %d: %w", taskID, ErrNotFound)
	}
	if _, ok := m.tasks[dependsOn]; !ok {
		return fmt.Errorf("add dependency: task %d: %w", dependsOn, ErrNotFound)
	}
	t.DependsOn = dedupe(append(t.DependsOn, dependsOn))
	m.tasks[taskID] = t
	return nil
}

func (m *Memory) TransitionTask(_ context.Context, taskID int64, to models.TaskStatus, reason, triggeredBy string,
	check func(from, to models.TaskStatus) error) (*models.DevTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("task %d: %w", taskID, ErrNotFound)
	}
	from := t.Status
	if check != nil {
		if err := check(from, to); err != nil {
			return nil, err
		}
	}

	ts := now()
	t.Status = to
	t.UpdatedAt = ts
	m.tasks[taskID] = t
	m.transitions = append(m.transitions, models.TaskTransition{
		ID:          m.id(),
		TaskID:      taskID,
		FromStatus:  from,
		ToStatus:    to,
		Reason:      reason,
		TriggeredBy: triggeredBy,
		CreatedAt:   ts,
	})
	return m.getTask(taskID)
}

func (m *Memory) TaskHistory(_ context.Context, taskID int64) ([]models.TaskTransition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return filter(m.transitions, func(tr models.TaskTransition) bool { return tr.TaskID == taskID }), nil
}

func (m *Memory) SaveTaskOutput(_ context.Context, o *models.TaskOutput) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[o.TaskID]; !ok {
		return fmt.Errorf("save task output: task %d: %w", o.TaskID, ErrNotFound)
	}
	o.ID = m.id()
	o.CreatedAt = now()
	m.outputs = append(m.outputs, *o)
	return nil
}

func (m *Memory) TaskOutputs(_ context.Context, taskID int64) ([]models.TaskOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return filter(m.outputs, func(o models.TaskOutput) bool { return o.TaskID == taskID }), nil
}

// AddFacts stores knowledge-graph facts.
func (m *Memory) AddFacts(ctx context.Context, facts []memory.Fact) error {
	return m.facts.AddFacts(ctx, facts)
}

// FactsAbout returns facts mentioning one of entities.
func (m *Memory) FactsAbout(ctx context.Context, entities []string, limit int) ([]memory.Fact, error) {
	return m.facts.FactsAbout(ctx, entities, limit)
}

func sortEpics(epics []models.Epic) {
	sort.Slice(epics, func(i, j int) bool {
		if epics[i].Order != epics[j].Order {
			return epics[i].Order < epics[j].Order
		}
		return epics[i].ID < epics[j].ID
	})
}

func copyTask(t models.DevTask) models.DevTask {
	t.DependsOn = append([]int64(nil), t.DependsOn...)
	return t
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	var out []int64
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func filter[T any](items []T, keep func(T) bool) []T {
	var out []T
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}
