// Package memory provides a map-backed Store implementation. It backs the
// test suites and the --store memory server mode; state lives for the
// process lifetime only.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"roster/internal/api"
	"roster/internal/entity"
	"roster/internal/store"
)

// Store is an in-memory store.Store. A single RWMutex guards all state;
// transactions snapshot the full dataset and restore it on rollback.
type Store struct {
	mu   sync.RWMutex
	data *dataset
	now  func() time.Time
}

// dataset holds every table plus a monotonic insertion sequence used as the
// creation-order tiebreak when timestamps collide.
type dataset struct {
	projects     map[string]*entity.Project
	features     map[string]*entity.Feature
	tasks        map[string]*entity.Task
	dependencies map[string]*entity.Dependency
	transitions  map[string][]*entity.RoleTransition
	sections     map[string]int
	order        map[string]uint64
	seq          uint64
}

func newDataset() *dataset {
	return &dataset{
		projects:     make(map[string]*entity.Project),
		features:     make(map[string]*entity.Feature),
		tasks:        make(map[string]*entity.Task),
		dependencies: make(map[string]*entity.Dependency),
		transitions:  make(map[string][]*entity.RoleTransition),
		sections:     make(map[string]int),
		order:        make(map[string]uint64),
	}
}

func (d *dataset) clone() *dataset {
	out := newDataset()
	out.seq = d.seq
	for id, p := range d.projects {
		out.projects[id] = p.Clone()
	}
	for id, f := range d.features {
		out.features[id] = f.Clone()
	}
	for id, t := range d.tasks {
		out.tasks[id] = t.Clone()
	}
	for id, dep := range d.dependencies {
		out.dependencies[id] = dep.Clone()
	}
	for id, records := range d.transitions {
		copied := make([]*entity.RoleTransition, len(records))
		for i, r := range records {
			copied[i] = r.Clone()
		}
		out.transitions[id] = copied
	}
	for id, n := range d.sections {
		out.sections[id] = n
	}
	for id, n := range d.order {
		out.order[id] = n
	}
	return out
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		data: newDataset(),
		now:  time.Now,
	}
}

func (s *Store) nowUTC() time.Time {
	return s.now().UTC()
}

// SetSectionCount seeds the content-section count for a task. Tests use this
// to mark tasks as carrying user-authored content.
func (s *Store) SetSectionCount(taskID string, count int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.sections[taskID] = count
}

// ---- projects ----

func (s *Store) CreateProject(ctx context.Context, project *entity.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createProjectLocked(project)
}

func (s *Store) createProjectLocked(project *entity.Project) error {
	if _, exists := s.data.projects[project.ID]; exists {
		return api.NewValidationError("id", "project %s already exists", project.ID)
	}
	stamp(&project.CreatedAt, &project.ModifiedAt, s.nowUTC())
	s.data.seq++
	s.data.order[project.ID] = s.data.seq
	s.data.projects[project.ID] = project.Clone()
	return nil
}

func (s *Store) GetProject(ctx context.Context, id string) (*entity.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getProjectLocked(id)
}

func (s *Store) getProjectLocked(id string) (*entity.Project, error) {
	project, ok := s.data.projects[id]
	if !ok {
		return nil, api.NewProjectNotFoundError(id)
	}
	return project.Clone(), nil
}

func (s *Store) ListProjects(ctx context.Context, filter store.ProjectFilter) ([]*entity.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listProjectsLocked(filter)
}

func (s *Store) listProjectsLocked(filter store.ProjectFilter) ([]*entity.Project, error) {
	var out []*entity.Project
	for _, p := range s.data.projects {
		if filter.NameContains != "" && !containsFold(p.Name, filter.NameContains) {
			continue
		}
		if len(filter.Statuses) > 0 && !statusIn(p.Status, filter.Statuses) {
			continue
		}
		if len(filter.Tags) > 0 && !anyTagMatch(p.Tags, filter.Tags) {
			continue
		}
		out = append(out, p.Clone())
	}
	sortByCreation(s.data.order, out, func(p *entity.Project) (time.Time, string) { return p.CreatedAt, p.ID })
	return out, nil
}

func (s *Store) UpdateProject(ctx context.Context, project *entity.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateProjectLocked(project)
}

func (s *Store) updateProjectLocked(project *entity.Project) error {
	existing, ok := s.data.projects[project.ID]
	if !ok {
		return api.NewProjectNotFoundError(project.ID)
	}
	updated := project.Clone()
	updated.CreatedAt = existing.CreatedAt
	updated.ModifiedAt = s.nowUTC()
	s.data.projects[project.ID] = updated
	return nil
}

func (s *Store) DeleteProject(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteProjectLocked(id)
}

func (s *Store) deleteProjectLocked(id string) error {
	if _, ok := s.data.projects[id]; !ok {
		return api.NewProjectNotFoundError(id)
	}
	for featureID, f := range s.data.features {
		if f.ProjectID != nil && *f.ProjectID == id {
			if err := s.deleteFeatureLocked(featureID); err != nil {
				return err
			}
		}
	}
	delete(s.data.projects, id)
	delete(s.data.transitions, id)
	delete(s.data.order, id)
	return nil
}

// ---- features ----

func (s *Store) CreateFeature(ctx context.Context, feature *entity.Feature) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createFeatureLocked(feature)
}

func (s *Store) createFeatureLocked(feature *entity.Feature) error {
	if _, exists := s.data.features[feature.ID]; exists {
		return api.NewValidationError("id", "feature %s already exists", feature.ID)
	}
	if feature.ProjectID != nil {
		if _, ok := s.data.projects[*feature.ProjectID]; !ok {
			return api.NewProjectNotFoundError(*feature.ProjectID)
		}
	}
	stamp(&feature.CreatedAt, &feature.ModifiedAt, s.nowUTC())
	s.data.seq++
	s.data.order[feature.ID] = s.data.seq
	s.data.features[feature.ID] = feature.Clone()
	return nil
}

func (s *Store) GetFeature(ctx context.Context, id string) (*entity.Feature, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getFeatureLocked(id)
}

func (s *Store) getFeatureLocked(id string) (*entity.Feature, error) {
	feature, ok := s.data.features[id]
	if !ok {
		return nil, api.NewFeatureNotFoundError(id)
	}
	return feature.Clone(), nil
}

func (s *Store) ListFeatures(ctx context.Context, filter store.FeatureFilter) ([]*entity.Feature, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listFeaturesLocked(filter)
}

func (s *Store) listFeaturesLocked(filter store.FeatureFilter) ([]*entity.Feature, error) {
	var out []*entity.Feature
	for _, f := range s.data.features {
		if filter.ProjectID != nil && (f.ProjectID == nil || *f.ProjectID != *filter.ProjectID) {
			continue
		}
		if filter.NameContains != "" && !containsFold(f.Name, filter.NameContains) {
			continue
		}
		if len(filter.Statuses) > 0 && !statusIn(f.Status, filter.Statuses) {
			continue
		}
		if len(filter.Tags) > 0 && !anyTagMatch(f.Tags, filter.Tags) {
			continue
		}
		if filter.Priority != nil && f.Priority != *filter.Priority {
			continue
		}
		out = append(out, f.Clone())
	}
	sortByCreation(s.data.order, out, func(f *entity.Feature) (time.Time, string) { return f.CreatedAt, f.ID })
	return out, nil
}

func (s *Store) UpdateFeature(ctx context.Context, feature *entity.Feature) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateFeatureLocked(feature)
}

func (s *Store) updateFeatureLocked(feature *entity.Feature) error {
	existing, ok := s.data.features[feature.ID]
	if !ok {
		return api.NewFeatureNotFoundError(feature.ID)
	}
	updated := feature.Clone()
	updated.CreatedAt = existing.CreatedAt
	updated.ModifiedAt = s.nowUTC()
	s.data.features[feature.ID] = updated
	return nil
}

func (s *Store) DeleteFeature(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteFeatureLocked(id)
}

func (s *Store) deleteFeatureLocked(id string) error {
	if _, ok := s.data.features[id]; !ok {
		return api.NewFeatureNotFoundError(id)
	}
	for taskID, t := range s.data.tasks {
		if t.FeatureID != nil && *t.FeatureID == id {
			if err := s.deleteTaskLocked(taskID); err != nil {
				return err
			}
		}
	}
	delete(s.data.features, id)
	delete(s.data.transitions, id)
	delete(s.data.order, id)
	return nil
}

// ---- tasks ----

func (s *Store) CreateTask(ctx context.Context, task *entity.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createTaskLocked(task)
}

func (s *Store) createTaskLocked(task *entity.Task) error {
	if _, exists := s.data.tasks[task.ID]; exists {
		return api.NewValidationError("id", "task %s already exists", task.ID)
	}
	if task.FeatureID != nil {
		if _, ok := s.data.features[*task.FeatureID]; !ok {
			return api.NewFeatureNotFoundError(*task.FeatureID)
		}
	}
	stamp(&task.CreatedAt, &task.ModifiedAt, s.nowUTC())
	s.data.seq++
	s.data.order[task.ID] = s.data.seq
	s.data.tasks[task.ID] = task.Clone()
	return nil
}

func (s *Store) GetTask(ctx context.Context, id string) (*entity.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getTaskLocked(id)
}

func (s *Store) getTaskLocked(id string) (*entity.Task, error) {
	task, ok := s.data.tasks[id]
	if !ok {
		return nil, api.NewTaskNotFoundError(id)
	}
	return task.Clone(), nil
}

func (s *Store) ListTasks(ctx context.Context, filter store.TaskFilter) ([]*entity.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listTasksLocked(filter)
}

func (s *Store) listTasksLocked(filter store.TaskFilter) ([]*entity.Task, error) {
	var out []*entity.Task
	for _, t := range s.data.tasks {
		if filter.FeatureID != nil && (t.FeatureID == nil || *t.FeatureID != *filter.FeatureID) {
			continue
		}
		if filter.ProjectID != nil && !s.taskInProjectLocked(t, *filter.ProjectID) {
			continue
		}
		if filter.TitleContains != "" && !containsFold(t.Title, filter.TitleContains) {
			continue
		}
		if len(filter.Statuses) > 0 && !statusIn(t.Status, filter.Statuses) {
			continue
		}
		if len(filter.Tags) > 0 && !anyTagMatch(t.Tags, filter.Tags) {
			continue
		}
		if filter.Priority != nil && t.Priority != *filter.Priority {
			continue
		}
		out = append(out, t.Clone())
	}
	sortByCreation(s.data.order, out, func(t *entity.Task) (time.Time, string) { return t.CreatedAt, t.ID })
	return out, nil
}

func (s *Store) taskInProjectLocked(task *entity.Task, projectID string) bool {
	if task.FeatureID == nil {
		return false
	}
	feature, ok := s.data.features[*task.FeatureID]
	if !ok || feature.ProjectID == nil {
		return false
	}
	return *feature.ProjectID == projectID
}

func (s *Store) UpdateTask(ctx context.Context, task *entity.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateTaskLocked(task)
}

func (s *Store) updateTaskLocked(task *entity.Task) error {
	existing, ok := s.data.tasks[task.ID]
	if !ok {
		return api.NewTaskNotFoundError(task.ID)
	}
	updated := task.Clone()
	updated.CreatedAt = existing.CreatedAt
	updated.ModifiedAt = s.nowUTC()
	s.data.tasks[task.ID] = updated
	return nil
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteTaskLocked(id)
}

func (s *Store) deleteTaskLocked(id string) error {
	if _, ok := s.data.tasks[id]; !ok {
		return api.NewTaskNotFoundError(id)
	}
	// Edges are owned jointly by their endpoints: either endpoint going away
	// removes the edge.
	for depID, dep := range s.data.dependencies {
		if dep.FromItemID == id || dep.ToItemID == id {
			delete(s.data.dependencies, depID)
			delete(s.data.order, depID)
		}
	}
	delete(s.data.tasks, id)
	delete(s.data.transitions, id)
	delete(s.data.sections, id)
	delete(s.data.order, id)
	return nil
}

// ---- dependencies ----

func (s *Store) CreateDependency(ctx context.Context, dep *entity.Dependency) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createDependencyLocked(dep)
}

func (s *Store) createDependencyLocked(dep *entity.Dependency) error {
	if _, exists := s.data.dependencies[dep.ID]; exists {
		return api.NewValidationError("id", "dependency %s already exists", dep.ID)
	}
	if _, ok := s.data.tasks[dep.FromItemID]; !ok {
		return api.NewTaskNotFoundError(dep.FromItemID)
	}
	if _, ok := s.data.tasks[dep.ToItemID]; !ok {
		return api.NewTaskNotFoundError(dep.ToItemID)
	}
	for _, existing := range s.data.dependencies {
		if existing.FromItemID == dep.FromItemID && existing.ToItemID == dep.ToItemID && existing.Type == dep.Type {
			return api.NewValidationError("dependency", "%s %s %s already exists",
				dep.FromItemID, dep.Type, dep.ToItemID)
		}
	}
	if dep.CreatedAt.IsZero() {
		dep.CreatedAt = s.nowUTC()
	}
	s.data.seq++
	s.data.order[dep.ID] = s.data.seq
	s.data.dependencies[dep.ID] = dep.Clone()
	return nil
}

func (s *Store) GetDependency(ctx context.Context, id string) (*entity.Dependency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getDependencyLocked(id)
}

func (s *Store) getDependencyLocked(id string) (*entity.Dependency, error) {
	dep, ok := s.data.dependencies[id]
	if !ok {
		return nil, api.NewDependencyNotFoundError(id)
	}
	return dep.Clone(), nil
}

func (s *Store) DeleteDependency(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteDependencyLocked(id)
}

func (s *Store) deleteDependencyLocked(id string) error {
	if _, ok := s.data.dependencies[id]; !ok {
		return api.NewDependencyNotFoundError(id)
	}
	delete(s.data.dependencies, id)
	delete(s.data.order, id)
	return nil
}

func (s *Store) ListDependencies(ctx context.Context, taskID string, direction store.Direction) ([]*entity.Dependency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listDependenciesLocked(taskID, direction, false)
}

func (s *Store) FindBlockingEdges(ctx context.Context, taskID string, direction store.Direction) ([]*entity.Dependency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listDependenciesLocked(taskID, direction, true)
}

func (s *Store) listDependenciesLocked(taskID string, direction store.Direction, blockingOnly bool) ([]*entity.Dependency, error) {
	var out []*entity.Dependency
	for _, dep := range s.data.dependencies {
		if blockingOnly && !dep.Type.Blocking() {
			continue
		}
		incoming := dep.ToItemID == taskID
		outgoing := dep.FromItemID == taskID
		switch direction {
		case store.DirectionIncoming:
			if !incoming {
				continue
			}
		case store.DirectionOutgoing:
			if !outgoing {
				continue
			}
		default:
			if !incoming && !outgoing {
				continue
			}
		}
		out = append(out, dep.Clone())
	}
	sortByCreation(s.data.order, out, func(d *entity.Dependency) (time.Time, string) { return d.CreatedAt, d.ID })
	return out, nil
}

// ---- role transitions ----

func (s *Store) AppendRoleTransition(ctx context.Context, record *entity.RoleTransition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendRoleTransitionLocked(record)
}

func (s *Store) appendRoleTransitionLocked(record *entity.RoleTransition) error {
	if record.ID == "" {
		record.ID = entity.NewID()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = s.nowUTC()
	}
	s.data.transitions[record.EntityID] = append(s.data.transitions[record.EntityID], record.Clone())
	return nil
}

func (s *Store) ListRoleTransitions(ctx context.Context, entityID string) ([]*entity.RoleTransition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listRoleTransitionsLocked(entityID)
}

func (s *Store) listRoleTransitionsLocked(entityID string) ([]*entity.RoleTransition, error) {
	records := s.data.transitions[entityID]
	out := make([]*entity.RoleTransition, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out, nil
}

// ---- sections ----

func (s *Store) CountSections(ctx context.Context, taskID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.sections[taskID], nil
}

// ---- transactions ----

// RunInTransaction serializes against every other mutation, snapshots the
// dataset, and restores the snapshot when fn fails or the context is
// cancelled before commit.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	err := fn(&txStore{s: s})
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

// txStore is the handle passed to transaction functions. The enclosing
// RunInTransaction already holds the write lock, so every method forwards to
// the unlocked variants. Nested RunInTransaction joins the open transaction.
type txStore struct {
	s *Store
}

func (t *txStore) CreateProject(ctx context.Context, p *entity.Project) error {
	return t.s.createProjectLocked(p)
}
func (t *txStore) GetProject(ctx context.Context, id string) (*entity.Project, error) {
	return t.s.getProjectLocked(id)
}
func (t *txStore) ListProjects(ctx context.Context, f store.ProjectFilter) ([]*entity.Project, error) {
	return t.s.listProjectsLocked(f)
}
func (t *txStore) UpdateProject(ctx context.Context, p *entity.Project) error {
	return t.s.updateProjectLocked(p)
}
func (t *txStore) DeleteProject(ctx context.Context, id string) error {
	return t.s.deleteProjectLocked(id)
}

func (t *txStore) CreateFeature(ctx context.Context, f *entity.Feature) error {
	return t.s.createFeatureLocked(f)
}
func (t *txStore) GetFeature(ctx context.Context, id string) (*entity.Feature, error) {
	return t.s.getFeatureLocked(id)
}
func (t *txStore) ListFeatures(ctx context.Context, f store.FeatureFilter) ([]*entity.Feature, error) {
	return t.s.listFeaturesLocked(f)
}
func (t *txStore) UpdateFeature(ctx context.Context, f *entity.Feature) error {
	return t.s.updateFeatureLocked(f)
}
func (t *txStore) DeleteFeature(ctx context.Context, id string) error {
	return t.s.deleteFeatureLocked(id)
}

func (t *txStore) CreateTask(ctx context.Context, tk *entity.Task) error {
	return t.s.createTaskLocked(tk)
}
func (t *txStore) GetTask(ctx context.Context, id string) (*entity.Task, error) {
	return t.s.getTaskLocked(id)
}
func (t *txStore) ListTasks(ctx context.Context, f store.TaskFilter) ([]*entity.Task, error) {
	return t.s.listTasksLocked(f)
}
func (t *txStore) UpdateTask(ctx context.Context, tk *entity.Task) error {
	return t.s.updateTaskLocked(tk)
}
func (t *txStore) DeleteTask(ctx context.Context, id string) error {
	return t.s.deleteTaskLocked(id)
}

func (t *txStore) CreateDependency(ctx context.Context, d *entity.Dependency) error {
	return t.s.createDependencyLocked(d)
}
func (t *txStore) GetDependency(ctx context.Context, id string) (*entity.Dependency, error) {
	return t.s.getDependencyLocked(id)
}
func (t *txStore) DeleteDependency(ctx context.Context, id string) error {
	return t.s.deleteDependencyLocked(id)
}
func (t *txStore) ListDependencies(ctx context.Context, taskID string, d store.Direction) ([]*entity.Dependency, error) {
	return t.s.listDependenciesLocked(taskID, d, false)
}
func (t *txStore) FindBlockingEdges(ctx context.Context, taskID string, d store.Direction) ([]*entity.Dependency, error) {
	return t.s.listDependenciesLocked(taskID, d, true)
}

func (t *txStore) AppendRoleTransition(ctx context.Context, r *entity.RoleTransition) error {
	return t.s.appendRoleTransitionLocked(r)
}
func (t *txStore) ListRoleTransitions(ctx context.Context, entityID string) ([]*entity.RoleTransition, error) {
	return t.s.listRoleTransitionsLocked(entityID)
}

func (t *txStore) CountSections(ctx context.Context, taskID string) (int, error) {
	return t.s.data.sections[taskID], nil
}

func (t *txStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	return fn(t)
}

// ---- helpers ----

func stamp(createdAt, modifiedAt *time.Time, now time.Time) {
	if createdAt.IsZero() {
		*createdAt = now
	}
	if modifiedAt.IsZero() {
		*modifiedAt = *createdAt
	}
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func statusIn(status string, set []string) bool {
	for _, s := range set {
		if strings.EqualFold(s, status) {
			return true
		}
	}
	return false
}

func anyTagMatch(tags, wanted []string) bool {
	for _, tag := range tags {
		for _, w := range wanted {
			if strings.EqualFold(tag, w) {
				return true
			}
		}
	}
	return false
}

// sortByCreation orders entities by CreatedAt, breaking timestamp ties with
// the insertion sequence so creation order is stable even when clocks
// collide.
func sortByCreation[T any](order map[string]uint64, items []T, key func(T) (time.Time, string)) {
	sort.SliceStable(items, func(i, j int) bool {
		ti, idi := key(items[i])
		tj, idj := key(items[j])
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return order[idi] < order[idj]
	})
}
