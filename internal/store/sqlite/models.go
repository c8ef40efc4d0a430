package sqlite

import (
	"encoding/json"
	"time"

	"roster/internal/entity"
)

// Row models are private to this package. The core works with
// entity.* values only; these structs exist so gorm has explicit column
// definitions to migrate, and the mappers below translate between the two
// representations.

// projectRow is the projects table schema.
type projectRow struct {
	ID         string    `gorm:"primaryKey;type:text"`
	Name       string    `gorm:"type:text;not null"`
	Summary    string    `gorm:"type:text"`
	Status     string    `gorm:"type:text;not null;index"`
	Tags       string    `gorm:"type:text"` // JSON array
	CreatedAt  time.Time `gorm:"index"`
	ModifiedAt time.Time
}

func (projectRow) TableName() string { return "projects" }

// featureRow is the features table schema.
type featureRow struct {
	ID                   string  `gorm:"primaryKey;type:text"`
	ProjectID            *string `gorm:"type:text;index"`
	Name                 string  `gorm:"type:text;not null"`
	Summary              string  `gorm:"type:text"`
	Description          string  `gorm:"type:text"`
	Status               string  `gorm:"type:text;not null;index"`
	Priority             string  `gorm:"type:text;not null"`
	Tags                 string  `gorm:"type:text"` // JSON array
	RequiresVerification bool
	CreatedAt            time.Time `gorm:"index"`
	ModifiedAt           time.Time
}

func (featureRow) TableName() string { return "features" }

// taskRow is the tasks table schema.
type taskRow struct {
	ID          string  `gorm:"primaryKey;type:text"`
	FeatureID   *string `gorm:"type:text;index"`
	Title       string  `gorm:"type:text;not null"`
	Summary     string  `gorm:"type:text"`
	Description string  `gorm:"type:text"`
	Status      string  `gorm:"type:text;not null;index"`
	Priority    string  `gorm:"type:text;not null"`
	Complexity  *int
	Tags        string    `gorm:"type:text"` // JSON array
	CreatedAt   time.Time `gorm:"index"`
	ModifiedAt  time.Time
}

func (taskRow) TableName() string { return "tasks" }

// dependencyRow is the dependencies table schema. The composite unique index
// enforces the one-edge-per-(from,to,type) invariant; the CHECK constraints
// pin the enumerations at the database level.
type dependencyRow struct {
	ID         string  `gorm:"primaryKey;type:text"`
	FromItemID string  `gorm:"type:text;not null;index;uniqueIndex:idx_dependency_edge"`
	ToItemID   string  `gorm:"type:text;not null;index;uniqueIndex:idx_dependency_edge"`
	Type       string  `gorm:"type:text;not null;uniqueIndex:idx_dependency_edge;check:type IN ('BLOCKS','IS_BLOCKED_BY','RELATES_TO')"`
	UnblockAt  *string `gorm:"type:text;check:unblock_at IN ('queue','work','review','terminal') OR unblock_at IS NULL"`
	CreatedAt  time.Time
}

func (dependencyRow) TableName() string { return "dependencies" }

// roleTransitionRow is the role_transitions audit table schema.
type roleTransitionRow struct {
	ID         string `gorm:"primaryKey;type:text"`
	EntityID   string `gorm:"type:text;not null;index"`
	EntityType string `gorm:"type:text;not null"`
	FromRole   string `gorm:"type:text;not null"`
	ToRole     string `gorm:"type:text;not null"`
	FromStatus string `gorm:"type:text"`
	ToStatus   string `gorm:"type:text"`
	Trigger    string `gorm:"type:text"`
	Summary    string `gorm:"type:text"`
	CreatedAt  time.Time
}

func (roleTransitionRow) TableName() string { return "role_transitions" }

// sectionRow is the sections table schema. The content substrate writes it;
// this store only counts rows for cleanup eligibility and cascades deletes.
type sectionRow struct {
	ID        string `gorm:"primaryKey;type:text"`
	TaskID    string `gorm:"type:text;not null;index"`
	Title     string `gorm:"type:text"`
	Content   string `gorm:"type:text"`
	CreatedAt time.Time
}

func (sectionRow) TableName() string { return "sections" }

// ---- mappers ----

func encodeTags(tags []string) string {
	if len(tags) == 0 {
		return "[]"
	}
	raw, err := json.Marshal(tags)
	if err != nil {
		return "[]"
	}
	return string(raw)
}

func decodeTags(raw string) []string {
	if raw == "" {
		return nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil
	}
	if len(tags) == 0 {
		return nil
	}
	return tags
}

func projectToRow(p *entity.Project) *projectRow {
	return &projectRow{
		ID:         p.ID,
		Name:       p.Name,
		Summary:    p.Summary,
		Status:     p.Status,
		Tags:       encodeTags(p.Tags),
		CreatedAt:  p.CreatedAt.UTC(),
		ModifiedAt: p.ModifiedAt.UTC(),
	}
}

func rowToProject(r *projectRow) *entity.Project {
	return &entity.Project{
		ID:         r.ID,
		Name:       r.Name,
		Summary:    r.Summary,
		Status:     r.Status,
		Tags:       decodeTags(r.Tags),
		CreatedAt:  r.CreatedAt.UTC(),
		ModifiedAt: r.ModifiedAt.UTC(),
	}
}

func featureToRow(f *entity.Feature) *featureRow {
	return &featureRow{
		ID:                   f.ID,
		ProjectID:            f.ProjectID,
		Name:                 f.Name,
		Summary:              f.Summary,
		Description:          f.Description,
		Status:               f.Status,
		Priority:             string(f.Priority),
		Tags:                 encodeTags(f.Tags),
		RequiresVerification: f.RequiresVerification,
		CreatedAt:            f.CreatedAt.UTC(),
		ModifiedAt:           f.ModifiedAt.UTC(),
	}
}

func rowToFeature(r *featureRow) *entity.Feature {
	return &entity.Feature{
		ID:                   r.ID,
		ProjectID:            r.ProjectID,
		Name:                 r.Name,
		Summary:              r.Summary,
		Description:          r.Description,
		Status:               r.Status,
		Priority:             entity.Priority(r.Priority),
		Tags:                 decodeTags(r.Tags),
		RequiresVerification: r.RequiresVerification,
		CreatedAt:            r.CreatedAt.UTC(),
		ModifiedAt:           r.ModifiedAt.UTC(),
	}
}

func taskToRow(t *entity.Task) *taskRow {
	return &taskRow{
		ID:          t.ID,
		FeatureID:   t.FeatureID,
		Title:       t.Title,
		Summary:     t.Summary,
		Description: t.Description,
		Status:      t.Status,
		Priority:    string(t.Priority),
		Complexity:  t.Complexity,
		Tags:        encodeTags(t.Tags),
		CreatedAt:   t.CreatedAt.UTC(),
		ModifiedAt:  t.ModifiedAt.UTC(),
	}
}

func rowToTask(r *taskRow) *entity.Task {
	return &entity.Task{
		ID:          r.ID,
		FeatureID:   r.FeatureID,
		Title:       r.Title,
		Summary:     r.Summary,
		Description: r.Description,
		Status:      r.Status,
		Priority:    entity.Priority(r.Priority),
		Complexity:  r.Complexity,
		Tags:        decodeTags(r.Tags),
		CreatedAt:   r.CreatedAt.UTC(),
		ModifiedAt:  r.ModifiedAt.UTC(),
	}
}

func dependencyToRow(d *entity.Dependency) *dependencyRow {
	var unblockAt *string
	if d.UnblockAt != nil {
		v := string(*d.UnblockAt)
		unblockAt = &v
	}
	return &dependencyRow{
		ID:         d.ID,
		FromItemID: d.FromItemID,
		ToItemID:   d.ToItemID,
		Type:       string(d.Type),
		UnblockAt:  unblockAt,
		CreatedAt:  d.CreatedAt.UTC(),
	}
}

func rowToDependency(r *dependencyRow) *entity.Dependency {
	var unblockAt *entity.Role
	if r.UnblockAt != nil {
		role := entity.Role(*r.UnblockAt)
		unblockAt = &role
	}
	return &entity.Dependency{
		ID:         r.ID,
		FromItemID: r.FromItemID,
		ToItemID:   r.ToItemID,
		Type:       entity.DependencyType(r.Type),
		UnblockAt:  unblockAt,
		CreatedAt:  r.CreatedAt.UTC(),
	}
}

func transitionToRow(t *entity.RoleTransition) *roleTransitionRow {
	return &roleTransitionRow{
		ID:         t.ID,
		EntityID:   t.EntityID,
		EntityType: string(t.EntityType),
		FromRole:   string(t.FromRole),
		ToRole:     string(t.ToRole),
		FromStatus: t.FromStatus,
		ToStatus:   t.ToStatus,
		Trigger:    t.Trigger,
		Summary:    t.Summary,
		CreatedAt:  t.CreatedAt.UTC(),
	}
}

func rowToTransition(r *roleTransitionRow) *entity.RoleTransition {
	return &entity.RoleTransition{
		ID:         r.ID,
		EntityID:   r.EntityID,
		EntityType: entity.ContainerType(r.EntityType),
		FromRole:   entity.Role(r.FromRole),
		ToRole:     entity.Role(r.ToRole),
		FromStatus: r.FromStatus,
		ToStatus:   r.ToStatus,
		Trigger:    r.Trigger,
		Summary:    r.Summary,
		CreatedAt:  r.CreatedAt.UTC(),
	}
}
