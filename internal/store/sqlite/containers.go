package sqlite

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"roster/internal/api"
	"roster/internal/entity"
	"roster/internal/store"
)

// ---- projects ----

func (s *Store) CreateProject(ctx context.Context, project *entity.Project) error {
	exists, err := s.rowExists(ctx, &projectRow{}, project.ID)
	if err != nil {
		return err
	}
	if exists {
		return api.NewValidationError("id", "project %s already exists", project.ID)
	}
	stamp(&project.CreatedAt, &project.ModifiedAt, s.nowUTC())
	if err := s.conn(ctx).Create(projectToRow(project)).Error; err != nil {
		return fmt.Errorf("failed to create project %s: %w", project.ID, err)
	}
	return nil
}

func (s *Store) GetProject(ctx context.Context, id string) (*entity.Project, error) {
	var row projectRow
	err := s.conn(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, api.NewProjectNotFoundError(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load project %s: %w", id, err)
	}
	return rowToProject(&row), nil
}

func (s *Store) ListProjects(ctx context.Context, filter store.ProjectFilter) ([]*entity.Project, error) {
	db := s.conn(ctx).Model(&projectRow{})
	if len(filter.Statuses) > 0 {
		db = db.Where("LOWER(status) IN ?", lowerAll(filter.Statuses))
	}
	var rows []projectRow
	if err := db.Order("created_at, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	out := make([]*entity.Project, 0, len(rows))
	for i := range rows {
		p := rowToProject(&rows[i])
		if filter.NameContains != "" && !containsFold(p.Name, filter.NameContains) {
			continue
		}
		if len(filter.Tags) > 0 && !anyTagMatch(p.Tags, filter.Tags) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *Store) UpdateProject(ctx context.Context, project *entity.Project) error {
	var existing projectRow
	err := s.conn(ctx).First(&existing, "id = ?", project.ID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return api.NewProjectNotFoundError(project.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to load project %s: %w", project.ID, err)
	}
	row := projectToRow(project)
	row.CreatedAt = existing.CreatedAt
	row.ModifiedAt = s.nowUTC()
	if err := s.conn(ctx).Save(row).Error; err != nil {
		return fmt.Errorf("failed to update project %s: %w", project.ID, err)
	}
	return nil
}

func (s *Store) DeleteProject(ctx context.Context, id string) error {
	return s.transact(ctx, func(tx *Store) error {
		exists, err := tx.rowExists(ctx, &projectRow{}, id)
		if err != nil {
			return err
		}
		if !exists {
			return api.NewProjectNotFoundError(id)
		}
		var featureIDs []string
		if err := tx.conn(ctx).Model(&featureRow{}).Where("project_id = ?", id).
			Order("created_at, id").Pluck("id", &featureIDs).Error; err != nil {
			return fmt.Errorf("failed to list features of project %s: %w", id, err)
		}
		for _, featureID := range featureIDs {
			if err := tx.deleteFeature(ctx, featureID); err != nil {
				return err
			}
		}
		if err := tx.conn(ctx).Delete(&projectRow{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete project %s: %w", id, err)
		}
		return tx.deleteTransitions(ctx, id)
	})
}

// ---- features ----

func (s *Store) CreateFeature(ctx context.Context, feature *entity.Feature) error {
	exists, err := s.rowExists(ctx, &featureRow{}, feature.ID)
	if err != nil {
		return err
	}
	if exists {
		return api.NewValidationError("id", "feature %s already exists", feature.ID)
	}
	if feature.ProjectID != nil {
		parentOK, err := s.rowExists(ctx, &projectRow{}, *feature.ProjectID)
		if err != nil {
			return err
		}
		if !parentOK {
			return api.NewProjectNotFoundError(*feature.ProjectID)
		}
	}
	stamp(&feature.CreatedAt, &feature.ModifiedAt, s.nowUTC())
	if err := s.conn(ctx).Create(featureToRow(feature)).Error; err != nil {
		return fmt.Errorf("failed to create feature %s: %w", feature.ID, err)
	}
	return nil
}

func (s *Store) GetFeature(ctx context.Context, id string) (*entity.Feature, error) {
	var row featureRow
	err := s.conn(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, api.NewFeatureNotFoundError(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load feature %s: %w", id, err)
	}
	return rowToFeature(&row), nil
}

func (s *Store) ListFeatures(ctx context.Context, filter store.FeatureFilter) ([]*entity.Feature, error) {
	db := s.conn(ctx).Model(&featureRow{})
	if filter.ProjectID != nil {
		db = db.Where("project_id = ?", *filter.ProjectID)
	}
	if filter.Priority != nil {
		db = db.Where("priority = ?", string(*filter.Priority))
	}
	if len(filter.Statuses) > 0 {
		db = db.Where("LOWER(status) IN ?", lowerAll(filter.Statuses))
	}
	var rows []featureRow
	if err := db.Order("created_at, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list features: %w", err)
	}
	out := make([]*entity.Feature, 0, len(rows))
	for i := range rows {
		f := rowToFeature(&rows[i])
		if filter.NameContains != "" && !containsFold(f.Name, filter.NameContains) {
			continue
		}
		if len(filter.Tags) > 0 && !anyTagMatch(f.Tags, filter.Tags) {
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

func (s *Store) UpdateFeature(ctx context.Context, feature *entity.Feature) error {
	var existing featureRow
	err := s.conn(ctx).First(&existing, "id = ?", feature.ID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return api.NewFeatureNotFoundError(feature.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to load feature %s: %w", feature.ID, err)
	}
	row := featureToRow(feature)
	row.CreatedAt = existing.CreatedAt
	row.ModifiedAt = s.nowUTC()
	if err := s.conn(ctx).Save(row).Error; err != nil {
		return fmt.Errorf("failed to update feature %s: %w", feature.ID, err)
	}
	return nil
}

func (s *Store) DeleteFeature(ctx context.Context, id string) error {
	return s.transact(ctx, func(tx *Store) error {
		return tx.deleteFeature(ctx, id)
	})
}

// deleteFeature assumes the receiver is a transaction handle.
func (s *Store) deleteFeature(ctx context.Context, id string) error {
	exists, err := s.rowExists(ctx, &featureRow{}, id)
	if err != nil {
		return err
	}
	if !exists {
		return api.NewFeatureNotFoundError(id)
	}
	var taskIDs []string
	if err := s.conn(ctx).Model(&taskRow{}).Where("feature_id = ?", id).
		Order("created_at, id").Pluck("id", &taskIDs).Error; err != nil {
		return fmt.Errorf("failed to list tasks of feature %s: %w", id, err)
	}
	for _, taskID := range taskIDs {
		if err := s.deleteTask(ctx, taskID); err != nil {
			return err
		}
	}
	if err := s.conn(ctx).Delete(&featureRow{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete feature %s: %w", id, err)
	}
	return s.deleteTransitions(ctx, id)
}

// ---- tasks ----

func (s *Store) CreateTask(ctx context.Context, task *entity.Task) error {
	exists, err := s.rowExists(ctx, &taskRow{}, task.ID)
	if err != nil {
		return err
	}
	if exists {
		return api.NewValidationError("id", "task %s already exists", task.ID)
	}
	if task.FeatureID != nil {
		parentOK, err := s.rowExists(ctx, &featureRow{}, *task.FeatureID)
		if err != nil {
			return err
		}
		if !parentOK {
			return api.NewFeatureNotFoundError(*task.FeatureID)
		}
	}
	stamp(&task.CreatedAt, &task.ModifiedAt, s.nowUTC())
	if err := s.conn(ctx).Create(taskToRow(task)).Error; err != nil {
		return fmt.Errorf("failed to create task %s: %w", task.ID, err)
	}
	return nil
}

func (s *Store) GetTask(ctx context.Context, id string) (*entity.Task, error) {
	var row taskRow
	err := s.conn(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, api.NewTaskNotFoundError(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load task %s: %w", id, err)
	}
	return rowToTask(&row), nil
}

func (s *Store) ListTasks(ctx context.Context, filter store.TaskFilter) ([]*entity.Task, error) {
	db := s.conn(ctx).Model(&taskRow{})
	if filter.FeatureID != nil {
		db = db.Where("feature_id = ?", *filter.FeatureID)
	}
	if filter.ProjectID != nil {
		sub := s.conn(ctx).Model(&featureRow{}).Select("id").Where("project_id = ?", *filter.ProjectID)
		db = db.Where("feature_id IN (?)", sub)
	}
	if filter.Priority != nil {
		db = db.Where("priority = ?", string(*filter.Priority))
	}
	if len(filter.Statuses) > 0 {
		db = db.Where("LOWER(status) IN ?", lowerAll(filter.Statuses))
	}
	var rows []taskRow
	if err := db.Order("created_at, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	out := make([]*entity.Task, 0, len(rows))
	for i := range rows {
		t := rowToTask(&rows[i])
		if filter.TitleContains != "" && !containsFold(t.Title, filter.TitleContains) {
			continue
		}
		if len(filter.Tags) > 0 && !anyTagMatch(t.Tags, filter.Tags) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *Store) UpdateTask(ctx context.Context, task *entity.Task) error {
	var existing taskRow
	err := s.conn(ctx).First(&existing, "id = ?", task.ID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return api.NewTaskNotFoundError(task.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to load task %s: %w", task.ID, err)
	}
	row := taskToRow(task)
	row.CreatedAt = existing.CreatedAt
	row.ModifiedAt = s.nowUTC()
	if err := s.conn(ctx).Save(row).Error; err != nil {
		return fmt.Errorf("failed to update task %s: %w", task.ID, err)
	}
	return nil
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	return s.transact(ctx, func(tx *Store) error {
		return tx.deleteTask(ctx, id)
	})
}

// deleteTask assumes the receiver is a transaction handle. Edges are owned
// jointly by their endpoints: either endpoint going away removes the edge.
func (s *Store) deleteTask(ctx context.Context, id string) error {
	exists, err := s.rowExists(ctx, &taskRow{}, id)
	if err != nil {
		return err
	}
	if !exists {
		return api.NewTaskNotFoundError(id)
	}
	if err := s.conn(ctx).Delete(&dependencyRow{}, "from_item_id = ? OR to_item_id = ?", id, id).Error; err != nil {
		return fmt.Errorf("failed to delete dependencies of task %s: %w", id, err)
	}
	if err := s.conn(ctx).Delete(&sectionRow{}, "task_id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete sections of task %s: %w", id, err)
	}
	if err := s.conn(ctx).Delete(&taskRow{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete task %s: %w", id, err)
	}
	return s.deleteTransitions(ctx, id)
}

// ---- shared row helpers ----

func (s *Store) rowExists(ctx context.Context, model interface{}, id string) (bool, error) {
	var n int64
	if err := s.conn(ctx).Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, fmt.Errorf("failed to look up row %s: %w", id, err)
	}
	return n > 0, nil
}

func (s *Store) deleteTransitions(ctx context.Context, entityID string) error {
	if err := s.conn(ctx).Delete(&roleTransitionRow{}, "entity_id = ?", entityID).Error; err != nil {
		return fmt.Errorf("failed to delete role transitions of %s: %w", entityID, err)
	}
	return nil
}
