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

// ---- dependencies ----

func (s *Store) CreateDependency(ctx context.Context, dep *entity.Dependency) error {
	return s.transact(ctx, func(tx *Store) error {
		exists, err := tx.rowExists(ctx, &dependencyRow{}, dep.ID)
		if err != nil {
			return err
		}
		if exists {
			return api.NewValidationError("id", "dependency %s already exists", dep.ID)
		}
		for _, endpoint := range []string{dep.FromItemID, dep.ToItemID} {
			taskOK, err := tx.rowExists(ctx, &taskRow{}, endpoint)
			if err != nil {
				return err
			}
			if !taskOK {
				return api.NewTaskNotFoundError(endpoint)
			}
		}
		var n int64
		err = tx.conn(ctx).Model(&dependencyRow{}).
			Where("from_item_id = ? AND to_item_id = ? AND type = ?",
				dep.FromItemID, dep.ToItemID, string(dep.Type)).
			Count(&n).Error
		if err != nil {
			return fmt.Errorf("failed to check dependency uniqueness: %w", err)
		}
		if n > 0 {
			return api.NewValidationError("dependency", "%s %s %s already exists",
				dep.FromItemID, dep.Type, dep.ToItemID)
		}
		if dep.CreatedAt.IsZero() {
			dep.CreatedAt = tx.nowUTC()
		}
		if err := tx.conn(ctx).Create(dependencyToRow(dep)).Error; err != nil {
			return fmt.Errorf("failed to create dependency %s: %w", dep.ID, err)
		}
		return nil
	})
}

func (s *Store) GetDependency(ctx context.Context, id string) (*entity.Dependency, error) {
	var row dependencyRow
	err := s.conn(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, api.NewDependencyNotFoundError(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load dependency %s: %w", id, err)
	}
	return rowToDependency(&row), nil
}

func (s *Store) DeleteDependency(ctx context.Context, id string) error {
	exists, err := s.rowExists(ctx, &dependencyRow{}, id)
	if err != nil {
		return err
	}
	if !exists {
		return api.NewDependencyNotFoundError(id)
	}
	if err := s.conn(ctx).Delete(&dependencyRow{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete dependency %s: %w", id, err)
	}
	return nil
}

func (s *Store) ListDependencies(ctx context.Context, taskID string, direction store.Direction) ([]*entity.Dependency, error) {
	return s.queryDependencies(ctx, taskID, direction, false)
}

func (s *Store) FindBlockingEdges(ctx context.Context, taskID string, direction store.Direction) ([]*entity.Dependency, error) {
	return s.queryDependencies(ctx, taskID, direction, true)
}

func (s *Store) queryDependencies(ctx context.Context, taskID string, direction store.Direction, blockingOnly bool) ([]*entity.Dependency, error) {
	db := s.conn(ctx).Model(&dependencyRow{})
	switch direction {
	case store.DirectionIncoming:
		db = db.Where("to_item_id = ?", taskID)
	case store.DirectionOutgoing:
		db = db.Where("from_item_id = ?", taskID)
	default:
		db = db.Where("from_item_id = ? OR to_item_id = ?", taskID, taskID)
	}
	if blockingOnly {
		db = db.Where("type IN ?", []string{
			string(entity.DependencyBlocks),
			string(entity.DependencyIsBlockedBy),
		})
	}
	var rows []dependencyRow
	if err := db.Order("created_at, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list dependencies of task %s: %w", taskID, err)
	}
	out := make([]*entity.Dependency, 0, len(rows))
	for i := range rows {
		out = append(out, rowToDependency(&rows[i]))
	}
	return out, nil
}

// ---- role transitions ----

func (s *Store) AppendRoleTransition(ctx context.Context, record *entity.RoleTransition) error {
	if record.ID == "" {
		record.ID = entity.NewID()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = s.nowUTC()
	}
	if err := s.conn(ctx).Create(transitionToRow(record)).Error; err != nil {
		return fmt.Errorf("failed to append role transition for %s: %w", record.EntityID, err)
	}
	return nil
}

func (s *Store) ListRoleTransitions(ctx context.Context, entityID string) ([]*entity.RoleTransition, error) {
	var rows []roleTransitionRow
	err := s.conn(ctx).Where("entity_id = ?", entityID).
		Order("created_at, id").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list role transitions of %s: %w", entityID, err)
	}
	out := make([]*entity.RoleTransition, 0, len(rows))
	for i := range rows {
		out = append(out, rowToTransition(&rows[i]))
	}
	return out, nil
}

// ---- sections ----

func (s *Store) CountSections(ctx context.Context, taskID string) (int, error) {
	var n int64
	err := s.conn(ctx).Model(&sectionRow{}).Where("task_id = ?", taskID).Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count sections of task %s: %w", taskID, err)
	}
	return int(n), nil
}

// SetSectionCount replaces the content sections of a task with count
// placeholder rows. Tests use this to mark tasks as carrying user-authored
// content; the content substrate writes real rows in production.
func (s *Store) SetSectionCount(ctx context.Context, taskID string, count int) error {
	return s.transact(ctx, func(tx *Store) error {
		if err := tx.conn(ctx).Delete(&sectionRow{}, "task_id = ?", taskID).Error; err != nil {
			return fmt.Errorf("failed to clear sections of task %s: %w", taskID, err)
		}
		for i := 0; i < count; i++ {
			row := &sectionRow{
				ID:        entity.NewID(),
				TaskID:    taskID,
				Title:     fmt.Sprintf("section %d", i+1),
				CreatedAt: tx.nowUTC(),
			}
			if err := tx.conn(ctx).Create(row).Error; err != nil {
				return fmt.Errorf("failed to seed section for task %s: %w", taskID, err)
			}
		}
		return nil
	})
}
