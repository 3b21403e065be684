package service

import (
	"context"
	"errors"
	"fmt"

	"bitwise74/todo-api/internal/model"
	"bitwise74/todo-api/pkg/validators"

	"gorm.io/gorm"
)

// LastPage can be passed to Page instead of a page number
const LastPage = -1

// Tasks only ever touches tasks of the profile it's given. A task owned by
// somebody else looks exactly like a missing one.
type Tasks struct {
	db *gorm.DB
}

func NewTasks(db *gorm.DB) *Tasks {
	return &Tasks{db: db}
}

type TaskUpdate struct {
	Title    *string
	Complete *bool
}

type TaskPage struct {
	Tasks []model.Task
	Page  int
	Pages int
	Total int64
}

func (t *Tasks) owned(ctx context.Context, profileID uint) *gorm.DB {
	return t.db.WithContext(ctx).Model(&model.Task{}).Where("profile_id = ?", profileID)
}

func (t *Tasks) List(ctx context.Context, profileID uint) ([]model.Task, error) {
	var tasks []model.Task
	if err := t.owned(ctx, profileID).Order("position ASC, id ASC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("failed to list tasks, %w", err)
	}

	return tasks, nil
}

// Page returns one page of List. An empty list still has a first page, any
// other page past the end is ErrNotFound.
func (t *Tasks) Page(ctx context.Context, profileID uint, page, size int) (*TaskPage, error) {
	if size <= 0 {
		return nil, errors.New("page size must be bigger than 0")
	}

	var total int64
	if err := t.owned(ctx, profileID).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count tasks, %w", err)
	}

	pages := max(1, int((total+int64(size)-1)/int64(size)))
	if page == LastPage {
		page = pages
	}

	if page < 1 || page > pages {
		return nil, ErrNotFound
	}

	var tasks []model.Task
	if err := t.owned(ctx, profileID).
		Order("position ASC, id ASC").
		Limit(size).
		Offset((page - 1) * size).
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("failed to list tasks, %w", err)
	}

	return &TaskPage{Tasks: tasks, Page: page, Pages: pages, Total: total}, nil
}

// Create appends a task after every existing one
func (t *Tasks) Create(ctx context.Context, profileID uint, title string) (*model.Task, error) {
	if err := validators.TitleValidator(title); err != nil {
		return nil, invalidField("title", err)
	}

	task := model.Task{ProfileID: profileID, Title: title}

	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var last int64
		if err := tx.Model(&model.Task{}).
			Where("profile_id = ?", profileID).
			Select("COALESCE(MAX(position), 0)").
			Scan(&last).Error; err != nil {
			return err
		}

		task.Position = last + 1
		return tx.Create(&task).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create task, %w", err)
	}

	return &task, nil
}

func (t *Tasks) Get(ctx context.Context, profileID, id uint) (*model.Task, error) {
	var task model.Task
	if err := t.owned(ctx, profileID).Where("id = ?", id).First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("failed to load task, %w", err)
	}

	return &task, nil
}

func (t *Tasks) Update(ctx context.Context, profileID, id uint, u TaskUpdate) (*model.Task, error) {
	updates := map[string]any{}

	if u.Title != nil {
		if err := validators.TitleValidator(*u.Title); err != nil {
			return nil, invalidField("title", err)
		}

		updates["title"] = *u.Title
	}

	if u.Complete != nil {
		updates["complete"] = *u.Complete
	}

	task, err := t.Get(ctx, profileID, id)
	if err != nil {
		return nil, err
	}

	if len(updates) == 0 {
		return task, nil
	}

	if err := t.db.WithContext(ctx).Model(task).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update task, %w", err)
	}

	return t.Get(ctx, profileID, id)
}

// Delete leaves the positions of the remaining tasks untouched
func (t *Tasks) Delete(ctx context.Context, profileID, id uint) error {
	r := t.db.WithContext(ctx).
		Where("id = ? AND profile_id = ?", id, profileID).
		Delete(&model.Task{})
	if r.Error != nil {
		return fmt.Errorf("failed to delete task, %w", r.Error)
	}

	if r.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// MarkComplete is a no-op for tasks that are already complete
func (t *Tasks) MarkComplete(ctx context.Context, profileID, id uint) (*model.Task, error) {
	done := true
	return t.Update(ctx, profileID, id, TaskUpdate{Complete: &done})
}
