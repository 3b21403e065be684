package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateThenList(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	acc := e.seedAccount(t, "taskaccount00001", "a@example.com", true)

	created, err := e.tasks.Create(ctx, acc.Profile.ID, "Buy milk")
	require.NoError(t, err)

	tasks, err := e.tasks.List(ctx, acc.Profile.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, created.ID, tasks[0].ID)
	assert.Equal(t, "Buy milk", tasks[0].Title)
	assert.False(t, tasks[0].Complete)
}

func TestCreateValidatesTitle(t *testing.T) {
	e := newEnv(t)
	acc := e.seedAccount(t, "taskaccount00001", "a@example.com", true)

	for _, title := range []string{"", "   ", strings.Repeat("x", 256)} {
		_, err := e.tasks.Create(context.Background(), acc.Profile.ID, title)

		var verr *ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Contains(t, verr.Fields, "title")
	}
}

func TestPositionsAppendAndAreNotReindexed(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	acc := e.seedAccount(t, "taskaccount00001", "a@example.com", true)

	var ids []uint
	for i := range 3 {
		task, err := e.tasks.Create(ctx, acc.Profile.ID, fmt.Sprintf("task %d", i))
		require.NoError(t, err)
		assert.Equal(t, int64(i+1), task.Position)
		ids = append(ids, task.ID)
	}

	require.NoError(t, e.tasks.Delete(ctx, acc.Profile.ID, ids[1]))

	task, err := e.tasks.Create(ctx, acc.Profile.ID, "task 3")
	require.NoError(t, err)
	assert.Equal(t, int64(4), task.Position)

	tasks, err := e.tasks.List(ctx, acc.Profile.ID)
	require.NoError(t, err)

	var positions []int64
	for _, task := range tasks {
		positions = append(positions, task.Position)
	}
	assert.Equal(t, []int64{1, 3, 4}, positions)
}

func TestTasksAreScopedToTheirProfile(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := e.seedAccount(t, "taskaccount00001", "owner@example.com", true)
	other := e.seedAccount(t, "taskaccount00002", "other@example.com", true)

	task, err := e.tasks.Create(ctx, owner.Profile.ID, "private")
	require.NoError(t, err)

	title := "stolen"
	_, err = e.tasks.Get(ctx, other.Profile.ID, task.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = e.tasks.Update(ctx, other.Profile.ID, task.ID, TaskUpdate{Title: &title})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = e.tasks.MarkComplete(ctx, other.Profile.ID, task.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, e.tasks.Delete(ctx, other.Profile.ID, task.ID), ErrNotFound)

	tasks, err := e.tasks.List(ctx, other.Profile.ID)
	require.NoError(t, err)
	assert.Empty(t, tasks)

	got, err := e.tasks.Get(ctx, owner.Profile.ID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "private", got.Title)
	assert.False(t, got.Complete)
}

func TestMarkCompleteIsIdempotent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	acc := e.seedAccount(t, "taskaccount00001", "a@example.com", true)

	task, err := e.tasks.Create(ctx, acc.Profile.ID, "once")
	require.NoError(t, err)

	for range 2 {
		got, err := e.tasks.MarkComplete(ctx, acc.Profile.ID, task.ID)
		require.NoError(t, err)
		assert.True(t, got.Complete)
	}
}

func TestUpdateTask(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	acc := e.seedAccount(t, "taskaccount00001", "a@example.com", true)

	task, err := e.tasks.Create(ctx, acc.Profile.ID, "draft")
	require.NoError(t, err)

	title, done := "final", true
	got, err := e.tasks.Update(ctx, acc.Profile.ID, task.ID, TaskUpdate{Title: &title, Complete: &done})
	require.NoError(t, err)
	assert.Equal(t, "final", got.Title)
	assert.True(t, got.Complete)

	undone := false
	got, err = e.tasks.Update(ctx, acc.Profile.ID, task.ID, TaskUpdate{Complete: &undone})
	require.NoError(t, err)
	assert.False(t, got.Complete)
	assert.Equal(t, "final", got.Title)

	empty := ""
	_, err = e.tasks.Update(ctx, acc.Profile.ID, task.ID, TaskUpdate{Title: &empty})
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestPage(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	acc := e.seedAccount(t, "taskaccount00001", "a@example.com", true)

	empty, err := e.tasks.Page(ctx, acc.Profile.ID, 1, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, empty.Pages)
	assert.Empty(t, empty.Tasks)

	for i := range 15 {
		_, err := e.tasks.Create(ctx, acc.Profile.ID, fmt.Sprintf("task %02d", i))
		require.NoError(t, err)
	}

	first, err := e.tasks.Page(ctx, acc.Profile.ID, 1, 7)
	require.NoError(t, err)
	assert.Equal(t, 3, first.Pages)
	assert.Equal(t, int64(15), first.Total)
	require.Len(t, first.Tasks, 7)
	assert.Equal(t, "task 00", first.Tasks[0].Title)

	last, err := e.tasks.Page(ctx, acc.Profile.ID, LastPage, 7)
	require.NoError(t, err)
	assert.Equal(t, 3, last.Page)
	require.Len(t, last.Tasks, 1)
	assert.Equal(t, "task 14", last.Tasks[0].Title)

	_, err = e.tasks.Page(ctx, acc.Profile.ID, 4, 7)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = e.tasks.Page(ctx, acc.Profile.ID, 0, 7)
	assert.ErrorIs(t, err, ErrNotFound)
}
