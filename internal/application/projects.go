package application

import (
	"context"
	"time"
)

var projectStageRecords = collection[ProjectStage]{
	name:   "project_stage",
	get:    func(d *StoredData) []ProjectStage { return d.ProjectStages },
	set:    func(d *StoredData, v []ProjectStage) { d.ProjectStages = v },
	id:     func(s *ProjectStage) *string { return &s.ID },
	stamps: noStamps[ProjectStage],
}

var taskRecords = collection[ProjectTask]{
	name:   "project_task",
	get:    func(d *StoredData) []ProjectTask { return d.ProjectTasks },
	set:    func(d *StoredData, v []ProjectTask) { d.ProjectTasks = v },
	id:     func(t *ProjectTask) *string { return &t.ID },
	stamps: func(t *ProjectTask) (*time.Time, *time.Time) { return &t.CreatedAt, &t.UpdatedAt },
}

var projectBoard = board[ProjectStage, ProjectTask]{
	stages:  projectStageRecords,
	items:   taskRecords,
	stageOf: func(t *ProjectTask) *string { return &t.StageID },
	orderOf: func(s *ProjectStage) *int { return &s.Order },
}

func (s *Store) AddProjectStage(ctx context.Context, stage ProjectStage) ProjectStage {
	return projectBoard.addStage(s, ctx, stage)
}

func (s *Store) UpdateProjectStage(ctx context.Context, id string, patch func(*ProjectStage)) (ProjectStage, bool) {
	return updateRecord(s, ctx, projectStageRecords, id, patch, nil)
}

// DeleteProjectStage removes the stage and moves its tasks to the first
// remaining stage.
func (s *Store) DeleteProjectStage(ctx context.Context, id string) (bool, error) {
	return projectBoard.deleteStage(s, ctx, id)
}

func (s *Store) ReorderProjectStages(ctx context.Context, stages []ProjectStage) error {
	return projectBoard.reorder(s, ctx, stages)
}

func (s *Store) ProjectStages() []ProjectStage {
	return projectBoard.ordered(s)
}

// AddProjectTask appends a task. Priority defaults to medium and a missing or
// unknown stage resolves to the first stage, or leaves the task unstaged
// until the board gets its first stage.
func (s *Store) AddProjectTask(ctx context.Context, task ProjectTask) ProjectTask {
	created, _ := createRecord(s, ctx, taskRecords, task, func(d *StoredData, t *ProjectTask) error {
		if t.Priority == "" {
			t.Priority = PriorityMedium
		}
		t.StageID = projectBoard.resolve(d, t.StageID)
		return nil
	})
	return created
}

func (s *Store) UpdateProjectTask(ctx context.Context, id string, patch func(*ProjectTask)) (ProjectTask, bool) {
	return updateRecord(s, ctx, taskRecords, id, patch, projectBoard.keepKnownStage)
}

func (s *Store) DeleteProjectTask(ctx context.Context, id string) bool {
	return deleteRecord(s, ctx, taskRecords, id)
}

func (s *Store) ProjectTask(id string) (ProjectTask, bool) {
	return findRecord(s, taskRecords, id)
}

func (s *Store) ProjectTasks() []ProjectTask {
	return listRecords(s, taskRecords)
}

// MoveTask places the task on another stage.
func (s *Store) MoveTask(ctx context.Context, taskID, stageID string) (ProjectTask, bool, error) {
	return projectBoard.move(s, ctx, taskID, stageID)
}
