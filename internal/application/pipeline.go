package application

import (
	"context"
	"time"
)

var pipelineStageRecords = collection[PipelineStage]{
	name:   "pipeline_stage",
	get:    func(d *StoredData) []PipelineStage { return d.PipelineStages },
	set:    func(d *StoredData, v []PipelineStage) { d.PipelineStages = v },
	id:     func(s *PipelineStage) *string { return &s.ID },
	stamps: noStamps[PipelineStage],
}

var dealRecords = collection[Deal]{
	name:   "deal",
	get:    func(d *StoredData) []Deal { return d.Deals },
	set:    func(d *StoredData, v []Deal) { d.Deals = v },
	id:     func(d *Deal) *string { return &d.ID },
	stamps: func(d *Deal) (*time.Time, *time.Time) { return &d.CreatedAt, &d.UpdatedAt },
}

var salesBoard = board[PipelineStage, Deal]{
	stages:  pipelineStageRecords,
	items:   dealRecords,
	stageOf: func(d *Deal) *string { return &d.StageID },
	orderOf: func(s *PipelineStage) *int { return &s.Order },
}

// AddPipelineStage appends a stage at the end of the board.
func (s *Store) AddPipelineStage(ctx context.Context, stage PipelineStage) PipelineStage {
	return salesBoard.addStage(s, ctx, stage)
}

// UpdatePipelineStage merges patch into the stage with id.
func (s *Store) UpdatePipelineStage(ctx context.Context, id string, patch func(*PipelineStage)) (PipelineStage, bool) {
	return updateRecord(s, ctx, pipelineStageRecords, id, patch, nil)
}

// DeletePipelineStage removes the stage and moves its deals to the first
// remaining stage.
func (s *Store) DeletePipelineStage(ctx context.Context, id string) (bool, error) {
	return salesBoard.deleteStage(s, ctx, id)
}

// ReorderPipelineStages replaces the stage order with the given arrangement.
func (s *Store) ReorderPipelineStages(ctx context.Context, stages []PipelineStage) error {
	return salesBoard.reorder(s, ctx, stages)
}

// PipelineStages returns the stages sorted by order.
func (s *Store) PipelineStages() []PipelineStage {
	return salesBoard.ordered(s)
}

// AddDeal appends a deal. A missing or unknown stage resolves to the first
// stage of the board. Without any pipeline stage the deal is stored unstaged
// and joins the first stage once one is added.
func (s *Store) AddDeal(ctx context.Context, deal Deal) Deal {
	created, _ := createRecord(s, ctx, dealRecords, deal, func(d *StoredData, deal *Deal) error {
		deal.StageID = salesBoard.resolve(d, deal.StageID)
		return nil
	})
	return created
}

// UpdateDeal merges patch into the deal with id. A patch pointing the deal at
// an unknown stage keeps the previous stage.
func (s *Store) UpdateDeal(ctx context.Context, id string, patch func(*Deal)) (Deal, bool) {
	return updateRecord(s, ctx, dealRecords, id, patch, salesBoard.keepKnownStage)
}

// DeleteDeal removes the deal with id.
func (s *Store) DeleteDeal(ctx context.Context, id string) bool {
	return deleteRecord(s, ctx, dealRecords, id)
}

// Deal returns the deal with id.
func (s *Store) Deal(id string) (Deal, bool) {
	return findRecord(s, dealRecords, id)
}

// Deals returns every deal in insertion order.
func (s *Store) Deals() []Deal {
	return listRecords(s, dealRecords)
}

// MoveDeal places the deal on another stage.
func (s *Store) MoveDeal(ctx context.Context, dealID, stageID string) (Deal, bool, error) {
	return salesBoard.move(s, ctx, dealID, stageID)
}

// PipelineValue sums deal values per stage id.
func (s *Store) PipelineValue() map[string]float64 {
	totals := make(map[string]float64)
	for _, deal := range s.Deals() {
		totals[deal.StageID] += deal.Value
	}
	return totals
}
