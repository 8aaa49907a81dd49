package database

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/aegisshield/entity-network/internal/models"
)

// ResolvedEntityRow is the resolved_entities table
type ResolvedEntityRow struct {
	ResolvedID      string          `gorm:"column:resolved_id;primaryKey"`
	CanonicalName   string          `gorm:"column:canonical_name;not null"`
	EntityKind      string          `gorm:"column:entity_kind;not null"`
	MemberRecordIDs json.RawMessage `gorm:"column:member_record_ids;type:jsonb;not null"`
	SourceSystems   json.RawMessage `gorm:"column:source_systems;type:jsonb;not null"`
	Attributes      json.RawMessage `gorm:"column:attributes;type:jsonb;not null"`
	MatchScores     json.RawMessage `gorm:"column:match_scores;type:jsonb;not null"`
	Confidence      float64         `gorm:"column:confidence;not null"`
	CreatedAt       time.Time       `gorm:"column:created_at"`
	UpdatedAt       time.Time       `gorm:"column:updated_at"`
}

// TableName implements gorm's tabler
func (ResolvedEntityRow) TableName() string {
	return "resolved_entities"
}

// ResolutionJobRow is the resolution_jobs table
type ResolutionJobRow struct {
	ID             string     `gorm:"column:id;type:uuid;primaryKey"`
	Status         string     `gorm:"column:status;not null"`
	Fingerprint    string     `gorm:"column:fingerprint;not null"`
	RecordCount    int        `gorm:"column:record_count"`
	EntityCount    int        `gorm:"column:entity_count"`
	CandidatePairs int        `gorm:"column:candidate_pairs"`
	AcceptedPairs  int        `gorm:"column:accepted_pairs"`
	CacheHit       bool       `gorm:"column:cache_hit"`
	ErrorMessage   string     `gorm:"column:error_message"`
	StartedAt      time.Time  `gorm:"column:started_at"`
	CompletedAt    *time.Time `gorm:"column:completed_at"`
}

// TableName implements gorm's tabler
func (ResolutionJobRow) TableName() string {
	return "resolution_jobs"
}

func toEntityRow(entity models.ResolvedEntity) (ResolvedEntityRow, error) {
	row := ResolvedEntityRow{
		ResolvedID:    entity.ResolvedID,
		CanonicalName: entity.CanonicalName,
		EntityKind:    entity.EntityKind,
		Confidence:    entity.Confidence,
	}

	fields := []struct {
		name string
		src  interface{}
		dst  *json.RawMessage
		zero string
	}{
		{"member_record_ids", entity.MemberRecordIDs, &row.MemberRecordIDs, "[]"},
		{"source_systems", entity.SourceSystems, &row.SourceSystems, "[]"},
		{"attributes", entity.Attributes, &row.Attributes, "{}"},
		{"match_scores", entity.MatchScores, &row.MatchScores, "{}"},
	}
	for _, f := range fields {
		data, err := json.Marshal(f.src)
		if err != nil {
			return ResolvedEntityRow{}, fmt.Errorf("failed to encode %s of %s: %w", f.name, entity.ResolvedID, err)
		}
		if string(data) == "null" {
			data = []byte(f.zero)
		}
		*f.dst = data
	}

	return row, nil
}

func (row ResolvedEntityRow) toModel() (models.ResolvedEntity, error) {
	entity := models.ResolvedEntity{
		ResolvedID:    row.ResolvedID,
		CanonicalName: row.CanonicalName,
		EntityKind:    row.EntityKind,
		Confidence:    row.Confidence,
	}

	fields := []struct {
		name string
		src  json.RawMessage
		dst  interface{}
	}{
		{"member_record_ids", row.MemberRecordIDs, &entity.MemberRecordIDs},
		{"source_systems", row.SourceSystems, &entity.SourceSystems},
		{"attributes", row.Attributes, &entity.Attributes},
		{"match_scores", row.MatchScores, &entity.MatchScores},
	}
	for _, f := range fields {
		if len(f.src) == 0 {
			continue
		}
		if err := json.Unmarshal(f.src, f.dst); err != nil {
			return models.ResolvedEntity{}, fmt.Errorf("failed to decode %s of %s: %w", f.name, row.ResolvedID, err)
		}
	}

	return entity, nil
}

func toJobRow(job *models.ResolutionJob) ResolutionJobRow {
	row := ResolutionJobRow{
		ID:             job.ID,
		Status:         job.Status,
		Fingerprint:    job.Fingerprint,
		RecordCount:    job.RecordCount,
		EntityCount:    job.EntityCount,
		CandidatePairs: job.CandidatePairs,
		AcceptedPairs:  job.AcceptedPairs,
		CacheHit:       job.CacheHit,
		ErrorMessage:   job.Error,
		StartedAt:      job.StartedAt,
	}
	if !job.CompletedAt.IsZero() {
		completed := job.CompletedAt
		row.CompletedAt = &completed
	}
	return row
}

func (row ResolutionJobRow) toModel() models.ResolutionJob {
	job := models.ResolutionJob{
		ID:             row.ID,
		Status:         row.Status,
		Fingerprint:    row.Fingerprint,
		RecordCount:    row.RecordCount,
		EntityCount:    row.EntityCount,
		CandidatePairs: row.CandidatePairs,
		AcceptedPairs:  row.AcceptedPairs,
		CacheHit:       row.CacheHit,
		Error:          row.ErrorMessage,
		StartedAt:      row.StartedAt,
	}
	if row.CompletedAt != nil {
		job.CompletedAt = *row.CompletedAt
	}
	return job
}
