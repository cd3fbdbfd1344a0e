package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	domain "github.com/example/workspace-chat/domain/chat"
)

// documentKey is the primary key of the single row holding the collection.
const documentKey = "workspaces"

// ErrNotStarted is returned when the store is used before its module started.
var ErrNotStarted = errors.New("document store not started")

// record is the persisted row. The whole workspace collection is one JSON
// value; there is no finer-grained schema on purpose.
type record struct {
	Key       string `gorm:"primaryKey;size:64"`
	Value     []byte
	UpdatedAt time.Time
}

// TableName sets the table name for the document record.
func (record) TableName() string {
	return "documents"
}

// Documents loads and persists the workspace collection as one document.
// Every Load hits the database; there is no caching between requests.
type Documents struct {
	db *gorm.DB
}

// Load reads the full collection and normalizes it. A missing row yields a
// freshly seeded document.
func (s *Documents) Load(ctx context.Context) (*domain.Document, error) {
	if s.db == nil {
		return nil, ErrNotStarted
	}

	var rec record
	err := s.db.WithContext(ctx).First(&rec, "key = ?", documentKey).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		doc := SeedDocument()
		doc.Normalize()
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}

	var doc domain.Document
	if err := json.Unmarshal(rec.Value, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	doc.Normalize()
	return &doc, nil
}

// Save rewrites the full collection. The single-row upsert is the only write
// boundary; there are no partial updates.
func (s *Documents) Save(ctx context.Context, doc *domain.Document) error {
	if s.db == nil {
		return ErrNotStarted
	}

	value, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	rec := record{Key: documentKey, Value: value, UpdatedAt: time.Now()}
	if err := s.db.WithContext(ctx).Save(&rec).Error; err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}

// SeedDocument builds the initial collection: one workspace with a "general"
// channel, so the last-workspace and last-channel invariants hold from the
// first request on.
func SeedDocument() *domain.Document {
	now := time.Now()
	return &domain.Document{
		Workspaces: []*domain.Workspace{
			{
				Name:      "My Workspace",
				CreatedBy: "system",
				CreatedAt: now,
				Channels: []*domain.Channel{
					{
						Name:      "general",
						CreatedBy: "system",
						CreatedAt: now,
					},
				},
			},
		},
	}
}
