package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"hairsim/internal/models/db_models"
	"hairsim/pkg/utils"
)

// RawDocument is a stored document with its JSON payload left undecoded.
type RawDocument struct {
	ID         string
	Collection string
	Data       json.RawMessage
	CreatedAt  int64
	UpdatedAt  int64
}

// DocumentRepository is a schemaless store of JSON objects grouped by collection.
// Update merges the patch into the stored object one level deep.
type DocumentRepository interface {
	Create(ctx context.Context, collection string, data any) (*RawDocument, error)
	Get(ctx context.Context, collection, id string) (*RawDocument, error)
	Update(ctx context.Context, collection, id string, patch map[string]any) error
	FindBy(ctx context.Context, collection, field, value string) ([]RawDocument, error)
}

type documentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

func (d *documentRepository) Create(ctx context.Context, collection string, data any) (*RawDocument, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}

	doc := db_models.Document{
		Collection: collection,
		Data:       datatypes.JSON(payload),
	}
	if err := d.db.WithContext(ctx).Create(&doc).Error; err != nil {
		return nil, err
	}
	return toRawDocument(&doc), nil
}

func (d *documentRepository) Get(ctx context.Context, collection, id string) (*RawDocument, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, utils.ErrNotFound
	}

	var doc db_models.Document
	err := d.db.WithContext(ctx).
		Where("collection = ?", collection).
		First(&doc, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrNotFound
		}
		return nil, err
	}
	return toRawDocument(&doc), nil
}

func (d *documentRepository) Update(ctx context.Context, collection, id string, patch map[string]any) error {
	if _, err := uuid.Parse(id); err != nil {
		return utils.ErrNotFound
	}
	payload, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("encode patch: %w", err)
	}

	result := d.db.WithContext(ctx).
		Model(&db_models.Document{}).
		Where("id = ? AND collection = ?", id, collection).
		Updates(map[string]any{
			"data":       gorm.Expr("data || ?::jsonb", string(payload)),
			"updated_at": db_models.UnixNow(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.ErrNotFound
	}
	return nil
}

func (d *documentRepository) FindBy(ctx context.Context, collection, field, value string) ([]RawDocument, error) {
	var docs []db_models.Document
	err := d.db.WithContext(ctx).
		Where("collection = ? AND data->>? = ?", collection, field, value).
		Order("created_at DESC").
		Find(&docs).Error
	if err != nil {
		return nil, err
	}

	out := make([]RawDocument, 0, len(docs))
	for i := range docs {
		out = append(out, *toRawDocument(&docs[i]))
	}
	return out, nil
}

func toRawDocument(doc *db_models.Document) *RawDocument {
	return &RawDocument{
		ID:         doc.ID.String(),
		Collection: doc.Collection,
		Data:       json.RawMessage(doc.Data),
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  doc.UpdatedAt,
	}
}
