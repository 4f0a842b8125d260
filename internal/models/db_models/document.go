package db_models

import "gorm.io/datatypes"

// Document is a schemaless record in a named collection. Data holds the
// caller's fields as a jsonb object.
type Document struct {
	BaseModel
	Collection string         `gorm:"size:64;not null;index"`
	Data       datatypes.JSON `gorm:"type:jsonb;not null;default:'{}'"`
}

func (Document) TableName() string {
	return "documents"
}
