package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"hairsim/pkg/utils"
)

type memoryDocument struct {
	RawDocument
	seq    uint64
	fields map[string]json.RawMessage
}

// MemoryDocumentRepository keeps documents in process memory.
type MemoryDocumentRepository struct {
	mu   sync.RWMutex
	docs map[string]*memoryDocument
	seq  uint64
	now  func() time.Time
}

func NewMemoryDocumentRepository() *MemoryDocumentRepository {
	return &MemoryDocumentRepository{
		docs: make(map[string]*memoryDocument),
		now:  time.Now,
	}
}

var _ DocumentRepository = (*MemoryDocumentRepository)(nil)

func (m *MemoryDocumentRepository) Create(_ context.Context, collection string, data any) (*RawDocument, error) {
	fields, err := toFields(data)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	now := m.now().Unix()
	doc := &memoryDocument{
		RawDocument: RawDocument{
			ID:         uuid.NewString(),
			Collection: collection,
			CreatedAt:  now,
			UpdatedAt:  now,
		},
		seq:    m.seq,
		fields: fields,
	}
	m.docs[doc.ID] = doc
	return doc.snapshot()
}

func (m *MemoryDocumentRepository) Get(_ context.Context, collection, id string) (*RawDocument, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.docs[id]
	if !ok || doc.Collection != collection {
		return nil, utils.ErrNotFound
	}
	return doc.snapshot()
}

func (m *MemoryDocumentRepository) Update(_ context.Context, collection, id string, patch map[string]any) error {
	fields, err := toFields(patch)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.docs[id]
	if !ok || doc.Collection != collection {
		return utils.ErrNotFound
	}
	for k, v := range fields {
		doc.fields[k] = v
	}
	doc.UpdatedAt = m.now().Unix()
	return nil
}

func (m *MemoryDocumentRepository) FindBy(_ context.Context, collection, field, value string) ([]RawDocument, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []*memoryDocument
	for _, doc := range m.docs {
		if doc.Collection != collection {
			continue
		}
		var got string
		if err := json.Unmarshal(doc.fields[field], &got); err != nil || got != value {
			continue
		}
		matched = append(matched, doc)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].seq > matched[j].seq })

	out := make([]RawDocument, 0, len(matched))
	for _, doc := range matched {
		snap, err := doc.snapshot()
		if err != nil {
			return nil, err
		}
		out = append(out, *snap)
	}
	return out, nil
}

func (d *memoryDocument) snapshot() (*RawDocument, error) {
	data, err := json.Marshal(d.fields)
	if err != nil {
		return nil, err
	}
	raw := d.RawDocument
	raw.Data = data
	return &raw, nil
}

func toFields(v any) (map[string]json.RawMessage, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil, fmt.Errorf("document must be a JSON object: %w", err)
	}
	return fields, nil
}
