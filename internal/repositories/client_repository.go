package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"hairsim/internal/models/domain_models"
)

const ClientsCollection = "clients"

type ReportUpdate struct {
	Report       domain_models.Report
	ReportPrompt string
	ImagePrompt  string
	Selection    *domain_models.Selection
	Adjustment   domain_models.HairlineAdjustment
	GeneratedAt  int64
}

type ClientRepository interface {
	Create(ctx context.Context, record *domain_models.ClientRecord) (*domain_models.ClientRecord, error)
	FindByID(ctx context.Context, id string) (*domain_models.ClientRecord, error)
	ListByAccount(ctx context.Context, accountID string) ([]domain_models.ClientRecord, error)
	AttachFrontImage(ctx context.Context, id, ref string) error
	SaveSelection(ctx context.Context, id string, selection domain_models.Selection) error
	// SaveReport stores the report with its prompts and marks the record completed.
	SaveReport(ctx context.Context, id string, update ReportUpdate) error
	SaveGeneratedImage(ctx context.Context, id, ref, imagePrompt string) error
}

// clientDocument is the stored shape of a client record.
type clientDocument struct {
	AccountID         string                   `json:"accountId"`
	Status            string                   `json:"status"`
	Intake            domain_models.Intake     `json:"intake"`
	FrontImageRef     string                   `json:"frontImageRef,omitempty"`
	Selection         *domain_models.Selection `json:"selection,omitempty"`
	Adjustment        string                   `json:"adjustment,omitempty"`
	Report            json.RawMessage          `json:"report,omitempty"`
	GeneratedImageRef string                   `json:"generatedImageRef,omitempty"`
	ImagePrompt       string                   `json:"imagePrompt,omitempty"`
	ReportPrompt      string                   `json:"reportPrompt,omitempty"`
	ReportGeneratedAt int64                    `json:"reportGeneratedAt,omitempty"`
}

type clientRepository struct {
	docs DocumentRepository
}

func NewClientRepository(docs DocumentRepository) ClientRepository {
	return &clientRepository{docs: docs}
}

func (c *clientRepository) Create(ctx context.Context, record *domain_models.ClientRecord) (*domain_models.ClientRecord, error) {
	doc := clientDocument{
		AccountID: record.AccountID,
		Status:    string(domain_models.ClientStatusDraft),
		Intake:    record.Intake,
	}
	raw, err := c.docs.Create(ctx, ClientsCollection, doc)
	if err != nil {
		return nil, err
	}
	return decodeClient(raw)
}

func (c *clientRepository) FindByID(ctx context.Context, id string) (*domain_models.ClientRecord, error) {
	raw, err := c.docs.Get(ctx, ClientsCollection, id)
	if err != nil {
		return nil, err
	}
	return decodeClient(raw)
}

func (c *clientRepository) ListByAccount(ctx context.Context, accountID string) ([]domain_models.ClientRecord, error) {
	raws, err := c.docs.FindBy(ctx, ClientsCollection, "accountId", accountID)
	if err != nil {
		return nil, err
	}
	out := make([]domain_models.ClientRecord, 0, len(raws))
	for i := range raws {
		rec, err := decodeClient(&raws[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, nil
}

func (c *clientRepository) AttachFrontImage(ctx context.Context, id, ref string) error {
	return c.docs.Update(ctx, ClientsCollection, id, map[string]any{
		"frontImageRef": ref,
	})
}

func (c *clientRepository) SaveSelection(ctx context.Context, id string, selection domain_models.Selection) error {
	return c.docs.Update(ctx, ClientsCollection, id, map[string]any{
		"selection": selection,
	})
}

func (c *clientRepository) SaveReport(ctx context.Context, id string, update ReportUpdate) error {
	if update.Report == nil {
		return fmt.Errorf("save report: report is required")
	}
	report, err := update.Report.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	patch := map[string]any{
		"report":            json.RawMessage(report),
		"status":            string(domain_models.ClientStatusCompleted),
		"reportPrompt":      update.ReportPrompt,
		"imagePrompt":       update.ImagePrompt,
		"adjustment":        string(update.Adjustment),
		"reportGeneratedAt": update.GeneratedAt,
	}
	if update.Selection != nil {
		patch["selection"] = update.Selection
	}
	return c.docs.Update(ctx, ClientsCollection, id, patch)
}

func (c *clientRepository) SaveGeneratedImage(ctx context.Context, id, ref, imagePrompt string) error {
	patch := map[string]any{
		"generatedImageRef": ref,
	}
	if imagePrompt != "" {
		patch["imagePrompt"] = imagePrompt
	}
	return c.docs.Update(ctx, ClientsCollection, id, patch)
}

func decodeClient(raw *RawDocument) (*domain_models.ClientRecord, error) {
	var doc clientDocument
	if err := json.Unmarshal(raw.Data, &doc); err != nil {
		return nil, fmt.Errorf("decode client %s: %w", raw.ID, err)
	}
	report, err := domain_models.DecodeStoredReport(doc.Report)
	if err != nil {
		return nil, fmt.Errorf("decode client %s: %w", raw.ID, err)
	}

	return &domain_models.ClientRecord{
		ID:                raw.ID,
		AccountID:         doc.AccountID,
		Status:            domain_models.ClientStatus(doc.Status),
		Intake:            doc.Intake,
		FrontImageRef:     doc.FrontImageRef,
		Selection:         doc.Selection,
		Adjustment:        domain_models.HairlineAdjustment(doc.Adjustment),
		Report:            report,
		GeneratedImageRef: doc.GeneratedImageRef,
		ImagePrompt:       doc.ImagePrompt,
		ReportPrompt:      doc.ReportPrompt,
		CreatedAt:         raw.CreatedAt,
		UpdatedAt:         raw.UpdatedAt,
		ReportGeneratedAt: doc.ReportGeneratedAt,
	}, nil
}
