package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
	"hairsim/internal/models/domain_models"
	"hairsim/internal/repositories"
	"hairsim/pkg/objectstore"
	"hairsim/pkg/utils"
)

var allowedImageTypes = []string{"image/jpeg", "image/png", "image/webp"}

type ClientServiceInterface interface {
	CreateClient(ctx context.Context, accountID string, intake domain_models.Intake) (*domain_models.ClientRecord, error)
	GetClient(ctx context.Context, accountID, clientID string) (*domain_models.ClientRecord, error)
	ListClients(ctx context.Context, accountID string) ([]domain_models.ClientRecord, error)
	UploadFrontImage(ctx context.Context, accountID, clientID string, data []byte) (*domain_models.ClientRecord, error)
	SaveSelection(ctx context.Context, accountID, clientID, hairlineID, hairstyleID string) (*domain_models.ClientRecord, error)
}

type ClientService struct {
	clients repositories.ClientRepository
	objects objectstore.Store
	prompts *PromptBuilder
	log     *zap.Logger
}

func NewClientService(clients repositories.ClientRepository, objects objectstore.Store, prompts *PromptBuilder, log *zap.Logger) *ClientService {
	return &ClientService{
		clients: clients,
		objects: objects,
		prompts: prompts,
		log:     log.Named("clients"),
	}
}

func (s *ClientService) CreateClient(ctx context.Context, accountID string, intake domain_models.Intake) (*domain_models.ClientRecord, error) {
	if accountID == "" {
		return nil, fmt.Errorf("%w: account id", utils.ErrMissingInput)
	}
	intake.Name = strings.TrimSpace(intake.Name)
	if intake.Name == "" {
		return nil, fmt.Errorf("%w: client name", utils.ErrMissingInput)
	}
	if intake.Age != nil && (*intake.Age < 0 || *intake.Age > 130) {
		return nil, fmt.Errorf("%w: age %d", utils.ErrInvalidRequest, *intake.Age)
	}

	record, err := s.clients.Create(ctx, &domain_models.ClientRecord{AccountID: accountID, Intake: intake})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", utils.ErrDatabaseError, err)
	}
	s.log.Info("client created", zap.String("client_id", record.ID), zap.String("account_id", accountID))
	return record, nil
}

// GetClient hides records of other accounts behind ErrNotFound.
func (s *ClientService) GetClient(ctx context.Context, accountID, clientID string) (*domain_models.ClientRecord, error) {
	record, err := s.clients.FindByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, fmt.Errorf("client %s: %w", clientID, utils.ErrNotFound)
		}
		return nil, fmt.Errorf("%w: %w", utils.ErrDatabaseError, err)
	}
	if record.AccountID != accountID {
		return nil, fmt.Errorf("client %s: %w", clientID, utils.ErrNotFound)
	}
	return record, nil
}

func (s *ClientService) ListClients(ctx context.Context, accountID string) ([]domain_models.ClientRecord, error) {
	if accountID == "" {
		return nil, fmt.Errorf("%w: account id", utils.ErrMissingInput)
	}
	records, err := s.clients.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", utils.ErrDatabaseError, err)
	}
	return records, nil
}

// UploadFrontImage stores the source photo. The content type is sniffed from
// the bytes, never taken from the client.
func (s *ClientService) UploadFrontImage(ctx context.Context, accountID, clientID string, data []byte) (*domain_models.ClientRecord, error) {
	wf := NewWorkflow()
	record, err := s.GetClient(ctx, accountID, clientID)
	if err != nil {
		return nil, err
	}
	if !record.Intake.ImageConsent {
		return nil, fmt.Errorf("%w: client %s", utils.ErrConsentRequired, clientID)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: image", utils.ErrMissingInput)
	}

	mt := mimetype.Detect(data)
	if !mimetype.EqualsAny(mt.String(), allowedImageTypes...) {
		return nil, fmt.Errorf("%w: got %s", utils.ErrUnsupportedImage, mt.String())
	}

	_ = wf.Advance(StageUploading)
	ref, err := s.objects.Put(ctx, fmt.Sprintf("clients/%s/front-image%s", clientID, mt.Extension()), data, mt.String())
	if err != nil {
		wf.Fail()
		return nil, fmt.Errorf("%w: %w", utils.ErrStorageFailure, err)
	}
	if err := s.clients.AttachFrontImage(ctx, clientID, ref); err != nil {
		wf.Fail()
		return nil, fmt.Errorf("%w: %w", utils.ErrDatabaseError, err)
	}
	_ = wf.Advance(StageDone)

	s.log.Info("front image uploaded",
		zap.String("client_id", clientID),
		zap.String("content_type", mt.String()),
		zap.Int("bytes", len(data)))
	record.FrontImageRef = ref
	return record, nil
}

func (s *ClientService) SaveSelection(ctx context.Context, accountID, clientID, hairlineID, hairstyleID string) (*domain_models.ClientRecord, error) {
	selection, err := s.prompts.Resolve(hairlineID, hairstyleID)
	if err != nil {
		return nil, err
	}
	record, err := s.GetClient(ctx, accountID, clientID)
	if err != nil {
		return nil, err
	}
	if err := s.clients.SaveSelection(ctx, clientID, *selection); err != nil {
		return nil, fmt.Errorf("%w: %w", utils.ErrDatabaseError, err)
	}
	record.Selection = selection
	return record, nil
}
