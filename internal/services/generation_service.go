package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"hairsim/internal/models/domain_models"
	"hairsim/internal/repositories"
	mem "hairsim/pkg/memcache"
	"hairsim/pkg/metrics"
	"hairsim/pkg/objectstore"
	"hairsim/pkg/utils"
)

type GenerationKind string

const (
	KindReport         GenerationKind = "report"
	KindImage          GenerationKind = "image"
	KindReportAndImage GenerationKind = "report_and_image"
)

func (k GenerationKind) Services() []domain_models.ServiceType {
	switch k {
	case KindReport:
		return []domain_models.ServiceType{domain_models.ServiceReportGeneration}
	case KindImage:
		return []domain_models.ServiceType{domain_models.ServiceImageGeneration}
	case KindReportAndImage:
		return []domain_models.ServiceType{domain_models.ServiceReportGeneration, domain_models.ServiceImageGeneration}
	}
	return nil
}

type GenerationRequest struct {
	AccountID  string
	ClientID   string
	Kind       GenerationKind
	AutoSelect bool
	Adjustment domain_models.HairlineAdjustment
}

type ChargeOutcome struct {
	ServiceType  domain_models.ServiceType
	Amount       decimal.Decimal
	Charged      bool
	BalanceAfter decimal.Decimal
	// Err wraps utils.ErrChargeFailed when the debit did not go through.
	Err error
}

// PendingResult is provider output that has not been stored yet. It is kept
// on a persistence failure so the caller can store it without paying for a
// second generation.
type PendingResult struct {
	AccountID     string
	ClientID      string
	ServiceType   domain_models.ServiceType
	Report        domain_models.Report
	ReportPrompt  string
	ImagePrompt   string
	Selection     *domain_models.Selection
	Adjustment    domain_models.HairlineAdjustment
	Image         []byte
	ImageMimeType string
	// ImageRef is set once the image upload succeeded.
	ImageRef    string
	GeneratedAt time.Time

	done bool
}

func (p *PendingResult) kind() GenerationKind {
	if p.ServiceType == domain_models.ServiceImageGeneration {
		return KindImage
	}
	return KindReport
}

type GenerationResult struct {
	ClientID          string
	Kind              GenerationKind
	Status            domain_models.ClientStatus
	Report            domain_models.Report
	GeneratedImageRef string
	ReportPrompt      string
	ImagePrompt       string
	Charges           []ChargeOutcome
	Stages            []Stage
}

type GenerationError struct {
	Stage Stage
	Kind  GenerationKind
	Err   error
	// Pending holds the unsaved result when Stage is StagePersisting.
	Pending *PendingResult
	// Partial is the finished report leg of a report_and_image request.
	Partial *GenerationResult
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s generation failed while %s: %v", e.Kind, e.Stage, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

func (e *GenerationError) FailedStage() string { return string(e.Stage) }

func (e *GenerationError) IsRetryable() bool { return e.Pending == nil && RetrySafe(e.Stage) }

func (e *GenerationError) HasPending() bool { return e.Pending != nil }

type GenerationServiceInterface interface {
	Generate(ctx context.Context, req GenerationRequest) (*GenerationResult, error)
	// CompletePending stores and charges a result whose first persist failed.
	CompletePending(ctx context.Context, pending *PendingResult) (*GenerationResult, error)
}

type GenerationDeps struct {
	Clients         repositories.ClientRepository
	Ledger          LedgerServiceInterface
	Gate            GateServiceInterface
	Prompts         *PromptBuilder
	Parser          *utils.ReportParser
	Providers       utils.ProviderSet
	Objects         objectstore.Store
	Leases          mem.LeaseStore
	Prices          domain_models.PriceTable
	Alerts          IAlertService
	Metrics         *metrics.Metrics
	Log             *zap.Logger
	ProviderTimeout time.Duration
	LeaseTTL        time.Duration
	// PersistAttempts bounds how often a generated result is saved before
	// it is returned as pending. The client lease is held throughout.
	PersistAttempts int
}

const DefaultPersistAttempts = 3

type GenerationService struct {
	deps GenerationDeps
	log  *zap.Logger
	now  func() time.Time
}

func NewGenerationService(deps GenerationDeps) *GenerationService {
	if deps.ProviderTimeout <= 0 {
		deps.ProviderTimeout = 120 * time.Second
	}
	if deps.LeaseTTL <= deps.ProviderTimeout {
		deps.LeaseTTL = deps.ProviderTimeout + 30*time.Second
	}
	if deps.PersistAttempts <= 0 {
		deps.PersistAttempts = DefaultPersistAttempts
	}
	return &GenerationService{
		deps: deps,
		log:  deps.Log.Named("generation"),
		now:  time.Now,
	}
}

func (s *GenerationService) Generate(ctx context.Context, req GenerationRequest) (*GenerationResult, error) {
	if req.AccountID == "" || req.ClientID == "" {
		return nil, &GenerationError{Stage: StageIdle, Kind: req.Kind, Err: fmt.Errorf("%w: account and client id", utils.ErrMissingInput)}
	}
	if req.Kind.Services() == nil {
		return nil, &GenerationError{Stage: StageIdle, Kind: req.Kind, Err: fmt.Errorf("%w: generation kind %q", utils.ErrInvalidRequest, req.Kind)}
	}
	if !req.Adjustment.Valid() {
		return nil, &GenerationError{Stage: StageIdle, Kind: req.Kind, Err: fmt.Errorf("%w: adjustment %q", utils.ErrInvalidRequest, req.Adjustment)}
	}

	release, err := s.acquire(ctx, req.ClientID, req.Kind)
	if err != nil {
		return nil, err
	}
	defer release()

	record, err := s.loadRecord(ctx, req)
	if err != nil {
		return nil, err
	}

	log := s.log.With(
		zap.String("client_id", req.ClientID),
		zap.String("account_id", req.AccountID),
		zap.String("kind", string(req.Kind)),
	)
	log.Info("generation started", zap.Bool("auto_select", req.AutoSelect), zap.String("adjustment", string(req.Adjustment)))

	var result *GenerationResult
	switch req.Kind {
	case KindReport:
		result, err = s.runReport(ctx, req, record, req.Kind.Services())
	case KindImage:
		result, err = s.runImage(ctx, req, record, req.Kind.Services())
	case KindReportAndImage:
		result, err = s.runReportAndImage(ctx, req, record)
	}
	s.observe(req.Kind, err)

	if err != nil {
		log.Warn("generation failed", zap.Error(err))
		return nil, err
	}
	log.Info("generation finished", zap.Int("charges", len(result.Charges)))
	return result, nil
}

func (s *GenerationService) CompletePending(ctx context.Context, pending *PendingResult) (*GenerationResult, error) {
	if pending == nil || pending.ClientID == "" || pending.AccountID == "" {
		return nil, &GenerationError{Stage: StageIdle, Err: fmt.Errorf("%w: pending result", utils.ErrMissingInput)}
	}
	kind := pending.kind()
	if pending.done {
		return nil, &GenerationError{Stage: StageIdle, Kind: kind, Err: fmt.Errorf("%w: pending result already stored", utils.ErrInvalidRequest)}
	}

	release, err := s.acquire(ctx, pending.ClientID, kind)
	if err != nil {
		return nil, err
	}
	defer release()

	result, err := s.persistAndCharge(context.WithoutCancel(ctx), pending, NewWorkflow())
	s.observe(kind, err)
	if err != nil {
		return nil, err
	}
	if kind == KindImage {
		if rec, err := s.deps.Clients.FindByID(ctx, pending.ClientID); err == nil {
			result.Status = rec.Status
		}
	}
	return result, nil
}

func (s *GenerationService) runReportAndImage(ctx context.Context, req GenerationRequest, record *domain_models.ClientRecord) (*GenerationResult, error) {
	// the first leg is gated on the combined price so a short balance is
	// caught before anything is spent
	reportRes, err := s.runReport(ctx, req, record, KindReportAndImage.Services())
	if err != nil {
		var genErr *GenerationError
		if errors.As(err, &genErr) {
			genErr.Kind = KindReportAndImage
		}
		return nil, err
	}

	record.Status = reportRes.Status
	record.ImagePrompt = reportRes.ImagePrompt
	imageRes, err := s.runImage(ctx, req, record, KindImage.Services())
	if err != nil {
		var genErr *GenerationError
		if errors.As(err, &genErr) {
			genErr.Kind = KindReportAndImage
			genErr.Partial = reportRes
		}
		return nil, err
	}

	return &GenerationResult{
		ClientID:          req.ClientID,
		Kind:              KindReportAndImage,
		Status:            reportRes.Status,
		Report:            reportRes.Report,
		GeneratedImageRef: imageRes.GeneratedImageRef,
		ReportPrompt:      reportRes.ReportPrompt,
		ImagePrompt:       imageRes.ImagePrompt,
		Charges:           append(reportRes.Charges, imageRes.Charges...),
		Stages:            append(reportRes.Stages, imageRes.Stages...),
	}, nil
}

func (s *GenerationService) runReport(ctx context.Context, req GenerationRequest, record *domain_models.ClientRecord, gateServices []domain_models.ServiceType) (*GenerationResult, error) {
	wf := NewWorkflow()
	fail := func(err error) (*GenerationResult, error) {
		wf.Fail()
		return nil, &GenerationError{Stage: wf.FailedAt(), Kind: KindReport, Err: err}
	}

	selection := record.Selection
	if req.AutoSelect {
		selection = AutoSelection()
	}
	prompts, err := s.deps.Prompts.Build(record.Intake, selection, req.AutoSelect, req.Adjustment)
	if err != nil {
		return fail(err)
	}

	if err := s.gate(ctx, wf, req.AccountID, gateServices); err != nil {
		return fail(err)
	}
	if err := wf.Advance(StageGenerating); err != nil {
		return fail(err)
	}

	image, mimeType, err := s.loadSourceImage(ctx, record.FrontImageRef)
	if err != nil {
		return fail(err)
	}
	resp, err := s.invoke(ctx, s.deps.Providers.Report, utils.GenerateRequest{
		Prompt:        prompts.Report,
		Image:         image,
		ImageMimeType: mimeType,
		Modality:      utils.ModalityText,
	})
	if err != nil {
		return fail(err)
	}

	report := s.deps.Parser.Parse(resp.Text)
	if structured, ok := report.(*domain_models.StructuredReport); ok {
		structured.AppendNote(AdjustmentNotes(req.Adjustment))
	}

	pending := &PendingResult{
		AccountID:    req.AccountID,
		ClientID:     req.ClientID,
		ServiceType:  domain_models.ServiceReportGeneration,
		Report:       report,
		ReportPrompt: prompts.Report,
		ImagePrompt:  prompts.Image,
		Selection:    selection,
		Adjustment:   req.Adjustment,
		GeneratedAt:  s.now(),
	}
	return s.persistAndCharge(context.WithoutCancel(ctx), pending, wf)
}

func (s *GenerationService) runImage(ctx context.Context, req GenerationRequest, record *domain_models.ClientRecord, gateServices []domain_models.ServiceType) (*GenerationResult, error) {
	wf := NewWorkflow()
	fail := func(err error) (*GenerationResult, error) {
		wf.Fail()
		return nil, &GenerationError{Stage: wf.FailedAt(), Kind: KindImage, Err: err}
	}

	prompt := record.ImagePrompt
	switch {
	case req.AutoSelect || req.Adjustment != domain_models.AdjustmentNone:
		selection := record.Selection
		if req.AutoSelect {
			selection = AutoSelection()
		}
		prompts, err := s.deps.Prompts.Build(record.Intake, selection, req.AutoSelect, req.Adjustment)
		if err != nil {
			return fail(err)
		}
		prompt = prompts.Image
	case prompt == "":
		prompt = s.deps.Prompts.DefaultImagePrompt(record.Selection)
	}

	if err := s.gate(ctx, wf, req.AccountID, gateServices); err != nil {
		return fail(err)
	}
	if err := wf.Advance(StageGenerating); err != nil {
		return fail(err)
	}

	image, mimeType, err := s.loadSourceImage(ctx, record.FrontImageRef)
	if err != nil {
		return fail(err)
	}
	resp, err := s.invoke(ctx, s.deps.Providers.Image, utils.GenerateRequest{
		Prompt:        prompt,
		Image:         image,
		ImageMimeType: mimeType,
		Modality:      utils.ModalityImage,
	})
	if err != nil {
		return fail(err)
	}

	outMime := resp.ImageMimeType
	if !strings.HasPrefix(outMime, "image/") {
		outMime = mimetype.Detect(resp.Image).String()
	}

	pending := &PendingResult{
		AccountID:     req.AccountID,
		ClientID:      req.ClientID,
		ServiceType:   domain_models.ServiceImageGeneration,
		ImagePrompt:   prompt,
		Image:         resp.Image,
		ImageMimeType: outMime,
		GeneratedAt:   s.now(),
	}
	result, err := s.persistAndCharge(context.WithoutCancel(ctx), pending, wf)
	if err != nil {
		return nil, err
	}
	result.Status = record.Status
	return result, nil
}

// persistAndCharge stores the result and only then charges for it.
func (s *GenerationService) persistAndCharge(ctx context.Context, p *PendingResult, wf *Workflow) (*GenerationResult, error) {
	kind := p.kind()
	if err := wf.Advance(StagePersisting); err != nil {
		return nil, &GenerationError{Stage: wf.Stage(), Kind: kind, Err: err}
	}

	var err error
	for attempt := 1; attempt <= s.deps.PersistAttempts; attempt++ {
		if err = s.persist(ctx, p); err == nil {
			break
		}
		s.log.Warn("persist attempt failed",
			zap.String("client_id", p.ClientID),
			zap.String("service_type", string(p.ServiceType)),
			zap.Int("attempt", attempt),
			zap.Error(err))
	}
	if err != nil {
		wf.Fail()
		s.log.Error("failed to persist generation result",
			zap.String("client_id", p.ClientID),
			zap.String("service_type", string(p.ServiceType)),
			zap.Int("attempts", s.deps.PersistAttempts),
			zap.Error(err))
		return nil, &GenerationError{
			Stage:   StagePersisting,
			Kind:    kind,
			Err:     fmt.Errorf("%w: %w", utils.ErrPersistence, err),
			Pending: p,
		}
	}
	p.done = true

	_ = wf.Advance(StageCharging)
	charge := s.charge(ctx, p)
	_ = wf.Advance(StageDone)

	result := &GenerationResult{
		ClientID:          p.ClientID,
		Kind:              kind,
		Report:            p.Report,
		GeneratedImageRef: p.ImageRef,
		ReportPrompt:      p.ReportPrompt,
		ImagePrompt:       p.ImagePrompt,
		Charges:           []ChargeOutcome{charge},
		Stages:            wf.History(),
	}
	if kind == KindReport {
		result.Status = domain_models.ClientStatusCompleted
	}
	return result, nil
}

func (s *GenerationService) persist(ctx context.Context, p *PendingResult) error {
	switch p.ServiceType {
	case domain_models.ServiceReportGeneration:
		return s.deps.Clients.SaveReport(ctx, p.ClientID, repositories.ReportUpdate{
			Report:       p.Report,
			ReportPrompt: p.ReportPrompt,
			ImagePrompt:  p.ImagePrompt,
			Selection:    p.Selection,
			Adjustment:   p.Adjustment,
			GeneratedAt:  p.GeneratedAt.Unix(),
		})
	case domain_models.ServiceImageGeneration:
		if p.ImageRef == "" {
			ref, err := s.deps.Objects.Put(ctx, generatedImagePath(p.ClientID, p.GeneratedAt, p.ImageMimeType), p.Image, p.ImageMimeType)
			if err != nil {
				return fmt.Errorf("upload generated image: %w", err)
			}
			p.ImageRef = ref
		}
		return s.deps.Clients.SaveGeneratedImage(ctx, p.ClientID, p.ImageRef, p.ImagePrompt)
	}
	return fmt.Errorf("unknown service type %q", p.ServiceType)
}

// charge never fails the attempt: the work is already stored.
func (s *GenerationService) charge(ctx context.Context, p *PendingResult) ChargeOutcome {
	outcome := ChargeOutcome{ServiceType: p.ServiceType}

	price, err := s.deps.Prices.Price(p.ServiceType)
	if err == nil {
		outcome.Amount = price
		outcome.BalanceAfter, err = s.deps.Ledger.Charge(ctx, p.AccountID, price, p.ServiceType)
	}
	if err != nil {
		outcome.Err = fmt.Errorf("%w: %w", utils.ErrChargeFailed, err)
		s.log.Error("charge after successful generation failed",
			zap.String("client_id", p.ClientID),
			zap.String("account_id", p.AccountID),
			zap.String("service_type", string(p.ServiceType)),
			zap.Error(err))
		s.deps.Metrics.ReconciliationGap(GapPostGenerationCharge)
		s.deps.Alerts.NotifyReconciliationGap(ctx, ReconciliationGap{
			Reason:      GapPostGenerationCharge,
			AccountID:   p.AccountID,
			ClientID:    p.ClientID,
			ServiceType: string(p.ServiceType),
			Amount:      price,
			Err:         err,
		})
		return outcome
	}
	outcome.Charged = true
	return outcome
}

func (s *GenerationService) gate(ctx context.Context, wf *Workflow, accountID string, services []domain_models.ServiceType) error {
	if err := wf.Advance(StageGating); err != nil {
		return err
	}
	decision, err := s.deps.Gate.Check(ctx, accountID, services...)
	if err != nil {
		return err
	}
	if !decision.Allowed {
		return fmt.Errorf("%w: balance %s, required %s", utils.ErrInsufficientFunds,
			decision.Balance.StringFixed(2), decision.Price.StringFixed(2))
	}
	return nil
}

// invoke calls the provider on a context detached from the caller so a
// late answer is still stored; ProviderTimeout bounds the wait.
func (s *GenerationService) invoke(ctx context.Context, provider utils.AIProvider, req utils.GenerateRequest) (*utils.GenerateResponse, error) {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.deps.ProviderTimeout)
	defer cancel()

	started := time.Now()
	resp, err := provider.Generate(pctx, req)
	s.deps.Metrics.ObserveProvider(provider.Name(), string(req.Modality), started)
	if err != nil {
		if errors.Is(pctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s did not answer within %s", utils.ErrProviderFailure, provider.Name(), s.deps.ProviderTimeout)
		}
		return nil, fmt.Errorf("%w: %w", utils.ErrProviderFailure, err)
	}
	if resp == nil {
		return nil, fmt.Errorf("%w: %s returned empty output", utils.ErrProviderFailure, provider.Name())
	}
	switch req.Modality {
	case utils.ModalityImage:
		if len(resp.Image) == 0 {
			msg := "no image generated"
			if text := strings.TrimSpace(resp.Text); text != "" {
				msg += ". Model output: " + text
			}
			return nil, fmt.Errorf("%w: %s: %s", utils.ErrProviderFailure, provider.Name(), msg)
		}
	default:
		if strings.TrimSpace(resp.Text) == "" {
			return nil, fmt.Errorf("%w: %s returned no report text", utils.ErrProviderFailure, provider.Name())
		}
	}
	return resp, nil
}

func (s *GenerationService) loadSourceImage(ctx context.Context, ref string) ([]byte, string, error) {
	data, err := s.deps.Objects.Get(ctx, ref)
	if err != nil {
		return nil, "", fmt.Errorf("%w: load source image: %w", utils.ErrStorageFailure, err)
	}
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, "", fmt.Errorf("%w: source image is %s", utils.ErrUnsupportedImage, mt.String())
	}
	return data, mt.String(), nil
}

func (s *GenerationService) loadRecord(ctx context.Context, req GenerationRequest) (*domain_models.ClientRecord, error) {
	record, err := s.deps.Clients.FindByID(ctx, req.ClientID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, &GenerationError{Stage: StageIdle, Kind: req.Kind, Err: fmt.Errorf("client %s: %w", req.ClientID, utils.ErrNotFound)}
		}
		return nil, &GenerationError{Stage: StageIdle, Kind: req.Kind, Err: fmt.Errorf("%w: %w", utils.ErrDatabaseError, err)}
	}
	if record.AccountID != req.AccountID {
		return nil, &GenerationError{Stage: StageIdle, Kind: req.Kind, Err: fmt.Errorf("client %s: %w", req.ClientID, utils.ErrNotFound)}
	}
	if !record.HasFrontImage() {
		return nil, &GenerationError{Stage: StageIdle, Kind: req.Kind, Err: fmt.Errorf("%w: front image has not been uploaded", utils.ErrMissingInput)}
	}
	if !req.AutoSelect && record.Selection == nil && req.Kind != KindImage {
		return nil, &GenerationError{Stage: StageIdle, Kind: req.Kind, Err: fmt.Errorf("%w: choose a hairline and hairstyle or use auto-select", utils.ErrMissingInput)}
	}
	return record, nil
}

func (s *GenerationService) acquire(ctx context.Context, clientID string, kind GenerationKind) (func(), error) {
	key := "generation:" + clientID
	token, ok, err := s.deps.Leases.Acquire(ctx, key, s.deps.LeaseTTL)
	if err != nil {
		return nil, &GenerationError{Stage: StageIdle, Kind: kind, Err: fmt.Errorf("%w: %w", utils.ErrDatabaseError, err)}
	}
	if !ok {
		return nil, &GenerationError{Stage: StageIdle, Kind: kind, Err: utils.ErrGenerationInProgress}
	}
	return func() {
		if err := s.deps.Leases.Release(context.WithoutCancel(ctx), key, token); err != nil {
			s.log.Warn("failed to release generation lease", zap.String("client_id", clientID), zap.Error(err))
		}
	}, nil
}

func (s *GenerationService) observe(kind GenerationKind, err error) {
	outcome := "success"
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		outcome = "failed_" + string(genErr.Stage)
	} else if err != nil {
		outcome = "failed"
	}
	s.deps.Metrics.Generation(string(kind), outcome)
}

func generatedImagePath(clientID string, at time.Time, mimeType string) string {
	ext := ".png"
	if m := mimetype.Lookup(mimeType); m != nil && m.Extension() != "" {
		ext = m.Extension()
	}
	return fmt.Sprintf("generated-looks/%s/%d%s", clientID, at.UnixNano(), ext)
}
