package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/viewlulu/internal/capture"
	"github.com/example/viewlulu/internal/cosmetic"
	"github.com/example/viewlulu/internal/lifecycle"
	"github.com/example/viewlulu/internal/logging"
	"github.com/example/viewlulu/internal/permission"
	"github.com/example/viewlulu/internal/repository"
)

// Detector identifies the product in one photo.
type Detector interface {
	Detect(ctx context.Context, photo cosmetic.PhotoRef) (cosmetic.DetectionResult, error)
}

// HistoryRepository defines the persistence operations needed for recent results.
type HistoryRepository interface {
	SaveLog(ctx context.Context, log *repository.DetectionLog) error
	ListRecent(ctx context.Context, limit int) ([]repository.DetectionLog, error)
}

// DetectOutcome is a completed detection.
type DetectOutcome struct {
	RequestID string
	Photo     cosmetic.PhotoRef
	Result    cosmetic.DetectionResult
}

// DetectUseCase runs the single-shot detect flow: permission, capture, detect, record.
type DetectUseCase struct {
	gate      Gate
	detector  Detector
	presenter Presenter
	history   HistoryRepository
	cache     Cache
	scope     *lifecycle.Scope
	logger    *zap.Logger
}

// DetectOption customizes a DetectUseCase.
type DetectOption func(*DetectUseCase)

// WithHistory records every successful detection.
func WithHistory(repo HistoryRepository) DetectOption {
	return func(uc *DetectUseCase) { uc.history = repo }
}

// WithCache keeps the last detection in the cache.
func WithCache(cache Cache) DetectOption {
	return func(uc *DetectUseCase) { uc.cache = cache }
}

// NewDetectUseCase constructs the flow. parent bounds the scope; closing the
// use case cancels any call still in flight.
func NewDetectUseCase(parent context.Context, gate Gate, detector Detector, presenter Presenter, logger *zap.Logger, opts ...DetectOption) *DetectUseCase {
	uc := &DetectUseCase{
		gate:      gate,
		detector:  detector,
		presenter: presenterOrNop(presenter),
		scope:     lifecycle.NewScope(parent),
		logger:    logging.OrNop(logger).Named("detect_usecase"),
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Close cancels in-flight work.
func (uc *DetectUseCase) Close() { uc.scope.Close() }

// Run takes one photo with cam and identifies it. A nil cam renders the
// waiting-for-device state and returns capture.ErrDeviceNotReady.
func (uc *DetectUseCase) Run(ctx context.Context, cam capture.Camera) (DetectOutcome, error) {
	ctx, cancel := bind(ctx, uc.scope)
	defer cancel()

	requestID := uuid.NewString()
	opLogger := logging.WithOperation(uc.logger, "usecase.detect", requestID)

	if err := ensureCamera(ctx, uc.gate, uc.presenter, opLogger); err != nil {
		return DetectOutcome{}, err
	}

	session := capture.NewSession(uc.gate, capture.WithLogger(uc.logger))
	if cam != nil {
		session.AttachCamera(cam)
	}
	if session.State() == capture.StateWaitingForDevice {
		uc.presenter.Announce(waitingForCamera)
		return DetectOutcome{}, capture.ErrDeviceNotReady
	}

	uc.presenter.Announce("Hold the product in front of the camera.")
	if err := session.Capture(ctx); err != nil {
		opLogger.Warn("capture failed", zap.Error(err))
		uc.presenter.Alert("Capture failed", Message(err))
		return DetectOutcome{}, err
	}
	photo := session.Photos()[0]

	result, err := uc.detector.Detect(ctx, photo)
	if err != nil {
		uc.presenter.Alert("Detection failed", Message(err))
		return DetectOutcome{}, err
	}

	outcome := DetectOutcome{RequestID: requestID, Photo: photo, Result: result}
	uc.record(ctx, outcome, opLogger)
	uc.presenter.Announce(fmt.Sprintf("Detected cosmetic %s.", result.DetectedID))
	return outcome, nil
}

// Recent lists recorded detections, newest first.
func (uc *DetectUseCase) Recent(ctx context.Context, limit int) ([]repository.DetectionLog, error) {
	if uc.history == nil {
		return nil, ErrHistoryDisabled
	}
	return uc.history.ListRecent(ctx, limit)
}

// LastResult returns the most recent detection, from the cache when it holds one.
func (uc *DetectUseCase) LastResult(ctx context.Context) (*repository.DetectionLog, error) {
	if uc.cache != nil {
		log, found, err := loadLastDetection(ctx, uc.cache)
		if err != nil {
			uc.logger.Warn("failed to read cached detection", zap.Error(err))
		}
		if found {
			return log, nil
		}
	}

	logs, err := uc.Recent(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(logs) == 0 {
		return nil, ErrNoHistory
	}
	return &logs[0], nil
}

func (uc *DetectUseCase) record(ctx context.Context, outcome DetectOutcome, opLogger *zap.Logger) {
	log := &repository.DetectionLog{
		RequestID:      outcome.RequestID,
		DetectedID:     outcome.Result.DetectedID.String(),
		Source:         string(outcome.Result.Source),
		BestDistance:   outcome.Result.BestDistance,
		CandidateCount: len(outcome.Result.Candidates),
		PhotoName:      outcome.Photo.Name,
		CreatedAt:      time.Now().UTC(),
	}

	if uc.history != nil {
		if err := uc.history.SaveLog(ctx, log); err != nil {
			opLogger.Warn("failed to persist detection", zap.Error(err))
		}
	}
	if uc.cache != nil {
		if err := storeLastDetection(ctx, uc.cache, log); err != nil {
			opLogger.Warn("failed to cache detection", zap.Error(logging.NewOperationError("cache.set.last_detection", outcome.RequestID, err)))
		}
	}
}

// ensureCamera activates the gate and renders the blocked state when access is not granted.
func ensureCamera(ctx context.Context, gate Gate, presenter Presenter, logger *zap.Logger) error {
	status, err := gate.Activate(ctx)
	if err != nil {
		presenter.Alert("Camera permission", Message(err))
		return err
	}
	if gate.IsAuthorized() {
		return nil
	}

	logger.Info("camera blocked", zap.String("status", string(status)))
	presenter.Alert("Camera access required", "Allow camera access in Settings to continue.")
	if err := gate.OpenSettingsPrompt(ctx); err != nil {
		logger.Debug("settings prompt unavailable", zap.Error(err))
	}
	return permission.ErrPermissionDenied
}
