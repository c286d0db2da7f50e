package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/viewlulu/internal/capture"
	"github.com/example/viewlulu/internal/cosmetic"
	"github.com/example/viewlulu/internal/lifecycle"
	"github.com/example/viewlulu/internal/logging"
	"github.com/example/viewlulu/internal/registration"
)

// Registrar submits a completed capture.
type Registrar interface {
	Register(ctx context.Context, name string, photos []cosmetic.PhotoRef) (cosmetic.Record, error)
}

// RegisterUseCase runs the guided four-shot registration flow.
type RegisterUseCase struct {
	gate      Gate
	registrar Registrar
	presenter Presenter
	scope     *lifecycle.Scope
	logger    *zap.Logger
}

func NewRegisterUseCase(parent context.Context, gate Gate, registrar Registrar, presenter Presenter, logger *zap.Logger) *RegisterUseCase {
	return &RegisterUseCase{
		gate:      gate,
		registrar: registrar,
		presenter: presenterOrNop(presenter),
		scope:     lifecycle.NewScope(parent),
		logger:    logging.OrNop(logger).Named("register_usecase"),
	}
}

// Close cancels in-flight work.
func (uc *RegisterUseCase) Close() { uc.scope.Close() }

// Run captures capture.Capacity photos with cam, announcing each guide, and
// registers them under name once the session completes.
func (uc *RegisterUseCase) Run(ctx context.Context, cam capture.Camera, name string) (cosmetic.Record, error) {
	ctx, cancel := bind(ctx, uc.scope)
	defer cancel()

	opLogger := logging.WithOperation(uc.logger, "usecase.register", uuid.NewString())

	name = strings.TrimSpace(name)
	if name == "" {
		uc.presenter.Alert("Name required", Message(registration.ErrNameRequired))
		return cosmetic.Record{}, registration.ErrNameRequired
	}
	if err := ensureCamera(ctx, uc.gate, uc.presenter, opLogger); err != nil {
		return cosmetic.Record{}, err
	}

	var (
		record  cosmetic.Record
		regErr  error
		handoff int
	)
	session := capture.NewSession(uc.gate,
		capture.WithLogger(uc.logger),
		capture.WithOnComplete(func(ctx context.Context, photos []cosmetic.PhotoRef) {
			handoff++
			uc.presenter.Announce("All photos taken. Registering.")
			record, regErr = uc.registrar.Register(ctx, name, photos)
		}),
	)
	if cam != nil {
		session.AttachCamera(cam)
	}
	if session.State() == capture.StateWaitingForDevice {
		uc.presenter.Announce(waitingForCamera)
		return cosmetic.Record{}, capture.ErrDeviceNotReady
	}

	for !session.Complete() {
		guide := session.Guide()
		uc.presenter.Announce(fmt.Sprintf("%s. %s: %s", session.Step(), guide.Title, guide.Description))
		if err := session.Capture(ctx); err != nil {
			opLogger.Warn("capture failed", zap.Int("taken", session.Len()), zap.Error(err))
			uc.presenter.Alert("Capture failed", Message(err))
			return cosmetic.Record{}, err
		}
	}

	if handoff != 1 {
		return cosmetic.Record{}, fmt.Errorf("capture session handed off %d times", handoff)
	}
	if regErr != nil {
		uc.presenter.Alert("Registration failed", Message(regErr))
		return cosmetic.Record{}, regErr
	}

	opLogger.Info("registration complete", zap.String("id", record.ID.String()))
	uc.presenter.Announce(fmt.Sprintf("%s registered.", record.Name))
	return record, nil
}
