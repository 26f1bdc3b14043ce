package service

import (
	"context"
	"encoding/json"
	"sync"

	"harborbook/internal/gateway"
	"harborbook/internal/models"

	"github.com/stretchr/testify/mock"
)

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) Login(ctx context.Context, email, password string) (*gateway.LoginResult, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.LoginResult), args.Error(1)
}

func (m *mockGateway) ListBoatyards(ctx context.Context, token string) ([]models.Boatyard, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Boatyard), args.Error(1)
}

func (m *mockGateway) ListServices(ctx context.Context, token, boatyardID string) ([]models.MarineService, error) {
	args := m.Called(ctx, token, boatyardID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.MarineService), args.Error(1)
}

func (m *mockGateway) ListDockSlots(ctx context.Context, token, boatyardID string) ([]models.DockSlot, error) {
	args := m.Called(ctx, token, boatyardID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.DockSlot), args.Error(1)
}

func (m *mockGateway) ListShips(ctx context.Context, token string) ([]models.Ship, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Ship), args.Error(1)
}

func (m *mockGateway) RegisterShip(ctx context.Context, token string, req gateway.RegisterShipRequest) (*models.Ship, error) {
	args := m.Called(ctx, token, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Ship), args.Error(1)
}

func (m *mockGateway) CreateBooking(ctx context.Context, token string, req gateway.CreateBookingRequest) (*models.Booking, error) {
	args := m.Called(ctx, token, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *mockGateway) GetBooking(ctx context.Context, token, id string) (*models.Booking, error) {
	args := m.Called(ctx, token, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *mockGateway) CreatePayment(ctx context.Context, token string, req gateway.CreatePaymentRequest) (*gateway.PaymentDetails, error) {
	args := m.Called(ctx, token, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.PaymentDetails), args.Error(1)
}

// capturedEvent is one PublishJSON call recorded by recordingBus.
type capturedEvent struct {
	Type    string
	Payload []byte
}

// recordingBus captures published events for assertions.
type recordingBus struct {
	mu     sync.Mutex
	events []capturedEvent
}

func (b *recordingBus) PublishJSON(eventType string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, capturedEvent{Type: eventType, Payload: raw})
	return nil
}

func (b *recordingBus) captured() []capturedEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]capturedEvent(nil), b.events...)
}
