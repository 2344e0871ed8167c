package application

import (
	"context"
	"image"
	"time"

	"capture-session/internal/domain"
)

// Logger интерфейс для логирования
type Logger interface {
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
}

// Authorizer предоставляет состояние доступа к камере
type Authorizer interface {
	// Status возвращает текущее состояние доступа
	Status(ctx context.Context) domain.AuthorizationStatus

	// RequestAccess явно запрашивает доступ, если он еще не определен
	RequestAccess(ctx context.Context) bool
}

// CaptureDriver интерфейс платформенного API захвата
type CaptureDriver interface {
	// Devices возвращает список доступных устройств захвата
	Devices(ctx context.Context) ([]domain.VideoDevice, error)

	// DefaultDevice выбирает камеру: preferredID, если задан, иначе системную по умолчанию
	DefaultDevice(ctx context.Context, preferredID string) (domain.VideoDevice, bool)

	// NewSession открывает устройство и создает платформенную сессию
	NewSession(device domain.VideoDevice, config domain.VideoConfig) (PlatformSession, error)
}

// PlatformSession платформенная сессия захвата
type PlatformSession interface {
	AddInput() error
	AddOutput(delegate SampleDelegate) error
	StartRunning() error

	// StopRunning останавливает сессию и освобождает устройство.
	// Вызывается и для незапущенной сессии. После возврата делегат больше не вызывается.
	StopRunning()
}

// Sample кадр в представлении платформы
type Sample struct {
	Image      image.Image
	CapturedAt time.Time
}

// SampleDelegate получает кадры на выделенной горутине платформы.
// Методы не должны блокироваться.
type SampleDelegate interface {
	DidOutput(sample Sample)
	DidDrop()

	// DidFail сообщает об ошибке захвата во время работы. После него кадров не будет.
	DidFail(err error)
}

// FrameConverter превращает кадр платформы в кадр конвейера
type FrameConverter func(sample Sample) (domain.Frame, bool)

// FeedSubscriber выдает подписки на кадры камеры
type FeedSubscriber interface {
	Subscribe(ctx context.Context) (*Subscription, error)
}
