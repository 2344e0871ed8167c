package application

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"capture-session/internal/domain"
)

// ErrTooManySessions превышен лимит одновременных подписок
var ErrTooManySessions = errors.New("too many concurrent capture sessions")

// Subscription подписка потребителя на кадры запущенной сессии
type Subscription struct {
	id          string
	frames      <-chan domain.Frame
	unsubscribe func()
	once        sync.Once
}

// NewSubscription создает подписку поверх канала кадров
func NewSubscription(id string, frames <-chan domain.Frame, unsubscribe func()) *Subscription {
	return &Subscription{id: id, frames: frames, unsubscribe: unsubscribe}
}

// ID возвращает идентификатор подписки
func (s *Subscription) ID() string {
	return s.id
}

// Frames возвращает поток кадров. Канал закрывается после Unsubscribe.
func (s *Subscription) Frames() <-chan domain.Frame {
	return s.frames
}

// Unsubscribe завершает подписку. Повторный вызов безопасен.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		if s.unsubscribe != nil {
			s.unsubscribe()
		}
	})
}

// FeedOptions настройки CameraFeed
type FeedOptions struct {
	Config      domain.VideoConfig
	Converter   FrameConverter
	MaxSessions int // 0 - без ограничения
}

// CameraFeed создает на каждую подписку свою сессию захвата
type CameraFeed struct {
	driver     CaptureDriver
	authorizer Authorizer
	options    FeedOptions
	registry   *Registry
	logger     Logger
}

// NewCameraFeed создает мост подписок
func NewCameraFeed(driver CaptureDriver, authorizer Authorizer, registry *Registry, options FeedOptions, logger Logger) *CameraFeed {
	if registry == nil {
		registry = NewRegistry()
	}
	return &CameraFeed{
		driver:     driver,
		authorizer: authorizer,
		options:    options,
		registry:   registry,
		logger:     logger,
	}
}

// Registry возвращает реестр живых сессий
func (f *CameraFeed) Registry() *Registry {
	return f.registry
}

// Subscribe запускает новую сессию и возвращает подписку на ее кадры.
// Ошибка запуска возвращается без изменения вида.
func (f *CameraFeed) Subscribe(ctx context.Context) (*Subscription, error) {
	session := NewCaptureSession(f.driver, f.authorizer, f.options.Converter, f.options.Config, f.logger)

	// Резервируем место до запуска, чтобы лимит соблюдался при гонке подписок
	if !f.registry.reserve(session, f.options.MaxSessions) {
		return nil, errors.Wrapf(ErrTooManySessions, "limit %d", f.options.MaxSessions)
	}

	if err := session.Start(ctx); err != nil {
		f.registry.Remove(session.ID())
		_ = session.Close()
		return nil, err
	}

	f.logger.Debug("Подписка %s оформлена, активных сессий: %d", session.ID(), f.registry.Len())

	return NewSubscription(session.ID(), session.Frames(), func() {
		f.registry.Remove(session.ID())
		if err := session.Close(); err != nil {
			f.logger.Error("Ошибка остановки сессии %s: %v", session.ID(), err)
		}
		f.logger.Debug("Подписка %s отменена, активных сессий: %d", session.ID(), f.registry.Len())
	}), nil
}

// Close останавливает все зарегистрированные сессии
func (f *CameraFeed) Close() error {
	for _, session := range f.registry.drain() {
		if err := session.Close(); err != nil {
			f.logger.Error("Ошибка остановки сессии %s: %v", session.ID(), err)
		}
	}
	return nil
}
