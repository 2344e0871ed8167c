package application

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"capture-session/internal/domain"
)

var (
	// ErrSessionNotIdle возвращается при повторном запуске сессии
	ErrSessionNotIdle = errors.New("capture session already started")

	// ErrSessionClosed возвращается, если сессию закрыли во время запуска
	ErrSessionClosed = errors.New("capture session closed during start")
)

// SessionStats счетчики сессии захвата
type SessionStats struct {
	Delivered uint64 // Кадров передано в поток
	Replaced  uint64 // Кадров вытеснено более новыми до прочтения
	Dropped   uint64 // Кадров отброшено платформой под нагрузкой
	Skipped   uint64 // Кадров, которые не удалось преобразовать
}

// CaptureSession доводит сессию захвата от простоя до стриминга и
// переводит push-колбэки платформы в поток кадров.
type CaptureSession struct {
	id         string
	driver     CaptureDriver
	authorizer Authorizer
	convert    FrameConverter
	config     domain.VideoConfig
	logger     Logger

	stream *FrameStream

	mu       sync.Mutex
	state    domain.SessionState
	failure  error
	platform PlatformSession

	seq     uint64
	dropped uint64
	skipped uint64
}

// NewCaptureSession создает сессию в состоянии Idle.
// Если convert не задан, кадры передаются без преобразования.
func NewCaptureSession(
	driver CaptureDriver,
	authorizer Authorizer,
	convert FrameConverter,
	config domain.VideoConfig,
	logger Logger,
) *CaptureSession {
	if convert == nil {
		convert = PassthroughConverter
	}
	return &CaptureSession{
		id:         uuid.New().String(),
		driver:     driver,
		authorizer: authorizer,
		convert:    convert,
		config:     config,
		logger:     logger,
		stream:     NewFrameStream(),
		state:      domain.SessionIdle,
	}
}

// PassthroughConverter передает изображение платформы как есть
func PassthroughConverter(sample Sample) (domain.Frame, bool) {
	if sample.Image == nil {
		return domain.Frame{}, false
	}
	return domain.Frame{CapturedAt: sample.CapturedAt, Image: sample.Image}, true
}

// ID возвращает идентификатор сессии
func (s *CaptureSession) ID() string {
	return s.id
}

// Frames возвращает поток кадров сессии
func (s *CaptureSession) Frames() <-chan domain.Frame {
	return s.stream.Frames()
}

// State возвращает текущее состояние
func (s *CaptureSession) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err возвращает причину перехода в Failed
func (s *CaptureSession) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failure
}

// Stats возвращает счетчики сессии
func (s *CaptureSession) Stats() SessionStats {
	streamStats := s.stream.Stats()
	return SessionStats{
		Delivered: streamStats.Yielded,
		Replaced:  streamStats.Replaced,
		Dropped:   atomic.LoadUint64(&s.dropped),
		Skipped:   atomic.LoadUint64(&s.skipped),
	}
}

// Start настраивает и запускает сессию.
// Ошибки: domain.ErrUnauthorized, domain.ErrMissingDevice, domain.ErrConfigurationFailed.
// Первый запрос доступа может ждать ответа пользователя и выполняется без блокировки сессии:
// Close в это время переводит сессию в Stopped, и Start возвращает ErrSessionClosed.
func (s *CaptureSession) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != domain.SessionIdle {
		state := s.state
		s.mu.Unlock()
		return errors.Wrapf(ErrSessionNotIdle, "session %s is %s", s.id, state)
	}
	s.state = domain.SessionConfiguring
	s.mu.Unlock()

	s.logger.Debug("Запуск сессии захвата %s", s.id)
	authorized := s.isAuthorized(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.SessionConfiguring {
		return errors.Wrapf(ErrSessionClosed, "session %s is %s", s.id, s.state)
	}
	if !authorized {
		return s.fail(domain.ErrUnauthorized)
	}

	if err := s.configure(ctx); err != nil {
		return s.fail(err)
	}

	// Доступ мог быть отозван во время настройки. К этому моменту он уже определен,
	// поэтому повторная проверка не ждет пользователя.
	if !s.isAuthorized(ctx) {
		return s.fail(domain.ErrUnauthorized)
	}

	if err := s.platform.StartRunning(); err != nil {
		return s.fail(errors.Wrapf(domain.ErrConfigurationFailed, "start running: %v", err))
	}

	s.state = domain.SessionRunning
	s.logger.Info("Сессия захвата %s запущена", s.id)
	return nil
}

// configure выбирает устройство и подключает вход и выход (под s.mu)
func (s *CaptureSession) configure(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	device, ok := s.driver.DefaultDevice(ctx, s.config.DeviceID)
	if !ok {
		return domain.ErrMissingDevice
	}

	platform, err := s.driver.NewSession(device, s.config)
	if err != nil {
		return errors.Wrapf(domain.ErrMissingDevice, "open %s: %v", device.ID, err)
	}
	s.platform = platform

	if err := platform.AddInput(); err != nil {
		return errors.Wrapf(domain.ErrConfigurationFailed, "add input: %v", err)
	}

	if err := platform.AddOutput(s); err != nil {
		return errors.Wrapf(domain.ErrConfigurationFailed, "add output: %v", err)
	}

	s.logger.Debug("Сессия %s настроена на устройство %s (%s)", s.id, device.Label, device.ID)
	return nil
}

// isAuthorized определяет доступ, при необходимости запрашивая его явно
func (s *CaptureSession) isAuthorized(ctx context.Context) bool {
	status := s.authorizer.Status(ctx)

	authorized := status == domain.AuthorizationAuthorized
	if status == domain.AuthorizationNotDetermined {
		s.logger.Debug("Запрос доступа к камере")
		authorized = s.authorizer.RequestAccess(ctx)
	}

	s.logger.Debug("Доступ к камере разрешен: %t", authorized)
	return authorized
}

// fail переводит сессию в Failed и освобождает частично настроенную платформу (под s.mu)
func (s *CaptureSession) fail(err error) error {
	if s.platform != nil {
		s.platform.StopRunning()
		s.platform = nil
	}
	s.state = domain.SessionFailed
	s.failure = err
	s.stream.Finish()
	s.logger.Error("Сессия захвата %s не запущена: %v", s.id, err)
	return err
}

// Close останавливает сессию и закрывает поток кадров. Повторный вызов безопасен.
func (s *CaptureSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Terminal() {
		return nil
	}
	if s.platform != nil {
		s.logger.Debug("Завершение сессии захвата %s", s.id)
		s.platform.StopRunning()
		s.platform = nil
	}

	s.state = domain.SessionStopped
	s.stream.Finish()

	stats := s.Stats()
	s.logger.Info("Сессия захвата %s остановлена: кадров %d, вытеснено %d, отброшено %d",
		s.id, stats.Delivered, stats.Replaced, stats.Dropped)
	return nil
}

// DidOutput реализует SampleDelegate
func (s *CaptureSession) DidOutput(sample Sample) {
	frame, ok := s.convert(sample)
	if !ok {
		atomic.AddUint64(&s.skipped, 1)
		return
	}
	frame.Seq = atomic.AddUint64(&s.seq, 1)
	s.stream.Yield(frame)
}

// DidDrop реализует SampleDelegate. Отброшенный кадр - не ошибка.
func (s *CaptureSession) DidDrop() {
	atomic.AddUint64(&s.dropped, 1)
	s.logger.Debug("Кадр отброшен платформой (сессия %s)", s.id)
}

// DidFail реализует SampleDelegate. Поток кадров завершается сразу, а сессия
// переходит в Failed на отдельной горутине: Close может держать s.mu и ждать
// остановки платформы, которая ждет возврата из этого колбэка.
func (s *CaptureSession) DidFail(err error) {
	s.logger.Error("Ошибка захвата в сессии %s: %v", s.id, err)
	s.stream.Finish()

	go s.failRunning(err)
}

// failRunning переводит запущенную сессию в Failed и освобождает устройство
func (s *CaptureSession) failRunning(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.SessionRunning {
		return
	}
	if s.platform != nil {
		s.platform.StopRunning()
		s.platform = nil
	}
	s.state = domain.SessionFailed
	s.failure = err
}
