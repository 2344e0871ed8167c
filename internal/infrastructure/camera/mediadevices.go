package camera

import (
	"context"
	"sync"

	"github.com/pion/mediadevices"
	_ "github.com/pion/mediadevices/pkg/driver/camera" // Регистрируем драйвер камеры
	"github.com/pion/mediadevices/pkg/prop"
	"github.com/pkg/errors"

	"capture-session/internal/application"
	"capture-session/internal/domain"
)

// KindVideoInput тип устройства видеозахвата
const KindVideoInput = "videoinput"

// MediaDevicesDriver реализация CaptureDriver с использованием библиотеки mediadevices
type MediaDevicesDriver struct {
	logger    application.Logger
	enumerate func() []mediadevices.MediaDeviceInfo
}

// NewMediaDevicesDriver создает новый драйвер медиаустройств
func NewMediaDevicesDriver(logger application.Logger) *MediaDevicesDriver {
	return &MediaDevicesDriver{
		logger:    logger,
		enumerate: mediadevices.EnumerateDevices,
	}
}

// Devices возвращает список доступных камер
func (d *MediaDevicesDriver) Devices(ctx context.Context) ([]domain.VideoDevice, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	devices := d.enumerate()
	result := make([]domain.VideoDevice, 0, len(devices))
	for _, device := range devices {
		if device.Kind != mediadevices.VideoInput {
			continue
		}
		result = append(result, domain.VideoDevice{
			ID:    device.DeviceID,
			Label: device.Label,
			Kind:  KindVideoInput,
		})
	}

	return result, nil
}

// DefaultDevice выбирает камеру. Если preferredID задан, ищется только он.
func (d *MediaDevicesDriver) DefaultDevice(ctx context.Context, preferredID string) (domain.VideoDevice, bool) {
	devices, err := d.Devices(ctx)
	if err != nil || len(devices) == 0 {
		return domain.VideoDevice{}, false
	}

	if preferredID == "" {
		return devices[0], true
	}
	for _, device := range devices {
		if device.ID == preferredID {
			return device, true
		}
	}

	d.logger.Warn("Камера %s не найдена среди %d устройств", preferredID, len(devices))
	return domain.VideoDevice{}, false
}

// NewSession создает сессию захвата для устройства. Устройство открывается в AddInput.
func (d *MediaDevicesDriver) NewSession(device domain.VideoDevice, config domain.VideoConfig) (application.PlatformSession, error) {
	if device.ID == "" {
		return nil, errors.New("пустой идентификатор устройства")
	}
	return &mediaSession{
		device: device,
		config: config,
		logger: d.logger,
	}, nil
}

// mediaSession платформенная сессия поверх трека mediadevices
type mediaSession struct {
	device domain.VideoDevice
	config domain.VideoConfig
	logger application.Logger

	mu    sync.Mutex
	track mediadevices.Track
	pump  *pump
	once  sync.Once
}

// AddInput открывает камеру с заданными параметрами
func (s *mediaSession) AddInput() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.track != nil {
		return errors.New("вход уже добавлен")
	}

	// Задаем предпочтительные параметры, но не строгие
	constraints := mediadevices.MediaStreamConstraints{
		Video: func(c *mediadevices.MediaTrackConstraints) {
			c.DeviceID = prop.String(s.device.ID)
			if s.config.Width > 0 && s.config.Height > 0 {
				c.Width = prop.Int(s.config.Width)
				c.Height = prop.Int(s.config.Height)
			}
			if s.config.FrameRate > 0 {
				c.FrameRate = prop.Float(s.config.FrameRate)
			}
		},
	}

	stream, err := mediadevices.GetUserMedia(constraints)
	if err != nil {
		s.logger.Warn("Ошибка с исходными ограничениями: %v", err)
		s.logger.Info("Пробуем с минимальными ограничениями...")

		constraints = mediadevices.MediaStreamConstraints{
			Video: func(c *mediadevices.MediaTrackConstraints) {
				c.DeviceID = prop.String(s.device.ID)
			},
		}
		stream, err = mediadevices.GetUserMedia(constraints)
		if err != nil {
			return errors.Wrapf(err, "открытие камеры %s", s.device.ID)
		}
	}

	tracks := stream.GetVideoTracks()
	if len(tracks) == 0 {
		return errors.Errorf("камера %s не отдала видеотрек", s.device.ID)
	}
	for _, extra := range tracks[1:] {
		_ = extra.Close()
	}

	s.track = tracks[0]
	s.logger.Debug("Открыт трек %s камеры %s", s.track.ID(), s.device.Label)
	return nil
}

// AddOutput подключает делегата к несжатым кадрам трека
func (s *mediaSession) AddOutput(delegate application.SampleDelegate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.track == nil {
		return errors.New("выход добавляется до входа")
	}
	if s.pump != nil {
		return errors.New("выход уже добавлен")
	}

	videoTrack, ok := s.track.(*mediadevices.VideoTrack)
	if !ok {
		return errors.Errorf("трек %s не является видеотреком", s.track.ID())
	}

	s.pump = newPump(videoTrack.NewReader(true), s.track, delegate, s.logger)
	return nil
}

// StartRunning запускает доставку кадров
func (s *mediaSession) StartRunning() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pump == nil {
		return errors.New("сессия не настроена")
	}
	s.pump.start()
	return nil
}

// StopRunning останавливает доставку и освобождает камеру
func (s *mediaSession) StopRunning() {
	s.once.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.pump != nil {
			s.pump.stop()
			return
		}
		if s.track != nil {
			if err := s.track.Close(); err != nil {
				s.logger.Error("Ошибка закрытия трека: %v", err)
			}
		}
	})
}
