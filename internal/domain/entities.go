package domain

import (
	"image"
	"time"
)

// Frame представляет один декодированный кадр с камеры
type Frame struct {
	Seq        uint64      // Порядковый номер кадра в сессии
	CapturedAt time.Time   // Время захвата
	Image      image.Image // Изображение в размере превью
}

// VideoDevice представляет устройство захвата видео
type VideoDevice struct {
	ID    string // Уникальный идентификатор устройства
	Label string // Человекочитаемое имя устройства
	Kind  string // Тип устройства
}

// Orientation задает поворот кадра относительно сенсора
type Orientation int

const (
	OrientationUp    Orientation = iota // Без поворота
	OrientationRight                    // Портрет: поворот на 90° по часовой
	OrientationDown                     // Поворот на 180°
	OrientationLeft                     // Поворот на 90° против часовой
)

// ParseOrientation разбирает ориентацию из конфигурации
func ParseOrientation(s string) (Orientation, bool) {
	switch s {
	case "", "up", "landscape":
		return OrientationUp, true
	case "right", "portrait":
		return OrientationRight, true
	case "down":
		return OrientationDown, true
	case "left":
		return OrientationLeft, true
	}
	return OrientationUp, false
}

func (o Orientation) String() string {
	switch o {
	case OrientationRight:
		return "right"
	case OrientationDown:
		return "down"
	case OrientationLeft:
		return "left"
	default:
		return "up"
	}
}

// VideoConfig содержит конфигурацию сессии захвата
type VideoConfig struct {
	DeviceID      string      // ID устройства для захвата (пусто - устройство по умолчанию)
	Width         int         // Ширина захвата в пикселях
	Height        int         // Высота захвата в пикселях
	FrameRate     int         // Частота кадров
	PreviewWidth  int         // Ширина кадров, отдаваемых потребителю
	PreviewHeight int         // Высота кадров, отдаваемых потребителю
	Orientation   Orientation // Ориентация выходного соединения
}

// AuthorizationStatus состояние доступа к камере
type AuthorizationStatus int

const (
	AuthorizationNotDetermined AuthorizationStatus = iota
	AuthorizationAuthorized
	AuthorizationDenied
)

func (s AuthorizationStatus) String() string {
	switch s {
	case AuthorizationAuthorized:
		return "authorized"
	case AuthorizationDenied:
		return "denied"
	default:
		return "not_determined"
	}
}

// SessionState состояние сессии захвата.
// Failed и Stopped терминальны: для повтора нужна новая сессия.
type SessionState int

const (
	SessionIdle SessionState = iota
	SessionConfiguring
	SessionRunning
	SessionStopped
	SessionFailed
)

func (s SessionState) String() string {
	switch s {
	case SessionIdle:
		return "idle"
	case SessionConfiguring:
		return "configuring"
	case SessionRunning:
		return "running"
	case SessionStopped:
		return "stopped"
	case SessionFailed:
		return "failed"
	}
	return "unknown"
}

// Terminal сообщает, что из состояния нет переходов
func (s SessionState) Terminal() bool {
	return s == SessionStopped || s == SessionFailed
}
