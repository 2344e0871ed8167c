package domain

import (
	"github.com/pkg/errors"
)

// ErrorKind вид ошибки настройки сессии
type ErrorKind int

const (
	KindUnauthorized ErrorKind = iota + 1
	KindMissingDevice
	KindConfigurationFailed
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindMissingDevice:
		return "missing_device"
	case KindConfigurationFailed:
		return "configuration_failed"
	}
	return "unknown"
}

// Err возвращает ошибку, соответствующую виду
func (k ErrorKind) Err() error {
	switch k {
	case KindUnauthorized:
		return ErrUnauthorized
	case KindMissingDevice:
		return ErrMissingDevice
	case KindConfigurationFailed:
		return ErrConfigurationFailed
	}
	return nil
}

var (
	ErrUnauthorized        = errors.New("camera access unauthorized")
	ErrMissingDevice       = errors.New("no video camera found")
	ErrConfigurationFailed = errors.New("capture session configuration failed")
)

// KindOf определяет вид ошибки, в том числе обернутой.
// Для нераспознанных ошибок возвращает false.
func KindOf(err error) (ErrorKind, bool) {
	switch {
	case err == nil:
		return 0, false
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized, true
	case errors.Is(err, ErrMissingDevice):
		return KindMissingDevice, true
	case errors.Is(err, ErrConfigurationFailed):
		return KindConfigurationFailed, true
	}
	return 0, false
}
