//go:build !linux

package camera

import (
	"context"

	"capture-session/internal/domain"
)

// DefaultDevicePattern не используется вне Linux
const DefaultDevicePattern = ""

// DeviceAuthorizer считает доступ выданным: проверку выполняет драйвер при открытии
type DeviceAuthorizer struct{}

// NewDeviceAuthorizer создает проверку доступа
func NewDeviceAuthorizer(string) *DeviceAuthorizer {
	return &DeviceAuthorizer{}
}

// Status возвращает текущее состояние доступа
func (a *DeviceAuthorizer) Status(context.Context) domain.AuthorizationStatus {
	return domain.AuthorizationAuthorized
}

// RequestAccess всегда разрешает доступ
func (a *DeviceAuthorizer) RequestAccess(context.Context) bool {
	return true
}
