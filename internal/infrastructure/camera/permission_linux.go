//go:build linux

package camera

import (
	"context"
	"path/filepath"

	"golang.org/x/sys/unix"

	"capture-session/internal/domain"
)

// DefaultDevicePattern узлы V4L2 устройств
const DefaultDevicePattern = "/dev/video*"

// DeviceAuthorizer определяет доступ к камере по правам на узлы устройств.
// Узлов нет: доступ не определен. Узлы есть, но ни один не открывается
// на чтение и запись: доступ запрещен.
type DeviceAuthorizer struct {
	pattern string
}

// NewDeviceAuthorizer создает проверку доступа для узлов по шаблону
func NewDeviceAuthorizer(pattern string) *DeviceAuthorizer {
	if pattern == "" {
		pattern = DefaultDevicePattern
	}
	return &DeviceAuthorizer{pattern: pattern}
}

// Status возвращает текущее состояние доступа
func (a *DeviceAuthorizer) Status(ctx context.Context) domain.AuthorizationStatus {
	nodes, err := filepath.Glob(a.pattern)
	if err != nil || len(nodes) == 0 {
		return domain.AuthorizationNotDetermined
	}

	for _, node := range nodes {
		if ctx.Err() != nil {
			return domain.AuthorizationNotDetermined
		}
		if unix.Access(node, unix.R_OK|unix.W_OK) == nil {
			return domain.AuthorizationAuthorized
		}
	}
	return domain.AuthorizationDenied
}

// RequestAccess повторно проверяет права. Запросить их у пользователя
// в Linux нельзя, доступ выдается группой video.
func (a *DeviceAuthorizer) RequestAccess(ctx context.Context) bool {
	return a.Status(ctx) == domain.AuthorizationAuthorized
}
