package application

import (
	"context"
	"sync"

	"capture-session/internal/domain"
)

// CameraState наблюдаемое состояние экрана камеры
type CameraState struct {
	PreviewImage *domain.Frame
	Alert        *domain.Alert
}

// CameraAction действие экрана камеры
type CameraAction interface {
	cameraAction()
}

// StartFeed запускает подписку на кадры
type StartFeed struct{}

// FrameReceived новый кадр из подписки
type FrameReceived struct {
	Frame domain.Frame
}

// CameraFailed ошибка, полученная от менеджера камеры
type CameraFailed struct {
	Err error
}

// AlertDismissed пользователь закрыл сообщение
type AlertDismissed struct{}

func (StartFeed) cameraAction()      {}
func (FrameReceived) cameraAction()  {}
func (CameraFailed) cameraAction()   {}
func (AlertDismissed) cameraAction() {}

// Effect побочный эффект, который должен выполнить рантайм
type Effect int

const (
	EffectNone Effect = iota
	EffectRunFeed
)

// ReduceCamera применяет действие к состоянию
func ReduceCamera(state *CameraState, action CameraAction) Effect {
	switch action := action.(type) {
	case StartFeed:
		return EffectRunFeed

	case FrameReceived:
		frame := action.Frame
		state.PreviewImage = &frame

	case CameraFailed:
		// Нераспознанные ошибки только логируются рантаймом
		if kind, ok := domain.KindOf(action.Err); ok {
			alert := domain.AlertFor(kind)
			state.Alert = &alert
		}

	case AlertDismissed:
		state.Alert = nil
	}
	return EffectNone
}

// CameraFeature держит одну подписку, последний кадр и сообщения об ошибках
type CameraFeature struct {
	feed   FeedSubscriber
	logger Logger

	mu        sync.RWMutex
	state     CameraState
	observers []func(CameraState)

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewCameraFeature создает экран камеры
func NewCameraFeature(feed FeedSubscriber, logger Logger) *CameraFeature {
	return &CameraFeature{
		feed:   feed,
		logger: logger,
	}
}

// State возвращает копию текущего состояния
func (f *CameraFeature) State() CameraState {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.state
}

// Observe регистрирует наблюдателя за изменениями состояния.
// Наблюдатели вызываются на горутине, отправившей действие,
// и не должны вызывать Stop или отправлять StartFeed.
func (f *CameraFeature) Observe(observer func(CameraState)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.observers = append(f.observers, observer)
}

// Send применяет действие и выполняет эффект
func (f *CameraFeature) Send(action CameraAction) {
	if failed, ok := action.(CameraFailed); ok {
		f.logger.Error("Ошибка камеры: %v", failed.Err)
		if _, known := domain.KindOf(failed.Err); !known {
			return
		}
	}

	f.mu.Lock()
	effect := ReduceCamera(&f.state, action)
	state := f.state
	observers := append([]func(CameraState){}, f.observers...)
	f.mu.Unlock()

	for _, observer := range observers {
		observer(state)
	}

	if effect == EffectRunFeed {
		f.runFeed()
	}
}

// runFeed запускает подписку, отменяя предыдущую
func (f *CameraFeature) runFeed() {
	f.runMu.Lock()
	defer f.runMu.Unlock()

	f.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	f.cancel = cancel
	f.done = done

	go func() {
		defer close(done)
		f.consume(ctx)
	}()
}

// consume читает кадры до конца потока или отмены
func (f *CameraFeature) consume(ctx context.Context) {
	subscription, err := f.feed.Subscribe(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		f.Send(CameraFailed{Err: err})
		return
	}
	defer subscription.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-subscription.Frames():
			if !ok {
				return
			}
			// Отмена проверяется между кадрами
			if ctx.Err() != nil {
				return
			}
			f.Send(FrameReceived{Frame: frame})
		}
	}
}

// Stop отменяет подписку и ждет завершения чтения
func (f *CameraFeature) Stop() {
	f.runMu.Lock()
	defer f.runMu.Unlock()
	f.stopLocked()
}

func (f *CameraFeature) stopLocked() {
	if f.cancel == nil {
		return
	}
	f.cancel()
	<-f.done
	f.cancel = nil
	f.done = nil
}
