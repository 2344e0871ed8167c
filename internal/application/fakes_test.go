package application

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/pkg/errors"

	"capture-session/internal/domain"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Debug(string, ...interface{}) {}

type recordingLogger struct {
	mu     sync.Mutex
	errors []string
}

func (l *recordingLogger) Info(string, ...interface{}) {}
func (l *recordingLogger) Warn(string, ...interface{}) {}
func (l *recordingLogger) Debug(string, ...interface{}) {}
func (l *recordingLogger) Error(msg string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, fmt.Sprintf(msg, args...))
}

func (l *recordingLogger) Errors() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.errors...)
}

// fakeAuthorizer отдает статусы по очереди, последний повторяется
type fakeAuthorizer struct {
	mu       sync.Mutex
	statuses []domain.AuthorizationStatus
	grant    bool
	requests int
	block    chan struct{} // если задан, RequestAccess ждет его закрытия
}

func authorized() *fakeAuthorizer {
	return &fakeAuthorizer{statuses: []domain.AuthorizationStatus{domain.AuthorizationAuthorized}}
}

func (a *fakeAuthorizer) Status(context.Context) domain.AuthorizationStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	status := a.statuses[0]
	if len(a.statuses) > 1 {
		a.statuses = a.statuses[1:]
	}
	return status
}

func (a *fakeAuthorizer) RequestAccess(context.Context) bool {
	a.mu.Lock()
	a.requests++
	block := a.block
	a.mu.Unlock()

	if block != nil {
		<-block
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	return a.grant
}

func (a *fakeAuthorizer) Requests() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.requests
}

type fakePlatform struct {
	mu           sync.Mutex
	addInputErr  error
	addOutputErr error
	startErr     error
	delegate     SampleDelegate
	inputAdded   bool
	outputAdded  bool
	running      bool
	stopped      bool
}

func (p *fakePlatform) AddInput() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.addInputErr != nil {
		return p.addInputErr
	}
	p.inputAdded = true
	return nil
}

func (p *fakePlatform) AddOutput(delegate SampleDelegate) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.addOutputErr != nil {
		return p.addOutputErr
	}
	p.delegate = delegate
	p.outputAdded = true
	return nil
}

func (p *fakePlatform) StartRunning() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.startErr != nil {
		return p.startErr
	}
	p.running = true
	return nil
}

func (p *fakePlatform) StopRunning() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running = false
	p.stopped = true
}

// Emit доставляет кадр делегату, если сессия запущена
func (p *fakePlatform) Emit() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return false
	}
	p.delegate.DidOutput(Sample{Image: image.NewGray(image.Rect(0, 0, 2, 2)), CapturedAt: time.Now()})
	return true
}

// Drop сообщает делегату об отброшенном кадре
func (p *fakePlatform) Drop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		p.delegate.DidDrop()
	}
}

// Fail сообщает делегату об ошибке захвата, как при отключении камеры
func (p *fakePlatform) Fail(err error) {
	p.mu.Lock()
	running := p.running
	delegate := p.delegate
	p.mu.Unlock()

	if running {
		delegate.DidFail(err)
	}
}

func (p *fakePlatform) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *fakePlatform) Stopped() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopped
}

type fakeDriver struct {
	mu            sync.Mutex
	devices       []domain.VideoDevice
	newSessionErr error
	template      fakePlatform
	platforms     []*fakePlatform
}

func withCamera() *fakeDriver {
	return &fakeDriver{devices: []domain.VideoDevice{{ID: "cam0", Label: "Test Camera", Kind: "videoinput"}}}
}

func (d *fakeDriver) Devices(context.Context) ([]domain.VideoDevice, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]domain.VideoDevice(nil), d.devices...), nil
}

func (d *fakeDriver) DefaultDevice(_ context.Context, preferredID string) (domain.VideoDevice, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, device := range d.devices {
		if preferredID == "" || device.ID == preferredID {
			return device, true
		}
	}
	return domain.VideoDevice{}, false
}

func (d *fakeDriver) NewSession(domain.VideoDevice, domain.VideoConfig) (PlatformSession, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.newSessionErr != nil {
		return nil, d.newSessionErr
	}
	platform := &fakePlatform{
		addInputErr:  d.template.addInputErr,
		addOutputErr: d.template.addOutputErr,
		startErr:     d.template.startErr,
	}
	d.platforms = append(d.platforms, platform)
	return platform, nil
}

func (d *fakeDriver) Platforms() []*fakePlatform {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*fakePlatform(nil), d.platforms...)
}

func (d *fakeDriver) Last() *fakePlatform {
	platforms := d.Platforms()
	if len(platforms) == 0 {
		return nil
	}
	return platforms[len(platforms)-1]
}

// fakeFeed отдает заранее подготовленные подписки
type fakeFeed struct {
	mu           sync.Mutex
	err          error
	frames       chan domain.Frame
	unsubscribed chan struct{}
	subscribes   int
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{
		frames:       make(chan domain.Frame),
		unsubscribed: make(chan struct{}),
	}
}

func (f *fakeFeed) Subscribe(context.Context) (*Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribes++
	if f.err != nil {
		return nil, f.err
	}
	return NewSubscription("fake", f.frames, func() { close(f.unsubscribed) }), nil
}

var errBoom = errors.New("boom")

func frameWithSeq(seq uint64) domain.Frame {
	return domain.Frame{Seq: seq, CapturedAt: time.Now(), Image: image.NewGray(image.Rect(0, 0, 1, 1))}
}
