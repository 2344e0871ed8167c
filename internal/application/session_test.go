package application

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"capture-session/internal/domain"
)

func newTestSession(driver *fakeDriver, authorizer *fakeAuthorizer) *CaptureSession {
	return NewCaptureSession(driver, authorizer, nil, domain.VideoConfig{}, nopLogger{})
}

func requireClosed(t *testing.T, frames <-chan domain.Frame) {
	t.Helper()
	select {
	case _, ok := <-frames:
		require.False(t, ok, "expected end of stream")
	case <-time.After(time.Second):
		t.Fatal("stream not closed")
	}
}

func TestCaptureSession_StartRuns(t *testing.T) {
	driver := withCamera()
	session := newTestSession(driver, authorized())

	require.NoError(t, session.Start(context.Background()))
	assert.Equal(t, domain.SessionRunning, session.State())

	platform := driver.Last()
	require.NotNil(t, platform)
	assert.True(t, platform.inputAdded)
	assert.True(t, platform.outputAdded)
	assert.True(t, platform.Running())

	require.NoError(t, session.Close())
	assert.Equal(t, domain.SessionStopped, session.State())
	assert.False(t, platform.Running())
	requireClosed(t, session.Frames())
}

func TestCaptureSession_DeniedYieldsUnauthorized(t *testing.T) {
	driver := withCamera()
	session := newTestSession(driver, &fakeAuthorizer{statuses: []domain.AuthorizationStatus{domain.AuthorizationDenied}})

	err := session.Start(context.Background())
	require.Error(t, err)
	kind, ok := domain.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, domain.KindUnauthorized, kind)

	assert.Equal(t, domain.SessionFailed, session.State())
	assert.Empty(t, driver.Platforms(), "no platform session must be created")
	requireClosed(t, session.Frames())
}

func TestCaptureSession_RequestsAccessWhenNotDetermined(t *testing.T) {
	t.Run("granted", func(t *testing.T) {
		authorizer := &fakeAuthorizer{statuses: []domain.AuthorizationStatus{domain.AuthorizationNotDetermined}, grant: true}
		session := newTestSession(withCamera(), authorizer)

		require.NoError(t, session.Start(context.Background()))
		assert.GreaterOrEqual(t, authorizer.requests, 1)
		_ = session.Close()
	})

	t.Run("refused", func(t *testing.T) {
		authorizer := &fakeAuthorizer{statuses: []domain.AuthorizationStatus{domain.AuthorizationNotDetermined}}
		session := newTestSession(withCamera(), authorizer)

		err := session.Start(context.Background())
		assert.True(t, errors.Is(err, domain.ErrUnauthorized))
		assert.Equal(t, 1, authorizer.requests)
	})
}

func TestCaptureSession_SetupFailures(t *testing.T) {
	tests := []struct {
		name   string
		driver *fakeDriver
		kind   domain.ErrorKind
	}{
		{
			name:   "no camera",
			driver: &fakeDriver{},
			kind:   domain.KindMissingDevice,
		},
		{
			name: "device input cannot be opened",
			driver: func() *fakeDriver {
				d := withCamera()
				d.newSessionErr = errBoom
				return d
			}(),
			kind: domain.KindMissingDevice,
		},
		{
			name: "input rejected",
			driver: func() *fakeDriver {
				d := withCamera()
				d.template.addInputErr = errBoom
				return d
			}(),
			kind: domain.KindConfigurationFailed,
		},
		{
			name: "output rejected",
			driver: func() *fakeDriver {
				d := withCamera()
				d.template.addOutputErr = errBoom
				return d
			}(),
			kind: domain.KindConfigurationFailed,
		},
		{
			name: "start rejected",
			driver: func() *fakeDriver {
				d := withCamera()
				d.template.startErr = errBoom
				return d
			}(),
			kind: domain.KindConfigurationFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := newTestSession(tt.driver, authorized())

			err := session.Start(context.Background())
			require.Error(t, err)
			kind, ok := domain.KindOf(err)
			require.True(t, ok)
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, domain.SessionFailed, session.State())
			assert.Equal(t, err, session.Err())

			for _, platform := range tt.driver.Platforms() {
				assert.False(t, platform.Running(), "partial session left running")
				assert.True(t, platform.Stopped())
			}
			requireClosed(t, session.Frames())
		})
	}
}

func TestCaptureSession_AccessRevokedBeforeStart(t *testing.T) {
	driver := withCamera()
	authorizer := &fakeAuthorizer{statuses: []domain.AuthorizationStatus{
		domain.AuthorizationAuthorized,
		domain.AuthorizationDenied,
	}}
	session := newTestSession(driver, authorizer)

	err := session.Start(context.Background())
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))

	platform := driver.Last()
	require.NotNil(t, platform)
	assert.False(t, platform.Running())
	assert.True(t, platform.Stopped())
}

func TestCaptureSession_CanceledContextIsNotADomainError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	session := newTestSession(withCamera(), authorized())
	err := session.Start(ctx)
	require.Error(t, err)

	_, ok := domain.KindOf(err)
	assert.False(t, ok)
	assert.Equal(t, domain.SessionFailed, session.State())
}

func TestCaptureSession_NoRestart(t *testing.T) {
	session := newTestSession(&fakeDriver{}, authorized())
	require.Error(t, session.Start(context.Background()))

	err := session.Start(context.Background())
	assert.True(t, errors.Is(err, ErrSessionNotIdle))

	running := newTestSession(withCamera(), authorized())
	require.NoError(t, running.Start(context.Background()))
	assert.True(t, errors.Is(running.Start(context.Background()), ErrSessionNotIdle))
	_ = running.Close()
	assert.True(t, errors.Is(running.Start(context.Background()), ErrSessionNotIdle))
}

func TestCaptureSession_FramesAndDrops(t *testing.T) {
	driver := withCamera()
	session := newTestSession(driver, authorized())
	require.NoError(t, session.Start(context.Background()))
	defer session.Close()

	platform := driver.Last()

	require.True(t, platform.Emit())
	frame := <-session.Frames()
	assert.Equal(t, uint64(1), frame.Seq)

	platform.Drop()
	platform.Drop()
	require.True(t, platform.Emit())
	require.True(t, platform.Emit())

	frame = <-session.Frames()
	assert.Equal(t, uint64(3), frame.Seq)

	stats := session.Stats()
	assert.Equal(t, uint64(3), stats.Delivered)
	assert.Equal(t, uint64(1), stats.Replaced)
	assert.Equal(t, uint64(2), stats.Dropped)
	assert.Equal(t, domain.SessionRunning, session.State(), "dropped frames are not failures")
	assert.NoError(t, session.Err())
}

func TestCaptureSession_SkipsUnconvertibleSamples(t *testing.T) {
	driver := withCamera()
	session := newTestSession(driver, authorized())
	require.NoError(t, session.Start(context.Background()))
	defer session.Close()

	session.DidOutput(Sample{})
	assert.Equal(t, uint64(1), session.Stats().Skipped)
	assert.Equal(t, uint64(0), session.Stats().Delivered)
}

func TestCaptureSession_CloseIsIdempotent(t *testing.T) {
	driver := withCamera()
	session := newTestSession(driver, authorized())
	require.NoError(t, session.Start(context.Background()))

	require.NoError(t, session.Close())
	require.NoError(t, session.Close())

	assert.False(t, driver.Last().Emit(), "no delivery after close")
	requireClosed(t, session.Frames())
}

func TestCaptureSession_CloseIdle(t *testing.T) {
	session := newTestSession(withCamera(), authorized())
	require.NoError(t, session.Close())
	assert.Equal(t, domain.SessionStopped, session.State())
	requireClosed(t, session.Frames())
}

func TestCaptureSession_RuntimeFailureEndsStream(t *testing.T) {
	driver := withCamera()
	session := newTestSession(driver, authorized())
	require.NoError(t, session.Start(context.Background()))

	platform := driver.Last()
	require.True(t, platform.Emit())
	<-session.Frames()

	platform.Fail(errBoom)
	requireClosed(t, session.Frames())

	require.Eventually(t, func() bool {
		return session.State() == domain.SessionFailed
	}, time.Second, 5*time.Millisecond)
	assert.True(t, errors.Is(session.Err(), errBoom))
	assert.True(t, platform.Stopped())

	require.NoError(t, session.Close())
	assert.Equal(t, domain.SessionFailed, session.State())
}

func TestCaptureSession_CloseWhileAwaitingAccess(t *testing.T) {
	driver := withCamera()
	authorizer := &fakeAuthorizer{
		statuses: []domain.AuthorizationStatus{domain.AuthorizationNotDetermined},
		grant:    true,
		block:    make(chan struct{}),
	}
	session := newTestSession(driver, authorizer)

	started := make(chan error, 1)
	go func() { started <- session.Start(context.Background()) }()

	require.Eventually(t, func() bool {
		return authorizer.Requests() == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, domain.SessionConfiguring, session.State())

	closed := make(chan error, 1)
	go func() { closed <- session.Close() }()
	select {
	case err := <-closed:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("close blocked by pending access request")
	}
	assert.Equal(t, domain.SessionStopped, session.State())
	requireClosed(t, session.Frames())

	close(authorizer.block)
	select {
	case err := <-started:
		assert.True(t, errors.Is(err, ErrSessionClosed))
	case <-time.After(time.Second):
		t.Fatal("start did not return")
	}
	assert.Equal(t, domain.SessionStopped, session.State())
	assert.Empty(t, driver.Platforms(), "no platform session after close")
}
