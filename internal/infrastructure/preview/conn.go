package preview

import (
	"bytes"
	"encoding/json"
	"image/jpeg"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"capture-session/internal/application"
	"capture-session/internal/domain"
)

// Сообщения клиента
const actionDismissAlert = "dismiss_alert"

type alertMessage struct {
	Type    string `json:"type"`
	Kind    string `json:"kind"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Button  string `json:"button"`
}

type clientMessage struct {
	Action string `json:"action"`
}

// conn одно подключение браузера: свой экран камеры и своя подписка на кадры.
// Кадры идут через поток на один кадр, медленный браузер пропускает кадры.
type conn struct {
	ws      *websocket.Conn
	feature *application.CameraFeature
	options Options
	logger  application.Logger

	frames *application.FrameStream
	alerts chan domain.Alert
	done   chan struct{}

	mu        sync.Mutex
	lastFrame *domain.Frame
	lastAlert *domain.Alert

	closeOnce sync.Once
	sent      int
	startTime time.Time
}

func newConn(ws *websocket.Conn, feed application.FeedSubscriber, options Options, logger application.Logger) *conn {
	c := &conn{
		ws:      ws,
		feature: application.NewCameraFeature(feed, logger),
		options: options,
		logger:  logger,
		frames:  application.NewFrameStream(),
		alerts:  make(chan domain.Alert, 1),
		done:    make(chan struct{}),

		startTime: time.Now(),
	}
	c.feature.Observe(c.observe)
	return c
}

// run обслуживает подключение до его закрытия
func (c *conn) run() {
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writeLoop()
	}()

	c.feature.Send(application.StartFeed{})
	c.readLoop()

	c.feature.Stop()
	c.frames.Finish()
	c.close()
	<-writerDone

	stats := c.frames.Stats()
	c.logger.Debug("Подключение закрыто: отправлено %d, пропущено %d кадров", c.sent, stats.Replaced)
}

// close закрывает сокет, что прерывает чтение
func (c *conn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}

// observe вызывается экраном камеры при каждом изменении состояния
func (c *conn) observe(state application.CameraState) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if state.PreviewImage != nil && state.PreviewImage != c.lastFrame {
		c.lastFrame = state.PreviewImage
		c.frames.Yield(*state.PreviewImage)
	}

	if state.Alert != c.lastAlert {
		c.lastAlert = state.Alert
		if state.Alert == nil {
			return
		}
		// Новое сообщение заменяет неотправленное
		select {
		case <-c.alerts:
		default:
		}
		c.alerts <- *state.Alert
	}
}

func (c *conn) readLoop() {
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Debug("Ошибка чтения: %v", err)
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Warn("Некорректное сообщение клиента: %v", err)
			continue
		}
		switch msg.Action {
		case actionDismissAlert:
			c.feature.Send(application.AlertDismissed{})
		default:
			c.logger.Warn("Неизвестное действие клиента: %q", msg.Action)
		}
	}
}

func (c *conn) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case alert := <-c.alerts:
			if err := c.sendAlert(alert); err != nil {
				c.logger.Error("Ошибка отправки сообщения: %v", err)
				c.close()
				return
			}
		case frame, ok := <-c.frames.Frames():
			if !ok {
				return
			}
			if err := c.sendFrame(frame); err != nil {
				c.logger.Error("Ошибка отправки кадра: %v", err)
				c.close()
				return
			}
		}
	}
}

func (c *conn) sendAlert(alert domain.Alert) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(c.options.WriteTimeout)); err != nil {
		return err
	}
	return c.ws.WriteJSON(alertMessage{
		Type:    "alert",
		Kind:    alert.Kind.String(),
		Title:   alert.Title,
		Message: alert.Message,
		Button:  alert.Button,
	})
}

func (c *conn) sendFrame(frame domain.Frame) error {
	if frame.Image == nil {
		return nil
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame.Image, &jpeg.Options{Quality: c.options.JPEGQuality}); err != nil {
		return errors.Wrapf(err, "кодирование кадра %d", frame.Seq)
	}

	if err := c.ws.SetWriteDeadline(time.Now().Add(c.options.WriteTimeout)); err != nil {
		return err
	}
	if err := c.ws.WriteMessage(websocket.BinaryMessage, buf.Bytes()); err != nil {
		return err
	}

	c.sent++
	if c.sent%30 == 0 {
		elapsed := time.Since(c.startTime).Seconds()
		c.logger.Debug("Отправлено кадров: %d, FPS: %.2f, размер последнего кадра: %d байт",
			c.sent, float64(c.sent)/elapsed, buf.Len())
	}
	return nil
}
