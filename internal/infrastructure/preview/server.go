package preview

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"capture-session/internal/application"
)

// SessionLister источник списка активных сессий захвата
type SessionLister interface {
	Len() int
	IDs() []string
}

// Options параметры сервера превью
type Options struct {
	JPEGQuality  int           // Качество JPEG, по умолчанию 75
	WriteTimeout time.Duration // Таймаут записи в WebSocket, по умолчанию 5с
}

// Server раздает превью камеры браузерам через WebSocket
type Server struct {
	feed     application.FeedSubscriber
	sessions SessionLister
	logger   application.Logger
	options  Options

	router   *mux.Router
	upgrader websocket.Upgrader

	mu     sync.Mutex
	conns  map[*conn]struct{}
	closed bool
	wg     sync.WaitGroup
}

// NewServer создает сервер превью
func NewServer(feed application.FeedSubscriber, sessions SessionLister, options Options, logger application.Logger) *Server {
	if options.JPEGQuality <= 0 || options.JPEGQuality > 100 {
		options.JPEGQuality = 75
	}
	if options.WriteTimeout <= 0 {
		options.WriteTimeout = 5 * time.Second
	}

	s := &Server{
		feed:     feed,
		sessions: sessions,
		logger:   logger,
		options:  options,
		router:   mux.NewRouter(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Разрешаем все подключения
			},
		},
		conns: make(map[*conn]struct{}),
	}

	s.router.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	s.router.HandleFunc("/ws", s.handleWS).Methods(http.MethodGet)
	s.router.HandleFunc("/api/sessions", s.handleSessions).Methods(http.MethodGet)

	return s
}

// Handler возвращает HTTP обработчик сервера
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe запускает сервер и останавливает его при отмене ctx
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Запуск сервера превью на %s...", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.Close()
		return errors.Wrap(err, "сервер превью")
	case <-ctx.Done():
	}

	s.logger.Info("Остановка сервера превью...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := httpServer.Shutdown(shutdownCtx)
	s.Close()
	if err != nil {
		return errors.Wrap(err, "остановка сервера превью")
	}
	return nil
}

// Close закрывает все WebSocket подключения и ждет их завершения
func (s *Server) Close() {
	s.mu.Lock()
	s.closed = true
	conns := make([]*conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.close()
	}
	s.wg.Wait()
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Ошибка при апгрейде до WebSocket: %v", err)
		return
	}

	c := newConn(ws, s.feed, s.options, s.logger)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		c.close()
		return
	}
	s.conns[c] = struct{}{}
	s.wg.Add(1)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.conns, c)
		s.mu.Unlock()
		s.wg.Done()
	}()

	clientAddr := ws.RemoteAddr().String()
	s.logger.Info("Клиент подключен: %s", clientAddr)
	c.run()
	s.logger.Info("Клиент отключен: %s", clientAddr)
}

type sessionsResponse struct {
	Active int      `json:"active"`
	IDs    []string `json:"ids"`
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	ids := s.sessions.IDs()
	if ids == nil {
		ids = []string{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(sessionsResponse{Active: len(ids), IDs: ids}); err != nil {
		s.logger.Error("Ошибка ответа со списком сессий: %v", err)
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, indexPage, s.sessions.Len())
}

const indexPage = `<!DOCTYPE html>
<html>
<head>
	<title>Превью камеры</title>
	<style>
		body { font-family: Arial, sans-serif; margin: 40px; }
		.status { padding: 20px; background-color: #e0f7fa; border-radius: 5px; }
		.alert { padding: 20px; background-color: #ffebee; border-radius: 5px; display: none; }
		img { max-width: 100%%; margin-top: 20px; }
	</style>
</head>
<body>
	<h1>Превью камеры</h1>
	<div class="status">
		<p>Сервер запущен, активных сессий захвата: %d</p>
	</div>
	<div class="alert" id="alert">
		<h3 id="alert-title"></h3>
		<p id="alert-message"></p>
		<button id="alert-button"></button>
	</div>
	<img id="preview" alt="">
	<script>
		const ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/ws");
		ws.binaryType = "blob";
		const img = document.getElementById("preview");
		const alertBox = document.getElementById("alert");
		ws.onmessage = (event) => {
			if (typeof event.data !== "string") {
				const url = URL.createObjectURL(event.data);
				img.onload = () => URL.revokeObjectURL(url);
				img.src = url;
				return;
			}
			const msg = JSON.parse(event.data);
			if (msg.type !== "alert") return;
			document.getElementById("alert-title").textContent = msg.title;
			document.getElementById("alert-message").textContent = msg.message;
			const button = document.getElementById("alert-button");
			button.textContent = msg.button;
			button.onclick = () => {
				alertBox.style.display = "none";
				ws.send(JSON.stringify({action: "dismiss_alert"}));
			};
			alertBox.style.display = "block";
		};
	</script>
</body>
</html>
`
