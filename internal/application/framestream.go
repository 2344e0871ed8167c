package application

import (
	"sync"

	"capture-session/internal/domain"
)

// FrameStreamStats счетчики потока кадров
type FrameStreamStats struct {
	Yielded  uint64 // Опубликовано кадров
	Replaced uint64 // Вытеснено непрочитанных кадров
}

// FrameStream канал на один кадр: новый кадр вытесняет непрочитанный старый.
// Публикация никогда не блокируется.
type FrameStream struct {
	mu       sync.Mutex
	ch       chan domain.Frame
	finished bool
	stats    FrameStreamStats
}

// NewFrameStream создает пустой поток
func NewFrameStream() *FrameStream {
	return &FrameStream{ch: make(chan domain.Frame, 1)}
}

// Frames возвращает канал для чтения. Канал закрывается после Finish.
func (s *FrameStream) Frames() <-chan domain.Frame {
	return s.ch
}

// Yield публикует кадр и сообщает, был ли вытеснен непрочитанный кадр.
// После Finish ничего не делает.
func (s *FrameStream) Yield(frame domain.Frame) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finished {
		return false
	}

	replaced := false
	select {
	case <-s.ch:
		replaced = true
		s.stats.Replaced++
	default:
	}

	// Слот пуст, а писатель только один (под мьютексом)
	s.ch <- frame
	s.stats.Yielded++
	return replaced
}

// Finish закрывает поток. Повторный вызов безопасен.
func (s *FrameStream) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finished {
		return
	}
	s.finished = true
	close(s.ch)
}

// Finished сообщает, закрыт ли поток
func (s *FrameStream) Finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished
}

// Stats возвращает счетчики
func (s *FrameStream) Stats() FrameStreamStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}
