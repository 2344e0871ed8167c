package camera

import (
	"context"
	"image"
	"io"
	"sync"
	"time"

	"github.com/pion/mediadevices/pkg/io/video"
	"github.com/pkg/errors"
	"golang.org/x/image/draw"

	"capture-session/internal/application"
)

// pump читает кадры трека и доставляет их делегату на отдельной горутине.
// Между чтением и доставкой очередь на один кадр: если делегат занят,
// новый кадр отбрасывается и делегат получает DidDrop.
type pump struct {
	reader   video.Reader
	source   io.Closer
	delegate application.SampleDelegate
	logger   application.Logger
	now      func() time.Time

	queue  chan application.Sample
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	startOnce sync.Once
	stopOnce  sync.Once
}

func newPump(reader video.Reader, source io.Closer, delegate application.SampleDelegate, logger application.Logger) *pump {
	ctx, cancel := context.WithCancel(context.Background())
	return &pump{
		reader:   reader,
		source:   source,
		delegate: delegate,
		logger:   logger,
		now:      time.Now,
		queue:    make(chan application.Sample, 1),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (p *pump) start() {
	p.startOnce.Do(func() {
		p.wg.Add(2)
		go p.read()
		go p.deliver()
	})
}

// stop закрывает источник, чтобы разблокировать Read, и ждет обе горутины
func (p *pump) stop() {
	p.stopOnce.Do(func() {
		p.cancel()
		if p.source != nil {
			if err := p.source.Close(); err != nil {
				p.logger.Error("Ошибка закрытия источника кадров: %v", err)
			}
		}
		p.wg.Wait()
	})
}

func (p *pump) read() {
	defer p.wg.Done()

	for {
		img, release, err := p.reader.Read()
		if p.ctx.Err() != nil {
			if release != nil {
				release()
			}
			return
		}
		if err != nil {
			if err == io.EOF {
				err = errors.Wrap(err, "источник кадров завершился")
			}
			p.logger.Error("Ошибка чтения кадра: %v", err)
			p.delegate.DidFail(err)
			return
		}

		// Читатель переиспользует буфер кадра, поэтому в очередь уходит копия
		sample := application.Sample{Image: copyFrame(img), CapturedAt: p.now()}
		if release != nil {
			release()
		}

		select {
		case p.queue <- sample:
		default:
			p.delegate.DidDrop()
		}
	}
}

func (p *pump) deliver() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case sample := <-p.queue:
			if p.ctx.Err() != nil {
				return
			}
			p.delegate.DidOutput(sample)
		}
	}
}

// copyFrame копирует кадр в собственный буфер RGBA
func copyFrame(img image.Image) image.Image {
	if img == nil {
		return nil
	}
	bounds := img.Bounds()
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, img, bounds.Min, draw.Src)
	return dst
}
