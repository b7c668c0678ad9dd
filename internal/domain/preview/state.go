package preview

import (
	"fmt"
	"time"
)

// Границы масштаба изображения.
const (
	ZoomMin     = 0.5
	ZoomMax     = 3.0
	ZoomStep    = 0.25
	ZoomInitial = 1.0
)

// Zoom - масштаб изображения в режиме предпросмотра.
// Нулевое значение не используется, создавайте через NewZoom.
type Zoom struct {
	factor float64
}

// NewZoom возвращает масштаб 100%.
func NewZoom() Zoom {
	return Zoom{factor: ZoomInitial}
}

// Factor - текущий коэффициент.
func (z Zoom) Factor() float64 { return z.factor }

// In увеличивает масштаб на шаг, не выше ZoomMax.
func (z Zoom) In() Zoom {
	return Zoom{factor: min(z.factor+ZoomStep, ZoomMax)}
}

// Out уменьшает масштаб на шаг, не ниже ZoomMin.
func (z Zoom) Out() Zoom {
	return Zoom{factor: max(z.factor-ZoomStep, ZoomMin)}
}

// Reset возвращает масштаб 100%.
func (z Zoom) Reset() Zoom { return NewZoom() }

// Percent - масштаб в процентах для отображения.
func (z Zoom) Percent() string {
	return fmt.Sprintf("%d%%", int(z.factor*100+0.5))
}

// Playback - состояние воспроизведения видео или аудио.
type Playback struct {
	playing  bool
	position time.Duration
	duration time.Duration
}

// NewPlayback создаёт остановленный плеер для медиа заданной длительности.
func NewPlayback(duration time.Duration) *Playback {
	return &Playback{duration: max(duration, 0)}
}

// Playing сообщает, идёт ли воспроизведение.
func (p *Playback) Playing() bool { return p.playing }

// Position - текущая позиция.
func (p *Playback) Position() time.Duration { return p.position }

// Play запускает воспроизведение. В конце медиа начинает сначала.
func (p *Playback) Play() {
	if p.duration > 0 && p.position >= p.duration {
		p.position = 0
	}
	p.playing = true
}

// Pause ставит воспроизведение на паузу.
func (p *Playback) Pause() { p.playing = false }

// Toggle переключает play/pause.
func (p *Playback) Toggle() {
	if p.playing {
		p.Pause()
		return
	}
	p.Play()
}

// Seek переводит позицию, ограничивая её отрезком [0, duration].
func (p *Playback) Seek(pos time.Duration) {
	p.position = min(max(pos, 0), p.duration)
}

// Advance сдвигает позицию на d. На конце медиа воспроизведение останавливается.
func (p *Playback) Advance(d time.Duration) {
	if !p.playing {
		return
	}
	p.Seek(p.position + d)
	if p.position == p.duration {
		p.playing = false
	}
}
