package sim

import (
	"context"
	"time"

	"sova-grid/internal/protocol"
)

// cursor is the playhead of one line, in beats into the current frame.
type cursor struct {
	frame   int
	rep     int
	elapsed float64
}

// Play advances every line's playhead at bpm and broadcasts playback events each tick until
// ctx is done. Disabled frames are skipped.
func (s *Server) Play(ctx context.Context, bpm float64, tick time.Duration) error {
	if bpm <= 0 {
		bpm = 120
	}
	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			s.Advance(tick.Minutes() * bpm)
		}
	}
}

// Advance moves all playheads forward by beats and broadcasts their positions.
func (s *Server) Advance(beats float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for li, l := range s.scene.Lines {
		if len(l.Frames) == 0 {
			delete(s.play, li)
			continue
		}
		c := s.play[li]
		if c == nil {
			c = &cursor{}
			s.play[li] = c
		}
		if c.frame >= len(l.Frames) {
			*c = cursor{}
		}
		speed := l.SpeedFactor
		if speed <= 0 {
			speed = 1
		}
		c.elapsed += beats * speed
		// Bounded so a line of only disabled frames cannot spin.
		for steps := 0; steps <= 2*len(l.Frames)*16; steps++ {
			f := l.Frames[c.frame]
			if f.Enabled && c.elapsed < f.Duration {
				break
			}
			if f.Enabled {
				c.elapsed -= f.Duration
				c.rep++
				if c.rep < f.Repetitions {
					continue
				}
			}
			c.rep = 0
			c.frame = (c.frame + 1) % len(l.Frames)
		}
		f := l.Frames[c.frame]
		progress := 0.0
		if f.Duration > 0 {
			progress = c.elapsed / f.Duration
		}
		s.broadcastLocked(nil, protocol.Event{
			Kind:     protocol.EvPlayback,
			Playback: &protocol.Playback{Line: li, Frame: c.frame, Progress: min(progress, 1)},
		})
	}
}
