package notify

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/hammamikhairi/tomato/internal/domain"
	"github.com/hammamikhairi/tomato/internal/logger"
)

// Chime audio format.
const (
	SampleRate   = 44100
	ChannelCount = 1
)

// Compile-time interface check.
var _ domain.Notifier = (*ChimeNotifier)(nil)

// Player plays raw signed 16-bit little-endian PCM.
type Player interface {
	Play(pcm []byte) error
}

// stopper is implemented by players that can cut playback short.
type stopper interface {
	Stop()
}

// OtoPlayer handles audio playback of PCM data via oto.
type OtoPlayer struct {
	ctx    *oto.Context
	log    *logger.Logger
	mu     sync.Mutex
	active *oto.Player // currently playing, nil when idle
}

// NewOtoPlayer initializes the system audio context. Returns an error if
// the audio device is unavailable. oto allows one context per process.
func NewOtoPlayer(log *logger.Logger) (*OtoPlayer, error) {
	op := &oto.NewContextOptions{
		SampleRate:   SampleRate,
		ChannelCount: ChannelCount,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, err
	}
	<-readyChan

	log.Debug("audio player initialized (rate=%d, channels=%d)", SampleRate, ChannelCount)
	return &OtoPlayer{ctx: ctx, log: log}, nil
}

// Play blocks until the PCM has been played or Stop is called.
func (p *OtoPlayer) Play(pcm []byte) error {
	player := p.ctx.NewPlayer(bytes.NewReader(pcm))

	p.mu.Lock()
	p.active = player
	p.mu.Unlock()

	player.Play()
	p.log.Debug("playing %d bytes of PCM", len(pcm))

	for player.IsPlaying() {
		time.Sleep(10 * time.Millisecond)
	}

	p.mu.Lock()
	p.active = nil
	p.mu.Unlock()

	return player.Close()
}

// Stop interrupts the current playback, if any.
func (p *OtoPlayer) Stop() {
	p.mu.Lock()
	active := p.active
	p.mu.Unlock()

	if active != nil {
		active.Pause()
		p.log.Debug("playback interrupted")
	}
}

// ChimeNotifier plays a short two-tone chime. Playback runs in the
// background so Notify returns at once; a chime requested while one is
// still playing is dropped.
type ChimeNotifier struct {
	player Player
	pcm    []byte
	log    *logger.Logger

	mu      sync.Mutex
	playing bool
	wg      sync.WaitGroup
}

// NewChimeNotifier synthesizes the chime at volume (clamped to [0, 1]).
func NewChimeNotifier(player Player, volume float64, log *logger.Logger) *ChimeNotifier {
	return &ChimeNotifier{
		player: player,
		pcm:    synthChime(volume),
		log:    log,
	}
}

// Notify starts the chime.
func (c *ChimeNotifier) Notify(ctx context.Context, note domain.Notification) error {
	c.mu.Lock()
	if c.playing {
		c.mu.Unlock()
		c.log.Debug("chime already playing, skipping %s", note.ID)
		return nil
	}
	c.playing = true
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := c.player.Play(c.pcm); err != nil {
			c.log.Error("chime playback: %v", err)
		}
		c.mu.Lock()
		c.playing = false
		c.mu.Unlock()
	}()
	return nil
}

// Stop cuts a chime in progress short, if the player supports it.
func (c *ChimeNotifier) Stop() {
	c.mu.Lock()
	playing := c.playing
	c.mu.Unlock()
	if !playing {
		return
	}
	if s, ok := c.player.(stopper); ok {
		s.Stop()
	}
}

// Wait blocks until any chime in progress has finished.
func (c *ChimeNotifier) Wait() {
	c.wg.Wait()
}

type tone struct {
	freq float64
	dur  time.Duration
}

// chimeTones is played in order; zero frequency is silence.
var chimeTones = []tone{
	{880, 180 * time.Millisecond},
	{0, 60 * time.Millisecond},
	{1320, 260 * time.Millisecond},
}

// synthChime renders chimeTones as int16 LE mono PCM with a short attack
// and a linear decay on every tone.
func synthChime(volume float64) []byte {
	volume = math.Max(0, math.Min(1, volume))
	amp := volume * 0.6 * math.MaxInt16

	var buf bytes.Buffer
	sample := make([]byte, 2)
	for _, tn := range chimeTones {
		n := int(tn.dur.Seconds() * SampleRate)
		attack := SampleRate / 200
		for i := 0; i < n; i++ {
			var v float64
			if tn.freq > 0 {
				env := 1 - float64(i)/float64(n)
				if i < attack {
					env *= float64(i) / float64(attack)
				}
				v = amp * env * math.Sin(2*math.Pi*tn.freq*float64(i)/SampleRate)
			}
			binary.LittleEndian.PutUint16(sample, uint16(int16(v)))
			buf.Write(sample)
		}
	}
	return buf.Bytes()
}
