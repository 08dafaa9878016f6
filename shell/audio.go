package shell

import (
	"encoding/binary"
	"math"
	"sync/atomic"

	"github.com/ebitengine/oto/v3"
	"github.com/rs/zerolog"
)

const (
	audioSampleRate = 48000
	audioChannels   = 2
	audioAmplitude  = 0.20
)

type audioCmd struct {
	ona  int8
	mute bool
	// isMute distinguishes the two command kinds.
	isMute bool
}

// Audio owns the output stream on a dedicated goroutine. Commands
// arrive over a channel; the stream callback reads only two atomics
// (frequency bits and the mute flag) per buffer.
type Audio struct {
	cmds chan audioCmd
	log  zerolog.Logger
}

// audioState is shared between the command goroutine and the synth.
type audioState struct {
	freqBits atomic.Uint32
	muted    atomic.Bool
}

// NewAudio spawns the audio goroutine. Stream setup is lazy: nothing
// touches the audio device until the first command arrives.
func NewAudio(log zerolog.Logger) *Audio {
	a := &Audio{
		cmds: make(chan audioCmd, 16),
		log:  log,
	}
	go a.run()
	return a
}

// Snd sets the tone to the given note index (0 silences).
func (a *Audio) Snd(ona int8) {
	select {
	case a.cmds <- audioCmd{ona: ona}:
	default:
	}
}

// Mute toggles the mute flag; muting also silences the current tone.
func (a *Audio) Mute(val bool) {
	select {
	case a.cmds <- audioCmd{mute: val, isMute: true}:
	default:
	}
}

func (a *Audio) run() {
	state := &audioState{}
	var player *oto.Player
	initFailed := false

	for cmd := range a.cmds {
		if player == nil && !initFailed {
			p, err := startStream(state)
			if err != nil {
				initFailed = true
				a.log.Warn().Err(err).Msg("audio unavailable")
			} else {
				player = p
			}
		}

		if cmd.isMute {
			state.muted.Store(cmd.mute)
			if cmd.mute {
				state.freqBits.Store(math.Float32bits(0))
			}
			continue
		}
		state.freqBits.Store(math.Float32bits(float32(onaToFreqHz(cmd.ona))))
	}
}

func startStream(state *audioState) (*oto.Player, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   audioSampleRate,
		ChannelCount: audioChannels,
		Format:       oto.FormatFloat32LE,
	})
	if err != nil {
		return nil, err
	}
	<-ready

	player := ctx.NewPlayer(&sineSynth{state: state})
	player.Play()
	return player, nil
}

// sineSynth streams float32 samples from the shared atomics. It holds
// no locks and allocates nothing per Read, so the audio path stays
// realtime-safe.
type sineSynth struct {
	state *audioState
	phase float64
}

func (s *sineSynth) Read(buf []byte) (int, error) {
	freq := float64(math.Float32frombits(s.state.freqBits.Load()))
	muted := s.state.muted.Load()

	amp := audioAmplitude
	if muted || freq <= 0 {
		amp = 0
	}
	step := 0.0
	if amp > 0 {
		step = 2 * math.Pi * freq / audioSampleRate
	}

	const frameBytes = 4 * audioChannels
	frames := len(buf) / frameBytes
	for i := 0; i < frames; i++ {
		var sample float32
		if amp > 0 {
			sample = float32(math.Sin(s.phase) * amp)
			s.phase += step
			if s.phase >= 2*math.Pi {
				s.phase -= 2 * math.Pi
			}
		}
		bits := math.Float32bits(sample)
		off := i * frameBytes
		for ch := 0; ch < audioChannels; ch++ {
			binary.LittleEndian.PutUint32(buf[off+ch*4:], bits)
		}
	}
	return frames * frameBytes, nil
}

// onaToFreqHz maps a TempleOS note index to Hz: 0 is silence, 60 is
// 440 Hz.
func onaToFreqHz(ona int8) float64 {
	if ona == 0 {
		return 0
	}
	return 440.0 / 32.0 * math.Pow(2, float64(ona)/12.0)
}
