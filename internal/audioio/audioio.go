// Package audioio bridges the engine to the miniaudio backend. It owns the
// duplex device, converts between the backend's f32le byte frames and the
// engine's float64 blocks, and keeps the data callback allocation-free.
package audioio

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/gen2brain/malgo"

	"github.com/cwbudde/algo-voicemod/engine"
)

// Provider implements engine.Provider on top of a malgo duplex device:
// mono float32 capture, stereo float32 playback, one fixed period per block.
type Provider struct {
	inputName  string
	outputName string
	logger     *slog.Logger

	ctx    *malgo.AllocatedContext
	device *malgo.Device

	onBlock engine.DataFunc
	onStop  engine.StopFunc

	inBuf  []float64
	outBuf []float64

	// stopping marks an intentional Stop or Close so the backend's stop
	// callback can tell expected halts from device loss.
	stopping atomic.Bool
}

// Option configures a Provider.
type Option func(*Provider)

// WithInputDevice selects the capture device by decoded ID or name
// substring. Empty means the system default.
func WithInputDevice(name string) Option {
	return func(p *Provider) {
		p.inputName = name
	}
}

// WithOutputDevice selects the playback device by decoded ID or name
// substring. Empty means the system default.
func WithOutputDevice(name string) Option {
	return func(p *Provider) {
		p.outputName = name
	}
}

// WithLogger sets the logger for backend messages. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates an unopened provider.
func New(opts ...Option) *Provider {
	p := &Provider{logger: slog.Default()}

	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}

	return p
}

// Open initializes the backend context and the duplex device. The stream
// does not run until Start.
func (p *Provider) Open(cfg engine.StreamConfig, onBlock engine.DataFunc, onStop engine.StopFunc) error {
	if p.ctx != nil {
		return errors.New("audio provider already open")
	}

	if onBlock == nil {
		return errors.New("audio provider needs a block callback")
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		p.logger.Debug("miniaudio", "message", message)
	})
	if err != nil {
		return fmt.Errorf("init audio context: %w", err)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Duplex)
	deviceConfig.PerformanceProfile = malgo.LowLatency
	deviceConfig.SampleRate = uint32(cfg.SampleRate)
	deviceConfig.PeriodSizeInFrames = uint32(cfg.BlockSize)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = uint32(cfg.InputChannels)
	deviceConfig.Playback.Format = malgo.FormatF32
	deviceConfig.Playback.Channels = uint32(cfg.OutputChannels)
	deviceConfig.Alsa.NoMMap = 1
	deviceConfig.Wasapi.NoAutoConvertSRC = 1

	if p.inputName != "" {
		id, err := resolveDevice(ctx, malgo.Capture, p.inputName)
		if err != nil {
			uninitContext(ctx)
			return fmt.Errorf("select input device: %w", err)
		}

		deviceConfig.Capture.DeviceID = id
	}

	if p.outputName != "" {
		id, err := resolveDevice(ctx, malgo.Playback, p.outputName)
		if err != nil {
			uninitContext(ctx)
			return fmt.Errorf("select output device: %w", err)
		}

		deviceConfig.Playback.DeviceID = id
	}

	p.onBlock = onBlock
	p.onStop = onStop
	p.inBuf = make([]float64, cfg.BlockSize)
	p.outBuf = make([]float64, cfg.BlockSize*cfg.OutputChannels)

	inChannels := cfg.InputChannels
	outChannels := cfg.OutputChannels

	callbacks := malgo.DeviceCallbacks{
		Data: func(outputSamples, inputSamples []byte, frameCount uint32) {
			p.processBytes(outputSamples, inputSamples, int(frameCount), inChannels, outChannels)
		},
		Stop: func() {
			if p.stopping.Load() {
				return
			}

			if p.onStop != nil {
				p.onStop(errors.New("audio stream stopped by backend"))
			}
		},
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, callbacks)
	if err != nil {
		uninitContext(ctx)
		return fmt.Errorf("init duplex device: %w", err)
	}

	p.ctx = ctx
	p.device = device

	return nil
}

// Start begins the duplex stream.
func (p *Provider) Start() error {
	if p.device == nil {
		return errors.New("audio provider not open")
	}

	p.stopping.Store(false)

	if err := p.device.Start(); err != nil {
		return fmt.Errorf("start duplex device: %w", err)
	}

	return nil
}

// Stop halts the stream without releasing the device.
func (p *Provider) Stop() error {
	if p.device == nil {
		return errors.New("audio provider not open")
	}

	p.stopping.Store(true)

	if err := p.device.Stop(); err != nil {
		return fmt.Errorf("stop duplex device: %w", err)
	}

	return nil
}

// Close releases the device and the backend context.
func (p *Provider) Close() error {
	p.stopping.Store(true)

	if p.device != nil {
		p.device.Uninit()
		p.device = nil
	}

	if p.ctx != nil {
		err := p.ctx.Uninit()
		p.ctx.Free()
		p.ctx = nil

		if err != nil {
			return fmt.Errorf("uninit audio context: %w", err)
		}
	}

	return nil
}

// processBytes converts one backend period and hands it to the engine. The
// backend may deliver a different frame count than requested during startup
// or drain; the engine silences such blocks.
func (p *Provider) processBytes(outputSamples, inputSamples []byte, frameCount, inChannels, outChannels int) {
	in := p.inBuf
	out := p.outBuf

	if frameCount != len(p.inBuf) {
		// Off-size periods are rare; a fitted slice keeps the common
		// path allocation-free.
		in = make([]float64, frameCount)
		out = make([]float64, frameCount*outChannels)
	}

	decodeMonoF32(in, inputSamples, inChannels)
	p.onBlock(in, out)
	encodeF32(outputSamples, out)
}

func uninitContext(ctx *malgo.AllocatedContext) {
	_ = ctx.Uninit()
	ctx.Free()
}
