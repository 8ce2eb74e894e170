// Command voicemod runs a live voice transformer: microphone input is pitch
// shifted, optionally robotized, and played back in real time. Keyboard
// input adjusts the parameters while the stream runs.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cwbudde/algo-voicemod/control"
	"github.com/cwbudde/algo-voicemod/engine"
	"github.com/cwbudde/algo-voicemod/internal/audioio"
	"github.com/cwbudde/algo-voicemod/internal/conf"
	"github.com/cwbudde/algo-voicemod/internal/keys"
)

func main() {
	if err := rootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:          "voicemod",
		Short:        "Real-time voice transformer",
		Long:         "Captures the microphone, applies a pitch shift and a robotic effect, and plays the result back live.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v := conf.NewViper(configFile)
			if err := bindFlags(v, cmd); err != nil {
				return err
			}

			settings, err := conf.Load(v, configFile != "")
			if err != nil {
				return err
			}

			return run(settings)
		},
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "path to config file")

	flags := cmd.Flags()
	flags.Float64("semitones", 3.0, "initial pitch offset in semitones")
	flags.Float64("step", 0.5, "pitch change per keypress in semitones")
	flags.Bool("robotic", true, "start with the robotic effect enabled")
	flags.Float64("intensity", 0.7, "robotic ring-modulation intensity (0..1)")
	flags.Float64("carrier", 95.0, "robotic carrier frequency in Hz")
	flags.Int("bitdepth", 10, "robotic bit-crush depth in bits")
	flags.Float64("gain", 2.2, "output gain before peak normalization")
	flags.Int("blocksize", engine.DefaultBlockSize, "processing block size in frames (power of two)")
	flags.Bool("hq", false, "high-quality mode (block size 1024, higher latency)")
	flags.String("input", "", "capture device ID or name substring")
	flags.String("output", "", "playback device ID or name substring")
	flags.Bool("debug", false, "enable debug logging")

	cmd.AddCommand(devicesCommand())

	return cmd
}

func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	bindings := map[string]string{
		"effects.semitones":  "semitones",
		"effects.step":       "step",
		"effects.robotic":    "robotic",
		"effects.intensity":  "intensity",
		"effects.carrierhz":  "carrier",
		"effects.bitdepth":   "bitdepth",
		"effects.outputgain": "gain",
		"audio.blocksize":    "blocksize",
		"audio.inputdevice":  "input",
		"audio.outputdevice": "output",
		"debug":              "debug",
	}

	for key, flag := range bindings {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}

	if hq, err := cmd.Flags().GetBool("hq"); err == nil && hq {
		v.Set("audio.blocksize", engine.HighQualityBlockSize)
	}

	return nil
}

func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func run(settings *conf.Settings) error {
	logger := newLogger(settings.Debug)
	slog.SetDefault(logger)

	ctrl := control.NewState(
		control.WithDefaultSemitones(settings.Effects.Semitones),
		control.WithStep(settings.Effects.Step),
		control.WithRoboticEnabled(settings.Effects.Robotic),
	)

	cfg := engine.Config{
		SampleRate:       settings.Audio.SampleRate,
		BlockSize:        settings.Audio.BlockSize,
		OutputGain:       settings.Effects.OutputGain,
		NormalizeTarget:  settings.Effects.NormalizeTarget,
		RoboticIntensity: settings.Effects.Intensity,
		CarrierHz:        settings.Effects.CarrierHz,
		BitDepth:         settings.Effects.BitDepth,
	}

	provider := audioio.New(
		audioio.WithInputDevice(settings.Audio.InputDevice),
		audioio.WithOutputDevice(settings.Audio.OutputDevice),
		audioio.WithLogger(logger),
	)

	eng, err := engine.New(cfg, ctrl, provider)
	if err != nil {
		return err
	}

	if err := eng.Open(); err != nil {
		return err
	}
	defer eng.Close()

	reader := keys.NewReader()
	if err := reader.Start(); err != nil {
		return err
	}
	defer reader.Close()

	if err := eng.Start(); err != nil {
		return err
	}

	logger.Info("stream running",
		"samplerate", cfg.SampleRate,
		"blocksize", cfg.BlockSize,
		"latency_ms", 1000*cfg.BlockPeriod(),
	)
	printHelp()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	printStatus(ctrl.Snapshot())

	for {
		select {
		case e, ok := <-reader.Events():
			if !ok || e == control.EventQuit {
				fmt.Print("\r\n")
				return eng.Stop()
			}

			ctrl.Apply(e)
			printStatus(ctrl.Snapshot())

		case d := <-eng.Diagnostics():
			logger.Warn("audio fault", "event", d.String())

			if d == engine.DiagStreamStopped {
				fmt.Print("\r\n")
				return eng.Err()
			}

		case <-sigCh:
			fmt.Print("\r\n")
			return eng.Stop()
		}
	}
}

func printHelp() {
	fmt.Print("controls: +/- or arrows pitch, r robotic, p push-to-talk, space talk, 0 reset, q quit\r\n")
}

func printStatus(snap control.Snapshot) {
	onOff := func(b bool) string {
		if b {
			return "on"
		}

		return "off"
	}

	talk := ""
	if snap.PushToTalk {
		talk = fmt.Sprintf("  talk:%s", onOff(snap.Talking))
	}

	// Rewrite the status line in place; raw mode keeps the cursor on it.
	fmt.Printf("\rpitch:%+5.1f st  robotic:%-3s  ptt:%-3s%s   ",
		snap.Semitones, onOff(snap.Robotic), onOff(snap.PushToTalk), talk)
}

func devicesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List capture and playback devices",
		RunE: func(_ *cobra.Command, _ []string) error {
			for _, dir := range []audioio.Direction{audioio.DirectionInput, audioio.DirectionOutput} {
				devices, err := audioio.ListDevices(dir)
				if err != nil {
					return err
				}

				fmt.Printf("%s devices:\n", dir)

				for _, d := range devices {
					marker := " "
					if d.IsDefault {
						marker = "*"
					}

					fmt.Printf("  %s %d: %s (%s)\n", marker, d.Index, d.Name, d.ID)
				}
			}

			return nil
		},
	}
}
