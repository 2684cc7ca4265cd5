// Package capture records meeting audio server-side through ffmpeg:
// microphone input, optionally mixed with a system-audio loopback device.
package capture

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/meetscribe/backend/config"
	"github.com/meetscribe/backend/internal/errs"
	"github.com/meetscribe/backend/internal/models"
)

// Recorder manages ffmpeg-based audio capture. At most one capture is
// active at a time; the active capture holds the input devices until Stop
// releases them.
type Recorder struct {
	cfg    config.RecordingConfig
	logger *zap.Logger

	mu     sync.Mutex
	active *activeCapture
}

type activeCapture struct {
	micCmd  *exec.Cmd
	sysCmd  *exec.Cmd
	micPath string
	sysPath string
}

// NewRecorder creates an ffmpeg recorder.
func NewRecorder(cfg config.RecordingConfig, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{cfg: cfg, logger: logger}
}

// CheckFFmpeg verifies ffmpeg is installed.
func (r *Recorder) CheckFFmpeg() error {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return errs.Configuration("ffmpeg not found; install it to enable server-side recording")
	}
	return nil
}

// Active reports whether a capture is in progress.
func (r *Recorder) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active != nil
}

// Start begins capturing microphone audio, and system audio as well when
// requested and a loopback device is configured. When system capture is
// requested but unavailable, recording continues with the microphone only.
func (r *Recorder) Start(includeSystemAudio bool) error {
	if err := r.CheckFFmpeg(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != nil {
		return errs.Input("recording already in progress")
	}

	dir := r.cfg.OutputDir
	if dir == "" {
		dir = os.TempDir()
	}
	stamp := time.Now().UnixNano()
	micPath := filepath.Join(dir, fmt.Sprintf("capture-%d-mic.wav", stamp))

	micCmd := r.captureCmd(r.cfg.MicDevice, micPath)
	if err := micCmd.Start(); err != nil {
		return errs.Service("failed to start recording", err)
	}

	ac := &activeCapture{micCmd: micCmd, micPath: micPath}

	if includeSystemAudio {
		if r.cfg.SystemDevice == "" {
			r.logger.Warn("system audio requested but RECORDING_SYSTEM_DEVICE is not set; recording microphone only")
		} else {
			sysPath := filepath.Join(dir, fmt.Sprintf("capture-%d-sys.wav", stamp))
			sysCmd := r.captureCmd(r.cfg.SystemDevice, sysPath)
			if err := sysCmd.Start(); err != nil {
				r.logger.Warn("could not capture system audio; recording microphone only", zap.Error(err))
			} else {
				ac.sysCmd = sysCmd
				ac.sysPath = sysPath
			}
		}
	}

	r.active = ac
	r.logger.Info("recording started", zap.Bool("system_audio", ac.sysCmd != nil))
	return nil
}

// Stop ends the capture, merges microphone and system tracks when both
// exist, and returns the finished audio object. Every spawned process and
// temp file is released before returning, whether or not the caller keeps
// the result.
func (r *Recorder) Stop() (*models.Audio, error) {
	r.mu.Lock()
	ac := r.active
	r.active = nil
	r.mu.Unlock()

	if ac == nil {
		return nil, errs.Input("no recording in progress")
	}

	defer func() {
		_ = os.Remove(ac.micPath)
		if ac.sysPath != "" {
			_ = os.Remove(ac.sysPath)
		}
	}()

	if err := stopProcess(ac.micCmd); err != nil {
		return nil, errs.Service("failed to stop recording", err)
	}
	if ac.sysCmd != nil {
		if err := stopProcess(ac.sysCmd); err != nil {
			r.logger.Warn("system audio capture did not stop cleanly", zap.Error(err))
			ac.sysPath = ""
		}
	}

	sourcePath := ac.micPath
	if ac.sysPath != "" {
		mergedPath := ac.micPath + ".merged.wav"
		defer os.Remove(mergedPath)
		if err := r.mergeTracks(ac.sysPath, ac.micPath, mergedPath); err != nil {
			r.logger.Warn("merging system audio failed; keeping microphone track", zap.Error(err))
		} else {
			sourcePath = mergedPath
		}
	}

	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return nil, errs.Service("failed to read recording", err)
	}
	r.logger.Info("recording stopped", zap.Int("bytes", len(data)))
	return &models.Audio{Filename: "recording.wav", ContentType: "audio/wav", Data: data}, nil
}

func (r *Recorder) captureCmd(device, outputPath string) *exec.Cmd {
	cmd := exec.Command("ffmpeg",
		"-f", r.cfg.InputFormat,
		"-i", device,
		"-ac", "1",
		"-ar", "16000",
		"-y",
		outputPath,
	)
	// Keep ffmpeg's stderr for diagnostics next to the capture file.
	if logFile, err := os.Create(outputPath + ".ffmpeg.log"); err == nil {
		cmd.Stderr = logFile
	}
	return cmd
}

// mergeTracks mixes system and mic audio into a single mono WAV.
func (r *Recorder) mergeTracks(systemPath, micPath, outputPath string) error {
	cmd := exec.Command("ffmpeg",
		"-i", systemPath,
		"-i", micPath,
		"-filter_complex", "[0:a][1:a]amix=inputs=2:duration=longest:dropout_transition=0[a]",
		"-map", "[a]",
		"-ac", "1",
		"-ar", "16000",
		"-y",
		outputPath,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("merging audio: %w\n%s", err, string(out))
	}
	return nil
}

// stopProcess interrupts ffmpeg so it finalizes the output file, then
// waits for it to exit.
func stopProcess(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return fmt.Errorf("process not started")
	}
	if err := cmd.Process.Signal(syscall.SIGINT); err != nil {
		_ = cmd.Process.Kill()
	}
	err := cmd.Wait()
	// ffmpeg exits non-zero on SIGINT; the output file is still complete.
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return err
	}
	if logFile, ok := cmd.Stderr.(*os.File); ok && logFile != nil {
		name := logFile.Name()
		_ = logFile.Close()
		_ = os.Remove(name)
	}
	return nil
}
