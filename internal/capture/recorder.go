// Package capture implements the audio capture adapter: an exclusively-owned
// resource that records system (tab) audio plus an optional microphone input
// through ffmpeg, mixes them into a single mono stream, and exposes the
// encoded asset on demand.
package capture

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"
)

// assetPrefix is the data-URL prefix carried by captured assets. Consumers
// strip everything up to the comma before decoding.
const assetPrefix = "data:audio/webm;base64"

// Options configures the recorder's input devices and working directory.
type Options struct {
	// SystemDevice is the ffmpeg input for system/tab audio.
	SystemDevice string
	// MicDevice is the ffmpeg input for the microphone; empty disables it.
	MicDevice string
	// InputFormat is the ffmpeg capture backend (avfoundation, pulse, ...).
	InputFormat string
	// WorkDir holds in-flight capture files; defaults to the OS temp dir.
	WorkDir string
}

// Recorder manages one ffmpeg capture at a time. Start acquires the
// resource; a second Start before Stop is rejected rather than queued.
type Recorder struct {
	opts Options

	mu        sync.Mutex
	cmd       *exec.Cmd
	outPath   string
	lastAsset string
}

// ErrCaptureActive is returned when Start races an in-flight capture.
var ErrCaptureActive = fmt.Errorf("capture already active")

// NewRecorder creates a recorder. ffmpeg availability is checked at Start.
func NewRecorder(opts Options) *Recorder {
	if opts.InputFormat == "" {
		opts.InputFormat = "pulse"
	}
	if opts.SystemDevice == "" {
		opts.SystemDevice = "default"
	}
	if opts.WorkDir == "" {
		opts.WorkDir = os.TempDir()
	}
	return &Recorder{opts: opts}
}

// CheckFFmpeg verifies the ffmpeg binary is on PATH.
func CheckFFmpeg() error {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return fmt.Errorf("ffmpeg not found on PATH")
	}
	return nil
}

// Start launches the capture process. The previous asset is discarded.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cmd != nil {
		return ErrCaptureActive
	}
	if err := CheckFFmpeg(); err != nil {
		return err
	}

	outPath := filepath.Join(r.opts.WorkDir, fmt.Sprintf("capture-%d.webm", time.Now().UnixNano()))

	args := []string{
		"-f", r.opts.InputFormat,
		"-i", r.opts.SystemDevice,
	}
	if r.opts.MicDevice != "" {
		args = append(args,
			"-f", r.opts.InputFormat,
			"-i", r.opts.MicDevice,
			"-filter_complex", "[0:a][1:a]amix=inputs=2:duration=longest:dropout_transition=0[a]",
			"-map", "[a]",
		)
	}
	args = append(args,
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "libopus",
		"-y",
		outPath,
	)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)

	// Keep stderr for diagnostics
	if logFile, err := os.Create(outPath + ".ffmpeg.log"); err == nil {
		cmd.Stderr = logFile
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting ffmpeg: %w", err)
	}

	r.cmd = cmd
	r.outPath = outPath
	r.lastAsset = ""
	return nil
}

// Stop signals ffmpeg to finalize the container and loads the encoded asset.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cmd == nil {
		return fmt.Errorf("no capture active")
	}

	// SIGINT lets ffmpeg write the trailer; Wait reaps the process.
	if err := r.cmd.Process.Signal(syscall.SIGINT); err != nil {
		r.cmd.Process.Kill()
	}
	r.cmd.Wait()
	r.cmd = nil

	data, err := os.ReadFile(r.outPath)
	os.Remove(r.outPath)
	os.Remove(r.outPath + ".ffmpeg.log")
	r.outPath = ""
	if err != nil {
		return fmt.Errorf("reading captured audio: %w", err)
	}

	if len(data) > 0 {
		r.lastAsset = assetPrefix + "," + base64.StdEncoding.EncodeToString(data)
	}
	return nil
}

// LastAsset returns the most recently captured asset as a data-URL string,
// or "" when nothing has been captured.
func (r *Recorder) LastAsset() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastAsset, nil
}

// Discard drops the in-memory captured audio.
func (r *Recorder) Discard() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastAsset = ""
}
