package decoder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mjibson/go-dsp/wav"

	"jingleid/internal/fingerprint"
	"jingleid/internal/logging"
)

var commandContext = exec.CommandContext

// ErrDecodeFailure wraps every decoding failure.
var ErrDecodeFailure = errors.New("decode failure")

const (
	defaultBinary = "ffmpeg"
	// waitDelay bounds how long Wait keeps reading output after the process
	// is killed.
	waitDelay = 2 * time.Second
)

// Options configures a Decoder.
type Options struct {
	// Binary is the ffmpeg executable. Empty uses "ffmpeg" from PATH.
	Binary string
	// SampleRate resamples the clip. Zero keeps the source rate.
	SampleRate int
	// Timeout bounds one ffmpeg run. Zero disables the limit.
	Timeout time.Duration
	// TempDir receives the intermediate WAV files.
	TempDir string
	Logger  *slog.Logger
}

// Request selects a clip of a media file.
type Request struct {
	Path     string
	Seek     time.Duration
	Duration time.Duration
}

// Decoder runs ffmpeg to extract clips.
type Decoder struct {
	binary     string
	sampleRate int
	timeout    time.Duration
	tempDir    string
	logger     *slog.Logger

	mu         sync.Mutex
	active     int
	createdDir bool
}

// New constructs a Decoder.
func New(opts Options) *Decoder {
	binary := strings.TrimSpace(opts.Binary)
	if binary == "" {
		binary = defaultBinary
	}
	tempDir := strings.TrimSpace(opts.TempDir)
	if tempDir == "" {
		tempDir = filepath.Join(os.TempDir(), "jingleid")
	}
	return &Decoder{
		binary:     binary,
		sampleRate: opts.SampleRate,
		timeout:    opts.Timeout,
		tempDir:    tempDir,
		logger:     logging.NewComponentLogger(opts.Logger, "decoder"),
	}
}

// Binary returns the ffmpeg executable the decoder runs.
func (d *Decoder) Binary() string { return d.binary }

// TempDir returns the scratch directory for intermediate files.
func (d *Decoder) TempDir() string { return d.tempDir }

// Source adapts req to a fingerprint.Source.
func (d *Decoder) Source(req Request) fingerprint.Source {
	return fingerprint.SourceFunc(func(ctx context.Context) (*fingerprint.Waveform, error) {
		return d.Decode(ctx, req)
	})
}

// Decode extracts the requested clip and returns it as a waveform.
func (d *Decoder) Decode(ctx context.Context, req Request) (*fingerprint.Waveform, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(req.Path) == "" {
		return nil, fmt.Errorf("%w: input path required", ErrDecodeFailure)
	}
	if req.Seek < 0 {
		return nil, fmt.Errorf("%w: %s: negative seek %s", ErrDecodeFailure, req.Path, req.Seek)
	}
	if req.Duration < time.Millisecond {
		return nil, fmt.Errorf("%w: %s: duration must be at least 1ms, got %s", ErrDecodeFailure, req.Path, req.Duration)
	}
	if _, err := os.Stat(req.Path); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecodeFailure, err)
	}

	if err := d.acquireTempDir(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecodeFailure, err)
	}
	defer d.releaseTempDir()

	output := filepath.Join(d.tempDir, uuid.NewString()+".wav")
	defer func() {
		if err := os.Remove(output); err != nil && !errors.Is(err, fs.ErrNotExist) {
			d.logger.Warn("remove intermediate wav failed", logging.String("path", output), logging.Error(err))
		}
	}()

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	started := time.Now()
	args := d.args(req, output)
	d.logger.Debug("running ffmpeg",
		logging.String(logging.FieldFile, req.Path),
		logging.String("args", strings.Join(args, " ")),
	)

	cmd := commandContext(ctx, d.binary, args...) //nolint:gosec
	configureProcess(cmd)
	cmd.WaitDelay = waitDelay
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: ffmpeg %s: %w", ErrDecodeFailure, req.Path, ctxErr)
		}
		return nil, fmt.Errorf("%w: ffmpeg %s: %w: %s", ErrDecodeFailure, req.Path, err, strings.TrimSpace(string(out)))
	}

	w, err := readWaveform(output)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecodeFailure, req.Path, err)
	}
	d.logger.Debug("clip decoded",
		logging.String(logging.FieldFile, req.Path),
		logging.Int("samples", w.Len()),
		logging.Int("sample_rate", w.SampleRate()),
		logging.Duration("elapsed", time.Since(started)),
	)
	return w, nil
}

func (d *Decoder) args(req Request, output string) []string {
	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-ss", FormatTimestamp(req.Seek),
		"-i", req.Path,
		"-t", FormatTimestamp(req.Duration),
		"-ac", "1",
	}
	if d.sampleRate > 0 {
		args = append(args, "-ar", strconv.Itoa(d.sampleRate))
	}
	return append(args, "-acodec", "pcm_u8", output, "-y")
}

// acquireTempDir makes sure the scratch directory exists for the duration of
// a decode. A directory created here is removed once the last concurrent
// decode finishes and leaves it empty.
func (d *Decoder) acquireTempDir() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.active == 0 {
		if _, err := os.Stat(d.tempDir); errors.Is(err, fs.ErrNotExist) {
			if err := os.MkdirAll(d.tempDir, 0o755); err != nil {
				return fmt.Errorf("create temp dir: %w", err)
			}
			d.createdDir = true
		} else if err != nil {
			return fmt.Errorf("stat temp dir: %w", err)
		}
	}
	d.active++
	return nil
}

func (d *Decoder) releaseTempDir() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.active--
	if d.active > 0 || !d.createdDir {
		return
	}
	d.createdDir = false
	entries, err := os.ReadDir(d.tempDir)
	if err != nil || len(entries) > 0 {
		return
	}
	if err := os.Remove(d.tempDir); err != nil {
		d.logger.Debug("remove temp dir failed", logging.String("path", d.tempDir), logging.Error(err))
	}
}

func readWaveform(path string) (*fingerprint.Waveform, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open decoded wav: %w", err)
	}
	defer file.Close()

	r, err := wav.New(bufio.NewReader(file))
	if err != nil {
		return nil, fmt.Errorf("read wav header: %w", err)
	}
	if r.NumChannels != 1 {
		return nil, fmt.Errorf("expected mono output, got %d channels", r.NumChannels)
	}
	if r.BitsPerSample != 8 {
		return nil, fmt.Errorf("expected 8-bit output, got %d bits per sample", r.BitsPerSample)
	}
	if r.Samples == 0 {
		return nil, errors.New("decoded clip holds no samples")
	}

	data, err := r.ReadSamples(r.Samples)
	if err != nil {
		return nil, fmt.Errorf("read wav samples: %w", err)
	}
	raw, ok := data.([]uint8)
	if !ok {
		return nil, fmt.Errorf("unexpected sample type %T", data)
	}
	return fingerprint.NewWaveformU8(raw, int(r.SampleRate))
}

// FormatTimestamp renders d as hh:mm:ss, or hh:mm:ss.mmm when d has a
// fractional second. Precision below a millisecond is dropped.
func FormatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	ts := fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
	if ms := int64(d % time.Second / time.Millisecond); ms > 0 {
		ts += fmt.Sprintf(".%03d", ms)
	}
	return ts
}
