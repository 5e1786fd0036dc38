// Package ffmpeg implements sampler.Decoder on top of the ffprobe and ffmpeg
// command-line tools.
package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

var commandContext = exec.CommandContext

type Option func(*Decoder)

func WithFFprobe(binary string) Option {
	return func(d *Decoder) {
		if binary != "" {
			d.ffprobe = binary
		}
	}
}

func WithFFmpeg(binary string) Option {
	return func(d *Decoder) {
		if binary != "" {
			d.ffmpeg = binary
		}
	}
}

// Decoder seeks into a video file and extracts single frames as JPEG.
type Decoder struct {
	ffprobe string
	ffmpeg  string
	path    string
	fps     float64
	frames  int
}

// Open probes path and returns a decoder for its first video stream.
func Open(ctx context.Context, path string, opts ...Option) (*Decoder, error) {
	d := &Decoder{ffprobe: "ffprobe", ffmpeg: "ffmpeg", path: strings.TrimSpace(path)}
	for _, opt := range opts {
		opt(d)
	}
	if d.path == "" {
		return nil, errors.New("ffmpeg open: empty path")
	}

	args := []string{
		"-v", "error",
		"-hide_banner",
		"-select_streams", "v:0",
		"-show_entries", "stream=r_frame_rate,avg_frame_rate,nb_frames,duration:format=duration",
		"-of", "json",
		"--", d.path,
	}
	cmd := commandContext(ctx, d.ffprobe, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("ffprobe inspect: %w: %s", err, strings.TrimSpace(string(output)))
	}
	probe, err := parseProbe(output)
	if err != nil {
		return nil, err
	}
	d.fps = probe.fps
	d.frames = probe.frames
	return d, nil
}

func (d *Decoder) FrameRate() float64 { return d.fps }
func (d *Decoder) FrameCount() int    { return d.frames }

// ReadFrame decodes the frame at index. Seeking is by timestamp, so variable
// frame rate sources return the nearest frame.
func (d *Decoder) ReadFrame(ctx context.Context, index int) ([]byte, error) {
	if index < 0 {
		return nil, fmt.Errorf("ffmpeg read: invalid frame index %d", index)
	}
	if index >= d.frames {
		return nil, io.EOF
	}
	cmd := commandContext(ctx, d.ffmpeg, frameArgs(d.path, index, d.fps)...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg read frame %d: %w: %s", index, err, strings.TrimSpace(stderr.String()))
	}
	if stdout.Len() == 0 {
		return nil, io.EOF
	}
	return stdout.Bytes(), nil
}

func frameArgs(path string, index int, fps float64) []string {
	seek := 0.0
	if fps > 0 {
		seek = float64(index) / fps
	}
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-ss", strconv.FormatFloat(seek, 'f', 3, 64),
		"-i", path,
		"-frames:v", "1",
		"-an",
		"-sn",
		"-f", "image2pipe",
		"-c:v", "mjpeg",
		"-q:v", "3",
		"-",
	}
}

type probeOutput struct {
	Streams []struct {
		RFrameRate   string `json:"r_frame_rate"`
		AvgFrameRate string `json:"avg_frame_rate"`
		NBFrames     string `json:"nb_frames"`
		Duration     string `json:"duration"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

type probe struct {
	fps    float64
	frames int
}

// parseProbe derives frame rate and count. Containers that omit nb_frames
// fall back to duration x fps.
func parseProbe(raw []byte) (probe, error) {
	var out probeOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return probe{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	if len(out.Streams) == 0 {
		return probe{}, errors.New("ffprobe: no video stream")
	}
	s := out.Streams[0]

	fps := parseRate(s.AvgFrameRate)
	if fps <= 0 {
		fps = parseRate(s.RFrameRate)
	}

	frames := 0
	if n, err := strconv.Atoi(strings.TrimSpace(s.NBFrames)); err == nil && n > 0 {
		frames = n
	} else {
		duration := parseFloat(s.Duration)
		if duration <= 0 {
			duration = parseFloat(out.Format.Duration)
		}
		if duration > 0 && fps > 0 {
			frames = int(math.Floor(duration * fps))
		}
	}
	return probe{fps: fps, frames: frames}, nil
}

// parseRate reads ffprobe's "30000/1001" rational form.
func parseRate(value string) float64 {
	num, den, found := strings.Cut(strings.TrimSpace(value), "/")
	if !found {
		return parseFloat(num)
	}
	n := parseFloat(num)
	d := parseFloat(den)
	if d <= 0 {
		return 0
	}
	return n / d
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	parsed, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(parsed) {
		return 0
	}
	return parsed
}
