package ffmpeg

import (
	"context"
	"io"
	"os/exec"
	"testing"
)

func TestParseProbeUsesFrameCount(t *testing.T) {
	raw := []byte(`{"streams":[{"r_frame_rate":"30/1","avg_frame_rate":"30000/1001","nb_frames":"900","duration":"30.03"}],"format":{"duration":"30.05"}}`)
	p, err := parseProbe(raw)
	if err != nil {
		t.Fatalf("parseProbe: %v", err)
	}
	if p.frames != 900 {
		t.Fatalf("expected 900 frames, got %d", p.frames)
	}
	if p.fps < 29.97 || p.fps > 29.98 {
		t.Fatalf("unexpected fps %v", p.fps)
	}
}

func TestParseProbeFallsBackToDuration(t *testing.T) {
	raw := []byte(`{"streams":[{"r_frame_rate":"25/1","avg_frame_rate":"0/0"}],"format":{"duration":"10.5"}}`)
	p, err := parseProbe(raw)
	if err != nil {
		t.Fatalf("parseProbe: %v", err)
	}
	if p.fps != 25 {
		t.Fatalf("expected fps 25, got %v", p.fps)
	}
	if p.frames != 262 {
		t.Fatalf("expected 262 frames, got %d", p.frames)
	}
}

func TestParseProbeRejectsAudioOnly(t *testing.T) {
	if _, err := parseProbe([]byte(`{"streams":[],"format":{"duration":"3"}}`)); err == nil {
		t.Fatal("expected error for missing video stream")
	}
}

func TestFrameArgsSeeksByTimestamp(t *testing.T) {
	args := frameArgs("clip.mp4", 60, 30)
	found := false
	for i, a := range args {
		if a == "-ss" && i+1 < len(args) {
			found = true
			if args[i+1] != "2.000" {
				t.Fatalf("expected seek 2.000, got %s", args[i+1])
			}
		}
	}
	if !found {
		t.Fatal("missing -ss argument")
	}
	if args[len(args)-1] != "-" {
		t.Fatalf("expected stdout output, got %s", args[len(args)-1])
	}
}

func TestReadFramePastEndIsEOF(t *testing.T) {
	d := &Decoder{path: "clip.mp4", fps: 30, frames: 10}
	if _, err := d.ReadFrame(context.Background(), 10); err != io.EOF {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestOpenAndReadWithStubbedBinaries(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	orig := commandContext
	t.Cleanup(func() { commandContext = orig })
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		if name == "ffprobe" {
			return exec.CommandContext(ctx, "sh", "-c", `printf '{"streams":[{"r_frame_rate":"10/1","nb_frames":"50"}]}'`)
		}
		return exec.CommandContext(ctx, "sh", "-c", `printf 'JPEGDATA'`)
	}

	d, err := Open(context.Background(), "clip.mp4")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if d.FrameRate() != 10 || d.FrameCount() != 50 {
		t.Fatalf("unexpected probe: fps=%v frames=%d", d.FrameRate(), d.FrameCount())
	}
	frame, err := d.ReadFrame(context.Background(), 20)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if string(frame) != "JPEGDATA" {
		t.Fatalf("unexpected frame bytes %q", frame)
	}
}
