// AngelaMos | 2026
// transcoder.go

package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"

	"github.com/carterperez-dev/voice-tutor/internal/config"
)

var ErrEmptyOutput = errors.New("transcoder produced no audio")

// Transcoder converts raw PCM into an Ogg/Opus voice note by piping it
// through an ffmpeg process.
type Transcoder struct {
	binary     string
	sampleRate int
	channels   int
}

func NewTranscoder(cfg config.AudioConfig) *Transcoder {
	return &Transcoder{
		binary:     cfg.FFmpegPath,
		sampleRate: cfg.SampleRate,
		channels:   cfg.Channels,
	}
}

func (t *Transcoder) Args() []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-f", "s16le",
		"-ar", strconv.Itoa(t.sampleRate),
		"-ac", strconv.Itoa(t.channels),
		"-i", "pipe:0",
		"-c:a", "libopus",
		"-f", "ogg",
		"pipe:1",
	}
}

func (t *Transcoder) PCMToOggOpus(ctx context.Context, pcm []byte) ([]byte, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, t.binary, t.Args()...)
	cmd.Stdin = bytes.NewReader(pcm)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("run ffmpeg: %w: %s", err, bytes.TrimSpace(stderr.Bytes()))
	}
	if stdout.Len() == 0 {
		return nil, ErrEmptyOutput
	}

	return stdout.Bytes(), nil
}
