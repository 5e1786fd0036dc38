// Package sampler turns a video into a sparse, ordered set of frame units.
package sampler

import (
	"context"
	"errors"
	"io"
	"time"

	"incident-insights-go/internal/logger"
	"incident-insights-go/internal/types"
)

var ErrInvalidInterval = errors.New("sampler: interval must be positive")

// Decoder exposes random access to the frames of one video. ReadFrame returns
// io.EOF once index is past the end of the stream.
type Decoder interface {
	FrameRate() float64
	FrameCount() int
	ReadFrame(ctx context.Context, index int) ([]byte, error)
}

// Stride is the number of frames between samples, never less than one.
func Stride(fps, intervalSeconds float64) int {
	s := int(fps * intervalSeconds)
	if s < 1 {
		return 1
	}
	return s
}

type Sampler struct {
	log *logger.Logger
}

func New(log *logger.Logger) *Sampler {
	if log == nil {
		log = logger.Discard()
	}
	return &Sampler{log: log.WithComponent("sampler")}
}

// Sample reads one frame every intervalSeconds. A frame that fails to decode
// ends sampling early; whatever was read so far is returned without error.
// Only a cancelled ctx or a bad interval produce an error.
func (s *Sampler) Sample(ctx context.Context, session string, dec Decoder, intervalSeconds float64) ([]types.AnalysisUnit, error) {
	if intervalSeconds <= 0 {
		return nil, ErrInvalidInterval
	}

	fps := dec.FrameRate()
	total := dec.FrameCount()
	// unseekable streams may report a negative count
	if total < 0 {
		total = 0
	}
	stride := Stride(fps, intervalSeconds)
	log := s.log.WithSession(session)

	units := make([]types.AnalysisUnit, 0, total/stride+1)
	for idx := 0; idx < total; idx += stride {
		if err := ctx.Err(); err != nil {
			return units, err
		}
		frame, err := dec.ReadFrame(ctx, idx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return units, ctxErr
			}
			entry := log.WithField("frame", idx).WithField("sampled", len(units))
			if errors.Is(err, io.EOF) {
				entry.Debug("stream ended before reported frame count")
			} else {
				entry.WithError(err).Warn("frame decode failed, keeping partial sample")
			}
			break
		}
		units = append(units, types.AnalysisUnit{
			Index:     idx,
			Kind:      types.KindVideo,
			Session:   session,
			Timestamp: timestamp(idx, fps),
			Payload:   frame,
			MIMEType:  "image/jpeg",
		})
	}

	log.WithField("frames", total).WithField("fps", fps).WithField("stride", stride).
		WithField("sampled", len(units)).Info("video sampled")
	return units, nil
}

func timestamp(idx int, fps float64) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(idx) / fps * float64(time.Second))
}

// Sample runs a Sampler without logging.
func Sample(ctx context.Context, session string, dec Decoder, intervalSeconds float64) ([]types.AnalysisUnit, error) {
	return New(nil).Sample(ctx, session, dec, intervalSeconds)
}
