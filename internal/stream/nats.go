// Package stream forwards computed frames to a NATS subject so other
// processes can follow the signal without polling the web API.
package stream

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/guidoenr/sigdash/internal/app"
)

// DefaultSubject carries JSON frames. Filtered samples go to
// DefaultSubject + ".wave" as little-endian float32.
const DefaultSubject = "sigdash.frames"

// Connect dials NATS with reconnects enabled indefinitely.
func Connect(url string) (*nats.Conn, error) {
	return nats.Connect(
		url,
		nats.Name("sigdash"),
		nats.Timeout(3*time.Second),
		nats.ReconnectWait(500*time.Millisecond),
		nats.MaxReconnects(-1),
	)
}

// Conn is the part of *nats.Conn the publisher uses.
type Conn interface {
	Publish(subject string, data []byte) error
}

// Publisher writes frames to a subject.
type Publisher struct {
	conn    Conn
	subject string
	log     *zap.Logger
	enc     *zstd.Encoder
}

// NewPublisher wraps conn. An empty subject selects DefaultSubject.
func NewPublisher(conn Conn, subject string, logger *zap.Logger) *Publisher {
	if subject == "" {
		subject = DefaultSubject
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{conn: conn, subject: subject, log: logger}
}

// EnableZstd compresses the JSON frames with zstd from now on. The wave
// subject stays uncompressed.
func (p *Publisher) EnableZstd() error {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return fmt.Errorf("zstd encoder: %w", err)
	}
	p.enc = enc
	return nil
}

// Close releases the compressor, if any.
func (p *Publisher) Close() error {
	if p.enc != nil {
		return p.enc.Close()
	}
	return nil
}

// Subject returns the JSON subject.
func (p *Publisher) Subject() string { return p.subject }

// Publish sends one frame as JSON and its filtered samples as binary.
func (p *Publisher) Publish(frame app.Frame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("encode frame %d: %w", frame.Seq, err)
	}
	if p.enc != nil {
		data = p.enc.EncodeAll(data, make([]byte, 0, len(data)/4))
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publish frame %d: %w", frame.Seq, err)
	}
	if err := p.conn.Publish(p.subject+".wave", EncodeSamples(frame.Filtered)); err != nil {
		return fmt.Errorf("publish wave %d: %w", frame.Seq, err)
	}
	return nil
}

// Run publishes every frame received until ctx ends or frames closes.
// Publish failures are logged and do not stop the loop.
func (p *Publisher) Run(ctx context.Context, frames <-chan app.Frame) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-frames:
			if !ok {
				return
			}
			if err := p.Publish(frame); err != nil {
				p.log.Warn("frame publish failed", zap.String("subject", p.subject), zap.Error(err))
				continue
			}
			p.log.Debug("frame published", zap.String("subject", p.subject), zap.Uint64("seq", frame.Seq))
		}
	}
}

// EncodeSamples packs values as little-endian float32.
func EncodeSamples(values []float64) []byte {
	out := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(float32(v)))
	}
	return out
}

// DecodeSamples reverses EncodeSamples; a trailing partial sample is ignored.
func DecodeSamples(b []byte) []float64 {
	out := make([]float64, len(b)/4)
	for i := range out {
		out[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:])))
	}
	return out
}
