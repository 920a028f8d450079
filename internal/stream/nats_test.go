package stream

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/guidoenr/sigdash/internal/app"
	"github.com/guidoenr/sigdash/internal/params"
)

type message struct {
	subject string
	data    []byte
}

type recordingConn struct {
	mu   sync.Mutex
	msgs []message
	fail error
}

func (c *recordingConn) Publish(subject string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return c.fail
	}
	c.msgs = append(c.msgs, message{subject, append([]byte(nil), data...)})
	return nil
}

func (c *recordingConn) messages() []message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]message(nil), c.msgs...)
}

func testFrame(seq uint64) app.Frame {
	return app.Frame{
		Seq:      seq,
		Time:     []float64{0, 1, 2},
		Raw:      []float64{0, 0.5, -0.5},
		Filtered: []float64{0.25, 0.5, -0.25},
		Params:   params.Defaults(),
	}
}

func TestPublishWritesJSONAndWave(t *testing.T) {
	conn := &recordingConn{}
	p := NewPublisher(conn, "", nil)
	if p.Subject() != DefaultSubject {
		t.Fatalf("subject=%q", p.Subject())
	}
	if err := p.Publish(testFrame(7)); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	msgs := conn.messages()
	if len(msgs) != 2 || msgs[0].subject != DefaultSubject || msgs[1].subject != DefaultSubject+".wave" {
		t.Fatalf("messages=%+v", msgs)
	}
	var got app.Frame
	if err := json.Unmarshal(msgs[0].data, &got); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	if got.Seq != 7 || got.Params != params.Defaults() {
		t.Fatalf("decoded frame=%+v", got)
	}
	wave := DecodeSamples(msgs[1].data)
	if len(wave) != 3 || wave[0] != 0.25 || wave[2] != -0.25 {
		t.Fatalf("wave=%v", wave)
	}
}

func TestPublishZstd(t *testing.T) {
	conn := &recordingConn{}
	p := NewPublisher(conn, "z", nil)
	if err := p.EnableZstd(); err != nil {
		t.Fatalf("EnableZstd: %v", err)
	}
	defer p.Close()
	if err := p.Publish(testFrame(3)); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		t.Fatalf("zstd reader: %v", err)
	}
	defer dec.Close()
	plain, err := dec.DecodeAll(conn.messages()[0].data, nil)
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	var got app.Frame
	if err := json.Unmarshal(plain, &got); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	if got.Seq != 3 {
		t.Fatalf("seq=%d", got.Seq)
	}
	if wave := DecodeSamples(conn.messages()[1].data); len(wave) != 3 {
		t.Fatalf("wave should stay uncompressed: %v", wave)
	}
}

func TestPublishReportsConnError(t *testing.T) {
	conn := &recordingConn{fail: errors.New("closed")}
	if err := NewPublisher(conn, "x", nil).Publish(testFrame(1)); err == nil {
		t.Fatalf("expected publish error")
	}
}

func TestRunStopsWhenChannelCloses(t *testing.T) {
	conn := &recordingConn{}
	frames := make(chan app.Frame, 2)
	frames <- testFrame(1)
	frames <- testFrame(2)
	close(frames)

	done := make(chan struct{})
	go func() {
		NewPublisher(conn, "s", nil).Run(context.Background(), frames)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after channel close")
	}
	if n := len(conn.messages()); n != 4 {
		t.Fatalf("messages=%d want=4", n)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewPublisher(&recordingConn{}, "s", nil).Run(ctx, make(chan app.Frame))
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}

func TestEncodeSamplesDropsPartial(t *testing.T) {
	b := EncodeSamples([]float64{1, 2})
	if len(b) != 8 {
		t.Fatalf("len=%d", len(b))
	}
	if got := DecodeSamples(b[:7]); len(got) != 1 || got[0] != 1 {
		t.Fatalf("decoded=%v", got)
	}
}
