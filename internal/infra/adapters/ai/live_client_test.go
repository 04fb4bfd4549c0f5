package ai

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"drobe-backend/internal/domain"
	"drobe-backend/internal/domain/model"
	"drobe-backend/internal/domain/ports/adapter"
)

type sentTurns struct {
	turns        []adapter.Turn
	turnComplete bool
}

type fakeLiveConn struct {
	mu       sync.Mutex
	sent     []sentTurns
	audio    [][]byte
	incoming chan *adapter.LiveMessage
	recvErr  error
	closed   int
	sendErr  error
}

func newFakeLiveConn() *fakeLiveConn {
	return &fakeLiveConn{incoming: make(chan *adapter.LiveMessage, 16)}
}

func (f *fakeLiveConn) SendTurns(_ context.Context, turns []adapter.Turn, turnComplete bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, sentTurns{turns: turns, turnComplete: turnComplete})
	return nil
}

func (f *fakeLiveConn) SendRealtimeAudio(_ context.Context, pcm []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audio = append(f.audio, pcm)
	return nil
}

func (f *fakeLiveConn) Receive(ctx context.Context) (*adapter.LiveMessage, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case msg, ok := <-f.incoming:
		if !ok {
			if f.recvErr != nil {
				return nil, f.recvErr
			}
			return nil, io.EOF
		}
		return msg, nil
	}
}

func (f *fakeLiveConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

type fakeDialer struct {
	conn    *fakeLiveConn
	dialErr error
	gotCfg  *adapter.LiveConnectConfig
	dials   int
}

func (d *fakeDialer) Connect(_ context.Context, _ string, cfg *adapter.LiveConnectConfig) (adapter.LiveConn, error) {
	d.dials++
	d.gotCfg = cfg
	if d.dialErr != nil {
		return nil, d.dialErr
	}
	return d.conn, nil
}

func newTestClient(d *fakeDialer, opts LiveOptions) *LiveClient {
	logger := zerolog.Nop()
	settings := LiveSettings{
		Model:                    "models/test-audio",
		Voice:                    "Kore",
		CompressionTriggerTokens: 25600,
		CompressionTargetTokens:  12800,
	}
	return NewLiveClient(d, settings, opts, &logger)
}

func TestLiveClient_Start(t *testing.T) {
	t.Run("sends persona and priming", func(t *testing.T) {
		conn := newFakeLiveConn()
		d := &fakeDialer{conn: conn}
		c := newTestClient(d, LiveOptions{
			SessionID:        "s1",
			ChildAge:         7,
			LevelDescription: "Counting to ten",
			History: []adapter.Turn{
				{Role: adapter.RoleUser, Parts: []adapter.Part{{Text: "hi"}}},
				{Role: adapter.RoleModel, Parts: []adapter.Part{{Text: "hello"}}},
			},
			PrimingMessage: "Say hi to me!",
		})
		if err := c.Start(context.Background()); err != nil {
			t.Fatalf("Start: %v", err)
		}
		if d.gotCfg == nil || d.gotCfg.SystemInstruction != model.PersonaInstruction(7, "Counting to ten") {
			t.Fatalf("system instruction not derived from age and level")
		}
		if d.gotCfg.Voice != "Kore" {
			t.Fatalf("voice = %q", d.gotCfg.Voice)
		}
		if len(conn.sent) != 2 {
			t.Fatalf("sent %d batches, want 2 (history then priming)", len(conn.sent))
		}
		if conn.sent[0].turnComplete {
			t.Fatalf("history replay must not mark end of turn")
		}
		if len(conn.sent[0].turns) != 2 {
			t.Fatalf("history turns = %d, want 2", len(conn.sent[0].turns))
		}
		if !conn.sent[1].turnComplete {
			t.Fatalf("priming message must mark end of turn")
		}
		if got := conn.sent[1].turns[0].Parts[0].Text; got != "Say hi to me!" {
			t.Fatalf("priming text = %q", got)
		}
	})

	t.Run("twice fails", func(t *testing.T) {
		d := &fakeDialer{conn: newFakeLiveConn()}
		c := newTestClient(d, LiveOptions{SessionID: "s1", ChildAge: 6})
		if err := c.Start(context.Background()); err != nil {
			t.Fatalf("Start: %v", err)
		}
		if err := c.Start(context.Background()); !errors.Is(err, domain.ErrAlreadyStarted) {
			t.Fatalf("second Start err = %v, want ErrAlreadyStarted", err)
		}
		if d.dials != 1 {
			t.Fatalf("dials = %d, want 1", d.dials)
		}
	})

	t.Run("dial failure propagates", func(t *testing.T) {
		boom := errors.New("upstream down")
		d := &fakeDialer{dialErr: boom}
		c := newTestClient(d, LiveOptions{SessionID: "s1", ChildAge: 6})
		if err := c.Start(context.Background()); !errors.Is(err, boom) {
			t.Fatalf("err = %v, want %v", err, boom)
		}
		// A failed start leaves the client unstarted for error reporting.
		if err := c.SendText(context.Background(), "x", true); !errors.Is(err, domain.ErrNotStarted) {
			t.Fatalf("SendText after failed start err = %v", err)
		}
	})

	t.Run("replay failure closes connection", func(t *testing.T) {
		conn := newFakeLiveConn()
		conn.sendErr = errors.New("send failed")
		d := &fakeDialer{conn: conn}
		c := newTestClient(d, LiveOptions{
			SessionID: "s1", ChildAge: 6,
			History: []adapter.Turn{{Role: adapter.RoleUser, Parts: []adapter.Part{{Text: "hi"}}}},
		})
		if err := c.Start(context.Background()); err == nil {
			t.Fatal("expected error")
		}
		if conn.closed != 1 {
			t.Fatalf("closed = %d, want 1", conn.closed)
		}
	})
}

func TestLiveClient_Send(t *testing.T) {
	t.Run("before start", func(t *testing.T) {
		c := newTestClient(&fakeDialer{conn: newFakeLiveConn()}, LiveOptions{SessionID: "s1", ChildAge: 6})
		if err := c.SendText(context.Background(), "hi", true); !errors.Is(err, domain.ErrNotStarted) {
			t.Fatalf("SendText err = %v", err)
		}
		if err := c.SendAudio(context.Background(), []byte{1, 2}); !errors.Is(err, domain.ErrNotStarted) {
			t.Fatalf("SendAudio err = %v", err)
		}
	})

	t.Run("audio goes through realtime input", func(t *testing.T) {
		conn := newFakeLiveConn()
		c := newTestClient(&fakeDialer{conn: conn}, LiveOptions{SessionID: "s1", ChildAge: 6})
		if err := c.Start(context.Background()); err != nil {
			t.Fatalf("Start: %v", err)
		}
		if err := c.SendAudio(context.Background(), []byte{1, 2, 3}); err != nil {
			t.Fatalf("SendAudio: %v", err)
		}
		if len(conn.audio) != 1 || len(conn.sent) != 0 {
			t.Fatalf("audio batches = %d, turn batches = %d", len(conn.audio), len(conn.sent))
		}
	})

	t.Run("audio chunks arrive in order, unmerged, never ending the turn", func(t *testing.T) {
		conn := newFakeLiveConn()
		c := newTestClient(&fakeDialer{conn: conn}, LiveOptions{SessionID: "s1", ChildAge: 6})
		if err := c.Start(context.Background()); err != nil {
			t.Fatalf("Start: %v", err)
		}
		chunks := [][]byte{{1}, {2, 2}, {3, 3, 3}, {4}}
		for _, chunk := range chunks {
			if err := c.SendAudio(context.Background(), chunk); err != nil {
				t.Fatalf("SendAudio: %v", err)
			}
		}
		if len(conn.audio) != len(chunks) {
			t.Fatalf("audio batches = %d, want %d", len(conn.audio), len(chunks))
		}
		for i, chunk := range chunks {
			if !bytes.Equal(conn.audio[i], chunk) {
				t.Fatalf("chunk %d = %v, want %v", i, conn.audio[i], chunk)
			}
		}
		if len(conn.sent) != 0 {
			t.Fatalf("audio issued %d turn batches, want 0", len(conn.sent))
		}
	})

	t.Run("image lazily starts and defaults the question", func(t *testing.T) {
		conn := newFakeLiveConn()
		d := &fakeDialer{conn: conn}
		c := newTestClient(d, LiveOptions{SessionID: "s1", ChildAge: 6})
		if err := c.SendImage(context.Background(), []byte{0xff}, "image/png", ""); err != nil {
			t.Fatalf("SendImage: %v", err)
		}
		if d.dials != 1 {
			t.Fatalf("dials = %d, want 1", d.dials)
		}
		last := conn.sent[len(conn.sent)-1]
		if !last.turnComplete {
			t.Fatal("image turn must mark end of turn")
		}
		parts := last.turns[0].Parts
		if len(parts) != 2 || parts[0].Text != model.DefaultImageQuestion {
			t.Fatalf("image turn parts = %+v", parts)
		}
		if parts[1].Blob == nil || parts[1].Blob.MIMEType != "image/png" {
			t.Fatalf("image blob = %+v", parts[1].Blob)
		}
	})
}

func TestLiveClient_Responses(t *testing.T) {
	t.Run("flattens chunks and turn boundaries", func(t *testing.T) {
		conn := newFakeLiveConn()
		c := newTestClient(&fakeDialer{conn: conn}, LiveOptions{SessionID: "s1", ChildAge: 6})
		if err := c.Start(context.Background()); err != nil {
			t.Fatalf("Start: %v", err)
		}

		conn.incoming <- &adapter.LiveMessage{Audio: []byte{1, 2}, Text: "hel"}
		conn.incoming <- &adapter.LiveMessage{Text: "lo"}
		conn.incoming <- &adapter.LiveMessage{TurnComplete: true}
		close(conn.incoming)

		var types []EventType
		var text string
		for ev := range c.Responses(context.Background()) {
			types = append(types, ev.Type)
			text += ev.Text
			if ev.Type == EventError && !errors.Is(ev.Err, io.EOF) {
				t.Fatalf("unexpected error event: %v", ev.Err)
			}
		}
		want := []EventType{EventAudio, EventText, EventText, EventTurnComplete, EventError}
		if len(types) != len(want) {
			t.Fatalf("events = %v, want %v", types, want)
		}
		for i := range want {
			if types[i] != want[i] {
				t.Fatalf("event[%d] = %v, want %v", i, types[i], want[i])
			}
		}
		if text != "hello" {
			t.Fatalf("text = %q", text)
		}
	})

	t.Run("transport error terminates stream", func(t *testing.T) {
		conn := newFakeLiveConn()
		conn.recvErr = errors.New("connection reset")
		c := newTestClient(&fakeDialer{conn: conn}, LiveOptions{SessionID: "s1", ChildAge: 6})
		if err := c.Start(context.Background()); err != nil {
			t.Fatalf("Start: %v", err)
		}
		close(conn.incoming)

		events := collect(t, c.Responses(context.Background()))
		if len(events) != 1 || events[0].Type != EventError {
			t.Fatalf("events = %+v, want single error", events)
		}
	})

	t.Run("cancellation closes without error event", func(t *testing.T) {
		conn := newFakeLiveConn()
		c := newTestClient(&fakeDialer{conn: conn}, LiveOptions{SessionID: "s1", ChildAge: 6})
		if err := c.Start(context.Background()); err != nil {
			t.Fatalf("Start: %v", err)
		}
		ctx, cancel := context.WithCancel(context.Background())
		ch := c.Responses(ctx)
		cancel()
		events := collect(t, ch)
		if len(events) != 0 {
			t.Fatalf("events = %+v, want none", events)
		}
	})

	t.Run("before start fails explicitly", func(t *testing.T) {
		c := newTestClient(&fakeDialer{conn: newFakeLiveConn()}, LiveOptions{SessionID: "s1", ChildAge: 6})
		events := collect(t, c.Responses(context.Background()))
		if len(events) != 1 || events[0].Type != EventError || !errors.Is(events[0].Err, domain.ErrNotStarted) {
			t.Fatalf("events = %+v, want single ErrNotStarted error", events)
		}
	})
}

func TestLiveClient_Close(t *testing.T) {
	conn := newFakeLiveConn()
	c := newTestClient(&fakeDialer{conn: conn}, LiveOptions{SessionID: "s1", ChildAge: 6})
	if err := c.Close(); err != nil {
		t.Fatalf("Close before start: %v", err)
	}
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if conn.closed != 1 {
		t.Fatalf("closed = %d, want 1", conn.closed)
	}
	if err := c.SendText(context.Background(), "hi", true); !errors.Is(err, domain.ErrNotStarted) {
		t.Fatalf("SendText after Close err = %v", err)
	}
}

func collect(t *testing.T, ch <-chan Event) []Event {
	t.Helper()
	var out []Event
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-deadline:
			t.Fatal("timed out draining events")
		}
	}
}
