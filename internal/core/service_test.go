package core

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/chilimannen/websocket-messaging-persistence-nodejs/internal/proto"
	"github.com/chilimannen/websocket-messaging-persistence-nodejs/internal/store/sqlite"
	"github.com/chilimannen/websocket-messaging-persistence-nodejs/internal/token"
	"github.com/rs/zerolog"
)

// recordingSender captures response payloads as marshalled JSON so tests
// can assert on the exact wire shape.
type recordingSender struct {
	frames [][]byte
}

func (r *recordingSender) Send(_ context.Context, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	r.frames = append(r.frames, data)
	return nil
}

func (r *recordingSender) decode(t *testing.T, i int) map[string]json.RawMessage {
	t.Helper()
	if i >= len(r.frames) {
		t.Fatalf("expected at least %d frames, got %d", i+1, len(r.frames))
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(r.frames[i], &fields); err != nil {
		t.Fatalf("decode frame %d: %v", i, err)
	}
	return fields
}

func newTestService(t *testing.T) (*Service, *sqlite.SQLiteStore) {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	issuer := token.NewIssuer(token.Config{
		Secret: []byte("test-secret-change-me"),
		Issuer: "test",
		TTL:    time.Hour,
	})

	logger := zerolog.Nop()
	return NewService(st, issuer, &logger), st
}

func dispatch(t *testing.T, svc *Service, sender Sender, frame string) {
	t.Helper()
	env, err := proto.Parse([]byte(frame))
	if err != nil {
		t.Fatalf("parse frame: %v", err)
	}
	svc.Router().Dispatch(context.Background(), sender, env)
}

func assertHeader(t *testing.T, fields map[string]json.RawMessage, want string) {
	t.Helper()
	got, ok := fields["header"]
	if !ok {
		t.Fatalf("response has no header field")
	}
	if string(got) != want {
		t.Fatalf("header not echoed verbatim: got %s, want %s", got, want)
	}
}

func TestAuthenticateSuccess(t *testing.T) {
	svc, st := newTestService(t)
	if _, err := st.CreateAccount(context.Background(), "alice", "password123"); err != nil {
		t.Fatalf("seed account: %v", err)
	}

	sender := &recordingSender{}
	dispatch(t, svc, sender, `{"header":{"id":42},"action":"authenticate","username":"alice","password":"password123"}`)

	fields := sender.decode(t, 0)
	assertHeader(t, fields, `{"id":42}`)

	var tok string
	if err := json.Unmarshal(fields["token"], &tok); err != nil || tok == "" {
		t.Fatalf("expected non-empty token, got %s (err %v)", fields["token"], err)
	}
	if _, ok := fields["expiry"]; !ok {
		t.Fatalf("expected expiry field")
	}
}

func TestAuthenticateFailurePassthrough(t *testing.T) {
	svc, st := newTestService(t)
	if _, err := st.CreateAccount(context.Background(), "bob", "password123"); err != nil {
		t.Fatalf("seed account: %v", err)
	}

	sender := &recordingSender{}
	dispatch(t, svc, sender, `{"header":"h-auth","action":"authenticate","username":"bob","password":"wrong"}`)

	fields := sender.decode(t, 0)
	assertHeader(t, fields, `"h-auth"`)

	if _, ok := fields["token"]; ok {
		t.Fatalf("failure response must not carry a token")
	}
	if _, ok := fields["error"]; !ok {
		t.Fatalf("expected store failure in response")
	}
}

func TestUnknownActionIsSilent(t *testing.T) {
	svc, _ := newTestService(t)

	sender := &recordingSender{}
	dispatch(t, svc, sender, `{"header":"h1","action":"no.such.action","stuff":1}`)

	if len(sender.frames) != 0 {
		t.Fatalf("expected zero outbound frames, got %d", len(sender.frames))
	}
}

func TestRoomCreateThenLoad(t *testing.T) {
	svc, _ := newTestService(t)
	sender := &recordingSender{}

	dispatch(t, svc, sender, `{"header":"h1","action":"room","room":"r1","username":"alice","topic":"hi"}`)

	fields := sender.decode(t, 0)
	assertHeader(t, fields, `"h1"`)
	if string(fields["created"]) != "true" {
		t.Fatalf("expected created:true, got %s", fields["created"])
	}
	if string(fields["owner"]) != `"alice"` || string(fields["topic"]) != `"hi"` {
		t.Fatalf("unexpected room metadata: %s", sender.frames[0])
	}
	if _, ok := fields["history"]; ok {
		t.Fatalf("created room must not carry history")
	}

	// Second identical request loads the room and attaches empty history.
	dispatch(t, svc, sender, `{"header":"h2","action":"room","room":"r1","username":"alice","topic":"hi"}`)

	fields = sender.decode(t, 1)
	assertHeader(t, fields, `"h2"`)
	if _, ok := fields["created"]; ok {
		t.Fatalf("loaded room must not carry created flag")
	}
	if string(fields["history"]) != `[]` {
		t.Fatalf("expected empty history [], got %s", fields["history"])
	}
	if string(fields["owner"]) != `"alice"` {
		t.Fatalf("owner changed on load: %s", fields["owner"])
	}
}

func TestRoomTopicDefaultsToSentinel(t *testing.T) {
	svc, _ := newTestService(t)
	sender := &recordingSender{}

	dispatch(t, svc, sender, `{"header":"h1","action":"room","room":"r1","username":"alice"}`)

	fields := sender.decode(t, 0)
	var topic string
	if err := json.Unmarshal(fields["topic"], &topic); err != nil {
		t.Fatalf("decode topic: %v", err)
	}
	if topic != proto.DefaultTopic {
		t.Fatalf("expected default topic %q, got %q", proto.DefaultTopic, topic)
	}
}

func TestMessageIsFireAndForget(t *testing.T) {
	svc, _ := newTestService(t)
	sender := &recordingSender{}

	dispatch(t, svc, sender, `{"header":"h1","action":"message","sender":"alice","content":"hi","room":"r1","command":""}`)

	if len(sender.frames) != 0 {
		t.Fatalf("message action must not respond, got %d frames", len(sender.frames))
	}
}

func TestRoomHistoryOrdering(t *testing.T) {
	svc, _ := newTestService(t)
	sender := &recordingSender{}

	dispatch(t, svc, sender, `{"header":"h0","action":"room","room":"r1","username":"alice","topic":"hi"}`)
	dispatch(t, svc, sender, `{"header":"m1","action":"message","sender":"alice","content":"m1","room":"r1"}`)
	dispatch(t, svc, sender, `{"header":"m2","action":"message","sender":"bob","content":"m2","room":"r1"}`)
	dispatch(t, svc, sender, `{"header":"m3","action":"message","sender":"alice","content":"m3","room":"r1"}`)

	dispatch(t, svc, sender, `{"header":"h1","action":"room","room":"r1","username":"alice","topic":"hi"}`)

	fields := sender.decode(t, 1)
	var history []proto.ChatMessage
	if err := json.Unmarshal(fields["history"], &history); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(history))
	}
	for i, want := range []string{"m1", "m2", "m3"} {
		if history[i].Content != want {
			t.Fatalf("expected %s at index %d, got %s", want, i, history[i].Content)
		}
	}
}

func TestTopicUpdatesRoomSilently(t *testing.T) {
	svc, _ := newTestService(t)
	sender := &recordingSender{}

	dispatch(t, svc, sender, `{"header":"h0","action":"room","room":"r1","username":"alice","topic":"hi"}`)
	dispatch(t, svc, sender, `{"header":"t1","action":"topic","room":"r1","topic":"changed"}`)

	if len(sender.frames) != 1 {
		t.Fatalf("topic action must not respond, got %d frames", len(sender.frames))
	}

	dispatch(t, svc, sender, `{"header":"h1","action":"room","room":"r1","username":"alice"}`)
	fields := sender.decode(t, 1)
	if string(fields["topic"]) != `"changed"` {
		t.Fatalf("topic not updated: %s", fields["topic"])
	}
}

func TestDepletionClearsRoomAndHistory(t *testing.T) {
	svc, _ := newTestService(t)
	sender := &recordingSender{}

	dispatch(t, svc, sender, `{"header":"h0","action":"room","room":"r1","username":"alice","topic":"hi"}`)
	dispatch(t, svc, sender, `{"header":"m1","action":"message","sender":"alice","content":"m1","room":"r1"}`)

	// A non-depleted status must be a no-op.
	dispatch(t, svc, sender, `{"header":"s1","action":"registry.room","room":"r1","status":"ACTIVE"}`)
	dispatch(t, svc, sender, `{"header":"h1","action":"room","room":"r1","username":"alice"}`)
	fields := sender.decode(t, 1)
	if string(fields["history"]) != `[{"sender":"alice","content":"m1","room":"r1","command":""}]` {
		t.Fatalf("room should survive non-depleted status, history %s", fields["history"])
	}

	dispatch(t, svc, sender, `{"header":"s2","action":"registry.room","room":"r1","status":"DEPLETED"}`)

	// After depletion the room behaves as first-time creation.
	dispatch(t, svc, sender, `{"header":"h2","action":"room","room":"r1","username":"bob","topic":"fresh"}`)
	fields = sender.decode(t, 2)
	assertHeader(t, fields, `"h2"`)
	if string(fields["created"]) != "true" {
		t.Fatalf("expected re-creation after depletion, got %s", sender.frames[2])
	}
	if string(fields["owner"]) != `"bob"` {
		t.Fatalf("expected new owner after depletion, got %s", fields["owner"])
	}
}

func TestHeaderEchoWithNestedStructure(t *testing.T) {
	svc, _ := newTestService(t)
	sender := &recordingSender{}

	header := `{"requestId":"abc","nested":{"hop":[1,2,3]}}`
	dispatch(t, svc, sender, `{"header":`+header+`,"action":"room","room":"r1","username":"alice","topic":"hi"}`)

	fields := sender.decode(t, 0)
	assertHeader(t, fields, header)
}
