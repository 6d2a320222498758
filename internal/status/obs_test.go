package status

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

const (
	testSalt      = "lM1GncleQOaCu9lT1yeUZhFYnqhsLLP1G5lAGo3ixaI="
	testChallenge = "+IxH4CnCiqpX1rM9scsNynZzbOe4KhDeYcTNS3PDaeY="
)

// obs-websocket opcodes the fake server speaks.
const (
	opHello           = 0
	opIdentify        = 1
	opIdentified      = 2
	opEvent           = 5
	opRequest         = 6
	opRequestResponse = 7
)

type wireMessage struct {
	Op int             `json:"op"`
	D  json.RawMessage `json:"d"`
}

func writeOp(conn *websocket.Conn, op int, d any) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return conn.WriteJSON(wireMessage{Op: op, D: raw})
}

func authString(password, salt, challenge string) string {
	secret := sha256.Sum256([]byte(password + salt))
	auth := sha256.Sum256([]byte(base64.StdEncoding.EncodeToString(secret[:]) + challenge))
	return base64.StdEncoding.EncodeToString(auth[:])
}

// fakeOBS is a minimal obs-websocket 5 server.
type fakeOBS struct {
	password string

	mu    sync.Mutex
	fail  bool
	texts map[string]string
	conns []*websocket.Conn
	dials int
}

func (f *fakeOBS) text(label string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.texts[label]
}

func (f *fakeOBS) setFail(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = fail
}

func (f *fakeOBS) dialCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dials
}

// dropAll closes every open connection from the server side.
func (f *fakeOBS) dropAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.conns {
		_ = c.Close()
	}
	f.conns = nil
}

func (f *fakeOBS) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{Subprotocols: []string{"obswebsocket.json"}}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	f.mu.Lock()
	f.dials++
	f.conns = append(f.conns, conn)
	f.mu.Unlock()

	hello := map[string]any{"obsWebSocketVersion": "5.5.0", "rpcVersion": 1}
	if f.password != "" {
		hello["authentication"] = map[string]string{"challenge": testChallenge, "salt": testSalt}
	}
	if writeOp(conn, opHello, hello) != nil {
		return
	}

	var msg wireMessage
	if conn.ReadJSON(&msg) != nil || msg.Op != opIdentify {
		return
	}
	var identify struct {
		Authentication string `json:"authentication"`
	}
	if json.Unmarshal(msg.D, &identify) != nil {
		return
	}
	if f.password != "" && identify.Authentication != authString(f.password, testSalt, testChallenge) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(4009, "Authentication failed."), time.Now().Add(time.Second))
		return
	}
	if writeOp(conn, opIdentified, map[string]int{"negotiatedRpcVersion": 1}) != nil {
		return
	}

	for {
		if conn.ReadJSON(&msg) != nil {
			return
		}
		if msg.Op != opRequest {
			continue
		}
		var req struct {
			RequestType string `json:"requestType"`
			RequestID   string `json:"requestId"`
			RequestData struct {
				InputName     string         `json:"inputName"`
				InputSettings map[string]any `json:"inputSettings"`
			} `json:"requestData"`
		}
		if json.Unmarshal(msg.D, &req) != nil {
			return
		}

		// An unrelated event arrives before the response.
		_ = writeOp(conn, opEvent, map[string]any{"eventType": "CurrentSceneChanged", "eventIntent": 4})

		status := map[string]any{"result": true, "code": 100}
		responseData := map[string]any{}
		f.mu.Lock()
		switch {
		case req.RequestType == "SetInputSettings" && f.fail:
			status = map[string]any{"result": false, "code": 600, "comment": "No source was found"}
		case req.RequestType == "SetInputSettings":
			text, _ := req.RequestData.InputSettings["text"].(string)
			f.texts[req.RequestData.InputName] = text
		case req.RequestType == "GetVersion":
			responseData = map[string]any{"obsVersion": "31.0.0", "obsWebSocketVersion": "5.5.0", "rpcVersion": 1}
		}
		f.mu.Unlock()

		_ = writeOp(conn, opRequestResponse, map[string]any{
			"requestType":   req.RequestType,
			"requestId":     req.RequestID,
			"requestStatus": status,
			"responseData":  responseData,
		})
	}
}

func startFakeOBS(t *testing.T, f *fakeOBS) string {
	t.Helper()
	f.texts = map[string]string{}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	t.Cleanup(f.dropAll)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestOBS_SetText(t *testing.T) {
	t.Parallel()
	f := &fakeOBS{password: "hunter2"}
	url := startFakeOBS(t, f)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	o, err := DialOBS(ctx, url, "hunter2")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer o.Close()

	if err := o.SetText(ctx, "RACES LEFT", "SPEEDRUNS LEFT: 7"); err != nil {
		t.Fatalf("SetText: %v", err)
	}
	if got := f.text("RACES LEFT"); got != "SPEEDRUNS LEFT: 7" {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestOBS_NoAuthentication(t *testing.T) {
	t.Parallel()
	f := &fakeOBS{}
	url := startFakeOBS(t, f)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	o, err := DialOBS(ctx, url, "")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer o.Close()

	if err := o.SetText(ctx, "label", "text"); err != nil {
		t.Fatalf("SetText: %v", err)
	}
	if got := f.text("label"); got != "text" {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestOBS_WrongPassword(t *testing.T) {
	t.Parallel()
	url := startFakeOBS(t, &fakeOBS{password: "hunter2"})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := DialOBS(ctx, url, "wrong")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected %v, got %v", ErrUnavailable, err)
	}
}

func TestOBS_InvalidURL(t *testing.T) {
	t.Parallel()
	_, err := DialOBS(context.Background(), "localhost", "")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected %v, got %v", ErrUnavailable, err)
	}
}

func TestOBS_Unreachable(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := DialOBS(ctx, "ws://127.0.0.1:1", "")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected %v, got %v", ErrUnavailable, err)
	}
}

func TestOBS_RequestFailureRedials(t *testing.T) {
	t.Parallel()
	f := &fakeOBS{}
	url := startFakeOBS(t, f)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	o, err := DialOBS(ctx, url, "")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer o.Close()

	f.setFail(true)
	if err := o.SetText(ctx, "missing", "text"); !errors.Is(err, ErrRequestFailed) {
		t.Fatalf("expected %v, got %v", ErrRequestFailed, err)
	}

	f.setFail(false)
	if err := o.SetText(ctx, "label", "after"); err != nil {
		t.Fatalf("expected the next update to succeed: %v", err)
	}
	if got := f.text("label"); got != "after" {
		t.Fatalf("unexpected text %q", got)
	}
	if n := f.dialCount(); n != 2 {
		t.Fatalf("expected a redial after the failed request, got %d dials", n)
	}
}

func TestOBS_ReconnectsAfterDrop(t *testing.T) {
	t.Parallel()
	f := &fakeOBS{}
	url := startFakeOBS(t, f)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	o, err := DialOBS(ctx, url, "")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer o.Close()

	f.dropAll()

	// The update on the dead socket fails, bounded by its own deadline.
	firstCtx, firstCancel := context.WithTimeout(ctx, time.Second)
	err = o.SetText(firstCtx, "label", "first")
	firstCancel()
	if !errors.Is(err, ErrRequestFailed) {
		t.Fatalf("expected %v, got %v", ErrRequestFailed, err)
	}

	if err := o.SetText(ctx, "label", "second"); err != nil {
		t.Fatalf("expected a redial on the next update: %v", err)
	}
	if got := f.text("label"); got != "second" {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestOBS_SetTextHonorsContext(t *testing.T) {
	t.Parallel()
	f := &fakeOBS{}
	url := startFakeOBS(t, f)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	o, err := DialOBS(ctx, url, "")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer o.Close()

	done, stop := context.WithCancel(ctx)
	stop()
	if err := o.SetText(done, "label", "text"); err == nil {
		// The request may win the race against the cancelled context.
		if got := f.text("label"); got != "text" {
			t.Fatalf("unexpected text %q", got)
		}
	} else if !errors.Is(err, ErrRequestFailed) {
		t.Fatalf("expected %v, got %v", ErrRequestFailed, err)
	}
}

func TestOBS_CloseIsIdempotent(t *testing.T) {
	t.Parallel()
	url := startFakeOBS(t, &fakeOBS{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	o, err := DialOBS(ctx, url, "")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	_ = o.Close()
	if err := o.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestFakeOBSAuthVector(t *testing.T) {
	t.Parallel()
	// Worked example from the obs-websocket protocol documentation.
	got := authString("supersecretpassword", testSalt, testChallenge)
	if got != "1Ct943GAT+6YQUUX47Ia/ncufilbe6+oD6lY+5kaCu4=" {
		t.Fatalf("unexpected auth string %q", got)
	}
}
