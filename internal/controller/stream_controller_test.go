package controller

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"conflict-resolution-be/internal/dto"
	"conflict-resolution-be/internal/pkg/logger"
	"conflict-resolution-be/internal/pkg/serverutils"
	"conflict-resolution-be/internal/repository/memory"
	"conflict-resolution-be/internal/service"
	"conflict-resolution-be/pkg/streambus"
	"conflict-resolution-be/pkg/textstream"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testOwner = "test"

type fixedResolver struct {
	parts []string
}

func (r fixedResolver) Resolve(ctx context.Context, streamId string, owner textstream.Owner) (*service.StreamProducer, error) {
	return &service.StreamProducer{
		Produce: func(ctx context.Context, emit textstream.EmitFunc) error {
			for _, p := range r.parts {
				if err := emit(textstream.Fragment{Text: p}); err != nil {
					return err
				}
			}
			return nil
		},
	}, nil
}

func newPubSub(t *testing.T) *gochannel.GoChannel {
	t.Helper()
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	t.Cleanup(func() { pubSub.Close() })
	return pubSub
}

func newStreamApp(t *testing.T, parts ...string) (*fiber.App, *memory.StreamRecordRepository) {
	t.Helper()
	return newStreamAppWith(t, fixedResolver{parts: parts})
}

func newStreamAppWith(t *testing.T, resolver service.IProducerResolver) (*fiber.App, *memory.StreamRecordRepository) {
	t.Helper()
	log := logger.NewNopLogger()
	store := memory.NewStreamRecordRepository()
	bus := streambus.NewBus(nil, log)
	t.Cleanup(func() { bus.Close() })

	svc := service.NewStreamService(store, bus, memory.NewLeaseRepository(),
		map[string]service.IProducerResolver{testOwner: resolver},
		service.NewLocalPublisher(newPubSub(t), log), log,
		service.StreamServiceConfig{
			IdleTimeout:     time.Minute,
			ExpiryInterval:  time.Minute,
			PollInterval:    20 * time.Millisecond,
			LeaseTTL:        time.Minute,
			FinalizeTimeout: time.Second,
		},
	)

	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware(DomainStatus))
	NewStreamController(svc, log).RegisterRoutes(app)
	return app, store
}

// listen serves app on a loopback port and returns its base URL.
func listen(t *testing.T, app *fiber.App) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go app.Listener(ln)
	t.Cleanup(func() { _ = app.ShutdownWithTimeout(time.Second) })
	return "http://" + ln.Addr().String()
}

func postStart(t *testing.T, app *fiber.App, body string) (int, string, map[string]string) {
	t.Helper()
	req := httptest.NewRequest("POST", "/start-stream", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	headers := map[string]string{
		"Access-Control-Allow-Origin": resp.Header.Get("Access-Control-Allow-Origin"),
		"Vary":                        resp.Header.Get("Vary"),
		"Cache-Control":               resp.Header.Get("Cache-Control"),
	}
	return resp.StatusCode, string(raw), headers
}

func TestStreamController_StartStreamsBody(t *testing.T) {
	app, store := newStreamApp(t, "Hel", "lo")
	id, err := store.CreateOwned(context.Background(), textstream.Owner{Type: testOwner, ID: "1"})
	require.NoError(t, err)

	code, body, headers := postStart(t, app, `{"streamId":"`+id+`"}`)
	assert.Equal(t, 200, code)
	assert.Equal(t, "Hello", body)
	assert.Equal(t, "*", headers["Access-Control-Allow-Origin"])
	assert.Contains(t, headers["Vary"], "Origin")
	assert.Equal(t, "no-cache", headers["Cache-Control"])

	req := httptest.NewRequest("GET", "/streams/"+id, nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var res serverutils.Response[dto.StreamBodyResponse]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.Equal(t, "Hello", res.Data.Text)
	assert.Equal(t, "done", res.Data.Status)
	assert.Equal(t, int64(2), res.Data.Generation)
}

func TestStreamController_StartErrors(t *testing.T) {
	app, store := newStreamApp(t, "x")
	id, err := store.CreateOwned(context.Background(), textstream.Owner{Type: testOwner, ID: "1"})
	require.NoError(t, err)

	code, _, _ := postStart(t, app, `{"streamId":"not-a-uuid"}`)
	assert.Equal(t, 400, code)

	code, _, _ = postStart(t, app, `{`)
	assert.Equal(t, 400, code)

	code, _, _ = postStart(t, app, `{"streamId":"`+uuid.NewString()+`"}`)
	assert.Equal(t, 404, code)

	code, _, _ = postStart(t, app, `{"streamId":"`+id+`"}`)
	assert.Equal(t, 200, code)

	code, body, _ := postStart(t, app, `{"streamId":"`+id+`"}`)
	assert.Equal(t, 409, code)
	assert.Contains(t, body, service.ErrStreamNotPending.Error())

	orphan, err := store.Create(context.Background())
	require.NoError(t, err)
	code, _, _ = postStart(t, app, `{"streamId":"`+orphan+`"}`)
	assert.Equal(t, 409, code)
}

func TestStreamController_GetUnknownStream(t *testing.T) {
	app, _ := newStreamApp(t)
	resp, err := app.Test(httptest.NewRequest("GET", "/streams/"+uuid.NewString(), nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestStreamController_EventsOfFinishedStream(t *testing.T) {
	app, store := newStreamApp(t, "a", "b")
	ctx := context.Background()
	id, err := store.CreateOwned(ctx, textstream.Owner{Type: testOwner, ID: "1"})
	require.NoError(t, err)
	code, _, _ := postStart(t, app, `{"streamId":"`+id+`"}`)
	require.Equal(t, 200, code)

	resp, err := app.Test(httptest.NewRequest("GET", "/streams/"+id+"/events?driving=true", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	body := string(raw)
	assert.Equal(t, 1, strings.Count(body, "event: snapshot"))
	assert.Contains(t, body, `"text":"ab"`)
	assert.Contains(t, body, `"finished":true`)
	assert.True(t, strings.HasSuffix(body, "event: end\ndata: {}\n\n"))
}

// pacedResolver emits one fragment per value received on gate and finishes
// when gate is closed.
type pacedResolver struct {
	gate chan string
}

func (r pacedResolver) Resolve(ctx context.Context, streamId string, owner textstream.Owner) (*service.StreamProducer, error) {
	return &service.StreamProducer{
		Produce: func(ctx context.Context, emit textstream.EmitFunc) error {
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case part, ok := <-r.gate:
					if !ok {
						return nil
					}
					if err := emit(textstream.Fragment{Text: part}); err != nil {
						return err
					}
				}
			}
		},
	}, nil
}

// endlessResolver emits until its context is cancelled.
type endlessResolver struct{}

func (endlessResolver) Resolve(ctx context.Context, streamId string, owner textstream.Owner) (*service.StreamProducer, error) {
	return &service.StreamProducer{
		Produce: func(ctx context.Context, emit textstream.EmitFunc) error {
			ticker := time.NewTicker(5 * time.Millisecond)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-ticker.C:
					if err := emit(textstream.Fragment{Text: strings.Repeat("x", 512)}); err != nil {
						return err
					}
				}
			}
		},
	}, nil
}

type sseEvent struct {
	name string
	msg  dto.StreamMessage
}

type sseReader struct {
	r *bufio.Reader
}

func (s *sseReader) next(t *testing.T) sseEvent {
	t.Helper()
	var ev sseEvent
	for {
		line, err := s.r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			return ev
		case strings.HasPrefix(line, "event: "):
			ev.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: ") && ev.name == "snapshot":
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev.msg))
		}
	}
}

func TestStreamController_EventsFollowLiveStream(t *testing.T) {
	gate := make(chan string)
	app, store := newStreamAppWith(t, pacedResolver{gate: gate})
	base := listen(t, app)

	id, err := store.CreateOwned(context.Background(), textstream.Owner{Type: testOwner, ID: "1"})
	require.NoError(t, err)

	resp, err := http.Get(base + "/streams/" + id + "/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)
	events := &sseReader{r: bufio.NewReader(resp.Body)}

	first := events.next(t)
	require.Equal(t, "snapshot", first.name)
	assert.Equal(t, "pending", first.msg.Data.Status)
	assert.Equal(t, int64(0), first.msg.Data.Generation)

	started := make(chan string, 1)
	go func() {
		res, err := http.Post(base+"/start-stream", "application/json", strings.NewReader(`{"streamId":"`+id+`"}`))
		if err != nil {
			started <- err.Error()
			return
		}
		defer res.Body.Close()
		raw, _ := io.ReadAll(res.Body)
		started <- string(raw)
	}()

	last := first.msg.Data.Generation
	readUntil := func(done func(dto.StreamMessage) bool) dto.StreamMessage {
		for {
			ev := events.next(t)
			require.Equal(t, "snapshot", ev.name)
			require.GreaterOrEqual(t, ev.msg.Data.Generation, last)
			last = ev.msg.Data.Generation
			if done(ev.msg) {
				return ev.msg
			}
		}
	}

	var texts []string
	for i, part := range []string{"a", "b", "c"} {
		gate <- part
		want := int64(i + 1)
		msg := readUntil(func(m dto.StreamMessage) bool { return m.Data.Generation == want })
		assert.Equal(t, "streaming", msg.Data.Status)
		assert.False(t, msg.Finished)
		texts = append(texts, msg.Data.Text)
	}
	assert.Equal(t, []string{"a", "ab", "abc"}, texts)

	close(gate)
	final := readUntil(func(m dto.StreamMessage) bool { return m.Data.Status == "done" })
	assert.Equal(t, "abc", final.Data.Text)
	assert.Equal(t, int64(3), final.Data.Generation)
	assert.Equal(t, "end", events.next(t).name)

	select {
	case body := <-started:
		assert.Equal(t, "abc", body)
	case <-time.After(2 * time.Second):
		t.Fatal("start-stream did not finish")
	}
}

func TestStreamController_ClientDisconnectFinalizesError(t *testing.T) {
	app, store := newStreamAppWith(t, endlessResolver{})
	base := listen(t, app)

	id, err := store.CreateOwned(context.Background(), textstream.Owner{Type: testOwner, ID: "1"})
	require.NoError(t, err)

	conn, err := net.Dial("tcp", strings.TrimPrefix(base, "http://"))
	require.NoError(t, err)
	body := `{"streamId":"` + id + `"}`
	_, err = fmt.Fprintf(conn, "POST /start-stream HTTP/1.1\r\nHost: localhost\r\nContent-Type: application/json\r\nContent-Length: %d\r\n\r\n%s", len(body), body)
	require.NoError(t, err)

	status, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)
	assert.Contains(t, status, "200")

	require.Eventually(t, func() bool {
		snap, err := store.Read(context.Background(), id)
		return err == nil && snap.Status == textstream.StatusStreaming
	}, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, conn.Close())

	assert.Eventually(t, func() bool {
		snap, err := store.Read(context.Background(), id)
		return err == nil && snap.Status == textstream.StatusError
	}, 5*time.Second, 20*time.Millisecond)

	snap, err := store.Read(context.Background(), id)
	require.NoError(t, err)
	assert.NotEmpty(t, snap.Text)
}
