package event

import (
	"strings"
	"testing"

	"github.com/hongjun500/mcpd-go/internal/content"
	"github.com/hongjun500/mcpd-go/internal/protocol"
	"github.com/hongjun500/mcpd-go/pkg/logger"
)

// capture 记录投递到各会话的帧
type capture struct {
	sent map[string][]*protocol.Message
	fail map[string]bool
}

func newCapture() *capture {
	return &capture{sent: make(map[string][]*protocol.Message), fail: make(map[string]bool)}
}

func (c *capture) sender(sessionID string, m *protocol.Message) error {
	if c.fail[sessionID] {
		return protocol.NewError(protocol.CodeTransportError, "injected failure")
	}
	c.sent[sessionID] = append(c.sent[sessionID], m)
	return nil
}

func newTestBridge() (*Bridge, *capture) {
	cap := newCapture()
	f := protocol.NewFactory("rig", "1.0", "rig-1")
	return NewBridge(f, cap.sender), cap
}

func TestBroadcastFansOutPerSubscriber(t *testing.T) {
	b, cap := newTestBridge()
	b.Subscribe("s1", "temperature")
	b.Subscribe("s2", "temperature")
	b.Subscribe("s3", "humidity")

	payload, _ := content.FromJSON([]byte(`{"celsius":21.5}`))
	b.Broadcast("temperature", payload, "")

	if len(cap.sent["s1"]) != 1 || len(cap.sent["s2"]) != 1 {
		t.Fatalf("both temperature subscribers must get a frame: %v", cap.sent)
	}
	if len(cap.sent["s3"]) != 0 {
		t.Fatalf("humidity subscriber must not see temperature events")
	}
	m := cap.sent["s1"][0]
	if m.Kind != protocol.KindEventData || m.EventType != "temperature" {
		t.Fatalf("bad event frame: %+v", m)
	}
	if v, _ := m.Content.GetNumber("celsius"); v != 21.5 {
		t.Fatalf("payload lost: %+v", m.Content)
	}
}

func TestBroadcastSurvivesFailedSubscriber(t *testing.T) {
	b, cap := newTestBridge()
	b.Subscribe("dead", "log")
	b.Subscribe("alive", "log")
	cap.fail["dead"] = true

	payload, _ := content.FromJSON([]byte(`{"x":1}`))
	b.Broadcast("log", payload, "")

	if len(cap.sent["alive"]) != 1 {
		t.Fatalf("healthy subscriber starved by failed one")
	}
	// 失败不摘订阅
	if b.Subscribers("log") != 2 {
		t.Fatalf("failed delivery must not unsubscribe")
	}
}

func TestSubscribeSetSemanticsAndDrop(t *testing.T) {
	b, _ := newTestBridge()
	b.Subscribe("s1", "log")
	b.Subscribe("s1", "log")
	if b.Subscribers("log") != 1 {
		t.Fatalf("duplicate subscribe must be a set insert")
	}
	b.Subscribe("s1", "temperature")
	b.DropSession("s1")
	if b.Subscribers("log") != 0 || b.Subscribers("temperature") != 0 {
		t.Fatalf("DropSession must clear every subscription")
	}
}

func TestHandleLogRecordLevelFilter(t *testing.T) {
	b, cap := newTestBridge()
	b.Subscribe("s1", TypeLog)

	// 缺省 INFO：DEBUG 被滤掉，WARN 通过
	b.HandleLogRecord(logger.Record{Level: logger.LevelDebug, Module: "CORE", Message: "noisy"})
	if len(cap.sent["s1"]) != 0 {
		t.Fatalf("debug record must not pass at INFO")
	}
	b.HandleLogRecord(logger.Record{Level: logger.LevelWarn, Module: "CORE", Message: "watch out", TimestampMs: 42})
	if len(cap.sent["s1"]) != 1 {
		t.Fatalf("warn record must pass at INFO")
	}

	m := cap.sent["s1"][0]
	if m.EventType != TypeLog {
		t.Fatalf("event type: %s", m.EventType)
	}
	if msg, _ := m.Content.GetString("message"); msg != "watch out" {
		t.Fatalf("message lost: %+v", m.Content)
	}
	if name, _ := m.Content.GetString("levelName"); name != "WARN" {
		t.Fatalf("levelName: %q", name)
	}
	if mod, _ := m.Content.GetString("module"); mod != "CORE" {
		t.Fatalf("module: %q", mod)
	}
	if ts, _ := m.Content.GetNumber("timestamp"); ts != 42 {
		t.Fatalf("timestamp: %v", ts)
	}
}

func TestHandleLogRecordModuleFilter(t *testing.T) {
	b, cap := newTestBridge()
	b.Subscribe("s1", TypeLog)
	cfg := b.LogConfig()
	cfg.FilterByModule = true
	cfg.AllowedModules["SENSOR"] = struct{}{}

	b.HandleLogRecord(logger.Record{Level: logger.LevelError, Module: "NETWORK", Message: "nope"})
	b.HandleLogRecord(logger.Record{Level: logger.LevelError, Module: "SENSOR", Message: "yes"})
	// 精确匹配，前缀不算
	b.HandleLogRecord(logger.Record{Level: logger.LevelError, Module: "SENSOR2", Message: "nope"})

	if len(cap.sent["s1"]) != 1 {
		t.Fatalf("expect exactly the SENSOR record, got %d", len(cap.sent["s1"]))
	}
}

func TestHandleLogRecordDisabled(t *testing.T) {
	b, cap := newTestBridge()
	b.Subscribe("s1", TypeLog)
	b.LogConfig().Enabled = false
	b.HandleLogRecord(logger.Record{Level: logger.LevelError, Module: "CORE", Message: "x"})
	if len(cap.sent["s1"]) != 0 {
		t.Fatalf("disabled logging must emit nothing")
	}
}

func TestHandleLogRecordNeedsMCPOutput(t *testing.T) {
	b, cap := newTestBridge()
	b.Subscribe("s1", TypeLog)
	b.LogConfig().Outputs = OutputConsole // 摘掉 mcp 输出位
	b.HandleLogRecord(logger.Record{Level: logger.LevelError, Module: "CORE", Message: "x"})
	if len(cap.sent["s1"]) != 0 {
		t.Fatalf("record must not fan out without the mcp output bit")
	}
}

func TestOmittedFieldsFollowIncludeFlags(t *testing.T) {
	b, cap := newTestBridge()
	b.Subscribe("s1", TypeLog)
	cfg := b.LogConfig()
	cfg.IncludeLevelName = false
	cfg.IncludeModuleName = false
	cfg.IncludeTimestamp = false

	b.HandleLogRecord(logger.Record{Level: logger.LevelError, Module: "CORE", Message: "bare"})
	m := cap.sent["s1"][0]
	for _, field := range []string{"levelName", "module", "timestamp"} {
		if m.Content.Has(field) {
			t.Fatalf("field %s must be omitted", field)
		}
	}
	if !m.Content.Has("level") || !m.Content.Has("message") {
		t.Fatalf("level and message are always present")
	}
}

func TestSnapshotShape(t *testing.T) {
	cfg := DefaultLogConfig()
	cfg.AllowedModules["B"] = struct{}{}
	cfg.AllowedModules["A"] = struct{}{}
	snap := cfg.Snapshot()

	if name, _ := snap.GetString("maxLevelName"); name != "INFO" {
		t.Fatalf("maxLevelName: %q", name)
	}
	outputs, _ := snap.GetRaw("outputs")
	if string(outputs) != `["console","mcp"]` {
		t.Fatalf("outputs: %s", outputs)
	}
	modules, _ := snap.GetRaw("allowedModules")
	if string(modules) != `["A","B"]` {
		t.Fatalf("modules must be sorted: %s", modules)
	}
}

func TestRelayReceivesBroadcasts(t *testing.T) {
	b, _ := newTestBridge()
	var got []string
	b.SetRelay(relayFunc(func(eventType string, payload []byte) error {
		got = append(got, eventType+":"+string(payload))
		return nil
	}))
	payload, _ := content.FromJSON([]byte(`{"v":1}`))
	b.Broadcast("telemetry", payload, "")

	if len(got) != 1 || !strings.HasPrefix(got[0], "telemetry:") {
		t.Fatalf("relay missed the broadcast: %v", got)
	}
}

type relayFunc func(eventType string, payload []byte) error

func (f relayFunc) Publish(eventType string, payload []byte) error { return f(eventType, payload) }
