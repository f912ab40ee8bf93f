package driver

import (
	"testing"

	"github.com/hongjun500/mcpd-go/internal/protocol"
)

// gpioDriver 测试用的最小驱动
type gpioDriver struct {
	id          string
	inited      bool
	deinitCalls int
}

func (d *gpioDriver) ID() string     { return d.id }
func (d *gpioDriver) TypeID() string { return "gpio" }
func (d *gpioDriver) ConfigSchema() string {
	return `{"type":"object","properties":{"pin":{"type":"integer"}},"required":["pin"]}`
}
func (d *gpioDriver) Initialize(configJSON []byte) error { d.inited = true; return nil }
func (d *gpioDriver) Deinitialize() error                { d.deinitCalls++; return nil }
func (d *gpioDriver) Read() ([]byte, error)              { return []byte(`{"value":1}`), nil }
func (d *gpioDriver) Write(data []byte) error            { return nil }
func (d *gpioDriver) Control(cmd string, args []byte) ([]byte, error) {
	return []byte(`{}`), nil
}
func (d *gpioDriver) GetStatus() ([]byte, error) { return []byte(`{"ok":true}`), nil }

func TestRegisterAndLookup(t *testing.T) {
	m := NewManager(4)
	d := &gpioDriver{id: "gpio0"}
	if err := m.Register(d); err != nil {
		t.Fatal(err)
	}
	if err := m.Register(&gpioDriver{id: "gpio0"}); protocol.CodeOf(err) != protocol.CodeAlreadyRegistered {
		t.Fatalf("duplicate id must be refused, got %v", err)
	}
	if got, ok := m.Find("gpio0"); !ok || got != Driver(d) {
		t.Fatalf("Find failed")
	}
	if len(m.GetByType("gpio")) != 1 || len(m.GetByType("i2c")) != 0 {
		t.Fatalf("GetByType bookkeeping broken")
	}
}

func TestRegisterLimit(t *testing.T) {
	m := NewManager(1)
	_ = m.Register(&gpioDriver{id: "a"})
	if err := m.Register(&gpioDriver{id: "b"}); protocol.CodeOf(err) != protocol.CodeOOM {
		t.Fatalf("expect oom at limit, got %v", err)
	}
}

func TestInitializeValidatesConfig(t *testing.T) {
	m := NewManager(4)
	d := &gpioDriver{id: "gpio0"}
	_ = m.Register(d)

	if err := m.Initialize("gpio0", []byte(`{}`)); protocol.CodeOf(err) != protocol.CodeBadConfig {
		t.Fatalf("missing required pin must be bad_config, got %v", err)
	}
	if d.inited {
		t.Fatalf("driver must not be initialized with bad config")
	}
	if err := m.Initialize("gpio0", []byte(`{"pin":13}`)); err != nil {
		t.Fatal(err)
	}
	if !d.inited {
		t.Fatalf("Initialize not forwarded")
	}
	if err := m.Initialize("missing", []byte(`{}`)); protocol.CodeOf(err) != protocol.CodeNotFound {
		t.Fatalf("unknown driver: %v", err)
	}
}

func TestUnregisterDeinitializesWhenLive(t *testing.T) {
	m := NewManager(4)
	d := &gpioDriver{id: "gpio0"}
	_ = m.Register(d)
	_ = m.Initialize("gpio0", []byte(`{"pin":1}`))

	if err := m.Unregister("gpio0"); err != nil {
		t.Fatal(err)
	}
	if d.deinitCalls != 1 {
		t.Fatalf("live driver must be deinitialized on unregister, calls=%d", d.deinitCalls)
	}
	if m.Count() != 0 {
		t.Fatalf("count: %d", m.Count())
	}
}
