package storage

import (
	"path/filepath"
	"testing"

	"github.com/hongjun500/mcpd-go/internal/tool"
)

func openTestStore(t *testing.T) *ToolStore {
	t.Helper()
	s, err := OpenToolStore(filepath.Join(t.TempDir(), "tools"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func compositeDef() *tool.Definition {
	return &tool.Definition{
		Name:        "triple",
		Description: "x*3 using chained adds",
		Schema:      `{"type":"object","properties":{"x":{"type":"number"}},"required":["x"]}`,
		Kind:        tool.KindComposite,
		Steps: []tool.Step{
			{ToolName: "add", ParamsTemplate: `{"a":"$params.x","b":"$params.x"}`, Bind: "d"},
			{ToolName: "add", ParamsTemplate: `{"a":"$d.result","b":"$params.x"}`},
		},
		CreatedMs: 1234,
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := openTestStore(t)
	if err := s.Save(compositeDef()); err != nil {
		t.Fatal(err)
	}

	got, err := s.Load("triple")
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "triple" || got.Kind != tool.KindComposite || len(got.Steps) != 2 {
		t.Fatalf("definition mangled: %+v", got)
	}
	if got.Steps[0].Bind != "d" {
		t.Fatalf("step binding lost: %+v", got.Steps[0])
	}
	if !got.IsDynamic || !got.Persistent {
		t.Fatalf("restored tools are dynamic and persistent")
	}
	if len(got.Params) != 1 || got.Params[0].Name != "x" {
		t.Fatalf("params not rebuilt from schema: %+v", got.Params)
	}
	if got.CreatedMs != 1234 {
		t.Fatalf("createdMs: %d", got.CreatedMs)
	}
}

func TestSaveRefusesNative(t *testing.T) {
	s := openTestStore(t)
	err := s.Save(&tool.Definition{Name: "native.thing", Kind: tool.KindNative})
	if err == nil {
		t.Fatalf("native tools must not persist")
	}
}

func TestLoadAllAndDelete(t *testing.T) {
	s := openTestStore(t)
	_ = s.Save(compositeDef())
	other := compositeDef()
	other.Name = "quadruple"
	_ = s.Save(other)

	defs, err := s.LoadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(defs) != 2 {
		t.Fatalf("expect 2 persisted tools, got %d", len(defs))
	}

	if err := s.Delete("triple"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Load("triple"); err == nil {
		t.Fatalf("deleted tool still loads")
	}
	// 幂等删除
	if err := s.Delete("triple"); err != nil {
		t.Fatalf("double delete must be a no-op, got %v", err)
	}
}

func TestUpsertOverwrites(t *testing.T) {
	s := openTestStore(t)
	_ = s.Save(compositeDef())
	changed := compositeDef()
	changed.Description = "rewritten"
	if err := s.Save(changed); err != nil {
		t.Fatal(err)
	}
	got, _ := s.Load("triple")
	if got.Description != "rewritten" {
		t.Fatalf("upsert did not overwrite: %q", got.Description)
	}
}
