package logger

import "testing"

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want Level
		ok   bool
	}{
		{"none", LevelNone, true},
		{"ERROR", LevelError, true},
		{"Warn", LevelWarn, true},
		{"warning", LevelWarn, true},
		{" info ", LevelInfo, true},
		{"debug", LevelDebug, true},
		{"trace", LevelTrace, true},
		{"loud", LevelInfo, false},
	}
	for _, c := range cases {
		got, ok := ParseLevel(c.in)
		if got != c.want || ok != c.ok {
			t.Fatalf("ParseLevel(%q) = %v %v", c.in, got, ok)
		}
	}
}

func TestLevelNames(t *testing.T) {
	for lv, want := range map[Level]string{
		LevelNone: "NONE", LevelError: "ERROR", LevelWarn: "WARN",
		LevelInfo: "INFO", LevelDebug: "DEBUG", LevelTrace: "TRACE",
	} {
		if lv.Name() != want {
			t.Fatalf("%d.Name() = %s", lv, lv.Name())
		}
	}
}

func TestLevelOrdering(t *testing.T) {
	if !(LevelNone < LevelError && LevelError < LevelWarn && LevelWarn < LevelInfo &&
		LevelInfo < LevelDebug && LevelDebug < LevelTrace) {
		t.Fatalf("levels must grow with verbosity")
	}
}

func TestSinkReceivesRecords(t *testing.T) {
	got := make(chan Record, 4)
	SetSink(func(r Record) { got <- r })
	defer SetSink(nil)

	M("TEST").Warnf("pressure %d", 42)

	rec := <-got
	if rec.Level != LevelWarn || rec.Module != "TEST" || rec.Message != "pressure 42" {
		t.Fatalf("record: %+v", rec)
	}
	if rec.TimestampMs == 0 {
		t.Fatalf("timestamp missing")
	}
}

func TestTraceMapsToDebugOutput(t *testing.T) {
	got := make(chan Record, 1)
	SetSink(func(r Record) { got <- r })
	defer SetSink(nil)

	M("TEST").Tracef("fine grained")
	rec := <-got
	if rec.Level != LevelTrace {
		t.Fatalf("sink level must stay trace, got %v", rec.Level)
	}
}
