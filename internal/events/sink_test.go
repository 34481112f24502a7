package events

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestMultiFansOut(t *testing.T) {
	a, b := NewMemorySink(), NewMemorySink()
	sink := Multi{a, nil, b}

	sink.Emit(context.Background(), TokenMinted{TokenAddress: "0x01"})
	sink.Emit(context.Background(), DeviceDeleted{DeviceID: "D1"})

	for i, s := range []*MemorySink{a, b} {
		if got := len(s.Events()); got != 2 {
			t.Fatalf("sink %d: expected 2 events, got %d", i, got)
		}
		if got := s.Named("token.minted"); len(got) != 1 || got[0].(TokenMinted).TokenAddress != "0x01" {
			t.Fatalf("sink %d: unexpected minted events %+v", i, got)
		}
	}
}

func TestLogSinkLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	sink := NewLogSink(logger)

	sink.Emit(context.Background(), ValidationRecorded{DeviceID: "D1", Result: "failure", Reason: "invalid_code"})
	sink.Emit(context.Background(), MintFailed{DeviceID: "D1", Error: "boom"})
	sink.Emit(context.Background(), ValidationRecorded{DeviceID: "D1", Result: "success"})

	dec := json.NewDecoder(&buf)
	want := []struct{ msg, level string }{
		{"validation.recorded", "WARN"},
		{"token.mint_failed", "ERROR"},
		{"validation.recorded", "INFO"},
	}
	for _, w := range want {
		var line map[string]any
		if err := dec.Decode(&line); err != nil {
			t.Fatalf("decode log line: %v", err)
		}
		if line["msg"] != w.msg || line["level"] != w.level {
			t.Fatalf("expected %s at %s, got %v at %v", w.msg, w.level, line["msg"], line["level"])
		}
	}
}
