package log

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/paramtree/paramtree-go/pkg/model"
	"github.com/paramtree/paramtree-go/pkg/wire"
)

func writeEvents(t *testing.T, events ...Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.plog")
	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	for _, ev := range events {
		logger.Log(ev)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	return path
}

func TestReaderNext(t *testing.T) {
	path := writeEvents(t,
		changeEvent("s", "Device.IP.IPv4Enable", "true"),
		changeEvent("s", "Device.IP.IPv4Enable", "false"),
	)

	r, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer r.Close()

	for _, want := range []string{"true", "false"} {
		ev, err := r.Next()
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		if ev.Change.Value != want {
			t.Errorf("value: got %q, want %q", ev.Change.Value, want)
		}
	}
	if _, err := r.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestReaderPartialRecord(t *testing.T) {
	path := writeEvents(t, changeEvent("s", "Device.IP.IPv4Enable", "true"))

	data, err := EncodeEvent(changeEvent("s", "Device.IP.IPv4Enable", "false"))
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		t.Fatal(err)
	}
	f.Write(data[:len(data)/2])
	f.Close()

	events, err := ReadAll(path, Filter{})
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("expected io.ErrUnexpectedEOF, got %v", err)
	}
	if len(events) != 1 || events[0].Change.Value != "true" {
		t.Errorf("complete records: got %+v", events)
	}
}

func TestReaderMissingFile(t *testing.T) {
	if _, err := NewReader(filepath.Join(t.TempDir(), "none.plog")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestFilter(t *testing.T) {
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	op := wire.OpGetParameterValues

	set := changeEvent("s1", "Device.WiFi.SSID.1.SSID", "home")
	set.Timestamp = base

	device := changeEvent("s1", "Device.DeviceInfo.UpTime", "60")
	device.Timestamp = base.Add(time.Minute)
	device.Change.Origin = model.OriginDevice

	fault := Event{
		Timestamp: base.Add(2 * time.Minute),
		SessionID: "s2",
		Layer:     LayerTree,
		Category:  CategoryFault,
		Fault:     &FaultEvent{Path: "Device.WiFi.SSID.1.Name", Code: wire.StatusNonWritableParameter},
	}
	request := Event{
		Timestamp: base.Add(3 * time.Minute),
		SessionID: "s2",
		Direction: DirectionIn,
		Layer:     LayerWire,
		Category:  CategoryMessage,
		Message:   &MessageEvent{Type: wire.MessageTypeRequest, MessageID: 1, Operation: &op, Paths: []string{"Device.DeviceInfo."}},
	}

	path := writeEvents(t, set, device, fault, request)

	cat := func(c Category) *Category { return &c }
	layer := func(l Layer) *Layer { return &l }
	dir := func(d Direction) *Direction { return &d }
	origin := func(o model.Origin) *model.Origin { return &o }
	at := func(d time.Duration) *time.Time { v := base.Add(d); return &v }

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"All", Filter{}, 4},
		{"Session", Filter{SessionID: "s2"}, 2},
		{"Category", Filter{Category: cat(CategoryChange)}, 2},
		{"Layer", Filter{Layer: layer(LayerWire)}, 1},
		{"Direction", Filter{Direction: dir(DirectionOut)}, 0},
		{"PathPrefix", Filter{PathPrefix: "Device.WiFi."}, 2},
		{"PathPrefixMessage", Filter{PathPrefix: "Device.DeviceInfo."}, 2},
		{"Origin", Filter{Origin: origin(model.OriginDevice)}, 1},
		{"TimeStart", Filter{TimeStart: at(time.Minute)}, 3},
		{"TimeEnd", Filter{TimeEnd: at(time.Minute)}, 1},
		{"Combined", Filter{SessionID: "s1", PathPrefix: "Device.WiFi."}, 1},
		{"None", Filter{SessionID: "nobody"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := ReadAll(path, tt.filter)
			if err != nil {
				t.Fatalf("ReadAll failed: %v", err)
			}
			if len(events) != tt.want {
				t.Errorf("got %d events, want %d", len(events), tt.want)
			}
		})
	}
}
