package commands

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/paramtree/paramtree-go/pkg/log"
	"github.com/paramtree/paramtree-go/pkg/model"
	"github.com/paramtree/paramtree-go/pkg/wire"
)

func createTestLogFile(t *testing.T, events []log.Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.plog")

	logger, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	for _, e := range events {
		logger.Log(e)
	}
	logger.Close()

	return path
}

// sampleEvents is one SetParameterValues exchange and its effects.
func sampleEvents() []log.Event {
	ts := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	op := wire.OpSetParameterValues
	status := wire.StatusSuccess
	elapsed := 1500 * time.Microsecond
	return []log.Event{
		{
			Timestamp: ts, SessionID: "4b1c2d3e-aaaa-bbbb", Direction: log.DirectionIn,
			Layer: log.LayerWire, Category: log.CategoryMessage, RemoteAddr: "10.0.0.5:7547",
			Message: &log.MessageEvent{
				Type: wire.MessageTypeRequest, MessageID: 12, Operation: &op,
				Paths: []string{"Device.WiFi.SSID.1.SSID"},
			},
		},
		{
			Timestamp: ts.Add(time.Millisecond), SessionID: "4b1c2d3e-aaaa-bbbb",
			Layer: log.LayerTree, Category: log.CategoryChange,
			Change: &log.ChangeEvent{
				Kind: model.ChangeValue, Path: "Device.WiFi.SSID.1.SSID", Type: "string",
				OldValue: "home", Value: "office", Origin: model.OriginManagement,
			},
		},
		{
			Timestamp: ts.Add(2 * time.Millisecond), SessionID: "4b1c2d3e-aaaa-bbbb", Direction: log.DirectionOut,
			Layer: log.LayerWire, Category: log.CategoryMessage, RemoteAddr: "10.0.0.5:7547",
			Message: &log.MessageEvent{
				Type: wire.MessageTypeResponse, MessageID: 12, Status: &status, ProcessingTime: &elapsed,
			},
		},
		{
			Timestamp: ts.Add(time.Second), SessionID: "4b1c2d3e-aaaa-bbbb",
			Layer: log.LayerTree, Category: log.CategoryChange,
			Change: &log.ChangeEvent{
				Kind: model.ChangeValue, Path: "Device.DeviceInfo.UpTime", Type: "unsignedInt",
				Value: "60", Origin: model.OriginDevice, Notification: model.NotificationPassive,
			},
		},
		{
			Timestamp: ts.Add(2 * time.Second), SessionID: "4b1c2d3e-aaaa-bbbb",
			Layer: log.LayerWire, Category: log.CategoryFault,
			Fault: &log.FaultEvent{
				Path: "Device.DeviceInfo.UpTime", Code: wire.StatusNonWritableParameter,
				Message: "parameter is not writable", Context: "SetParameterValues",
			},
		},
		{
			Timestamp: ts.Add(3 * time.Second), SessionID: "4b1c2d3e-aaaa-bbbb", Direction: log.DirectionOut,
			Layer: log.LayerNotify, Category: log.CategoryNotification,
			Notification: &log.NotificationEvent{Sink: "mqtt", Paths: []string{"Device.WiFi.SSID.1.SSID"}},
		},
	}
}

func TestViewFormatsEvents(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	var buf bytes.Buffer
	if err := RunView(path, Options{}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}
	output := buf.String()

	for _, want := range []string{
		"2026-03-14T09:30:00.000000Z [4b1c2d3e] IN  WIRE request",
		"Operation: SetParameterValues",
		"Path: Device.WiFi.SSID.1.SSID",
		"Remote: 10.0.0.5:7547",
		`string: "home" -> "office"`,
		"value Device.WiFi.SSID.1.SSID (management)",
		"Status: Success (0)",
		"Duration: 1.500ms",
		"Notification: passive",
		"Code: 9008",
		"Context: SetParameterValues",
		"Sink: mqtt",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q\n%s", want, output)
		}
	}
}

func TestViewFilter(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	tests := []struct {
		name string
		opts Options
		want int
	}{
		{"all", Options{}, 6},
		{"layer", Options{Layer: "tree"}, 2},
		{"direction", Options{Direction: "OUT"}, 2},
		{"category", Options{Category: "fault"}, 1},
		{"origin", Options{Origin: "device"}, 1},
		{"path prefix", Options{Path: "Device.WiFi."}, 2},
		{"session", Options{Session: "other"}, 0},
		{"time range", Options{TimeStart: "2026-03-14T09:30:01Z", TimeEnd: "2026-03-14T09:30:03Z"}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := RunView(path, tt.opts, &buf); err != nil {
				t.Fatalf("RunView failed: %v", err)
			}
			if got := strings.Count(buf.String(), "2026-03-14T"); got != tt.want {
				t.Errorf("expected %d events, got %d", tt.want, got)
			}
		})
	}
}

func TestOptionsInvalid(t *testing.T) {
	for _, opts := range []Options{
		{Layer: "transport"},
		{Direction: "sideways"},
		{Category: "state"},
		{Origin: "cwmp"},
		{TimeStart: "yesterday"},
		{TimeEnd: "tomorrow"},
	} {
		if _, err := opts.Filter(); err == nil {
			t.Errorf("expected error for %+v", opts)
		}
	}
}

func TestViewMissingFile(t *testing.T) {
	err := RunView(filepath.Join(t.TempDir(), "missing.plog"), Options{}, io.Discard)
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestExportJSONL(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	out := filepath.Join(t.TempDir(), "out.jsonl")

	if err := RunExport(path, "jsonl", out, Options{Category: "change"}); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var lines int
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var event log.Event
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			t.Fatalf("invalid JSON line %q: %v", scanner.Text(), err)
		}
		if event.Change == nil {
			t.Errorf("expected change event, got %+v", event)
		}
		lines++
	}
	if lines != 2 {
		t.Errorf("expected 2 lines, got %d", lines)
	}
}

func TestExportCSV(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	var buf bytes.Buffer
	if err := export(path, "csv", log.Filter{}, &buf); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("invalid CSV: %v", err)
	}
	if len(records) != 7 {
		t.Fatalf("expected header + 6 rows, got %d", len(records))
	}
	if strings.Join(records[0], ",") != strings.Join(csvHeader, ",") {
		t.Errorf("unexpected header %v", records[0])
	}

	req := records[1]
	if req[5] != "request" || req[6] != "Device.WiFi.SSID.1.SSID" || req[7] != "12" {
		t.Errorf("unexpected request row %v", req)
	}
	fault := records[5]
	if fault[5] != "fault" || fault[8] != "9008" || fault[9] != "parameter is not writable" {
		t.Errorf("unexpected fault row %v", fault)
	}
}

func TestExportUnknownFormat(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	if err := export(path, "xml", log.Filter{}, io.Discard); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestFilterWritesCaptureFile(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	out := filepath.Join(t.TempDir(), "filtered.plog")

	var buf bytes.Buffer
	if err := RunFilter(path, out, Options{Layer: "wire"}, &buf); err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}
	if !strings.Contains(buf.String(), "Filtered 3 events") {
		t.Errorf("unexpected summary %q", buf.String())
	}

	events, err := log.ReadAll(out, log.Filter{})
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	for _, e := range events {
		if e.Layer != log.LayerWire {
			t.Errorf("unexpected layer %s", e.Layer)
		}
	}

	if err := RunFilter(path, "", Options{}, io.Discard); err == nil {
		t.Error("expected error without output file")
	}
}

func TestStats(t *testing.T) {
	events := sampleEvents()
	more := events[1]
	more.Timestamp = more.Timestamp.Add(5 * time.Second)
	events = append(events, more)
	path := createTestLogFile(t, events)

	stats, err := Collect(path)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if stats.TotalEvents != 7 {
		t.Errorf("TotalEvents = %d, want 7", stats.TotalEvents)
	}
	if stats.Operations[wire.OpSetParameterValues] != 1 {
		t.Errorf("expected 1 SetParameterValues, got %d", stats.Operations[wire.OpSetParameterValues])
	}
	if stats.ChangesByOrigin[model.OriginManagement] != 2 || stats.ChangesByOrigin[model.OriginDevice] != 1 {
		t.Errorf("unexpected origins %v", stats.ChangesByOrigin)
	}
	if stats.FaultsByCode[wire.StatusNonWritableParameter] != 1 {
		t.Errorf("unexpected faults %v", stats.FaultsByCode)
	}
	if len(stats.TopPaths) != 2 || stats.TopPaths[0].Path != "Device.WiFi.SSID.1.SSID" || stats.TopPaths[0].Count != 2 {
		t.Errorf("unexpected top paths %+v", stats.TopPaths)
	}
	if s := stats.Sessions["4b1c2d3e-aaaa-bbbb"]; s == nil || s.Events != 7 || s.Remote != "10.0.0.5:7547" {
		t.Errorf("unexpected session stats %+v", s)
	}

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}
	output := buf.String()
	for _, want := range []string{"Total Events: 7", "TREE:", "SetParameterValues:", "management:", "Most Changed:", "Sessions: 1", "Faults:"} {
		if !strings.Contains(output, want) {
			t.Errorf("stats output missing %q\n%s", want, output)
		}
	}
}
