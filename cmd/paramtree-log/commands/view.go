// Package commands implements the paramtree-log CLI commands.
package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/paramtree/paramtree-go/pkg/log"
	"github.com/paramtree/paramtree-go/pkg/model"
)

const timestampLayout = "2006-01-02T15:04:05.000000Z"

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	// Header line: timestamp [session] DIRECTION LAYER Type
	ts := event.Timestamp.UTC().Format(timestampLayout)
	fmt.Fprintf(w, "%s [%s] %-3s %s %s\n",
		ts, shortenID(event.SessionID), event.Direction, event.Layer, eventType(event))

	switch {
	case event.Message != nil:
		formatMessageDetails(w, event.Message)
	case event.Change != nil:
		formatChangeDetails(w, event.Change)
	case event.Fault != nil:
		formatFaultDetails(w, event.Fault)
	case event.Notification != nil:
		formatNotificationDetails(w, event.Notification)
	}
	if event.RemoteAddr != "" {
		fmt.Fprintf(w, "  Remote: %s\n", event.RemoteAddr)
	}

	fmt.Fprintln(w) // Blank line between events
}

// eventType returns a short label for the event payload.
func eventType(event log.Event) string {
	switch {
	case event.Message != nil:
		return event.Message.Type.String()
	case event.Change != nil:
		return "change"
	case event.Fault != nil:
		return "fault"
	case event.Notification != nil:
		return "notification"
	default:
		return "unknown"
	}
}

// shortenID returns the first 8 characters of a session ID.
func shortenID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func formatMessageDetails(w io.Writer, msg *log.MessageEvent) {
	fmt.Fprintf(w, "  MessageID: %d\n", msg.MessageID)
	if msg.Operation != nil {
		fmt.Fprintf(w, "  Operation: %s\n", msg.Operation)
	}
	if msg.PeerSession != "" {
		fmt.Fprintf(w, "  Session: %s\n", msg.PeerSession)
	}
	for _, p := range msg.Paths {
		fmt.Fprintf(w, "  Path: %s\n", p)
	}
	if msg.Status != nil {
		fmt.Fprintf(w, "  Status: %s (%d)\n", msg.Status, uint16(*msg.Status))
	}
	if msg.FaultCount > 0 {
		fmt.Fprintf(w, "  Faults: %d\n", msg.FaultCount)
	}
	if msg.ProcessingTime != nil {
		fmt.Fprintf(w, "  Duration: %s\n", formatDuration(*msg.ProcessingTime))
	}
}

func formatChangeDetails(w io.Writer, c *log.ChangeEvent) {
	fmt.Fprintf(w, "  %s %s (%s)\n", c.Kind, c.Path, c.Origin)
	if c.Kind != model.ChangeValue {
		return
	}
	if c.OldValue != "" {
		fmt.Fprintf(w, "  %s: %q -> %q\n", c.Type, c.OldValue, c.Value)
	} else {
		fmt.Fprintf(w, "  %s: -> %q\n", c.Type, c.Value)
	}
	if c.Notification != model.NotificationOff {
		fmt.Fprintf(w, "  Notification: %s\n", c.Notification)
	}
}

func formatFaultDetails(w io.Writer, f *log.FaultEvent) {
	fmt.Fprintf(w, "  Code: %d (%s)\n", uint16(f.Code), f.Code)
	if f.Path != "" {
		fmt.Fprintf(w, "  Path: %s\n", f.Path)
	}
	fmt.Fprintf(w, "  Message: %s\n", f.Message)
	if f.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", f.Context)
	}
}

func formatNotificationDetails(w io.Writer, n *log.NotificationEvent) {
	if n.Sink != "" {
		fmt.Fprintf(w, "  Sink: %s\n", n.Sink)
	}
	fmt.Fprintf(w, "  Paths: %s\n", strings.Join(n.Paths, ", "))
	if n.Error != "" {
		fmt.Fprintf(w, "  Error: %s\n", n.Error)
	}
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%.3fus", float64(d.Nanoseconds())/1000)
	}
	if d < time.Second {
		return fmt.Sprintf("%.3fms", float64(d.Microseconds())/1000)
	}
	return fmt.Sprintf("%.3fs", d.Seconds())
}

// parseLayer parses a layer string (case-insensitive).
func parseLayer(s string) (log.Layer, error) {
	switch strings.ToLower(s) {
	case "wire":
		return log.LayerWire, nil
	case "tree":
		return log.LayerTree, nil
	case "notify":
		return log.LayerNotify, nil
	default:
		return 0, fmt.Errorf("invalid layer: %s (must be wire, tree, or notify)", s)
	}
}

// parseDirection parses a direction string (case-insensitive).
func parseDirection(s string) (log.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return log.DirectionIn, nil
	case "out":
		return log.DirectionOut, nil
	default:
		return 0, fmt.Errorf("invalid direction: %s (must be in or out)", s)
	}
}

// parseCategory parses a category string (case-insensitive).
func parseCategory(s string) (log.Category, error) {
	if c, ok := log.ParseCategory(strings.ToUpper(s)); ok {
		return c, nil
	}
	return 0, fmt.Errorf("invalid category: %s (must be message, change, fault, or notification)", s)
}

// parseOrigin parses a change origin string (case-insensitive).
func parseOrigin(s string) (model.Origin, error) {
	switch strings.ToLower(s) {
	case "management", "acs":
		return model.OriginManagement, nil
	case "device":
		return model.OriginDevice, nil
	default:
		return 0, fmt.Errorf("invalid origin: %s (must be management or device)", s)
	}
}

// Options holds the filter flags shared by view, export and filter.
type Options struct {
	Session   string
	Layer     string
	Direction string
	Category  string
	Path      string
	Origin    string
	TimeStart string
	TimeEnd   string
}

// Filter converts the options into a log filter.
func (o Options) Filter() (log.Filter, error) {
	f := log.Filter{SessionID: o.Session, PathPrefix: o.Path}

	if o.Layer != "" {
		l, err := parseLayer(o.Layer)
		if err != nil {
			return f, err
		}
		f.Layer = &l
	}
	if o.Direction != "" {
		d, err := parseDirection(o.Direction)
		if err != nil {
			return f, err
		}
		f.Direction = &d
	}
	if o.Category != "" {
		c, err := parseCategory(o.Category)
		if err != nil {
			return f, err
		}
		f.Category = &c
	}
	if o.Origin != "" {
		origin, err := parseOrigin(o.Origin)
		if err != nil {
			return f, err
		}
		f.Origin = &origin
	}
	if o.TimeStart != "" {
		t, err := time.Parse(time.RFC3339, o.TimeStart)
		if err != nil {
			return f, fmt.Errorf("invalid time-start format: %w", err)
		}
		f.TimeStart = &t
	}
	if o.TimeEnd != "" {
		t, err := time.Parse(time.RFC3339, o.TimeEnd)
		if err != nil {
			return f, fmt.Errorf("invalid time-end format: %w", err)
		}
		f.TimeEnd = &t
	}
	return f, nil
}

// forEach calls fn for every event in path matching filter.
func forEach(path string, filter log.Filter, fn func(log.Event) error) error {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open capture file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if err := fn(event); err != nil {
			return err
		}
	}
}

// RunView executes the view command.
func RunView(path string, opts Options, output io.Writer) error {
	filter, err := opts.Filter()
	if err != nil {
		return err
	}
	return forEach(path, filter, func(event log.Event) error {
		formatEvent(output, event)
		return nil
	})
}
