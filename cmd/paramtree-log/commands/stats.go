package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/paramtree/paramtree-go/pkg/log"
	"github.com/paramtree/paramtree-go/pkg/model"
	"github.com/paramtree/paramtree-go/pkg/wire"
)

// Stats holds aggregate statistics about a capture file.
type Stats struct {
	TotalEvents       int
	EventsByLayer     map[log.Layer]int
	EventsByCategory  map[log.Category]int
	EventsByDirection map[log.Direction]int
	Operations        map[wire.Operation]int
	ChangesByOrigin   map[model.Origin]int
	FaultsByCode      map[wire.Status]int
	Sessions          map[string]*SessionStats
	TopPaths          []PathCount
	TimeRange         struct {
		Start time.Time
		End   time.Time
	}
}

// SessionStats holds statistics for a single capture session.
type SessionStats struct {
	FirstSeen time.Time
	LastSeen  time.Time
	Events    int
	Remote    string
}

// PathCount is the number of changes to one parameter.
type PathCount struct {
	Path  string
	Count int
}

// topPaths is the number of most changed parameters reported.
const topPaths = 5

// Collect reads the capture file and aggregates its events.
func Collect(path string) (*Stats, error) {
	stats := &Stats{
		EventsByLayer:     make(map[log.Layer]int),
		EventsByCategory:  make(map[log.Category]int),
		EventsByDirection: make(map[log.Direction]int),
		Operations:        make(map[wire.Operation]int),
		ChangesByOrigin:   make(map[model.Origin]int),
		FaultsByCode:      make(map[wire.Status]int),
		Sessions:          make(map[string]*SessionStats),
	}
	changes := make(map[string]int)

	err := forEach(path, log.Filter{}, func(event log.Event) error {
		stats.TotalEvents++
		stats.EventsByLayer[event.Layer]++
		stats.EventsByCategory[event.Category]++
		stats.EventsByDirection[event.Direction]++

		if stats.TimeRange.Start.IsZero() || event.Timestamp.Before(stats.TimeRange.Start) {
			stats.TimeRange.Start = event.Timestamp
		}
		if event.Timestamp.After(stats.TimeRange.End) {
			stats.TimeRange.End = event.Timestamp
		}

		sess, ok := stats.Sessions[event.SessionID]
		if !ok {
			sess = &SessionStats{FirstSeen: event.Timestamp, LastSeen: event.Timestamp}
			stats.Sessions[event.SessionID] = sess
		}
		sess.Events++
		if event.Timestamp.After(sess.LastSeen) {
			sess.LastSeen = event.Timestamp
		}
		if event.RemoteAddr != "" && sess.Remote == "" {
			sess.Remote = event.RemoteAddr
		}

		switch {
		case event.Message != nil && event.Message.Operation != nil:
			stats.Operations[*event.Message.Operation]++
		case event.Change != nil:
			stats.ChangesByOrigin[event.Change.Origin]++
			if event.Change.Kind == model.ChangeValue {
				changes[event.Change.Path]++
			}
		case event.Fault != nil:
			stats.FaultsByCode[event.Fault.Code]++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for p, n := range changes {
		stats.TopPaths = append(stats.TopPaths, PathCount{Path: p, Count: n})
	}
	sort.Slice(stats.TopPaths, func(i, j int) bool {
		a, b := stats.TopPaths[i], stats.TopPaths[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Path < b.Path
	})
	if len(stats.TopPaths) > topPaths {
		stats.TopPaths = stats.TopPaths[:topPaths]
	}
	return stats, nil
}

// RunStats analyzes the capture file and prints statistics.
func RunStats(path string, w io.Writer) error {
	stats, err := Collect(path)
	if err != nil {
		return err
	}
	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== Parameter Tree Capture Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Layer:")
	for _, layer := range []log.Layer{log.LayerWire, log.LayerTree, log.LayerNotify} {
		if count := stats.EventsByLayer[layer]; count > 0 {
			fmt.Fprintf(w, "  %-14s %d\n", layer.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{log.CategoryMessage, log.CategoryChange, log.CategoryFault, log.CategoryNotification} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-14s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	if len(stats.Operations) > 0 {
		ops := make([]wire.Operation, 0, len(stats.Operations))
		for op := range stats.Operations {
			ops = append(ops, op)
		}
		sort.Slice(ops, func(i, j int) bool { return ops[i] < ops[j] })

		fmt.Fprintln(w, "Requests:")
		for _, op := range ops {
			fmt.Fprintf(w, "  %-26s %d\n", op.String()+":", stats.Operations[op])
		}
		fmt.Fprintln(w)
	}

	if len(stats.ChangesByOrigin) > 0 {
		fmt.Fprintln(w, "Changes by Origin:")
		for _, o := range []model.Origin{model.OriginManagement, model.OriginDevice} {
			if count := stats.ChangesByOrigin[o]; count > 0 {
				fmt.Fprintf(w, "  %-14s %d\n", o.String()+":", count)
			}
		}
		fmt.Fprintln(w)
	}

	if len(stats.TopPaths) > 0 {
		fmt.Fprintln(w, "Most Changed:")
		for _, pc := range stats.TopPaths {
			fmt.Fprintf(w, "  %6d  %s\n", pc.Count, pc.Path)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Sessions: %d\n", len(stats.Sessions))
	if len(stats.Sessions) > 0 {
		type sessionInfo struct {
			id    string
			stats *SessionStats
		}
		sessions := make([]sessionInfo, 0, len(stats.Sessions))
		for id, ss := range stats.Sessions {
			sessions = append(sessions, sessionInfo{id, ss})
		}
		sort.Slice(sessions, func(i, j int) bool {
			return sessions[i].stats.FirstSeen.Before(sessions[j].stats.FirstSeen)
		})

		fmt.Fprintln(w)
		for _, s := range sessions {
			duration := s.stats.LastSeen.Sub(s.stats.FirstSeen).Round(time.Millisecond)
			fmt.Fprintf(w, "  [%s] %d events, duration %s\n", shortenID(s.id), s.stats.Events, duration)
			if s.stats.Remote != "" {
				fmt.Fprintf(w, "           Remote: %s\n", s.stats.Remote)
			}
		}
	}

	if len(stats.FaultsByCode) > 0 {
		codes := make([]wire.Status, 0, len(stats.FaultsByCode))
		for c := range stats.FaultsByCode {
			codes = append(codes, c)
		}
		sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })

		fmt.Fprintln(w)
		fmt.Fprintln(w, "Faults:")
		for _, c := range codes {
			fmt.Fprintf(w, "  %d %-30s %d\n", uint16(c), c.String(), stats.FaultsByCode[c])
		}
	}
}
