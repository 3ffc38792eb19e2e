// Package notify reports parameter value changes to the management side.
//
// A Tracker listens to a model.Tree and keeps, per parameter, the latest
// change since the last report. The attribute set on each parameter
// decides what happens to a change:
//
//   - Off: the change is not tracked.
//   - Passive: the change is held until the next report (Drain), as for
//     inclusion in the next periodic Inform.
//   - Active: the change is also pushed to every Sink as soon as the
//     coalescing window has elapsed.
//
// # Coalescing Behavior
//
// When a parameter changes several times before it is reported, only the
// final value is reported. With Config.MinInterval set, active changes are
// collected for that long after the first one and delivered together.
//
// # Bounce-Back Suppression
//
// If a value changes and then returns to the value last reported before
// the report is due, nothing is reported for it.
//
// # Own Writes
//
// Changes made through the management protocol are not reported back to
// it by default (Config.IgnoreManagement).
package notify
