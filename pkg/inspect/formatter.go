package inspect

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/paramtree/paramtree-go/pkg/model"
)

// Formatter formats parameter values and objects for display.
type Formatter struct {
	// ShowMetadata includes type, access and notification in listings.
	ShowMetadata bool

	// ShowPaths prints full instance paths instead of local names.
	ShowPaths bool

	// IndentWidth is the number of spaces per indentation level.
	IndentWidth int
}

// NewFormatter creates a new formatter with default settings.
func NewFormatter() *Formatter {
	return &Formatter{
		ShowMetadata: false,
		ShowPaths:    false,
		IndentWidth:  2,
	}
}

// Indent returns the string indented by the given depth.
func (f *Formatter) Indent(depth int, s string) string {
	return strings.Repeat(" ", depth*f.IndentWidth) + s
}

// FormatValue formats a value for display, adding a readable conversion
// for the common TR-106 units.
func (f *Formatter) FormatValue(pv model.ParameterValue, unit string) string {
	switch pv.Type {
	case model.DataTypeString, model.DataTypeIPAddress, model.DataTypeMACAddress:
		return fmt.Sprintf("%q", pv.String())
	case model.DataTypeDateTime:
		if t, ok := pv.Value.(time.Time); ok && t.Equal(model.UnknownTime) {
			return pv.String() + " (unknown)"
		}
		return pv.String()
	case model.DataTypeBase64, model.DataTypeHexBinary:
		if b, ok := pv.Value.([]byte); ok {
			return fmt.Sprintf("%s (%d bytes)", pv.String(), len(b))
		}
		return pv.String()
	}
	if !pv.Type.IsNumeric() || unit == "" {
		return pv.String()
	}
	return formatNumberWithUnit(pv.String(), unit)
}

// formatNumberWithUnit appends the unit and, when the value is large enough
// for it to help, a scaled form.
func formatNumberWithUnit(s, unit string) string {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		// unsignedLong beyond int64
		return fmt.Sprintf("%s %s", s, unit)
	}

	switch unit {
	case "seconds":
		if n >= 60 {
			return fmt.Sprintf("%d seconds (%s)", n, time.Duration(n)*time.Second)
		}
	case "milliseconds":
		if n >= 1000 {
			return fmt.Sprintf("%d milliseconds (%s)", n, time.Duration(n)*time.Millisecond)
		}
	case "Kbps":
		if n >= 1000 {
			return fmt.Sprintf("%d Kbps (%.1f Mbps)", n, float64(n)/1000)
		}
	case "Mbps":
		if n >= 1000 {
			return fmt.Sprintf("%d Mbps (%.1f Gbps)", n, float64(n)/1000)
		}
	case "bytes":
		if n >= 1024 {
			return fmt.Sprintf("%d bytes (%s)", n, FormatBytesHumanReadable(n))
		}
	case "percent":
		return fmt.Sprintf("%d%%", n)
	}
	return fmt.Sprintf("%d %s", n, unit)
}

// FormatBytesHumanReadable formats a byte count with a binary prefix.
func FormatBytesHumanReadable(n int64) string {
	const unit = 1024
	abs := n
	if abs < 0 {
		abs = -abs
	}
	if abs < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := abs / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// FormatAccess formats an access level for display.
func FormatAccess(access model.Access) string {
	switch access {
	case model.AccessReadOnly:
		return "read-only"
	case model.AccessReadWrite:
		return "read-write"
	case model.AccessWrite:
		return "write"
	default:
		return fmt.Sprintf("access(%d)", access)
	}
}

// FormatNotification formats a notification level, marking levels the
// active notification policy pins.
func FormatNotification(level model.Notification, policy model.ActiveNotify) string {
	switch policy {
	case model.ActiveNotifyForceEnabled:
		return level.String() + " (forced)"
	case model.ActiveNotifyCanDeny:
		return level.String() + " (active denied)"
	}
	return level.String()
}

// ParameterRow represents a formatted parameter for display.
type ParameterRow struct {
	Name         string
	Path         string
	Value        string
	Type         string
	Access       string
	Notification string
}

// FormatParameterTable formats a list of parameters, one per line.
func (f *Formatter) FormatParameterTable(rows []ParameterRow) string {
	if len(rows) == 0 {
		return "  (no parameters)"
	}

	var sb strings.Builder
	for _, row := range rows {
		name := row.Name
		if f.ShowPaths && row.Path != "" {
			name = row.Path
		}
		fmt.Fprintf(&sb, "  %s = %s", name, row.Value)
		if f.ShowMetadata && row.Type != "" {
			fmt.Fprintf(&sb, " (%s, %s, %s)", row.Type, row.Access, row.Notification)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
