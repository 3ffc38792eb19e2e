package model

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math"
	"net"
	"net/netip"
	"strconv"
	"strings"
	"time"
)

// DataType represents the type of a parameter value.
//
// The set is closed and follows the TR-106 primitive and named data types.
// Each type has one canonical Go representation:
//
//	string, IPAddress, MACAddress   string
//	int                             int32
//	unsignedInt, StatsCounter32     uint32
//	long                            int64
//	unsignedLong, StatsCounter64    uint64
//	boolean                         bool
//	dateTime                        time.Time (UTC)
//	base64, hexBinary               []byte
type DataType uint8

const (
	DataTypeUnknown DataType = iota
	DataTypeString
	DataTypeInt
	DataTypeUnsignedInt
	DataTypeLong
	DataTypeUnsignedLong
	DataTypeBoolean
	DataTypeDateTime
	DataTypeBase64
	DataTypeHexBinary
	DataTypeIPAddress
	DataTypeMACAddress
	DataTypeStatsCounter32
	DataTypeStatsCounter64
)

var dataTypeNames = []string{
	"unknown", "string", "int", "unsignedInt", "long", "unsignedLong",
	"boolean", "dateTime", "base64", "hexBinary", "IPAddress", "MACAddress",
	"StatsCounter32", "StatsCounter64",
}

// UnknownTime is the dateTime value TR-106 uses for "unknown".
var UnknownTime = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)

// String returns the data type name as used in the data model definitions.
func (d DataType) String() string {
	if int(d) < len(dataTypeNames) {
		return dataTypeNames[d]
	}
	return "unknown"
}

// ParseDataType returns the data type with the given name.
// Matching is case-insensitive.
func ParseDataType(name string) (DataType, error) {
	for i, n := range dataTypeNames {
		if i != 0 && strings.EqualFold(n, name) {
			return DataType(i), nil
		}
	}
	return DataTypeUnknown, fmt.Errorf("%w: unknown data type %q", ErrInvalidSchema, name)
}

// XSDType returns the XML schema type used for this data type on the wire.
func (d DataType) XSDType() string {
	switch d {
	case DataTypeInt:
		return "xsd:int"
	case DataTypeUnsignedInt, DataTypeStatsCounter32:
		return "xsd:unsignedInt"
	case DataTypeLong:
		return "xsd:long"
	case DataTypeUnsignedLong, DataTypeStatsCounter64:
		return "xsd:unsignedLong"
	case DataTypeBoolean:
		return "xsd:boolean"
	case DataTypeDateTime:
		return "xsd:dateTime"
	case DataTypeBase64:
		return "xsd:base64"
	case DataTypeHexBinary:
		return "xsd:hexBinary"
	default:
		return "xsd:string"
	}
}

// IsNumeric returns true for the integer and counter types.
func (d DataType) IsNumeric() bool {
	switch d {
	case DataTypeInt, DataTypeUnsignedInt, DataTypeLong, DataTypeUnsignedLong,
		DataTypeStatsCounter32, DataTypeStatsCounter64:
		return true
	default:
		return false
	}
}

// IsCounter returns true for the wraparound counter types.
func (d DataType) IsCounter() bool {
	return d == DataTypeStatsCounter32 || d == DataTypeStatsCounter64
}

// hasLength returns true for types whose length constraint applies.
func (d DataType) hasLength() bool {
	switch d {
	case DataTypeString, DataTypeBase64, DataTypeHexBinary:
		return true
	default:
		return false
	}
}

// ZeroValue returns the value a parameter of this type holds when the
// schema declares no default.
func (d DataType) ZeroValue() any {
	switch d {
	case DataTypeInt:
		return int32(0)
	case DataTypeUnsignedInt, DataTypeStatsCounter32:
		return uint32(0)
	case DataTypeLong:
		return int64(0)
	case DataTypeUnsignedLong, DataTypeStatsCounter64:
		return uint64(0)
	case DataTypeBoolean:
		return false
	case DataTypeDateTime:
		return UnknownTime
	case DataTypeBase64, DataTypeHexBinary:
		return []byte{}
	default:
		return ""
	}
}

// Coerce converts v to the canonical Go representation of this type.
// Strings are parsed with Parse. Integers of any Go kind are accepted for
// numeric types as long as they fit the type's width.
func (d DataType) Coerce(v any) (any, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: nil value for %s", ErrInvalidType, d)
	}
	if s, ok := v.(string); ok {
		return d.Parse(s)
	}

	switch d {
	case DataTypeInt:
		n, ok := toInt64(v)
		if !ok {
			return nil, fmt.Errorf("%w: expected integer, got %T", ErrInvalidType, v)
		}
		if n < math.MinInt32 || n > math.MaxInt32 {
			return nil, fmt.Errorf("%w: %v does not fit int", ErrConstraintViolation, v)
		}
		return int32(n), nil

	case DataTypeLong:
		n, ok := toInt64(v)
		if !ok {
			return nil, fmt.Errorf("%w: expected integer, got %T", ErrInvalidType, v)
		}
		return n, nil

	case DataTypeUnsignedInt, DataTypeStatsCounter32:
		n, err := toUint64Checked(v)
		if err != nil {
			return nil, err
		}
		if n > math.MaxUint32 {
			return nil, fmt.Errorf("%w: %v does not fit %s", ErrConstraintViolation, v, d)
		}
		return uint32(n), nil

	case DataTypeUnsignedLong, DataTypeStatsCounter64:
		return toUint64Checked(v)

	case DataTypeBoolean:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("%w: expected bool, got %T", ErrInvalidType, v)
		}
		return b, nil

	case DataTypeDateTime:
		t, ok := v.(time.Time)
		if !ok {
			return nil, fmt.Errorf("%w: expected time.Time, got %T", ErrInvalidType, v)
		}
		return t.UTC(), nil

	case DataTypeBase64, DataTypeHexBinary:
		b, ok := v.([]byte)
		if !ok {
			return nil, fmt.Errorf("%w: expected []byte, got %T", ErrInvalidType, v)
		}
		return bytes.Clone(b), nil

	case DataTypeIPAddress:
		switch a := v.(type) {
		case netip.Addr:
			return a.String(), nil
		case net.IP:
			return a.String(), nil
		}
		return nil, fmt.Errorf("%w: expected IP address, got %T", ErrInvalidType, v)

	case DataTypeMACAddress:
		if hw, ok := v.(net.HardwareAddr); ok {
			return strings.ToUpper(hw.String()), nil
		}
		return nil, fmt.Errorf("%w: expected MAC address, got %T", ErrInvalidType, v)

	default:
		return nil, fmt.Errorf("%w: expected string, got %T", ErrInvalidType, v)
	}
}

// Parse converts the string form of a value, as carried by the management
// protocol, into its canonical Go representation.
func (d DataType) Parse(s string) (any, error) {
	switch d {
	case DataTypeString:
		return s, nil

	case DataTypeInt:
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
		if err != nil {
			return nil, parseError(d, s, err)
		}
		return int32(n), nil

	case DataTypeLong:
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return nil, parseError(d, s, err)
		}
		return n, nil

	case DataTypeUnsignedInt, DataTypeStatsCounter32:
		n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
		if err != nil {
			return nil, parseError(d, s, err)
		}
		return uint32(n), nil

	case DataTypeUnsignedLong, DataTypeStatsCounter64:
		n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return nil, parseError(d, s, err)
		}
		return n, nil

	case DataTypeBoolean:
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true", "1":
			return true, nil
		case "false", "0":
			return false, nil
		}
		return nil, fmt.Errorf("%w: %q is not a boolean", ErrInvalidType, s)

	case DataTypeDateTime:
		t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a dateTime", ErrInvalidType, s)
		}
		return t.UTC(), nil

	case DataTypeBase64:
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid base64", ErrInvalidType)
		}
		return b, nil

	case DataTypeHexBinary:
		b, err := hex.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid hexBinary", ErrInvalidType)
		}
		return b, nil

	case DataTypeIPAddress:
		if s == "" {
			return s, nil
		}
		if _, err := netip.ParseAddr(s); err != nil {
			return nil, fmt.Errorf("%w: %q is not an IP address", ErrConstraintViolation, s)
		}
		return s, nil

	case DataTypeMACAddress:
		if s == "" {
			return s, nil
		}
		hw, err := net.ParseMAC(s)
		if err != nil || len(hw) != 6 {
			return nil, fmt.Errorf("%w: %q is not a MAC address", ErrConstraintViolation, s)
		}
		return strings.ToUpper(hw.String()), nil
	}

	return nil, fmt.Errorf("%w: cannot parse %s", ErrInvalidType, d)
}

// Format returns the string form of a canonical value.
func (d DataType) Format(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case []byte:
		if d == DataTypeHexBinary {
			return hex.EncodeToString(x)
		}
		return base64.StdEncoding.EncodeToString(x)
	default:
		return fmt.Sprintf("%v", x)
	}
}

func parseError(d DataType, s string, err error) error {
	if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
		return fmt.Errorf("%w: %s does not fit %s", ErrConstraintViolation, s, d)
	}
	return fmt.Errorf("%w: %q is not a valid %s", ErrInvalidType, s, d)
}

// valuesEqual compares two canonical values.
func valuesEqual(a, b any) bool {
	switch x := a.(type) {
	case []byte:
		y, ok := b.([]byte)
		return ok && bytes.Equal(x, y)
	case time.Time:
		y, ok := b.(time.Time)
		return ok && x.Equal(y)
	default:
		return a == b
	}
}

// cloneValue returns a copy of v that shares no memory with the tree.
func cloneValue(v any) any {
	if b, ok := v.([]byte); ok {
		return bytes.Clone(b)
	}
	return v
}

// Helper functions for numeric conversion.

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	default:
		return 0, false
	}
}

func toUint64Checked(v any) (uint64, error) {
	switch n := v.(type) {
	case uint:
		return uint64(n), nil
	case uint8:
		return uint64(n), nil
	case uint16:
		return uint64(n), nil
	case uint32:
		return uint64(n), nil
	case uint64:
		return n, nil
	}
	s, ok := toInt64(v)
	if !ok {
		return 0, fmt.Errorf("%w: expected unsigned integer, got %T", ErrInvalidType, v)
	}
	if s < 0 {
		return 0, fmt.Errorf("%w: %d is negative", ErrConstraintViolation, s)
	}
	return uint64(s), nil
}

// compareNumbers compares two integer values of any Go kind without loss
// of precision. It returns -1, 0 or 1, and false if either is not an integer.
func compareNumbers(a, b any) (int, bool) {
	an, aneg, ok := magnitude(a)
	if !ok {
		return 0, false
	}
	bn, bneg, ok := magnitude(b)
	if !ok {
		return 0, false
	}
	switch {
	case aneg && !bneg:
		return -1, true
	case !aneg && bneg:
		return 1, true
	}
	c := 0
	switch {
	case an < bn:
		c = -1
	case an > bn:
		c = 1
	}
	if aneg {
		c = -c
	}
	return c, true
}

func magnitude(v any) (mag uint64, neg bool, ok bool) {
	if u, err := toUint64Checked(v); err == nil {
		return u, false, true
	}
	s, ok := toInt64(v)
	if !ok {
		return 0, false, false
	}
	// s is negative here; -(s+1)+1 avoids overflow at MinInt64.
	return uint64(-(s + 1)) + 1, true, true
}
