// Package inspect provides tree inspection and editing utilities for
// interactive tools.
//
// The inspect package offers a unified interface for:
//   - Resolving shell paths against a current object (e.g. "../SSID.1.Name")
//   - Completing and canonicalizing names from the schema
//   - Reading and writing parameters in their string form
//   - Formatting values and subtrees for display
//
// Inspector works on a local tree, RemoteInspector on a management client.
package inspect

import (
	"errors"
	"fmt"
	"strings"
)

// Path errors.
var (
	ErrEmptyPath   = errors.New("empty path")
	ErrInvalidPath = errors.New("invalid path format")
)

// Resolve resolves a shell path against the current object cwd, which
// must be in trailing-dot form. An empty cwd means the root object.
//
// Supported forms:
//   - "Device.WiFi.Radio.1.Channel" - absolute, starts with the root name
//     in any case
//   - "Radio.1.Channel"             - relative to cwd
//   - "/"                           - the root object
//   - "..", "../SSID.1."            - parent object, then relative
//
// Parameter paths come back without a trailing dot, object paths with one
// when the input had it. Names are not checked against the tree.
func Resolve(root, cwd, input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", ErrEmptyPath
	}
	rootPath := root + "."
	if input == "/" {
		return rootPath, nil
	}
	if first, _, _ := strings.Cut(input, "."); strings.EqualFold(first, root) {
		abs := root + input[len(first):]
		if abs == root {
			return rootPath, nil
		}
		if err := checkSegments(abs); err != nil {
			return "", err
		}
		return abs, nil
	}

	base := cwd
	if base == "" {
		base = rootPath
	}
	if strings.HasPrefix(input, "/") {
		base = rootPath
		input = strings.TrimLeft(input, "/")
	}

	parts := strings.Split(input, "/")
	for i, part := range parts {
		switch part {
		case "", ".":
			continue
		case "..":
			if base != rootPath {
				base = Parent(base)
			}
			continue
		}
		if err := checkSegments(part); err != nil {
			return "", err
		}
		base += part
		if i < len(parts)-1 && !strings.HasSuffix(part, ".") {
			base += "."
		}
	}
	return base, nil
}

// checkSegments rejects empty segments and a leading dot.
func checkSegments(p string) error {
	trimmed := strings.TrimSuffix(p, ".")
	if trimmed == "" {
		return fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	for _, seg := range strings.Split(trimmed, ".") {
		if seg == "" || seg == ".." || strings.ContainsAny(seg, " \t/") {
			return fmt.Errorf("%w: %q", ErrInvalidPath, p)
		}
	}
	return nil
}

// Parent returns the object containing path in trailing-dot form. The
// parent of a row is its table. The root is its own parent.
func Parent(path string) string {
	trimmed := strings.TrimSuffix(path, ".")
	i := strings.LastIndex(trimmed, ".")
	if i < 0 {
		return trimmed + "."
	}
	return trimmed[:i+1]
}

// Base returns the last segment of path: a parameter name, object name or
// instance number.
func Base(path string) string {
	trimmed := strings.TrimSuffix(path, ".")
	return trimmed[strings.LastIndex(trimmed, ".")+1:]
}

// IsPartial reports whether path addresses an object or table rather than
// a parameter.
func IsPartial(path string) bool {
	return path == "" || strings.HasSuffix(path, ".")
}
