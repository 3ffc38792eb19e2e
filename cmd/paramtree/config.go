package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// flagFields copies the field a flag sets. Flags given on the command line
// win over the configuration file.
var flagFields = map[string]func(dst, src *Config){
	"bundle":          func(dst, src *Config) { dst.Bundle = src.Bundle },
	"model":           func(dst, src *Config) { dst.ModelFiles = src.ModelFiles },
	"store":           func(dst, src *Config) { dst.Store = src.Store },
	"store-path":      func(dst, src *Config) { dst.StorePath = src.StorePath },
	"store-name":      func(dst, src *Config) { dst.StoreName = src.StoreName },
	"capture":         func(dst, src *Config) { dst.CaptureFile = src.CaptureFile },
	"listen":          func(dst, src *Config) { dst.Listen = src.Listen },
	"tls-cert":        func(dst, src *Config) { dst.TLSCert = src.TLSCert },
	"tls-key":         func(dst, src *Config) { dst.TLSKey = src.TLSKey },
	"mqtt":            func(dst, src *Config) { dst.Notify.MQTTBroker = src.Notify.MQTTBroker },
	"mqtt-topic":      func(dst, src *Config) { dst.Notify.MQTTTopic = src.Notify.MQTTTopic },
	"notify-interval": func(dst, src *Config) { dst.Notify.MinInterval = src.Notify.MinInterval },
	"log-level":       func(dst, src *Config) { dst.LogLevel = src.LogLevel },
	"simulate":        func(dst, src *Config) { dst.Simulate = src.Simulate },
}

// explicitFlags returns the names of the flags set on the command line.
func explicitFlags() map[string]bool {
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

// loadConfigFile merges a YAML configuration file into c. Fields absent
// from the file keep their current value; fields of explicit flags are
// not overridden. Unknown keys are rejected.
func loadConfigFile(c *Config, path string, explicit map[string]bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	fc := *c
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	for name := range explicit {
		if copyField, ok := flagFields[name]; ok {
			copyField(&fc, c)
		}
	}
	fc.ConfigFile = c.ConfigFile
	*c = fc
	return nil
}
