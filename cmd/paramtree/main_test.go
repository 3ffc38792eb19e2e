package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paramtree/paramtree-go/pkg/model"
)

func validConfig() Config {
	return Config{Bundle: "tr181", LogLevel: "info"}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(c *Config)
		wantErr bool
	}{
		{name: "defaults", modify: func(c *Config) {}},
		{name: "models only", modify: func(c *Config) { c.Bundle = ""; c.ModelFiles = []string{"a.yaml"} }},
		{name: "no model", modify: func(c *Config) { c.Bundle = "" }, wantErr: true},
		{name: "sqlite", modify: func(c *Config) { c.Store = StoreSQLite }},
		{name: "postgres without dsn", modify: func(c *Config) { c.Store = StorePostgres }, wantErr: true},
		{name: "postgres", modify: func(c *Config) { c.Store = StorePostgres; c.StorePath = "postgres://localhost/paramtree" }},
		{name: "unknown store", modify: func(c *Config) { c.Store = "redis" }, wantErr: true},
		{name: "trace level", modify: func(c *Config) { c.LogLevel = "trace" }},
		{name: "unknown level", modify: func(c *Config) { c.LogLevel = "loud" }, wantErr: true},
		{name: "negative interval", modify: func(c *Config) { c.Notify.MinInterval = -time.Second }, wantErr: true},
		{name: "listen", modify: func(c *Config) { c.Listen = ":7547" }},
		{name: "listen tls", modify: func(c *Config) { c.Listen = ":7547"; c.TLSCert = "cpe.crt"; c.TLSKey = "cpe.key" }},
		{name: "cert without key", modify: func(c *Config) { c.Listen = ":7547"; c.TLSCert = "cpe.crt" }, wantErr: true},
		{name: "tls without listen", modify: func(c *Config) { c.TLSCert = "cpe.crt"; c.TLSKey = "cpe.key" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.modify(&c)
			err := validateConfig(&c)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	def := &model.ObjectDef{Name: "Device"}

	c := Config{Store: StoreSQLite}
	applyDefaults(&c, def)
	assert.Equal(t, "device-state.db", c.StorePath)
	assert.Equal(t, "Device", c.StoreName)
	assert.Equal(t, "paramtree-device", c.Notify.MQTTClientID)
	assert.Equal(t, "paramtree/paramtree-device", c.Notify.MQTTTopic)

	c = Config{}
	applyDefaults(&c, def)
	assert.Equal(t, StoreNone, c.Store)
	assert.Empty(t, c.StorePath)

	c = Config{Store: StoreFile, StorePath: "/var/lib/state.json", Notify: NotifyConfig{MQTTTopic: "acs/cpe1"}}
	applyDefaults(&c, def)
	assert.Equal(t, "/var/lib/state.json", c.StorePath)
	assert.Equal(t, "acs/cpe1", c.Notify.MQTTTopic)
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "paramtree.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfig(t, `
bundle: tr135
store: sqlite
logLevel: debug
notify:
  minInterval: 2s
  mqttBroker: tcp://broker:1883
`)

	c := Config{ConfigFile: path, Bundle: "tr181", LogLevel: "info", Notify: NotifyConfig{IgnoreManagement: true}}
	require.NoError(t, loadConfigFile(&c, path, nil))

	assert.Equal(t, "tr135", c.Bundle)
	assert.Equal(t, StoreSQLite, c.Store)
	assert.Equal(t, "debug", c.LogLevel)
	assert.Equal(t, 2*time.Second, c.Notify.MinInterval)
	assert.Equal(t, "tcp://broker:1883", c.Notify.MQTTBroker)
	assert.True(t, c.Notify.IgnoreManagement, "absent keys keep their value")
	assert.Equal(t, path, c.ConfigFile)
}

func TestLoadConfigFileFlagsWin(t *testing.T) {
	path := writeConfig(t, "bundle: tr135\nlogLevel: debug\n")

	c := Config{Bundle: "tr196", LogLevel: "info"}
	require.NoError(t, loadConfigFile(&c, path, map[string]bool{"bundle": true}))

	assert.Equal(t, "tr196", c.Bundle)
	assert.Equal(t, "debug", c.LogLevel)
}

func TestLoadConfigFileErrors(t *testing.T) {
	c := validConfig()
	assert.Error(t, loadConfigFile(&c, filepath.Join(t.TempDir(), "missing.yaml"), nil))

	path := writeConfig(t, "bundel: tr135\n")
	assert.Error(t, loadConfigFile(&c, path, nil), "unknown keys are rejected")

	empty := writeConfig(t, "")
	require.NoError(t, loadConfigFile(&c, empty, nil))
	assert.Equal(t, "tr181", c.Bundle)
}

func TestSwitchWriter(t *testing.T) {
	var a, b bytes.Buffer
	w := &switchWriter{w: &a}

	_, _ = w.Write([]byte("one"))
	w.Set(&b)
	_, _ = w.Write([]byte("two"))

	assert.Equal(t, "one", a.String())
	assert.Equal(t, "two", b.String())
}

func TestOpenStoreNone(t *testing.T) {
	store, closeFn, err := openStore(&Config{Store: StoreNone})
	require.NoError(t, err)
	assert.Nil(t, store)
	require.NotNil(t, closeFn)
	closeFn()
}

func TestLoadTLSConfig(t *testing.T) {
	conf, err := loadTLSConfig(&Config{})
	require.NoError(t, err)
	assert.Nil(t, conf)

	dir := t.TempDir()
	_, err = loadTLSConfig(&Config{TLSCert: filepath.Join(dir, "cpe.crt"), TLSKey: filepath.Join(dir, "cpe.key")})
	assert.Error(t, err)
}
