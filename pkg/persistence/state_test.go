package persistence

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileStore(t *testing.T) {
	t.Run("SaveAndLoadEmpty", func(t *testing.T) {
		dir := t.TempDir()
		store := NewFileStore(filepath.Join(dir, "state.json"))

		if err := store.Save(&TreeState{Root: "Device"}); err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		got, err := store.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if got.Version != StateVersion {
			t.Errorf("Version = %d, want %d", got.Version, StateVersion)
		}
		if got.SavedAt.IsZero() {
			t.Error("SavedAt not set")
		}
		if got.Root != "Device" {
			t.Errorf("Root = %q, want Device", got.Root)
		}
	})

	t.Run("LoadNonExistent", func(t *testing.T) {
		dir := t.TempDir()
		store := NewFileStore(filepath.Join(dir, "nonexistent.json"))

		got, err := store.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if got != nil {
			t.Errorf("Load() = %v, want nil for non-existent file", got)
		}
	})

	t.Run("CreatesDirectory", func(t *testing.T) {
		dir := t.TempDir()
		store := NewFileStore(filepath.Join(dir, "a", "b", "state.json"))
		if err := store.Save(&TreeState{}); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		if _, err := os.Stat(store.Path()); err != nil {
			t.Errorf("state file missing: %v", err)
		}
	})

	t.Run("RoundTrip", func(t *testing.T) {
		dir := t.TempDir()
		store := NewFileStore(filepath.Join(dir, "state.json"))

		state := &TreeState{
			SavedAt:       time.Now(),
			Root:          "Device",
			Rows:          []string{"Device.NAT.PortMapping.1.", "Device.NAT.PortMapping.4."},
			Tables:        []TableState{{Path: "Device.NAT.PortMapping.", NextInstance: 5}},
			Values:        []ValueState{{Path: "Device.NAT.PortMapping.4.ExternalPort", Type: "unsignedInt", Value: "8080"}},
			Notifications: []NotificationState{{Path: "Device.IP.Interface.1.Enable", Notification: 1}},
		}
		if err := store.Save(state); err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		got, err := store.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if len(got.Rows) != 2 || got.Rows[1] != "Device.NAT.PortMapping.4." {
			t.Errorf("Rows = %v", got.Rows)
		}
		if len(got.Tables) != 1 || got.Tables[0].NextInstance != 5 {
			t.Errorf("Tables = %v", got.Tables)
		}
		if len(got.Values) != 1 || got.Values[0].Value != "8080" {
			t.Errorf("Values = %v", got.Values)
		}
		if len(got.Notifications) != 1 || got.Notifications[0].Notification != 1 {
			t.Errorf("Notifications = %v", got.Notifications)
		}
	})

	t.Run("UnsupportedVersion", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "state.json")
		if err := os.WriteFile(path, []byte(`{"version": 99}`), 0644); err != nil {
			t.Fatal(err)
		}

		_, err := NewFileStore(path).Load()
		if !errors.Is(err, ErrVersion) {
			t.Errorf("Load() error = %v, want ErrVersion", err)
		}
	})

	t.Run("Clear", func(t *testing.T) {
		dir := t.TempDir()
		store := NewFileStore(filepath.Join(dir, "state.json"))
		_ = store.Save(&TreeState{Rows: []string{"Device.Hosts.Host.1."}})

		if err := store.Clear(); err != nil {
			t.Fatalf("Clear() error = %v", err)
		}
		got, err := store.Load()
		if err != nil {
			t.Fatalf("Load() after Clear() error = %v", err)
		}
		if got != nil {
			t.Errorf("Load() after Clear() = %v, want nil", got)
		}
		if err := store.Clear(); err != nil {
			t.Errorf("second Clear() error = %v", err)
		}
	})
}
