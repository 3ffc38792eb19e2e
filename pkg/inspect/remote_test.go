package inspect

import (
	"context"
	"errors"
	"testing"

	"github.com/paramtree/paramtree-go/pkg/interaction"
	"github.com/paramtree/paramtree-go/pkg/model"
	"github.com/paramtree/paramtree-go/pkg/wire"
)

var _ ManagementClient = (*interaction.Client)(nil)

// mockClient implements ManagementClient for testing.
type mockClient struct {
	getValuesFunc func(ctx context.Context, paths ...string) ([]wire.Value, error)
	setValuesFunc func(ctx context.Context, key string, values ...wire.Value) error
	getAttrsFunc  func(ctx context.Context, paths ...string) ([]wire.Attribute, error)
}

func (m *mockClient) GetParameterValues(ctx context.Context, paths ...string) ([]wire.Value, error) {
	if m.getValuesFunc != nil {
		return m.getValuesFunc(ctx, paths...)
	}
	return nil, nil
}

func (m *mockClient) SetParameterValues(ctx context.Context, key string, values ...wire.Value) error {
	if m.setValuesFunc != nil {
		return m.setValuesFunc(ctx, key, values...)
	}
	return nil
}

func (m *mockClient) GetParameterNames(context.Context, string, bool) ([]wire.NameEntry, error) {
	return nil, nil
}

func (m *mockClient) GetParameterAttributes(ctx context.Context, paths ...string) ([]wire.Attribute, error) {
	if m.getAttrsFunc != nil {
		return m.getAttrsFunc(ctx, paths...)
	}
	return nil, nil
}

func (m *mockClient) SetParameterAttributes(context.Context, ...wire.SetAttribute) error {
	return nil
}

func (m *mockClient) AddObject(context.Context, string, string) (uint32, error) {
	return 0, nil
}

func (m *mockClient) DeleteObject(context.Context, string, string) error {
	return nil
}

func TestRemoteInspectorReadParameter(t *testing.T) {
	def := newTestTree(t).Def()

	tests := []struct {
		name    string
		path    string
		values  []wire.Value
		err     error
		want    any
		wantErr bool
	}{
		{
			name:   "typed value is coerced",
			path:   "Device.UpTime",
			values: []wire.Value{{Path: "Device.UpTime", Type: "unsignedInt", Value: uint64(42)}},
			want:   uint32(42),
		},
		{
			name:    "partial path",
			path:    "Device.WiFi.",
			wantErr: true,
		},
		{
			name:    "empty response",
			path:    "Device.UpTime",
			wantErr: true,
		},
		{
			name:    "client error",
			path:    "Device.UpTime",
			err:     errors.New("connection lost"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &mockClient{
				getValuesFunc: func(_ context.Context, paths ...string) ([]wire.Value, error) {
					if len(paths) != 1 || paths[0] != tt.path {
						t.Errorf("wrong paths: %v", paths)
					}
					return tt.values, tt.err
				},
			}
			r := NewRemoteInspector(client, def)
			pv, err := r.ReadParameter(context.Background(), tt.path)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadParameter failed: %v", err)
			}
			if pv.Value != tt.want {
				t.Errorf("value = %#v, want %#v", pv.Value, tt.want)
			}
		})
	}
}

func TestRemoteInspectorWriteParameter(t *testing.T) {
	def := newTestTree(t).Def()

	var sent []wire.Value
	var sentKey string
	client := &mockClient{
		setValuesFunc: func(_ context.Context, key string, values ...wire.Value) error {
			sentKey = key
			sent = values
			return nil
		},
	}
	r := NewRemoteInspector(client, def)
	r.SetParameterKey("cfg-7")

	if err := r.WriteParameter(context.Background(), "Device.Host.2.Rate", "1200"); err != nil {
		t.Fatalf("WriteParameter failed: %v", err)
	}
	if sentKey != "cfg-7" {
		t.Errorf("key = %q, want cfg-7", sentKey)
	}
	if len(sent) != 1 || sent[0].Path != "Device.Host.2.Rate" || sent[0].Type != "unsignedInt" || sent[0].Value != uint32(1200) {
		t.Errorf("unexpected values sent: %+v", sent)
	}

	// Parse failures never reach the client.
	sent = nil
	if err := r.WriteParameter(context.Background(), "Device.Host.2.Rate", "fast"); model.FaultCodeOf(err) != model.FaultInvalidParameterType {
		t.Errorf("expected 9006, got %v", err)
	}
	if err := r.WriteParameter(context.Background(), "Device.Nope", "1"); !errors.Is(err, model.ErrUnknownParameter) {
		t.Errorf("expected ErrUnknownParameter, got %v", err)
	}
	if sent != nil {
		t.Errorf("invalid writes were sent: %+v", sent)
	}
}

func TestRemoteInspectorNotification(t *testing.T) {
	client := &mockClient{
		getAttrsFunc: func(context.Context, ...string) ([]wire.Attribute, error) {
			return []wire.Attribute{{Path: "Device.UpTime", Notification: 1}}, nil
		},
	}
	r := NewRemoteInspector(client, newTestTree(t).Def())
	level, err := r.Notification(context.Background(), "Device.UpTime")
	if err != nil {
		t.Fatalf("Notification failed: %v", err)
	}
	if level != model.NotificationPassive {
		t.Errorf("level = %s, want passive", level)
	}
}

func TestRemoteInspectorLoopback(t *testing.T) {
	tree := newTestTree(t)
	lb := interaction.NewLoopback(interaction.NewServer(tree))
	defer lb.Close()

	ctx := context.Background()
	r := NewRemoteInspector(lb.Client(), tree.Def())

	row, err := r.AddObject(ctx, "Device.Host")
	if err != nil {
		t.Fatalf("AddObject failed: %v", err)
	}
	if row != "Device.Host.1." {
		t.Fatalf("row = %q", row)
	}
	if err := r.WriteParameter(ctx, row+"Rate", "1000"); err != nil {
		t.Fatalf("WriteParameter failed: %v", err)
	}

	pv, err := r.ReadParameter(ctx, row+"Rate")
	if err != nil {
		t.Fatalf("ReadParameter failed: %v", err)
	}
	if pv.Value != uint32(1000) || pv.Type != model.DataTypeUnsignedInt {
		t.Errorf("unexpected value %+v", pv)
	}

	all, err := r.ReadAll(ctx, row)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 values, got %d", len(all))
	}

	names, err := r.Names(ctx, "Device.Host.")
	if err != nil {
		t.Fatalf("Names failed: %v", err)
	}
	if len(names) != 1 || names[0].Path != row || !names[0].Writable {
		t.Errorf("unexpected names %+v", names)
	}

	if err := r.SetNotification(ctx, row+"HostName", "passive"); err != nil {
		t.Fatalf("SetNotification failed: %v", err)
	}
	level, err := r.Notification(ctx, row+"HostName")
	if err != nil {
		t.Fatalf("Notification failed: %v", err)
	}
	if level != model.NotificationPassive {
		t.Errorf("level = %s, want passive", level)
	}

	err = r.WriteParameter(ctx, "Device.UpTime", "5")
	var se *interaction.StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if f, ok := se.FaultFor("Device.UpTime"); !ok || f.Code != wire.StatusNonWritableParameter {
		t.Errorf("expected 9008 for Device.UpTime, got %+v", se.Faults)
	}

	if err := r.DeleteObject(ctx, row); err != nil {
		t.Fatalf("DeleteObject failed: %v", err)
	}
	if n, _ := tree.Get("Device.HostNumberOfEntries"); n != uint32(0) {
		t.Errorf("HostNumberOfEntries = %v, want 0", n)
	}
}
