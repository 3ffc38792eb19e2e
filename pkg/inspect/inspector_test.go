package inspect

import (
	"errors"
	"strings"
	"testing"

	"github.com/paramtree/paramtree-go/pkg/model"
)

func TestInspectObject(t *testing.T) {
	tree := newTestTree(t)
	insp := NewInspector(tree)
	if _, err := insp.AddObject("Device.Host"); err != nil {
		t.Fatalf("AddObject failed: %v", err)
	}

	info, err := insp.InspectObject("Device.")
	if err != nil {
		t.Fatalf("InspectObject failed: %v", err)
	}
	if info.Path != "Device." {
		t.Errorf("Path = %q", info.Path)
	}
	if len(info.Parameters) != 3 {
		t.Fatalf("expected 3 parameters, got %d", len(info.Parameters))
	}
	up := info.Parameters[0]
	if up.Name != "UpTime" || up.Unit != "seconds" || up.Access != model.AccessReadOnly {
		t.Errorf("unexpected UpTime info: %+v", up)
	}
	if up.ActiveNotify != model.ActiveNotifyCanDeny {
		t.Errorf("ActiveNotify = %s", up.ActiveNotify)
	}
	if len(info.Objects) != 1 || info.Objects[0] != "Device.WiFi." {
		t.Errorf("Objects = %v", info.Objects)
	}
	if len(info.Tables) != 1 {
		t.Fatalf("expected 1 table, got %d", len(info.Tables))
	}
	if tb := info.Tables[0]; tb.Path != "Device.Host." || !tb.Writable || len(tb.Instances) != 1 || tb.Instances[0] != 1 {
		t.Errorf("unexpected table info: %+v", tb)
	}

	// A table path lists its rows.
	info, err = insp.InspectObject("Device.Host.")
	if err != nil {
		t.Fatalf("InspectObject(table) failed: %v", err)
	}
	if len(info.Tables) != 1 || len(info.Parameters) != 0 {
		t.Errorf("unexpected table listing: %+v", info)
	}

	if _, err := insp.InspectObject("Device.Nope."); model.FaultCodeOf(err) != model.FaultInvalidParameterName {
		t.Errorf("expected 9005, got %v", err)
	}
}

func TestReadWriteParameter(t *testing.T) {
	tree := newTestTree(t)
	insp := NewInspector(tree)

	if err := insp.WriteParameter("Device.WiFi.Enable", "true"); err != nil {
		t.Fatalf("WriteParameter failed: %v", err)
	}
	info, err := insp.ReadParameter("Device.WiFi.Enable")
	if err != nil {
		t.Fatalf("ReadParameter failed: %v", err)
	}
	if info.Value.Value != true || info.Value.Type != model.DataTypeBoolean {
		t.Errorf("unexpected value %+v", info.Value)
	}
	if info.Access != model.AccessReadWrite {
		t.Errorf("Access = %s", info.Access)
	}

	tests := []struct {
		name  string
		path  string
		value string
		code  model.FaultCode
	}{
		{"not a boolean", "Device.WiFi.Enable", "maybe", model.FaultInvalidParameterType},
		{"read-only", "Device.UpTime", "10", model.FaultNonWritableParameter},
		{"too long", "Device.ProvisioningCode", strings.Repeat("x", 65), model.FaultInvalidParameterValue},
		{"unknown", "Device.Nope", "1", model.FaultInvalidParameterName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := insp.WriteParameter(tt.path, tt.value)
			if got := model.FaultCodeOf(err); got != tt.code {
				t.Errorf("fault = %d (%v), want %d", got, err, tt.code)
			}
		})
	}

	if _, err := insp.ReadParameter("Device.WiFi."); !errors.Is(err, ErrNotParameter) {
		t.Errorf("expected ErrNotParameter, got %v", err)
	}
}

func TestInspectorNotificationAndObjects(t *testing.T) {
	tree := newTestTree(t)
	insp := NewInspector(tree)

	if err := insp.SetNotification("Device.ProvisioningCode", "active"); err != nil {
		t.Fatalf("SetNotification failed: %v", err)
	}
	info, err := insp.ReadParameter("Device.ProvisioningCode")
	if err != nil {
		t.Fatalf("ReadParameter failed: %v", err)
	}
	if info.Notification != model.NotificationActive {
		t.Errorf("Notification = %s, want active", info.Notification)
	}
	if err := insp.SetNotification("Device.UpTime", "active"); model.FaultCodeOf(err) != model.FaultNotificationRejected {
		t.Errorf("expected 9009 for canDeny, got %v", err)
	}
	if err := insp.SetNotification("Device.UpTime", "loud"); err == nil {
		t.Error("expected error for unknown level")
	}

	row, err := insp.AddObject("Device.Host.")
	if err != nil {
		t.Fatalf("AddObject failed: %v", err)
	}
	if row != "Device.Host.1." {
		t.Errorf("row = %q", row)
	}
	if err := insp.DeleteObject("Device.Host.1"); err != nil {
		t.Fatalf("DeleteObject failed: %v", err)
	}
	if n, _ := tree.Get("Device.HostNumberOfEntries"); n != uint32(0) {
		t.Errorf("HostNumberOfEntries = %v, want 0", n)
	}
}

func TestFormatObject(t *testing.T) {
	tree := newTestTree(t)
	insp := NewInspector(tree)

	info, err := insp.InspectObject("Device.")
	if err != nil {
		t.Fatalf("InspectObject failed: %v", err)
	}
	f := NewFormatter()
	f.ShowMetadata = true
	out := insp.FormatObject(info, f)

	for _, want := range []string{
		"Device.\n",
		"  UpTime = 0 seconds (unsignedInt, read-only, off (active denied))",
		`  ProvisioningCode = "" (string, read-write, off)`,
		"  WiFi.\n",
		"  Device.Host.{i} (0 entries)\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatTree(t *testing.T) {
	tree := newTestTree(t)
	insp := NewInspector(tree)
	if _, err := insp.AddObject("Device.Host."); err != nil {
		t.Fatalf("AddObject failed: %v", err)
	}
	if err := insp.WriteParameter("Device.Host.1.Rate", "54000"); err != nil {
		t.Fatalf("WriteParameter failed: %v", err)
	}
	if err := insp.SetNotification("Device.Host.1.HostName", "passive"); err != nil {
		t.Fatalf("SetNotification failed: %v", err)
	}

	f := NewFormatter()
	f.ShowMetadata = true
	out, err := insp.FormatTree("Device", f)
	if err != nil {
		t.Fatalf("FormatTree failed: %v", err)
	}

	for _, want := range []string{
		"Device.\n",
		"  WiFi.\n",
		"    Enable = false\n",
		"  Host.{i} (1 entries) next=2\n",
		"    1.\n",
		`      HostName = "" [notify passive]`,
		"      Rate = 54000 Kbps (54.0 Mbps)\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	sub, err := insp.FormatTree("Device.Host.1.", nil)
	if err != nil {
		t.Fatalf("FormatTree(row) failed: %v", err)
	}
	if !strings.HasPrefix(sub, "Device.Host.1.\n") || strings.Contains(sub, "WiFi") {
		t.Errorf("unexpected subtree:\n%s", sub)
	}

	if _, err := insp.FormatTree("Device.Host.9.", nil); err == nil {
		t.Error("expected error for missing row")
	}
}
