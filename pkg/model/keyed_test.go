package model

import (
	"errors"
	"strings"
	"testing"
)

const keyPath = "Device.ManagementServer.ParameterKey"

func TestSetValuesKeyed(t *testing.T) {
	rec := &recorder{}
	tree := newTestTree(t, WithChangeListener(rec))

	err := tree.SetValuesKeyed([]ParameterValue{
		{Path: "Device.STB.BufferSize", Value: 300},
	}, ParameterValue{Path: keyPath, Value: "cfg-1"})
	if err != nil {
		t.Fatalf("SetValuesKeyed failed: %v", err)
	}
	if got := mustGet(t, tree, keyPath); got != "cfg-1" {
		t.Errorf("key: expected cfg-1, got %v", got)
	}

	// The key change is delivered in the same batch as the write.
	if len(rec.batches) != 1 || len(rec.batches[0]) != 2 {
		t.Fatalf("expected one batch of two changes, got %v", rec.batches)
	}
	kc := rec.batches[0][1]
	if kc.Path != keyPath || kc.Origin != OriginDevice {
		t.Errorf("unexpected key change %+v", kc)
	}
}

func TestSetValuesKeyedRejected(t *testing.T) {
	tree := newTestTree(t)

	err := tree.SetValuesKeyed([]ParameterValue{
		{Path: "Device.STB.ClientUnsolicitedReportInterval", Value: 99},
	}, ParameterValue{Path: keyPath, Value: "cfg-2"})
	var batch *BatchError
	if !errors.As(err, &batch) {
		t.Fatalf("expected BatchError, got %v", err)
	}
	if got := mustGet(t, tree, keyPath); got != "" {
		t.Errorf("key must not change on a rejected batch, got %v", got)
	}
}

func TestSetValuesKeyedInvalidKey(t *testing.T) {
	tree := newTestTree(t)

	err := tree.SetValuesKeyed([]ParameterValue{
		{Path: "Device.STB.BufferSize", Value: 10},
	}, ParameterValue{Path: keyPath, Value: strings.Repeat("k", 33)})
	if FaultCodeOf(err) != FaultInvalidParameterValue {
		t.Fatalf("expected 9007, got %v (%v)", FaultCodeOf(err), err)
	}
	if got := mustGet(t, tree, "Device.STB.BufferSize"); got != int64(0) {
		t.Errorf("batch must not apply with an invalid key, got %v", got)
	}
}

func TestAddDeleteObjectKeyed(t *testing.T) {
	tree := newTestTree(t)

	id, err := tree.AddObjectKeyed("Device.NAT.PortMapping.", ParameterValue{Path: keyPath, Value: "add-1"})
	if err != nil {
		t.Fatalf("AddObjectKeyed failed: %v", err)
	}
	if id != 1 {
		t.Errorf("expected instance 1, got %d", id)
	}
	if got := mustGet(t, tree, keyPath); got != "add-1" {
		t.Errorf("key after add: got %v", got)
	}

	if err := tree.DeleteObjectKeyed("Device.NAT.PortMapping.7.", ParameterValue{Path: keyPath, Value: "del-x"}); err == nil {
		t.Fatal("expected error deleting a missing row")
	}
	if got := mustGet(t, tree, keyPath); got != "add-1" {
		t.Errorf("key must not change on a failed delete, got %v", got)
	}

	if err := tree.DeleteObjectKeyed("Device.NAT.PortMapping.1.", ParameterValue{Path: keyPath, Value: "del-1"}); err != nil {
		t.Fatalf("DeleteObjectKeyed failed: %v", err)
	}
	if got := mustGet(t, tree, keyPath); got != "del-1" {
		t.Errorf("key after delete: got %v", got)
	}

	// Read-only tables reject the add and keep the key.
	if _, err := tree.AddObjectKeyed("Device.Ethernet.Interface.", ParameterValue{Path: keyPath, Value: "eth"}); err == nil {
		t.Fatal("expected error adding to a read-only table")
	}
	if got := mustGet(t, tree, keyPath); got != "del-1" {
		t.Errorf("key after rejected add: got %v", got)
	}
}

func TestSetNotificationsBatch(t *testing.T) {
	tree := newTestTree(t)

	err := tree.SetNotifications([]ParameterAttribute{
		{Path: "Device.STB.BufferSize", Notification: NotificationActive},
		{Path: "Device.DeviceInfo.UpTime", Notification: NotificationActive},
		{Path: "Device.Nope", Notification: NotificationPassive},
	})
	var batch *BatchError
	if !errors.As(err, &batch) {
		t.Fatalf("expected BatchError, got %v", err)
	}
	if len(batch.Faults) != 2 {
		t.Fatalf("expected 2 faults, got %v", batch.Faults)
	}
	if batch.Faults[0].Code != FaultNotificationRejected || batch.Faults[1].Code != FaultInvalidParameterName {
		t.Errorf("unexpected codes %d, %d", batch.Faults[0].Code, batch.Faults[1].Code)
	}
	if got, _ := tree.Notification("Device.STB.BufferSize"); got != NotificationOff {
		t.Errorf("rejected batch must not apply, got %s", got)
	}

	err = tree.SetNotifications([]ParameterAttribute{
		{Path: "Device.STB.", Notification: NotificationPassive},
		{Path: "Device.DeviceInfo.UpTime", Notification: NotificationPassive},
	})
	if err != nil {
		t.Fatalf("SetNotifications failed: %v", err)
	}
	for _, p := range []string{"Device.STB.BufferSize", "Device.STB.ClientUnsolicitedReportInterval", "Device.DeviceInfo.UpTime"} {
		if got, _ := tree.Notification(p); got != NotificationPassive {
			t.Errorf("%s: expected passive, got %s", p, got)
		}
	}
}

func TestSetNotificationsRejectedCode(t *testing.T) {
	tree := newTestTree(t)

	err := tree.SetNotifications([]ParameterAttribute{
		{Path: "Device.DeviceInfo.UpTime", Notification: NotificationActive},
	})
	var fault *Fault
	if !errors.As(err, &fault) {
		t.Fatalf("expected *Fault, got %v", err)
	}
	if fault.Path != "Device.DeviceInfo.UpTime" || FaultCodeOf(err) != FaultNotificationRejected {
		t.Errorf("got %s code %d, want 9009", fault.Path, FaultCodeOf(err))
	}

	err = tree.SetNotifications([]ParameterAttribute{
		{Path: "Device.DeviceInfo.UpTime", Notification: NotificationActive},
		{Path: "Device.DeviceInfo.SoftwareVersion", Notification: NotificationOff},
	})
	var batch *BatchError
	if !errors.As(err, &batch) {
		t.Fatalf("expected BatchError, got %v", err)
	}
	if batch.Code() != FaultNotificationRejected {
		t.Errorf("all-rejected batch: got %d, want 9009", batch.Code())
	}
	if FaultCodeOf(err) != FaultNotificationRejected {
		t.Errorf("FaultCodeOf: got %d", FaultCodeOf(err))
	}
}
