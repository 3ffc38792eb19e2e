package model

import (
	"sync"
	"testing"
)

// testDef builds a small TR-181 style definition covering every feature
// of the model.
func testDef() *ObjectDef {
	ethIface := &ObjectDef{
		Name:           "Interface",
		MultiInstance:  true,
		Access:         AccessReadOnly,
		CountParameter: "InterfaceNumberOfEntries",
		Parameters: []*ParameterDef{
			{Name: "Enable", Type: DataTypeBoolean, Access: AccessReadWrite},
			{Name: "Name", Type: DataTypeString, MaxLength: 64},
			{Name: "MACAddress", Type: DataTypeMACAddress},
			{Name: "MaxBitRate", Type: DataTypeInt, Access: AccessReadWrite, Unit: "Mbps",
				Default: int32(-1), Ranges: []Range{{Min: -1}}},
		},
		Objects: []*ObjectDef{
			{Name: "Stats", Parameters: []*ParameterDef{
				{Name: "BytesSent", Type: DataTypeStatsCounter64},
				{Name: "ErrorsSent", Type: DataTypeStatsCounter32},
			}},
		},
	}

	ipIface := &ObjectDef{
		Name:           "Interface",
		MultiInstance:  true,
		Access:         AccessReadWrite,
		CountParameter: "InterfaceNumberOfEntries",
		UniqueKeys:     [][]string{{"Alias"}},
		Parameters: []*ParameterDef{
			{Name: "Enable", Type: DataTypeBoolean, Access: AccessReadWrite},
			{Name: "Alias", Type: DataTypeString, Access: AccessReadWrite, MaxLength: 64},
			{Name: "LowerLayers", Type: DataTypeString, Access: AccessReadWrite, List: true, MaxLength: 1024,
				Reference: &ReferenceDef{TargetTypes: []string{"Device.Ethernet.Interface.{i}."}}},
		},
	}

	ipPing := &ObjectDef{
		Name:         "IPPing",
		ResetOnWrite: &ResetRule{Parameter: "DiagnosticsState", Value: "None"},
		Parameters: []*ParameterDef{
			{Name: "DiagnosticsState", Type: DataTypeString, Access: AccessReadWrite, Default: "None",
				Enum: []string{"None", "Requested", "Canceled", "Complete", "Error"}},
			{Name: "Interface", Type: DataTypeString, Access: AccessReadWrite, MaxLength: 256,
				Reference: &ReferenceDef{TargetTypes: []string{"Device.IP.Interface.{i}."}}},
			{Name: "Host", Type: DataTypeString, Access: AccessReadWrite, MaxLength: 256},
			{Name: "NumberOfRepetitions", Type: DataTypeUnsignedInt, Access: AccessReadWrite,
				Default: uint32(3), Ranges: []Range{{Min: 1}}},
			{Name: "SuccessCount", Type: DataTypeUnsignedInt},
		},
	}

	portMapping := &ObjectDef{
		Name:           "PortMapping",
		MultiInstance:  true,
		Access:         AccessReadWrite,
		MaxEntries:     3,
		CountParameter: "PortMappingNumberOfEntries",
		UniqueKeys:     [][]string{{"ExternalPort", "Protocol"}},
		Parameters: []*ParameterDef{
			{Name: "Enable", Type: DataTypeBoolean, Access: AccessReadWrite},
			{Name: "ExternalPort", Type: DataTypeUnsignedInt, Access: AccessReadWrite,
				Ranges: []Range{{Min: 0, Max: 65535}}},
			{Name: "Protocol", Type: DataTypeString, Access: AccessReadWrite, Default: "TCP",
				Enum: []string{"TCP", "UDP"}},
			{Name: "InternalClient", Type: DataTypeIPAddress, Access: AccessReadWrite},
		},
	}

	stack := &ObjectDef{
		Name:           "InterfaceStack",
		MultiInstance:  true,
		Access:         AccessReadOnly,
		CountParameter: "InterfaceStackNumberOfEntries",
		Parameters: []*ParameterDef{
			{Name: "HigherLayer", Type: DataTypeString, MaxLength: 256,
				Reference: &ReferenceDef{OnDelete: RefDeleteReferrer}},
			{Name: "LowerLayer", Type: DataTypeString, MaxLength: 256,
				Reference: &ReferenceDef{OnDelete: RefDeleteReferrer}},
		},
	}

	return &ObjectDef{
		Name: "Device",
		Parameters: []*ParameterDef{
			{Name: "RootDataModelVersion", Type: DataTypeString, Default: "2.15"},
			{Name: "InterfaceStackNumberOfEntries", Type: DataTypeUnsignedInt},
		},
		Objects: []*ObjectDef{
			{Name: "DeviceInfo", Parameters: []*ParameterDef{
				{Name: "SoftwareVersion", Type: DataTypeString, ActiveNotify: ActiveNotifyForceEnabled},
				{Name: "ProvisioningCode", Type: DataTypeString, Access: AccessReadWrite, MaxLength: 64,
					ActiveNotify: ActiveNotifyForceDefaultEnabled},
				{Name: "UpTime", Type: DataTypeUnsignedInt, Unit: "seconds", ActiveNotify: ActiveNotifyCanDeny},
			}},
			{Name: "ManagementServer", Parameters: []*ParameterDef{
				{Name: "PeriodicInformInterval", Type: DataTypeUnsignedInt, Access: AccessReadWrite,
					Default: uint32(86400), Ranges: []Range{{Min: 1}}},
				{Name: "ParameterKey", Type: DataTypeString, MaxLength: 32},
			}},
			{Name: "STB", Parameters: []*ParameterDef{
				{Name: "BufferSize", Type: DataTypeLong, Access: AccessReadWrite, Unit: "milliseconds"},
				{Name: "ClientUnsolicitedReportInterval", Type: DataTypeLong, Access: AccessReadWrite,
					Default: int64(1), Ranges: []Range{{Min: 1, Max: 25}}},
			}},
			{Name: "Ethernet", Parameters: []*ParameterDef{
				{Name: "InterfaceNumberOfEntries", Type: DataTypeUnsignedInt},
			}, Objects: []*ObjectDef{ethIface}},
			{Name: "IP", Parameters: []*ParameterDef{
				{Name: "InterfaceNumberOfEntries", Type: DataTypeUnsignedInt},
			}, Objects: []*ObjectDef{
				ipIface,
				{Name: "Diagnostics", Objects: []*ObjectDef{ipPing}},
			}},
			{Name: "NAT", Parameters: []*ParameterDef{
				{Name: "PortMappingNumberOfEntries", Type: DataTypeUnsignedInt},
			}, Objects: []*ObjectDef{portMapping}},
			stack,
		},
	}
}

func newTestTree(t *testing.T, opts ...TreeOption) *Tree {
	t.Helper()
	tree, err := NewTree(testDef(), opts...)
	if err != nil {
		t.Fatalf("NewTree failed: %v", err)
	}
	return tree
}

func mustAdd(t *testing.T, tree *Tree, path string) uint32 {
	t.Helper()
	n, err := tree.AddObjectInternal(path)
	if err != nil {
		t.Fatalf("AddObjectInternal(%s) failed: %v", path, err)
	}
	return n.Instance()
}

func mustGet(t *testing.T, tree *Tree, path string) any {
	t.Helper()
	v, err := tree.Get(path)
	if err != nil {
		t.Fatalf("Get(%s) failed: %v", path, err)
	}
	return v
}

// recorder is a ChangeListener that keeps every delivered batch.
type recorder struct {
	mu      sync.Mutex
	batches [][]Change
}

func (r *recorder) OnChange(changes []Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, append([]Change(nil), changes...))
}

func (r *recorder) all() []Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Change
	for _, b := range r.batches {
		out = append(out, b...)
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	r.batches = nil
	r.mu.Unlock()
}
