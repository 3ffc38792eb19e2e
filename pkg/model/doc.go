// Package model implements the TR-069 parameter tree.
//
// # Definitions and Instances
//
// A data model is described by a tree of definitions:
//
//	ObjectDef (Device.)
//	├── ParameterDef (RootDataModelVersion)
//	├── ObjectDef (DeviceInfo.)
//	│   └── ParameterDef (UpTime)
//	└── ObjectDef (WiFi.Radio.{i}., MultiInstance)
//	    ├── ParameterDef (Enable)
//	    └── ParameterDef (Channel)
//
// A Tree is a live instance of a definition. Singleton objects exist for
// the lifetime of the tree. Multi-instance objects (tables) start empty;
// rows are created by AddObject and removed by DeleteObject, and carry
// instance numbers that are never reused.
//
// # Addressing
//
// Parameters and objects are addressed by dotted paths:
//
//	Device.WiFi.Radio.1.Channel      parameter
//	Device.WiFi.Radio.1.             object (row)
//	Device.WiFi.Radio.               table, or partial path for reads
//
// # Write Paths
//
// The management write path (Set, SetValues, AddObject, DeleteObject)
// honors Access; the device write path (SetInternal, AddObjectInternal,
// ...) may update read-only state. Both validate types and constraints.
// A batch write is atomic: every entry is validated before any is applied.
//
// # Errors
//
// Operations return *Fault or *BatchError wrapping one of the package
// sentinels. FaultCodeOf maps any of them to the TR-069 fault code.
//
// # Change Notification
//
// Every committed operation delivers its value changes and structural
// changes to the registered ChangeListeners, after the tree lock is
// released and in commit order.
package model
