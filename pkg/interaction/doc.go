// Package interaction binds the parameter tree to the TR-069 management
// RPCs.
//
// The Server handles the seven RPCs of the data model interface:
//
//   - GetParameterValues, SetParameterValues
//   - GetParameterNames
//   - GetParameterAttributes, SetParameterAttributes
//   - AddObject, DeleteObject
//
// Requests and responses are the CBOR messages of package wire. Failures
// are answered with the TR-069 fault code; a rejected batch carries one
// fault per failing parameter. The ParameterKey of SetParameterValues,
// AddObject and DeleteObject is stored in ManagementServer.ParameterKey in
// the same commit as the change.
//
// # Server Usage
//
//	server := interaction.NewServer(tree, interaction.WithRecorder(rec))
//	resp := server.HandleRequest(ctx, req)
//
// # Client Usage
//
// The Client is transport-agnostic: it sends through a RequestSender and
// expects the caller to feed incoming messages to HandleMessage.
//
//	client := interaction.NewClient(conn)
//	values, err := client.GetParameterValues(ctx, "Device.DeviceInfo.")
//	err = client.SetParameterValues(ctx, "cfg-7",
//	    wire.Value{Path: "Device.ManagementServer.PeriodicInformInterval", Value: 3600})
//
// Loopback connects both in one process.
//
// # Notifications
//
// A Notifier is a notify.Sink that turns Active change reports into
// numbered wire notifications for the management session.
package interaction
