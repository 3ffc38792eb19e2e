// Package wire defines the CBOR wire format for parameter tree RPCs.
//
// Messages use CBOR (RFC 8949) with integer keys. The RPC set follows the
// TR-069 CPE methods that operate on the parameter tree:
//
//	GetParameterValues      GetParameterNames
//	SetParameterValues      GetParameterAttributes
//	AddObject               SetParameterAttributes
//	DeleteObject
//
// # Message Types
//
//   - Request: manager to device, carrying an RPC and its payload
//   - Response: device to manager, a status (TR-069 fault code) and result
//   - Notification: device to manager, value changes to report
//
// # Values
//
// Parameter values travel with their TR-106 type name. Numbers, booleans
// and byte strings are carried natively; dateTime values as RFC 3339
// strings. Decoding coerces each value back to its canonical Go type.
package wire
