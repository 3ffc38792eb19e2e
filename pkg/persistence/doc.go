// Package persistence saves and reloads the configuration of a parameter
// tree so that it survives device restarts.
//
// Only configuration is kept: the rows that exist (with their instance
// numbers), the values of writable parameters and notification attributes
// that differ from the schema default. Rows of read-only tables, such as
// Device.InterfaceStack, are owned by the device; their non-default values
// are kept too, since nothing else would fill them in after a restore.
// Other read-only status parameters are rebuilt by the device after a
// restart.
//
// Two stores are provided: FileStore writes a JSON document, SQLStore
// keeps the state in SQLite or PostgreSQL.
package persistence
