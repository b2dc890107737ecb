// Package persistence stores the runtime state of the node that must
// survive a restart: the light state and the generated serial number.
//
// State is kept in a bbolt file as one JSON document per key, so the file
// can be inspected with the bbolt CLI.
package persistence
