// Package discovery implements mDNS/DNS-SD discovery for sensor nodes.
//
// A running node advertises one operational service:
//
// # Operational Discovery (_mash._tcp)
//
// Instance name format: <device-name>-<serial>, cut to the 63 byte DNS
// label limit. TXT records include VP (vendor:product, hex), SN (serial)
// and EP (endpoint count), and optionally DN (device name), FW (software
// version string) and DT (device types, comma separated hex).
//
// Controllers browse the same service type to find nodes; the browser
// aggregates addresses reported on several interfaces into one entry.
package discovery
