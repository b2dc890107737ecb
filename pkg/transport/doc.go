// Package transport carries protocol messages between the device and its
// controllers.
//
// # Protocol Stack
//
//	┌────────────────────────────────┐
//	│      CBOR Messages             │
//	├────────────────────────────────┤
//	│   Length-Prefix Framing (4B)   │
//	├────────────────────────────────┤
//	│           TCP                  │
//	└────────────────────────────────┘
//
// Each frame is a 4-byte big-endian payload length followed by the payload.
// Empty frames and frames above the negotiated maximum are rejected.
//
// Every accepted connection gets a random session ID (UUID) that follows it
// through the interaction layer, subscriptions and the protocol capture log.
// A connection that stays silent longer than the idle timeout is closed;
// controllers with open subscriptions stay alive through the device's
// heartbeat reports and their own reads.
package transport
