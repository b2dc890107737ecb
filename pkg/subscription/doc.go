// Package subscription keeps controllers up to date with attribute changes.
//
// Clusters do not push values. Each cluster instance arms a change flag on its
// data version whenever its state really changes. The Reporter drains those
// flags, marks the subscriptions of the changed (endpoint, cluster) pending,
// and once a subscription's coalescing window has elapsed it reads the
// current values and sends them.
//
// # Subscription Parameters
//
// Each subscription has:
//   - minInterval: minimum time between reports (coalescing window)
//   - maxInterval: maximum time without a report (heartbeat)
//   - attributeIds: specific attributes to report (empty = all)
//
// # Coalescing
//
// The window starts at the first change after the previous report. Changes
// inside the window collapse into one report carrying the final values.
//
// # Bounce-Back Suppression
//
// A value that changes and returns to its last reported encoding inside the
// window is left out of the report. A report left empty is not sent.
//
// # Priming and Heartbeat
//
// The subscribe response carries the current values (priming). A heartbeat
// goes out after maxInterval without a report.
//
// # Lifecycle
//
// Subscriptions belong to a session and are dropped when it closes.
package subscription
