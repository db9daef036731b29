// Package registration wires the single in-flight request coordinator to the
// account registration flow.
//
// A Screen owns one coordinator and one event loop. Outcomes are delivered on
// the loop and published to a notify.Hub as registration.* events, so a host
// can render progress and results without touching the coordinator directly.
package registration
