// Package sim provides the core discrete-event simulation engine for netsim.
//
// # Reading Guide
//
// Start with these files to understand the simulation kernel:
//   - time.go: virtual time (nanoseconds) and conversions
//   - event.go: the Event interface and the (timestamp, sequence) ordered queue
//   - simulator.go: the event loop, stop time, cancellation and destroy hooks
//   - rng.go: per-subsystem random streams derived from the run seed
//
// # Architecture
//
// The kernel knows nothing about networks. Models live in sub-packages and
// schedule their own future events on the Simulator:
//   - sim/random/: random variables (constant, uniform, exponential, ...)
//   - sim/mobility/: position allocators and mobility models
//   - sim/network/: nodes, packets, addressing and the IPv4 forwarding path
//   - sim/wifi/: the wireless channel and devices, pcap output
//   - sim/routing/: static, link-state and list routing
//   - sim/app/: traffic sources and sinks
//   - sim/flowmon/: per-flow statistics and XML export
//   - sim/anim/: animation XML
//   - sim/trace/: ascii packet and mobility traces
//   - sim/scenario/: the ad-hoc grid and mixed-wireless scenarios
//
// Models publish observable events through TraceSource values; trace writers
// and monitors connect to them.
package sim
