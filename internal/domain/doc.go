// Package domain contains the core domain entities and value objects for wifikeeper.
//
// This package represents the innermost layer of the Clean Architecture. It has
// no dependencies on infrastructure concerns (radio drivers, file system, HTTP,
// logging) and contains only pure connectivity rules.
//
// # Entities
//
//   - [ConnectivityState]: the four states a device link can be in
//   - [ConnectionAttempt]: an in-flight join with its deadline
//   - [ProvisioningSession]: the local access point hosted while provisioning
//   - [ScanSnapshot]: the last completed network scan
//   - [Credentials]: the one saved network the device auto-joins
//   - [Event]: lifecycle notifications exchanged over the event bus
//
// # Design Principles
//
// Domain entities are:
//   - Immutable after construction (where practical)
//   - Free of infrastructure dependencies
//   - Focused on connectivity rules and invariants
//   - Testable without mocks or external systems
package domain
