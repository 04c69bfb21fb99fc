// Package ports defines the interfaces (ports) that connect the connectivity
// manager to infrastructure adapters.
//
// In Clean Architecture / Hexagonal Architecture, ports are the boundaries
// between the application core and the outside world. They define what the
// application needs from external systems without specifying how those needs
// are fulfilled.
//
// # Port Interfaces
//
//   - [Radio]: joins networks, hosts the provisioning access point, scans
//   - [DNSResponder]: captive-portal name resolution while provisioning
//   - [CredentialStore]: the saved network the device joins on boot
//   - [EventBus]: publish/subscribe notifications between components
//   - [Clock]: time source for the tick-driven timeout checks
//   - [Logger]: Structured logging abstraction
//   - [HTTPClient]: HTTP request abstraction for dependency injection
//
// # Usage
//
// The application layer (internal/app) depends only on these interfaces.
// Infrastructure adapters (internal/adapters) implement these interfaces
// with concrete implementations (simulated radio, UDP DNS, TOML file, zerolog).
//
// This separation enables:
//   - Testing the state machine with fake collaborators and a fake clock
//   - Swapping the radio driver without changing connectivity rules
//   - Clear boundaries and dependency direction
package ports
