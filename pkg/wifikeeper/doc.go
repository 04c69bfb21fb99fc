// Package wifikeeper provides an embeddable connectivity keeper for devices
// that join a wireless network on their own.
//
// A Keeper joins the network named by the stored credentials, rejoins with
// backoff when the link drops, and falls back to a provisioning access point
// with a captive portal when it has nothing to join. It can be used through
// the wifikeeper CLI or embedded as a library in other Go programs.
//
// # Basic Usage
//
//	cfg := wifikeeper.Config{
//	    StateDir:  "/var/lib/wifikeeper",
//	    APAddress: "192.168.4.1",
//	}
//
//	k, err := wifikeeper.New(cfg, wifikeeper.WithRadio(myRadio))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := k.Start(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
//
//	// ... run until shutdown signal ...
//
//	if err := k.Stop(); err != nil {
//	    log.Printf("shutdown error: %v", err)
//	}
//
// # Radios
//
// Without [WithRadio] the Keeper drives a simulated radio configured by
// [Config.Networks]. Real deployments pass an implementation of [Radio] for
// their wireless hardware.
//
// # Event Handling
//
// Implement [EventHandler] and pass it via [WithEventHandler] to observe both
// the Keeper's own lifecycle and every connectivity event. Handlers run
// synchronously on the event dispatch goroutine and should return quickly.
//
// # Lifecycle States
//
// A Keeper can be in one of five states: [StateStopped], [StateStarting],
// [StateRunning], [StateStopping], or [StateCrashed]. A stopped or crashed
// Keeper can be started again.
package wifikeeper
