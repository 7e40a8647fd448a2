// Package testboot boot-tests a converted domain definition against a
// real libvirt daemon.
//
// The domain is defined under a transient instance name, started, and
// probed for liveness; whatever happens, the transient instance is
// destroyed and undefined exactly once before the validator returns,
// unless keep-for-debug is requested. Outcomes are classified into
// Success, ScriptFailure (the harness could not run the test), and
// BootFailure (the test ran and the guest did not come up).
package testboot
