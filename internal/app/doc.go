// Package app wires the show components together.
//
// Show owns one instance of every component, routes live events into the
// overlay controller, keeps the product spotlight in step with the overlay and
// exposes the user operations. SnapshotTicker pushes coalesced snapshots of
// the whole show to presentation clients.
package app
