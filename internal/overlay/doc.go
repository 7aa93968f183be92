// Package overlay decides which single interactive overlay (poll, product
// spotlight or contest) is on screen and for how long. It owns the expiry
// timers and the nested contest round that runs inside a contest overlay.
package overlay
