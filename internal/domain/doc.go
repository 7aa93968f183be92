// Package domain defines the core types of a live shopping show and the
// contracts between its components.
//
// Concept-oriented files (event.go, overlay.go, chat.go, ...) hold value types
// and consumer-side interfaces. No implementation code, just contracts.
package domain
