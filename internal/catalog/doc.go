// Package catalog resolves the product reference of a spotlight event and
// keeps the spotlight view the presentation layer draws. Lookups go through a
// memory cache, request coalescing and a circuit breaker; failures fall back
// to the display payload carried on the event.
package catalog
