// Package eventchannel relays live show events from a push transport to
// subscribers. It decodes payloads, drops the ones it cannot use, reconnects
// with capped exponential backoff and remembers the last event of each kind.
package eventchannel
