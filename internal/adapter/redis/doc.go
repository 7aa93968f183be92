// Package redis holds the Redis adapters: a hooked go-redis client, the
// pub/sub event transport and the product read-through cache.
package redis
