// Package cache keeps recently read blobs in memory with LRU eviction.
package cache
