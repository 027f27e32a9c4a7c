// Package snipe caches the most recently deleted message in each channel.
package snipe

import (
	"time"

	"github.com/zephyrtronium/bouncer/syncmap"
)

// Entry is a deleted message.
type Entry struct {
	// Content is the text of the message.
	Content string
	// Author is the user ID of the message's author.
	Author string
	// Name is the author's display name at the time of deletion.
	Name string
	// Time is when the message was originally sent.
	Time time.Time
}

// Cache holds one entry per channel.
type Cache struct {
	m syncmap.Map[string, Entry]
}

func New() *Cache {
	return new(Cache)
}

// Record replaces the entry for a channel.
func (c *Cache) Record(channel string, e Entry) {
	c.m.Store(channel, e)
}

// Last returns the entry for a channel.
func (c *Cache) Last(channel string) (Entry, bool) {
	return c.m.Load(channel)
}
