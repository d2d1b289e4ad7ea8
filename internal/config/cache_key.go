package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// CompositionStateKey returns the key holding a template's persisted composition
// (ordered question ids + answer-format overrides).
func (r *CacheKeyStruct) CompositionStateKey(templateID string) string {
	return fmt.Sprintf("composition:template:%s:state", templateID)
}

// CompositionEventsChannel returns the Redis PubSub channel for a template's composition events.
func (r *CacheKeyStruct) CompositionEventsChannel(templateID string) string {
	return fmt.Sprintf("composition:template:%s:events", templateID)
}

var CacheKey = NewCacheKeyStruct()
