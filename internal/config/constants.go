package config

import "time"

const (
	// Proof of completion
	DefaultMaxProofImages = 5

	// Chat
	MaxMessageLength = 2000

	// Proximity
	KmPerDegree  = 111.0
	RecentWindow = 15 * time.Minute

	// Routing
	RouteCacheTTL = 10 * time.Minute

	// Identity tokens
	TokenTTL = 72 * time.Hour

	// Hub
	SubscriberMailbox = 1
)
