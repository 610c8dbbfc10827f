package utils

import (
	"time"
)

// Token and session time constants
const (
	// AccessTokenTTL is the time-to-live for access tokens (24 hours)
	AccessTokenTTL = 24 * time.Hour

	// AccessTokenTTLSeconds is AccessTokenTTL expressed in seconds for API responses
	AccessTokenTTLSeconds = 24 * 60 * 60

	// RefreshTokenTTL is the time-to-live for refresh tokens (7 days)
	RefreshTokenTTL = 7 * 24 * time.Hour

	// SessionTimeout is the default session timeout (24 hours)
	SessionTimeout = 24 * time.Hour
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Email delivery constants
const (
	// EmailRateLimit is how many invoice emails one account may send per window
	EmailRateLimit = 5

	// EmailRateWindow is the sliding window for the email rate limit
	EmailRateWindow = time.Hour
)

// Pagination defaults
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)
