package models

import "time"

// Interval between full list re-fetches. Each tick replaces the cached collection
// wholesale; a tick is skipped while the previous fetch is still in flight.
const DefaultPollTick = 4 * time.Second

const DefaultBackendTimeout = 10 * time.Second

const DefaultBackendRateLimit = 16
const DefaultBackendQueueDepthLimit = 100

const DbDateFormat = "2006-01-02 15:04:05.000000"
const DbLoadLimit = 100

const DefaultSessionTtl = 24 * time.Hour

const DefaultApiPort = "8787"
