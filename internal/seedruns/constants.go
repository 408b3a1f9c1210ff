package seedruns

import "time"

// HTTP status code constants.
const (
	StatusOK       = 200
	StatusAccepted = 202
)

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
)

// Runner configuration constants.
const (
	// SettleDelay gives the dashboard a beat to fold submitted runs into
	// estimates and session state before verification reads them back.
	SettleDelay          = 2 * time.Second
	PercentageMultiplier = 100
)

// Progress reporting cadence, in submitted runs.
const progressStep = 50
