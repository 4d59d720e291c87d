// Package timeouts defines timeout constants shared by currency processes.
package timeouts

import "time"

// GRPCDial caps the wait for a currency server to report SERVING.
const GRPCDial = 5 * time.Second

// TelemetryShutdown caps how long span flushing may delay process exit.
const TelemetryShutdown = 5 * time.Second
