// Package telemetry publishes mail delivery events to the Redis stream
// mail:events, where the analytics pipeline picks them up.
package telemetry
