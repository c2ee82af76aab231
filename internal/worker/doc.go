// Package worker runs the dispatch process: startup hooks (migrations, job
// manager start), long-running services such as the probe server, and
// ordered shutdown hooks once a signal arrives.
package worker
