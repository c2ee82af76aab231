// Package quota counts platform-funded emails per account in Redis and
// resets the counters daily through a scheduled job.
package quota
