// Package config loads schedule files written in YAML.
//
// A file lists scheduled tasks with their cron expression, timezone,
// concurrency policy and arguments, plus optional defaults, a worker pool
// size and a history database:
//
//	timezone: UTC
//	policy: wait
//	concurrency: 10
//	history:
//	  driver: sqlite
//	  dsn: file:history.db
//	  keep: 1000
//	schedules:
//	  - task: report
//	    schedule: "0 12 * * *"
//	    timezone: America/Chicago
//	    args: {region: us}
package config
