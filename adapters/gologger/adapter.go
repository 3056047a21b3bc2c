// Package gologger resolves the client's loggers and bridges them into
// go-job. Logger channels hang off the "cerm" root, so a host that
// filters by channel sees cerm.transport, cerm.ratelimit, and the
// queue jobs under cerm.jobs.
package gologger

import (
	"strings"

	job "github.com/goliatone/go-job"
	glog "github.com/goliatone/go-logger/glog"
)

// RootChannel is the channel every client logger nests under.
const RootChannel = "cerm"

// Channel joins segments into a dot-separated channel name under the
// cerm root. Blank segments are dropped.
func Channel(segments ...string) string {
	parts := []string{RootChannel}
	for _, segment := range segments {
		segment = strings.Trim(strings.TrimSpace(segment), ".")
		if segment != "" {
			parts = append(parts, segment)
		}
	}
	return strings.Join(parts, ".")
}

// JobChannel names the logger channel for a queue job. Job ids already
// carry the cerm prefix, so cerm.validate_address logs on
// cerm.jobs.validate_address.
func JobChannel(jobID string) string {
	id := strings.TrimPrefix(strings.TrimSpace(jobID), RootChannel+".")
	return Channel("jobs", id)
}

// Resolve picks a logger with deterministic precedence: provider, then
// the direct logger, then a nop. A blank name resolves on the cerm
// root channel.
func Resolve(name string, provider glog.LoggerProvider, logger glog.Logger) (glog.LoggerProvider, glog.Logger) {
	if strings.TrimSpace(name) == "" {
		name = RootChannel
	}
	return glog.Resolve(name, provider, logger)
}

// ToJobProvider bridges a glog provider onto go-job's provider
// contract.
func ToJobProvider(provider glog.LoggerProvider) job.LoggerProvider {
	if provider == nil {
		return nil
	}
	return job.GoLoggerProvider(provider)
}

// ToJobLogger bridges a glog logger onto go-job's logger contract.
func ToJobLogger(logger glog.Logger) job.Logger {
	if logger == nil {
		return nil
	}
	return job.GoLogger(logger)
}

// ResolveForJob resolves the glog pair for a channel and returns the
// go-job bridges alongside, so queue wiring gets all four from one
// call.
func ResolveForJob(
	name string,
	provider glog.LoggerProvider,
	logger glog.Logger,
) (glog.LoggerProvider, glog.Logger, job.LoggerProvider, job.Logger) {
	resolvedProvider, resolvedLogger := Resolve(name, provider, logger)
	return resolvedProvider, resolvedLogger, ToJobProvider(resolvedProvider), ToJobLogger(resolvedLogger)
}

// ResolveJobLoggers is ResolveForJob keyed by job id instead of
// channel name.
func ResolveJobLoggers(
	jobID string,
	provider glog.LoggerProvider,
	logger glog.Logger,
) (glog.LoggerProvider, glog.Logger, job.LoggerProvider, job.Logger) {
	return ResolveForJob(JobChannel(jobID), provider, logger)
}
