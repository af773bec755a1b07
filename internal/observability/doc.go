// Package observability records store and sync events as JSON Lines and
// derives sync metrics from them on demand.
package observability
