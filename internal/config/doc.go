// Package config loads process configuration and resolves the per-run
// selection parameters.
//
// # Process configuration
//
// Load reads, in increasing precedence:
//
//  1. an optional YAML file (-config)
//  2. an optional .env file in the working directory
//  3. the process environment
//
// and then fills defaults. CSV_URL, FROM_EMAIL, FROM_PASSWORD and TO_EMAIL are
// required; when any are absent Load returns one MissingEnvironmentError naming
// all of them.
//
// # Run parameters
//
// Resolver produces domain.RunConfig. Each key is taken from the environment
// override when it parses as a positive integer, otherwise from the remote
// key/value table, otherwise from the default (days_ahead 14, min_students 15).
// The table is read either from a CSV URL (CONFIG_URL) or a Google Sheets range
// (CONFIG_SHEET_ID); an unreachable table fails the run.
package config
