// Package app wires the report pipeline and runs it once.
//
// A run is strictly sequential:
//
//  1. resolve the selection parameters (environment, remote table, defaults)
//  2. load the class feed
//  3. select classes starting soon with too few students
//  4. render the workbook attachment (skipped when nothing matched)
//  5. print the summary to stdout
//  6. archive the report when an archive directory is configured
//  7. send the email exactly once
//
// The first failing stage aborts the run and its error is returned to the
// caller unchanged. The package never calls os.Exit; cmd/classwatch maps the
// outcome to the process exit status.
package app
