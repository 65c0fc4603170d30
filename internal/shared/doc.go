// Package shared holds helpers used by more than one package.
//
// testutil provides log capture and class feed fixtures for tests.
package shared
