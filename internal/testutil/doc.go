// Package testutil provides deterministic helpers shared by tests in other
// packages: run ID generators and small scripted machine programs.
package testutil
