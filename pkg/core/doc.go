// Package core defines the shared language of the sqlstage system.
//
// This package contains:
//   - Source variants (DirectSQL, ZipMember, BundleMember) and Bundle
//   - Engine and Credentials for the database targets
//   - PairOutcome, the result of one (engine, dataset) bootstrap pair
//   - The sentinel errors used across the pipeline
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
