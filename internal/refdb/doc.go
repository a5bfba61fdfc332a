// Package refdb holds the labelled reference fingerprints and predicts which
// reference a query track contains.
//
// A Database is fitted wholesale from entries that share one fingerprint.Params.
// Predict scores the query against every reference in parallel and reports the
// best label together with a confidence margin over the runner-up. Databases
// persist as versioned SQLite checkpoints guarded by an advisory file lock.
package refdb
