// Package trace turns engine notifications into records and output.
//
// Observers provided here:
//   - Recorder: an ordered, replayable log of what a run did
//   - Printer: human-readable per-cycle debug output
//   - Stepper: pauses before every cycle until a line is read
//   - Multi: fans notifications out to several observers
//
// Recorded traces serialize to canonical JSON (sorted keys, NFC strings, no
// floats), so identical runs produce identical bytes.
package trace
