// Package logs reads voxclip's daily JSON log files for the CLI.
//
// Reads are bounded: the last N matching lines are kept in a ring while the
// file is scanned, and follow mode polls from the recorded offset until the
// context ends.
package logs
