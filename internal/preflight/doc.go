// Package preflight provides readiness checks for the filesystem roots,
// external binaries, and remote services that voxclip depends on.
//
// These checks run in two contexts:
//   - The pipeline calls RunAll before acquiring media for a split. If any
//     required check fails the split is rejected before anything is written.
//   - The CLI "voxclip doctor" command renders every check, including the
//     remote provider checks, so operators can diagnose a host.
package preflight
