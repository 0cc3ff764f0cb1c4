// Package staging reclaims per-video work directories under the staging
// root. A split downloads and renders into <staging>/<video_id> and removes
// the rendered clips when it finishes; directories that outlive their
// command (a killed process, kept source audio) are swept here.
package staging
