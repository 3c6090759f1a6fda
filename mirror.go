// Package mirror provides an offline website mirroring engine.
// It renders pages of a single site through a real browser, downloads every
// same-origin asset they reference, and rewrites absolute references inside
// the saved HTML, CSS and JavaScript so the mirror is browsable without
// contacting the origin.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., rod/, goquery/, http/, fs/).
package mirror
