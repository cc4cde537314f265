// Package policy provides optional declarative rules controlling whether a
// submitted task must pass the human review checkpoint, may run unattended,
// or is blocked outright.
package policy
