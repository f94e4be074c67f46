// Package dedupe filters redelivered webhook messages. A Cache remembers
// gateway message ids for a fixed window and reports ids it has already
// accepted.
package dedupe
