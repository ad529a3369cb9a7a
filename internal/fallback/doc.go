// Package fallback implements ordered provider chains. A chain attempts
// each configured provider in turn and returns the first valid result,
// recording which provider produced it.
package fallback
