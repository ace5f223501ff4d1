// Package inbound exposes the session lifecycle operations over HTTP.
//
// Responses share a JSON envelope: successes carry success=true plus the
// operation payload, failures carry success=false and an error message with
// the status code taken from the error envelope.
package inbound
