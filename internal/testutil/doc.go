// Package testutil contains helpers used across tests to reduce boilerplate
// when scripting model replies and asserting on the requests a component
// sent. They are not intended for production usage.
package testutil
