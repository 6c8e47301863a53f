// Package api is a client for the course marketplace REST backend.
//
// Every response is an envelope of the form {"data": ..., "message": ...}. Non-2xx responses
// become *Error carrying the status and the backend's message; transport failures wrap
// ErrTransport. The client never retries.
package api
