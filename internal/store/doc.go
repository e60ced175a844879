// Package store defines the message persistence contract shared by the
// volatile (memory) and durable (mongo, sqlite) backends. The server picks
// one backend at startup and keeps it for the lifetime of the process.
package store
