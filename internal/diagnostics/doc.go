// Package diagnostics captures post-mortem information when an agent
// source panics. The stream worker recovers the panic and turns it into an
// AGENT_PANICKED failure; a CrashDumpWriter installed as the session's panic
// hook persists the value, stack and query context as JSON.
package diagnostics
