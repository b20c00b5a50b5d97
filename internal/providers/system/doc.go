// Package system provides the "system" service: instance information and
// a ring of recent tool calls fed by the registry.
package system
