// Package registry holds the subsystems an agent exposes and routes actions
// to their handlers.
//
// Providers contribute one Definition each. Build flattens their actions into
// a dispatch table keyed by the lower-cased (subsystem, action) pair and
// derives the device description sent to the control plane. Both are
// read-only once Build returns, so lookups need no locking.
package registry
