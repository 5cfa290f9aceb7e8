// Package session provides the client-side session and cache coordination
// layer for applications backed by a remote identity/RBAC/menu API.
//
// Session lifecycle:
//   - A Session owns the bearer credential and an optional pending
//     two-factor verification record. Both are mirrored to a pluggable
//     Storage so they survive process restarts; the first read after
//     startup hydrates from storage, every mutation writes through.
//   - An expired or undecodable credential is treated the same as an
//     absent one: the session silently degrades to anonymous. Nothing in
//     this layer performs cryptographic validation; tokens are decoded
//     structurally and checked against their expiry claim only.
//   - Every state mutation dispatches change notifications to registered
//     observers before the mutating call returns, so permission checks
//     issued immediately after a credential change never observe stale
//     state.
//
// Remote data:
//   - Cache is a generic single-flight TTL cache: at most one fetch per
//     key is in flight at any instant and all concurrent callers share its
//     result. Failed fetches never poison an entry; the next call retries.
//   - Client wraps the remote API with per-resource caches and maps every
//     remote or transport failure to an empty fallback, so the worst case
//     is a logged-out-looking, permission-less view rather than an error.
//
// Permissions:
//   - ResolvePagePermissions turns a flat permission/role set into per-page
//     CRUD flags: super-admin short-circuit, explicit permission-name
//     match, then a role-family fallback driven by naming convention
//     (Admin/Manager/Analyst-Executive/Staff). The convention lives behind
//     the RoleMatcher interface so hosts can swap in explicit tier tagging.
package session
