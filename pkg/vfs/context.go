package vfs

import "sync"

// Identity is the caller's opaque identity set: user id, group ids, and
// role tokens, used to decide ACL visibility (spec glossary: "Identity
// set"). Membership is by exact string match against a record's ACL
// columns.
type Identity struct {
	UserID string
	Groups []string
	Roles  []string
}

// Set returns every opaque identifier this identity carries, suitable for
// intersecting against a record's ACL columns.
func (id Identity) Set() map[string]struct{} {
	out := make(map[string]struct{}, 1+len(id.Groups)+len(id.Roles))
	if id.UserID != "" {
		out[id.UserID] = struct{}{}
	}
	for _, g := range id.Groups {
		out[g] = struct{}{}
	}
	for _, r := range id.Roles {
		out[r] = struct{}{}
	}
	return out
}

// Intersects reports whether this identity's set shares any member with
// ids.
func (id Identity) Intersects(ids []string) bool {
	set := id.Set()
	for _, s := range ids {
		if _, ok := set[s]; ok {
			return true
		}
	}
	return false
}

// AccessLevel is the caller's coarse access grant, independent of
// per-record ACL.
type AccessLevel string

const (
	AccessRead  AccessLevel = "read"
	AccessWrite AccessLevel = "write"
	AccessAdmin AccessLevel = "admin"
)

// SystemContext is the per-request value threaded into every mount at
// construction time (spec §9's "Per-request context" redesign note):
// identity, access level, sudo state, a correlation id, and the caller's
// tenant namespace. No mount holds cross-request state; everything a
// mount needs to make an ACL or identity decision comes from the
// SystemContext it was built with.
type SystemContext struct {
	mu sync.RWMutex

	RequestID string
	Tenant    string
	Namespace string
	Identity  Identity
	Access    AccessLevel
	sudo      bool
}

// NewSystemContext constructs a context for one request.
func NewSystemContext(requestID, tenant, namespace string, identity Identity, access AccessLevel) *SystemContext {
	return &SystemContext{
		RequestID: requestID,
		Tenant:    tenant,
		Namespace: namespace,
		Identity:  identity,
		Access:    access,
	}
}

// Sudo reports whether the caller currently holds elevated (ACL-bypassing)
// privilege: granted by a root role, a sudo-marked token, or a
// programmatically scoped self-service elevation (WithSudo).
func (c *SystemContext) Sudo() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sudo
}

// GrantSudo sets the sudo flag unconditionally — used at context
// construction for a root role or a sudo-marked token. Prefer WithSudo
// for a scoped self-service elevation.
func (c *SystemContext) GrantSudo() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sudo = true
}

// WithSudo runs fn with the sudo flag set for its duration, clearing it on
// every exit path (normal return or panic), per spec §4.H's "Self-service
// sudo" helper: a caller must be able to modify rows it owns within a
// normally sudo-gated model without being granted blanket elevation.
func (c *SystemContext) WithSudo(fn func() error) error {
	c.mu.Lock()
	prior := c.sudo
	c.sudo = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.sudo = prior
		c.mu.Unlock()
	}()

	return fn()
}
