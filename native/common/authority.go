package common

import "errors"

// ErrUnauthorized indicates the caller does not hold the capability required
// for a privileged operation.
var ErrUnauthorized = errors.New("caller lacks required capability")

// Capability names a privileged action an address may be granted. The engine
// never encodes who holds a capability, only that the check precedes the
// mutation.
type Capability string

const (
	// CapabilityFiller may settle redemption orders and cancel them early.
	CapabilityFiller Capability = "filler"
	// CapabilityPoolUpdater may replace the yield-pool baseline and rate.
	CapabilityPoolUpdater Capability = "pool_updater"
	// CapabilityDistributor may start and terminate linear distributions.
	CapabilityDistributor Capability = "distributor"
	// CapabilityLiquidityManager may top up or drain the unreserved buffer.
	CapabilityLiquidityManager Capability = "liquidity_manager"
	// CapabilityAdmin may mutate engine parameters.
	CapabilityAdmin Capability = "admin"
)

// Authorizer answers capability checks for privileged operations.
type Authorizer interface {
	Allowed(cap Capability, addr [20]byte) bool
}

// Authorize verifies the address holds the capability. A nil authorizer denies
// everything so an unwired engine fails closed.
func Authorize(a Authorizer, cap Capability, addr [20]byte) error {
	if a == nil || !a.Allowed(cap, addr) {
		return ErrUnauthorized
	}
	return nil
}

// StaticAuthorizer is a fixed capability table. It serves deployments where
// grants are supplied via configuration rather than an external role service.
type StaticAuthorizer struct {
	grants map[Capability]map[[20]byte]struct{}
}

// NewStaticAuthorizer constructs an empty grant table.
func NewStaticAuthorizer() *StaticAuthorizer {
	return &StaticAuthorizer{grants: make(map[Capability]map[[20]byte]struct{})}
}

// Grant records that the address holds the capability.
func (s *StaticAuthorizer) Grant(cap Capability, addr [20]byte) {
	if s == nil {
		return
	}
	if s.grants == nil {
		s.grants = make(map[Capability]map[[20]byte]struct{})
	}
	holders, ok := s.grants[cap]
	if !ok {
		holders = make(map[[20]byte]struct{})
		s.grants[cap] = holders
	}
	holders[addr] = struct{}{}
}

// Revoke removes the grant if present.
func (s *StaticAuthorizer) Revoke(cap Capability, addr [20]byte) {
	if s == nil || s.grants == nil {
		return
	}
	if holders, ok := s.grants[cap]; ok {
		delete(holders, addr)
	}
}

// Allowed implements the Authorizer interface.
func (s *StaticAuthorizer) Allowed(cap Capability, addr [20]byte) bool {
	if s == nil || s.grants == nil {
		return false
	}
	holders, ok := s.grants[cap]
	if !ok {
		return false
	}
	_, ok = holders[addr]
	return ok
}
