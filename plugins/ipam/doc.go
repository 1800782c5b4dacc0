// Package ipam hands out WireGuard tunnel addresses from WireguardAddressPool
// resources.
//
// A pool owns an IPv4 CIDR block and an allocation ledger mapping a consumer
// key ("namespace/name" of the WireguardConfig) to its address. Assign is the
// pure allocation step: it returns the existing address of a known consumer,
// otherwise the lowest free host address of the block. The network address,
// the broadcast address and 0.0.0.0 are never handed out, and addresses are
// never reclaimed.
//
// Allocator wraps Assign into a read-assign-patch sequence against the object
// store. The patch is guarded by the resource version the pool was read at;
// when another allocation wins the race the whole sequence is repeated from
// a fresh read, so no grant is ever based on a stale ledger.
//
// Example:
//
//	WireguardAddressPool network: "10.0.100.0/24"
//
//	default/pod-a -> 10.0.100.1
//	default/pod-b -> 10.0.100.2
//	...
//	default/pod-x -> 10.0.100.254
//	next consumer -> ErrPoolExhausted
package ipam
