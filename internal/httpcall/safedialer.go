package httpcall

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"syscall"
	"time"
)

var errBlockedAddress = errors.New("request to private/reserved network address is not allowed")

// BlockedAddressError is returned by the dialer when the resolved address of
// a target falls in a private or reserved range. The client reports it as an
// Unreachable failure naming the address.
type BlockedAddressError struct {
	// Address is the host:port that was dialed.
	Address string
	// Addr is the parsed IP, invalid when Address could not be parsed.
	Addr netip.Addr
	// Reason names the range the address belongs to.
	Reason string
}

func (e *BlockedAddressError) Error() string {
	if !e.Addr.IsValid() {
		return fmt.Sprintf("%v: unparsable address %q", errBlockedAddress, e.Address)
	}
	return fmt.Sprintf("%v: %s is %s", errBlockedAddress, e.Addr, e.Reason)
}

func (e *BlockedAddressError) Unwrap() error {
	return errBlockedAddress
}

type namedPrefix struct {
	prefix netip.Prefix
	reason string
}

// reservedPrefixes are CIDR ranges not covered by the netip.Addr helpers.
var reservedPrefixes = []namedPrefix{
	{netip.MustParsePrefix("100.64.0.0/10"), "carrier-grade NAT"},
	{netip.MustParsePrefix("192.0.0.0/24"), "IETF protocol assignment"},
	{netip.MustParsePrefix("192.0.2.0/24"), "documentation (TEST-NET-1)"},
	{netip.MustParsePrefix("198.18.0.0/15"), "benchmarking"},
	{netip.MustParsePrefix("198.51.100.0/24"), "documentation (TEST-NET-2)"},
	{netip.MustParsePrefix("203.0.113.0/24"), "documentation (TEST-NET-3)"},
}

// newDialer returns the dialer used by the client transport. With
// blockPrivate set, connections to private, loopback, link-local and other
// reserved ranges fail at dial time, after DNS resolution.
func newDialer(blockPrivate bool) *net.Dialer {
	d := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	if blockPrivate {
		d.Control = rejectReserved
	}
	return d
}

func rejectReserved(_ string, address string, _ syscall.RawConn) error {
	addrPort, err := netip.ParseAddrPort(address)
	if err != nil {
		return &BlockedAddressError{Address: address, Reason: "unparsable"}
	}

	if reason, blocked := reservedReason(addrPort.Addr()); blocked {
		return &BlockedAddressError{Address: address, Addr: addrPort.Addr(), Reason: reason}
	}
	return nil
}

// reservedReason reports whether addr must not be dialed and which range it
// belongs to. IPv4-mapped IPv6 addresses are judged as IPv4.
func reservedReason(addr netip.Addr) (string, bool) {
	addr = addr.Unmap()

	switch {
	case addr.IsUnspecified():
		return "unspecified", true
	case addr.IsLoopback():
		return "loopback", true
	case addr.IsPrivate():
		return "private", true
	case addr.IsLinkLocalUnicast(), addr.IsLinkLocalMulticast():
		return "link-local", true
	case addr.IsMulticast():
		return "multicast", true
	case !addr.IsGlobalUnicast():
		return "not global unicast", true
	}

	for _, p := range reservedPrefixes {
		if p.prefix.Contains(addr) {
			return p.reason, true
		}
	}
	return "", false
}
