// Package discovery advertises echo servers over mDNS and finds them.
//
// A server registers itself as an "_http._tcp" service whose TXT record
// carries app=echo-server, so scanners can tell it apart from any other
// HTTP service on the segment:
//
//	ad, err := discovery.Advertise("", srv.Port(), false, version.Get())
//	if err != nil {
//	    return err
//	}
//	defer ad.Shutdown()
//
//	instances, err := discovery.NewScanner().Scan(ctx)
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Servers must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
package discovery
