package domain

import (
	"fmt"
	"net"
)

// DefaultAPPrefix is prepended to the generated access point identifier.
const DefaultAPPrefix = "wifikeeper-"

// AccessPointIdentifier derives the provisioning access point identifier
// from the low three bytes of the hardware address. The result only depends
// on prefix and hw.
func AccessPointIdentifier(prefix string, hw net.HardwareAddr) string {
	if len(hw) < 3 {
		return prefix + "000000"
	}
	low := hw[len(hw)-3:]
	return fmt.Sprintf("%s%02x%02x%02x", prefix, low[0], low[1], low[2])
}
