package ping

import (
	"strings"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// describePacket renders a one-line layer summary of a received datagram
// for debug logs, e.g. "IPv4 192.0.2.1>10.0.0.2 / ICMPv4 EchoReply".
func describePacket(b []byte, hasIPHeader bool) string {
	first := gopacket.LayerType(layers.LayerTypeICMPv4)
	if hasIPHeader {
		first = layers.LayerTypeIPv4
	}
	pkt := gopacket.NewPacket(b, first, gopacket.NoCopy)

	var parts []string
	for _, l := range pkt.Layers() {
		switch v := l.(type) {
		case *layers.IPv4:
			parts = append(parts, "IPv4 "+v.SrcIP.String()+">"+v.DstIP.String())
		case *layers.ICMPv4:
			parts = append(parts, "ICMPv4 "+v.TypeCode.String())
		default:
			parts = append(parts, l.LayerType().String())
		}
	}
	if el := pkt.ErrorLayer(); el != nil {
		parts = append(parts, "decode error: "+el.Error().Error())
	}
	return strings.Join(parts, " / ")
}
