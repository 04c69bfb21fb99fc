package dns

import (
	"errors"
	"fmt"
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

var errNotQuery = errors.New("not a dns query")

// buildReply answers every A/IN question in query with answer. Other
// question types get an empty NOERROR reply; non-standard opcodes get NOTIMP.
func buildReply(query []byte, answer net.IP, ttl uint32) ([]byte, error) {
	var q layers.DNS
	if err := q.DecodeFromBytes(query, gopacket.NilDecodeFeedback); err != nil {
		return nil, fmt.Errorf("decode query: %w", err)
	}
	if q.QR {
		return nil, errNotQuery
	}

	reply := layers.DNS{
		ID:           q.ID,
		QR:           true,
		OpCode:       q.OpCode,
		AA:           true,
		RD:           q.RD,
		ResponseCode: layers.DNSResponseCodeNoErr,
		Questions:    q.Questions,
	}

	if q.OpCode != layers.DNSOpCodeQuery {
		reply.ResponseCode = layers.DNSResponseCodeNotImp
	} else {
		ip4 := answer.To4()
		for _, question := range q.Questions {
			if question.Type != layers.DNSTypeA || question.Class != layers.DNSClassIN || ip4 == nil {
				continue
			}
			reply.Answers = append(reply.Answers, layers.DNSResourceRecord{
				Name:  question.Name,
				Type:  layers.DNSTypeA,
				Class: layers.DNSClassIN,
				TTL:   ttl,
				IP:    ip4,
			})
		}
	}
	reply.QDCount = uint16(len(reply.Questions))
	reply.ANCount = uint16(len(reply.Answers))

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true}
	if err := gopacket.SerializeLayers(buf, opts, &reply); err != nil {
		return nil, fmt.Errorf("encode reply: %w", err)
	}
	return buf.Bytes(), nil
}
