package l4

import (
	"time"

	"github.com/windward-avionics/sbdlink/x/qring"
)

// snapshotMsgType is the binary snapshot's message-type byte (spec §4.4
// header field 1). There is only one snapshot shape, so this is a fixed
// marker rather than an enum.
const snapshotMsgType = 0x01

// Snapshot implements collab.ModemLog.Snapshot (spec §4.4
// `generate_log_message(requested_time)`): header (message type, length,
// request time) followed by the last-N deduplicated events, oldest first,
// and a trailing 16-bit CRC computed over every byte of the message other
// than the CRC field itself.
func (l *Log) Snapshot(requestedTime time.Time) ([]byte, error) {
	entries := l.dedup.Snapshot()

	buf := make([]byte, 0, 16+len(entries)*48)
	buf = append(buf, snapshotMsgType)
	buf = appendUint16(buf, 0) // length placeholder, patched below
	buf = appendUint64(buf, uint64(requestedTime.UTC().Unix()))
	buf = appendUint16(buf, uint16(len(entries)))

	for _, e := range entries {
		buf = appendEntry(buf, e)
	}

	payloadLen := len(buf) - 3 // everything after the message-type + length fields
	buf[1] = byte(payloadLen >> 8)
	buf[2] = byte(payloadLen)

	sum := crc16(buf)
	buf = appendUint16(buf, sum)
	return buf, nil
}

func appendEntry(buf []byte, e qring.Entry[dedupKind, dedupEntry]) []byte {
	buf = appendString(buf, e.Key)
	buf = appendUint64(buf, uint64(e.Value.timestamp.UTC().Unix()))
	buf = appendUint16(buf, uint16(e.Value.repeatCount))
	buf = append(buf, byte(int8(e.Value.signalStrength)))
	buf = appendString(buf, e.Value.filename)
	buf = appendString(buf, e.Value.subError)
	buf = appendString(buf, e.Value.momsn)
	buf = appendString(buf, e.Value.mtmsn)
	return buf
}

func appendString(buf []byte, s string) []byte {
	if len(s) > 255 {
		s = s[:255]
	}
	buf = append(buf, byte(len(s)))
	return append(buf, s...)
}

func appendUint16(buf []byte, v uint16) []byte {
	return append(buf, byte(v>>8), byte(v))
}

func appendUint64(buf []byte, v uint64) []byte {
	return append(buf,
		byte(v>>56), byte(v>>48), byte(v>>40), byte(v>>32),
		byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}
