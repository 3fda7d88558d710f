package atparse

import (
	"strconv"
	"strings"
)

// SBDIXResult is the decoded form of `+SBDIX:mo,momsn,mt,mtmsn,mtlen,queued`
// (spec §4.2 "Session-initiate response parsing").
type SBDIXResult struct {
	MO, MOMSN, MT, MTMSN, MTLen, Queued int
	OK                                  bool
}

// ParseSBDIX parses a completed +SBDIX line. ok is false if the line
// doesn't carry the expected prefix or field count.
func ParseSBDIX(line string) (SBDIXResult, bool) {
	fields, ok := splitHeader(line, HdrSBDIX, 6)
	if !ok {
		return SBDIXResult{}, false
	}
	return SBDIXResult{
		MO:     fields[0],
		MOMSN:  fields[1],
		MT:     fields[2],
		MTMSN:  fields[3],
		MTLen:  fields[4],
		Queued: fields[5],
		OK:     true,
	}, true
}

// SBDSXResult is the decoded form of
// `+SBDSX:mo,momsn,mt,mtmsn,ra,queued` (spec §4.2 item 8).
type SBDSXResult struct {
	MO, MOMSN, MT, MTMSN, RA, Queued int
}

func ParseSBDSX(line string) (SBDSXResult, bool) {
	fields, ok := splitHeader(line, HdrSBDSX, 6)
	if !ok {
		return SBDSXResult{}, false
	}
	return SBDSXResult{
		MO: fields[0], MOMSN: fields[1], MT: fields[2],
		MTMSN: fields[3], RA: fields[4], Queued: fields[5],
	}, true
}

// ParseCSQF parses `+CSQF:n`, 0<=n<=5.
func ParseCSQF(line string) (n int, ok bool) {
	fields, ok := splitHeader(line, HdrCSQF, 1)
	if !ok {
		return 0, false
	}
	return fields[0], true
}

// CREGResult is the decoded form of `+CREG:setting,status`.
type CREGResult struct {
	Setting, Status int
}

func ParseCREG(line string) (CREGResult, bool) {
	fields, ok := splitHeader(line, HdrCREG, 2)
	if !ok {
		return CREGResult{}, false
	}
	return CREGResult{Setting: fields[0], Status: fields[1]}, true
}

// ParseCLCC parses `+CLCC:nnn`.
func ParseCLCC(line string) (n int, ok bool) {
	fields, ok := splitHeader(line, HdrCLCC, 1)
	if !ok {
		return 0, false
	}
	return fields[0], true
}

// splitHeader strips prefix from line, splits the remainder on commas, and
// parses each field as a (possibly negative) integer. ok is false unless
// the prefix matches and exactly want fields parse cleanly.
func splitHeader(line, prefix string, want int) ([]int, bool) {
	if !strings.HasPrefix(line, prefix) {
		return nil, false
	}
	rest := strings.TrimSpace(line[len(prefix):])
	parts := strings.Split(rest, ",")
	if len(parts) != want {
		return nil, false
	}
	out := make([]int, want)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}
