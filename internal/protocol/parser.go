// Package protocol parses agent replies for embedded control markers.
//
// Markers are bracketed tag sequences of the shape [[TAG: payload]] or
// [[TAG]]. The parser strips every well-formed marker from the reply and
// converts it into a directive the orchestrator acts on. Malformed or
// unknown markers pass through to the display text verbatim.
package protocol

import (
	"strings"
)

// Marker literals as they appear on the wire. Tags are case-sensitive.
const (
	tagMemoryWrite       = "MEMORY_WRITE"
	tagSessionReset      = "SESSION_RESET"
	tagRequestPermission = "REQUEST_PERMISSION"
	tagLogout            = "LOGOUT"
)

// DirectiveKind discriminates the parsed directive variants.
type DirectiveKind int

const (
	// DirectiveMemoryWrite persists a long-term fact. Zero or more per reply.
	DirectiveMemoryWrite DirectiveKind = iota
	// DirectiveSessionReset clears the conversation log and stored history.
	DirectiveSessionReset
	// DirectivePermissionRequest blocks the session on a user decision.
	DirectivePermissionRequest
	// DirectiveLogout ends the authenticated session (multi-user mode).
	DirectiveLogout
)

// String returns the wire tag for the directive kind.
func (k DirectiveKind) String() string {
	switch k {
	case DirectiveMemoryWrite:
		return tagMemoryWrite
	case DirectiveSessionReset:
		return tagSessionReset
	case DirectivePermissionRequest:
		return tagRequestPermission
	case DirectiveLogout:
		return tagLogout
	}
	return "UNKNOWN"
}

// Directive is one parsed instruction extracted from a reply.
// Payload is empty for the flag-only kinds.
type Directive struct {
	Kind    DirectiveKind
	Payload string
}

// Reply is the result of parsing one raw agent reply.
type Reply struct {
	// CleanText is the reply with every recognized marker removed and
	// surrounding whitespace trimmed.
	CleanText string

	// Directives holds the extracted directives in kind-priority order:
	// all MemoryWrite, then SessionReset, then PermissionRequest, then
	// Logout. Multiple MemoryWrite directives keep their textual order.
	Directives []Directive

	// PrecedingText is the stripped text before the permission marker.
	// Only meaningful when a PermissionRequest directive is present.
	PrecedingText string
}

// Has reports whether a directive of the given kind was extracted.
func (r Reply) Has(kind DirectiveKind) bool {
	for _, d := range r.Directives {
		if d.Kind == kind {
			return true
		}
	}
	return false
}

// MemoryFacts returns the payloads of every MemoryWrite directive.
func (r Reply) MemoryFacts() []string {
	var facts []string
	for _, d := range r.Directives {
		if d.Kind == DirectiveMemoryWrite {
			facts = append(facts, d.Payload)
		}
	}
	return facts
}

// PermissionDescription returns the payload of the PermissionRequest
// directive, or "" if none was extracted.
func (r Reply) PermissionDescription() string {
	for _, d := range r.Directives {
		if d.Kind == DirectivePermissionRequest {
			return d.Payload
		}
	}
	return ""
}

// Parse scans raw reply text for control markers. Directive kinds are
// extracted in priority order; the scan itself is plain string search,
// so overlapping or nested markers are never invented: an unterminated
// marker, or one whose payload opens another bracket pair, stays in the
// output text untouched.
func Parse(raw string) Reply {
	var reply Reply

	text := raw
	for {
		payload, rest, ok := extractPayloadTag(text, tagMemoryWrite)
		if !ok {
			break
		}
		reply.Directives = append(reply.Directives, Directive{
			Kind:    DirectiveMemoryWrite,
			Payload: payload,
		})
		text = rest
	}

	if rest, ok := extractFlagTag(text, tagSessionReset); ok {
		reply.Directives = append(reply.Directives, Directive{Kind: DirectiveSessionReset})
		text = rest
	}

	if idx := payloadTagIndex(text, tagRequestPermission); idx >= 0 {
		payload, rest, ok := extractPayloadTag(text, tagRequestPermission)
		if ok {
			reply.Directives = append(reply.Directives, Directive{
				Kind:    DirectivePermissionRequest,
				Payload: payload,
			})
			reply.PrecedingText = strings.TrimSpace(text[:idx])
			text = rest
		}
	}

	if rest, ok := extractFlagTag(text, tagLogout); ok {
		reply.Directives = append(reply.Directives, Directive{Kind: DirectiveLogout})
		text = rest
	}

	reply.CleanText = strings.TrimSpace(text)
	return reply
}

// payloadTagIndex returns the start offset of the first well-formed
// [[TAG: payload]] occurrence, or -1.
func payloadTagIndex(text, tag string) int {
	open := "[[" + tag + ":"
	from := 0
	for {
		idx := strings.Index(text[from:], open)
		if idx < 0 {
			return -1
		}
		idx += from
		if wellFormedFrom(text, idx+len(open)) {
			return idx
		}
		from = idx + len(open)
	}
}

// wellFormedFrom reports whether the payload starting at offset closes
// with "]]" before any nested "[[" opens.
func wellFormedFrom(text string, offset int) bool {
	closeIdx := strings.Index(text[offset:], "]]")
	if closeIdx < 0 {
		return false
	}
	nested := strings.Index(text[offset:], "[[")
	return nested < 0 || nested > closeIdx
}

// extractPayloadTag removes the first well-formed [[TAG: payload]] from
// text, returning the trimmed payload and the remaining text.
func extractPayloadTag(text, tag string) (payload, rest string, ok bool) {
	idx := payloadTagIndex(text, tag)
	if idx < 0 {
		return "", text, false
	}
	open := "[[" + tag + ":"
	payloadStart := idx + len(open)
	closeIdx := strings.Index(text[payloadStart:], "]]")
	payload = strings.TrimSpace(text[payloadStart : payloadStart+closeIdx])
	rest = text[:idx] + text[payloadStart+closeIdx+2:]
	return payload, rest, true
}

// extractFlagTag removes the first [[TAG]] occurrence from text.
func extractFlagTag(text, tag string) (rest string, ok bool) {
	marker := "[[" + tag + "]]"
	idx := strings.Index(text, marker)
	if idx < 0 {
		return text, false
	}
	return text[:idx] + text[idx+len(marker):], true
}
