package utils // package utils provides small helpers shared across services

import (
    "fmt"
    "strings"
)

// SeatRef is the decoded form of a seat identifier.  Seat identifiers
// follow the convention SECTION-ROW-SEAT (e.g. "ORC-R1-S5") with an
// optional leading "SEC" marker (e.g. "SEC-A-R3-S12").  The reservation
// subsystem treats seat ids as opaque except for section extraction
// during pricing and plan grouping.
type SeatRef struct {
    Section string // section code, e.g. "ORC" or "A"
    Row     string // row token without the leading R, e.g. "1"
    Seat    string // seat token without the leading S, e.g. "5"
}

// ParseSeatRef splits a seat identifier on "-" and extracts the section,
// row and seat tokens.  When the first token equals "SEC" the section is
// the second token; otherwise the first.  Row and seat follow the R{n}
// and S{n} forms but are not strictly validated beyond their prefixes:
// the identifier is otherwise opaque to this subsystem.
func ParseSeatRef(seatID string) (SeatRef, error) {
    parts := strings.Split(seatID, "-")
    if len(parts) < 3 {
        return SeatRef{}, fmt.Errorf("malformed seat id %q", seatID)
    }
    section := parts[0]
    rest := parts[1:]
    if strings.EqualFold(section, "SEC") {
        if len(parts) < 4 {
            return SeatRef{}, fmt.Errorf("malformed seat id %q", seatID)
        }
        section = parts[1]
        rest = parts[2:]
    }
    if section == "" {
        return SeatRef{}, fmt.Errorf("empty section in seat id %q", seatID)
    }
    ref := SeatRef{Section: section}
    for _, tok := range rest {
        switch {
        case ref.Row == "" && (strings.HasPrefix(tok, "R") || strings.HasPrefix(tok, "r")):
            ref.Row = tok[1:]
        case ref.Seat == "" && (strings.HasPrefix(tok, "S") || strings.HasPrefix(tok, "s")):
            ref.Seat = tok[1:]
        }
    }
    if ref.Row == "" || ref.Seat == "" {
        return SeatRef{}, fmt.Errorf("seat id %q missing row or seat token", seatID)
    }
    return ref, nil
}

// SectionOf returns just the section code of a seat identifier.
func SectionOf(seatID string) (string, error) {
    ref, err := ParseSeatRef(seatID)
    if err != nil {
        return "", err
    }
    return ref.Section, nil
}
