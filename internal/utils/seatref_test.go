package utils

import (
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestParseSeatRef(t *testing.T) {
    cases := []struct {
        in      string
        section string
        row     string
        seat    string
    }{
        {"ORC-R1-S5", "ORC", "1", "5"},
        {"SEC-A-R3-S12", "A", "3", "12"},
        {"A-R1-S1", "A", "1", "1"},
        {"BAL-R10-S200", "BAL", "10", "200"},
    }
    for _, tc := range cases {
        ref, err := ParseSeatRef(tc.in)
        require.NoError(t, err, tc.in)
        assert.Equal(t, tc.section, ref.Section, tc.in)
        assert.Equal(t, tc.row, ref.Row, tc.in)
        assert.Equal(t, tc.seat, ref.Seat, tc.in)
    }
}

func TestParseSeatRefRejectsMalformed(t *testing.T) {
    for _, in := range []string{"", "A", "A-R1", "SEC-A-R1", "--", "A-X1-Y2"} {
        _, err := ParseSeatRef(in)
        assert.Error(t, err, in)
    }
}

func TestSectionOf(t *testing.T) {
    s, err := SectionOf("SEC-VIP-R1-S1")
    require.NoError(t, err)
    assert.Equal(t, "VIP", s)
}

func TestRandomTokenLengthAndUniqueness(t *testing.T) {
    a, err := RandomToken(16)
    require.NoError(t, err)
    b, err := RandomToken(16)
    require.NoError(t, err)
    assert.Len(t, a, 32)
    assert.NotEqual(t, a, b)
}
