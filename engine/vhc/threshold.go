package vhc

import (
	"strconv"
	"strings"
)

// Band is the red/amber/green severity classification of a continuous
// measurement such as a tread depth in millimetres.
type Band string

const (
	BandRed   Band = "red"
	BandAmber Band = "amber"
	BandGreen Band = "green"
)

// Fixed severity scores per band on the 1-5 scale.
var bandScores = map[Band]float64{
	BandRed:   1,
	BandAmber: 3,
	BandGreen: 5,
}

// ScoreForBand returns the fixed 1-5 severity score for a band.
func ScoreForBand(b Band) (float64, bool) {
	s, ok := bandScores[b]
	return s, ok
}

// Thresholds holds the raw band expressions as authored in a template,
// e.g. {"red": "<2.0", "amber": "2.0-3.0", "green": ">=3.0"}.
type Thresholds struct {
	Red   string `json:"red"`
	Amber string `json:"amber"`
	Green string `json:"green"`
}

type thresholdOp int

const (
	opLT thresholdOp = iota
	opLE
	opGT
	opGE
	opRange // inclusive on both ends
)

type bandExpr struct {
	op thresholdOp
	lo float64
	hi float64
}

func (e bandExpr) matches(v float64) bool {
	switch e.op {
	case opLT:
		return v < e.hi
	case opLE:
		return v <= e.hi
	case opGT:
		return v > e.lo
	case opGE:
		return v >= e.lo
	case opRange:
		return v >= e.lo && v <= e.hi
	}
	return false
}

// BandSet is a compiled Thresholds: expressions parsed once at template
// load, never re-parsed per evaluation.
type BandSet struct {
	red, amber, green bandExpr
}

// Classify maps a measurement to its band. Bands are checked in severity
// order (red, amber, green) so an overlapping boundary resolves to the
// more severe band.
func (bs *BandSet) Classify(v float64) (Band, bool) {
	switch {
	case bs.red.matches(v):
		return BandRed, true
	case bs.amber.matches(v):
		return BandAmber, true
	case bs.green.matches(v):
		return BandGreen, true
	}
	return "", false
}

// ParseThresholds compiles the three band expressions.
func ParseThresholds(th Thresholds) (*BandSet, error) {
	red, err := parseBandExpr(th.Red)
	if err != nil {
		return nil, NewError(ErrInvalidTemplate, "", "bad red threshold %q: %v", th.Red, err)
	}
	amber, err := parseBandExpr(th.Amber)
	if err != nil {
		return nil, NewError(ErrInvalidTemplate, "", "bad amber threshold %q: %v", th.Amber, err)
	}
	green, err := parseBandExpr(th.Green)
	if err != nil {
		return nil, NewError(ErrInvalidTemplate, "", "bad green threshold %q: %v", th.Green, err)
	}
	return &BandSet{red: red, amber: amber, green: green}, nil
}

func parseBandExpr(expr string) (bandExpr, error) {
	s := strings.TrimSpace(expr)
	switch {
	case strings.HasPrefix(s, "<="):
		hi, err := parseBound(s[2:])
		return bandExpr{op: opLE, hi: hi}, err
	case strings.HasPrefix(s, "<"):
		hi, err := parseBound(s[1:])
		return bandExpr{op: opLT, hi: hi}, err
	case strings.HasPrefix(s, ">="):
		lo, err := parseBound(s[2:])
		return bandExpr{op: opGE, lo: lo}, err
	case strings.HasPrefix(s, ">"):
		lo, err := parseBound(s[1:])
		return bandExpr{op: opGT, lo: lo}, err
	}
	// Range form "a-b". Split on the first '-' that is not a leading sign.
	if i := strings.Index(s[1:], "-"); i >= 0 {
		lo, err := parseBound(s[:i+1])
		if err != nil {
			return bandExpr{}, err
		}
		hi, err := parseBound(s[i+2:])
		if err != nil {
			return bandExpr{}, err
		}
		return bandExpr{op: opRange, lo: lo, hi: hi}, nil
	}
	return bandExpr{}, strconv.ErrSyntax
}

func parseBound(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
