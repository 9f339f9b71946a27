package vhc

import (
	"errors"
	"testing"
)

var treadThresholds = Thresholds{Red: "<2.0", Amber: "2.0-3.0", Green: ">=3.0"}

func TestClassify_TreadDepth(t *testing.T) {
	bs, err := ParseThresholds(treadThresholds)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	cases := []struct {
		value float64
		want  Band
	}{
		{1.5, BandRed},
		{1.99, BandRed},
		{2.0, BandAmber}, // "<2.0" is strict, so 2.0 falls into the range band
		{2.5, BandAmber},
		{3.0, BandAmber}, // range upper bound is inclusive; amber checked before green
		{3.1, BandGreen},
		{8.0, BandGreen},
	}
	for _, c := range cases {
		band, ok := bs.Classify(c.value)
		if !ok || band != c.want {
			t.Errorf("Classify(%v) = %v/%v, want %v", c.value, band, ok, c.want)
		}
	}
}

func TestClassify_Operators(t *testing.T) {
	bs, err := ParseThresholds(Thresholds{Red: "<=1.0", Amber: ">4.0", Green: ">=2.0"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if band, _ := bs.Classify(1.0); band != BandRed {
		t.Errorf("<=1.0 should include 1.0, got %v", band)
	}
	if band, _ := bs.Classify(4.0); band != BandGreen {
		t.Errorf(">4.0 should exclude 4.0, got %v", band)
	}
	if _, ok := bs.Classify(1.5); ok {
		t.Error("1.5 matches no band, expected ok=false")
	}
}

func TestClassify_NegativeRange(t *testing.T) {
	bs, err := ParseThresholds(Thresholds{Red: "<-10", Amber: "-10-0", Green: ">0"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if band, _ := bs.Classify(-5); band != BandAmber {
		t.Errorf("expected amber for -5, got %v", band)
	}
}

func TestParseThresholds_Invalid(t *testing.T) {
	cases := []Thresholds{
		{Red: "", Amber: "2.0-3.0", Green: ">=3.0"},
		{Red: "<abc", Amber: "2.0-3.0", Green: ">=3.0"},
		{Red: "<2.0", Amber: "approx 2", Green: ">=3.0"},
	}
	for _, th := range cases {
		if _, err := ParseThresholds(th); !errors.Is(err, ErrInvalidTemplate) {
			t.Errorf("expected ErrInvalidTemplate for %+v, got %v", th, err)
		}
	}
}

func TestScoreForBand(t *testing.T) {
	want := map[Band]float64{BandRed: 1, BandAmber: 3, BandGreen: 5}
	for band, score := range want {
		if got, ok := ScoreForBand(band); !ok || got != score {
			t.Errorf("ScoreForBand(%v) = %v, want %v", band, got, score)
		}
	}
	if _, ok := ScoreForBand("purple"); ok {
		t.Error("unknown band should not resolve")
	}
}
