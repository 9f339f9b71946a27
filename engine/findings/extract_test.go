package findings

import (
	"strings"
	"testing"

	"github.com/OpenBayHQ/openbay-mvp/engine/vhc"
)

func num(f float64) *vhc.Value { v := vhc.Num(f); return &v }

func extractTemplate() vhc.Template {
	return vhc.Template{
		ID: "standard-vhc", Version: 1, Title: "Standard Health Check",
		Sections: []vhc.SectionTemplate{{
			ID: "brakes", Title: "Brakes", Weight: 1, Order: 1,
			Items: []vhc.ItemTemplate{
				{ID: "pads", Type: vhc.ItemRange, Weight: 1, Order: 1},
				{ID: "discs", Type: vhc.ItemRange, Weight: 1, Order: 2},
				{ID: "fluid", Type: vhc.ItemRange, Weight: 1, Order: 3},
			},
		}},
	}
}

func TestFromResponse_FlagsRedAndAmber(t *testing.T) {
	r := vhc.Response{
		ID: "resp-1", VehicleID: "veh-1", Powertrain: vhc.PowertrainICE,
		Answers: []vhc.Answer{
			{ItemID: "pads", Value: num(1), Notes: "metal on metal"},
			{ItemID: "discs", Value: num(3)},
			{ItemID: "fluid", Value: num(5)},
		},
	}
	out := FromResponse(extractTemplate(), r)
	if len(out) != 2 {
		t.Fatalf("findings = %d, want 2 (red + amber)", len(out))
	}
	if out[0].ItemID != "pads" || out[0].Band != vhc.BandRed || out[0].Notes != "metal on metal" {
		t.Errorf("first = %+v", out[0])
	}
	if out[1].ItemID != "discs" || out[1].Band != vhc.BandAmber {
		t.Errorf("second = %+v", out[1])
	}
}

func TestFromResponse_SkipsUnanswered(t *testing.T) {
	r := vhc.Response{ID: "resp-1", Powertrain: vhc.PowertrainICE}
	if out := FromResponse(extractTemplate(), r); len(out) != 0 {
		t.Errorf("findings = %v, want none", out)
	}
}

func TestFindingID_Stable(t *testing.T) {
	a := FindingID("resp-1", "pads")
	b := FindingID("resp-1", "pads")
	if a != b {
		t.Errorf("id not deterministic: %s vs %s", a, b)
	}
	if a == FindingID("resp-2", "pads") {
		t.Error("distinct responses must get distinct ids")
	}
	if len(a) != 36 {
		t.Errorf("id is not a uuid: %s", a)
	}
}

func TestEmbedText(t *testing.T) {
	withNotes := Finding{SectionID: "brakes", ItemID: "pads", Notes: "worn"}
	if got := EmbedText(withNotes); !strings.Contains(got, "worn") {
		t.Errorf("embed text = %q", got)
	}
	bare := Finding{SectionID: "brakes", ItemID: "pads"}
	if got := EmbedText(bare); got != "brakes pads" {
		t.Errorf("embed text = %q", got)
	}
}
