package findings

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/OpenBayHQ/openbay-mvp/engine/vhc"
)

// FromResponse extracts the indexable findings from a response: every scored
// item banding red or amber, keyed deterministically so re-submission
// overwrites rather than duplicates.
func FromResponse(t vhc.Template, r vhc.Response) []Finding {
	return FromBreakdown(r, vhc.Breakdown(t, r.Answers, r.Powertrain))
}

// FromBreakdown is FromResponse over a precomputed breakdown, for callers
// that get the breakdown off the wire instead of holding the template.
func FromBreakdown(r vhc.Response, breakdown []vhc.ItemScore) []Finding {
	var out []Finding
	for _, is := range breakdown {
		if !is.Scored || is.Band == vhc.BandGreen {
			continue
		}
		f := Finding{
			ID:         FindingID(r.ID, is.ItemID),
			ResponseID: r.ID,
			VehicleID:  r.VehicleID,
			ItemID:     is.ItemID,
			SectionID:  is.SectionID,
			Band:       is.Band,
			Score:      is.Score,
		}
		if a, ok := r.Answer(is.ItemID); ok {
			f.Notes = a.Notes
		}
		out = append(out, f)
	}
	return out
}

// FindingID derives a stable point id from the response and item ids.
// Qdrant point ids must be UUIDs, so the pair is hashed into a name-based
// UUID rather than concatenated.
func FindingID(responseID, itemID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(responseID+"/"+itemID)).String()
}

// EmbedText is the text embedded for a finding: the item id plus the
// technician's notes, so notes-free findings still land near findings on
// the same item.
func EmbedText(f Finding) string {
	if f.Notes == "" {
		return fmt.Sprintf("%s %s", f.SectionID, f.ItemID)
	}
	return fmt.Sprintf("%s %s: %s", f.SectionID, f.ItemID, f.Notes)
}
