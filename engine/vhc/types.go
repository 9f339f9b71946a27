// Package vhc defines the vehicle health check domain model: inspection
// templates, filled-in responses, and the scoring rules that turn recorded
// answers into weighted section and total scores. It is pure domain logic
// with no I/O; persistence and transport live in their own packages.
package vhc

import "time"

// Powertrain gates which template sections and items apply to a vehicle.
type Powertrain string

const (
	PowertrainICE    Powertrain = "ice"
	PowertrainEV     Powertrain = "ev"
	PowertrainHybrid Powertrain = "hybrid"
)

// ValidPowertrains is the set of recognised powertrain tags.
var ValidPowertrains = map[Powertrain]bool{
	PowertrainICE: true, PowertrainEV: true, PowertrainHybrid: true,
}

// ItemType governs the expected answer value shape for an inspection item.
type ItemType string

const (
	ItemRadio      ItemType = "radio"
	ItemCheckbox   ItemType = "checkbox"
	ItemRange      ItemType = "range"
	ItemTreadDepth ItemType = "tread-depth"
	ItemNote       ItemType = "note"
)

// ValidItemTypes is the set of recognised item types.
var ValidItemTypes = map[ItemType]bool{
	ItemRadio: true, ItemCheckbox: true, ItemRange: true,
	ItemTreadDepth: true, ItemNote: true,
}

// Status is the lifecycle state of a response.
type Status string

const (
	StatusDraft      Status = "draft"
	StatusInProgress Status = "in_progress"
	StatusSubmitted  Status = "submitted"
	StatusApproved   Status = "approved"
	StatusVoid       Status = "void"
)

// ItemTemplate is one inspection question within a section.
type ItemTemplate struct {
	ID            string             `json:"id"`
	Label         string             `json:"label"`
	Description   string             `json:"description,omitempty"`
	Type          ItemType           `json:"type"`
	Options       []string           `json:"options,omitempty"`
	Weight        float64            `json:"weight"`
	ScoreMap      map[string]float64 `json:"scoreMap,omitempty"`
	Thresholds    *Thresholds        `json:"thresholds,omitempty"`
	PhotoRequired bool               `json:"photoRequired,omitempty"`
	ApplicableTo  []Powertrain       `json:"applicable_to,omitempty"`
	Order         int                `json:"order"`

	// bands holds the thresholds parsed at template load. Scoring falls
	// back to parsing on the fly when a template was never compiled.
	bands *BandSet
}

// SectionTemplate groups related inspection items under a shared weight.
type SectionTemplate struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Weight       float64        `json:"weight"`
	ApplicableTo []Powertrain   `json:"applicable_to,omitempty"`
	Items        []ItemTemplate `json:"items"`
	Order        int            `json:"order"`
}

// Template is an immutable, versioned definition of an inspection form.
// A new version is a new snapshot; published versions are never edited.
type Template struct {
	ID       string            `json:"id"`
	Version  int               `json:"version"`
	Title    string            `json:"title"`
	IsActive bool              `json:"isActive"`
	Sections []SectionTemplate `json:"sections"`
}

// Answer records a technician's value for one template item.
type Answer struct {
	ItemID string   `json:"itemId"`
	Value  *Value   `json:"value,omitempty"`
	Notes  string   `json:"notes,omitempty"`
	Photos []string `json:"photos,omitempty"`
}

// Progress counts answered items against the applicable total.
type Progress struct {
	Answered int `json:"answered"`
	Total    int `json:"total"`
}

// Complete reports whether every applicable item has been answered.
func (p Progress) Complete() bool { return p.Answered == p.Total }

// TotalScoreKey is the ScoreSet key holding the weighted total.
const TotalScoreKey = "total"

// ScoreSet maps section ids to their weighted scores, plus TotalScoreKey.
// Sections with no scoreable answers are omitted, not zeroed.
type ScoreSet map[string]float64

// Total returns the overall weighted score and whether one was computed.
func (s ScoreSet) Total() (float64, bool) {
	v, ok := s[TotalScoreKey]
	return v, ok
}

// Response is one filled-in inspection, pinned to a template snapshot.
// Scores and Progress are derived from Answers and must only ever be
// written by Compute.
type Response struct {
	ID              string     `json:"id"`
	TemplateID      string     `json:"templateId"`
	TemplateVersion int        `json:"templateVersion"`
	Powertrain      Powertrain `json:"powertrain"`
	Status          Status     `json:"status"`
	VehicleID       string     `json:"vehicleId"`
	BookingID       string     `json:"bookingId,omitempty"`
	ServiceIDs      []string   `json:"serviceIds,omitempty"`
	AssignedTo      string     `json:"assignedTo,omitempty"`
	AssignedBy      string     `json:"assignedBy,omitempty"`
	DueAt           *time.Time `json:"dueAt,omitempty"`
	Answers         []Answer   `json:"answers"`
	Scores          ScoreSet   `json:"scores,omitempty"`
	Progress        Progress   `json:"progress"`
	CreatedBy       string     `json:"createdBy,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
	SubmittedAt     *time.Time `json:"submittedAt,omitempty"`
	ApprovedBy      string     `json:"approvedBy,omitempty"`
	ApprovedAt      *time.Time `json:"approvedAt,omitempty"`
}

// Item returns the item with the given id, searching all sections.
func (t Template) Item(itemID string) (ItemTemplate, bool) {
	for _, sec := range t.Sections {
		for _, it := range sec.Items {
			if it.ID == itemID {
				return it, true
			}
		}
	}
	return ItemTemplate{}, false
}

// Answer returns the recorded answer for an item id, if any.
func (r Response) Answer(itemID string) (Answer, bool) {
	for _, a := range r.Answers {
		if a.ItemID == itemID {
			return a, true
		}
	}
	return Answer{}, false
}

func appliesTo(filter []Powertrain, p Powertrain) bool {
	if len(filter) == 0 {
		return true
	}
	for _, f := range filter {
		if f == p {
			return true
		}
	}
	return false
}

// Applies reports whether the section is relevant for the powertrain.
func (s SectionTemplate) Applies(p Powertrain) bool { return appliesTo(s.ApplicableTo, p) }

// Applies reports whether the item is relevant for the powertrain.
// Section-level filtering is checked separately by the caller.
func (it ItemTemplate) Applies(p Powertrain) bool { return appliesTo(it.ApplicableTo, p) }
