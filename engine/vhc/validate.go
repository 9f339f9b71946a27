package vhc

// Compile parses every item's threshold expressions and caches the result
// on the item. Stores call this once when a template is loaded so scoring
// never re-parses threshold strings.
func (t *Template) Compile() error {
	for si := range t.Sections {
		sec := &t.Sections[si]
		for ii := range sec.Items {
			it := &sec.Items[ii]
			if it.Thresholds == nil {
				continue
			}
			bands, err := ParseThresholds(*it.Thresholds)
			if err != nil {
				return NewError(ErrInvalidTemplate, it.ID, "item thresholds: %v", err)
			}
			it.bands = bands
		}
	}
	return nil
}

// ValidateTemplate checks the structural invariants of a template: unique
// item ids across all sections, known item types, non-negative weights,
// options present on discrete-choice items, and parseable thresholds.
func ValidateTemplate(t Template) error {
	if t.ID == "" {
		return NewError(ErrInvalidTemplate, "", "template id is empty")
	}
	if t.Version < 1 {
		return NewError(ErrInvalidTemplate, t.ID, "version %d must be >= 1", t.Version)
	}
	seen := make(map[string]bool)
	for _, sec := range t.Sections {
		if sec.ID == "" {
			return NewError(ErrInvalidTemplate, t.ID, "section with empty id")
		}
		if sec.Weight < 0 {
			return NewError(ErrInvalidTemplate, sec.ID, "section weight %v is negative", sec.Weight)
		}
		for _, pt := range sec.ApplicableTo {
			if !ValidPowertrains[pt] {
				return NewError(ErrInvalidTemplate, sec.ID, "unknown powertrain %q", pt)
			}
		}
		for _, it := range sec.Items {
			if it.ID == "" {
				return NewError(ErrInvalidTemplate, sec.ID, "item with empty id")
			}
			if seen[it.ID] {
				return NewError(ErrInvalidTemplate, it.ID, "duplicate item id")
			}
			seen[it.ID] = true
			if !ValidItemTypes[it.Type] {
				return NewError(ErrInvalidTemplate, it.ID, "unknown item type %q", it.Type)
			}
			if it.Weight < 0 {
				return NewError(ErrInvalidTemplate, it.ID, "item weight %v is negative", it.Weight)
			}
			if (it.Type == ItemRadio || it.Type == ItemCheckbox) && len(it.Options) == 0 {
				return NewError(ErrInvalidTemplate, it.ID, "%s item has no options", it.Type)
			}
			for _, pt := range it.ApplicableTo {
				if !ValidPowertrains[pt] {
					return NewError(ErrInvalidTemplate, it.ID, "unknown powertrain %q", pt)
				}
			}
			if it.Thresholds != nil {
				if _, err := ParseThresholds(*it.Thresholds); err != nil {
					return NewError(ErrInvalidTemplate, it.ID, "thresholds: %v", err)
				}
			}
		}
	}
	return nil
}

// ValidateAnswers rejects any answer that references an item id absent from
// the template or carries a value of the wrong shape for the item's type.
// Validation runs before any mutation is applied, so a batch either merges
// completely or not at all.
func ValidateAnswers(t Template, answers []Answer) error {
	for _, a := range answers {
		if a.ItemID == "" {
			return NewError(ErrInvalidAnswer, "", "answer with empty item id")
		}
		it, ok := t.Item(a.ItemID)
		if !ok {
			return NewError(ErrInvalidAnswer, a.ItemID, "item not in template %s v%d", t.ID, t.Version)
		}
		if a.Value == nil {
			continue
		}
		if err := checkValueShape(it, *a.Value); err != nil {
			return err
		}
	}
	return nil
}

func checkValueShape(it ItemTemplate, v Value) error {
	switch it.Type {
	case ItemRange, ItemTreadDepth:
		if v.Kind() != KindNumber {
			return NewError(ErrInvalidAnswer, it.ID, "%s item requires a numeric value, got %q", it.Type, v.Key())
		}
	case ItemNote:
		if v.Kind() != KindString {
			return NewError(ErrInvalidAnswer, it.ID, "note item requires a string value, got %q", v.Key())
		}
	case ItemRadio, ItemCheckbox:
		// Numbers are legal here: ConvertAnswersForStorage turns scale
		// titles into their 1-5 codes before persistence.
		if s, ok := v.Text(); ok && len(it.Options) > 0 {
			if !containsOption(it.Options, s) && ToValue(v).Kind() == KindString {
				return NewError(ErrInvalidAnswer, it.ID, "value %q is not an allowed option", s)
			}
		}
	}
	return nil
}

func containsOption(options []string, s string) bool {
	for _, o := range options {
		if o == s {
			return true
		}
	}
	return false
}
