package block

// Form is the state of the add-block form.
type Form struct {
	Open  bool
	Type  Type
	Order int // position the next block will be inserted at
	Draft Draft
}

// OpenAdd opens the form with the default draft of type `t`.
func (f *Form) OpenAdd(t Type, order int) error {
	d, err := NewDraft(t)
	if err != nil {
		return err
	}
	*f = Form{Open: true, Type: t, Order: order, Draft: d}
	return nil
}

// ResetForNext resets the draft to its defaults, keeping the chosen type,
// so that blocks of the same type can be entered one after the other.
func (f *Form) ResetForNext(order int) {
	d, err := NewDraft(f.Type)
	if err != nil {
		f.Close()
		return
	}
	f.Open = true
	f.Order = order
	f.Draft = d
}

func (f *Form) Close() {
	*f = Form{}
}
