package panel

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind is the input style of a field. It decides how values are written
// and how the field is serialized on save.
type Kind int

const (
	KindText Kind = iota
	KindCheckbox
	KindSelect
	KindRadio
)

// String returns a short name for the kind.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindCheckbox:
		return "checkbox"
	case KindSelect:
		return "select"
	case KindRadio:
		return "radio"
	default:
		return "unknown"
	}
}

// Action is the follow-up a field requires once a change to it is saved.
type Action string

const (
	// ActionDefault marks a field without an action attribute. Changes
	// count toward the total but toward no specific category.
	ActionDefault Action = ""
	// ActionNone excludes the field from every counter.
	ActionNone      Action = "none"
	ActionReload    Action = "reload"
	ActionReconnect Action = "reconnect"
	ActionReset     Action = "reset"
)

// FieldSpec is the static description of a field, either standalone or as
// part of a repeatable group template.
type FieldSpec struct {
	Name   string
	Label  string
	Kind   Kind
	Action Action

	// Prefix and Suffix decorate text values written from device state.
	Prefix string
	Suffix string

	// Options lists the allowed values of select and radio fields.
	Options []string

	// Module names the module section the field belongs to. Empty means
	// the field is always visible.
	Module string

	// Display fields are read-only text. They are never saved and never
	// tracked.
	Display bool

	// Transient fields are live controls (sliders, relay switches, codes)
	// whose values are not part of the saved configuration.
	Transient bool

	// Status disambiguates paired fields within one group instance.
	Status int
}

// FieldKey addresses a single field instance.
type FieldKey struct {
	Name   string
	Index  int
	Status int
}

// String renders the key as name, name#index or name#index/status.
func (k FieldKey) String() string {
	if k.Index < 0 {
		return k.Name
	}
	s := k.Name + "#" + strconv.Itoa(k.Index)
	if k.Status != 0 {
		s += "/" + strconv.Itoa(k.Status)
	}
	return s
}

// ParseFieldKey reads the String form of a key. A bare name addresses a
// standalone field.
func ParseFieldKey(s string) (FieldKey, error) {
	name, rest, grouped := strings.Cut(s, "#")
	if name == "" {
		return FieldKey{}, fmt.Errorf("field key %q: empty name", s)
	}
	if !grouped {
		return FieldKey{Name: name, Index: -1}, nil
	}
	idx, status, paired := strings.Cut(rest, "/")
	key := FieldKey{Name: name}
	var err error
	if key.Index, err = strconv.Atoi(idx); err != nil || key.Index < 0 {
		return FieldKey{}, fmt.Errorf("field key %q: bad index %q", s, idx)
	}
	if paired {
		if key.Status, err = strconv.Atoi(status); err != nil {
			return FieldKey{}, fmt.Errorf("field key %q: bad status %q", s, status)
		}
	}
	return key, nil
}

// Field is one live input or display element of the panel.
type Field struct {
	FieldSpec

	// Group is empty for standalone fields.
	Group string
	// Index is the data index of a group instance (relay id, channel id,
	// network position). Standalone fields use -1.
	Index int
	// TabIndex is the keyboard traversal position, 0 when unordered.
	TabIndex int

	Value   string
	Checked bool

	original        string
	originalChecked bool
	hasOriginal     bool
}

func newField(spec FieldSpec, group string, index int) *Field {
	return &Field{FieldSpec: spec, Group: group, Index: index}
}

// Key returns the address of the field.
func (f *Field) Key() FieldKey {
	return FieldKey{Name: f.Name, Index: f.Index, Status: f.Status}
}

// Current renders the live value of the field as text.
func (f *Field) Current() string {
	if f.Kind == KindCheckbox {
		return strconv.FormatBool(f.Checked)
	}
	return f.Value
}

// Original returns the snapshot value and whether a snapshot exists.
func (f *Field) Original() (string, bool) {
	if !f.hasOriginal {
		return "", false
	}
	if f.Kind == KindCheckbox {
		return strconv.FormatBool(f.originalChecked), true
	}
	return f.original, true
}

// Saved reports whether the field takes part in the save command.
func (f *Field) Saved() bool {
	return !f.Display && !f.Transient
}

func (f *Field) differs() bool {
	if f.Kind == KindCheckbox {
		return f.Checked != f.originalChecked
	}
	return f.Value != f.original
}

func (f *Field) snapshot() {
	f.original = f.Value
	f.originalChecked = f.Checked
	f.hasOriginal = true
}
