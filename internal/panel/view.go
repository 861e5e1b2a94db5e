package panel

import (
	"strconv"

	"github.com/samber/lo"
)

// FieldView is a read-only copy of one field for rendering.
type FieldView struct {
	Key      string   `json:"key" yaml:"key"`
	Name     string   `json:"name" yaml:"name"`
	Label    string   `json:"label" yaml:"label"`
	Group    string   `json:"group,omitempty" yaml:"group,omitempty"`
	Kind     string   `json:"kind" yaml:"kind"`
	Value    string   `json:"value" yaml:"value"`
	Checked  bool     `json:"checked,omitempty" yaml:"checked,omitempty"`
	Options  []string `json:"options,omitempty" yaml:"options,omitempty"`
	Display  bool     `json:"display,omitempty" yaml:"display,omitempty"`
	Saved    bool     `json:"saved" yaml:"saved"`
	Dirty    bool     `json:"dirty,omitempty" yaml:"dirty,omitempty"`
	Action   string   `json:"action,omitempty" yaml:"action,omitempty"`
	Module   string   `json:"module,omitempty" yaml:"module,omitempty"`
	TabIndex int      `json:"tabindex,omitempty" yaml:"tabindex,omitempty"`

	key FieldKey
}

// FieldKey returns the parsed key of the viewed field.
func (v FieldView) FieldKey() FieldKey { return v.key }

// View is a snapshot of everything a rendering surface needs.
type View struct {
	Title       Title       `json:"title" yaml:"title"`
	Mode        string      `json:"mode" yaml:"mode"`
	Counts      Counts      `json:"changes" yaml:"changes"`
	MaxNetworks int         `json:"maxNetworks,omitempty" yaml:"maxNetworks,omitempty"`
	Modules     []string    `json:"modules" yaml:"modules"`
	Fields      []FieldView `json:"fields" yaml:"fields"`
}

// View copies the visible fields and panel state. Fields of modules the
// device has not announced are left out.
func (p *Panel) View() View {
	fields := lo.Filter(p.reg.Fields(), func(f *Field, _ int) bool {
		return p.reg.ModuleVisible(f.Module)
	})
	return View{
		Title:       p.title,
		Mode:        p.mode.String(),
		Counts:      p.tracker.Counts(),
		MaxNetworks: p.maxNetworks,
		Modules:     p.reg.Modules(),
		Fields: lo.Map(fields, func(f *Field, _ int) FieldView {
			return p.fieldView(f)
		}),
	}
}

func (p *Panel) fieldView(f *Field) FieldView {
	label := f.Label
	if f.Group != "" {
		label += " " + strconv.Itoa(f.Index+1)
	}
	return FieldView{
		Key:      f.Key().String(),
		Name:     f.Name,
		Label:    label,
		Group:    f.Group,
		Kind:     f.Kind.String(),
		Value:    f.Value,
		Checked:  f.Checked,
		Options:  f.Options,
		Display:  f.Display,
		Saved:    f.Saved(),
		Dirty:    p.tracker.Dirty(f),
		Action:   string(f.Action),
		Module:   f.Module,
		TabIndex: f.TabIndex,
		key:      f.Key(),
	}
}

// Settings returns the saved fields as name to value, the shape a backup
// file uses. Grouped fields become lists.
func (p *Panel) Settings() map[string]any {
	out := make(map[string]any)
	for _, f := range p.reg.Fields() {
		if !f.Saved() {
			continue
		}
		var value any = f.Value
		if f.Kind == KindCheckbox {
			value = f.Checked
		}
		if f.Group == "" {
			out[f.Name] = value
			continue
		}
		list, _ := out[f.Name].([]any)
		out[f.Name] = append(list, value)
	}
	return out
}
