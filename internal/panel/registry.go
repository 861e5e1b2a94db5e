package panel

import (
	"fmt"
	"slices"

	"github.com/samber/lo"
)

// GroupSpec describes a repeatable block of fields such as one relay
// switch or one wifi network row.
type GroupSpec struct {
	Name   string
	Label  string
	Module string

	// Variants maps a variant name to the instance template. The empty
	// variant is used by MaterializeGroup.
	Variants map[string][]FieldSpec

	// TabBase and TabStride assign traversal order to instances. Instance
	// n starts at TabBase + n*TabStride and each input of the instance
	// takes the next position. A zero base leaves instances unordered.
	TabBase   int
	TabStride int
}

// Group is the live state of a group: the variant chosen on first
// materialization and its instances in display order.
type Group struct {
	Spec      GroupSpec
	Variant   string
	Instances [][]*Field
}

// Len returns the number of instances.
func (g *Group) Len() int { return len(g.Instances) }

// Layout is the complete field catalog the registry starts from.
type Layout struct {
	Fields []FieldSpec
	Groups []GroupSpec
}

// Registry owns every field of the panel. All writes go through it so a
// single observer sees them.
type Registry struct {
	static  []*Field
	groups  map[string]*Group
	order   []string
	modules map[string]bool

	observer func(*Field)
}

// NewRegistry creates the standalone fields of the layout and registers
// its groups without instances.
func NewRegistry(layout Layout) *Registry {
	r := &Registry{
		groups:  make(map[string]*Group, len(layout.Groups)),
		modules: make(map[string]bool),
	}
	for _, spec := range layout.Fields {
		r.static = append(r.static, newField(spec, "", -1))
	}
	for _, gs := range layout.Groups {
		r.groups[gs.Name] = &Group{Spec: gs}
		r.order = append(r.order, gs.Name)
	}
	return r
}

// Observe installs the write hook. Only one observer is kept.
func (r *Registry) Observe(fn func(*Field)) {
	r.observer = fn
}

// Fields returns every field, standalone fields first, then each group's
// instances in layout order.
func (r *Registry) Fields() []*Field {
	out := append([]*Field(nil), r.static...)
	for _, name := range r.order {
		out = append(out, lo.Flatten(r.groups[name].Instances)...)
	}
	return out
}

// Resolve returns every field carrying name, in Fields order.
func (r *Registry) Resolve(name string) []*Field {
	return lo.Filter(r.Fields(), func(f *Field, _ int) bool { return f.Name == name })
}

// Lookup returns the first input (non-display) field with the given name
// and data index, or nil.
func (r *Registry) Lookup(name string, index int) *Field {
	f, _ := lo.Find(r.LookupAll(name, index), func(f *Field) bool { return !f.Display })
	return f
}

// LookupAll returns every field with the given name and data index.
func (r *Registry) LookupAll(name string, index int) []*Field {
	return lo.Filter(r.Fields(), func(f *Field, _ int) bool {
		return f.Name == name && f.Index == index
	})
}

// LookupKey finds a field by its full key, preferring inputs over display
// fields sharing the key.
func (r *Registry) LookupKey(key FieldKey) *Field {
	var display *Field
	for _, f := range r.Fields() {
		if f.Key() != key {
			continue
		}
		if !f.Display {
			return f
		}
		if display == nil {
			display = f
		}
	}
	return display
}

// Group returns the named group or nil.
func (r *Registry) Group(name string) *Group {
	return r.groups[name]
}

// Write sets the text value of a field and notifies the observer.
func (r *Registry) Write(f *Field, value string) {
	f.Value = value
	r.notify(f)
}

// Check sets the checked state of a checkbox and notifies the observer.
func (r *Registry) Check(f *Field, checked bool) {
	f.Checked = checked
	r.notify(f)
}

func (r *Registry) notify(f *Field) {
	if r.observer != nil {
		r.observer(f)
	}
}

// MaterializeGroup creates capacity instances of the group's default
// variant with data indexes starting at zero. It does nothing when the
// group already has instances and reports whether instances were created.
func (r *Registry) MaterializeGroup(name string, capacity int) bool {
	return r.MaterializeVariant(name, "", capacity, 0)
}

// MaterializeVariant is MaterializeGroup with an explicit template variant
// and first data index.
func (r *Registry) MaterializeVariant(name, variant string, capacity, first int) bool {
	g, ok := r.groups[name]
	if !ok || g.Len() > 0 || capacity <= 0 {
		return false
	}
	if _, ok := g.Spec.Variants[variant]; !ok {
		return false
	}
	g.Variant = variant
	for i := 0; i < capacity; i++ {
		g.Instances = append(g.Instances, r.instantiate(g, i, first+i))
	}
	if g.Spec.Module != "" {
		r.modules[g.Spec.Module] = true
	}
	return true
}

// AppendInstance adds one instance to the end of a group, as when the
// operator adds a network row. The new fields carry no snapshot.
func (r *Registry) AppendInstance(name string) ([]*Field, error) {
	g, ok := r.groups[name]
	if !ok {
		return nil, fmt.Errorf("unknown group %q", name)
	}
	if _, ok := g.Spec.Variants[g.Variant]; !ok {
		return nil, fmt.Errorf("group %q has no template", name)
	}
	pos := g.Len()
	inst := r.instantiate(g, pos, pos)
	g.Instances = append(g.Instances, inst)
	return inst, nil
}

// RemoveInstance deletes the instance at position and renumbers the rest.
// It returns the removed fields.
func (r *Registry) RemoveInstance(name string, position int) ([]*Field, error) {
	g, ok := r.groups[name]
	if !ok {
		return nil, fmt.Errorf("unknown group %q", name)
	}
	if position < 0 || position >= g.Len() {
		return nil, fmt.Errorf("group %q has no instance %d", name, position)
	}
	removed := g.Instances[position]
	g.Instances = append(g.Instances[:position], g.Instances[position+1:]...)
	for pos := position; pos < g.Len(); pos++ {
		tab := tabStart(g.Spec, pos)
		for _, f := range g.Instances[pos] {
			f.Index = pos
			if tab > 0 && !f.Display {
				f.TabIndex = tab
				tab++
			}
		}
	}
	return removed, nil
}

func (r *Registry) instantiate(g *Group, position, index int) []*Field {
	tab := tabStart(g.Spec, position)
	tmpl := g.Spec.Variants[g.Variant]
	inst := make([]*Field, 0, len(tmpl))
	for _, spec := range tmpl {
		f := newField(spec, g.Spec.Name, index)
		if f.Module == "" {
			f.Module = g.Spec.Module
		}
		if tab > 0 && !f.Display {
			f.TabIndex = tab
			tab++
		}
		inst = append(inst, f)
	}
	return inst
}

func tabStart(gs GroupSpec, position int) int {
	if gs.TabBase == 0 {
		return 0
	}
	return gs.TabBase + position*gs.TabStride
}

// ShowModule makes a module section visible.
func (r *Registry) ShowModule(name string) {
	r.modules[name] = true
}

// ModuleVisible reports whether fields of the module should be shown.
// Fields without a module are always visible.
func (r *Registry) ModuleVisible(name string) bool {
	return name == "" || r.modules[name]
}

// Modules returns the visible modules in sorted order.
func (r *Registry) Modules() []string {
	out := lo.Keys(lo.PickBy(r.modules, func(_ string, shown bool) bool { return shown }))
	slices.Sort(out)
	return out
}
