package compose

import "strconv"

// EntityID is a renderer entity. Zero is never a live entity.
type EntityID uint64

func (e EntityID) IsZero() bool { return e == 0 }

func (e EntityID) String() string {
	return "entity(" + strconv.FormatUint(uint64(e)&0xffffffff, 10) + ":" +
		strconv.FormatUint(uint64(e)>>32, 10) + ")"
}

// Component is any value attached to an entity. Renderers key components by
// their dynamic type, so an entity holds at most one component per type.
type Component = any

// Bundle is the set of components an entity is spawned with.
type Bundle []Component

// Renderer is the entity tree the runtime emits into. All methods are called
// from the goroutine driving the runtime. Failures are not recoverable by the
// runtime and implementations panic on them.
type Renderer interface {
	Spawn(bundle Bundle) EntityID
	SetParent(parent, child EntityID)
	// Despawn removes e and its whole subtree.
	Despawn(e EntityID)
	// DespawnChildren removes every descendant of e and keeps e.
	DespawnChildren(e EntityID)
	Attach(e EntityID, c Component)
	// Detach removes the component with the same dynamic type as c.
	Detach(e EntityID, c Component)
	// Get returns the component with the same dynamic type as kind.
	Get(e EntityID, kind Component) (Component, bool)
	Alive(e EntityID) bool
	Parent(e EntityID) (EntityID, bool)
	Children(e EntityID) []EntityID
	// Query returns live entities carrying a component of marker's type.
	Query(marker Component) []EntityID
}

// WindowConfigurer is implemented by renderers that own a window.
type WindowConfigurer interface {
	ConfigureWindow(title string, width, height uint32, resizable bool)
}

// CompositionRoot marks entities spawned with no parent. Full recomposition
// despawns every entity carrying it.
type CompositionRoot struct{}

// ScopeMarker tags the host entity of a registered scope.
type ScopeMarker struct {
	Scope ScopeID
}

type NodeKind uint8

const (
	KindColumn NodeKind = iota
	KindRow
	KindBox
	KindSurface
	KindScope
	KindButton
	KindSpacer
)

var nodeKindNames = [...]string{
	KindColumn:  "column",
	KindRow:     "row",
	KindBox:     "box",
	KindSurface: "surface",
	KindScope:   "scope",
	KindButton:  "button",
	KindSpacer:  "spacer",
}

func (k NodeKind) String() string {
	if int(k) < len(nodeKindNames) {
		return nodeKindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Style carries appearance settings by value. Interpreting them is the
// renderer's job.
type Style struct {
	Padding     float32
	Gap         float32
	Width       float32
	Height      float32
	FillMaxSize bool
	Background  string
}

type TextStyle struct {
	FontSize float32
	Color    string
}

// Body is the default text style.
var Body = TextStyle{FontSize: 16, Color: "#e6e6e6"}

// Title is a larger text style.
var Title = TextStyle{FontSize: 28, Color: "#ffffff"}

// Node is the layout component of containers, buttons and spacers.
type Node struct {
	Kind  NodeKind
	Style Style
	// Size is the extent of a fixed spacer; zero means flexible.
	Size float32
}

// Label is the text component.
type Label struct {
	Text  string
	Style TextStyle
}

// Clickable attaches a click handler to an entity.
type Clickable struct {
	OnClick func()
}
