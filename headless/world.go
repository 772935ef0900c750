// Package headless is an in-memory entity world that implements
// compose.Renderer. It is used by tests, benchmarks and the command line
// demo, and doubles as a reference for writing real renderers.
package headless

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/delaneyj/recompose/compose"
)

// Window is the configuration last handed to ConfigureWindow.
type Window struct {
	Title     string
	Width     uint32
	Height    uint32
	Resizable bool
}

type entity struct {
	parent     compose.EntityID
	hasParent  bool
	children   []compose.EntityID
	components map[reflect.Type]compose.Component
}

// World owns entities addressed by generational ids. Index 0 is reserved so
// that the zero EntityID is never live.
type World struct {
	generations []uint32
	freeList    []uint32
	nextIndex   uint32

	entities map[compose.EntityID]*entity
	roots    []compose.EntityID

	window    Window
	spawned   uint64
	despawned uint64
}

func New() *World {
	return &World{
		generations: make([]uint32, 1, 1024),
		freeList:    make([]uint32, 0, 256),
		nextIndex:   1,
		entities:    make(map[compose.EntityID]*entity),
	}
}

func newEntityID(index, generation uint32) compose.EntityID {
	return compose.EntityID(uint64(generation)<<32 | uint64(index))
}

func index(id compose.EntityID) uint32      { return uint32(id) }
func generation(id compose.EntityID) uint32 { return uint32(id >> 32) }

func (w *World) allocate() compose.EntityID {
	if n := len(w.freeList); n > 0 {
		idx := w.freeList[n-1]
		w.freeList = w.freeList[:n-1]
		return newEntityID(idx, w.generations[idx])
	}
	idx := w.nextIndex
	w.nextIndex++
	if int(idx) >= len(w.generations) {
		w.generations = append(w.generations, 1)
	}
	return newEntityID(idx, w.generations[idx])
}

func (w *World) free(id compose.EntityID) {
	idx := index(id)
	w.generations[idx]++
	if w.generations[idx] == 0 {
		w.generations[idx] = 1
	}
	w.freeList = append(w.freeList, idx)
}

func (w *World) Spawn(bundle compose.Bundle) compose.EntityID {
	id := w.allocate()
	ent := &entity{components: make(map[reflect.Type]compose.Component, len(bundle))}
	for _, c := range bundle {
		if c == nil {
			continue
		}
		ent.components[reflect.TypeOf(c)] = c
	}
	w.entities[id] = ent
	w.roots = append(w.roots, id)
	w.spawned++
	return id
}

func (w *World) mustGet(id compose.EntityID) *entity {
	ent, ok := w.entities[id]
	if !ok {
		panic(fmt.Sprintf("headless: %s is not alive", id))
	}
	return ent
}

// SetParent moves child under parent, appending it to parent's children.
func (w *World) SetParent(parent, child compose.EntityID) {
	p := w.mustGet(parent)
	c := w.mustGet(child)
	if parent == child {
		panic(fmt.Sprintf("headless: %s cannot parent itself", child))
	}
	w.detachFromParent(child, c)
	c.parent = parent
	c.hasParent = true
	p.children = append(p.children, child)
}

func (w *World) detachFromParent(id compose.EntityID, ent *entity) {
	if !ent.hasParent {
		w.roots = removeID(w.roots, id)
		return
	}
	if p, ok := w.entities[ent.parent]; ok {
		p.children = removeID(p.children, id)
	}
	ent.hasParent = false
	ent.parent = 0
}

func removeID(ids []compose.EntityID, id compose.EntityID) []compose.EntityID {
	for i, cur := range ids {
		if cur == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

// Despawn removes id and its subtree. Stale ids are ignored.
func (w *World) Despawn(id compose.EntityID) {
	ent, ok := w.entities[id]
	if !ok {
		return
	}
	w.detachFromParent(id, ent)
	w.destroy(id, ent)
}

func (w *World) destroy(id compose.EntityID, ent *entity) {
	for _, child := range ent.children {
		if c, ok := w.entities[child]; ok {
			w.destroy(child, c)
		}
	}
	delete(w.entities, id)
	w.free(id)
	w.despawned++
}

func (w *World) DespawnChildren(id compose.EntityID) {
	ent, ok := w.entities[id]
	if !ok {
		return
	}
	children := ent.children
	ent.children = nil
	for _, child := range children {
		if c, ok := w.entities[child]; ok {
			w.destroy(child, c)
		}
	}
}

func (w *World) Attach(id compose.EntityID, c compose.Component) {
	w.mustGet(id).components[reflect.TypeOf(c)] = c
}

func (w *World) Detach(id compose.EntityID, c compose.Component) {
	if ent, ok := w.entities[id]; ok {
		delete(ent.components, reflect.TypeOf(c))
	}
}

func (w *World) Get(id compose.EntityID, kind compose.Component) (compose.Component, bool) {
	ent, ok := w.entities[id]
	if !ok {
		return nil, false
	}
	c, ok := ent.components[reflect.TypeOf(kind)]
	return c, ok
}

func (w *World) Alive(id compose.EntityID) bool {
	idx := index(id)
	if idx == 0 || idx >= w.nextIndex {
		return false
	}
	if w.generations[idx] != generation(id) {
		return false
	}
	_, ok := w.entities[id]
	return ok
}

func (w *World) Parent(id compose.EntityID) (compose.EntityID, bool) {
	ent, ok := w.entities[id]
	if !ok || !ent.hasParent {
		return 0, false
	}
	return ent.parent, true
}

func (w *World) Children(id compose.EntityID) []compose.EntityID {
	ent, ok := w.entities[id]
	if !ok {
		return nil
	}
	return append([]compose.EntityID(nil), ent.children...)
}

// Query returns the live entities carrying marker's type in ascending id
// order.
func (w *World) Query(marker compose.Component) []compose.EntityID {
	t := reflect.TypeOf(marker)
	var ids []compose.EntityID
	for id, ent := range w.entities {
		if _, ok := ent.components[t]; ok {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (w *World) ConfigureWindow(title string, width, height uint32, resizable bool) {
	w.window = Window{Title: title, Width: width, Height: height, Resizable: resizable}
}

func (w *World) Window() Window { return w.window }

// Len returns the number of live entities.
func (w *World) Len() int { return len(w.entities) }

// Roots returns the parentless entities in spawn order.
func (w *World) Roots() []compose.EntityID {
	return append([]compose.EntityID(nil), w.roots...)
}

// Churn returns how many entities were spawned and despawned since New.
func (w *World) Churn() (spawned, despawned uint64) {
	return w.spawned, w.despawned
}

// Text returns the label text of id, if it has one.
func (w *World) Text(id compose.EntityID) (string, bool) {
	c, ok := w.Get(id, compose.Label{})
	if !ok {
		return "", false
	}
	return c.(compose.Label).Text, true
}

// FindText returns the first entity, in tree order, whose label equals text.
func (w *World) FindText(text string) (compose.EntityID, bool) {
	var found compose.EntityID
	w.walk(func(id compose.EntityID) bool {
		if s, ok := w.Text(id); ok && s == text {
			found = id
			return false
		}
		return true
	})
	return found, found != 0
}

// FindButton returns the first clickable entity whose label child reads
// label.
func (w *World) FindButton(label string) (compose.EntityID, bool) {
	var found compose.EntityID
	w.walk(func(id compose.EntityID) bool {
		if _, ok := w.Get(id, compose.Clickable{}); !ok {
			return true
		}
		for _, child := range w.entities[id].children {
			if s, ok := w.Text(child); ok && s == label {
				found = id
				return false
			}
		}
		return true
	})
	return found, found != 0
}

// Texts returns every label in tree order.
func (w *World) Texts() []string {
	var texts []string
	w.walk(func(id compose.EntityID) bool {
		if s, ok := w.Text(id); ok {
			texts = append(texts, s)
		}
		return true
	})
	return texts
}

// walk visits entities depth first from the roots until visit returns false.
func (w *World) walk(visit func(compose.EntityID) bool) {
	var rec func(id compose.EntityID) bool
	rec = func(id compose.EntityID) bool {
		if !visit(id) {
			return false
		}
		for _, child := range w.entities[id].children {
			if !rec(child) {
				return false
			}
		}
		return true
	}
	for _, root := range w.roots {
		if !rec(root) {
			return
		}
	}
}

func typeOf(c compose.Component) reflect.Type { return reflect.TypeOf(c) }

func hasComponent(ent *entity, kind compose.Component) bool {
	_, ok := ent.components[reflect.TypeOf(kind)]
	return ok
}
