package compose

import "go.uber.org/zap"

// Column lays out its content vertically. Like every container it is a
// recomposition scope: a state read directly inside content dirties only
// this column.
func Column(style Style, content func()) ScopeID {
	return container(KindColumn, style, content)
}

func Row(style Style, content func()) ScopeID {
	return container(KindRow, style, content)
}

func Box(style Style, content func()) ScopeID {
	return container(KindBox, style, content)
}

func Surface(style Style, content func()) ScopeID {
	return container(KindSurface, style, content)
}

// Scope is an explicit recomposition boundary with no layout of its own.
func Scope(content func()) ScopeID {
	return container(KindScope, Style{}, content)
}

// container emits a host node, registers a fresh scope rooted at it under
// the current scope and composes content inside it.
func container(kind NodeKind, style Style, content func()) ScopeID {
	rt := Current()
	r := rt.mustCompose()

	host := rt.SpawnChild(Bundle{Node{Kind: kind, Style: style}})
	parent, hasParent := rt.CurrentScope()
	id := NewScopeID()
	rt.registry.Register(id, content, parent, hasParent)
	rt.registry.SetRootEntity(id, host)
	r.Attach(host, ScopeMarker{Scope: id})

	if content == nil {
		return id
	}
	rt.PushParent(host)
	rt.EnterScope(id)
	rt.invoke(content)
	rt.ExitScope()
	rt.PopParent()
	return id
}

// Text emits a label. It is not a scope; a state read for s dirties the
// enclosing container.
func Text(s string, style TextStyle) EntityID {
	rt := Current()
	var e EntityID
	rt.invoke(func() {
		e = rt.SpawnChild(Bundle{Label{Text: s, Style: style}})
	})
	return e
}

// Button emits a clickable node holding a label. onClick runs from
// Runtime.Dispatch; it should read state with GetUntracked.
func Button(label string, style Style, onClick func()) EntityID {
	rt := Current()
	var e EntityID
	rt.invoke(func() {
		e = rt.SpawnChild(Bundle{
			Node{Kind: KindButton, Style: style},
			Clickable{OnClick: onClick},
		})
		rt.PushParent(e)
		rt.SpawnChild(Bundle{Label{Text: label, Style: Body}})
		rt.PopParent()
	})
	return e
}

// Spacer takes up the remaining space along its parent's axis.
func Spacer() EntityID {
	return Current().SpawnChild(Bundle{Node{Kind: KindSpacer}})
}

func FixedSpacer(size float32) EntityID {
	return Current().SpawnChild(Bundle{Node{Kind: KindSpacer, Size: size}})
}

// OnCleanup registers fn to run when the enclosing scope is rebuilt or
// dropped, whichever comes first. Cleanups run newest first.
func OnCleanup(fn func()) {
	rt := Current()
	s, ok := rt.CurrentScope()
	if !ok || !rt.registry.AddCleanup(s, fn) {
		rt.log.Warn("cleanup outside a registered scope ignored", zap.Stringer("scope", s))
	}
}
