package compose

// If composes then when cond holds. The branch is not a scope: whatever it
// reads or emits belongs to the enclosing container.
func If(cond bool, then func()) {
	if !cond || then == nil {
		return
	}
	Current().invoke(then)
}

func IfElse(cond bool, then, otherwise func()) {
	rt := Current()
	if cond {
		if then != nil {
			rt.invoke(then)
		}
		return
	}
	if otherwise != nil {
		rt.invoke(otherwise)
	}
}

// ForEach composes fn once per item, in order.
func ForEach[T any](items []T, fn func(item T)) {
	rt := Current()
	for _, item := range items {
		rt.invoke(func() { fn(item) })
	}
}

// ForEachIndexed is ForEach with the item's position.
func ForEachIndexed[T any](items []T, fn func(i int, item T)) {
	rt := Current()
	for i, item := range items {
		rt.invoke(func() { fn(i, item) })
	}
}
