package state

type ActionType int

const (
	ActionUpsert ActionType = iota + 1
	ActionPrepend
	ActionRemove
	ActionPatch
	ActionReplace
)

func (t ActionType) String() string {
	switch t {
	case ActionUpsert:
		return "upsert"
	case ActionPrepend:
		return "prepend"
	case ActionRemove:
		return "remove"
	case ActionPatch:
		return "patch"
	case ActionReplace:
		return "replace"
	default:
		return "unknown"
	}
}

type Action[T any] struct {
	Type  ActionType
	Item  T
	ID    int64
	Items []T
	Patch func(*T)
}

// Upsert replaces the item with the same key in place, or prepends it.
func Upsert[T any](item T) Action[T] {
	return Action[T]{Type: ActionUpsert, Item: item}
}

// Prepend moves item to the front, dropping any older copy.
func Prepend[T any](item T) Action[T] {
	return Action[T]{Type: ActionPrepend, Item: item}
}

func Remove[T any](id int64) Action[T] {
	return Action[T]{Type: ActionRemove, ID: id}
}

// Patch edits the item with the given key in place. Absent items are left alone.
func Patch[T any](id int64, fn func(*T)) Action[T] {
	return Action[T]{Type: ActionPatch, ID: id, Patch: fn}
}

func Replace[T any](items []T) Action[T] {
	return Action[T]{Type: ActionReplace, Items: items}
}

// reduce never mutates items; it returns a new slice when something changed.
func reduce[T any](items []T, key func(T) int64, a Action[T]) ([]T, bool) {
	indexOf := func(id int64) int {
		for i, it := range items {
			if key(it) == id {
				return i
			}
		}
		return -1
	}

	switch a.Type {
	case ActionUpsert:
		out := append([]T(nil), items...)
		if i := indexOf(key(a.Item)); i >= 0 {
			out[i] = a.Item
			return out, true
		}
		return append([]T{a.Item}, out...), true
	case ActionPrepend:
		id := key(a.Item)
		out := make([]T, 0, len(items)+1)
		out = append(out, a.Item)
		for _, it := range items {
			if key(it) != id {
				out = append(out, it)
			}
		}
		return out, true
	case ActionRemove:
		i := indexOf(a.ID)
		if i < 0 {
			return items, false
		}
		out := make([]T, 0, len(items)-1)
		out = append(out, items[:i]...)
		return append(out, items[i+1:]...), true
	case ActionPatch:
		i := indexOf(a.ID)
		if i < 0 || a.Patch == nil {
			return items, false
		}
		out := append([]T(nil), items...)
		a.Patch(&out[i])
		return out, true
	case ActionReplace:
		return append([]T(nil), a.Items...), true
	}
	return items, false
}
