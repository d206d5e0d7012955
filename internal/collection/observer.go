package collection

// ChangeKind classifies a structural change.
type ChangeKind int

const (
	ChangeInserted ChangeKind = iota + 1
	ChangeRemoved
	ChangeMoved
	ChangeItemChanged
	ChangeReset
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeInserted:
		return "inserted"
	case ChangeRemoved:
		return "removed"
	case ChangeMoved:
		return "moved"
	case ChangeItemChanged:
		return "item_changed"
	case ChangeReset:
		return "reset"
	default:
		return "unknown"
	}
}

// ChangeEvent describes a settled structural change. Count items starting
// at Position were affected; for ChangeMoved, To is their new position.
type ChangeEvent struct {
	Kind     ChangeKind
	Position int
	Count    int
	To       int
}

// Observer receives change events synchronously, after the store work of the
// mutation has settled and before the mutating call returns.
type Observer interface {
	CollectionChanged(ChangeEvent)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ChangeEvent)

func (f ObserverFunc) CollectionChanged(e ChangeEvent) { f(e) }
