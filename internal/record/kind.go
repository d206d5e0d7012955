package record

// Kind is the semantic kind of a record field.
type Kind int

const (
	KindInvalid Kind = iota
	KindText
	KindTimestamp
	KindInteger
	KindBool
	KindFloat
	KindBytes
)

var kindNames = map[Kind]string{
	KindInvalid:   "invalid",
	KindText:      "text",
	KindTimestamp: "timestamp",
	KindInteger:   "integer",
	KindBool:      "bool",
	KindFloat:     "float",
	KindBytes:     "bytes",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Supported reports whether the codec can map fields of this kind.
func (k Kind) Supported() bool {
	return k == KindText || k == KindTimestamp
}
