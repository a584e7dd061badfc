package types

// Kind selects the model catalog and response shape of a generation request.
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
)

// Kinds lists every request kind in a stable order.
var Kinds = []Kind{KindText, KindImage}

func (k Kind) String() string { return string(k) }

// Valid reports whether k is a known request kind.
func (k Kind) Valid() bool {
	switch k {
	case KindText, KindImage:
		return true
	default:
		return false
	}
}

func ParseKind(s string) (Kind, bool) {
	k := Kind(s)
	if !k.Valid() {
		return "", false
	}
	return k, true
}
