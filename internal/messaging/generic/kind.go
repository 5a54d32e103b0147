package generic

//go:generate go tool stringer -type=Kind -trimprefix=Kind -output=kind_string.go

// Kind tags the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindText
	KindBytes
	KindNumber
	KindBool
	KindRecord
	KindList
	KindMap

	kindTotal = int(iota)
)

// Scalar reports whether values of this kind translate to a leaf.
func (k Kind) Scalar() bool {
	switch k {
	case KindText, KindBytes, KindNumber, KindBool:
		return true
	default:
		return false
	}
}
