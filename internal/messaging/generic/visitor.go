package generic

// Visitor has one arm per variant. Implementations decide how each kind maps
// into their own output type.
type Visitor[T any] interface {
	VisitNull() T
	VisitText(Text) T
	VisitBytes(Bytes) T
	VisitNumber(Number) T
	VisitBool(Bool) T
	VisitRecord(*Record) T
	VisitList(List) T
	VisitMap(Map) T
}

// Visit dispatches v to the matching arm of vis. A nil value or nil record is
// visited as Null.
func Visit[T any](v Value, vis Visitor[T]) T {
	switch x := v.(type) {
	case Text:
		return vis.VisitText(x)
	case Bytes:
		return vis.VisitBytes(x)
	case Number:
		return vis.VisitNumber(x)
	case Bool:
		return vis.VisitBool(x)
	case *Record:
		if x == nil {
			return vis.VisitNull()
		}
		return vis.VisitRecord(x)
	case List:
		return vis.VisitList(x)
	case Map:
		return vis.VisitMap(x)
	default:
		return vis.VisitNull()
	}
}
