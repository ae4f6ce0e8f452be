package loom

// Must returns v when ok is set. A miss on a referential lookup means the
// store lost an instance its model guarantees, so it panics with a
// *NotFoundError instead of returning an error.
func Must[T any](v T, ok bool, label string, id any) T {
	if !ok {
		panic(NewNotFoundErrorWithID(label, id))
	}
	return v
}

// MustOne returns the only element of vs. It panics with a *NotSingularError
// when vs is empty or holds more than one element.
func MustOne[T any](vs []T, label string) T {
	if len(vs) != 1 {
		panic(NewNotSingularErrorWithCount(label, len(vs)))
	}
	return vs[0]
}

// AtMostOne returns vs when it holds zero or one element and panics with a
// *NotSingularError otherwise.
func AtMostOne[T any](vs []T, label string) []T {
	if len(vs) > 1 {
		panic(NewNotSingularErrorWithCount(label, len(vs)))
	}
	return vs
}
