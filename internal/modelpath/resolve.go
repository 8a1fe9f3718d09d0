package modelpath

import (
	"errors"
	"fmt"
)

// ErrPathResolution matches every *PathResolutionError.
var ErrPathResolution = errors.New("modelpath: path resolution failed")

// FieldAccessor is implemented by model nodes that have named children.
type FieldAccessor interface {
	Field(name string) (any, bool)
}

// IndexAccessor is implemented by model nodes that hold an indexable list of
// children.
type IndexAccessor interface {
	Index(i int) (any, bool)
}

// PathResolutionError reports the first segment that could not be resolved.
type PathResolutionError struct {
	Path   Path
	Pos    int
	Reason string
}

func (e *PathResolutionError) Error() string {
	seg := ""
	if e.Pos >= 0 && e.Pos < len(e.Path) {
		seg = e.Path[e.Pos].String()
	}
	return fmt.Sprintf("resolve %s: segment %d (%s): %s", e.Path, e.Pos, seg, e.Reason)
}

func (e *PathResolutionError) Is(target error) bool {
	return target == ErrPathResolution
}

// Resolve walks p from root. Each field segment requires the current node to
// implement FieldAccessor and each index segment IndexAccessor.
func Resolve(root any, p Path) (any, error) {
	if root == nil {
		return nil, &PathResolutionError{Path: p, Pos: 0, Reason: "nil root"}
	}
	cur := root
	for i, seg := range p {
		var (
			next any
			ok   bool
		)
		if seg.IsIndex {
			ia, can := cur.(IndexAccessor)
			if !can {
				return nil, &PathResolutionError{Path: p, Pos: i, Reason: fmt.Sprintf("%T is not indexable", cur)}
			}
			next, ok = ia.Index(seg.Index)
		} else {
			fa, can := cur.(FieldAccessor)
			if !can {
				return nil, &PathResolutionError{Path: p, Pos: i, Reason: fmt.Sprintf("%T has no fields", cur)}
			}
			next, ok = fa.Field(seg.Name)
		}
		if !ok || next == nil {
			return nil, &PathResolutionError{Path: p, Pos: i, Reason: "not found"}
		}
		cur = next
	}
	return cur, nil
}

// ResolveString parses s and resolves it from root.
func ResolveString(root any, s string) (any, error) {
	p, err := Parse(s)
	if err != nil {
		return nil, err
	}
	return Resolve(root, p)
}
