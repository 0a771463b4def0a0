// Package ilist provides an intrusive doubly-linked list. Elements carry
// their own links by embedding Entry, so membership costs no allocation and
// removal is O(1).
package ilist

// Linker is the interface an element implements, usually by embedding Entry.
type Linker interface {
	Next() Linker
	Prev() Linker
	SetNext(Linker)
	SetPrev(Linker)
}

// List is a list of Linkers. The zero value is an empty list. An element may
// be on at most one list at a time; pushing an element that is already linked
// panics.
type List struct {
	head Linker
	tail Linker
}

func (l *List) Empty() bool {
	return l.head == nil
}

func (l *List) Front() Linker {
	return l.head
}

func (l *List) Back() Linker {
	return l.tail
}

func (l *List) PushFront(e Linker) {
	l.checkUnlinked(e)

	e.SetPrev(nil)
	e.SetNext(l.head)

	if l.head != nil {
		l.head.SetPrev(e)
	} else {
		l.tail = e
	}

	l.head = e
}

func (l *List) PushBack(e Linker) {
	l.checkUnlinked(e)

	e.SetNext(nil)
	e.SetPrev(l.tail)

	if l.tail != nil {
		l.tail.SetNext(e)
	} else {
		l.head = e
	}

	l.tail = e
}

// Remove unlinks e. Removing an element that is not on the list is a no-op.
func (l *List) Remove(e Linker) {
	prev := e.Prev()
	next := e.Next()

	if prev != nil {
		prev.SetNext(next)
	} else if l.head == e {
		l.head = next
	}

	if next != nil {
		next.SetPrev(prev)
	} else if l.tail == e {
		l.tail = prev
	}

	e.SetNext(nil)
	e.SetPrev(nil)
}

func (l *List) checkUnlinked(e Linker) {
	if e.Next() != nil || e.Prev() != nil || l.head == e {
		panic("ilist: element is already on a list")
	}
}

// Entry is an embeddable default implementation of Linker.
type Entry struct {
	next Linker
	prev Linker
}

func (e *Entry) Next() Linker {
	return e.next
}

func (e *Entry) Prev() Linker {
	return e.prev
}

func (e *Entry) SetNext(x Linker) {
	e.next = x
}

func (e *Entry) SetPrev(x Linker) {
	e.prev = x
}
