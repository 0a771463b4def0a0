// Package swtch implements the context-switch primitive: the handoff of a
// core's single flow of control between saved execution contexts. A Context
// stands for one suspended flow — a parked goroutine — and holds at most one
// pending resume permit.
package swtch

import "errors"

var (
	// ErrDoubleResume means a context was named as a resume target while it
	// already had a pending resume. The saved state would be entered from two
	// places, which can never be valid on one core.
	ErrDoubleResume = errors.New("swtch: context already has a pending resume")

	// ErrSelfSwitch means a flow asked to suspend into the context it is
	// resuming.
	ErrSelfSwitch = errors.New("swtch: cannot switch a context into itself")
)

// Context is one resumable execution state. Allocate with New; an idle
// Context carries no permit.
type Context struct {
	permit chan struct{}
}

func New() *Context {
	return &Context{permit: make(chan struct{}, 1)}
}

// Enter parks the calling flow on c until another flow switches into it. It
// is the first statement a freshly created flow runs: from then on the
// goroutine is the suspended state c stands for. The permit may already be
// banked, in which case Enter returns immediately.
func (c *Context) Enter() {
	<-c.permit
}

func (c *Context) resume() {
	select {
	case c.permit <- struct{}{}:
	default:
		panic(ErrDoubleResume)
	}
}

// Switch saves the calling flow into save and resumes the flow parked on
// resume. It returns only when a later Switch or Handoff names save as its
// resume target; that can be arbitrarily far in the future, and nothing may
// be assumed about what ran in between. No exclusive-access cell may be held
// across this call — the code that would release it is suspended with the
// caller.
func Switch(save, resume *Context) {
	if save == resume {
		panic(ErrSelfSwitch)
	}

	resume.resume()
	<-save.permit
}

// Handoff resumes the flow parked on resume and abandons the calling flow:
// the caller's state is not saved anywhere and can never be resumed. It is
// the terminal switch an exiting flow makes.
func Handoff(resume *Context) {
	resume.resume()
}
