package loader

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// Env is the kernel surface a task body runs against. Bodies reach the
// kernel only through it, the way user code reaches a real kernel only
// through ecall.
type Env interface {
	// Syscall traps into the kernel with up to three arguments and
	// returns the raw status: non-negative on success, a negated errno
	// on failure.
	Syscall(id uint64, args [3]uint64) int64
}

// Body is the executable part of an app. The image describes the address
// space; the body is what runs in it.
type Body func(Env)

// App is one registered user program: its image blob plus the body that
// animates it.
type App struct {
	Name string
	Blob []byte
	Body Body
}

// Registry is the set of apps the kernel can spawn by name, the stand-in
// for user binaries linked into the kernel image.
type Registry struct {
	mu   sync.Mutex
	apps map[string]App
}

func NewRegistry() *Registry {
	return &Registry{
		apps: make(map[string]App),
	}
}

var ErrAppExists = errors.New("app name already registered")

func (r *Registry) Register(app App) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.apps[app.Name]; ok {
		return errors.Wrap(ErrAppExists, app.Name)
	}

	r.apps[app.Name] = app

	return nil
}

func (r *Registry) Lookup(name string) (App, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	app, ok := r.apps[name]

	return app, ok
}

// Names lists the registered apps in name order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.apps))
	for name := range r.apps {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
