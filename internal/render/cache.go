package render

import (
	"sync"

	"github.com/charmbracelet/glamour"
)

// renderers hands out glamour renderers per option set. A TermRenderer must
// not Render concurrently, so every borrow gets its own until released.
type renderers struct {
	mu    sync.Mutex
	pools map[Options]*sync.Pool
}

var shared = newRenderers()

func newRenderers() *renderers {
	return &renderers{pools: make(map[Options]*sync.Pool)}
}

func (r *renderers) pool(opts Options) *sync.Pool {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.pools[opts]
	if !ok {
		p = &sync.Pool{}
		r.pools[opts] = p
	}
	return p
}

// borrow returns a renderer for opts and the func that hands it back
func (r *renderers) borrow(opts Options) (*glamour.TermRenderer, func(), error) {
	p := r.pool(opts)
	tr, _ := p.Get().(*glamour.TermRenderer)
	if tr == nil {
		var err error
		if tr, err = newTermRenderer(opts); err != nil {
			return nil, func() {}, err
		}
	}
	return tr, func() { p.Put(tr) }, nil
}

func (r *renderers) reset() {
	r.mu.Lock()
	r.pools = make(map[Options]*sync.Pool)
	r.mu.Unlock()
}

func (r *renderers) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pools)
}

func newTermRenderer(opts Options) (*glamour.TermRenderer, error) {
	ropts := []glamour.TermRendererOption{
		glamour.WithStylePath(opts.Style),
		glamour.WithWordWrap(opts.Width),
		glamour.WithTableWrap(opts.TableWrap),
		glamour.WithInlineTableLinks(opts.InlineTableLinks),
	}
	if opts.EnableEmoji {
		ropts = append(ropts, glamour.WithEmoji())
	}
	if opts.PreserveNewLines {
		ropts = append(ropts, glamour.WithPreservedNewLines())
	}
	return glamour.NewTermRenderer(ropts...)
}
