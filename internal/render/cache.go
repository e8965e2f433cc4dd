package render

import (
	"sync"

	"github.com/charmbracelet/glamour"
)

// A glamour.TermRenderer must not be shared across goroutines, so renders
// borrow one from a pool per distinct Options value. Options is
// comparable and serves as the key directly.
var pools sync.Map // Options -> *sync.Pool

func poolFor(opts Options) *sync.Pool {
	if p, ok := pools.Load(opts); ok {
		return p.(*sync.Pool)
	}
	p, _ := pools.LoadOrStore(opts, &sync.Pool{
		New: func() any {
			r, err := newTermRenderer(opts)
			if err != nil {
				return nil
			}
			return r
		},
	})
	return p.(*sync.Pool)
}

// withRenderer runs fn with a pooled renderer for opts
func withRenderer(opts Options, fn func(*glamour.TermRenderer) (string, error)) (string, error) {
	pool := poolFor(opts)

	r, _ := pool.Get().(*glamour.TermRenderer)
	if r == nil {
		// Pool construction swallowed the error; build again to report it
		var err error
		if r, err = newTermRenderer(opts); err != nil {
			return "", err
		}
	}
	defer pool.Put(r)

	return fn(r)
}

func newTermRenderer(opts Options) (*glamour.TermRenderer, error) {
	ro := []glamour.TermRendererOption{
		glamour.WithStylePath(opts.Style),
		glamour.WithWordWrap(opts.Width),
		glamour.WithTableWrap(opts.TableWrap),
		glamour.WithInlineTableLinks(opts.InlineTableLinks),
	}
	if opts.EnableEmoji {
		ro = append(ro, glamour.WithEmoji())
	}
	if opts.PreserveNewLines {
		ro = append(ro, glamour.WithPreservedNewLines())
	}
	return glamour.NewTermRenderer(ro...)
}

// ClearCache drops all pooled renderers.
func ClearCache() {
	pools.Range(func(k, _ any) bool {
		pools.Delete(k)
		return true
	})
}

// CacheSize returns the number of distinct option sets with a pool.
func CacheSize() int {
	n := 0
	pools.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
