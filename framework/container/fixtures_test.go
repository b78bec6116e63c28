package container_test

import (
	"errors"
	"sync/atomic"

	"github.com/km-arc/go-inject/framework/container"
)

// ── fixture graph ─────────────────────────────────────────────────────────────
//
//	Service → Repo → DB → Config
//	Service → DB

type Config struct{ DSN string }

type DB struct {
	Config *Config
	ID     int64
}

type Repo struct{ DB *DB }

type Service struct {
	Repo *Repo
	DB   *DB
}

var dbSeq atomic.Int64

func newDB(args container.Args) (any, error) {
	return &DB{Config: container.Arg[*Config](args, 0), ID: dbSeq.Add(1)}, nil
}

func newRepo(args container.Args) (any, error) {
	return &Repo{DB: container.Arg[*DB](args, 0)}, nil
}

func newService(args container.Args) (any, error) {
	return &Service{Repo: container.Arg[*Repo](args, 0), DB: container.Arg[*DB](args, 1)}, nil
}

func serviceGraph(dbScope container.Scope) []container.Binding {
	return []container.Binding{
		container.Bind[*Config](container.Value(&Config{DSN: "mem://"})),
		container.Bind[*DB](container.Construct(newDB, container.Dep[*Config]()), container.InScope(dbScope)),
		container.Bind[*Repo](container.Construct(newRepo, container.Dep[*DB]())),
		container.Bind[*Service](container.Construct(newService, container.Dep[*Repo](), container.Dep[*DB]())),
	}
}

// ── per-request fixtures ──────────────────────────────────────────────────────

type RequestCtx struct{ N int64 }

type Scratch struct{ N int64 }

type Left struct {
	Ctx     *RequestCtx
	Scratch *Scratch
}

type Right struct {
	Ctx     *RequestCtx
	Scratch *Scratch
}

type Pair struct {
	Left  *Left
	Right *Right
}

func pairGraph() []container.Binding {
	var ctxSeq, scratchSeq atomic.Int64
	return []container.Binding{
		container.Bind[*RequestCtx](container.Factory(func() (any, error) {
			return &RequestCtx{N: ctxSeq.Add(1)}, nil
		}), container.InScope(container.PerRequest)),
		container.Bind[*Scratch](container.Factory(func() (any, error) {
			return &Scratch{N: scratchSeq.Add(1)}, nil
		})),
		container.Bind[*Left](container.Construct(func(args container.Args) (any, error) {
			return &Left{Ctx: container.Arg[*RequestCtx](args, 0), Scratch: container.Arg[*Scratch](args, 1)}, nil
		}, container.Dep[*RequestCtx](), container.Dep[*Scratch]())),
		container.Bind[*Right](container.Construct(func(args container.Args) (any, error) {
			return &Right{Ctx: container.Arg[*RequestCtx](args, 0), Scratch: container.Arg[*Scratch](args, 1)}, nil
		}, container.Dep[*RequestCtx](), container.Dep[*Scratch]())),
		container.Bind[*Pair](container.Construct(func(args container.Args) (any, error) {
			return &Pair{Left: container.Arg[*Left](args, 0), Right: container.Arg[*Right](args, 1)}, nil
		}, container.Dep[*Left](), container.Dep[*Right]())),
	}
}

// ── qualified fixtures ────────────────────────────────────────────────────────

type Greeter interface{ Greet() string }

type english struct{}

func (english) Greet() string { return "hello" }

type french struct{}

func (french) Greet() string { return "bonjour" }

func greeter(g Greeter) container.Provider {
	return container.Factory(func() (any, error) { return g, nil })
}

// ── cyclic fixtures ───────────────────────────────────────────────────────────

type A struct{ B *B }

type B struct{ A *A }

type Missing struct{}

var errBoom = errors.New("boom")

// counter returns a factory for *Scratch counting its invocations.
func counter(n *atomic.Int64) container.Provider {
	return container.Factory(func() (any, error) {
		return &Scratch{N: n.Add(1)}, nil
	})
}
