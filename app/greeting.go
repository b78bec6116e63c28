package app

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	kernel "github.com/km-arc/go-inject/framework/app"
	"github.com/km-arc/go-inject/framework/container"
	"github.com/km-arc/go-inject/framework/validation"
	"github.com/km-arc/go-inject/routing"
)

// GreetPrefix is where GreetingServiceProvider mounts its routes.
const GreetPrefix = "/greet"

// ── Greeters ──────────────────────────────────────────────────────────────────

// Greeter greets in one language.
type Greeter interface {
	Lang() string
	Greet(name string) string
}

type english struct{}

func (english) Lang() string             { return "en" }
func (english) Greet(name string) string { return "Hello, " + name + "!" }

type french struct{}

func (french) Lang() string             { return "fr" }
func (french) Greet(name string) string { return "Bonjour, " + name + " !" }

// ── GreetingService ───────────────────────────────────────────────────────────

// GreetingService picks a Greeter by language, falling back to the default.
type GreetingService struct {
	greeters map[string]Greeter
	fallback Greeter
	log      *zap.Logger
}

// NewGreetingService indexes greeters by language.
func NewGreetingService(fallback Greeter, greeters []Greeter, log *zap.Logger) *GreetingService {
	s := &GreetingService{greeters: make(map[string]Greeter, len(greeters)), fallback: fallback, log: log}
	for _, g := range greeters {
		s.greeters[g.Lang()] = g
	}
	return s
}

// Languages returns the supported languages, sorted.
func (s *GreetingService) Languages() []string {
	out := make([]string, 0, len(s.greeters))
	for lang := range s.greeters {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}

// Greet greets name in lang. An empty lang uses the fallback greeter.
func (s *GreetingService) Greet(lang, name string) (string, error) {
	if lang == "" {
		return s.fallback.Greet(name), nil
	}
	g, ok := s.greeters[lang]
	if !ok {
		return "", fmt.Errorf("greeting: unsupported language %q", lang)
	}
	return g.Greet(name), nil
}

// ── Visit ─────────────────────────────────────────────────────────────────────

// Visit identifies one HTTP request; everything resolved for that request
// shares it.
type Visit struct {
	ID      string
	Started time.Time
}

// ── GreetingHandler ───────────────────────────────────────────────────────────

// GreetingHandler serves GET /greet/{lang}?name=... . A fresh handler is
// resolved for every request.
type GreetingHandler struct {
	kernel.Controller
	service *GreetingService
	visit   *Visit
}

func (h *GreetingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req, res := h.Request(r), h.Response(w)

	lang, name := req.RouteParam("lang"), req.Query("name", "world")
	v := validation.Make(map[string]string{"lang": lang, "name": name}, validation.Rules{
		"lang": "required|in:" + strings.Join(h.service.Languages(), ","),
		"name": "required|alpha_dash|max:32",
	})
	if v.Fails() {
		res.ValidationError(v.Errors())
		return
	}

	greeting, err := h.service.Greet(lang, name)
	if err != nil {
		res.ServerError(err.Error())
		return
	}
	res.Success(map[string]any{
		"greeting": greeting,
		"visit":    h.visit.ID,
	})
}

// ── GreetingServiceProvider ───────────────────────────────────────────────────

// GreetingServiceProvider wires the greeting feature and mounts
// GreetPrefix/{lang}. Greetings are never cached.
//
// Bound contracts:
//   - Greeter[name=en], Greeter[name=fr]  (external values)
//   - *GreetingService                   (singleton, default greeter "en")
//   - *Visit                             (per request)
//   - *GreetingHandler                   (unique)
type GreetingServiceProvider struct {
	container.BaseProvider
}

func (p *GreetingServiceProvider) Register(b *container.Builder) {
	b.Bind(container.Named[Greeter]("en"), container.Value(Greeter(english{})))
	b.Bind(container.Named[Greeter]("fr"), container.Value(Greeter(french{})))

	b.Singleton(container.KeyOf[*GreetingService](), container.Construct(func(a container.Args) (any, error) {
		return NewGreetingService(
			container.Arg[Greeter](a, 0),
			container.ArgAll[Greeter](a, 1),
			container.Arg[*zap.Logger](a, 2),
		), nil
	}, container.Dep[Greeter](), container.DepAll[Greeter](), container.Dep[*zap.Logger]()),
		container.OnRelease(func(v any) error {
			v.(*GreetingService).log.Debug("greeting service released")
			return nil
		}),
	)
	b.When(container.KeyOf[*GreetingService]()).Needs(container.KeyOf[Greeter]()).Give("en")

	b.PerRequest(container.KeyOf[*Visit](), container.Factory(func() (any, error) {
		return &Visit{ID: uuid.NewString(), Started: time.Now()}, nil
	}))

	b.Bind(container.KeyOf[*GreetingHandler](), container.Construct(func(a container.Args) (any, error) {
		return &GreetingHandler{
			service: container.Arg[*GreetingService](a, 0),
			visit:   container.Arg[*Visit](a, 1),
		}, nil
	}, container.Dep[*GreetingService](), container.Dep[*Visit]()))

	b.Extend(container.KeyOf[*GreetingService](), func(v any) (any, error) {
		s := v.(*GreetingService)
		s.log = s.log.Named("greeting")
		return s, nil
	})
}

func (p *GreetingServiceProvider) Boot(inj *container.Injector) error {
	router, err := container.Resolve[*routing.Router](inj)
	if err != nil {
		return err
	}
	router.Prefix(GreetPrefix, func(r *routing.Router) {
		r.Middleware(middleware.NoCache)
		r.Resolve(http.MethodGet, "/{lang}", inj, container.KeyOf[*GreetingHandler]())
	})
	return nil
}
