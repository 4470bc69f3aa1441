package spiderweb

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"sync"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Responder is implemented by handler results that know how to write
// themselves to the client.
type Responder interface {
	Respond(w http.ResponseWriter, r *http.Request) error
}

// ServiceOption configures a service.
type ServiceOption func(*serviceSetup)

type serviceSetup struct {
	coercers   *Coercers
	lifecycles *Lifecycles
	log        *zap.Logger
	config     Config
}

// WithCoercers sets the coercer registry used for request inputs.
func WithCoercers(c *Coercers) ServiceOption {
	return func(s *serviceSetup) { s.coercers = c }
}

// WithLifecycles sets the lifecycle handlers that wrap every handler call.
func WithLifecycles(l *Lifecycles) ServiceOption {
	return func(s *serviceSetup) { s.lifecycles = l }
}

// WithServiceLogger sets the logger for request failures and invocation
// diagnostics.
func WithServiceLogger(log *zap.Logger) ServiceOption {
	return func(s *serviceSetup) {
		if log != nil {
			s.log = log
		}
	}
}

// WithConfig replaces DefaultConfig().
func WithConfig(cfg Config) ServiceOption {
	return func(s *serviceSetup) { s.config = cfg }
}

// ServiceRegistration allows a group of related endpoints to be started
// together.  None of the endpoints associated with this service will be
// checked or bound to a router until Start() is called.  This allows
// endpoints to be registered in init() functions next to the handlers
// that implement them.
type ServiceRegistration struct {
	Name       string
	started    *Service
	endpoints  map[string][]*EndpointRegistration
	injections *Injections
	setup      serviceSetup
	invoker    *Invoker
	lock       sync.Mutex
}

// Service is a started ServiceRegistration.  Endpoints registered on it
// are bound immediately.
type Service struct {
	Name         string
	registration *ServiceRegistration
	router       *mux.Router
}

// EndpointRegistration is an endpoint of a service: a path and the
// handler invoked for it.
type EndpointRegistration struct {
	path      string
	handler   interface{}
	muxroutes []func(*mux.Route) *mux.Route
	route     *mux.Route
	bound     bool
}

// PreRegisterService creates a service that must be Start()ed later.
//
// The name of the service is used in log and panic messages and is
// otherwise ignored.
func PreRegisterService(name string, opts ...ServiceOption) *ServiceRegistration {
	setup := serviceSetup{
		log:    zap.NewNop(),
		config: DefaultConfig(),
	}
	for _, opt := range opts {
		opt(&setup)
	}
	if setup.coercers == nil {
		setup.coercers = NewCoercers()
	}
	return &ServiceRegistration{
		Name:       name,
		endpoints:  make(map[string][]*EndpointRegistration),
		injections: NewInjections(),
		setup:      setup,
		invoker: NewInvoker(setup.lifecycles,
			WithLogger(setup.log.With(zap.String("service", name)))),
	}
}

// RegisterService creates a service and starts it immediately.
func RegisterService(name string, router *mux.Router, opts ...ServiceOption) *Service {
	return PreRegisterService(name, opts...).Start(router)
}

// RegisterEndpoint pre-registers an endpoint.  The handler must be a func.
// Its parameters are resolved per request by a RequestResolver and its
// results that implement Responder are asked to respond.  If the last
// result is an error, a non-nil error fails the request.
//
// If the service has already been started, the endpoint will be started
// immediately.
func (s *ServiceRegistration) RegisterEndpoint(path string, handler interface{}) *EndpointRegistration {
	s.lock.Lock()
	defer s.lock.Unlock()
	if reflect.TypeOf(handler) == nil || reflect.TypeOf(handler).Kind() != reflect.Func {
		panic(fmt.Sprintf("%s: handler for %s must be a func, got %T", s.Name, path, handler))
	}
	e := &EndpointRegistration{
		path:    path,
		handler: handler,
	}
	s.endpoints[path] = append(s.endpoints[path], e)
	if s.started != nil {
		s.start(e, s.started.router)
	}
	return e
}

// RegisterEndpoint registers and immediately starts an endpoint.
func (s *Service) RegisterEndpoint(path string, handler interface{}) *mux.Route {
	return s.registration.RegisterEndpoint(path, handler).route
}

// Inject provides a value to every handler parameter of its type (see
// Injections).  Inject must be called before Start.
func (s *ServiceRegistration) Inject(v interface{}) *ServiceRegistration {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.started != nil {
		panic(fmt.Sprintf("%s: Inject after Start", s.Name))
	}
	s.injections.Inject(v)
	return s
}

// Start checks every pre-registered handler and binds it to the router.
// Start() may only be called once.
func (s *ServiceRegistration) Start(router *mux.Router) *Service {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.started != nil {
		panic("duplicate call to Start()")
	}
	for _, el := range s.endpoints {
		for _, e := range el {
			s.start(e, router)
		}
	}
	svc := &Service{
		Name:         s.Name,
		registration: s,
		router:       router,
	}
	s.started = svc
	return svc
}

func (s *ServiceRegistration) start(e *EndpointRegistration, router *mux.Router) {
	if e.bound {
		return
	}
	check := &RequestResolver{Injections: s.injections}
	if err := check.CheckResolvable(reflect.TypeOf(e.handler)); err != nil {
		panic(fmt.Sprintf("%s: endpoint %s: %s", s.Name, e.path, err))
	}
	e.route = router.HandleFunc(e.path, s.serve(e))
	for _, mod := range e.muxroutes {
		e.route = mod(e.route)
	}
	e.bound = true
}

// Methods restricts the endpoint to the given HTTP methods.  It takes
// effect when the endpoint is bound.
func (e *EndpointRegistration) Methods(methods ...string) *EndpointRegistration {
	return e.modify(func(r *mux.Route) *mux.Route { return r.Methods(methods...) })
}

// Route applies an arbitrary mux.Route modifier when the endpoint is bound.
func (e *EndpointRegistration) Route(mod func(*mux.Route) *mux.Route) *EndpointRegistration {
	return e.modify(mod)
}

func (e *EndpointRegistration) modify(mod func(*mux.Route) *mux.Route) *EndpointRegistration {
	if e.bound {
		e.route = mod(e.route)
	} else {
		e.muxroutes = append(e.muxroutes, mod)
	}
	return e
}

func (s *ServiceRegistration) serve(e *EndpointRegistration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := ReadRequest(r, s.setup.config.MaxMemory)
		if err != nil {
			s.fail(w, r, e, err)
			return
		}
		resolver := &RequestResolver{
			Input:      NewInput(raw, s.setup.coercers),
			Injections: s.injections,
			Request:    r,
			Writer:     w,
		}
		out, err := s.invoker.Call(e.handler, resolver)
		if err != nil {
			s.fail(w, r, e, err)
			return
		}
		for _, v := range out {
			if responder, ok := interfaceOf(v).(Responder); ok && !isNil(responder) {
				if err := responder.Respond(w, r); err != nil {
					s.setup.log.Error("respond failed",
						zap.String("service", s.Name),
						zap.String("path", e.path),
						zap.Error(err))
				}
			}
		}
	}
}

// fail reports err to the client: bad input is a 400 carrying the error
// message, anything else is a 500.
func (s *ServiceRegistration) fail(w http.ResponseWriter, r *http.Request, e *EndpointRegistration, err error) {
	var (
		parseErr      *ParseError
		validationErr *ValidationError
	)
	if errors.As(err, &parseErr) || errors.As(err, &validationErr) {
		s.setup.log.Info("bad request",
			zap.String("service", s.Name),
			zap.String("path", e.path),
			zap.Error(err))
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.setup.log.Error("request failed",
		zap.String("service", s.Name),
		zap.String("path", e.path),
		zap.String("method", r.Method),
		zap.Error(err))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
