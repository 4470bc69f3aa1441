/*
Package spiderweb turns bags of named request values into typed handler
arguments and runs handlers wrapped in per-type lifecycle hooks.

Why?

Typed inputs: handlers declare what they need as parameters.  Strings,
numbers, enums, lists, flags, and file uploads are read from the request
and converted before the handler runs.  Malformed input is reported for
exactly one field and is never quietly defaulted.

Lifecycle hooks: when a handler takes an argument of a registered type,
the call is nested inside that type's hooks.  A transaction argument can
be committed when the handler succeeds and rolled back when it fails,
without the handler doing either.

Explicit registries: coercers and lifecycle handlers live in values that
are built at startup and passed to the engines that use them.  There are
no package-level registries.

Code juxtaposition: when using pre-registered services, endpoints can be
registered in init() functions next to the handlers that implement them.
Nothing is checked or bound until the service is started.

Inputs

An Input reads from a RawParameters: every string value sent under a
name, in the order sent, plus the payload of each uploaded file.
ReadRequest builds one from an *http.Request.

Inputs are resolved against a TypeDescriptor, in this order:

	[]byte                  the uploaded file, or nil
	[]T with MultiValued()  every value sent, each coerced as a T; empty, never nil
	bool, *bool             true if the name was sent at all, even as ""
	anything else           the first value sent, or nil if none

The first value is then coerced by type:

	enum                    matched against the constant names (see RegisterEnum)
	int, uint, float kinds  strconv; blank or malformed is a *ParseError
	string kinds            verbatim
	[]T                     split on the Separator() hint, each piece coerced as a T
	registered types        the registered Coercer
	*T                      nil for a blank number, otherwise the address of a coerced T

Any other type is an *UnsupportedTypeError.  A Coercer registered for a
number, string, or slice type is never used.

Struct fields can be bound in one go with Bind, using `input` tags and
the `validate` tags of go-playground/validator.

Lifecycles

Lifecycles is an ordered list of (type, handler) pairs.  An argument
matches the first entry whose type its runtime type is assignable to.

Invoker.Invoke scans the arguments left to right and nests the call
inside the hooks of each matching argument.  The first matching
argument is the outermost:

	A.OnInit, C.OnInit, handler, C.OnSuccess, A.OnSuccess

When anything fails, the hooks that were entered see the failure in
reverse order through OnError and the failure is returned exactly as it
was produced.  An error returned by OnError is logged and dropped.  A
panic is shown to OnError hooks as a *PanicError and then re-raised.

Invoker.Call resolves a func's arguments with an ArgumentResolver and
invokes it through Invoke.

Services

A service is a group of endpoints bound to a gorilla/mux router.  Each
endpoint is a single handler func whose parameters are filled by a
RequestResolver: the request, the response writer, the context, the
Input, injected values, and form structs.  Results that implement
Responder write the response.  Bad input is answered with a 400; any
other failure with a 500.

*/
package spiderweb
