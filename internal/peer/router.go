package peer

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

// Request carries route parameters and the payload after the path.
type Request struct {
	Ctx     context.Context
	Params  map[string]string
	Payload string
}

// Response holds the JSON line returned to the client.
type Response struct {
	JSON string
}

// HandlerFunc serves a plain request. The logger is connection scoped.
type HandlerFunc func(req *Request, res *Response, logger *slog.Logger) error

// StreamHandlerFunc owns the rest of the connection: r yields whatever the
// client sends after the request line, w writes back to it. Returning ends
// the stream and closes the connection.
type StreamHandlerFunc func(req *Request, r io.Reader, w io.Writer, logger *slog.Logger) error

// Router matches lowercase path patterns with {name} placeholders.
type Router struct {
	routes []route
}

type route struct {
	parts   []string
	names   []string
	handler HandlerFunc
	stream  StreamHandlerFunc
}

func NewRouter() *Router { return &Router{} }

func (r *Router) add(pattern string, h HandlerFunc, sh StreamHandlerFunc) {
	orig := strings.Split(pattern, "/")
	rt := route{
		parts:   strings.Split(strings.ToLower(pattern), "/"),
		names:   make([]string, len(orig)),
		handler: h,
		stream:  sh,
	}
	for i, p := range orig {
		if strings.HasPrefix(p, "{") && strings.HasSuffix(p, "}") {
			rt.names[i] = p[1 : len(p)-1]
		}
	}
	r.routes = append(r.routes, rt)
}

// Register adds a plain route such as "device/{id}/profile".
func (r *Router) Register(pattern string, handler HandlerFunc) { r.add(pattern, handler, nil) }

// RegisterStream adds a stream route.
func (r *Router) RegisterStream(pattern string, handler StreamHandlerFunc) {
	r.add(pattern, nil, handler)
}

// Match returns the route for path; both handlers are nil when none matches.
func (r *Router) Match(path string) (HandlerFunc, StreamHandlerFunc, map[string]string) {
	parts := strings.Split(strings.ToLower(path), "/")
	for _, rt := range r.routes {
		if len(rt.parts) != len(parts) {
			continue
		}
		params := map[string]string{}
		ok := true
		for i := range parts {
			if rt.names[i] != "" {
				params[rt.names[i]] = parts[i]
				continue
			}
			if rt.parts[i] != parts[i] {
				ok = false
				break
			}
		}
		if ok {
			return rt.handler, rt.stream, params
		}
	}
	return nil, nil, nil
}
