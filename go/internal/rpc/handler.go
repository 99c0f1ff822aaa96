package rpc

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"github.com/mcdev12/econempire/go/internal/apperr"
	"github.com/mcdev12/econempire/go/internal/models"
)

// Router collects the procedures of one service under its path prefix.
type Router struct {
	prefix string
	mux    *http.ServeMux
	opts   []connect.HandlerOption
}

// NewRouter creates a router for serviceName, e.g. "econempire.game.v1.GameService".
func NewRouter(serviceName string, opts ...connect.HandlerOption) *Router {
	return &Router{
		prefix: "/" + serviceName + "/",
		mux:    http.NewServeMux(),
		opts:   append([]connect.HandlerOption{connect.WithCodec(JSONCodec{})}, opts...),
	}
}

// Procedure returns the full procedure path for method.
func (r *Router) Procedure(method string) string {
	return r.prefix + method
}

// Handler returns the mount path and handler, mirroring generated connect constructors.
func (r *Router) Handler() (string, http.Handler) {
	return r.prefix, r.mux
}

// Handle registers an authenticated unary method. fn receives the caller's
// identity; application errors are translated to connect errors.
func Handle[Req, Res any](r *Router, method string, fn func(context.Context, models.Identity, *Req) (*Res, error)) {
	procedure := r.Procedure(method)
	r.mux.Handle(procedure, connect.NewUnaryHandler(procedure,
		func(ctx context.Context, req *connect.Request[Req]) (*connect.Response[Res], error) {
			identity, err := RequireIdentity(ctx)
			if err != nil {
				return nil, apperr.ToConnect(err)
			}
			res, err := fn(ctx, identity, req.Msg)
			if err != nil {
				return nil, apperr.ToConnect(err)
			}
			return connect.NewResponse(res), nil
		},
		r.opts...,
	))
}

// HandlePublic registers a unary method that does not need an identity.
func HandlePublic[Req, Res any](r *Router, method string, fn func(context.Context, *Req) (*Res, error)) {
	procedure := r.Procedure(method)
	r.mux.Handle(procedure, connect.NewUnaryHandler(procedure,
		func(ctx context.Context, req *connect.Request[Req]) (*connect.Response[Res], error) {
			res, err := fn(ctx, req.Msg)
			if err != nil {
				return nil, apperr.ToConnect(err)
			}
			return connect.NewResponse(res), nil
		},
		r.opts...,
	))
}
