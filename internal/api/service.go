package api

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

// Package name shared by every procedure path.
const packageName = "splitledger.v1"

func servicePath(service string) string {
	return "/" + packageName + "." + service + "/"
}

// unary builds the handler of one procedure with the JSON codec installed.
func unary[Req, Res any](procedure string, fn func(context.Context, *connect.Request[Req]) (*connect.Response[Res], error), opts []connect.HandlerOption) http.Handler {
	return connect.NewUnaryHandler(procedure, fn,
		connect.WithCodec(Codec{}),
		connect.WithHandlerOptions(opts...),
	)
}

// route dispatches the procedures of one service by path.
func route(prefix string, handlers map[string]http.Handler) (string, http.Handler) {
	return prefix, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := handlers[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		h.ServeHTTP(w, r)
	})
}

// newClient builds the client of one procedure speaking JSON.
func newClient[Req, Res any](httpClient connect.HTTPClient, baseURL, procedure string, opts []connect.ClientOption) *connect.Client[Req, Res] {
	return connect.NewClient[Req, Res](httpClient, strings.TrimRight(baseURL, "/")+procedure,
		connect.WithCodec(Codec{}),
		connect.WithClientOptions(opts...),
	)
}
