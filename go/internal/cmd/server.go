package main

import (
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mcdev12/econempire/go/internal/rpc"
	"github.com/mcdev12/econempire/go/internal/users"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

type connectService interface {
	Handler(opts ...connect.HandlerOption) (string, http.Handler)
}

func setupServer(port string, services *Services) *http.Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	registerServices(r, services)
	services.Gateway.RegisterRoutes(r)
	setupHealthCheck(r)

	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"Error-Kind"},
	})

	return &http.Server{
		Addr:              ":" + port,
		Handler:           h2c.NewHandler(c.Handler(r), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func registerServices(r chi.Router, services *Services) {
	interceptors := connect.WithInterceptors(rpc.NewAuthInterceptor(services.UsersApp, users.LoginProcedure))

	for _, svc := range []connectService{
		services.Users,
		services.Games,
		services.Tariffs,
		services.Chat,
	} {
		path, handler := svc.Handler(interceptors)
		r.Mount(path, handler)
		log.Info().Str("path", path).Msg("registered service")
	}
}

func setupHealthCheck(r chi.Router) {
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})
}
