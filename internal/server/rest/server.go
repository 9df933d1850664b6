// Package rest exposes the HTTP surface of the feed server: account and post
// endpoints, image upload and delivery, the GraphQL endpoint and the
// websocket stream. All requests pass through the token gate, which attaches
// a request identity without ever rejecting the request itself.
package rest

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/dmitrijs2005/feedstream/internal/logging"
	"github.com/dmitrijs2005/feedstream/internal/server/graphql"
	"github.com/dmitrijs2005/feedstream/internal/server/images"
	"github.com/dmitrijs2005/feedstream/internal/server/realtime"
	"github.com/dmitrijs2005/feedstream/internal/server/services"
)

type Server struct {
	address   string
	users     *services.UserService
	posts     *services.PostService
	images    images.Store
	hub       *realtime.Hub
	graphql   *graphql.Handler
	logger    logging.Logger
	jwtSecret []byte
}

func NewServer(a string, l logging.Logger, us *services.UserService, ps *services.PostService, st images.Store, hub *realtime.Hub, gq *graphql.Handler, secretKey string) (*Server, error) {
	return &Server{
		address:   a,
		logger:    l.With("module", "rest_server"),
		users:     us,
		posts:     ps,
		images:    st,
		hub:       hub,
		graphql:   gq,
		jwtSecret: []byte(secretKey),
	}, nil
}

// routes builds the router. Middleware is layered around the router rather
// than registered on it so that CORS preflights and the identity gate run
// before route matching.
func (s *Server) routes() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/auth/signup", s.signup).Methods(http.MethodPost)
	r.HandleFunc("/auth/login", s.login).Methods(http.MethodPost)
	r.HandleFunc("/auth/status", s.getStatus).Methods(http.MethodGet)
	r.HandleFunc("/auth/status", s.updateStatus).Methods(http.MethodPatch)

	r.HandleFunc("/feed/posts", s.listPosts).Methods(http.MethodGet)
	r.HandleFunc("/feed/post", s.createPost).Methods(http.MethodPost)
	r.HandleFunc("/feed/post/{id}", s.getPost).Methods(http.MethodGet)
	r.HandleFunc("/feed/post/{id}", s.updatePost).Methods(http.MethodPut)
	r.HandleFunc("/feed/post/{id}", s.deletePost).Methods(http.MethodDelete)

	r.HandleFunc("/post-image", s.uploadImage).Methods(http.MethodPut)
	r.HandleFunc("/images/{key:.*}", s.serveImage).Methods(http.MethodGet)

	r.Handle("/graphql", s.graphql).Methods(http.MethodPost)
	r.HandleFunc("/ws", s.hub.ServeWS).Methods(http.MethodGet)

	return s.cors(s.authGate(r))
}

func (s *Server) Run(ctx context.Context) error {

	srv := &http.Server{
		Addr:    s.address,
		Handler: s.routes(),
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		if err := srv.Shutdown(context.Background()); err != nil {
			s.logger.Error(ctx, "error shutting down HTTP server", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
