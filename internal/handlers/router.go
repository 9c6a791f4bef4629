package handlers

import "net/http"

// Router groups the handlers mounted on the server mux
type Router struct {
	Auth       *AuthHandler
	API        *APIHandler
	Events     *EventHub
	Middleware *Middleware
	Proxy      http.Handler
}

// Handler builds the route table wrapped in request logging
func (rt Router) Handler() http.Handler {
	mux := http.NewServeMux()

	// Google sign-in
	mux.HandleFunc("GET /auth/google/start", rt.Auth.StartOAuth)
	mux.HandleFunc("GET /auth/google/callback", rt.Auth.OAuthCallback)
	mux.HandleFunc("POST /auth/logout", rt.Middleware.RequireAuth(rt.Auth.Logout))
	mux.HandleFunc("POST /auth/refresh", rt.Middleware.RequireAuth(rt.Auth.Refresh))
	mux.HandleFunc("GET /api/session", rt.Auth.Session)
	mux.HandleFunc("GET /api/events", rt.Events.ServeEvents)

	// Dashboard API
	mux.HandleFunc("GET /api/dashboard", rt.Middleware.RequireAuth(rt.API.Dashboard))
	mux.HandleFunc("GET /api/offers", rt.Middleware.RequireAuth(rt.API.ListOffers))
	mux.HandleFunc("POST /api/offers", rt.Middleware.RequireAuth(rt.API.CreateOffer))
	mux.HandleFunc("GET /api/posts", rt.Middleware.RequireAuth(rt.API.ListPosts))
	mux.HandleFunc("POST /api/posts", rt.Middleware.RequireAuth(rt.API.CreatePost))
	mux.HandleFunc("POST /api/posts/test", rt.Middleware.RequireAuth(rt.API.TestMessage))
	mux.HandleFunc("PUT /api/posts/{index}", rt.Middleware.RequireAuth(rt.API.UpdatePost))
	mux.HandleFunc("DELETE /api/posts/{index}", rt.Middleware.RequireAuth(rt.API.DeletePost))
	mux.HandleFunc("POST /api/posts/{index}/broadcast", rt.Middleware.RequireAuth(rt.API.BroadcastPost))
	mux.HandleFunc("POST /api/posts/{index}/test", rt.Middleware.RequireAuth(rt.API.TestPost))
	mux.HandleFunc("GET /api/config", rt.Middleware.RequireAuth(rt.API.ListConfig))
	mux.HandleFunc("PUT /api/config", rt.Middleware.RequireAuth(rt.API.SaveConfig))

	// Bot API relay, open to the browser like the hosted function it replaces
	if rt.Proxy != nil {
		mux.Handle("/api/telegram", rt.Proxy)
	}

	return Logging(mux)
}
