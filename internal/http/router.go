package http

import (
	"net/http"
	"strings"
)

type RouterConfig struct {
	Projects  *ProjectHandler
	Timeslots *TimeslotHandler
	Events    *EventsHandler
	Chat      *ChatHandler
	// Identity wraps the chat webhook, which needs the sender resolved
	// before the handler runs. The JSON API carries user ids in payloads.
	Identity   func(http.Handler) http.Handler
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	if cfg.Projects != nil {
		mux.HandleFunc("/projects", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Projects.List(w, r)
			case http.MethodPost:
				cfg.Projects.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
	}

	if cfg.Timeslots != nil {
		mux.HandleFunc("/projects/", func(w http.ResponseWriter, r *http.Request) {
			rest := strings.TrimPrefix(r.URL.Path, "/projects/")
			projectID, sub, _ := strings.Cut(rest, "/")
			if projectID == "" {
				http.NotFound(w, r)
				return
			}

			ctx := ContextWithProjectID(r.Context(), projectID)
			r = r.WithContext(ctx)

			switch sub {
			case "timeslots":
				switch r.Method {
				case http.MethodGet:
					cfg.Timeslots.List(w, r)
				case http.MethodPost:
					cfg.Timeslots.Add(w, r)
				case http.MethodPatch:
					cfg.Timeslots.Update(w, r)
				case http.MethodDelete:
					cfg.Timeslots.Delete(w, r)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete)
				}
			case "timeslots/merge":
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				cfg.Timeslots.Merge(w, r)
			default:
				http.NotFound(w, r)
			}
		})
	}

	if cfg.Events != nil {
		mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Events.Stream(w, r)
		})
	}

	if cfg.Chat != nil {
		var receive http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Chat.Receive(w, r)
		})
		if cfg.Identity != nil {
			receive = cfg.Identity(receive)
		}
		mux.Handle("/messages", receive)
	}

	var handler http.Handler = mux
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}

	return handler
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
