package server

import (
	"fmt"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/kokukuma/mdoc-issuer/internal/log"
	"github.com/kokukuma/mdoc-issuer/internal/metrics"
)

// Router returns the API routes behind CORS and panic recovery.
func (s *Server) Router(allowedOrigins []string) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	r := mux.NewRouter()
	r.Use(handlers.CORS(
		handlers.AllowedMethods([]string{"POST", "GET"}),
		handlers.AllowedHeaders([]string{"content-type"}),
		handlers.AllowedOrigins(allowedOrigins),
	))

	r.HandleFunc("/healthcheck", s.HealthCheck).Methods("GET")
	r.HandleFunc("/devicekey", s.ConvertDeviceKey).Methods("POST", "OPTIONS")

	issuerRouter := r.PathPrefix("/issuer").Subrouter()
	issuerRouter.HandleFunc("/credential", s.IssueCredential).Methods("POST", "OPTIONS")
	issuerRouter.HandleFunc("/preview", s.PreviewCredential).Methods("POST", "OPTIONS")
	issuerRouter.HandleFunc("/credential/{id}", s.GetIssuance).Methods("GET", "OPTIONS")
	issuerRouter.HandleFunc("/configurations", s.ListConfigurations).Methods("GET", "OPTIONS")
	issuerRouter.HandleFunc("/countries", s.ListCountries).Methods("GET", "OPTIONS")

	mh := metrics.NewHandler(s.gatherer)
	r.Handle(mh.Path(), mh.Handler()).Methods(mh.Method())

	return handlers.RecoveryHandler(handlers.RecoveryLogger(recoveryLogger{}))(r)
}

type recoveryLogger struct{}

func (recoveryLogger) Println(v ...interface{}) {
	logger.Error("recovered from panic", log.WithError(fmt.Errorf("%s", fmt.Sprint(v...))))
}
