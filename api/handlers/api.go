package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/aquasafe179-rgb/rapidcareBeta/api"
	"github.com/aquasafe179-rgb/rapidcareBeta/api/scheduler"
	"github.com/aquasafe179-rgb/rapidcareBeta/config"
	"github.com/aquasafe179-rgb/rapidcareBeta/databases"
	"github.com/aquasafe179-rgb/rapidcareBeta/lifecycle"
	"github.com/aquasafe179-rgb/rapidcareBeta/models"
	"github.com/aquasafe179-rgb/rapidcareBeta/notifier"
)

// App stores the router, db connection and socket server, so it can be reused
type App struct {
	Router   *mux.Router
	Config   config.Config
	Notifier *notifier.Router
	Sweeper  *scheduler.Sweeper
	dbHelper databases.DatabaseHelper
}

// New creates a new mux router and all the routes
func (a *App) New() *mux.Router {
	r := mux.NewRouter()

	registry := notifier.NewRegistry()
	a.Notifier = notifier.NewRouter(registry)
	socketServer := notifier.NewSocketServer(registry, api.ParseToken)

	emergencyDB := databases.NewEmergencyDatabase(a.dbHelper)
	bedDB := databases.NewBedDatabase(a.dbHelper)
	ambulanceDB := databases.NewAmbulanceDatabase(a.dbHelper)
	hospitalDB := databases.NewHospitalDatabase(a.dbHelper)

	allocator := lifecycle.NewAllocator(bedDB)
	engine := lifecycle.NewEngine(emergencyDB, ambulanceDB, allocator, a.Notifier)

	em := Emergency{DB: emergencyDB, HDB: hospitalDB, BDB: bedDB, Engine: engine}
	bed := Bed{DB: bedDB, Notifier: a.Notifier}
	amb := Ambulance{DB: ambulanceDB, Notifier: a.Notifier}
	hos := Hospital{DB: hospitalDB}
	auth := Auth{HDB: hospitalDB, ADB: ambulanceDB, Notifier: a.Notifier}

	a.Sweeper = scheduler.New(ambulanceDB, a.Notifier, a.Config.AmbulanceOfflineAfter)

	// healthchex
	r.HandleFunc("/health", healthCheckHandler)

	r.PathPrefix("/socket.io/").Handler(socketServer)

	apiCreate := r.PathPrefix("/api/v1").Subrouter()

	apiCreate.Handle("/auth/login", http.HandlerFunc(auth.LoginHandler)).Methods("POST")

	apiCreate.Handle("/emergency/public", http.HandlerFunc(em.CreatePublicHandler)).Methods("POST")
	apiCreate.Handle("/emergency/id/{emergency_id}", api.OptionalAuth(http.HandlerFunc(em.EmergencyByIDHandler))).Methods("GET")
	apiCreate.Handle("/emergency/detail/{emergency_id}", http.HandlerFunc(em.PublicDetailHandler)).Methods("GET")
	apiCreate.Handle("/emergency/my-requests/{ambulance_id}", api.Auth(http.HandlerFunc(em.MyRequestsHandler), models.RoleAmbulance)).Methods("GET")
	apiCreate.Handle("/emergency/public/{hospital_id}", api.OptionalAuth(http.HandlerFunc(em.PublicEmergenciesByHospitalHandler))).Methods("GET")
	apiCreate.Handle("/emergency/ambulance/{hospital_id}", api.Auth(http.HandlerFunc(em.AmbulanceEmergenciesByHospitalHandler), models.RoleHospital, models.RoleAmbulance)).Methods("GET")
	apiCreate.Handle("/emergency/{hospital_id}/recommend", api.Auth(http.HandlerFunc(em.RecommendHandler), models.RoleHospital, models.RoleAmbulance)).Methods("GET")
	apiCreate.Handle("/emergency/{emergency_id}/accept", api.Auth(http.HandlerFunc(em.AcceptHandler), models.RoleHospital)).Methods("PUT")
	apiCreate.Handle("/emergency/{emergency_id}/reject", api.Auth(http.HandlerFunc(em.RejectHandler), models.RoleHospital)).Methods("PUT")
	apiCreate.Handle("/emergency/{emergency_id}/transfer", api.Auth(http.HandlerFunc(em.TransferHandler), models.RoleHospital)).Methods("PUT")
	apiCreate.Handle("/emergency/{emergency_id}/status", api.Auth(http.HandlerFunc(em.StatusHandler), models.RoleHospital)).Methods("PUT")
	apiCreate.Handle("/emergency/{emergency_id}/reply", api.Auth(http.HandlerFunc(em.ReplyHandler), models.RoleHospital)).Methods("PUT")
	apiCreate.Handle("/emergency/{emergency_id}/ready-to-serve", api.Auth(http.HandlerFunc(em.ReadyToServeHandler), models.RoleHospital)).Methods("PUT")
	apiCreate.Handle("/emergency/{emergency_id}/prep-info", api.Auth(http.HandlerFunc(em.PrepInfoHandler), models.RoleAmbulance)).Methods("PUT")
	apiCreate.Handle("/emergency/{emergency_id}/handled", api.Auth(http.HandlerFunc(em.HandledHandler), models.RoleAmbulance)).Methods("PUT")
	apiCreate.Handle("/emergency/{emergency_id}/admit", api.Auth(http.HandlerFunc(em.AdmitHandler), models.RoleHospital)).Methods("POST")
	apiCreate.Handle("/emergency/{emergency_id}/discharge", api.Auth(http.HandlerFunc(em.DischargeHandler), models.RoleHospital)).Methods("POST")
	apiCreate.Handle("/emergency/{hospital_id}", api.OptionalAuth(http.HandlerFunc(em.EmergenciesByHospitalHandler))).Methods("GET")
	apiCreate.Handle("/emergency", api.Auth(http.HandlerFunc(em.CreateHandler), models.RoleAmbulance, models.RoleHospital)).Methods("POST")
	// All routes for emergency must go above this line

	apiCreate.Handle("/beds/{hospital_id}", api.OptionalAuth(http.HandlerFunc(bed.BedsByHospitalHandler))).Methods("GET")
	apiCreate.Handle("/beds/{bed_id}/status", api.Auth(http.HandlerFunc(bed.StatusHandler), models.RoleHospital)).Methods("PUT")
	apiCreate.Handle("/beds", api.Auth(http.HandlerFunc(bed.CreateRangeHandler), models.RoleHospital)).Methods("POST")

	apiCreate.Handle("/ambulances/{hospital_id}", api.Auth(http.HandlerFunc(amb.AmbulancesByHospitalHandler), models.RoleHospital, models.RoleAmbulance)).Methods("GET")
	apiCreate.Handle("/ambulance/{ambulance_id}", api.Auth(http.HandlerFunc(amb.AmbulanceByIDHandler), models.RoleHospital, models.RoleAmbulance)).Methods("GET")
	apiCreate.Handle("/ambulance/{ambulance_id}/status", api.Auth(http.HandlerFunc(amb.StatusHandler), models.RoleAmbulance)).Methods("PUT")

	apiCreate.Handle("/hospitals", http.HandlerFunc(hos.HospitalsHandler)).Methods("GET")
	apiCreate.Handle("/hospital/{hospital_id}", http.HandlerFunc(hos.HospitalByIDHandler)).Methods("GET")

	return r
}

// Initialize is invoked by main to connect with the database and create a router
func (a *App) Initialize() error {

	client, err := databases.NewClient(&a.Config)
	if err != nil {
		// if we fail to create a new database client, then kill the pod
		zap.S().With(err).Error("failed to create new client")
		return err
	}

	a.dbHelper = databases.NewDatabase(&a.Config, client)
	err = client.Connect()
	if err != nil {
		// if we fail to connect to the database, then kill the pod
		zap.S().With(err).Error("failed to connect to database")
		return err
	}
	zap.S().Info("rapidcare-api has connected to the database")

	// initialize api router
	a.initializeRoutes()

	// background sweep of stale ambulance statuses
	a.Sweeper.Start()
	return nil
}

func (a *App) initializeRoutes() {
	a.Router = a.New()
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	b, _ := json.Marshal(models.HealthCheckResponse{
		Alive: true,
	})
	_, _ = io.WriteString(w, string(b))
}
