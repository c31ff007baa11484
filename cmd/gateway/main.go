package main

import (
	"context"
	"log"
	"net/http"
	"time"

	api "github.com/mediward/visitor-gateway/internal/api/http"
	auth "github.com/mediward/visitor-gateway/internal/auth/middleware"
	"github.com/mediward/visitor-gateway/internal/config"
	"github.com/mediward/visitor-gateway/internal/db"
	"github.com/mediward/visitor-gateway/internal/storage"
	"github.com/mediward/visitor-gateway/internal/token"
	"github.com/mediward/visitor-gateway/internal/visitor"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func main() {
	cfg := config.FromEnv()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	store := visitor.NewSQLStore(dbh, cfg.DBDriver)

	// --- Blob store ---
	// Signing material is validated here, once; missing key material for the
	// configured driver is a fatal configuration error.
	var (
		bs      storage.BlobStore
		fsStore *storage.FSStore
		signer  *storage.Signer
	)
	switch cfg.BlobDriver {
	case "minio":
		bs, err = storage.NewMinIOStore(storage.MinIOConfig{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			Bucket:    cfg.BlobBucket,
			UseSSL:    cfg.MinIOUseSSL,
		})
		if err != nil {
			log.Fatalf("minio store: %v", err)
		}
	case "fs":
		signer, err = storage.NewSigner(cfg.BlobSigningSecret)
		if err != nil {
			log.Fatalf("url signer: %v", err)
		}
		fsStore, err = storage.NewFSStore(cfg.BlobBasePath, cfg.BlobBucket, cfg.PublicURL, signer)
		if err != nil {
			log.Fatalf("blob store: %v", err)
		}
		bs = fsStore
	default:
		log.Fatalf("unsupported blob driver: %s", cfg.BlobDriver)
	}
	if err := bs.EnsureBucket(ctx); err != nil {
		log.Fatalf("ensure bucket: %v", err)
	}

	svc := visitor.NewService(store, bs, storage.NewAllocator(), token.NewIssuer(), cfg.SignedURLTTL)
	authSvc := auth.NewAuthService(cfg.AuthHMACSecret)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/api/auth/login", auth.LoginHandler(authSvc, dbh, auth.AdminCredentials{
		Username: cfg.AdminUser,
		PassHash: cfg.AdminPassHash,
	}))

	// Kiosk flow: registration and the QR-driven download redirect are open.
	r.Post("/api/visitors", api.RegisterVisitorHandler(svc))
	r.Get("/api/visitors/{visitorID}/download-id", api.DownloadIDHandler(svc))
	r.Get("/api/patients", api.ListPatientsHandler(store))

	// Staff surfaces.
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))
		pr.Get("/api/visitors", api.ListVisitorsHandler(store))
		pr.Patch("/api/visitors/{visitorID}/checkout", api.CheckOutHandler(svc))
		pr.Get("/api/visitors/{visitorID}/id-proof", api.StreamIDProofHandler(svc))
		pr.Post("/api/patients", api.CreatePatientHandler(store))
	})

	// Signed-URL presentation endpoint for the fs driver.
	if fsStore != nil {
		r.Route("/blob", func(br chi.Router) {
			api.MountBlob(br, fsStore, signer)
		})
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	log.Printf("listening on %s (db=%s, blob=%s)", cfg.HTTPAddr, cfg.DBDriver, cfg.BlobDriver)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
