package main

import (
	"log"

	"papercache/internal/cache"
	"papercache/internal/config"
	"papercache/internal/handlers"
	"papercache/internal/metrics"
	"papercache/internal/registry"
	"papercache/internal/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	_ "papercache/docs"
)

// @title Paper Cache Service
// @version 1.0
// @description Tiered local cache for query results and fetched files
// @BasePath /api
func main() {
	cfg := InitConfig()
	m := metrics.NewMetrics()
	localCache := InitCache(cfg, m)
	defer localCache.Close()
	blacklist := InitBlacklist(cfg)
	postponed := InitPostponed(cfg)
	defer postponed.Close()
	fileStorage := InitFileStorage(cfg)

	app := fiber.New()

	// Register Prometheus metrics endpoint
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	ch := handlers.NewCacheHandler(localCache, blacklist)
	sh := handlers.NewStorageHandler(fileStorage)

	api := app.Group("/api")
	api.Get("/cache/entries", ch.ListEntries)
	api.Get("/cache/object", ch.GetObject)
	api.Post("/cache/object", ch.StoreObject)
	api.Delete("/cache/object", ch.DeleteObject)
	api.Get("/cache/has", ch.HasObject)
	api.Get("/cache/stats", ch.GetStats)
	api.Post("/cache/clear", ch.ClearCache)

	api.Get("/blacklist", ch.ListBlacklist)
	api.Post("/blacklist", ch.AddToBlacklist)
	api.Delete("/blacklist", ch.RemoveFromBlacklist)
	api.Post("/blacklist/filter", ch.FilterBlacklist)

	api.Get("/files", sh.ListFiles)
	api.Post("/files", sh.UploadFile)
	api.Delete("/files", sh.DeleteFile)
	api.Get("/files/download", sh.DownloadFile)
	api.Get("/files/info", sh.FileInfo)
	api.Post("/files/migrate", sh.MigrateFile)

	api.Get("/swagger/*", swagger.HandlerDefault)

	// Add Health check endpoint
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	routes := app.GetRoutes()
	log.Println("Registered routes:")
	for _, r := range routes {
		log.Printf("  %s %s\n", r.Method, r.Path)
	}

	log.Printf("Server listening on port %s", cfg.AppPort)
	log.Fatal(app.Listen(":" + cfg.AppPort))
}

func InitConfig() *config.Config {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}
	return cfg
}

func InitCache(cfg *config.Config, m *metrics.Metrics) *cache.InstrumentedCache {
	c, err := cache.New(cfg.CacheDir, cache.Options{
		Compression:  cfg.CacheCompression,
		IndexBackend: cfg.CacheBackend,
	})
	if err != nil {
		log.Fatalf("Cache initialization failed: %v", err)
	}
	log.Printf("Cache ready at %s (backend: %s)", c.Dir(), c.Backend())
	return cache.NewInstrumentedCache(c, m)
}

func InitBlacklist(cfg *config.Config) *registry.ProblemPapers {
	blacklist, err := registry.LoadProblemPapers(cfg.BlacklistPath)
	if err != nil {
		log.Fatalf("Blacklist initialization failed: %v", err)
	}
	log.Printf("Blacklist ready at %s (%d entries)", cfg.BlacklistPath, blacklist.Count())
	return blacklist
}

func InitPostponed(cfg *config.Config) *registry.PostponedCache {
	postponed, err := registry.OpenPostponedCache(cfg.PostponedPath)
	if err != nil {
		log.Fatalf("Postponed registry initialization failed: %v", err)
	}
	return postponed
}

func InitFileStorage(cfg *config.Config) *storage.FallbackStorage {
	primary, err := storage.NewLocalStorage(cfg.FilesDir, true)
	if err != nil {
		log.Fatalf("Primary storage initialization failed: %v", err)
	}

	var secondary storage.Backend
	if cfg.MinioEnabled() {
		client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
			Secure: cfg.MinioSSL,
		})
		if err != nil {
			log.Fatalf("MinIO client initialization failed: %v", err)
		}
		secondary, err = storage.NewMinioStorage(client, cfg.MinioBucket)
		if err != nil {
			log.Fatalf("MinIO storage initialization failed: %v", err)
		}
		log.Printf("Secondary storage: minio://%s/%s", cfg.MinioEndpoint, cfg.MinioBucket)
	} else {
		secondary, err = storage.NewLocalStorage(cfg.SecondaryDir, true)
		if err != nil {
			log.Fatalf("Secondary storage initialization failed: %v", err)
		}
		log.Printf("Secondary storage: %s", cfg.SecondaryDir)
	}

	fs, err := storage.NewFallbackStorage(primary, secondary, storage.WriteMode(cfg.WriteTo))
	if err != nil {
		log.Fatalf("File storage initialization failed: %v", err)
	}
	return fs
}
