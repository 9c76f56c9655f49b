package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "LABIS-backend/docs"
	"LABIS-backend/internal/analytics"
	"LABIS-backend/internal/inventory/consumables"
	"LABIS-backend/internal/inventory/equipment"
	"LABIS-backend/internal/inventory/maintenance"
	"LABIS-backend/internal/inventory/notes"
	"LABIS-backend/internal/platform/audit"
	"LABIS-backend/internal/platform/auth"
	"LABIS-backend/internal/platform/db"
)

func main() {
	// 設定読み込み
	cfg, err := db.LoadConfig("config/config.yaml")
	if err != nil {
		panic(err)
	}

	// 動作モード取得
	mode := cfg.Mode
	log.Printf("[INFO] mode:%s\n", mode)

	if cfg.Mode != "dev" && cfg.Mode != "release" {
		fmt.Println("Usage: go run main.go [dev|release]")
		return
	}

	conn, err := db.Connect(cfg.DB)
	if err != nil {
		panic(err)
	}
	defer conn.Close()

	log.Printf("[INFO] connected to DB: %s", cfg.DB.DBName)

	// 消費エンジンの方式は起動時に固定する
	policy := consumables.PolicyFromName(cfg.ConsumptionPolicy)
	log.Printf("[INFO] consumption policy: %T", policy)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	_ = r.SetTrustedProxies(nil)

	if mode == "dev" {
		// CORS（開発中のみ必要）
		r.Use(cors.New(cors.Config{
			AllowOrigins:     []string{"http://localhost:3000"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Idempotency-Key"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowCredentials: true,
		}))
	}

	// ヘルス
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	// API仕様
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	authSvc := auth.NewService(conn)
	auditStore := audit.NewStore(conn)

	// /api/v1（ログインのみ認証不要）
	public := r.Group("/api/v1")
	auth.RegisterPublicRoutes(public, authSvc)

	api := r.Group("/api/v1")
	api.Use(auth.RequireAuth(auth.JWTSecret()))
	api.Use(auth.RequireWriteRole())
	api.Use(audit.Middleware(auditStore))

	consumables.RegisterRoutes(api, consumables.NewService(conn, policy))
	equipment.RegisterRoutes(api, equipment.NewService(conn))
	maintenance.RegisterRoutes(api, maintenance.NewService(conn))
	notes.RegisterRoutes(api, notes.NewService(conn))
	analytics.RegisterRoutes(api, analytics.NewService(conn))

	// ユーザー管理は admin のみ
	admin := r.Group("/api/v1")
	admin.Use(auth.RequireAuth(auth.JWTSecret()), auth.RequireRole(auth.RoleAdmin))
	admin.Use(audit.Middleware(auditStore))
	auth.RegisterAdminRoutes(admin, authSvc)

	// TLS起動（:8443 例）
	srv := &http.Server{
		Addr:    ":8443",
		Handler: r,
	}

	var certFile, keyFile string

	// TLS設定
	if mode == "dev" {
		//開発用
		certFile = fmt.Sprintf("config/tls/dev/%s", cfg.Certificate.Cert)
		keyFile = fmt.Sprintf("config/tls/dev/%s", cfg.Certificate.Key)
	} else {
		//本番用
		certFile = fmt.Sprintf("config/tls/release/%s", cfg.Certificate.Cert)
		keyFile = fmt.Sprintf("config/tls/release/%s", cfg.Certificate.Key)
	}

	go func() {
		log.Println("[INFO] listening on https://0.0.0.0:8443")
		if err := srv.ListenAndServeTLS(certFile, keyFile); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit
	log.Println("[INFO] shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal(err)
	}
}
