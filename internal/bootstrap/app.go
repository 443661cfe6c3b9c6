// Package bootstrap 负责装配应用：配置、日志、基础设施、依赖注入和路由。
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	httpHandler "realtime-blog/internal/handler/http"
	webHandler "realtime-blog/internal/handler/web"
	wsHandler "realtime-blog/internal/handler/websocket"
	"realtime-blog/internal/hub"
	gormpersistence "realtime-blog/internal/infra/persistence/gorm"
	"realtime-blog/internal/infra/setup"
	"realtime-blog/internal/middleware"
	"realtime-blog/internal/service"
)

// Options 是由命令行旗标决定的启动选项。
type Options struct {
	Host   string // 监听地址 (默认 127.0.0.1)
	Port   int    // 监听端口 (默认 8000)
	Reload bool   // 开发模式：调试日志级别 (--prod 时被忽略)
	Prod   bool   // 生产模式：ReleaseMode + JSON 日志
}

// Workers 报告等效的工作进程数，仅作启动信息输出。
// Go 进程内用 goroutine-per-connection 承载并发，横向扩展
// 通过 Redis 扇出总线部署多个实例实现。
func (o Options) Workers() int {
	if o.Prod {
		return 4
	}
	return 1
}

// Config 存储从环境变量加载的配置
type Config struct {
	DatabaseURL     string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	LogLevel        string
	KeyPrefix       string
	TemplateGlob    string
	StaticDir       string
	RateLimitMax    int
	RateLimitWindow time.Duration
}

// LoadConfig 从环境变量加载配置
func LoadConfig() (*Config, error) {
	// 优先加载 .env 文件 (如果存在)，允许只使用环境变量
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		LogLevel:        os.Getenv("LOG_LEVEL"),
		KeyPrefix:       os.Getenv("REDIS_KEY_PREFIX"),
		TemplateGlob:    os.Getenv("TEMPLATE_GLOB"),
		StaticDir:       os.Getenv("STATIC_DIR"),
		RateLimitMax:    100,
		RateLimitWindow: 1 * time.Second,
	}
	cfg.RedisDB, _ = strconv.Atoi(os.Getenv("REDIS_DB"))

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "blog:"
	}
	if cfg.TemplateGlob == "" {
		cfg.TemplateGlob = "web/templates/*.html"
	}
	if cfg.StaticDir == "" {
		cfg.StaticDir = "web/static"
	}

	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		logrus.Warnf("Invalid LOG_LEVEL '%s', using default 'info'", cfg.LogLevel)
		cfg.LogLevel = "info"
	}

	return cfg, nil
}

// App 包含应用的所有组件和配置
type App struct {
	Config      *Config
	Options     Options
	Log         *logrus.Logger
	DB          *gorm.DB
	RedisClient *redis.Client
	Hub         *hub.Hub
	HttpServer  *http.Server
}

// NewApp 创建并初始化应用的所有组件
func NewApp(opts Options) (*App, error) {
	// 1. 加载配置
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return nil, err
	}

	// 2. 初始化 Logger
	log := logrus.New()
	if opts.Prod {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, ForceColors: true})
	}
	logLevel, _ := logrus.ParseLevel(cfg.LogLevel)
	if opts.Reload && !opts.Prod {
		// --reload 在编译型服务里没有热重载等价物，降到调试级别
		logLevel = logrus.DebugLevel
		log.Info("Reload flag set: debug logging enabled (hot reload is not applicable)")
	}
	log.SetLevel(logLevel)
	log.SetOutput(os.Stdout)
	logrus.SetFormatter(log.Formatter)
	logrus.SetLevel(logLevel)
	log.Info("Configuration loaded successfully")

	// 3. 初始化基础设施
	db, err := setup.InitDB(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to init DB: %w", err)
	}
	if err := setup.MigrateDB(db); err != nil {
		return nil, fmt.Errorf("failed to migrate DB: %w", err)
	}

	// Redis 可选：未配置时速率限制关闭、中继仅在本进程内扇出
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient, err = setup.InitRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, fmt.Errorf("failed to init Redis: %w", err)
		}
	} else {
		log.Info("REDIS_ADDR not set: rate limiting disabled, relay runs single-process")
	}

	// 4. 初始化 Repositories
	userRepo := gormpersistence.NewGormUserRepository(db)
	postRepo := gormpersistence.NewGormPostRepository(db)

	// 5. 初始化 Services
	userService := service.NewUserService(userRepo)
	postService := service.NewPostService(postRepo, userRepo)

	// 6. 初始化 Hub
	hubInstance := hub.NewHub(redisClient, cfg.KeyPrefix)

	// 7. 初始化 Handlers
	apiUserHandler := httpHandler.NewUserHandler(userService)
	apiPostHandler := httpHandler.NewPostHandler(postService)
	healthHandler := httpHandler.NewHealthHandler(db)
	webUserHandler := webHandler.NewUserHandler(userService)
	webPostHandler := webHandler.NewPostHandler(postService, userService, hubInstance)
	socketHandler := wsHandler.NewWebSocketHandler(hubInstance)

	// 8. 初始化 Gin Engine 和路由
	if opts.Prod {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(log))
	if redisClient != nil {
		router.Use(middleware.RateLimit(redisClient, cfg.RateLimitMax, cfg.RateLimitWindow))
	}

	router.LoadHTMLGlob(cfg.TemplateGlob)
	router.Static("/static", cfg.StaticDir)

	// --- JSON API ---
	router.POST("/users/", apiUserHandler.Create)
	router.GET("/users/", apiUserHandler.List)
	router.POST("/posts/", apiPostHandler.Create)
	router.GET("/posts/", apiPostHandler.List)
	router.GET("/posts/:id", apiPostHandler.Get)
	router.PUT("/posts/:id", apiPostHandler.Update)
	router.DELETE("/posts/:id", apiPostHandler.Delete)
	router.GET("/check-db", healthHandler.CheckDB)

	// --- 服务端渲染页面 ---
	router.GET("/", webUserHandler.Home)
	web := router.Group("/web")
	{
		web.GET("/users", webUserHandler.List)
		web.GET("/users/create", webUserHandler.CreateForm)
		web.POST("/users/create", webUserHandler.Create)
		web.GET("/posts", webPostHandler.List)
		web.GET("/posts/create", webPostHandler.CreateForm)
		web.POST("/posts/create", webPostHandler.Create)
		web.GET("/posts/:id", webPostHandler.Detail)
		web.GET("/posts/:id/edit", webPostHandler.EditForm)
		web.POST("/posts/:id/edit", webPostHandler.Update)
		web.POST("/posts/:id/delete", webPostHandler.Delete)
	}

	// --- 实时通道 ---
	router.GET("/ws", socketHandler.HandleConnection)

	log.Info("Router setup complete")

	// 9. 初始化 HTTP Server
	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", opts.Host, opts.Port),
		Handler: router,
	}

	return &App{
		Config:      cfg,
		Options:     opts,
		Log:         log,
		DB:          db,
		RedisClient: redisClient,
		Hub:         hubInstance,
		HttpServer:  httpServer,
	}, nil
}

// Start 启动 Hub 和 HTTP 服务器
func (a *App) Start() {
	go a.Hub.Run()
	a.Log.Info("Hub routine started")

	mode := "Development"
	if a.Options.Prod {
		mode = "Production"
	}
	a.Log.Infof("Running realtime blog at http://%s", a.HttpServer.Addr)
	a.Log.Infof("Mode: %s (workers: %d)", mode, a.Options.Workers())

	go func() {
		if err := a.HttpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Log.Fatalf("Failed to start HTTP server: %v", err)
		}
		a.Log.Info("HTTP server stopped listening.")
	}()
}

// Shutdown 优雅地关闭应用
func (a *App) Shutdown() {
	a.Log.Info("Shutting down application...")

	if a.Hub != nil {
		a.Hub.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.HttpServer.Shutdown(ctx); err != nil {
		a.Log.Errorf("Error shutting down HTTP server: %v", err)
	} else {
		a.Log.Info("HTTP server shut down gracefully.")
	}

	if a.RedisClient != nil {
		if err := a.RedisClient.Close(); err != nil {
			a.Log.Errorf("Error closing Redis connection: %v", err)
		}
	}

	a.Log.Info("Application shutdown complete.")
}

// LoggerMiddleware 创建一个 Gin 中间件用于记录请求日志
func LoggerMiddleware(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		c.Next()
		latency := time.Since(startTime)
		statusCode := c.Writer.Status()
		path := c.Request.URL.Path
		if c.Request.URL.RawQuery != "" {
			path = path + "?" + c.Request.URL.RawQuery
		}

		entry := log.WithFields(logrus.Fields{
			"status_code": statusCode,
			"latency_ms":  latency.Milliseconds(),
			"client_ip":   c.ClientIP(),
			"method":      c.Request.Method,
			"path":        path,
		})

		if errorMessage := c.Errors.ByType(gin.ErrorTypePrivate).String(); errorMessage != "" {
			entry.Error(errorMessage)
		} else if statusCode >= 500 {
			entry.Error("Server error")
		} else if statusCode >= 400 {
			entry.Warn("Client error")
		} else {
			entry.Info("Request handled")
		}
	}
}
