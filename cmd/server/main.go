package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/tyemirov/bunledge/internal/authkit"
	"github.com/tyemirov/bunledge/internal/store"
	"github.com/tyemirov/bunledge/internal/timeback"
	"github.com/tyemirov/bunledge/internal/web"
)

var serveHTTP = func(server *http.Server) error {
	return server.ListenAndServe()
}

var openDatabase = func(ctx context.Context, databaseURL string) (*store.Database, error) {
	return store.Open(ctx, databaseURL)
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "bunledge",
		Short:   "Educational platform API with Auth0 bearer authentication and Timeback completion reporting",
		PreRunE: prepareServerConfig,
		RunE:    runServer,
	}

	rootCmd.Flags().String("listen_addr", ":8080", "HTTP listen address")
	rootCmd.Flags().String("database_url", "", "Database URL (postgres:// or sqlite://)")
	rootCmd.Flags().String("auth0_domain", "", "Auth0 tenant domain, e.g. example.us.auth0.com")
	rootCmd.Flags().String("auth0_audience", "", "Expected audience of inbound access tokens")
	rootCmd.Flags().Duration("http_timeout", 10*time.Second, "Timeout for outbound HTTPS calls (JWKS, userinfo, Timeback)")
	rootCmd.Flags().Bool("enable_cors", false, "Enable CORS for the browser frontend")
	rootCmd.Flags().StringSlice("cors_allowed_origins", []string{}, "Allowed origins when CORS is enabled")
	rootCmd.Flags().String("progress_start_policy", "conflict", "Behavior when starting an already-started activity: conflict or resume")
	rootCmd.Flags().String("timeback_base_url", "", "Timeback API base URL; empty disables completion reporting")
	rootCmd.Flags().String("timeback_client_id", "", "Timeback API client id")
	rootCmd.Flags().String("timeback_client_secret", "", "Timeback API client secret")

	_ = viper.BindPFlag("listen_addr", rootCmd.Flags().Lookup("listen_addr"))
	_ = viper.BindPFlag("database_url", rootCmd.Flags().Lookup("database_url"))
	_ = viper.BindPFlag("auth0_domain", rootCmd.Flags().Lookup("auth0_domain"))
	_ = viper.BindPFlag("auth0_audience", rootCmd.Flags().Lookup("auth0_audience"))
	_ = viper.BindPFlag("http_timeout", rootCmd.Flags().Lookup("http_timeout"))
	_ = viper.BindPFlag("enable_cors", rootCmd.Flags().Lookup("enable_cors"))
	_ = viper.BindPFlag("cors_allowed_origins", rootCmd.Flags().Lookup("cors_allowed_origins"))
	_ = viper.BindPFlag("progress_start_policy", rootCmd.Flags().Lookup("progress_start_policy"))
	_ = viper.BindPFlag("timeback_base_url", rootCmd.Flags().Lookup("timeback_base_url"))
	_ = viper.BindPFlag("timeback_client_id", rootCmd.Flags().Lookup("timeback_client_id"))
	_ = viper.BindPFlag("timeback_client_secret", rootCmd.Flags().Lookup("timeback_client_secret"))

	viper.SetEnvPrefix("APP")
	viper.AutomaticEnv()

	return rootCmd
}

const (
	configCodeMissingAuth0Domain   = "config.missing_auth0_domain"
	configCodeMissingAuth0Audience = "config.missing_auth0_audience"
	configCodeMissingDatabaseURL   = "config.missing_database_url"
	configCodeInvalidHTTPTimeout   = "config.invalid_http_timeout"
	configCodeInvalidStartPolicy   = "config.invalid_progress_start_policy"
	configCodeUninitializedConf    = "config.uninitialized_server_config"
)

type contextKey string

const serverConfigContextKey contextKey = "serverConfig"

// ServerConfig is the validated process configuration.
type ServerConfig struct {
	ListenAddr         string
	DatabaseURL        string
	Auth               authkit.AuthConfig
	EnableCORS         bool
	CORSAllowedOrigins []string
	StartPolicy        web.StartPolicy
	Timeback           timeback.Config
}

func prepareServerConfig(command *cobra.Command, arguments []string) error {
	serverConfig, loadErr := LoadServerConfig()
	if loadErr != nil {
		return loadErr
	}
	existingContext := command.Context()
	if existingContext == nil {
		existingContext = context.Background()
	}
	command.SetContext(context.WithValue(existingContext, serverConfigContextKey, serverConfig))
	return nil
}

func configError(code, message string) error {
	return fmt.Errorf("%s: %s", code, message)
}

// LoadServerConfig reads and validates all configuration from viper.
func LoadServerConfig() (ServerConfig, error) {
	auth0Domain := viper.GetString("auth0_domain")
	if auth0Domain == "" {
		return ServerConfig{}, configError(configCodeMissingAuth0Domain, "auth0_domain must be provided")
	}

	auth0Audience := viper.GetString("auth0_audience")
	if auth0Audience == "" {
		return ServerConfig{}, configError(configCodeMissingAuth0Audience, "auth0_audience must be provided")
	}

	databaseURL := viper.GetString("database_url")
	if databaseURL == "" {
		return ServerConfig{}, configError(configCodeMissingDatabaseURL, "database_url must be provided")
	}

	httpTimeout := viper.GetDuration("http_timeout")
	if httpTimeout <= 0 {
		return ServerConfig{}, configError(configCodeInvalidHTTPTimeout, "http_timeout must be greater than zero")
	}

	startPolicy := web.StartPolicy(viper.GetString("progress_start_policy"))
	if !startPolicy.Valid() {
		return ServerConfig{}, configError(configCodeInvalidStartPolicy, "progress_start_policy must be conflict or resume")
	}

	return ServerConfig{
		ListenAddr:  viper.GetString("listen_addr"),
		DatabaseURL: databaseURL,
		Auth: authkit.AuthConfig{
			Domain:      auth0Domain,
			Audience:    auth0Audience,
			HTTPTimeout: httpTimeout,
		},
		EnableCORS:         viper.GetBool("enable_cors"),
		CORSAllowedOrigins: viper.GetStringSlice("cors_allowed_origins"),
		StartPolicy:        startPolicy,
		Timeback: timeback.Config{
			BaseURL:      viper.GetString("timeback_base_url"),
			ClientID:     viper.GetString("timeback_client_id"),
			ClientSecret: viper.GetString("timeback_client_secret"),
			HTTPTimeout:  httpTimeout,
		},
	}, nil
}

func runServer(command *cobra.Command, arguments []string) error {
	logger, loggerErr := zap.NewProduction()
	if loggerErr != nil {
		return loggerErr
	}
	defer func() { _ = logger.Sync() }()

	commandContext := command.Context()
	var contextValue any
	if commandContext != nil {
		contextValue = commandContext.Value(serverConfigContextKey)
	}
	serverConfig, ok := contextValue.(ServerConfig)
	if !ok {
		return configError(configCodeUninitializedConf, "server configuration not prepared; PreRunE must execute before RunE")
	}

	database, databaseErr := openDatabase(commandContext, serverConfig.DatabaseURL)
	if databaseErr != nil {
		return databaseErr
	}
	logger.Info("database ready", zap.String("driver", database.Driver()))

	userStore := store.NewUsers(database)
	activityStore := store.NewActivities(database)
	exerciseStore := store.NewExercises(database)
	assessmentStore := store.NewAssessments(database)

	clock := authkit.NewSystemClock()
	progressStore := store.NewProgress(database, clock)

	keyCache := authkit.NewKeyCache(serverConfig.Auth, nil)
	verifier := authkit.NewTokenVerifier(serverConfig.Auth, keyCache, clock)
	userInfo := authkit.NewUserInfoClient(serverConfig.Auth, nil, logger)
	provisioner := authkit.NewProvisioner(userStore, userInfo, logger)
	metricsRecorder := authkit.NewCounterMetrics()

	var reporter timeback.Reporter = timeback.NopReporter{}
	if serverConfig.Timeback.Enabled() {
		reporter = timeback.NewClient(serverConfig.Timeback, nil, logger)
		logger.Info("timeback reporting enabled")
	} else {
		logger.Info("timeback reporting disabled")
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(zapLoggerMiddleware(logger))

	if serverConfig.EnableCORS {
		corsMiddleware, corsErr := web.ConfigureCORS(logger, serverConfig.CORSAllowedOrigins)
		if corsErr != nil {
			return corsErr
		}
		router.Use(corsMiddleware)
	}

	web.RegisterRoutes(router, web.Dependencies{
		Logger:        logger,
		Metrics:       metricsRecorder,
		Users:         userStore,
		Activities:    activityStore,
		Progress:      progressStore,
		Exercises:     exerciseStore,
		Assessments:   assessmentStore,
		Reporter:      reporter,
		RequireUser:   authkit.RequireUser(verifier, provisioner, logger, metricsRecorder),
		StartPolicy:   serverConfig.StartPolicy,
		ReportTimeout: serverConfig.Auth.HTTPTimeout,
	})

	server := &http.Server{
		Addr:              serverConfig.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownCtx, shutdownCancel := context.WithCancel(context.Background())
	defer shutdownCancel()

	go func() {
		stopSignals := make(chan os.Signal, 1)
		signal.Notify(stopSignals, syscall.SIGINT, syscall.SIGTERM)
		<-stopSignals
		graceCtx, graceCancel := context.WithTimeout(shutdownCtx, 10*time.Second)
		defer graceCancel()
		if err := server.Shutdown(graceCtx); err != nil {
			logger.Error("server shutdown error", zap.Error(err))
		}
	}()

	logger.Info("listening", zap.String("addr", serverConfig.ListenAddr))
	if err := serveHTTP(server); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen error: %w", err)
	}
	return nil
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		startTime := time.Now()
		contextGin.Next()
		duration := time.Since(startTime)
		logger.Info("http",
			zap.String("method", contextGin.Request.Method),
			zap.String("path", contextGin.Request.URL.Path),
			zap.Int("status", contextGin.Writer.Status()),
			zap.String("ip", contextGin.ClientIP()),
			zap.Duration("elapsed", duration),
		)
	}
}
