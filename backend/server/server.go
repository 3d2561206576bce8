package server

import (
	"fmt"
	"time"

	"github.com/apex/log"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mangrovewatch/backend/pipeline"
	"mangrovewatch/backend/rabbitmq"
	"mangrovewatch/classifier"
	"mangrovewatch/config"
	"mangrovewatch/geocode"
	"mangrovewatch/metrics"
	"mangrovewatch/vegetation"
)

const (
	EndPointHelp           = "/help"
	EndPointMetrics        = "/metrics"
	EndPointRunPipeline    = "/run-pipeline"
	EndPointValidate       = "/validate"
	EndPointSatelliteCheck = "/satellite-check"
	EndPointCheckLocation  = "/check_location"
	EndPointSignup         = "/signup"
	EndPointLogin          = "/login"
	EndPointUserPoints     = "/user/points"
	EndPointPointsHistory  = "/user/points/history"
	EndPointUserReports    = "/user/reports"
	EndPointUserStats      = "/user/stats"
)

var (
	serverConfig      *config.Config
	serverClassifier  *classifier.Client
	serverAnalyzer    pipeline.ChangeAnalyzer
	serverResolver    *geocode.Resolver
	serverPipeline    *pipeline.Pipeline
	rabbitmqPublisher *rabbitmq.Publisher
)

func StartService(cfg *config.Config) {
	log.Info("Starting the service...")
	serverConfig = cfg

	serverClassifier = classifier.NewClient(
		cfg.ClassifierURL, cfg.ClassifierAPIKey, cfg.ClassifierModel,
		classifier.LoadLabels(cfg.LabelsFile))
	log.Infof("Classifier ready with labels: %v", serverClassifier.Labels())
	serverResolver = geocode.NewResolver(cfg.GeocoderURL, cfg.GeocoderUserAgent)

	analyzer, err := vegetation.Default()
	if err != nil {
		log.Warnf("Satellite archive not configured, vegetation checks disabled: %v", err)
		serverAnalyzer = unavailableAnalyzer{}
	} else {
		serverAnalyzer = analyzer
	}
	serverPipeline = pipeline.New(serverClassifier, serverAnalyzer)

	if cfg.AMQPURL != "" {
		publisher, err := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.ReportExchange, cfg.ReportRoutingKey)
		if err != nil {
			log.Warnf("RabbitMQ unavailable, report feed disabled: %v", err)
		} else {
			rabbitmqPublisher = publisher
			log.Infof("Publishing saved reports to exchange %s", cfg.ReportExchange)
		}
	}

	metrics.Register()

	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowOrigins:     []string{"*"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(SecurityHeaders())
	router.Use(RateLimitMiddleware())

	router.GET(EndPointHelp, Help)
	router.GET(EndPointMetrics, gin.WrapH(promhttp.Handler()))

	router.POST(EndPointRunPipeline, RunPipeline)
	router.POST(EndPointValidate, Validate)
	router.POST(EndPointSatelliteCheck, SatelliteCheck)
	router.POST(EndPointCheckLocation, CheckLocation)
	router.POST(EndPointSignup, Signup)
	router.POST(EndPointLogin, Login)

	authed := router.Group("/", AuthMiddleware(cfg.JWTSecret))
	authed.GET(EndPointUserPoints, GetUserPoints)
	authed.GET(EndPointPointsHistory, GetPointsHistory)
	authed.GET(EndPointUserReports, GetUserReports)
	authed.GET(EndPointUserStats, GetUserStats)

	defer func() {
		if rabbitmqPublisher != nil {
			rabbitmqPublisher.Close()
		}
		closeServerDB()
	}()

	router.Run(fmt.Sprintf(":%s", cfg.Port))
	log.Info("Finished the service. Should not ever being seen.")
}
